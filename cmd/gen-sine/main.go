// This tool writes a 16 bit mono sine wave, used to produce test files.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"

	"github.com/atuecke/wav"
)

const (
	sampleRate = 48000
	bitDepth   = 16
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := flag.NewFlagSet("gen-sine", flag.ContinueOnError)

	output := flagSet.String("output", "output.wav", "filename to write to")
	frequency := flagSet.Float64("frequency", 440, "frequency in hertz to generate")
	length := flagSet.Float64("length", 5, "length in seconds of output file")
	title := flagSet.String("title", "", "title written to a LIST/INFO chunk after the data chunk")
	unpatched := flagSet.Bool("unpatched", false, "leave 0xFFFFFFFF in both size fields, as a crashed recorder would")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	log.Printf("generating a %f sec sine wav at %f hz", *length, *frequency)

	file, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", *output, err)
	}
	defer file.Close()

	wavOut := wav.NewEncoder(file, &audio.Format{NumChannels: 1, SampleRate: sampleRate}, bitDepth, 1)
	if *title != "" {
		wavOut.Metadata = &wav.Metadata{Title: *title, Software: "gen-sine"}
	}

	numSamples := int(sampleRate * *length)
	buf := make([]byte, 0, 2*sampleRate)

	for i := range numSamples {
		fv := math.Sin(float64(i) / sampleRate * *frequency * 2 * math.Pi)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(fv*math.MaxInt16)))

		if len(buf) == cap(buf) {
			if _, err := wavOut.Write(buf); err != nil {
				return err
			}

			buf = buf[:0]
		}
	}

	if _, err := wavOut.Write(buf); err != nil {
		return err
	}

	err = wavOut.Close()
	if err != nil {
		return err
	}

	if !*unpatched {
		return nil
	}

	err = wav.PatchDataSize(file, math.MaxUint32)
	if err != nil {
		return err
	}

	return wav.PatchRIFFSize(file, math.MaxUint32)
}
