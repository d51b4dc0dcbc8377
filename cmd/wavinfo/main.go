// This tool prints a summary of each passed wav file, or of every wav file
// inside a tar archive.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/zeebo/blake3"

	"github.com/atuecke/wav"
	"github.com/atuecke/wav/internal/archive"
	"github.com/atuecke/wav/internal/logging"
)

// CLI defines the command-line interface for wavinfo.
type CLI struct {
	Paths        []string `arg:"" help:"WAV files or .tar, .tar.gz, .tar.xz archives of WAV files" type:"path"`
	JSON         bool     `name:"json" help:"Print one JSON object per file"`
	Strict       bool     `help:"Treat container anomalies as errors"`
	Digest       bool     `help:"Print the BLAKE3 digest of the data payload"`
	NoMetadata   bool     `name:"no-metadata" help:"Skip decoding of fact and LIST/INFO chunks"`
	MaxEntrySize int64    `name:"max-entry-size" default:"1073741824" help:"Largest archive entry read into memory, in bytes"`
	LogLevel     string   `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat    string   `name:"log-format" default:"text" enum:"text,json" help:"Log format"`
}

type env struct {
	out    io.Writer
	errOut io.Writer
}

// report is the printed form of a summary.
type report struct {
	Path            string            `json:"path"`
	Format          string            `json:"format"`
	FormatTag       uint16            `json:"format_tag"`
	Channels        uint16            `json:"channels"`
	SampleRate      uint32            `json:"sample_rate"`
	BitsPerSample   uint16            `json:"bits_per_sample"`
	DataOffset      uint64            `json:"data_offset"`
	DataSize        uint32            `json:"data_size"`
	DurationSeconds float64           `json:"duration_seconds"`
	Chunks          []string          `json:"chunks,omitempty"`
	Anomalies       []string          `json:"anomalies,omitempty"`
	Info            map[string]string `json:"info,omitempty"`
	BLAKE3          string            `json:"blake3,omitempty"`
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out, errOut io.Writer) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("wavinfo"),
		kong.Description("Summarize RIFF/WAVE containers."),
		kong.Writers(out, errOut),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return ctx.Run(&env{out: out, errOut: errOut})
}

// Run summarizes every path in argument order.
func (c *CLI) Run(e *env) error {
	logger, err := logging.FromFlags(e.errOut, c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}

	opts := []wav.Option{wav.WithLogger(logger)}
	if c.Strict {
		opts = append(opts, wav.WithStrict())
	}

	if c.NoMetadata {
		opts = append(opts, wav.WithoutMetadata())
	}

	var files []string

	for _, p := range c.Paths {
		if !archive.IsArchive(p) {
			files = append(files, p)
		}
	}

	summaries, err := wav.SummarizeFiles(context.Background(), files, opts...)
	if err != nil {
		return err
	}

	next := 0

	for _, p := range c.Paths {
		if !archive.IsArchive(p) {
			err := c.printFile(e.out, p, summaries[next])
			if err != nil {
				return err
			}

			next++

			continue
		}

		logger.Debug("reading archive", "path", p)

		entries, err := archive.ReadMatching(p, isWavName, c.MaxEntrySize)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}

		for _, entry := range entries {
			name := p + ":" + entry.Name

			s, err := wav.SummarizeBytes(entry.Data, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			err = c.print(e.out, name, s, bytes.NewReader(entry.Data))
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func isWavName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".wav" || ext == ".wave"
}

func (c *CLI) printFile(out io.Writer, path string, s *wav.ContainerSummary) error {
	if !c.Digest {
		return c.print(out, path, s, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.print(out, path, s, f)
}

func (c *CLI) print(out io.Writer, path string, s *wav.ContainerSummary, src io.ReaderAt) error {
	r := newReport(path, s)

	if c.Digest && src != nil {
		sum, err := digest(src, s.Data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		r.BLAKE3 = sum
	}

	if c.JSON {
		return json.NewEncoder(out).Encode(r)
	}

	return r.writeText(out)
}

// digest hashes the data payload.
func digest(src io.ReaderAt, data wav.DataChunk) (string, error) {
	h := blake3.New()

	_, err := io.Copy(h, io.NewSectionReader(src, int64(data.Offset), int64(data.Size)))
	if err != nil {
		return "", fmt.Errorf("hash data payload: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func newReport(path string, s *wav.ContainerSummary) report {
	r := report{
		Path:            path,
		Format:          wav.FormatName(s.Format.EffectiveFormatTag()),
		FormatTag:       s.Format.FormatTag,
		Channels:        s.Format.NumChannels,
		SampleRate:      s.Format.SampleRate,
		BitsPerSample:   s.Format.BitsPerSample,
		DataOffset:      s.Data.Offset,
		DataSize:        s.Data.Size,
		DurationSeconds: s.DurationSeconds,
		Chunks:          s.UnrecognizedChunkNames(),
	}

	for _, a := range s.Anomalies {
		r.Anomalies = append(r.Anomalies, a.String())
	}

	if md := s.Metadata; md != nil {
		r.Info = map[string]string{}

		for k, v := range map[string]string{
			"artist":    md.Artist,
			"title":     md.Title,
			"comments":  md.Comments,
			"copyright": md.Copyright,
			"created":   md.CreationDate,
			"genre":     md.Genre,
			"software":  md.Software,
			"track":     md.TrackNbr,
		} {
			if v != "" {
				r.Info[k] = v
			}
		}

		if md.HasFact {
			r.Info["fact_samples"] = fmt.Sprint(md.SampleCount)
		}
	}

	return r
}

func (r report) writeText(out io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.Path)
	fmt.Fprintf(&b, "  format:   %s, %d ch, %d Hz, %d bit\n", r.Format, r.Channels, r.SampleRate, r.BitsPerSample)
	fmt.Fprintf(&b, "  data:     %d bytes at offset %d\n", r.DataSize, r.DataOffset)
	fmt.Fprintf(&b, "  duration: %.6fs\n", r.DurationSeconds)

	if len(r.Chunks) > 0 {
		fmt.Fprintf(&b, "  chunks:   %s\n", strings.Join(r.Chunks, " "))
	}

	for _, a := range r.Anomalies {
		fmt.Fprintf(&b, "  anomaly:  %s\n", a)
	}

	for _, k := range slices.Sorted(maps.Keys(r.Info)) {
		fmt.Fprintf(&b, "  %s: %s\n", k, r.Info[k])
	}

	if r.BLAKE3 != "" {
		fmt.Fprintf(&b, "  blake3:   %s\n", r.BLAKE3)
	}

	_, err := io.WriteString(out, b.String())

	return err
}
