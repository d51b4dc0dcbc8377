// This tool repairs the size fields of wav files whose writer never patched
// them, such as recordings cut off by a crash. Files are patched in place.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"github.com/alecthomas/kong"

	"github.com/atuecke/wav"
	"github.com/atuecke/wav/internal/logging"
)

var errSizeRange = errors.New("size must be between 0 and 4294967295")

// CLI defines the command-line interface for wavfix.
type CLI struct {
	Paths     []string `arg:"" help:"WAV files to patch in place" type:"existingfile"`
	RIFFSize  int64    `name:"riff-size" default:"-1" help:"Write this RIFF size instead of the file length minus 8"`
	DataSize  int64    `name:"data-size" default:"-1" help:"Write this data chunk size instead of deriving it"`
	LogLevel  string   `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string   `name:"log-format" default:"text" enum:"text,json" help:"Log format"`
}

type env struct {
	out    io.Writer
	errOut io.Writer
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
		kong.Name("wavfix"),
		kong.Description("Rewrite the RIFF and data chunk sizes of WAV files."),
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

func (c *CLI) checkSizes() error {
	for _, v := range []int64{c.RIFFSize, c.DataSize} {
		if v < -1 || v > math.MaxUint32 {
			return fmt.Errorf("%w, got %d", errSizeRange, v)
		}
	}

	return nil
}

// Run patches every path.
func (c *CLI) Run(e *env) error {
	if err := c.checkSizes(); err != nil {
		return err
	}

	logger, err := logging.FromFlags(e.errOut, c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}

	for _, path := range c.Paths {
		sizes, err := c.fix(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		logger.Info("patched size fields",
			"path", path,
			"riff_size", sizes.RIFFSize,
			"data_size", sizes.DataSize,
			"data_size_offset", sizes.DataSizeOffset,
		)

		s, err := wav.SummarizeFile(path, wav.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(e.out, "%s: patched, but still doesn't parse: %v\n", path, err)
			continue
		}

		fmt.Fprintf(e.out, "%s: riff size %d, data size %d, duration %s\n",
			path, sizes.RIFFSize, sizes.DataSize, s.Duration())
	}

	return nil
}

func (c *CLI) fix(path string) (sizes wav.FinalSizes, err error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return sizes, err
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	sizes, err = wav.Finalize(f)
	if err != nil {
		return sizes, err
	}

	if c.RIFFSize >= 0 {
		sizes.RIFFSize = uint32(c.RIFFSize)

		if err := wav.PatchRIFFSize(f, sizes.RIFFSize); err != nil {
			return sizes, err
		}
	}

	if c.DataSize >= 0 {
		sizes.DataSize = uint32(c.DataSize)

		if err := wav.PatchDataSize(f, sizes.DataSize); err != nil {
			return sizes, err
		}
	}

	return sizes, f.Sync()
}
