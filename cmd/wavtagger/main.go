// This tool tags wav files with a LIST/INFO chunk. Inputs are never modified:
// each tagged copy goes to a wavtagger folder next to its source. The fmt
// chunk, the sample bytes and every other chunk are copied unchanged.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/atuecke/wav"
	"github.com/atuecke/wav/internal/logging"
)

const outputDirName = "wavtagger"

// CLI defines the command-line interface for wavtagger.
type CLI struct {
	Paths       []string `arg:"" help:"WAV files, or directories whose .wav files are tagged" type:"path"`
	TitleRegexp string   `name:"regexp" help:"Submatch regexp setting the title from the file name without extension, e.g. 'take_\\d\\d_(.*)'"`
	Title       string   `help:"Title"`
	Artist      string   `help:"Artist"`
	Comments    string   `help:"Comments"`
	Copyright   string   `help:"Copyright"`
	Genre       string   `help:"Genre"`
	LogLevel    string   `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat   string   `name:"log-format" default:"text" enum:"text,json" help:"Log format"`
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
		kong.Name("wavtagger"),
		kong.Description("Copy WAV files with new LIST/INFO metadata."),
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

// Run tags every file named by Paths. A failing file in a directory is
// logged and skipped; a failing file named directly stops the run.
func (c *CLI) Run(e *env) error {
	logger, err := logging.FromFlags(e.errOut, c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}

	var titleRe *regexp.Regexp

	if c.TitleRegexp != "" {
		titleRe, err = regexp.Compile(c.TitleRegexp)
		if err != nil {
			return fmt.Errorf("invalid title regexp: %w", err)
		}
	}

	for _, path := range c.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			outPath, err := c.tagFile(path, titleRe, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			fmt.Fprintln(e.out, outPath)

			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
				continue
			}

			filePath := filepath.Join(path, entry.Name())

			outPath, err := c.tagFile(filePath, titleRe, logger)
			if err != nil {
				logger.Error("tagging failed", "path", filePath, "error", err)
				continue
			}

			fmt.Fprintln(e.out, outPath)
		}
	}

	return nil
}

// metadata merges the flags over the tags the file already carries.
func (c *CLI) metadata(path string, existing *wav.Metadata, titleRe *regexp.Regexp, logger *slog.Logger) *wav.Metadata {
	md := &wav.Metadata{}
	if existing != nil {
		*md = *existing
	}

	if titleRe != nil {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if m := titleRe.FindStringSubmatch(name); len(m) > 1 {
			md.Title = m[1]
		} else {
			logger.Warn("title regexp did not match", "regexp", c.TitleRegexp, "name", name)
		}
	}

	for _, f := range []struct {
		flag string
		dst  *string
	}{
		{c.Title, &md.Title},
		{c.Artist, &md.Artist},
		{c.Comments, &md.Comments},
		{c.Copyright, &md.Copyright},
		{c.Genre, &md.Genre},
	} {
		if f.flag != "" {
			*f.dst = f.flag
		}
	}

	return md
}

// tagFile writes the tagged copy of path and returns where it went.
func (c *CLI) tagFile(path string, titleRe *regexp.Regexp, logger *slog.Logger) (outPath string, err error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return "", err
	}

	summary, err := wav.Summarize(in, stat.Size(), wav.WithLogger(logger))
	if err != nil {
		return "", err
	}

	chunks, err := wav.ReadRawChunks(in, stat.Size())
	if err != nil {
		return "", err
	}

	outputDir := filepath.Join(filepath.Dir(path), outputDirName)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outPath = filepath.Join(outputDir, filepath.Base(path))

	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}

	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	enc := wav.NewEncoderFromSummary(out, summary)
	enc.SetRawChunks(withoutInfoLists(chunks))
	enc.Metadata = c.metadata(path, summary.Metadata, titleRe, logger)

	payload := io.NewSectionReader(in, int64(summary.Data.Offset), int64(summary.Data.Size))
	if _, err := io.Copy(enc, payload); err != nil {
		return "", fmt.Errorf("copy sample data: %w", err)
	}

	if err := enc.Close(); err != nil {
		return "", err
	}

	logger.Debug("tagged", "path", path, "output", outPath, "frames", enc.Frames())

	return outPath, nil
}

// withoutInfoLists drops LIST/INFO chunks; the encoder writes a fresh one.
func withoutInfoLists(chunks []wav.RawChunk) []wav.RawChunk {
	out := chunks[:0]

	for _, c := range chunks {
		if c.ID == wav.CIDList && bytes.HasPrefix(c.Data, wav.CIDInfo[:]) {
			continue
		}

		out = append(out, c)
	}

	return out
}
