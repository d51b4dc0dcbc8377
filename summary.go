package wav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"golang.org/x/sync/errgroup"
)

// ErrAnomaly is returned in strict mode when a file parses but shows an
// anomaly.
var ErrAnomaly = errors.New("container anomaly")

// DataChunk is the byte extent of the sample data.
type DataChunk struct {
	Offset uint64
	Size   uint32
}

// AnomalyKind classifies a non-fatal oddity found while summarizing.
type AnomalyKind string

const (
	AnomalyDuplicateFormat AnomalyKind = "duplicate fmt chunk"
	AnomalyDuplicateData   AnomalyKind = "duplicate data chunk"
	AnomalyMissingPad      AnomalyKind = "missing trailing pad byte"
	AnomalyRIFFSize        AnomalyKind = "riff size mismatch"
	AnomalyChunkDecode     AnomalyKind = "chunk decode failed"
)

// Anomaly is a non-fatal issue. The first fmt and data chunks stay
// authoritative whatever anomalies are found.
type Anomaly struct {
	Kind    AnomalyKind
	ChunkID [4]byte
	Offset  int64
	Detail  string
}

func (a Anomaly) String() string {
	if a.Detail == "" {
		return fmt.Sprintf("%s: %q at offset %d", a.Kind, a.ChunkID[:], a.Offset)
	}

	return fmt.Sprintf("%s: %q at offset %d: %s", a.Kind, a.ChunkID[:], a.Offset, a.Detail)
}

// ContainerSummary is the validated description of a RIFF/WAVE container. It
// holds copies only and never refers back to the parsed source.
type ContainerSummary struct {
	Header OuterHeader
	Format FmtChunk
	Data   DataChunk
	// DurationSeconds is derived from Data.Size and Format; the byte extents
	// are authoritative.
	DurationSeconds float64
	// UnrecognizedChunkIDs lists every chunk other than the fmt and data
	// chunks, in file order.
	UnrecognizedChunkIDs [][4]byte
	Anomalies            []Anomaly
	// Metadata is nil unless a chunk handler decoded something.
	Metadata *Metadata
}

// Duration returns the duration with nanosecond precision.
func (s *ContainerSummary) Duration() time.Duration {
	if s == nil {
		return 0
	}

	div := uint64(s.Format.SampleRate) * uint64(s.Format.FrameSize())
	if div == 0 {
		return 0
	}

	return time.Duration(uint64(s.Data.Size) * uint64(time.Second) / div)
}

// Frames returns the number of whole sample frames in the data chunk.
func (s *ContainerSummary) Frames() uint64 {
	if s == nil || s.Format.FrameSize() == 0 {
		return 0
	}

	return uint64(s.Data.Size) / uint64(s.Format.FrameSize())
}

// AudioFormat returns the channel count and sample rate.
func (s *ContainerSummary) AudioFormat() *audio.Format {
	if s == nil {
		return nil
	}

	return &audio.Format{
		NumChannels: int(s.Format.NumChannels),
		SampleRate:  int(s.Format.SampleRate),
	}
}

// UnrecognizedChunkNames returns UnrecognizedChunkIDs as strings.
func (s *ContainerSummary) UnrecognizedChunkNames() []string {
	if s == nil {
		return nil
	}

	out := make([]string, len(s.UnrecognizedChunkIDs))
	for i, id := range s.UnrecognizedChunkIDs {
		out[i] = string(id[:])
	}

	return out
}

// DurationSeconds computes data size / (sample rate * channels * bytes per
// sample). A zero divisor yields a *DivisionError.
func DurationSeconds(f FmtChunk, dataSize uint32) (float64, error) {
	frameSize := f.FrameSize()
	if f.SampleRate == 0 || frameSize == 0 {
		return 0, &DivisionError{SampleRate: f.SampleRate, FrameSize: frameSize}
	}

	return float64(dataSize) / (float64(f.SampleRate) * float64(frameSize)), nil
}

// Summarize parses a RIFF/WAVE container of the given size.
//
// Chunks may come in any order and unknown chunks are skipped. The first fmt
// and the first data chunk are authoritative. Either a complete summary or
// an error is returned, never both.
func Summarize(r io.ReaderAt, size int64, opts ...Option) (*ContainerSummary, error) {
	o := applyOptions(opts)

	hdr, err := ReadOuterHeader(r, size)
	if err != nil {
		return nil, err
	}

	s := &ContainerSummary{Header: hdr}

	var (
		fmtChunk *FmtChunk
		data     *DataChunk
		md       Metadata
	)

	for desc, err := range Walk(r, size, OuterHeaderSize) {
		if err != nil {
			return nil, err
		}

		switch desc.ID {
		case riff.FmtID:
			if fmtChunk != nil {
				s.addAnomaly(o, Anomaly{Kind: AnomalyDuplicateFormat, ChunkID: desc.ID, Offset: desc.HeaderOffset()})
				break
			}

			fmtChunk, err = DecodeFmtChunk(desc.Chunk(r))
			if err != nil {
				return nil, err
			}
		case riff.DataFormatID:
			if data != nil {
				s.addAnomaly(o, Anomaly{Kind: AnomalyDuplicateData, ChunkID: desc.ID, Offset: desc.HeaderOffset()})
				break
			}

			data = &DataChunk{Offset: desc.PayloadOffset, Size: desc.Size}
		default:
			s.UnrecognizedChunkIDs = append(s.UnrecognizedChunkIDs, desc.ID)

			_, err := o.registry.Decode(&md, desc.Chunk(r))
			if err != nil {
				s.addAnomaly(o, Anomaly{
					Kind:    AnomalyChunkDecode,
					ChunkID: desc.ID,
					Offset:  desc.HeaderOffset(),
					Detail:  err.Error(),
				})
			}
		}

		if desc.PadMissing(size) {
			s.addAnomaly(o, Anomaly{Kind: AnomalyMissingPad, ChunkID: desc.ID, Offset: desc.HeaderOffset()})
		}
	}

	if fmtChunk == nil {
		return nil, &MissingChunkError{Which: "format"}
	}

	if data == nil {
		return nil, &MissingChunkError{Which: "data"}
	}

	if hdr.ExpectedFileSize() != size {
		s.addAnomaly(o, Anomaly{
			Kind:    AnomalyRIFFSize,
			ChunkID: hdr.Magic,
			Offset:  RIFFSizeOffset,
			Detail:  fmt.Sprintf("header declares %d bytes, file has %d", hdr.ExpectedFileSize(), size),
		})
	}

	s.DurationSeconds, err = DurationSeconds(*fmtChunk, data.Size)
	if err != nil {
		return nil, err
	}

	if o.strict && len(s.Anomalies) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAnomaly, s.Anomalies[0])
	}

	s.Format = *fmtChunk
	s.Data = *data

	if !md.IsZero() {
		s.Metadata = &md
	}

	return s, nil
}

func (s *ContainerSummary) addAnomaly(o *options, a Anomaly) {
	s.Anomalies = append(s.Anomalies, a)
	o.logger.Warn("wav container anomaly",
		"kind", string(a.Kind),
		"chunk", string(a.ChunkID[:]),
		"offset", a.Offset,
		"detail", a.Detail,
	)
}

// SummarizeBytes parses an in-memory container.
func SummarizeBytes(b []byte, opts ...Option) (*ContainerSummary, error) {
	return Summarize(bytes.NewReader(b), int64(len(b)), opts...)
}

// SummarizeFile opens and parses the file at path.
func SummarizeFile(path string, opts ...Option) (*ContainerSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}

	return Summarize(f, stat.Size(), opts...)
}

// SummarizeFiles parses files concurrently using up to runtime.NumCPU()
// goroutines. Results are in the order of paths. The first failure cancels
// the remaining work and is returned, prefixed with its path.
func SummarizeFiles(ctx context.Context, paths []string, opts ...Option) ([]*ContainerSummary, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*ContainerSummary, len(paths))

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			s, err := SummarizeFile(path, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			results[i] = s

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
