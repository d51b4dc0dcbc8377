package wav

import (
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// RawChunk stores a non-core RIFF/WAV chunk for round-trip preservation.
type RawChunk struct {
	ID   [4]byte
	Data []byte
	// BeforeData indicates if this chunk appeared before the data chunk.
	BeforeData bool
}

func (c RawChunk) Clone() RawChunk {
	out := c
	out.Data = append([]byte(nil), c.Data...)

	return out
}

func cloneRawChunks(chunks []RawChunk) []RawChunk {
	if len(chunks) == 0 {
		return nil
	}

	out := make([]RawChunk, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].Clone()
	}

	return out
}

// ReadRawChunks returns a copy of every chunk other than fmt and data, in
// file order, so they can be written again by an Encoder.
func ReadRawChunks(r io.ReaderAt, size int64) ([]RawChunk, error) {
	if _, err := ReadOuterHeader(r, size); err != nil {
		return nil, err
	}

	var (
		out      []RawChunk
		seenData bool
	)

	for desc, err := range Walk(r, size, OuterHeaderSize) {
		if err != nil {
			return nil, err
		}

		switch desc.ID {
		case riff.FmtID:
			continue
		case riff.DataFormatID:
			seenData = true
			continue
		}

		data := make([]byte, desc.Size)

		_, err := readAtFull(r, data, int64(desc.PayloadOffset))
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %q: %w", desc.ID, err)
		}

		out = append(out, RawChunk{ID: desc.ID, Data: data, BeforeData: !seenData})
	}

	return out, nil
}
