package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"iter"

	"github.com/go-audio/riff"
)

// ChunkDescriptor is the framing of one chunk: its id, the size its header
// declares and where its payload starts. The payload itself is not read.
type ChunkDescriptor struct {
	ID            [4]byte
	Size          uint32
	PayloadOffset uint64
}

// HeaderOffset returns the offset of the chunk's id field.
func (c ChunkDescriptor) HeaderOffset() int64 {
	return int64(c.PayloadOffset) - chunkHeaderSize
}

// SizeFieldOffset returns the offset of the chunk's 4 byte size field.
func (c ChunkDescriptor) SizeFieldOffset() int64 {
	return int64(c.PayloadOffset) - 4
}

// End returns the offset following the chunk's payload and pad byte. The pad
// byte of the last chunk may be missing, so End never goes past size.
func (c ChunkDescriptor) End(size int64) int64 {
	end := int64(c.PayloadOffset) + int64(c.Size)
	if c.Size%2 == 1 && end < size {
		end++
	}

	return end
}

// PadMissing reports whether the chunk is odd sized and its pad byte is cut
// off by the end of the source.
func (c ChunkDescriptor) PadMissing(size int64) bool {
	return c.Size%2 == 1 && int64(c.PayloadOffset)+int64(c.Size) == size
}

// Chunk returns a riff.Chunk reading the payload from r.
func (c ChunkDescriptor) Chunk(r io.ReaderAt) *riff.Chunk {
	return &riff.Chunk{
		ID:   c.ID,
		Size: int(c.Size),
		R:    io.NewSectionReader(r, int64(c.PayloadOffset), int64(c.Size)),
	}
}

func (c ChunkDescriptor) String() string {
	return fmt.Sprintf("%q size=%d payload@%d", c.ID[:], c.Size, c.PayloadOffset)
}

// Walk returns the chunks of a source of the given size, starting with the
// chunk header at offset start (OuterHeaderSize for a whole file).
//
// The sequence is lazy and can be ranged over any number of times; each
// iteration starts again from start. It ends when the cursor reaches size. A
// chunk declaring more bytes than remain, or a partial chunk header, yields
// a *TruncatedChunkError and stops the sequence.
func Walk(r io.ReaderAt, size, start int64) iter.Seq2[ChunkDescriptor, error] {
	return func(yield func(ChunkDescriptor, error) bool) {
		var frame [chunkHeaderSize]byte

		for pos := start; pos < size; {
			remaining := size - pos
			if remaining < chunkHeaderSize {
				var id [4]byte

				if _, err := readAtFull(r, id[:min(remaining, 4)], pos); err != nil {
					yield(ChunkDescriptor{}, fmt.Errorf("failed to read chunk header at offset %d: %w", pos, err))
					return
				}

				yield(ChunkDescriptor{}, &TruncatedChunkError{
					ID:        id,
					Offset:    pos,
					Declared:  chunkHeaderSize,
					Available: remaining,
					Header:    true,
				})

				return
			}

			_, err := readAtFull(r, frame[:], pos)
			if err != nil {
				yield(ChunkDescriptor{}, fmt.Errorf("failed to read chunk header at offset %d: %w", pos, err))
				return
			}

			desc := ChunkDescriptor{
				Size:          binary.LittleEndian.Uint32(frame[4:8]),
				PayloadOffset: uint64(pos + chunkHeaderSize),
			}
			copy(desc.ID[:], frame[0:4])

			available := remaining - chunkHeaderSize
			if int64(desc.Size) > available {
				yield(ChunkDescriptor{}, &TruncatedChunkError{
					ID:        desc.ID,
					Offset:    pos,
					Declared:  int64(desc.Size),
					Available: available,
				})

				return
			}

			if !yield(desc, nil) {
				return
			}

			pos = desc.End(size)
		}
	}
}

// Chunks walks the source and collects every chunk descriptor.
func Chunks(r io.ReaderAt, size, start int64) ([]ChunkDescriptor, error) {
	var out []ChunkDescriptor

	for desc, err := range Walk(r, size, start) {
		if err != nil {
			return nil, err
		}

		out = append(out, desc)
	}

	return out, nil
}

// FindChunk returns the first chunk with the given id.
func FindChunk(r io.ReaderAt, size int64, id [4]byte) (ChunkDescriptor, bool, error) {
	for desc, err := range Walk(r, size, OuterHeaderSize) {
		if err != nil {
			return ChunkDescriptor{}, false, err
		}

		if desc.ID == id {
			return desc, true, nil
		}
	}

	return ChunkDescriptor{}, false, nil
}
