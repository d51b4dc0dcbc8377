package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

// ReadWriteSeekerAt is a patch target whose size fields can be located by
// walking its chunks. *os.File implements it.
type ReadWriteSeekerAt interface {
	io.ReaderAt
	io.WriteSeeker
}

// PatchUint32 overwrites the 4 bytes at offset with v in little endian order.
// No other byte is read or written and the target length doesn't change. The
// cursor is left at the end of the target, where a writer would continue.
//
// The caller must hold exclusive access to the target while patching.
func PatchUint32(w io.WriteSeeker, offset int64, v uint32) error {
	size, err := w.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end of target: %w", err)
	}

	if offset < 0 || offset > size-4 {
		return &OutOfBoundsError{Offset: offset, Length: 4, Size: size}
	}

	if _, err := w.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", offset, err)
	}

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)

	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("failed to write size field at offset %d: %w", offset, err)
	}

	if _, err := w.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of target: %w", err)
	}

	return nil
}

// PatchRIFFSize overwrites the overall size field at offset 4. By convention
// v is the file length minus 8.
func PatchRIFFSize(w io.WriteSeeker, v uint32) error {
	return PatchUint32(w, RIFFSizeOffset, v)
}

// DataSizeOffset locates the size field of the first data chunk by walking
// the chunks in front of it. Chunks after the data chunk are never read, so
// a data chunk with a placeholder size is still found.
func DataSizeOffset(r io.ReaderAt, size int64) (int64, error) {
	if _, err := ReadOuterHeader(r, size); err != nil {
		return 0, err
	}

	desc, err := findDataChunk(r, size)
	if err != nil {
		return 0, err
	}

	return desc.SizeFieldOffset(), nil
}

// findDataChunk returns the first data chunk. A data chunk declaring more
// bytes than remain is returned as found; that is what a streamed file looks
// like before its sizes are patched.
func findDataChunk(r io.ReaderAt, size int64) (ChunkDescriptor, error) {
	for desc, err := range Walk(r, size, OuterHeaderSize) {
		var truncated *TruncatedChunkError
		if errors.As(err, &truncated) && !truncated.Header && truncated.ID == riff.DataFormatID {
			return ChunkDescriptor{
				ID:            truncated.ID,
				Size:          uint32(truncated.Declared),
				PayloadOffset: uint64(truncated.Offset + chunkHeaderSize),
			}, nil
		}

		if err != nil {
			return ChunkDescriptor{}, err
		}

		if desc.ID == riff.DataFormatID {
			return desc, nil
		}
	}

	return ChunkDescriptor{}, &MissingChunkError{Which: "data"}
}

// PatchDataSize overwrites the size field of the first data chunk.
func PatchDataSize(f ReadWriteSeekerAt, v uint32) error {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end of target: %w", err)
	}

	offset, err := DataSizeOffset(f, size)
	if err != nil {
		return err
	}

	return PatchUint32(f, offset, v)
}

// FinalSizes are the size fields Finalize wrote.
type FinalSizes struct {
	RIFFSize       uint32
	DataSize       uint32
	DataSizeOffset int64
}

// Finalize rewrites both size fields of a file that was written without
// knowing its length, such as a recording streamed with 0xFFFFFFFF
// placeholders. The RIFF size becomes the file length minus 8. When the data
// chunk's declared size doesn't fit the file, is 0 or the placeholder with
// bytes following, or is followed by bytes that don't frame chunks, its size
// becomes the number of bytes after its header; otherwise its declared size is
// kept.
func Finalize(f ReadWriteSeekerAt) (FinalSizes, error) {
	var out FinalSizes

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return out, fmt.Errorf("failed to seek to end of target: %w", err)
	}

	if _, err := ReadOuterHeader(f, size); err != nil {
		return out, err
	}

	if size-8 > int64(unknownSize) {
		return out, &OutOfBoundsError{Offset: RIFFSizeOffset, Length: 4, Size: size}
	}

	desc, err := findDataChunk(f, size)
	if err != nil {
		return out, err
	}

	out.RIFFSize = uint32(size - 8)
	out.DataSizeOffset = desc.SizeFieldOffset()
	out.DataSize = desc.Size

	stale, err := dataRunsToEOF(f, size, desc)
	if err != nil {
		return out, err
	}

	if stale {
		out.DataSize = uint32(size - int64(desc.PayloadOffset))
	}

	if err := PatchRIFFSize(f, out.RIFFSize); err != nil {
		return out, err
	}

	if err := PatchUint32(f, out.DataSizeOffset, out.DataSize); err != nil {
		return out, err
	}

	return out, nil
}

// dataRunsToEOF reports whether the declared size of desc is stale and its
// payload actually runs to the end of the file. That is the case when the
// declared size runs past the end, when it is 0 or the placeholder and bytes
// follow, or when the bytes after the declared end don't frame chunks with
// printable ids.
func dataRunsToEOF(r io.ReaderAt, size int64, desc ChunkDescriptor) (bool, error) {
	if int64(desc.PayloadOffset)+int64(desc.Size) > size {
		return true, nil
	}

	next := desc.End(size)
	if next == size {
		return false, nil
	}

	if desc.Size == 0 || desc.Size == unknownSize {
		return true, nil
	}

	for c, err := range Walk(r, size, next) {
		if errors.Is(err, ErrTruncatedChunk) {
			return true, nil
		}

		if err != nil {
			return false, err
		}

		if !printableID(c.ID) {
			return true, nil
		}
	}

	return false, nil
}

// printableID reports whether id is a FourCC of printable ASCII. Sample bytes
// read as a chunk header rarely are.
func printableID(id [4]byte) bool {
	for _, b := range id {
		if b < 0x20 || b > 0x7e {
			return false
		}
	}

	return true
}
