package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

const (
	// OuterHeaderSize is the size of the RIFF/WAVE header preceding the first
	// chunk.
	OuterHeaderSize = 12
	// RIFFSizeOffset is the offset of the overall size field.
	RIFFSizeOffset = 4
	// chunkHeaderSize is the id + size frame in front of every chunk payload.
	chunkHeaderSize = 8
	// unknownSize is the placeholder streaming writers put in size fields.
	unknownSize = uint32(0xFFFFFFFF)
)

// OuterHeader is the fixed 12 byte header of a RIFF container.
type OuterHeader struct {
	Magic [4]byte
	// RIFFSize excludes the magic and the size field itself, so a complete
	// file is RIFFSize+8 bytes long.
	RIFFSize uint32
	FormType [4]byte
}

// ExpectedFileSize returns the file length the header claims.
func (h OuterHeader) ExpectedFileSize() int64 {
	return int64(h.RIFFSize) + 8
}

// ReadOuterHeader reads and validates the outer header of a RIFF/WAVE
// container.
func ReadOuterHeader(r io.ReaderAt, size int64) (OuterHeader, error) {
	var h OuterHeader

	if size < OuterHeaderSize {
		return h, &FormatError{Field: "header", Size: size}
	}

	var buf [OuterHeaderSize]byte

	n, err := readAtFull(r, buf[:], 0)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return h, &FormatError{Field: "header", Size: int64(n)}
	}

	if err != nil {
		return h, fmt.Errorf("failed to read outer header: %w", err)
	}

	copy(h.Magic[:], buf[0:4])
	h.RIFFSize = binary.LittleEndian.Uint32(buf[4:8])
	copy(h.FormType[:], buf[8:12])

	if h.Magic != riff.RiffID {
		return h, &FormatError{Field: "magic", Got: h.Magic, Want: riff.RiffID}
	}

	if h.FormType != riff.WavFormatID {
		return h, &FormatError{Field: "form type", Got: h.FormType, Want: riff.WavFormatID}
	}

	return h, nil
}

// readAtFull reads exactly len(buf) bytes at off. A short read is reported as
// io.ErrUnexpectedEOF.
func readAtFull(r io.ReaderAt, buf []byte, off int64) (int, error) {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return n, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return n, err
}
