package wav

import (
	"errors"
	"fmt"

	"github.com/go-audio/riff"
)

var (
	// ErrFormat is matched by every *FormatError.
	ErrFormat = errors.New("not a RIFF/WAVE container")
	// ErrMissingChunk is matched by every *MissingChunkError.
	ErrMissingChunk = errors.New("required chunk not found")
	// ErrMalformedFormatChunk is matched by every *MalformedFormatChunkError.
	ErrMalformedFormatChunk = errors.New("malformed fmt chunk")
	// ErrTruncatedChunk is matched by every *TruncatedChunkError.
	ErrTruncatedChunk = errors.New("truncated chunk")
	// ErrDivision is matched by every *DivisionError.
	ErrDivision = errors.New("duration divisor is zero")
	// ErrOutOfBounds is matched by every *OutOfBoundsError.
	ErrOutOfBounds = errors.New("offset out of bounds")
)

// FormatError reports an outer header that doesn't identify a RIFF/WAVE
// container.
type FormatError struct {
	Field string // "magic", "form type" or "header"
	Got   [4]byte
	Want  [4]byte
	// Size is set when the source is too short to hold the outer header.
	Size int64
}

func (e *FormatError) Error() string {
	if e.Field == "header" {
		return fmt.Sprintf("%v: %d bytes is shorter than the %d byte outer header", ErrFormat, e.Size, OuterHeaderSize)
	}

	return fmt.Sprintf("%v: %s is %q, expected %q", ErrFormat, e.Field, e.Got[:], e.Want[:])
}

// Unwrap lets callers match either ErrFormat or riff.ErrFmtNotSupported.
func (e *FormatError) Unwrap() []error { return []error{ErrFormat, riff.ErrFmtNotSupported} }

// MissingChunkError reports that a walk completed without finding a required
// chunk. Which is either "format" or "data".
type MissingChunkError struct {
	Which string
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("%s chunk: %v", e.Which, ErrMissingChunk)
}

func (e *MissingChunkError) Unwrap() error { return ErrMissingChunk }

// MalformedFormatChunkError reports a fmt chunk whose payload size is not one
// of the legal sizes, or whose extension doesn't fit its payload.
type MalformedFormatChunkError struct {
	Size   uint32
	Reason string
}

func (e *MalformedFormatChunkError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v (size %d): %s", ErrMalformedFormatChunk, e.Size, e.Reason)
	}

	return fmt.Sprintf("%v: illegal payload size %d", ErrMalformedFormatChunk, e.Size)
}

func (e *MalformedFormatChunkError) Unwrap() error { return ErrMalformedFormatChunk }

// TruncatedChunkError reports a chunk that declares more bytes than remain in
// the source.
type TruncatedChunkError struct {
	ID [4]byte
	// Offset of the chunk header.
	Offset    int64
	Declared  int64
	Available int64
	// Header is set when the 8 byte chunk header itself is cut off; Declared
	// is then the header size.
	Header bool
}

// Shortfall is the number of missing bytes.
func (e *TruncatedChunkError) Shortfall() int64 {
	return e.Declared - e.Available
}

func (e *TruncatedChunkError) Error() string {
	if e.Header {
		return fmt.Sprintf("%v: partial chunk header at offset %d, %d of %d bytes",
			ErrTruncatedChunk, e.Offset, e.Available, e.Declared)
	}

	return fmt.Sprintf("%v: chunk %q at offset %d declares %d bytes, %d available (short by %d)",
		ErrTruncatedChunk, e.ID[:], e.Offset, e.Declared, e.Available, e.Shortfall())
}

func (e *TruncatedChunkError) Unwrap() error { return ErrTruncatedChunk }

// DivisionError reports a fmt chunk that makes the duration undefined.
type DivisionError struct {
	SampleRate uint32
	FrameSize  uint32
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("%v: sample rate %d, frame size %d bytes", ErrDivision, e.SampleRate, e.FrameSize)
}

func (e *DivisionError) Unwrap() error { return ErrDivision }

// OutOfBoundsError reports a patch that would touch bytes past the end of the
// target.
type OutOfBoundsError struct {
	Offset int64
	Length int
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%v: write of %d bytes at offset %d exceeds target size %d",
		ErrOutOfBounds, e.Length, e.Offset, e.Size)
}

func (e *OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }
