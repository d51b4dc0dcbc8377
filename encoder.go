package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
)

// Encoder writes a RIFF/WAVE container around sample data that is already
// encoded. Both size fields are written as 0xFFFFFFFF placeholders and
// patched in place on Close, so the output can be streamed.
type Encoder struct {
	w io.WriteSeeker

	// FmtChunk is written as the fmt chunk.
	FmtChunk *FmtChunk
	// Metadata is written as a LIST/INFO chunk after the data chunk.
	Metadata *Metadata
	// UnknownChunks are written before or after the data chunk, as flagged.
	UnknownChunks []RawChunk

	WrittenBytes int64

	dataBytes        int64
	dataChunkSizePos int64
	dataChunkStarted bool
	wroteHeader      bool
	closed           bool
}

var (
	errAlreadyWroteHdr = errors.New("already wrote header")
	errNilEncoder      = errors.New("can't write a nil encoder")
	errNilWriter       = errors.New("can't write to a nil writer")
	errEncoderClosed   = errors.New("encoder is closed")
	errTooLarge        = errors.New("container exceeds 4 GiB")
)

// NewEncoder creates an encoder for sample data in the given format.
// audioFormat is a WAVE format tag, 1 for PCM; WAVE_FORMAT_EXTENSIBLE
// (0xFFFE) writes a 40 byte fmt chunk with a PCM sub-format.
func NewEncoder(w io.WriteSeeker, format *audio.Format, bitDepth, audioFormat int) *Encoder {
	var numChans, sampleRate int
	if format != nil {
		numChans = format.NumChannels
		sampleRate = format.SampleRate
	}

	blockAlign := numChans * bytesPerSample(bitDepth)

	fmtChunk := &FmtChunk{
		FormatTag:      uint16(audioFormat),
		NumChannels:    uint16(numChans),
		SampleRate:     uint32(sampleRate),
		AvgBytesPerSec: uint32(sampleRate * blockAlign),
		BlockAlign:     uint16(blockAlign),
		BitsPerSample:  uint16(bitDepth),
	}

	if audioFormat == wavFormatExtensible {
		fmtChunk.Extensible = &FmtExtensible{
			ValidBitsPerSample: uint16(bitDepth),
			SubFormat:          makeSubFormatGUID(wavFormatPCM),
		}
	}

	return &Encoder{w: w, FmtChunk: fmtChunk}
}

// NewEncoderFromSummary creates an encoder writing the same fmt chunk as the
// summarized file.
func NewEncoderFromSummary(w io.WriteSeeker, s *ContainerSummary) *Encoder {
	if s == nil {
		return &Encoder{w: w}
	}

	return &Encoder{w: w, FmtChunk: s.Format.Clone()}
}

// FormatChunk returns a copy of the fmt chunk the encoder writes.
func (e *Encoder) FormatChunk() *FmtChunk {
	if e == nil {
		return nil
	}

	return e.FmtChunk.Clone()
}

// RawChunks returns a copy of the extra chunks written around the data chunk.
func (e *Encoder) RawChunks() []RawChunk {
	if e == nil {
		return nil
	}

	return cloneRawChunks(e.UnknownChunks)
}

// SetRawChunks sets the extra chunks to write. They are copied, and written
// before or after the data chunk according to their BeforeData flag.
func (e *Encoder) SetRawChunks(chunks []RawChunk) {
	if e != nil {
		e.UnknownChunks = cloneRawChunks(chunks)
	}
}

// AddLE serializes and adds the passed value using little endian.
func (e *Encoder) AddLE(src any) error {
	e.WrittenBytes += int64(binary.Size(src))

	err := binary.Write(e.w, binary.LittleEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write little endian: %w", err)
	}

	return nil
}

// AddBE serializes and adds the passed value using big endian.
func (e *Encoder) AddBE(src any) error {
	e.WrittenBytes += int64(binary.Size(src))

	err := binary.Write(e.w, binary.BigEndian, src)
	if err != nil {
		return fmt.Errorf("failed to write big endian: %w", err)
	}

	return nil
}

func (e *Encoder) writeHeader() error {
	if e == nil {
		return errNilEncoder
	}

	if e.wroteHeader {
		return errAlreadyWroteHdr
	}

	if e.w == nil {
		return errNilWriter
	}

	e.wroteHeader = true

	err := e.AddBE(riff.RiffID)
	if err != nil {
		return err
	}
	// file size uint32, to update later on.
	err = e.AddLE(unknownSize)
	if err != nil {
		return err
	}

	err = e.AddBE(riff.WavFormatID)
	if err != nil {
		return err
	}

	payload, err := e.FmtChunk.MarshalBinary()
	if err != nil {
		return fmt.Errorf("error encoding the fmt chunk - %w", err)
	}

	err = e.writeRawChunk(RawChunk{ID: riff.FmtID, Data: payload})
	if err != nil {
		return err
	}

	return e.writeUnknownChunks(true)
}

func (e *Encoder) startDataChunk() error {
	if !e.wroteHeader {
		err := e.writeHeader()
		if err != nil {
			return err
		}
	}

	err := e.AddBE(riff.DataFormatID)
	if err != nil {
		return fmt.Errorf("error encoding sound header %w", err)
	}

	e.dataChunkStarted = true

	// write a temporary chunksize
	e.dataChunkSizePos = e.WrittenBytes

	err = e.AddLE(unknownSize)
	if err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	return nil
}

// Write appends encoded sample bytes to the data chunk. It implements
// io.Writer. Don't forget to Close() the encoder or the file won't be valid.
func (e *Encoder) Write(p []byte) (int, error) {
	if e == nil {
		return 0, errNilEncoder
	}

	if e.closed {
		return 0, errEncoderClosed
	}

	if !e.dataChunkStarted {
		err := e.startDataChunk()
		if err != nil {
			return 0, err
		}
	}

	n, err := e.w.Write(p)
	e.WrittenBytes += int64(n)
	e.dataBytes += int64(n)

	if err != nil {
		return n, fmt.Errorf("failed to write sample data: %w", err)
	}

	return n, nil
}

// Frames returns the number of whole frames written so far.
func (e *Encoder) Frames() int64 {
	if e == nil || e.FmtChunk == nil || e.FmtChunk.BlockAlign == 0 {
		return 0
	}

	return e.dataBytes / int64(e.FmtChunk.BlockAlign)
}

func (e *Encoder) writeRawChunk(chunk RawChunk) error {
	if uint64(len(chunk.Data)) > math.MaxUint32 {
		return fmt.Errorf("raw chunk %q: %w", chunk.ID, errTooLarge)
	}

	size := uint32(len(chunk.Data))

	err := e.AddBE(chunk.ID)
	if err != nil {
		return fmt.Errorf("failed to write raw chunk id %q: %w", chunk.ID, err)
	}

	err = e.AddLE(size)
	if err != nil {
		return fmt.Errorf("failed to write raw chunk size %q: %w", chunk.ID, err)
	}

	if len(chunk.Data) > 0 {
		n, err := e.w.Write(chunk.Data)
		e.WrittenBytes += int64(n)

		if err != nil {
			return fmt.Errorf("failed to write raw chunk payload %q: %w", chunk.ID, err)
		}
	}

	if size%2 == 1 {
		return e.writePad(chunk.ID)
	}

	return nil
}

func (e *Encoder) writePad(id [4]byte) error {
	n, err := e.w.Write([]byte{0})
	e.WrittenBytes += int64(n)

	if err != nil {
		return fmt.Errorf("failed to write chunk padding %q: %w", id, err)
	}

	return nil
}

func (e *Encoder) writeUnknownChunks(beforeData bool) error {
	for _, chunk := range e.UnknownChunks {
		if chunk.BeforeData != beforeData {
			continue
		}

		err := e.writeRawChunk(chunk)
		if err != nil {
			return err
		}
	}

	return nil
}

// Close finishes the container and patches its size fields. The underlying
// writer is NOT closed.
func (e *Encoder) Close() error {
	if e == nil || e.w == nil || e.closed {
		return nil
	}

	e.closed = true

	if !e.dataChunkStarted {
		err := e.startDataChunk()
		if err != nil {
			return err
		}
	}

	if e.dataBytes > math.MaxUint32 {
		return fmt.Errorf("data chunk of %d bytes: %w", e.dataBytes, errTooLarge)
	}

	if e.dataBytes%2 == 1 {
		err := e.writePad(riff.DataFormatID)
		if err != nil {
			return err
		}
	}

	err := e.writeUnknownChunks(false)
	if err != nil {
		return fmt.Errorf("failed to write post-data unknown chunks: %w", err)
	}

	// inject metadata at the end to not trip implementation not supporting
	// metadata chunks
	if info := encodeInfoChunk(e.Metadata); info != nil {
		err := e.writeRawChunk(RawChunk{ID: CIDList, Data: info})
		if err != nil {
			return fmt.Errorf("failed to write metadata - %w", err)
		}
	}

	if e.WrittenBytes-8 > math.MaxUint32 {
		return fmt.Errorf("container of %d bytes: %w", e.WrittenBytes, errTooLarge)
	}

	err = PatchRIFFSize(e.w, uint32(e.WrittenBytes-8))
	if err != nil {
		return fmt.Errorf("%w when writing the total written bytes", err)
	}

	err = PatchUint32(e.w, e.dataChunkSizePos, uint32(e.dataBytes))
	if err != nil {
		return fmt.Errorf("%w when writing wav data chunk size header", err)
	}

	if f, ok := e.w.(*os.File); ok {
		return f.Sync()
	}

	return nil
}

func bytesPerSample(bitDepth int) int {
	if bitDepth <= 0 {
		return 0
	}

	return (bitDepth-1)/8 + 1
}
