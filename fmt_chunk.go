package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/go-audio/riff"
)

const (
	wavFormatPCM        = 1
	wavFormatIEEEFloat  = 3
	wavFormatALaw       = 6
	wavFormatMuLaw      = 7
	wavFormatExtensible = 0xFFFE

	fmtChunkBaseSize = 16
	extensibleExtLen = 22
)

var errNilFmtChunk = errors.New("nil fmt chunk")

// legalFmtSizes are the payload sizes accepted for a fmt chunk: plain PCM,
// the WAVEFORMATEX form with a (normally empty) extension, and
// WAVE_FORMAT_EXTENSIBLE.
var legalFmtSizes = []uint32{16, 18, 40}

const (
	ksSubFormatGUIDTail0  = 0x00
	ksSubFormatGUIDTail1  = 0x00
	ksSubFormatGUIDTail2  = 0x10
	ksSubFormatGUIDTail3  = 0x00
	ksSubFormatGUIDTail4  = 0x80
	ksSubFormatGUIDTail5  = 0x00
	ksSubFormatGUIDTail6  = 0x00
	ksSubFormatGUIDTail7  = 0xAA
	ksSubFormatGUIDTail8  = 0x00
	ksSubFormatGUIDTail9  = 0x38
	ksSubFormatGUIDTail10 = 0x9B
	ksSubFormatGUIDTail11 = 0x71
)

// FmtChunk stores the parsed WAV fmt chunk, including extensible metadata.
type FmtChunk struct {
	FormatTag      uint16
	NumChannels    uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	// ExtraData holds the extension bytes that follow the extension length
	// field of 18 and 40 byte chunks.
	ExtraData  []byte
	Extensible *FmtExtensible
}

// FmtExtensible stores WAVE_FORMAT_EXTENSIBLE extra fields.
type FmtExtensible struct {
	ValidBitsPerSample uint16
	ChannelMask        uint32
	SubFormat          [16]byte
}

func (f *FmtChunk) Clone() *FmtChunk {
	if f == nil {
		return nil
	}

	out := *f

	out.ExtraData = slices.Clone(f.ExtraData)
	if f.Extensible != nil {
		ext := *f.Extensible
		out.Extensible = &ext
	}

	return &out
}

// EffectiveFormatTag returns the sub-format of extensible chunks and the
// format tag otherwise.
func (f *FmtChunk) EffectiveFormatTag() uint16 {
	if f == nil {
		return 0
	}

	if f.FormatTag == wavFormatExtensible && f.Extensible != nil {
		return binary.LittleEndian.Uint16(f.Extensible.SubFormat[:2])
	}

	return f.FormatTag
}

// FrameSize returns the number of bytes of one sample frame, as used for the
// duration: channels * whole bytes per sample.
func (f *FmtChunk) FrameSize() uint32 {
	if f == nil {
		return 0
	}

	return uint32(f.NumChannels) * uint32(f.BitsPerSample/8)
}

// PayloadSize returns the size of the fmt chunk payload f serializes to.
func (f *FmtChunk) PayloadSize() uint32 {
	switch {
	case f == nil:
		return 0
	case f.Extensible != nil:
		return 40
	case f.ExtraData != nil:
		return 18 + uint32(len(f.ExtraData))
	default:
		return fmtChunkBaseSize
	}
}

// MarshalBinary encodes the fmt chunk payload (without the chunk header).
func (f *FmtChunk) MarshalBinary() ([]byte, error) {
	if f == nil {
		return nil, errNilFmtChunk
	}

	out := make([]byte, fmtChunkBaseSize, f.PayloadSize())
	binary.LittleEndian.PutUint16(out[0:2], f.FormatTag)
	binary.LittleEndian.PutUint16(out[2:4], f.NumChannels)
	binary.LittleEndian.PutUint32(out[4:8], f.SampleRate)
	binary.LittleEndian.PutUint32(out[8:12], f.AvgBytesPerSec)
	binary.LittleEndian.PutUint16(out[12:14], f.BlockAlign)
	binary.LittleEndian.PutUint16(out[14:16], f.BitsPerSample)

	switch {
	case f.Extensible != nil:
		out = binary.LittleEndian.AppendUint16(out, extensibleExtLen)
		out = binary.LittleEndian.AppendUint16(out, f.Extensible.ValidBitsPerSample)
		out = binary.LittleEndian.AppendUint32(out, f.Extensible.ChannelMask)
		out = append(out, f.Extensible.SubFormat[:]...)
	case f.ExtraData != nil:
		out = binary.LittleEndian.AppendUint16(out, uint16(len(f.ExtraData)))
		out = append(out, f.ExtraData...)
	}

	return out, nil
}

// DecodeFmtChunk parses the payload of a fmt chunk. The chunk size must be one
// of the legal fmt sizes; otherwise a *MalformedFormatChunkError is returned.
func DecodeFmtChunk(chunk *riff.Chunk) (*FmtChunk, error) {
	if chunk == nil {
		return nil, errNilFmtChunk
	}

	size := uint32(chunk.Size)
	if !slices.Contains(legalFmtSizes, size) {
		return nil, &MalformedFormatChunkError{Size: size}
	}

	fmtChunk := &FmtChunk{}

	err := chunk.ReadLE(&fmtChunk.FormatTag)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav format: %w", err)
	}

	err = chunk.ReadLE(&fmtChunk.NumChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels: %w", err)
	}

	err = chunk.ReadLE(&fmtChunk.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to read sample rate: %w", err)
	}

	err = chunk.ReadLE(&fmtChunk.AvgBytesPerSec)
	if err != nil {
		return nil, fmt.Errorf("failed to read avg bytes/sec: %w", err)
	}

	err = chunk.ReadLE(&fmtChunk.BlockAlign)
	if err != nil {
		return nil, fmt.Errorf("failed to read block align: %w", err)
	}

	err = chunk.ReadLE(&fmtChunk.BitsPerSample)
	if err != nil {
		return nil, fmt.Errorf("failed to read bit depth: %w", err)
	}

	if size == fmtChunkBaseSize {
		return fmtChunk, nil
	}

	var extraSize uint16

	err = chunk.ReadLE(&extraSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read fmt extension size: %w", err)
	}

	if uint32(extraSize) > size-18 {
		return nil, &MalformedFormatChunkError{
			Size:   size,
			Reason: fmt.Sprintf("extension length %d exceeds the %d bytes left in the chunk", extraSize, size-18),
		}
	}

	fmtChunk.ExtraData = make([]byte, extraSize)
	if extraSize > 0 {
		_, err := io.ReadFull(chunk.R, fmtChunk.ExtraData)
		if err != nil {
			return nil, fmt.Errorf("failed to read fmt extension data: %w", err)
		}
	}

	if fmtChunk.FormatTag != wavFormatExtensible || extraSize < extensibleExtLen {
		return fmtChunk, nil
	}

	ext := &FmtExtensible{}
	ext.ValidBitsPerSample = binary.LittleEndian.Uint16(fmtChunk.ExtraData[0:2])
	ext.ChannelMask = binary.LittleEndian.Uint32(fmtChunk.ExtraData[2:6])
	copy(ext.SubFormat[:], fmtChunk.ExtraData[6:22])

	fmtChunk.Extensible = ext

	return fmtChunk, nil
}

// FormatName returns a short name for a WAVE format tag.
func FormatName(tag uint16) string {
	switch tag {
	case wavFormatPCM:
		return "PCM"
	case wavFormatIEEEFloat:
		return "IEEE float"
	case wavFormatALaw:
		return "A-law"
	case wavFormatMuLaw:
		return "mu-law"
	case wavFormatExtensible:
		return "extensible"
	default:
		return fmt.Sprintf("format tag %d", tag)
	}
}

func makeSubFormatGUID(formatTag uint16) [16]byte {
	var guid [16]byte
	binary.LittleEndian.PutUint32(guid[:4], uint32(formatTag))
	guid[4] = ksSubFormatGUIDTail0
	guid[5] = ksSubFormatGUIDTail1
	guid[6] = ksSubFormatGUIDTail2
	guid[7] = ksSubFormatGUIDTail3
	guid[8] = ksSubFormatGUIDTail4
	guid[9] = ksSubFormatGUIDTail5
	guid[10] = ksSubFormatGUIDTail6
	guid[11] = ksSubFormatGUIDTail7
	guid[12] = ksSubFormatGUIDTail8
	guid[13] = ksSubFormatGUIDTail9
	guid[14] = ksSubFormatGUIDTail10
	guid[15] = ksSubFormatGUIDTail11

	return guid
}
