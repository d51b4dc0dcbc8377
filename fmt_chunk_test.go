package wav

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-audio/riff"
)

func fmtRiffChunk(payload []byte) *riff.Chunk {
	return &riff.Chunk{ID: riff.FmtID, Size: len(payload), R: bytes.NewReader(payload)}
}

func TestDecodeFmtChunkLegalSizes(t *testing.T) {
	base := pcmFmtPayload(2, 44100, 16)

	extensible := &FmtChunk{
		FormatTag:      wavFormatExtensible,
		NumChannels:    2,
		SampleRate:     96000,
		AvgBytesPerSec: 96000 * 6,
		BlockAlign:     6,
		BitsPerSample:  24,
		Extensible: &FmtExtensible{
			ValidBitsPerSample: 20,
			ChannelMask:        0x3,
			SubFormat:          makeSubFormatGUID(wavFormatPCM),
		},
	}

	extPayload, err := extensible.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		payload []byte
		check   func(t *testing.T, f *FmtChunk)
	}{
		{
			name:    "16 bytes",
			payload: base,
			check: func(t *testing.T, f *FmtChunk) {
				if f.ExtraData != nil || f.Extensible != nil {
					t.Fatalf("unexpected extension: %+v", f)
				}
			},
		},
		{
			name:    "18 bytes with empty extension",
			payload: append(bytes.Clone(base), 0, 0),
			check: func(t *testing.T, f *FmtChunk) {
				if f.ExtraData == nil || len(f.ExtraData) != 0 {
					t.Fatalf("extra data=%v, want empty", f.ExtraData)
				}
			},
		},
		{
			name:    "40 bytes extensible",
			payload: extPayload,
			check: func(t *testing.T, f *FmtChunk) {
				if f.Extensible == nil {
					t.Fatal("extensible fields not decoded")
				}

				if f.Extensible.ValidBitsPerSample != 20 || f.Extensible.ChannelMask != 0x3 {
					t.Fatalf("unexpected extensible fields: %+v", f.Extensible)
				}

				if f.EffectiveFormatTag() != wavFormatPCM {
					t.Fatalf("effective tag=%d, want PCM", f.EffectiveFormatTag())
				}

				if f.FrameSize() != 6 {
					t.Fatalf("frame size=%d, want 6", f.FrameSize())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFmtChunk(fmtRiffChunk(tt.payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if f.PayloadSize() != uint32(len(tt.payload)) {
				t.Fatalf("payload size=%d, want %d", f.PayloadSize(), len(tt.payload))
			}

			out, err := f.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}

			if !bytes.Equal(out, tt.payload) {
				t.Fatalf("re-encoded payload differs:\n got %x\nwant %x", out, tt.payload)
			}

			tt.check(t, f)
		})
	}
}

func TestDecodeFmtChunkIllegalSizes(t *testing.T) {
	for _, size := range []int{0, 14, 17, 20, 39, 41, 50} {
		payload := make([]byte, size)

		_, err := DecodeFmtChunk(fmtRiffChunk(payload))

		var mf *MalformedFormatChunkError
		if !errors.As(err, &mf) || mf.Size != uint32(size) {
			t.Fatalf("size %d: unexpected error %v", size, err)
		}
	}

	if _, err := DecodeFmtChunk(nil); !errors.Is(err, errNilFmtChunk) {
		t.Fatalf("nil chunk: %v", err)
	}
}

func TestFmtChunkCloneIsDeep(t *testing.T) {
	f := &FmtChunk{ExtraData: []byte{1, 2}, Extensible: &FmtExtensible{ChannelMask: 4}}

	c := f.Clone()
	c.ExtraData[0] = 9
	c.Extensible.ChannelMask = 1

	if f.ExtraData[0] != 1 || f.Extensible.ChannelMask != 4 {
		t.Fatal("clone shares memory with the original")
	}

	if (*FmtChunk)(nil).Clone() != nil {
		t.Fatal("nil clone must be nil")
	}
}

func TestFormatName(t *testing.T) {
	tests := map[uint16]string{
		1:      "PCM",
		3:      "IEEE float",
		6:      "A-law",
		7:      "mu-law",
		0xFFFE: "extensible",
		0x55:   "format tag 85",
	}

	for tag, want := range tests {
		if got := FormatName(tag); got != want {
			t.Fatalf("FormatName(%d)=%q, want %q", tag, got, want)
		}
	}
}
