package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
)

func encodeToFile(t *testing.T, setup func(e *Encoder), samples []byte, format *audio.Format, bitDepth, audioFormat int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "out.wav")

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc := NewEncoder(out, format, bitDepth, audioFormat)
	if setup != nil {
		setup(enc)
	}

	if len(samples) > 0 {
		if _, err := enc.Write(samples); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := out.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	return data
}

func TestEncoderWritesCanonicalHeader(t *testing.T) {
	samples := make([]byte, 400)
	for i := range samples {
		samples[i] = byte(i)
	}

	data := encodeToFile(t, nil, samples, &audio.Format{NumChannels: 2, SampleRate: 44100}, 16, wavFormatPCM)

	if len(data) != 44+len(samples) {
		t.Fatalf("file is %d bytes, want %d", len(data), 44+len(samples))
	}

	want := makeCanonicalWav(t, samples)
	if !bytes.Equal(data, want) {
		t.Fatalf("encoded file differs from the canonical layout:\n got %x\nwant %x", data[:44], want[:44])
	}

	s, err := SummarizeBytes(data, WithStrict())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if s.Data.Size != 400 || s.Format.BlockAlign != 4 || s.Format.AvgBytesPerSec != 176400 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestEncoderWithoutSamples(t *testing.T) {
	data := encodeToFile(t, nil, nil, &audio.Format{NumChannels: 1, SampleRate: 8000}, 8, wavFormatPCM)

	s, err := SummarizeBytes(data, WithStrict())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if s.Data.Size != 0 || s.DurationSeconds != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestEncoderPadsOddData(t *testing.T) {
	data := encodeToFile(t, func(e *Encoder) {
		e.Metadata = &Metadata{Title: "odd"}
	}, []byte{1, 2, 3}, &audio.Format{NumChannels: 1, SampleRate: 8000}, 8, wavFormatPCM)

	s, err := SummarizeBytes(data, WithStrict())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if s.Data.Size != 3 {
		t.Fatalf("data size=%d, want 3", s.Data.Size)
	}

	if data[s.Data.Offset+3] != 0 {
		t.Fatal("pad byte not written")
	}

	if s.Metadata == nil || s.Metadata.Title != "odd" {
		t.Fatalf("metadata=%+v", s.Metadata)
	}
}

func TestEncoderExtensible(t *testing.T) {
	data := encodeToFile(t, nil, make([]byte, 12), &audio.Format{NumChannels: 2, SampleRate: 48000}, 24, wavFormatExtensible)

	s, err := SummarizeBytes(data)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if s.Format.PayloadSize() != 40 || s.Format.Extensible == nil {
		t.Fatalf("expected a 40 byte extensible fmt chunk: %+v", s.Format)
	}

	if s.Format.EffectiveFormatTag() != wavFormatPCM || s.Format.Extensible.ValidBitsPerSample != 24 {
		t.Fatalf("unexpected extensible fields: %+v", s.Format.Extensible)
	}

	if s.Frames() != 2 {
		t.Fatalf("frames=%d, want 2", s.Frames())
	}
}

func TestEncoderRawChunkRoundTripPreservesPayloadAndOrder(t *testing.T) {
	input := makeWavWithUnknownChunks(t)

	chunks, err := ReadRawChunks(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		t.Fatalf("read raw chunks: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 unknown chunks, got %d", len(chunks))
	}

	if chunks[0].ID != CIDJunk || !chunks[0].BeforeData {
		t.Fatalf("first unknown chunk mismatch: %q before=%t", chunks[0].ID, chunks[0].BeforeData)
	}

	if chunks[1].ID != chunkID("xtra") || chunks[1].BeforeData {
		t.Fatalf("second unknown chunk mismatch: %q before=%t", chunks[1].ID, chunks[1].BeforeData)
	}

	src, err := SummarizeBytes(input)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "unknown_roundtrip.wav")

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	enc := NewEncoderFromSummary(out, src)
	enc.SetRawChunks(chunks)

	payload := io.NewSectionReader(bytes.NewReader(input), int64(src.Data.Offset), int64(src.Data.Size))
	if _, err := io.Copy(enc, payload); err != nil {
		t.Fatalf("copy samples: %v", err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	output, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(output, input) {
		t.Fatalf("round trip changed the file:\n got %x\nwant %x", output, input)
	}
}

func TestEncoderStateErrors(t *testing.T) {
	var nilEnc *Encoder
	if _, err := nilEnc.Write([]byte{1}); !errors.Is(err, errNilEncoder) {
		t.Fatalf("nil encoder write: %v", err)
	}

	if err := nilEnc.Close(); err != nil {
		t.Fatalf("nil encoder close: %v", err)
	}

	enc := NewEncoder(nil, &audio.Format{NumChannels: 1, SampleRate: 8000}, 16, wavFormatPCM)
	if _, err := enc.Write([]byte{1, 2}); !errors.Is(err, errNilWriter) {
		t.Fatalf("nil writer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "closed.wav")

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	enc = NewEncoder(out, &audio.Format{NumChannels: 1, SampleRate: 8000}, 16, wavFormatPCM)
	if _, err := enc.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}

	if enc.Frames() != 2 {
		t.Fatalf("frames=%d, want 2", enc.Frames())
	}

	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := enc.Write([]byte{1, 2}); !errors.Is(err, errEncoderClosed) {
		t.Fatalf("write after close: %v", err)
	}

	if err := enc.writeHeader(); !errors.Is(err, errAlreadyWroteHdr) {
		t.Fatalf("second header: %v", err)
	}
}

func TestEncoderAccessorsCopy(t *testing.T) {
	enc := NewEncoder(nil, &audio.Format{NumChannels: 1, SampleRate: 8000}, 16, wavFormatPCM)

	chunks := []RawChunk{{ID: CIDJunk, Data: []byte{1, 2}, BeforeData: true}}
	enc.SetRawChunks(chunks)
	chunks[0].Data[0] = 9

	got := enc.RawChunks()
	if got[0].Data[0] != 1 {
		t.Fatal("SetRawChunks kept a reference to the caller's data")
	}

	got[0].Data[1] = 9
	if enc.UnknownChunks[0].Data[1] != 2 {
		t.Fatal("RawChunks returned internal data")
	}

	f := enc.FormatChunk()
	f.SampleRate = 1
	if enc.FmtChunk.SampleRate != 8000 {
		t.Fatal("FormatChunk returned internal data")
	}
}

func TestEncoderAddLE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.bin")

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	enc := NewEncoder(out, nil, 16, wavFormatPCM)

	if err := enc.AddLE(uint32(0x01020304)); err != nil {
		t.Fatal(err)
	}

	if err := enc.AddBE(uint16(0x0506)); err != nil {
		t.Fatal(err)
	}

	if enc.WrittenBytes != 6 {
		t.Fatalf("written=%d, want 6", enc.WrittenBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if binary.LittleEndian.Uint32(data[:4]) != 0x01020304 || !bytes.Equal(data[4:], []byte{5, 6}) {
		t.Fatalf("unexpected bytes: %x", data)
	}
}
