package wav

import (
	"bytes"
	"encoding/binary"
	"testing"
)

type testChunk struct {
	id   string
	data []byte
}

func pcmFmtPayload(channels uint16, sampleRate uint32, bitsPerSample uint16) []byte {
	blockAlign := channels * (bitsPerSample / 8)

	payload := make([]byte, 16)
	binary.LittleEndian.PutUint16(payload[0:2], wavFormatPCM)
	binary.LittleEndian.PutUint16(payload[2:4], channels)
	binary.LittleEndian.PutUint32(payload[4:8], sampleRate)
	binary.LittleEndian.PutUint32(payload[8:12], sampleRate*uint32(blockAlign))
	binary.LittleEndian.PutUint16(payload[12:14], blockAlign)
	binary.LittleEndian.PutUint16(payload[14:16], bitsPerSample)

	return payload
}

// makeWav frames chunks behind a RIFF/WAVE header whose size field matches
// the result.
func makeWav(t *testing.T, chunks ...testChunk) []byte {
	t.Helper()

	var b bytes.Buffer
	b.WriteString("RIFF")

	err := binary.Write(&b, binary.LittleEndian, uint32(0))
	if err != nil {
		t.Fatalf("write riff size placeholder: %v", err)
	}

	b.WriteString("WAVE")

	for _, c := range chunks {
		writeTestChunk(t, &b, c.id, c.data)
	}

	out := b.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))

	return out
}

// makeCanonicalWav is the 44 byte header layout followed by data.
func makeCanonicalWav(t *testing.T, data []byte) []byte {
	t.Helper()

	return makeWav(t,
		testChunk{"fmt ", pcmFmtPayload(2, 44100, 16)},
		testChunk{"data", data},
	)
}

func writeTestChunk(t *testing.T, b *bytes.Buffer, id string, payload []byte) {
	t.Helper()

	if len(id) != 4 {
		t.Fatalf("chunk id must be 4 bytes, got %q", id)
	}

	b.WriteString(id)

	err := binary.Write(b, binary.LittleEndian, uint32(len(payload)))
	if err != nil {
		t.Fatalf("write chunk size for %q: %v", id, err)
	}

	if _, err := b.Write(payload); err != nil {
		t.Fatalf("write chunk payload for %q: %v", id, err)
	}

	if len(payload)%2 == 1 {
		err := b.WriteByte(0)
		if err != nil {
			t.Fatalf("write chunk pad for %q: %v", id, err)
		}
	}
}

func chunkID(s string) [4]byte {
	var id [4]byte
	copy(id[:], s)

	return id
}
