package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/riff"
)

var (
	// CIDList is the chunk ID for a LIST chunk.
	CIDList = [4]byte{'L', 'I', 'S', 'T'}
	// CIDInfo is the list type of an INFO LIST chunk.
	CIDInfo = [4]byte{'I', 'N', 'F', 'O'}
	// CIDFact is the chunk ID for the fact chunk.
	CIDFact = [4]byte{'f', 'a', 'c', 't'}
	// CIDJunk is the chunk ID of padding chunks.
	CIDJunk = [4]byte{'J', 'U', 'N', 'K'}

	// See http://bwfmetaedit.sourceforge.net/listinfo.html
	markerIART    = [4]byte{'I', 'A', 'R', 'T'}
	markerISFT    = [4]byte{'I', 'S', 'F', 'T'}
	markerICRD    = [4]byte{'I', 'C', 'R', 'D'}
	markerICOP    = [4]byte{'I', 'C', 'O', 'P'}
	markerIARL    = [4]byte{'I', 'A', 'R', 'L'}
	markerINAM    = [4]byte{'I', 'N', 'A', 'M'}
	markerIENG    = [4]byte{'I', 'E', 'N', 'G'}
	markerIGNR    = [4]byte{'I', 'G', 'N', 'R'}
	markerIPRD    = [4]byte{'I', 'P', 'R', 'D'}
	markerISRC    = [4]byte{'I', 'S', 'R', 'C'}
	markerISBJ    = [4]byte{'I', 'S', 'B', 'J'}
	markerICMT    = [4]byte{'I', 'C', 'M', 'T'}
	markerITRK    = [4]byte{'I', 'T', 'R', 'K'}
	markerITRKBug = [4]byte{'i', 't', 'r', 'k'}
	markerITCH    = [4]byte{'I', 'T', 'C', 'H'}
	markerIKEY    = [4]byte{'I', 'K', 'E', 'Y'}
	markerIMED    = [4]byte{'I', 'M', 'E', 'D'}

	errListNilChunk    = errors.New("can't decode a nil chunk")
	errListNilMetadata = errors.New("nil metadata")
	errListNotInfo     = errors.New("LIST chunk is not an INFO list")
	errListEntryBounds = errors.New("INFO entry exceeds LIST chunk")
)

// Metadata holds what the built-in chunk handlers decode from non-core chunks.
type Metadata struct {
	// SampleCount is the per-channel sample count of the fact chunk.
	SampleCount uint32
	HasFact     bool

	Artist       string
	Comments     string
	Copyright    string
	CreationDate string
	Engineer     string
	Technician   string
	Genre        string
	Keywords     string
	Medium       string
	Title        string
	Product      string
	Subject      string
	Software     string
	Source       string
	Location     string
	TrackNbr     string
}

// IsZero reports whether nothing was decoded.
func (m *Metadata) IsZero() bool {
	return m == nil || *m == Metadata{}
}

func (m *Metadata) infoFields() []struct {
	marker [4]byte
	value  *string
} {
	return []struct {
		marker [4]byte
		value  *string
	}{
		{markerIART, &m.Artist},
		{markerICMT, &m.Comments},
		{markerICOP, &m.Copyright},
		{markerICRD, &m.CreationDate},
		{markerIENG, &m.Engineer},
		{markerITCH, &m.Technician},
		{markerIGNR, &m.Genre},
		{markerIKEY, &m.Keywords},
		{markerIMED, &m.Medium},
		{markerINAM, &m.Title},
		{markerIPRD, &m.Product},
		{markerISBJ, &m.Subject},
		{markerISFT, &m.Software},
		{markerISRC, &m.Source},
		{markerIARL, &m.Location},
		{markerITRK, &m.TrackNbr},
	}
}

// DecodeListChunk decodes a LIST/INFO chunk into md.
func DecodeListChunk(md *Metadata, ch *riff.Chunk) error {
	if ch == nil {
		return errListNilChunk
	}

	if md == nil {
		return errListNilMetadata
	}

	buf := make([]byte, ch.Size)

	n, err := io.ReadFull(ch.R, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to read the LIST chunk - %w", err)
	}

	buf = buf[:n]

	if len(buf) < 4 || !bytes.Equal(buf[:4], CIDInfo[:]) {
		return errListNotInfo
	}

	fields := md.infoFields()

	// INFO entries are framed like chunks, including the pad byte.
	for pos := 4; pos+chunkHeaderSize <= len(buf); {
		var id [4]byte
		copy(id[:], buf[pos:pos+4])
		size := int(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))
		pos += chunkHeaderSize

		if size > len(buf)-pos {
			return fmt.Errorf("%w: %q declares %d bytes", errListEntryBounds, id[:], size)
		}

		value := cString(buf[pos : pos+size])

		if id == markerITRKBug {
			id = markerITRK
		}

		for _, f := range fields {
			if f.marker == id {
				*f.value = value
				break
			}
		}

		pos += size
		if size%2 == 1 {
			pos++
		}
	}

	return nil
}

// encodeInfoChunk returns the payload of a LIST/INFO chunk holding the set
// text fields of md, or nil when there are none.
func encodeInfoChunk(md *Metadata) []byte {
	if md == nil {
		return nil
	}

	buf := bytes.NewBuffer(nil)

	for _, field := range md.infoFields() {
		val := *field.value
		if val == "" {
			continue
		}

		size := uint32(len(val) + 1)

		buf.Write(field.marker[:])
		binary.Write(buf, binary.LittleEndian, size)
		buf.WriteString(val)
		buf.WriteByte(0)

		if size%2 == 1 {
			buf.WriteByte(0)
		}
	}

	if buf.Len() == 0 {
		return nil
	}

	return append(CIDInfo[:], buf.Bytes()...)
}

// cString returns b up to its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}

	return string(b)
}
