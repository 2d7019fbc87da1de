// Package soundfont parses SoundFont 2 instrument banks (RIFF "sfbk"
// containers) into a queryable articulation model: samples, instruments
// and presets cross-referenced through generator and modulator zones.
package soundfont

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// chunk is one RIFF tagged-chunk header plus its raw payload. SoundFont
// files are a nested tree of these: a four-character id, a little-endian
// u32 size, then that many bytes of data (padded to an even boundary by
// the RIFF convention, which callers must account for when chaining reads).
type chunk struct {
	id   [4]byte
	size uint32
	data []byte
}

func (c *chunk) parse(r io.Reader) error {
	if _, err := io.ReadFull(r, c.id[:]); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &c.size); err != nil {
		return err
	}
	c.data = make([]byte, c.size)
	if _, err := io.ReadFull(r, c.data); err != nil {
		return fmt.Errorf("soundfont: truncated %q chunk: %w", c.id[:], err)
	}
	return nil
}

func (c *chunk) expect(r io.Reader, id [4]byte) error {
	if err := c.parse(r); err != nil {
		return err
	}
	if c.id != id {
		return fmt.Errorf("%w: expected chunk %q, got %q", ErrMalformed, id[:], c.id[:])
	}
	return nil
}

func (c *chunk) reader() *bytes.Reader {
	return bytes.NewReader(c.data)
}

// readTag reads exactly len(want) bytes from r and reports whether they
// equal want. It is used for the literal sub-ids nested inside LIST chunks
// ("sfbk", "INFO", "sdta", "pdta").
func readTag(r io.Reader, want string) (bool, error) {
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(r, buf); err != nil {
		return false, err
	}
	return bytes.Equal(buf, []byte(want)), nil
}
