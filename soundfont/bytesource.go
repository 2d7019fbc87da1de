package soundfont

import (
	"bytes"
	"io"
	"os"
)

// ByteSource is a uniform seekable byte reader over either a file on disk
// or an in-memory buffer. It is the one abstraction the loader needs from
// its caller: everything else (RIFF chunking, FLAC pre-decode) works in
// terms of it, so hosts can hand the loader a file path or bytes already
// held in memory without the loader caring which.
type ByteSource struct {
	r    io.ReadSeeker
	name string
}

// NewByteSourceFile opens path and returns a ByteSource over it. The
// caller is responsible for calling Close when done.
func NewByteSourceFile(path string) (*ByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &ByteSource{r: f, name: path}, nil
}

// NewByteSourceBytes wraps an in-memory buffer as a ByteSource.
func NewByteSourceBytes(b []byte) *ByteSource {
	return &ByteSource{r: bytes.NewReader(b), name: "<bytes>"}
}

func (b *ByteSource) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *ByteSource) Seek(offset int64, whence int) (int64, error) {
	return b.r.Seek(offset, whence)
}

// Tell returns the current offset without moving the cursor.
func (b *ByteSource) Tell() (int64, error) {
	return b.r.Seek(0, io.SeekCurrent)
}

// EOF reports whether the source is positioned at end-of-stream.
func (b *ByteSource) EOF() bool {
	cur, err := b.Tell()
	if err != nil {
		return true
	}
	end, err := b.r.Seek(0, io.SeekEnd)
	if err != nil {
		return true
	}
	b.r.Seek(cur, io.SeekStart)
	return cur >= end
}

// Close releases the underlying file handle, if any.
func (b *ByteSource) Close() error {
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadAll drains the remainder of the source into memory. Used by the FLAC
// pre-decode hook, which needs the whole compressed stream before it can
// hand back decoded PCM bytes.
func (b *ByteSource) ReadAll() ([]byte, error) {
	return io.ReadAll(b.r)
}
