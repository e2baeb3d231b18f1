package registry

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
)

// idSize is the width of the id field in bytes.
const idSize = 4

// End describes why a decoder stopped producing tokens.
type End int

const (
	// EndNone means the stream has not ended yet.
	EndNone End = iota

	// EndClean means the stream ended exactly on a record boundary.
	EndClean

	// EndTruncated means the final record was cut short: a partial id,
	// a missing length byte, or fewer text bytes than declared.
	EndTruncated

	// EndError means the underlying reader failed with something other
	// than end of file. The error is available from Decoder.Err.
	EndError
)

// String returns the name of the end kind.
func (e End) String() string {
	switch e {
	case EndNone:
		return "none"
	case EndClean:
		return "clean"
	case EndTruncated:
		return "truncated"
	case EndError:
		return "error"
	default:
		return "unknown"
	}
}

// Decoder reads tokens from a registry stream in file order.
// It makes exactly one forward pass and cannot be restarted.
type Decoder struct {
	r     *bufio.Reader
	order binary.ByteOrder

	end    End
	err    error
	count  int
	offset int64
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithByteOrder sets the byte order of the id field.
// The default is little-endian.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(d *Decoder) {
		if order != nil {
			d.order = order
		}
	}
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		r:     bufio.NewReader(r),
		order: binary.LittleEndian,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next decodes the next record. It returns the token and EndNone, or the
// zero Token and the reason the stream ended. Once the stream has ended,
// every later call returns the same End.
func (d *Decoder) Next() (Token, End) {
	if d.end != EndNone {
		return Token{}, d.end
	}

	var id [idSize]byte
	if _, err := io.ReadFull(d.r, id[:]); err != nil {
		return d.stop(err)
	}

	n, err := d.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return d.stop(err)
	}

	raw := make([]byte, n)
	if _, err := io.ReadFull(d.r, raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return d.stop(err)
	}

	d.count++
	d.offset += int64(idSize + 1 + int(n))

	return Token{
		ID:   d.order.Uint32(id[:]),
		Text: NewText(raw),
	}, EndNone
}

// stop records the end of the stream for a read error.
// io.EOF at a record boundary is a clean end; io.ErrUnexpectedEOF anywhere
// is a truncated record.
func (d *Decoder) stop(err error) (Token, End) {
	switch {
	case errors.Is(err, io.EOF):
		d.end = EndClean
	case errors.Is(err, io.ErrUnexpectedEOF):
		d.end = EndTruncated
	default:
		d.end = EndError
		d.err = err
	}
	return Token{}, d.end
}

// All returns an iterator over the remaining tokens. Iteration stops at the
// first end of any kind; check End afterwards to tell them apart.
func (d *Decoder) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			tok, end := d.Next()
			if end != EndNone {
				return
			}
			if !yield(tok) {
				return
			}
		}
	}
}

// End reports how the stream ended, or EndNone while tokens remain.
func (d *Decoder) End() End {
	return d.end
}

// Err returns the read error behind EndError, or nil.
func (d *Decoder) Err() error {
	return d.err
}

// Count returns the number of complete records decoded so far.
func (d *Decoder) Count() int {
	return d.count
}

// Offset returns the byte offset just past the last complete record.
// After EndTruncated it is where the partial record starts.
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Open opens a registry file for reading.
// It returns an error wrapping ErrRegistryNotFound if path does not exist.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided registry path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, path)
		}
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	return f, nil
}
