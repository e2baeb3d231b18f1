package registry

import (
	"encoding/hex"
	"unicode/utf8"
)

// BinaryPrefix starts the placeholder used to display text that is not valid UTF-8.
// The full placeholder is BinaryPrefix + lowercase hex of the raw bytes + ">".
const BinaryPrefix = "<BINARY_DATA_"

// Token is one decoded registry record.
type Token struct {
	// ID is the identifier as stored. The decoder does not check it for
	// uniqueness or ordering.
	ID uint32

	// Text is the token text.
	Text Text
}

// Text is the text of a token, tagged by whether it decoded as UTF-8.
//
// Raw always holds exactly the bytes declared by the record's length byte.
// Binary reports that Raw is not valid UTF-8; such text is only turned into
// its hex placeholder by String.
type Text struct {
	Raw    []byte
	Binary bool
}

// NewText tags raw record bytes. The slice is retained, not copied.
func NewText(raw []byte) Text {
	return Text{Raw: raw, Binary: !utf8.Valid(raw)}
}

// ValidText returns the Text for a UTF-8 string.
func ValidText(s string) Text {
	return NewText([]byte(s))
}

// String materializes the text: valid UTF-8 as-is, anything else as the
// binary placeholder.
func (t Text) String() string {
	if !t.Binary {
		return string(t.Raw)
	}
	return BinaryPrefix + hex.EncodeToString(t.Raw) + ">"
}

// Len returns the length of the materialized text in characters.
// A multi-byte UTF-8 sequence counts as one character.
func (t Text) Len() int {
	if !t.Binary {
		return utf8.RuneCount(t.Raw)
	}
	return len(BinaryPrefix) + hex.EncodedLen(len(t.Raw)) + 1
}

// ByteLen returns the stored length of the text in bytes.
func (t Text) ByteLen() int {
	return len(t.Raw)
}
