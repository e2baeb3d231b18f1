// Package registry decodes NSET token registry files.
//
// A registry is a flat stream of length-prefixed records with no header,
// footer or version field:
//
//	+--------+-----+----------------+
//	| id (4) | len | text (len)     |
//	+--------+-----+----------------+
//
// The id is a fixed-width 32-bit value written in the producer's native byte
// order (little-endian for the reference tokenizer), len is a single unsigned
// byte, and text is raw bytes that are UTF-8 on a best-effort basis.
//
// # Usage
//
//	f, err := registry.Open("nset_vocab.bin")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	dec := registry.NewDecoder(f)
//	for tok := range dec.All() {
//	    fmt.Println(tok.ID, tok.Text)
//	}
//	if dec.End() == registry.EndTruncated {
//	    // the last record was cut short
//	}
//
// The decoder never fails on malformed content. A record cut short at any
// point ends the stream with EndTruncated, and text that is not valid UTF-8
// is kept as raw bytes rather than rejected.
package registry
