package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/adalundhe/dirsentry/core/fingerprint"
)

// =============================================================================
// JSON Document Codec
// =============================================================================

// File names are byte strings and need not be valid UTF-8. Such bytes are
// written as the lone low surrogates \udc80-\udcff, one per byte, and mapped
// back to the original byte on read. Valid text is written exactly as
// encoding/json would write it.

// encodeDocument renders snap as an indented JSON object with sorted keys.
func encodeDocument(snap Snapshot) ([]byte, error) {
	if len(snap) == 0 {
		return []byte("{}"), nil
	}

	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, path := range snap.Paths() {
		key, err := quotePath(path)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(string(snap[path]))
		if err != nil {
			return nil, err
		}
		buf.WriteString("    ")
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(snap)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// quotePath returns path as a JSON string literal, escaping invalid UTF-8
// bytes as lone surrogates.
func quotePath(path string) (string, error) {
	var b strings.Builder
	b.WriteByte('"')

	start := 0
	flush := func(end int) error {
		if start == end {
			return nil
		}
		quoted, err := json.Marshal(path[start:end])
		if err != nil {
			return err
		}
		b.Write(quoted[1 : len(quoted)-1])
		return nil
	}

	for i := 0; i < len(path); {
		r, size := utf8.DecodeRuneInString(path[i:])
		if r == utf8.RuneError && size == 1 {
			if err := flush(i); err != nil {
				return "", err
			}
			fmt.Fprintf(&b, `\udc%02x`, path[i])
			i++
			start = i
			continue
		}
		i += size
	}
	if err := flush(len(path)); err != nil {
		return "", err
	}

	b.WriteByte('"')
	return b.String(), nil
}

// decodeDocument parses a flat JSON object of path to digest. A null
// document decodes to an empty snapshot.
func decodeDocument(data []byte) (Snapshot, error) {
	// Let encoding/json reject anything that is not a JSON object first.
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, err
	}
	if shape == nil {
		return Snapshot{}, nil
	}

	d := &documentReader{data: data}
	snap := Snapshot{}

	d.skipSpace()
	if err := d.expect('{'); err != nil {
		return nil, err
	}
	d.skipSpace()
	if d.peek() == '}' {
		return snap, nil
	}

	for {
		d.skipSpace()
		path, err := d.readString()
		if err != nil {
			return nil, err
		}
		d.skipSpace()
		if err := d.expect(':'); err != nil {
			return nil, err
		}
		d.skipSpace()
		if d.peek() != '"' {
			return nil, fmt.Errorf("digest for %q is not a string", path)
		}
		digest, err := d.readString()
		if err != nil {
			return nil, err
		}
		snap[path] = fingerprint.Digest(digest)

		d.skipSpace()
		switch d.peek() {
		case ',':
			d.pos++
		case '}':
			return snap, nil
		default:
			return nil, d.errorf("expected ',' or '}'")
		}
	}
}

// documentReader walks a document that encoding/json has already accepted.
type documentReader struct {
	data []byte
	pos  int
}

func (d *documentReader) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", d.pos, fmt.Sprintf(format, args...))
}

func (d *documentReader) peek() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	return d.data[d.pos]
}

func (d *documentReader) skipSpace() {
	for d.pos < len(d.data) {
		switch d.data[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *documentReader) expect(c byte) error {
	if d.peek() != c {
		return d.errorf("expected %q", c)
	}
	d.pos++
	return nil
}

// readString decodes the string literal at the current position.
func (d *documentReader) readString() (string, error) {
	if err := d.expect('"'); err != nil {
		return "", err
	}

	var b strings.Builder
	for {
		if d.pos >= len(d.data) {
			return "", d.errorf("unterminated string")
		}
		c := d.data[d.pos]
		switch c {
		case '"':
			d.pos++
			return b.String(), nil
		case '\\':
			if err := d.readEscape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			d.pos++
		}
	}
}

// readEscape decodes one backslash escape into b.
func (d *documentReader) readEscape(b *strings.Builder) error {
	if d.pos+1 >= len(d.data) {
		return d.errorf("truncated escape")
	}
	c := d.data[d.pos+1]
	d.pos += 2

	switch c {
	case '"', '\\', '/':
		b.WriteByte(c)
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'u':
		r, err := d.readHex()
		if err != nil {
			return err
		}
		switch {
		case utf16.IsSurrogate(r) && r < 0xdc00:
			// High surrogate: pair it with a following low surrogate.
			if d.pos+1 < len(d.data) && d.data[d.pos] == '\\' && d.data[d.pos+1] == 'u' {
				save := d.pos
				d.pos += 2
				low, err := d.readHex()
				if err == nil {
					if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
						b.WriteRune(pair)
						return nil
					}
				}
				d.pos = save
			}
			b.WriteRune(utf8.RuneError)
		case r >= 0xdc80 && r <= 0xdcff:
			b.WriteByte(byte(r - 0xdc00))
		case utf16.IsSurrogate(r):
			b.WriteRune(utf8.RuneError)
		default:
			b.WriteRune(r)
		}
	default:
		return d.errorf("invalid escape %q", c)
	}
	return nil
}

func (d *documentReader) readHex() (rune, error) {
	if d.pos+4 > len(d.data) {
		return 0, d.errorf("truncated \\u escape")
	}
	v, err := strconv.ParseUint(string(d.data[d.pos:d.pos+4]), 16, 32)
	if err != nil {
		return 0, d.errorf("invalid \\u escape")
	}
	d.pos += 4
	return rune(v), nil
}
