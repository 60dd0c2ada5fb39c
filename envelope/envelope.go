// Package envelope packs clipboard payloads into the byte stream posted
// to a clipboard endpoint.
//
// Wire format, one block per entry, blocks concatenated:
//
//	<mime type>\n
//	<payload length, lowercase hex>\n
//	<payload bytes>\n
package envelope

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
)

// Reserved native clipboard types.
const (
	// TypeFiles is the native type under which files are exposed. File
	// payloads are read asynchronously and never inlined.
	TypeFiles = "Files"
	// TypeLegacyText is the legacy alias normalized to text/plain.
	TypeLegacyText = "text"

	TypeHTML  = "text/html"
	TypePlain = "text/plain"
)

var skipped = mapset.NewThreadUnsafeSet(TypeFiles)

// Entry is one typed payload.
type Entry struct {
	MimeType string
	Data     []byte
}

// Envelope is an ordered list of entries.
type Envelope struct {
	Entries []Entry
}

// Source is a native clipboard snapshot: the advertised types and the
// data stored under each.
type Source interface {
	Types() []string
	Data(mimeType string) string
}

// EncodeSingle wraps one payload.
func EncodeSingle(mimeType, text string) *Envelope {
	return &Envelope{Entries: []Entry{{MimeType: mimeType, Data: []byte(text)}}}
}

// EncodeMultiple emits one entry per native type, skipping Files and
// repeated types. It returns nil when no usable type is present.
func EncodeMultiple(src Source) *Envelope {
	if src == nil {
		return nil
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	var env Envelope
	for _, t := range src.Types() {
		if skipped.Contains(t) {
			continue
		}
		mimeType := NormalizeType(t)
		if !seen.Add(mimeType) {
			continue
		}
		env.Entries = append(env.Entries, Entry{MimeType: mimeType, Data: []byte(src.Data(t))})
	}
	if len(env.Entries) == 0 {
		return nil
	}
	return &env
}

// NormalizeType maps legacy type labels to MIME types.
func NormalizeType(t string) string {
	if t == TypeLegacyText {
		return TypePlain
	}
	return t
}

// Size returns the total payload size, excluding framing.
func (e *Envelope) Size() int {
	n := 0
	for _, en := range e.Entries {
		n += len(en.Data)
	}
	return n
}

// Get returns the first entry of the given type.
func (e *Envelope) Get(mimeType string) (Entry, bool) {
	for _, en := range e.Entries {
		if en.MimeType == mimeType {
			return en, true
		}
	}
	return Entry{}, false
}

// WriteTo writes the wire form of e.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, en := range e.Entries {
		header := en.MimeType + "\n" + strconv.FormatInt(int64(len(en.Data)), 16) + "\n"
		for _, chunk := range [][]byte{[]byte(header), en.Data, {'\n'}} {
			n, err := w.Write(chunk)
			total += int64(n)
			if err != nil {
				return total, fmt.Errorf("envelope: write: %w", err)
			}
		}
	}
	return total, nil
}

// Bytes returns the wire form of e.
func (e *Envelope) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = e.WriteTo(&buf) // bytes.Buffer writes never fail
	return buf.Bytes()
}
