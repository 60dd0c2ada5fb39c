package envelope

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed reports a byte stream that is not a valid envelope.
type ErrMalformed struct {
	Offset int
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("envelope: malformed at byte %d: %s", e.Offset, e.Reason)
}

// Decode parses the wire form produced by WriteTo. An empty input is an
// error: an envelope always carries at least one entry.
func Decode(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, &ErrMalformed{Reason: "empty"}
	}
	var env Envelope
	pos := 0
	for pos < len(data) {
		mimeType, next, err := line(data, pos)
		if err != nil {
			return nil, err
		}
		if mimeType == "" || strings.ContainsAny(mimeType, " \t\r") {
			return nil, &ErrMalformed{Offset: pos, Reason: fmt.Sprintf("bad mime type %q", mimeType)}
		}
		pos = next

		hexLen, next, err := line(data, pos)
		if err != nil {
			return nil, err
		}
		size, perr := strconv.ParseInt(hexLen, 16, 64)
		if perr != nil || size < 0 {
			return nil, &ErrMalformed{Offset: pos, Reason: fmt.Sprintf("bad length %q", hexLen)}
		}
		pos = next

		end := pos + int(size)
		if end < pos || end >= len(data) {
			return nil, &ErrMalformed{Offset: pos, Reason: "truncated payload"}
		}
		if data[end] != '\n' {
			return nil, &ErrMalformed{Offset: end, Reason: "missing payload terminator"}
		}
		payload := make([]byte, size)
		copy(payload, data[pos:end])
		env.Entries = append(env.Entries, Entry{MimeType: mimeType, Data: payload})
		pos = end + 1
	}
	return &env, nil
}

func line(data []byte, pos int) (string, int, error) {
	i := bytes.IndexByte(data[pos:], '\n')
	if i < 0 {
		return "", 0, &ErrMalformed{Offset: pos, Reason: "unterminated header line"}
	}
	return string(data[pos : pos+i]), pos + i + 1, nil
}
