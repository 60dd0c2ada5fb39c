// Package idgen generates the identifiers a clipboard session hands out:
// server ids, access keys (the Tag of a clipboard endpoint), request ids
// and transient surface ids.
package idgen

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NanoID returns a Generator of lowercase base-36 ids of the given length.
// The output is safe to place in a query string without escaping.
func NanoID(length int) Generator {
	return func() string {
		buf := make([]byte, length)
		if _, err := rand.Read(buf); err != nil {
			panic("idgen: crypto/rand failed: " + err.Error())
		}
		for i := range buf {
			buf[i] = alphabet[int(buf[i])%len(alphabet)]
		}
		return string(buf)
	}
}

// UUIDv7 returns a Generator of RFC 9562 v7 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every id of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

var (
	// ServerID names one backend instance in clipboard URLs (ServerId=).
	ServerID Generator = UUIDv7()

	// AccessKey produces the rotating Tag of a paste target.
	AccessKey Generator = NanoID(16)

	// RequestID tags server requests in logs.
	RequestID Generator = Prefixed("req_", NanoID(12))

	// SurfaceID names transient editable surfaces in a page.
	SurfaceID Generator = Prefixed("copy-paste-surface-", NanoID(8))
)

// ParseServerID validates an externally supplied server id.
func ParseServerID(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid server id: %w", err)
	}
	return u.String(), nil
}
