package selection

import "sync/atomic"

// Kind classifies the last selection reported by the backend.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindComplex:
		return "complex"
	default:
		return "none"
	}
}

// Serial counts observed clipboard mutations: copy, cut, paste and
// externally driven updates, once each.
//
// The platform gives no completion event for clipboard commands, so the
// serial doubles as the success signal: capture it before triggering a
// platform action and treat a changed value as proof the action ran.
// This is a heuristic, and a known limitation rather than a bug.
type Serial struct {
	v atomic.Uint64
}

// Value returns the current count.
func (s *Serial) Value() uint64 { return s.v.Load() }

// Bump records one mutation and returns the new count.
func (s *Serial) Bump() uint64 { return s.v.Add(1) }

// Changed reports whether the serial moved since captured.
func (s *Serial) Changed(captured uint64) bool { return s.v.Load() != captured }

// AccessKeys is the (current, previous) pair of access keys of the paste
// target. Previous only tolerates one stale round-trip.
type AccessKeys struct {
	Current  string
	Previous string
}

// Set rotates current into previous when key is new. It reports whether
// the pair changed.
func (k *AccessKeys) Set(key string) bool {
	if k.Current == key {
		return false
	}
	k.Previous = k.Current
	k.Current = key
	return true
}

// At returns the key at index 0 (current) or 1 (previous).
func (k AccessKeys) At(idx int) string {
	if idx == 1 {
		return k.Previous
	}
	return k.Current
}
