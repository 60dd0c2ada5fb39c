package transfer

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error is a failed exchange: transport failure, timeout or a status
// other than 200.
type Error struct {
	Method  string
	URL     string
	Status  int // 0 when no response arrived
	Timeout bool
	Body    []byte // first bytes of a non-200 response
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("transfer: %s %s: timeout: %v", e.Method, e.URL, e.Cause)
	case e.Status != 0 && e.Cause == nil:
		return fmt.Sprintf("transfer: %s %s: status %d", e.Method, e.URL, e.Status)
	default:
		return fmt.Sprintf("transfer: %s %s: %v", e.Method, e.URL, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrTooLarge is returned when a response exceeds the configured cap.
type ErrTooLarge struct {
	Limit int64
}

func (e *ErrTooLarge) Error() string {
	return fmt.Sprintf("transfer: response exceeds %d bytes", e.Limit)
}

// IsTimeout reports whether err is a timed-out exchange.
func IsTimeout(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Timeout
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var te *Error
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
