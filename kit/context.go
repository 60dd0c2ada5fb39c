// Package kit carries per-operation values through a context so that log
// lines emitted deep in the relay or the server can be correlated.
package kit

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	RequestIDKey contextKey = "kit_request_id"
	OperationKey contextKey = "kit_operation" // "copy", "cut", "paste", "relay"
	DocKey       contextKey = "kit_doc"
	ViewKey      contextKey = "kit_view"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}
func GetOperation(ctx context.Context) string {
	v, _ := ctx.Value(OperationKey).(string)
	return v
}

func WithDoc(ctx context.Context, doc string) context.Context {
	return context.WithValue(ctx, DocKey, doc)
}
func GetDoc(ctx context.Context) string {
	v, _ := ctx.Value(DocKey).(string)
	return v
}

func WithView(ctx context.Context, view string) context.Context {
	return context.WithValue(ctx, ViewKey, view)
}
func GetView(ctx context.Context) string {
	v, _ := ctx.Value(ViewKey).(string)
	return v
}

// Logger returns base enriched with whichever kit values ctx carries.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	var attrs []any
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, "request_id", v)
	}
	if v := GetOperation(ctx); v != "" {
		attrs = append(attrs, "op", v)
	}
	if v := GetDoc(ctx); v != "" {
		attrs = append(attrs, "doc", v)
	}
	if v := GetView(ctx); v != "" {
		attrs = append(attrs, "view", v)
	}
	if len(attrs) == 0 {
		return base
	}
	return base.With(attrs...)
}
