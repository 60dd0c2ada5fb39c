package ui

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestMessage_Text(t *testing.T) {
	got := MsgLargeCopyFirst.Text("Collabora")
	if !strings.Contains(got, "inside Collabora") {
		t.Fatalf("product name not substituted: %s", got)
	}
	if strings.Contains(got, "%productName") {
		t.Fatalf("placeholder left in text: %s", got)
	}
}

func TestMessage_String(t *testing.T) {
	if MsgReCopy.String() != "re_copy" {
		t.Fatalf("String: got %q", MsgReCopy.String())
	}
	if Message(99).String() != "unknown" {
		t.Fatalf("unknown message: got %q", Message(99).String())
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	n.Alert(context.Background(), MsgReCopy)
	if !strings.Contains(buf.String(), "message=re_copy") {
		t.Fatalf("log: %s", buf.String())
	}
}
