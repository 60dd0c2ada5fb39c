// Package backend names the messages a clipboard session sends to the
// document-processing backend over its session channel.
package backend

import (
	"context"
	"log/slog"
	"sync"
)

// Text commands.
const (
	CmdCopy  = "uno .uno:Copy"
	CmdCut   = "uno .uno:Cut"
	CmdPaste = "uno .uno:Paste"
)

// UNO command names filtered out of menus and key bindings.
const (
	UnoCopy  = ".uno:Copy"
	UnoCut   = ".uno:Cut"
	UnoPaste = ".uno:Paste"
)

// KeyPaste is the backend key code of the platform paste keystroke, sent
// instead of CmdPaste when pasting into a dialog.
const KeyPaste = 1299

// Backend is the session channel to the document backend.
type Backend interface {
	SendMessage(ctx context.Context, msg string) error
	SendBinary(ctx context.Context, data []byte) error
	SendKeyEvent(ctx context.Context, charCode, keyCode int) error
}

// PasteImageMessage builds the binary message that pastes raw image bytes.
func PasteImageMessage(mimeType string, data []byte) []byte {
	header := "paste mimetype=" + mimeType + "\n"
	msg := make([]byte, 0, len(header)+len(data))
	msg = append(msg, header...)
	return append(msg, data...)
}

// Recorder is an in-memory Backend that logs and records every message.
// Headless hosts and tests use it.
type Recorder struct {
	Logger *slog.Logger

	mu       sync.Mutex
	messages []string
	binaries [][]byte
	keys     [][2]int
}

func (r *Recorder) SendMessage(ctx context.Context, msg string) error {
	r.log().DebugContext(ctx, "backend: message", "msg", msg)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *Recorder) SendBinary(ctx context.Context, data []byte) error {
	r.log().DebugContext(ctx, "backend: binary", "bytes", len(data))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.binaries = append(r.binaries, append([]byte(nil), data...))
	return nil
}

func (r *Recorder) SendKeyEvent(ctx context.Context, charCode, keyCode int) error {
	r.log().DebugContext(ctx, "backend: key", "char", charCode, "key", keyCode)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, [2]int{charCode, keyCode})
	return nil
}

// Messages returns the text messages sent so far.
func (r *Recorder) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Binaries returns the binary messages sent so far.
func (r *Recorder) Binaries() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.binaries...)
}

// Keys returns the key events sent so far as (charCode, keyCode) pairs.
func (r *Recorder) Keys() [][2]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]int(nil), r.keys...)
}

// Count returns how many times msg was sent.
func (r *Recorder) Count(msg string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m == msg {
			n++
		}
	}
	return n
}

func (r *Recorder) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
