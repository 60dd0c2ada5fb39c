// Package uitest provides recording fakes of the ui collaborators.
package uitest

import (
	"context"
	"sync"

	"github.com/hazyhaar/clipbridge/ui"
)

// Progress records every call. It satisfies ui.DownloadProgress.
type Progress struct {
	mu        sync.Mutex
	visible   bool
	closed    bool
	started   bool
	Shows     int
	Closes    int
	Completes int
	Values    []int
	URI       string
}

var _ ui.DownloadProgress = (*Progress)(nil)

func (p *Progress) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

func (p *Progress) Show() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible, p.closed = true, false
	p.Shows++
}

func (p *Progress) SetValue(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Values = append(p.Values, percent)
}

func (p *Progress) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Completes++
}

func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible, p.closed, p.started = false, true, false
	p.Closes++
}

func (p *Progress) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.Shows == 0
}

func (p *Progress) Started() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// SetStarted simulates the user pressing "Start download".
func (p *Progress) SetStarted(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = v
}

func (p *Progress) SetURI(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.URI = uri
}

// Snapshot returns show/close counts under the lock.
func (p *Progress) Snapshot() (shows, closes int, visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Shows, p.Closes, p.visible
}

// Notifier records alerts.
type Notifier struct {
	mu       sync.Mutex
	messages []ui.Message
}

func (n *Notifier) Alert(_ context.Context, msg ui.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

// Messages returns a copy of the recorded alerts.
func (n *Notifier) Messages() []ui.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ui.Message(nil), n.messages...)
}

// Count returns how many times msg was shown.
func (n *Notifier) Count(msg ui.Message) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if m == msg {
			c++
		}
	}
	return c
}

// Editor counts focus and composition requests.
type Editor struct {
	mu      sync.Mutex
	focused int
	aborted int
}

func (e *Editor) Focus() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused++
}

func (e *Editor) AbortComposition() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborted++
}

// Focused returns how many times Focus was called.
func (e *Editor) Focused() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focused
}

// Aborted returns how many times AbortComposition was called.
func (e *Editor) Aborted() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}
