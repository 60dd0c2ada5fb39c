// Package transfer performs the single HTTP exchanges a clipboard relay
// is built from: a GET of staged content from a clipboard endpoint, or a
// multipart POST of content to one.
//
// A Client never retries. Status 200 is the only success; anything else,
// including transport failures and the 20 second timeout, comes back as
// *Error and the caller decides how to degrade.
//
//	c := transfer.New(transfer.WithProgress(bar))
//	body, err := c.Do(ctx, transfer.Request{
//		Method: http.MethodGet,
//		URL:    src,
//		Range:  transfer.FirstHalf,
//	})
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/clipbridge/ui"
)

const (
	// DefaultTimeout bounds one exchange.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResponse caps the response body read into memory (64 MiB).
	DefaultMaxResponse int64 = 64 << 20
)

// Range maps the 0..1 upload fraction of one exchange into a slice of
// the shared progress bar, so chained exchanges can split it.
type Range struct {
	From, To int
}

var (
	Full       = Range{From: 0, To: 100}
	FirstHalf  = Range{From: 0, To: 50}
	SecondHalf = Range{From: 50, To: 100}
)

// Map returns the percentage for fraction f (clamped to 0..1).
func (r Range) Map(f float64) int {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return r.From + int(f*float64(r.To-r.From)+0.5)
}

// Upload is a multipart file part.
type Upload struct {
	Field    string // form field, "data" for relays, "file" for local posts
	FileName string
	Data     []byte
}

// Request describes one exchange.
type Request struct {
	Method string // GET or POST
	URL    string
	Upload *Upload // POST only
	Range  Range
}

// Client performs exchanges and drives the shared progress indicator.
type Client struct {
	http        *http.Client
	timeout     time.Duration
	maxResponse int64
	progress    ui.Progress
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithHTTPClient sets the underlying client. Its Timeout is replaced by
// the Client timeout.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithProgress sets the progress indicator. Default: ui.NopProgress.
func WithProgress(p ui.Progress) Option { return func(c *Client) { c.progress = p } }

// WithMaxResponse overrides DefaultMaxResponse.
func WithMaxResponse(n int64) Option { return func(c *Client) { c.maxResponse = n } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		timeout:     DefaultTimeout,
		maxResponse: DefaultMaxResponse,
		progress:    ui.NopProgress{},
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	hc := http.Client{}
	if c.http != nil {
		hc = *c.http
	}
	hc.Timeout = c.timeout
	c.http = &hc
	return c
}

// Progress returns the indicator driven by c.
func (c *Client) Progress() ui.Progress { return c.progress }

// Do performs one exchange and returns the response body on status 200.
//
// The progress indicator is shown at start unless already visible,
// completed on any response, and closed after a POST response or any
// transport failure. A successful GET leaves it open for the upload that
// usually follows.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, &Error{Method: req.Method, URL: req.URL, Cause: err}
	}

	if !c.progress.Visible() {
		c.progress.Show()
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.progress.Complete()
		c.progress.Close()
		return nil, &Error{Method: req.Method, URL: req.URL, Timeout: isTimeout(ctx, err), Cause: err}
	}
	defer resp.Body.Close()

	body, readErr := readLimited(resp.Body, c.maxResponse)
	c.progress.Complete()
	if req.Method == http.MethodPost || readErr != nil {
		c.progress.Close()
	}
	if readErr != nil {
		return nil, &Error{Method: req.Method, URL: req.URL, Status: resp.StatusCode, Timeout: isTimeout(ctx, readErr), Cause: readErr}
	}
	if resp.StatusCode != http.StatusOK {
		if req.Method == http.MethodGet {
			c.progress.Close()
		}
		return nil, &Error{Method: req.Method, URL: req.URL, Status: resp.StatusCode, Body: truncate(body, 512)}
	}

	c.logger.DebugContext(ctx, "transfer: done",
		"method", req.Method, "url", req.URL, "bytes", len(body))
	return body, nil
}

// Go runs Do on its own goroutine and calls exactly one of onSuccess or
// onError with the result.
func (c *Client) Go(ctx context.Context, req Request, onSuccess func([]byte), onError func(error)) {
	go func() {
		body, err := c.Do(ctx, req)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onSuccess != nil {
			onSuccess(body)
		}
	}()
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	switch req.Method {
	case http.MethodGet:
		return http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	case http.MethodPost:
	default:
		return nil, fmt.Errorf("transfer: unsupported method %q", req.Method)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if req.Upload != nil {
		field := req.Upload.Field
		if field == "" {
			field = "file"
		}
		name := req.Upload.FileName
		if name == "" {
			name = "blob"
		}
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			return nil, fmt.Errorf("transfer: multipart part: %w", err)
		}
		if _, err := part.Write(req.Upload.Data); err != nil {
			return nil, fmt.Errorf("transfer: multipart write: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("transfer: multipart close: %w", err)
	}

	total := int64(buf.Len())
	body := &progressReader{
		r:     bytes.NewReader(buf.Bytes()),
		total: total,
		report: func(sent int64) {
			c.progress.SetValue(req.Range.Map(float64(sent) / float64(total)))
		},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return nil, err
	}
	httpReq.ContentLength = total
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	return httpReq, nil
}

// progressReader reports the cumulative number of bytes read.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   atomic.Int64
	report func(sent int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.report(p.sent.Add(int64(n)))
	}
	return n, err
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("transfer: read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &ErrTooLarge{Limit: limit}
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
