package clipserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/clipbridge/clipstore"
	"github.com/hazyhaar/clipbridge/clock"
	"github.com/hazyhaar/clipbridge/envelope"
	"github.com/hazyhaar/clipbridge/origin"
	"github.com/hazyhaar/clipbridge/shield"
	"github.com/hazyhaar/clipbridge/transfer"
)

const serverID = "srv-1"

type fixture struct {
	ts  *httptest.Server
	srv *Server
	id  origin.Identity
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	st, err := clipstore.Open(":memory:")
	if err != nil {
		t.Fatalf("clipstore.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg.ServerID = serverID
	srv := New(st, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{
		ts:  ts,
		srv: srv,
		id: origin.Identity{
			Base:     srv.Base(ts.URL),
			DocID:    "https://wopi.example/files/1",
			ServerID: serverID,
			ViewID:   "2",
			Tag:      "k1",
		},
	}
}

func (f *fixture) get(t *testing.T, url string, hdr map[string]string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func (f *fixture) postRaw(t *testing.T, url, ctype, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, ctype, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp
}

func TestPostGet_EnvelopeRoundTrip(t *testing.T) {
	f := newFixture(t, Config{Sanitize: true})
	env := envelope.EncodeSingle(envelope.TypePlain, "hello").Bytes()

	body, err := transfer.New().Do(context.Background(), transfer.Request{
		Method: http.MethodPost,
		URL:    f.id.URL(),
		Upload: &transfer.Upload{Field: "data", FileName: "clipboard", Data: env},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var staged struct {
		Digest string `json:"digest"`
		Size   int    `json:"size"`
	}
	if err := json.Unmarshal(body, &staged); err != nil {
		t.Fatalf("upload response: %v (%s)", err, body)
	}
	if staged.Digest != clipstore.Digest(env) || staged.Size != len(env) {
		t.Fatalf("staged: got %+v", staged)
	}

	resp, got := f.get(t, f.id.URL(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET: got %d", resp.StatusCode)
	}
	if string(got) != string(env) {
		t.Fatalf("GET body: got %q, want %q", got, env)
	}
	etag := resp.Header.Get("ETag")
	if etag != `"`+staged.Digest+`"` {
		t.Fatalf("ETag: got %q", etag)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("Cache-Control: got %q", resp.Header.Get("Cache-Control"))
	}

	resp, _ = f.get(t, f.id.URL(), map[string]string{"If-None-Match": etag})
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("conditional GET: got %d, want 304", resp.StatusCode)
	}
}

func TestPost_FileFieldAndTransferClient(t *testing.T) {
	f := newFixture(t, Config{})
	env := envelope.EncodeSingle(envelope.TypeHTML, "<b>x</b>").Bytes()

	c := transfer.New()
	if _, err := c.Do(context.Background(), transfer.Request{
		Method: http.MethodPost,
		URL:    f.id.URL(),
		Upload: &transfer.Upload{Field: "file", FileName: "clipboard", Data: env},
	}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	got, err := c.Do(context.Background(), transfer.Request{Method: http.MethodGet, URL: f.id.URL()})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(got) != string(env) {
		t.Fatalf("download: got %q", got)
	}
}

func TestPost_RawHTMLIsWrapped(t *testing.T) {
	f := newFixture(t, Config{Sanitize: true})
	fp := origin.Tag(f.id)
	doc := origin.Embed(`<html><head></head><body><p>hi</p><script>alert(1)</script></body></html>`, fp)

	if resp := f.postRaw(t, f.id.URL(), "text/html", doc); resp.StatusCode != http.StatusOK {
		t.Fatalf("POST: got %d", resp.StatusCode)
	}

	_, raw := f.get(t, f.id.URL(), nil)
	env, err := envelope.Decode(raw)
	if err != nil {
		t.Fatalf("staged content is not an envelope: %v", err)
	}
	e, ok := env.Get(envelope.TypeHTML)
	if !ok || string(e.Data) != doc {
		t.Fatalf("wrapped entry: got %+v", env.Entries)
	}

	resp, html := f.get(t, f.id.URL()+"&MimeType=text/html", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("html GET: got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("Content-Type: got %q", resp.Header.Get("Content-Type"))
	}
	if strings.Contains(string(html), "script") || !strings.Contains(string(html), "<p>hi</p>") {
		t.Fatalf("sanitised html: got %q", html)
	}
	if got := origin.Extract(string(html), nil); got != fp {
		t.Fatalf("origin after sanitising: got %q, want %q", got, fp)
	}
	if etag := resp.Header.Get("ETag"); etag == "" || etag == `"`+clipstore.Digest(raw)+`"` {
		t.Fatalf("html ETag must differ from the envelope's: %q", resp.Header.Get("ETag"))
	}
}

func TestGet_HTMLUnsanitised(t *testing.T) {
	f := newFixture(t, Config{Sanitize: false})
	doc := `<p onclick="x()">hi</p>`
	f.postRaw(t, f.id.URL(), "application/octet-stream", doc)

	_, html := f.get(t, f.id.URL()+"&MimeType=text/html", nil)
	if string(html) != doc {
		t.Fatalf("html: got %q, want %q", html, doc)
	}
}

func TestGet_StubIsServedVerbatim(t *testing.T) {
	f := newFixture(t, Config{Sanitize: true})
	stub := origin.Stub(f.id, "")
	f.postRaw(t, f.id.URL(), "text/html", stub)

	_, html := f.get(t, f.id.URL()+"&MimeType=text/html", nil)
	if !origin.IsStub(string(html)) {
		t.Fatalf("stub lost its marker: %q", html)
	}
}

func TestGet_HTMLMissingEntry(t *testing.T) {
	f := newFixture(t, Config{})
	f.postRaw(t, f.id.URL(), "", string(envelope.EncodeSingle(envelope.TypePlain, "x").Bytes()))

	if resp, _ := f.get(t, f.id.URL()+"&MimeType=text/html", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("html GET without html entry: got %d, want 404", resp.StatusCode)
	}
	if resp, _ := f.get(t, f.id.URL()+"&MimeType=image/png", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsupported MimeType: got %d, want 400", resp.StatusCode)
	}
}

func TestErrors(t *testing.T) {
	f := newFixture(t, Config{})

	if resp, _ := f.get(t, f.id.URL(), nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing blob: got %d, want 404", resp.StatusCode)
	}

	wrong := f.id
	wrong.ServerID = "other"
	if resp, _ := f.get(t, wrong.URL(), nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong ServerId GET: got %d, want 400", resp.StatusCode)
	}
	if resp := f.postRaw(t, wrong.URL(), "text/html", "<p>x</p>"); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong ServerId POST: got %d, want 400", resp.StatusCode)
	}

	if resp, _ := f.get(t, f.id.Base+origin.Endpoint+"?ServerId="+serverID, nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing params: got %d, want 400", resp.StatusCode)
	}
	if resp := f.postRaw(t, f.id.URL(), "text/html", ""); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty upload: got %d, want 400", resp.StatusCode)
	}

	_, err := transfer.New().Do(context.Background(), transfer.Request{Method: http.MethodGet, URL: wrong.URL()})
	if transfer.StatusOf(err) != http.StatusBadRequest {
		t.Fatalf("client status: got %d", transfer.StatusOf(err))
	}
}

func TestPost_TooLarge(t *testing.T) {
	f := newFixture(t, Config{MaxBody: 16})
	resp := f.postRaw(t, f.id.URL(), "text/html", strings.Repeat("a", 64))
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized POST: got %d, want 413", resp.StatusCode)
	}
}

func TestServiceRootAndHead(t *testing.T) {
	f := newFixture(t, Config{ServiceRoot: "/office/"})
	if !strings.HasSuffix(f.id.Base, "/office") {
		t.Fatalf("base: got %q", f.id.Base)
	}
	f.postRaw(t, f.id.URL(), "text/html", "<p>x</p>")

	resp, err := http.Head(f.id.URL())
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("ETag") == "" {
		t.Fatalf("HEAD: got %d etag=%q", resp.StatusCode, resp.Header.Get("ETag"))
	}

	bare := f.ts.URL + origin.Endpoint + "?" + strings.SplitN(f.id.Path(), "?", 2)[1]
	if resp, _ := f.get(t, bare, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("endpoint outside service root: got %d, want 404", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	fc := clock.Fake(time.Unix(0, 0))
	f := newFixture(t, Config{
		RateLimit: shield.RateLimitConfig{MaxRequests: 1, Window: time.Minute},
		Clock:     fc,
	})

	if resp, _ := f.get(t, f.id.URL(), nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("first GET: got %d", resp.StatusCode)
	}
	if resp, _ := f.get(t, f.id.URL(), nil); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second GET: got %d, want 429", resp.StatusCode)
	}
	if resp, _ := f.get(t, f.ts.URL+"/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: got %d", resp.StatusCode)
	}

	fc.Advance(time.Minute)
	if resp, _ := f.get(t, f.id.URL(), nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("after window: got %d", resp.StatusCode)
	}
}

func TestRun_PurgesExpired(t *testing.T) {
	fc := clock.Fake(time.Unix(0, 0))
	st, err := clipstore.Open(":memory:", clipstore.WithClock(fc))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	srv := New(st, Config{ServerID: serverID, Clock: fc})

	key := clipstore.Key{Doc: "d", View: "1", Tag: "k"}
	if _, err := st.Put(context.Background(), key, []byte("x")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx, time.Hour)
		close(done)
	}()

	fc.WaitForTimers(1)
	fc.Advance(15 * time.Minute)
	fc.WaitForTimers(1)
	fc.Advance(2 * time.Hour)
	fc.WaitForTimers(1)

	if _, err := st.Get(context.Background(), key); !errors.Is(err, clipstore.ErrNotFound) {
		t.Fatalf("after retention: got %v, want ErrNotFound", err)
	}
	cancel()
	<-done
}
