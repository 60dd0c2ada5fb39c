// Package clipserver serves the clipboard endpoint that fingerprints
// point at.
//
//	GET  <root>/clipboard?WOPISrc=..&ServerId=..&ViewId=..&Tag=..[&MimeType=text/html]
//	POST <root>/clipboard?WOPISrc=..&ServerId=..&ViewId=..&Tag=..
//
// GET returns the staged envelope of the addressed view, or only its
// text/html entry when MimeType=text/html is given. POST stages a new
// payload: a multipart "data" or "file" part, or a raw body. Bodies that
// are not envelopes are staged as a single text/html entry.
package clipserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/clipbridge/clipstore"
	"github.com/hazyhaar/clipbridge/clock"
	"github.com/hazyhaar/clipbridge/envelope"
	"github.com/hazyhaar/clipbridge/origin"
	"github.com/hazyhaar/clipbridge/shield"
)

// Upload field names accepted by POST, in order of preference.
var uploadFields = []string{"data", "file"}

// maxMemory bounds the multipart parser; larger parts spill to disk.
const maxMemory = 8 << 20

// Config configures a Server.
type Config struct {
	ServerID    string
	ServiceRoot string // prefix before /clipboard, no trailing slash
	MaxBody     int64
	Sanitize    bool
	RateLimit   shield.RateLimitConfig
	Clock       clock.Clock
	Logger      *slog.Logger
}

// Server stages clipboard payloads per document view and access key.
type Server struct {
	store   *clipstore.Store
	cfg     Config
	policy  *bluemonday.Policy
	limiter *shield.RateLimiter
	handler http.Handler
	logger  *slog.Logger
}

// New builds the server and its router.
func New(store *clipstore.Store, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	cfg.ServiceRoot = strings.TrimRight(cfg.ServiceRoot, "/")

	s := &Server{
		store:  store,
		cfg:    cfg,
		policy: bluemonday.UGCPolicy(),
		logger: cfg.Logger,
	}

	stack, rl := shield.Stack(shield.Config{
		MaxBody:   cfg.MaxBody,
		RateLimit: cfg.RateLimit,
		Exclude:   []string{"/healthz"},
		Clock:     cfg.Clock,
		Logger:    cfg.Logger,
	})
	s.limiter = rl

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range stack {
		r.Use(mw)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "server_id": cfg.ServerID})
	})
	r.Get(cfg.ServiceRoot+origin.Endpoint, s.handleGet)
	r.Post(cfg.ServiceRoot+origin.Endpoint, s.handlePost)
	s.handler = r
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.handler }

// Base returns the session base for a server reachable at publicURL.
func (s *Server) Base(publicURL string) string {
	return strings.TrimRight(publicURL, "/") + s.cfg.ServiceRoot
}

// Run starts background maintenance: the store janitor and rate limiter
// garbage collection. It returns when ctx is done.
func (s *Server) Run(ctx context.Context, retention time.Duration) {
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}
	interval := retention / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	s.logger.Info("clipserver: janitor started", "interval", interval, "retention", retention)
	s.store.Janitor(ctx, interval, retention)
}

// keyFrom validates the endpoint parameters of r.
func (s *Server) keyFrom(r *http.Request) (clipstore.Key, error) {
	q := r.URL.Query()
	for _, p := range []string{origin.ParamDoc, origin.ParamServer, origin.ParamView, origin.ParamTag} {
		if q.Get(p) == "" {
			return clipstore.Key{}, fmt.Errorf("missing %s", p)
		}
	}
	if got := q.Get(origin.ParamServer); got != s.cfg.ServerID {
		return clipstore.Key{}, fmt.Errorf("unknown %s %q", origin.ParamServer, got)
	}
	return clipstore.Key{
		Doc:  q.Get(origin.ParamDoc),
		View: q.Get(origin.ParamView),
		Tag:  q.Get(origin.ParamTag),
	}, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())
	key, err := s.keyFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	blob, err := s.store.Get(r.Context(), key)
	if errors.Is(err, clipstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("no clipboard content"))
		return
	}
	if err != nil {
		log.Error("clipserver: load", "doc", key.Doc, "view", key.View, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("load failed"))
		return
	}

	body := blob.Data
	ctype := "application/octet-stream"
	etag := `"` + blob.Digest + `"`

	if mt := r.URL.Query().Get("MimeType"); mt != "" {
		if envelope.NormalizeType(mt) != envelope.TypeHTML {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported MimeType %q", mt))
			return
		}
		html, ok := s.htmlEntry(blob.Data)
		if !ok {
			writeError(w, http.StatusNotFound, errors.New("no text/html content"))
			return
		}
		if s.cfg.Sanitize && !origin.IsStub(string(html)) {
			html = s.sanitize(html, log)
		}
		body = html
		ctype = "text/html; charset=utf-8"
		etag = `"` + blob.Digest + `.html"`
	}

	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Debug("clipserver: write", "error", err)
	}
}

// sanitize strips active content from html. The origin meta tag does not
// survive the policy, so it is embedded again afterwards.
func (s *Server) sanitize(html []byte, log *slog.Logger) []byte {
	fp := origin.Extract(string(html), log)
	clean := s.policy.Sanitize(string(html))
	if !fp.IsZero() {
		clean = origin.Embed(clean, fp)
	}
	return []byte(clean)
}

// htmlEntry returns the text/html entry of a staged envelope.
func (s *Server) htmlEntry(data []byte) ([]byte, bool) {
	env, err := envelope.Decode(data)
	if err != nil {
		return nil, false
	}
	e, ok := env.Get(envelope.TypeHTML)
	if !ok {
		return nil, false
	}
	return e.Data, true
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	log := shield.GetLogger(r.Context())
	key, err := s.keyFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	data, err := readUpload(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty upload"))
		return
	}

	if _, derr := envelope.Decode(data); derr != nil {
		log.Debug("clipserver: wrapping non-envelope upload", "reason", derr)
		data = envelope.EncodeSingle(envelope.TypeHTML, string(data)).Bytes()
	}

	blob, err := s.store.Put(r.Context(), key, data)
	if err != nil {
		log.Error("clipserver: store", "doc", key.Doc, "view", key.View, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("store failed"))
		return
	}
	log.Info("clipserver: staged", "doc", key.Doc, "view", key.View,
		"size", len(blob.Data), "stored", blob.StoredSize, "codec", blob.Codec.String())

	writeJSON(w, http.StatusOK, map[string]any{
		"digest": blob.Digest,
		"size":   len(blob.Data),
	})
}

// readUpload returns the first upload part of a multipart request, or
// the raw body otherwise.
func readUpload(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	for _, field := range uploadFields {
		files := r.MultipartForm.File[field]
		if len(files) == 0 {
			continue
		}
		f, err := files[0].Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", field, err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	for _, field := range uploadFields {
		if v := r.MultipartForm.Value[field]; len(v) > 0 {
			return []byte(v[0]), nil
		}
	}
	return nil, fmt.Errorf("no %s part", strings.Join(uploadFields, " or "))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
