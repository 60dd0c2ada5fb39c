// Package clipstore stages clipboard blobs in SQLite until another
// session downloads them.
//
// One blob is kept per (document, view, access key). Blobs are stored
// compressed when that makes them smaller and carry a BLAKE3 digest of
// their raw bytes, used as the HTTP entity tag.
//
//	st, err := clipstore.Open("clipboard.db")
//	err = st.Put(ctx, key, envelopeBytes)
//	blob, err := st.Get(ctx, key)
package clipstore

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zeebo/blake3"

	"github.com/hazyhaar/clipbridge/clock"
)

// ErrNotFound is returned by Get when nothing is staged for the key.
var ErrNotFound = errors.New("clipstore: not found")

// Key addresses a staged blob.
type Key struct {
	Doc  string
	View string
	Tag  string
}

// Blob is a staged clipboard payload.
type Blob struct {
	Key        Key
	Data       []byte
	Digest     string // hex BLAKE3-256 of Data
	Codec      Codec
	StoredSize int
	CreatedAt  time.Time
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Store is the blob staging area.
type Store struct {
	db     *sql.DB
	codec  Codec
	clock  clock.Clock
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCodec selects the compression codec. Default: CodecZstd.
func WithCodec(c Codec) Option { return func(s *Store) { s.codec = c } }

// WithClock sets the clock used for timestamps and the janitor.
func WithClock(c clock.Clock) Option { return func(s *Store) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// Open opens (or creates) the store at path. ":memory:" gives a private
// in-memory store.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		db:     db,
		codec:  CodecZstd,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Put stages data under key, replacing what was there.
func (s *Store) Put(ctx context.Context, key Key, data []byte) (Blob, error) {
	codec, stored, err := compress(data, s.codec)
	if err != nil {
		return Blob{}, err
	}
	b := Blob{
		Key:        key,
		Data:       data,
		Digest:     Digest(data),
		Codec:      codec,
		StoredSize: len(stored),
		CreatedAt:  s.clock.Now(),
	}
	_, err = execRetry(ctx, s.db, `
		INSERT INTO clip_blobs (doc, view, tag, codec, raw_size, digest, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (doc, view, tag) DO UPDATE SET
			codec = excluded.codec,
			raw_size = excluded.raw_size,
			digest = excluded.digest,
			data = excluded.data,
			created_at = excluded.created_at`,
		key.Doc, key.View, key.Tag, int(codec), len(data), b.Digest, stored, b.CreatedAt.UnixMilli())
	if err != nil {
		return Blob{}, fmt.Errorf("clipstore: put: %w", err)
	}
	s.logger.DebugContext(ctx, "clipstore: staged",
		"doc", key.Doc, "view", key.View, "bytes", len(data), "stored", len(stored), "codec", codec.String())
	return b, nil
}

// Get returns the blob staged under key.
func (s *Store) Get(ctx context.Context, key Key) (Blob, error) {
	var (
		codec   int
		rawSize int
		stored  []byte
		created int64
	)
	b := Blob{Key: key}
	err := s.db.QueryRowContext(ctx, `
		SELECT codec, raw_size, digest, data, created_at
		FROM clip_blobs WHERE doc = ? AND view = ? AND tag = ?`,
		key.Doc, key.View, key.Tag,
	).Scan(&codec, &rawSize, &b.Digest, &stored, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Blob{}, ErrNotFound
	}
	if err != nil {
		return Blob{}, fmt.Errorf("clipstore: get: %w", err)
	}

	b.Codec = Codec(codec)
	b.StoredSize = len(stored)
	b.CreatedAt = time.UnixMilli(created)
	b.Data, err = decompress(stored, b.Codec, rawSize)
	if err != nil {
		return Blob{}, err
	}
	if Digest(b.Data) != b.Digest {
		return Blob{}, fmt.Errorf("clipstore: digest mismatch for %s/%s", key.Doc, key.View)
	}
	return b, nil
}

// Delete removes the blob under key. Deleting a missing key is not an
// error.
func (s *Store) Delete(ctx context.Context, key Key) error {
	_, err := execRetry(ctx, s.db, `DELETE FROM clip_blobs WHERE doc = ? AND view = ? AND tag = ?`,
		key.Doc, key.View, key.Tag)
	if err != nil {
		return fmt.Errorf("clipstore: delete: %w", err)
	}
	return nil
}

// Purge removes blobs staged before cutoff and returns how many.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := execRetry(ctx, s.db, `DELETE FROM clip_blobs WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("clipstore: purge: %w", err)
	}
	return res.RowsAffected()
}

// Janitor purges blobs older than retention every interval until ctx
// is done.
func (s *Store) Janitor(ctx context.Context, interval, retention time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		}
		n, err := s.Purge(ctx, s.clock.Now().Add(-retention))
		if err != nil {
			s.logger.WarnContext(ctx, "clipstore: janitor", "error", err)
			continue
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "clipstore: purged expired blobs", "count", n)
		}
	}
}
