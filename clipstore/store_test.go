package clipstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/clipbridge/clock"
)

func openTest(t *testing.T, opts ...Option) *Store {
	t.Helper()
	st, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

var key = Key{Doc: "https://wopi.example/files/42", View: "3", Tag: "k1"}

func TestPutGet_Codecs(t *testing.T) {
	compressible := []byte(strings.Repeat("text/html\n<p>hello clipboard</p>\n", 200))
	random := []byte("x")

	for _, c := range []Codec{CodecZstd, CodecLZ4, CodecNone} {
		t.Run(c.String(), func(t *testing.T) {
			st := openTest(t, WithCodec(c))
			ctx := context.Background()

			put, err := st.Put(ctx, key, compressible)
			if err != nil {
				t.Fatal(err)
			}
			if put.Codec != c {
				t.Fatalf("codec: got %v, want %v", put.Codec, c)
			}
			if c != CodecNone && put.StoredSize >= len(compressible) {
				t.Fatalf("stored %d bytes for %d raw", put.StoredSize, len(compressible))
			}

			got, err := st.Get(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got.Data, compressible) {
				t.Fatal("data mismatch")
			}
			if got.Digest != Digest(compressible) {
				t.Fatalf("digest: got %s", got.Digest)
			}

			// Tiny payloads never grow.
			small, err := st.Put(ctx, key, random)
			if err != nil {
				t.Fatal(err)
			}
			if small.Codec != CodecNone {
				t.Fatalf("small codec: got %v", small.Codec)
			}
			got, err = st.Get(ctx, key)
			if err != nil || string(got.Data) != "x" {
				t.Fatalf("small get: %q, %v", got.Data, err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	st := openTest(t)
	_, err := st.Get(context.Background(), key)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err: got %v", err)
	}
}

func TestPut_KeysAreIndependent(t *testing.T) {
	st := openTest(t)
	ctx := context.Background()
	other := key
	other.Tag = "k2"

	if _, err := st.Put(ctx, key, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put(ctx, other, []byte("two")); err != nil {
		t.Fatal(err)
	}
	a, _ := st.Get(ctx, key)
	b, _ := st.Get(ctx, other)
	if string(a.Data) != "one" || string(b.Data) != "two" {
		t.Fatalf("got %q and %q", a.Data, b.Data)
	}

	if err := st.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := st.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("after delete: %v", err)
	}
}

func TestPurge(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	st := openTest(t, WithClock(clk))
	ctx := context.Background()

	if _, err := st.Put(ctx, key, []byte("old")); err != nil {
		t.Fatal(err)
	}
	clk.Advance(2 * time.Hour)
	fresh := key
	fresh.View = "4"
	if _, err := st.Put(ctx, fresh, []byte("new")); err != nil {
		t.Fatal(err)
	}

	n, err := st.Purge(ctx, clk.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged: got %d, want 1", n)
	}
	if _, err := st.Get(ctx, fresh); err != nil {
		t.Fatalf("fresh blob purged: %v", err)
	}
}

func TestJanitor(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	st := openTest(t, WithClock(clk))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := st.Put(ctx, key, []byte("old")); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		st.Janitor(ctx, time.Minute, time.Hour)
		close(done)
	}()

	clk.WaitForTimers(1)
	clk.Advance(61 * time.Minute)
	clk.WaitForTimers(1) // back in the loop: the purge has run

	if _, err := st.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("janitor did not purge: %v", err)
	}
	cancel()
	<-done
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "clipboard.db")
	st, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Put(context.Background(), key, []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	b, err := st.Get(context.Background(), key)
	if err != nil || string(b.Data) != "persisted" {
		t.Fatalf("reopen: %q, %v", b.Data, err)
	}
}

func TestParseCodec(t *testing.T) {
	for name, want := range map[string]Codec{"": CodecZstd, "zstd": CodecZstd, "lz4": CodecLZ4, "none": CodecNone} {
		got, err := ParseCodec(name)
		if err != nil || got != want {
			t.Fatalf("ParseCodec(%q): got %v, %v", name, got, err)
		}
	}
	if _, err := ParseCodec("brotli"); err == nil {
		t.Fatal("expected error")
	}
}
