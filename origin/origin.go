// Package origin builds and reads the fingerprint that ties a clipboard
// payload to the editing session that produced it.
//
// A fingerprint is the clipboard endpoint URL of the producing view:
//
//	<base>/clipboard?WOPISrc=<doc>&ServerId=<id>&ViewId=<id>&Tag=<key>
//
// It travels percent-encoded inside a <meta name="origin"> tag of the
// copied HTML. A paste that finds its own fingerprint (under the current
// or previous access key) short-circuits to the backend's internal paste;
// any other fingerprint is relayed from the producing server.
package origin

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Endpoint is the path of the clipboard download/upload endpoint,
// relative to the session base.
const Endpoint = "/clipboard"

// Query parameter names of the endpoint.
const (
	ParamDoc    = "WOPISrc"
	ParamServer = "ServerId"
	ParamView   = "ViewId"
	ParamTag    = "Tag"
)

// ErrMalformedOrigin reports a fingerprint that does not carry the four
// endpoint parameters.
var ErrMalformedOrigin = errors.New("origin: malformed fingerprint")

// Identity addresses one view of one document on one server under one
// access key.
type Identity struct {
	Base     string // web server + service root, no trailing slash
	DocID    string // WOPISrc
	ServerID string
	ViewID   string
	Tag      string
}

// Path returns the endpoint path and query of the identity.
func (id Identity) Path() string {
	var b strings.Builder
	b.WriteString(Endpoint)
	b.WriteString("?" + ParamDoc + "=")
	b.WriteString(EncodeComponent(id.DocID))
	b.WriteString("&" + ParamServer + "=")
	b.WriteString(EncodeComponent(id.ServerID))
	b.WriteString("&" + ParamView + "=")
	b.WriteString(EncodeComponent(id.ViewID))
	b.WriteString("&" + ParamTag + "=")
	b.WriteString(EncodeComponent(id.Tag))
	return b.String()
}

// URL returns Base + Path.
func (id Identity) URL() string {
	return strings.TrimRight(id.Base, "/") + id.Path()
}

// SameView reports whether both identities address the same document
// view on the same server, ignoring base and access key.
func (id Identity) SameView(other Identity) bool {
	return id.DocID == other.DocID &&
		id.ServerID == other.ServerID &&
		id.ViewID == other.ViewID
}

// Fingerprint is the decoded origin URL. The zero value means "no origin".
type Fingerprint string

// Tag builds the fingerprint of id. Identical identities always yield
// identical fingerprints. The fingerprint carries Base, so a view served
// by another host can still be fetched.
func Tag(id Identity) Fingerprint {
	return Fingerprint(id.URL())
}

// IsZero reports whether the fingerprint is absent.
func (fp Fingerprint) IsZero() bool { return fp == "" }

func (fp Fingerprint) String() string { return string(fp) }

// Identity parses the fingerprint back into its components.
func (fp Fingerprint) Identity() (Identity, error) {
	s := string(fp)
	i := strings.Index(s, Endpoint+"?")
	if i < 0 {
		return Identity{}, fmt.Errorf("%w: no %s endpoint", ErrMalformedOrigin, Endpoint)
	}
	q, err := url.ParseQuery(s[i+len(Endpoint)+1:])
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformedOrigin, err)
	}
	for _, k := range []string{ParamDoc, ParamServer, ParamView, ParamTag} {
		if _, ok := q[k]; !ok {
			return Identity{}, fmt.Errorf("%w: missing %s", ErrMalformedOrigin, k)
		}
	}
	return Identity{
		Base:     s[:i],
		DocID:    q.Get(ParamDoc),
		ServerID: q.Get(ParamServer),
		ViewID:   q.Get(ParamView),
		Tag:      q.Get(ParamTag),
	}, nil
}

// DownloadURL returns the URL the content behind fp is fetched from.
// Fingerprints without a scheme resolve against localBase.
func (fp Fingerprint) DownloadURL(localBase string) string {
	s := string(fp)
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return strings.TrimRight(localBase, "/") + s
}

// Matches reports whether fp was produced by the view addressed by
// current, under either the current or the previous access key.
func Matches(fp Fingerprint, current, previous Identity) bool {
	if fp.IsZero() {
		return false
	}
	id, err := fp.Identity()
	if err != nil {
		return false
	}
	if !id.SameView(current) {
		return false
	}
	return id.Tag == current.Tag || id.Tag == previous.Tag
}

// EncodeComponent percent-encodes s the way encodeURIComponent does for
// the characters that matter here: spaces become %20, never '+'.
func EncodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeComponent reverses EncodeComponent. A literal '+' is kept.
func DecodeComponent(s string) (string, error) {
	return url.PathUnescape(s)
}
