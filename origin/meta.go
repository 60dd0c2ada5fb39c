package origin

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MetaName is the name attribute of the meta tag carrying the fingerprint.
const MetaName = "origin"

// Markers every encoded fingerprint must contain before it is trusted.
var encodedMarkers = []string{
	EncodeComponent(Endpoint + "?" + ParamDoc + "="),
	EncodeComponent("&" + ParamServer + "="),
	EncodeComponent("&" + ParamView + "="),
	EncodeComponent("&" + ParamTag + "="),
}

// MetaTag renders the meta element for fp.
func MetaTag(fp Fingerprint) string {
	return `<meta name="` + MetaName + `" content="` + EncodeComponent(string(fp)) + `"/>`
}

// Embed inserts the fingerprint as the first child of <head>. When the
// document has no <head>, one is created right after <html>; when it has
// neither, the tag goes after any leading doctype. The rest of the
// document is copied byte for byte.
func Embed(doc string, fp Fingerprint) string {
	meta := MetaTag(fp)
	headEnd, htmlEnd, doctypeEnd := scanPrologue(doc)

	switch {
	case headEnd >= 0:
		return doc[:headEnd] + meta + doc[headEnd:]
	case htmlEnd >= 0:
		return doc[:htmlEnd] + "<head>" + meta + "</head>" + doc[htmlEnd:]
	case doctypeEnd >= 0:
		return doc[:doctypeEnd] + meta + doc[doctypeEnd:]
	default:
		return meta + doc
	}
}

// scanPrologue returns the byte offsets just past the first <head>,
// <html> and doctype tokens, or -1 for each one missing. Scanning stops
// at <body>.
func scanPrologue(doc string) (headEnd, htmlEnd, doctypeEnd int) {
	headEnd, htmlEnd, doctypeEnd = -1, -1, -1
	z := html.NewTokenizer(strings.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return
		}
		offset += len(z.Raw())
		switch tt {
		case html.DoctypeToken:
			if doctypeEnd < 0 {
				doctypeEnd = offset
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Html:
				if htmlEnd < 0 {
					htmlEnd = offset
				}
			case atom.Head:
				headEnd = offset
				return
			case atom.Body:
				return
			}
		}
	}
}

// Extract finds the origin meta tag in doc and returns its decoded
// fingerprint. Absent, malformed or foreign-looking values yield the zero
// Fingerprint; malformed ones are logged, never returned as errors.
func Extract(doc string, logger *slog.Logger) Fingerprint {
	if logger == nil {
		logger = slog.Default()
	}
	raw, ok := findMeta(doc)
	if !ok {
		return ""
	}

	for _, m := range encodedMarkers {
		if !strings.Contains(raw, m) {
			logger.Warn("origin: mis-understood foreign origin", "meta", raw)
			return ""
		}
	}

	decoded, err := DecodeComponent(raw)
	if err != nil {
		logger.Warn("origin: undecodable origin", "meta", raw, "error", err)
		return ""
	}
	fp := Fingerprint(decoded)
	if _, err := fp.Identity(); err != nil {
		logger.Warn("origin: rejected origin", "meta", raw, "error", err)
		return ""
	}
	return fp
}

// findMeta returns the raw content attribute of the first
// <meta name="origin"> element.
func findMeta(doc string) (string, bool) {
	if !strings.Contains(doc, MetaName) {
		return "", false
	}
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.Meta || !hasAttr {
				continue
			}
			var metaName, content string
			var hasContent bool
			for {
				key, val, more := z.TagAttr()
				switch string(key) {
				case "name":
					metaName = string(val)
				case "content":
					content, hasContent = string(val), true
				}
				if !more {
					break
				}
			}
			if strings.EqualFold(metaName, MetaName) && hasContent {
				return content, true
			}
		}
	}
}
