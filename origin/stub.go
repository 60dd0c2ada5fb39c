package origin

import "strings"

// StubMarker identifies placeholder documents. A stub stands in for
// content that has to be downloaded explicitly; it is never pasteable.
const StubMarker = "<title>Stub HTML Message</title>"

// DefaultProductName fills %productName when no brand is configured.
const DefaultProductName = "LibreOffice Online"

// Stub returns the placeholder document put on the native clipboard for
// selections too large or too rich to inline. It carries the origin of
// id so another session can still relay the real content.
func Stub(id Identity, productName string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE HTML PUBLIC \"-//W3C//DTD HTML 4.0 Transitional//EN\">\n")
	b.WriteString("<html>\n")
	b.WriteString("  <head>\n")
	b.WriteString("    " + StubMarker + "\n")
	b.WriteString("    <meta http-equiv=\"content-type\" content=\"text/html; charset=utf-8\"/>\n")
	b.WriteString("    " + MetaTag(Tag(id)) + "\n")
	b.WriteString("  </head>\n")
	b.WriteString("  <body lang=\"en_US\" dir=\"ltr\">\n")
	b.WriteString("    <p>To paste outside %productName, please first click the 'download' button</p>\n")
	b.WriteString("  </body>\n")
	b.WriteString("</html>")
	return SubstProductName(b.String(), productName)
}

// IsStub reports whether doc is a stub document.
func IsStub(doc string) bool {
	return strings.Index(doc, StubMarker) > 0
}

// SubstProductName replaces the first %productName placeholder.
func SubstProductName(msg, productName string) string {
	if productName == "" {
		productName = DefaultProductName
	}
	return strings.Replace(msg, "%productName", productName, 1)
}
