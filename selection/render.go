package selection

import (
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// TextRenderer turns the HTML put on the clipboard into its text/plain
// companion.
type TextRenderer func(doc string) string

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag, drops style and script content and trims
// the result.
func PlainText(doc string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(doc)))
}

// Markdown returns a renderer producing CommonMark, falling back to
// PlainText when conversion fails.
func Markdown() TextRenderer {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return func(doc string) string {
		md, err := conv.ConvertString(doc)
		if err != nil {
			return PlainText(doc)
		}
		return strings.TrimSpace(md)
	}
}

// RendererFor maps a configuration name to a renderer: "markdown" or
// anything else for PlainText.
func RendererFor(name string) TextRenderer {
	if name == "markdown" {
		return Markdown()
	}
	return PlainText
}
