package parsing

import (
	"bytes"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"mvdan.cc/xurls/v2"
)

// Used for rendering image descriptions on the gallery. Raw HTML in the source
// is dropped, so the output is safe to embed in a page.
var DescriptionMarkdown = goldmark.New(
	goldmark.WithExtensions(
		extension.Table,
		extension.Strikethrough,
		extension.TaskList,
		linkifyExtension,
		highlightExtension,
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// Used for alt text and other places that want a description with no markup.
var PlaintextMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
	goldmark.WithRenderer(plaintextRenderer{}),
)

var linkifyExtension = extension.NewLinkify(
	extension.WithLinkifyURLRegexp(xurls.Strict()),
)

// Inline styles, so highlighted code needs no extra stylesheet.
var highlightExtension = highlighting.NewHighlighting(
	highlighting.WithStyle("monokai"),
	highlighting.WithFormatOptions(
		chromahtml.WithClasses(false),
		chromahtml.TabWidth(4),
	),
)

func ParseMarkdown(source string, md goldmark.Markdown) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		panic(err)
	}

	return buf.String()
}

func RenderDescription(source string) string {
	return ParseMarkdown(source, DescriptionMarkdown)
}

// Plain text, with runs of whitespace collapsed and trimmed to maxLen runes.
func PlaintextDescription(source string, maxLen int) string {
	text := strings.Join(strings.Fields(ParseMarkdown(source, PlaintextMarkdown)), " ")
	runes := []rune(text)
	if maxLen > 0 && len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen-1])) + "…"
	}
	return text
}
