package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderDescription(t *testing.T) {
	t.Run("emphasis", func(t *testing.T) {
		html := RenderDescription("a *sunny* day")
		assert.Contains(t, html, "<em>sunny</em>")
	})
	t.Run("raw html is dropped", func(t *testing.T) {
		html := RenderDescription("hello <script>alert(1)</script>")
		assert.NotContains(t, html, "<script>")
	})
	t.Run("javascript links are neutralized", func(t *testing.T) {
		html := RenderDescription("[click](javascript:alert(1))")
		assert.NotContains(t, html, "javascript:")
	})
	t.Run("strikethrough", func(t *testing.T) {
		html := RenderDescription("~~old~~ new")
		assert.Contains(t, html, "<del>old</del>")
	})
	t.Run("line breaks", func(t *testing.T) {
		html := RenderDescription("line one\nline two")
		assert.Contains(t, html, "<br")
	})
}

func TestPlaintextDescription(t *testing.T) {
	assert.Equal(t, "a sunny day outside", PlaintextDescription("a *sunny* day\noutside", 0))
	assert.Equal(t, "abcd…", PlaintextDescription("abcdefgh", 5))
	assert.Equal(t, "", PlaintextDescription("", 10))
	assert.Equal(t, "first second", PlaintextDescription("# first\n\nsecond", 0))
	assert.Equal(t, "look a cat", PlaintextDescription("look ![a cat](https://example.com/cat.png)", 0))
	assert.Equal(t, "code: x := 1", PlaintextDescription("code:\n\n```\nx := 1\n```", 0))
}

func TestRenderDescriptionLinksAndCode(t *testing.T) {
	t.Run("bare urls become links", func(t *testing.T) {
		html := RenderDescription("shot from https://example.com/beach today")
		assert.Contains(t, html, `<a href="https://example.com/beach">`)
	})
	t.Run("code blocks are highlighted", func(t *testing.T) {
		html := RenderDescription("```go\nfunc main() {}\n```")
		assert.Contains(t, html, "<pre")
		assert.Contains(t, html, "style=")
		assert.Contains(t, html, "main")
	})
}
