package parsing

import (
	"bufio"
	"io"
	"regexp"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
)

// Renders only the text content of a document. Block boundaries and soft
// line breaks become spaces; callers collapse the whitespace afterwards.
type plaintextRenderer struct{}

var _ renderer.Renderer = plaintextRenderer{}

var markdownEscape = regexp.MustCompile("\\\\([\\\\\\x60!\"#$%&'()*+,-./:;<=>?@\\[\\]^_{|}~])")

func (plaintextRenderer) Render(w io.Writer, source []byte, doc ast.Node) error {
	out := bufio.NewWriter(w)
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				out.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Text:
			out.Write(markdownEscape.ReplaceAll(n.Segment.Value(source), []byte("$1")))
			if n.SoftLineBreak() || n.HardLineBreak() {
				out.WriteByte(' ')
			}
		case *ast.String:
			out.Write(n.Value)
		case *ast.Image:
			// Alt text is children of the image; the URL is not text.
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				out.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return err
	}
	return out.Flush()
}

func (plaintextRenderer) AddOptions(...renderer.Option) {}
