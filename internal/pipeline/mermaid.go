package pipeline

import (
	"bytes"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// MermaidClass marks diagram containers in generated HTML.
// The render engine waits until each of them holds an <svg>.
const MermaidClass = "mermaid"

// KindMermaid is the AST node kind for mermaid diagram blocks.
var KindMermaid = ast.NewNodeKind("Mermaid")

// Mermaid is a goldmark extension that turns ```mermaid fences into
// <pre class="mermaid"> blocks instead of highlighted code.
var Mermaid goldmark.Extender = &mermaidExtension{}

// mermaidBlock holds the raw diagram source of a ```mermaid fence.
type mermaidBlock struct {
	ast.BaseBlock
	source string
}

func (n *mermaidBlock) Kind() ast.NodeKind { return KindMermaid }

func (n *mermaidBlock) IsRaw() bool { return true }

func (n *mermaidBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Source": n.source}, nil)
}

// mermaidTransformer replaces mermaid fenced code blocks after parsing,
// before the highlighting renderer ever sees them.
type mermaidTransformer struct{}

func (t *mermaidTransformer) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()

	var fences []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok && isMermaid(fcb.Language(source)) {
			fences = append(fences, fcb)
		}
		return ast.WalkContinue, nil
	})

	for _, fcb := range fences {
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(source))
		}
		parent := fcb.Parent()
		if parent == nil {
			continue
		}
		parent.ReplaceChild(parent, fcb, &mermaidBlock{source: buf.String()})
	}
}

func isMermaid(lang []byte) bool {
	return strings.EqualFold(string(lang), "mermaid")
}

// mermaidRenderer writes diagram sources HTML-escaped; mermaid reads textContent.
type mermaidRenderer struct{}

func (r *mermaidRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMermaid, r.render)
}

func (r *mermaidRenderer) render(w util.BufWriter, _ []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	block := n.(*mermaidBlock)
	_, _ = w.WriteString(`<pre class="` + MermaidClass + `">`)
	_, _ = w.WriteString(html.EscapeString(block.source))
	_, _ = w.WriteString("</pre>\n")
	return ast.WalkSkipChildren, nil
}

type mermaidExtension struct{}

func (e *mermaidExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&mermaidTransformer{}, 100),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mermaidRenderer{}, 100),
	))
}

// CountDiagrams returns the number of mermaid containers in htmlContent.
func CountDiagrams(htmlContent string) int {
	return strings.Count(htmlContent, `class="`+MermaidClass+`"`)
}
