package pipeline

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// documentTemplate wraps a Goldmark fragment in a complete HTML5 document.
const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>`

// WrapDocument embeds an HTML fragment in a standalone HTML5 document.
func WrapDocument(fragment, title string) string {
	if title == "" {
		title = "Document"
	}
	return fmt.Sprintf(documentTemplate, html.EscapeString(title), fragment)
}

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block before </head>, falling back to the
// start of <body> and then to a plain prepend.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" || ctx.Err() != nil {
		return htmlContent
	}
	return injectHead(htmlContent, "<style>"+sanitizeCSS(cssContent)+"</style>")
}

// ScriptInjector defines the contract for script injection into HTML.
type ScriptInjector interface {
	InjectScripts(ctx context.Context, htmlContent string, scripts []Script) string
}

// Script is either an external script (Src) or an inline body.
type Script struct {
	Src    string
	Inline string
}

// ScriptInjection injects <script> tags into the document head, in order.
type ScriptInjection struct{}

// InjectScripts inserts the given scripts before </head>.
func (s *ScriptInjection) InjectScripts(ctx context.Context, htmlContent string, scripts []Script) string {
	if len(scripts) == 0 || ctx.Err() != nil {
		return htmlContent
	}

	var b strings.Builder
	for _, sc := range scripts {
		if sc.Src != "" {
			b.WriteString(`<script src="` + html.EscapeString(sc.Src) + `"></script>`)
			continue
		}
		b.WriteString("<script>" + sanitizeScript(sc.Inline) + "</script>")
	}
	return injectHead(htmlContent, b.String())
}

// injectHead inserts block before </head>, after <body ...>, or prepends it.
func injectHead(htmlContent, block string) string {
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + block + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		if closeIdx := strings.Index(htmlContent[idx:], ">"); closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + block + htmlContent[insertPos:]
		}
	}

	return block + htmlContent
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// sanitizeScript escapes closing tags inside inline script bodies.
func sanitizeScript(js string) string {
	return strings.ReplaceAll(js, "</", `<\/`)
}
