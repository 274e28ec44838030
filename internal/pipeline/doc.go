// Package pipeline implements the Markdown-to-HTML half of the conversion.
//
// This package handles preprocessing, HTML conversion, and HTML injection:
//   - Markdown preprocessing (line normalization, highlight syntax)
//   - Markdown to HTML conversion via Goldmark, with mermaid diagram blocks
//   - Document wrapping plus CSS and script injection
//
// PDF generation lives in the root md2pdf package (headless Chrome via
// go-rod). The pipeline only shapes document structure and content; the
// renderer owns page layout, margins, and waiting for diagrams to draw.
package pipeline
