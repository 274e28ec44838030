// Package md2pdf renders Markdown documents to PDF with headless Chrome.
//
// # Quick Start
//
// Convert Markdown, prepare a printable document, and render it:
//
//	pool := md2pdf.NewBrowserPool(md2pdf.PoolConfig{})
//	if err := pool.Start(); err != nil {
//	    log.Printf("renderer unavailable: %v", err)
//	}
//	defer pool.Close()
//
//	conv := md2pdf.NewConverter()
//	renderer := md2pdf.NewRenderer(pool, md2pdf.RendererConfig{})
//
//	fragment, err := conv.ToHTML(ctx, "# Hello\n\nWorld")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc, err := conv.PrepareDocument(ctx, fragment, md2pdf.RenderOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pdf, err := renderer.Render(ctx, doc, md2pdf.RenderOptions{})
//
// # Conversion Pipeline
//
// The conversion process follows these stages:
//
//  1. Markdown preprocessing (line normalization, ==highlight== syntax)
//  2. Markdown to an HTML fragment via Goldmark (GFM, syntax highlighting,
//     mermaid diagram blocks)
//  3. Document preparation (built-in stylesheet, page color, mermaid bootstrap)
//  4. PDF rendering via headless Chrome (go-rod)
//
// Steps 1 and 2 are synchronous and browser-free; the service exposes them
// directly as its HTML conversion endpoint.
//
// # Bounded Waits
//
// Renderer never waits without a limit. Loading the document is bounded by
// RendererConfig.LoadTimeout and failing it fails the render (ErrPageLoad).
// Mermaid diagrams are drawn by script after load, so the renderer polls for
// them for at most RendererConfig.DiagramTimeout; when that expires it logs
// a warning and prints the document as it stands. Printing itself is bounded
// by RendererConfig.PrintTimeout.
//
// # Browser Pool
//
// BrowserPool shares one Chrome between renders and gives each render an
// isolated incognito context, at most PoolConfig.Contexts at a time. A pool
// whose browser failed to launch reports Available() == false and Acquire
// returns ErrEngineUnavailable; relaunch attempts are rate-limited by
// PoolConfig.RelaunchInterval.
//
// # Error Handling
//
// Errors wrap sentinel values that can be checked with errors.Is:
//
//	pdf, err := renderer.Render(ctx, doc, opts)
//	if errors.Is(err, md2pdf.ErrEngineUnavailable) {
//	    // browser not running; retry later
//	}
//	if errors.Is(err, md2pdf.ErrPageLoad) {
//	    // document did not load in time
//	}
//
// # Validation
//
// RenderOptions.Validate rejects unknown formats, malformed margins and
// colors, unknown page-number alignments and oversized templates.
// ValidateMarkdown rejects blank input and input over MaxMarkdownLength
// characters. Both are meant to run at the service boundary, before a job
// is created.
package md2pdf
