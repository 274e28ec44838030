package md2pdf

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown     = errors.New("markdown content cannot be empty")
	ErrMarkdownTooLong   = errors.New("markdown content too long")
	ErrPDFGeneration     = errors.New("PDF generation failed")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrPageCreate        = errors.New("failed to create browser page")
	ErrPageLoad          = errors.New("failed to load page")
	ErrDocumentPrepare   = errors.New("document preparation failed")
	ErrPoolClosed        = errors.New("browser pool closed")
	ErrEngineUnavailable = errors.New("rendering engine not initialized")

	// Render options validation errors.
	ErrInvalidFormat    = errors.New("invalid page format")
	ErrInvalidMargin    = errors.New("invalid margin")
	ErrInvalidPageColor = errors.New("invalid page color")
	ErrInvalidAlign     = errors.New("invalid page number alignment")
	ErrTemplateTooLong  = errors.New("header/footer template too long")
)

