// Package assets provides the built-in stylesheets embedded in the binary.
//
// Styles live under styles/ and are loaded by name without the .css
// extension:
//
//	styles/
//	├── document.css   # base typography, tables, code, mermaid blocks
//	└── syntax.css     # chroma class-based highlighting
//
// Names are validated so a caller can never escape the embedded tree.
package assets
