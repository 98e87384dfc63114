package web

import "embed"

//go:embed templates/*.html
var templatesFS embed.FS

// StaticFS holds the embedded static assets served under /static/.
//
//go:embed static
var StaticFS embed.FS
