package web

import "embed"

// TemplatesFS embeds HTML fragments rendered by the server.
//
//go:embed templates/*.html
var TemplatesFS embed.FS
