// Package web holds the page templates and the static assets the server
// embeds into the binary.
package web

import "embed"

// TemplatesFS embeds the page and partial templates parsed by the renderer.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds app.css and app.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
