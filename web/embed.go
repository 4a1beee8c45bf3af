// Package web provides the embedded dashboard page.
package web

import (
	"embed"
)

//go:embed static/index.html
var staticFS embed.FS

// IndexHTML returns the dashboard page contents.
func IndexHTML() []byte {
	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return data
}
