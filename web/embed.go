// Package web holds the shell page and the view fragments it loads.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html views
var files embed.FS

// FS returns the embedded web root: index.html plus views/.
func FS() fs.FS {
	return files
}
