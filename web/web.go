// Package web holds the upload page served at the site root.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html
var Index []byte

//go:embed static
var static embed.FS

func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
