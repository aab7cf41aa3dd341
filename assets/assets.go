// Package assets embeds the default reference data and email templates.
package assets

import (
	"embed"
	"io/fs"
)

const (
	ResourcesDir      = "resources"
	EmailTemplatesDir = "templates/email"
)

//go:embed resources all:templates
var files embed.FS

// FS returns every embedded file, rooted at the package directory.
func FS() fs.FS { return files }

// Resources returns the embedded reference data, rooted at the resources directory.
func Resources() fs.FS {
	sub, err := fs.Sub(files, ResourcesDir)
	if err != nil {
		panic(err) // the directory is embedded
	}
	return sub
}
