// Package stdlib carries the embedded standard library: the kernel base
// packages every model implicitly roots in. The sources ship inside the
// binary so a workspace never depends on an install location.
package stdlib

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed kernel/*.kerml
var files embed.FS

// Source is one embedded library document.
type Source struct {
	URI      string
	Language string
	Text     string
}

// Sources returns the embedded library documents in a stable order. The URI
// scheme marks them as built-in so diagnostics stay distinguishable from
// workspace files.
func Sources() []Source {
	var out []Source
	fs.WalkDir(files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(files, path)
		if err != nil {
			return err
		}
		out = append(out, Source{
			URI:      "trellis:///" + path,
			Language: "kernel",
			Text:     string(data),
		})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}
