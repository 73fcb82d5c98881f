// Package headers maps the logical FFmpeg header names the bindings are built
// from to concrete files on the build host.
package headers

import (
	_ "embed"

	"ffbind/internal/paths"
)

// SystemIncludeDir is the conventional fallback when no candidate matches.
const SystemIncludeDir = "/usr/include"

// SupplementName is the logical name of the locally shipped header.
const SupplementName = "channel_layout_fixed.h"

//go:embed channel_layout_fixed.h
var supplement string

// Supplement returns the shipped header's text.
func Supplement() string {
	return supplement
}

// Locate returns the first candidate directory's path for rel, or the
// system include path when no candidate has it. It never checks the
// fallback: a truly missing header is reported by the translation pass.
func Locate(candidates []string, rel string) string {
	for _, dir := range candidates {
		include := paths.Join(dir, rel)
		if paths.Exists(include) {
			return include
		}
	}
	return SystemIncludeDir + "/" + rel
}

// Resolved is one translation input: a file on disk, or inline text for the
// shipped supplement.
type Resolved struct {
	Name string
	Path string
	Text string
}

// IsInline reports whether the header is fed to the compiler verbatim.
func (r Resolved) IsInline() bool {
	return r.Path == ""
}

// Resolve locates every header of list, keeping list order.
func Resolve(candidates []string, list []string) []Resolved {
	out := make([]Resolved, 0, len(list))
	for _, name := range list {
		if name == SupplementName {
			out = append(out, Resolved{Name: name, Text: supplement})
			continue
		}
		out = append(out, Resolved{Name: name, Path: Locate(candidates, name)})
	}
	return out
}
