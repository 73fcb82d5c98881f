package models

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// --- Native Libraries ---

// LibraryRequirement names one native library the generated interface links
// against, together with the oldest version whose headers it was written for.
type LibraryRequirement struct {
	Name       string `json:"name" yaml:"name"`
	MinVersion string `json:"min_version" yaml:"min_version"`
}

// PackageName is the package-config identifier of the library (e.g. "libavcodec").
func (r LibraryRequirement) PackageName() string {
	return "lib" + r.Name
}

// Satisfies reports whether version is at least MinVersion.
// Versions are dotted numbers as printed by pkg-config ("60.31.102"). More
// than three components and trailing suffixes ("7.1-git") are accepted.
func (r LibraryRequirement) Satisfies(version string) bool {
	have, want := versionParts(version), versionParts(r.MinVersion)
	if len(have) == 0 || len(want) == 0 {
		return false
	}
	if c := semver.Compare(semverOf(have), semverOf(want)); c != 0 {
		return c > 0
	}
	for i := 3; i < len(have) || i < len(want); i++ {
		if a, b := part(have, i), part(want, i); a != b {
			return a > b
		}
	}
	return true
}

// versionParts returns the leading numeric components of v. Parsing stops at
// the first component that does not start with a digit.
func versionParts(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	var parts []int
	for _, seg := range strings.Split(v, ".") {
		end := 0
		for end < len(seg) && seg[end] >= '0' && seg[end] <= '9' {
			end++
		}
		if end == 0 {
			break
		}
		n, err := strconv.Atoi(seg[:end])
		if err != nil {
			break
		}
		parts = append(parts, n)
		if end < len(seg) {
			break
		}
	}
	return parts
}

func semverOf(parts []int) string {
	return fmt.Sprintf("v%d.%d.%d", part(parts, 0), part(parts, 1), part(parts, 2))
}

func part(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

// libraries is an array so that every read hands out a copy.
var libraries = [8]LibraryRequirement{
	{Name: "avcodec", MinVersion: "6.0"},
	{Name: "avdevice", MinVersion: "6.0"},
	{Name: "avfilter", MinVersion: "6.0"},
	{Name: "avformat", MinVersion: "6.0"},
	{Name: "avutil", MinVersion: "6.0"},
	{Name: "postproc", MinVersion: "6.0"},
	{Name: "swresample", MinVersion: "4.7"},
	{Name: "swscale", MinVersion: "6.0"},
}

// Libraries returns the fixed set of libraries, in link order.
func Libraries() [8]LibraryRequirement {
	return libraries
}

// LibraryNames returns the short names of Libraries().
func LibraryNames() []string {
	names := make([]string, 0, len(libraries))
	for _, l := range libraries {
		names = append(names, l.Name)
	}
	return names
}

// --- Search Paths ---

// PathSet holds the include and link search directories for one build.
// Order is priority: the Header Locator and the linker both take the first match.
type PathSet struct {
	IncludePaths []string `json:"include_paths" yaml:"include_paths"`
	LinkPaths    []string `json:"link_paths" yaml:"link_paths"`
}

// Append adds other's entries after the receiver's, keeping their order.
func (p PathSet) Append(other PathSet) PathSet {
	return PathSet{
		IncludePaths: append(append([]string{}, p.IncludePaths...), other.IncludePaths...),
		LinkPaths:    append(append([]string{}, p.LinkPaths...), other.LinkPaths...),
	}
}

// Dedup drops repeated entries, keeping the first (highest priority) occurrence.
func (p PathSet) Dedup() PathSet {
	return PathSet{
		IncludePaths: dedup(p.IncludePaths),
		LinkPaths:    dedup(p.LinkPaths),
	}
}

// IsEmpty reports whether the set carries no paths at all.
func (p PathSet) IsEmpty() bool {
	return len(p.IncludePaths) == 0 && len(p.LinkPaths) == 0
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// --- Build Profile ---

// Profile selects which prebuilt distribution is fetched where one is downloaded.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// ProfileFor maps the orchestrator's debug flag to a Profile.
func ProfileFor(debug bool) Profile {
	if debug {
		return ProfileDebug
	}
	return ProfileRelease
}

// --- Translation Decisions ---

// MacroType is the native representation chosen for an integer macro.
type MacroType int

const (
	// MacroTypeDefault leaves the constant untyped.
	MacroTypeDefault MacroType = iota
	MacroTypeInt32
	MacroTypeUint32
	MacroTypeUint64
	// MacroTypeSize is the platform's unsigned size type (size_t).
	MacroTypeSize
)

// GoType returns the Go spelling of the type, or "" for MacroTypeDefault.
func (t MacroType) GoType() string {
	switch t {
	case MacroTypeInt32:
		return "int32"
	case MacroTypeUint32:
		return "uint32"
	case MacroTypeUint64:
		return "uint64"
	case MacroTypeSize:
		return "uintptr"
	default:
		return ""
	}
}

func (t MacroType) String() string {
	if s := t.GoType(); s != "" {
		return s
	}
	return "default"
}

// EnumVariantBehavior tells the emitter how to treat one enum member.
type EnumVariantBehavior int

const (
	// VariantKeep emits the member as a regular variant.
	VariantKeep EnumVariantBehavior = iota
	// VariantConstify emits the member as a named constant only.
	VariantConstify
)

// MacroBehavior tells the macro pass whether to look at a definition at all.
type MacroBehavior int

const (
	MacroDefault MacroBehavior = iota
	MacroIgnore
)

// --- Build Metadata ---

// LinkDirectives is the link metadata handed back to the orchestrator.
// It is printed, never written into the artifact.
type LinkDirectives struct {
	SearchPaths []string `json:"search_paths" yaml:"search_paths"`
	Libraries   []string `json:"libraries" yaml:"libraries"`
	Frameworks  []string `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
}

// Lines renders the directives one per line, search paths first.
func (d LinkDirectives) Lines() []string {
	out := make([]string, 0, len(d.SearchPaths)+len(d.Libraries)+len(d.Frameworks))
	for _, p := range d.SearchPaths {
		out = append(out, fmt.Sprintf("ffbind:link-search=all=%s", p))
	}
	for _, l := range d.Libraries {
		out = append(out, fmt.Sprintf("ffbind:link-lib=%s", l))
	}
	for _, f := range d.Frameworks {
		out = append(out, fmt.Sprintf("ffbind:link-lib=framework=%s", f))
	}
	return out
}

// LDFlags renders the directives as linker flags, suitable for a #cgo LDFLAGS line.
func (d LinkDirectives) LDFlags() string {
	flags := make([]string, 0, len(d.SearchPaths)+len(d.Libraries)+2*len(d.Frameworks))
	for _, p := range d.SearchPaths {
		flags = append(flags, "-L"+p)
	}
	for _, l := range d.Libraries {
		flags = append(flags, "-l"+l)
	}
	for _, f := range d.Frameworks {
		flags = append(flags, "-framework", f)
	}
	return strings.Join(flags, " ")
}
