package translate

import "fmt"

// Target is the platform the bindings are generated for.
type Target struct {
	GOOS   string
	GOARCH string
	// Triple is passed to clang as --target when set.
	Triple string
}

// ClangTriple returns Triple, or the conventional triple for GOOS/GOARCH.
func (t Target) ClangTriple() string {
	if t.Triple != "" {
		return t.Triple
	}
	arch := map[string]string{"amd64": "x86_64", "arm64": "aarch64", "386": "i686"}[t.GOARCH]
	if arch == "" {
		return ""
	}
	switch t.GOOS {
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "darwin":
		if arch == "aarch64" {
			arch = "arm64"
		}
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	case "freebsd":
		return arch + "-unknown-freebsd"
	}
	return ""
}

// BuildConstraint is the //go:build expression the artifact carries.
func (t Target) BuildConstraint() string {
	return fmt.Sprintf("%s && %s", t.GOOS, t.GOARCH)
}

type scalar struct {
	goType string
	size   int64
	align  int64
}

// scalars returns the target's builtin type table. Every supported target is
// LP64 except windows, which is LLP64.
func (t Target) scalars() map[string]scalar {
	long := scalar{"int64", 8, 8}
	ulong := scalar{"uint64", 8, 8}
	if t.GOOS == "windows" {
		long = scalar{"int32", 4, 4}
		ulong = scalar{"uint32", 4, 4}
	}
	return map[string]scalar{
		"_Bool":              {"bool", 1, 1},
		"char":               {"byte", 1, 1},
		"signed char":        {"int8", 1, 1},
		"unsigned char":      {"uint8", 1, 1},
		"short":              {"int16", 2, 2},
		"unsigned short":     {"uint16", 2, 2},
		"int":                {"int32", 4, 4},
		"unsigned int":       {"uint32", 4, 4},
		"long":               long,
		"unsigned long":      ulong,
		"long long":          {"int64", 8, 8},
		"unsigned long long": {"uint64", 8, 8},
		"float":              {"float32", 4, 4},
		"double":             {"float64", 8, 8},
	}
}

// unsupportedScalar returns the size and alignment of builtins that have no
// Go equivalent. They still take part in layout, so opaque records embedding
// them keep their size.
func (t Target) unsupportedScalar(name string) (size, align int64, ok bool) {
	switch name {
	case "long double":
		switch {
		case t.GOOS == "windows":
			return 8, 8, true
		case t.GOOS == "darwin" && t.GOARCH == "arm64":
			return 8, 8, true
		default:
			return 16, 16, true
		}
	case "__int128", "unsigned __int128", "_Float128":
		return 16, 16, true
	case "_Float16", "__fp16", "__bf16":
		return 2, 2, true
	case "_Complex":
		return 16, 8, true
	}
	return 0, 0, false
}

// wellKnown maps typedefs from the C library headers straight to Go types.
// Their declarations are not emitted.
func (t Target) wellKnown() map[string]scalar {
	wchar := scalar{"int32", 4, 4}
	if t.GOOS == "windows" {
		wchar = scalar{"uint16", 2, 2}
	}
	return map[string]scalar{
		"int8_t":    {"int8", 1, 1},
		"uint8_t":   {"uint8", 1, 1},
		"int16_t":   {"int16", 2, 2},
		"uint16_t":  {"uint16", 2, 2},
		"int32_t":   {"int32", 4, 4},
		"uint32_t":  {"uint32", 4, 4},
		"int64_t":   {"int64", 8, 8},
		"uint64_t":  {"uint64", 8, 8},
		"size_t":    {"uintptr", 8, 8},
		"uintptr_t": {"uintptr", 8, 8},
		"ssize_t":   {"int", 8, 8},
		"ptrdiff_t": {"int", 8, 8},
		"intptr_t":  {"int", 8, 8},
		"intmax_t":  {"int64", 8, 8},
		"uintmax_t": {"uint64", 8, 8},
		"wchar_t":   wchar,
	}
}

// vaListNames are passed as an opaque pointer. Records embedding one by value
// are emitted opaque.
var vaListNames = map[string]bool{
	"va_list":              true,
	"__builtin_va_list":    true,
	"__gnuc_va_list":       true,
	"__va_list":            true,
	"__builtin_ms_va_list": true,
}

func (t Target) vaListLayout() (size, align int64) {
	switch {
	case t.GOOS == "linux" && t.GOARCH == "amd64", t.GOOS == "freebsd" && t.GOARCH == "amd64":
		return 24, 8
	case t.GOOS == "linux" && t.GOARCH == "arm64", t.GOOS == "freebsd" && t.GOARCH == "arm64":
		return 32, 8
	}
	return 8, 8
}
