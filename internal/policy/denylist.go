package policy

import (
	"regexp"
	"sort"
)

// Set is a fixed membership table.
type Set map[string]struct{}

func newSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IgnoredMacros collide with the libc FP_* classification enum.
var IgnoredMacros = newSet(
	"FP_INFINITE",
	"FP_NAN",
	"FP_NORMAL",
	"FP_SUBNORMAL",
	"FP_ZERO",
)

// OpaqueTypes are emitted as sized byte blobs instead of being translated
// field by field. Both embed long double.
var OpaqueTypes = newSet(
	"max_align_t",
	"__mingw_ldbl_type_t",
)

// InternalSymbolPattern matches reserved-namespace functions.
var InternalSymbolPattern = regexp.MustCompile(`^_.*`)

// LongDoubleFunctions take or return long double (or a type built on it),
// which has no portable Go representation.
var LongDoubleFunctions = newSet(
	"acoshl",
	"acosl",
	"asinhl",
	"asinl",
	"atan2l",
	"atanhl",
	"atanl",
	"cbrtl",
	"ceill",
	"copysignl",
	"coshl",
	"cosl",
	"dreml",
	"ecvt_r",
	"erfcl",
	"erfl",
	"exp2l",
	"expl",
	"expm1l",
	"fabsl",
	"fcvt_r",
	"fdiml",
	"finitel",
	"floorl",
	"fmal",
	"fmaxl",
	"fminl",
	"fmodl",
	"frexpl",
	"gammal",
	"hypotl",
	"ilogbl",
	"isinfl",
	"isnanl",
	"j0l",
	"j1l",
	"jnl",
	"ldexpl",
	"lgammal",
	"lgammal_r",
	"llrintl",
	"llroundl",
	"log10l",
	"log1pl",
	"log2l",
	"logbl",
	"logl",
	"lrintl",
	"lroundl",
	"modfl",
	"nanl",
	"nearbyintl",
	"nextafterl",
	"nexttoward",
	"nexttowardf",
	"nexttowardl",
	"powl",
	"qecvt",
	"qecvt_r",
	"qfcvt",
	"qfcvt_r",
	"qgcvt",
	"remainderl",
	"remquol",
	"rintl",
	"roundl",
	"scalbl",
	"scalblnl",
	"scalbnl",
	"significandl",
	"sinhl",
	"sinl",
	"sqrtl",
	"strtold",
	"tanhl",
	"tanl",
	"tgammal",
	"truncl",
	"y0l",
	"y1l",
	"ynl",
)

// BlockedFunction reports whether a function is left out of the bindings.
func BlockedFunction(name string) bool {
	return LongDoubleFunctions.Contains(name) || InternalSymbolPattern.MatchString(name)
}
