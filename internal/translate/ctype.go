package translate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CKind classifies a parsed C type.
type CKind int

const (
	KindBuiltin CKind = iota
	KindTypedef
	KindRecord
	KindEnum
	KindPointer
	KindArray
	KindFunc
)

// CType is a C type as printed by clang, parsed into a tree.
type CType struct {
	Kind CKind
	// Name is the canonical builtin spelling, the typedef name or the tag.
	Name  string
	Union bool
	// Anon is the "file:line:col" of an unnamed record or enum.
	Anon string

	// Elem is the pointee, the array element or the function result.
	Elem *CType
	// Len is the array length, -1 for an incomplete array.
	Len      int64
	Params   []*CType
	Variadic bool
}

func (t *CType) String() string {
	switch t.Kind {
	case KindBuiltin, KindTypedef:
		return t.Name
	case KindRecord:
		tag := "struct"
		if t.Union {
			tag = "union"
		}
		if t.Anon != "" {
			return fmt.Sprintf("%s (anonymous at %s)", tag, t.Anon)
		}
		return tag + " " + t.Name
	case KindEnum:
		if t.Anon != "" {
			return fmt.Sprintf("enum (anonymous at %s)", t.Anon)
		}
		return "enum " + t.Name
	case KindPointer:
		return t.Elem.String() + " *"
	case KindArray:
		if t.Len < 0 {
			return t.Elem.String() + " []"
		}
		return fmt.Sprintf("%s [%d]", t.Elem, t.Len)
	case KindFunc:
		params := make([]string, 0, len(t.Params)+1)
		for _, p := range t.Params {
			params = append(params, p.String())
		}
		if t.Variadic {
			params = append(params, "...")
		}
		return fmt.Sprintf("%s (%s)", t.Elem, strings.Join(params, ", "))
	}
	return "?"
}

var (
	anonTagPattern = regexp.MustCompile(`\((?:unnamed|anonymous)(?: (struct|union|enum))? at ([^)]*)\)`)
	qualifiers     = map[string]bool{
		"const": true, "volatile": true, "restrict": true,
		"__restrict": true, "__restrict__": true, "_Nonnull": true,
		"_Nullable": true, "_Null_unspecified": true, "__unaligned": true,
		"__ptr32": true, "__ptr64": true, "__sptr": true, "__uptr": true,
	}
	builtinWords = map[string]bool{
		"void": true, "_Bool": true, "bool": true, "char": true, "short": true,
		"int": true, "long": true, "float": true, "double": true,
		"signed": true, "unsigned": true, "__int128": true, "_Float16": true,
		"_Float128": true, "__float128": true, "__fp16": true, "__bf16": true,
		"_Complex": true, "__signed": true, "__signed__": true,
	}
)

// ParseCType parses one type string as printed in clang's "qualType".
func ParseCType(s string) (*CType, error) {
	anon := map[string]anonTag{}
	s = anonTagPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := fmt.Sprintf("__anon%d", len(anon))
		sub := anonTagPattern.FindStringSubmatch(m)
		anon[key] = anonTag{kind: sub[1], loc: sub[2]}
		return key
	})
	s = stripAttributes(s)

	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &typeParser{toks: toks, anon: anon}
	t, err := p.typeName()
	if err != nil {
		return nil, fmt.Errorf("parse type %q: %w", s, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("parse type %q: trailing %q", s, p.peek())
	}
	return t, nil
}

func stripAttributes(s string) string {
	for {
		i := strings.Index(s, "__attribute__")
		if i < 0 {
			return s
		}
		depth, j := 0, i+len("__attribute__")
		for ; j < len(s); j++ {
			if s[j] == '(' {
				depth++
			} else if s[j] == ')' {
				depth--
				if depth == 0 {
					j++
					break
				}
			}
		}
		s = s[:i] + s[j:]
	}
}

func tokenize(s string) ([]string, error) {
	var toks []string
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case strings.HasPrefix(s[i:], "..."):
			toks = append(toks, "...")
			i += 3
		case strings.ContainsRune("*()[],^", rune(c)):
			toks = append(toks, string(c))
			i++
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			return nil, fmt.Errorf("unexpected %q in type %q", c, s)
		}
	}
	return toks, nil
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

type anonTag struct {
	kind string
	loc  string
}

type typeParser struct {
	toks []string
	pos  int
	anon map[string]anonTag
}

func (p *typeParser) done() bool { return p.pos >= len(p.toks) }

func (p *typeParser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

// typeName is specifiers followed by an abstract declarator.
func (p *typeParser) typeName() (*CType, error) {
	base, err := p.specifiers()
	if err != nil {
		return nil, err
	}
	return p.declarator(base)
}

func (p *typeParser) specifiers() (*CType, error) {
	var words []string
	var named *CType
	for !p.done() {
		tok := p.peek()
		if !isIdentByte(tok[0]) {
			break
		}
		p.next()
		switch {
		case qualifiers[tok]:
		case tok == "_Atomic":
			if p.peek() == "(" {
				p.next()
				inner, err := p.typeName()
				if err != nil {
					return nil, err
				}
				if p.next() != ")" {
					return nil, fmt.Errorf("unterminated _Atomic")
				}
				named = inner
			}
		case tok == "struct" || tok == "union" || tok == "enum":
			tag := p.next()
			if tag == "" || !isIdentByte(tag[0]) {
				return nil, fmt.Errorf("%s without a tag", tok)
			}
			kind := KindRecord
			if tok == "enum" {
				kind = KindEnum
			}
			named = &CType{Kind: kind, Union: tok == "union"}
			if a, ok := p.anon[tag]; ok {
				named.Anon = a.loc
			} else {
				named.Name = tag
			}
		case builtinWords[tok]:
			words = append(words, tok)
		default:
			if named != nil || len(words) > 0 {
				return nil, fmt.Errorf("unexpected identifier %q", tok)
			}
			if a, ok := p.anon[tok]; ok {
				kind := KindRecord
				if a.kind == "enum" {
					kind = KindEnum
				}
				named = &CType{Kind: kind, Union: a.kind == "union", Anon: a.loc}
				continue
			}
			named = &CType{Kind: KindTypedef, Name: tok}
		}
	}
	if named != nil {
		if len(words) > 0 {
			return nil, fmt.Errorf("mixed specifiers %v with %s", words, named)
		}
		return named, nil
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("missing type specifier")
	}
	name, err := canonicalBuiltin(words)
	if err != nil {
		return nil, err
	}
	return &CType{Kind: KindBuiltin, Name: name}, nil
}

func canonicalBuiltin(words []string) (string, error) {
	var unsigned, signed, char, short, intw, float, double, void, boolean, i128, f128, complex bool
	longs := 0
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed", "__signed", "__signed__":
			signed = true
		case "char":
			char = true
		case "short":
			short = true
		case "int":
			intw = true
		case "long":
			longs++
		case "float", "_Float16", "__fp16", "__bf16":
			float = true
		case "double":
			double = true
		case "void":
			void = true
		case "_Bool", "bool":
			boolean = true
		case "__int128":
			i128 = true
		case "_Float128", "__float128":
			f128 = true
		case "_Complex":
			complex = true
		}
	}
	prefix := ""
	if unsigned {
		prefix = "unsigned "
	}
	switch {
	case complex:
		return "_Complex", nil
	case void:
		return "void", nil
	case boolean:
		return "_Bool", nil
	case f128:
		return "_Float128", nil
	case i128:
		return prefix + "__int128", nil
	case double && longs > 0:
		return "long double", nil
	case double:
		return "double", nil
	case float:
		if len(words) == 1 && words[0] != "float" {
			return words[0], nil
		}
		return "float", nil
	case char:
		if signed {
			return "signed char", nil
		}
		return prefix + "char", nil
	case short:
		return prefix + "short", nil
	case longs >= 2:
		return prefix + "long long", nil
	case longs == 1:
		return prefix + "long", nil
	case intw, signed, unsigned:
		return prefix + "int", nil
	}
	return "", fmt.Errorf("unknown builtin %v", words)
}

// declarator applies pointers, grouping and suffixes to base, inside out.
func (p *typeParser) declarator(base *CType) (*CType, error) {
	for p.peek() == "*" || p.peek() == "^" {
		p.next()
		for qualifiers[p.peek()] {
			p.next()
		}
		base = &CType{Kind: KindPointer, Elem: base}
	}

	var inner []string
	if p.peek() == "(" && p.pos+1 < len(p.toks) && (p.toks[p.pos+1] == "*" || p.toks[p.pos+1] == "^") {
		p.next()
		start := p.pos
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
		inner = p.toks[start : p.pos-1]
	}

	var suffixes []func(*CType) *CType
	for p.peek() == "[" || p.peek() == "(" {
		if p.next() == "[" {
			n := int64(-1)
			if p.peek() != "]" {
				v, err := strconv.ParseInt(p.next(), 0, 64)
				if err != nil {
					return nil, fmt.Errorf("array length: %w", err)
				}
				n = v
			}
			if p.next() != "]" {
				return nil, fmt.Errorf("unterminated array")
			}
			suffixes = append(suffixes, func(t *CType) *CType {
				return &CType{Kind: KindArray, Elem: t, Len: n}
			})
			continue
		}
		params, variadic, err := p.params()
		if err != nil {
			return nil, err
		}
		suffixes = append(suffixes, func(t *CType) *CType {
			return &CType{Kind: KindFunc, Elem: t, Params: params, Variadic: variadic}
		})
	}

	t := base
	for i := len(suffixes) - 1; i >= 0; i-- {
		t = suffixes[i](t)
	}
	if inner == nil {
		return t, nil
	}
	sub := &typeParser{toks: inner, anon: p.anon}
	t, err := sub.declarator(t)
	if err != nil {
		return nil, err
	}
	if !sub.done() {
		return nil, fmt.Errorf("trailing %q in declarator", sub.peek())
	}
	return t, nil
}

// skipBalanced consumes up to and including the ")" closing an already
// consumed "(".
func (p *typeParser) skipBalanced() error {
	depth := 1
	for !p.done() {
		switch p.next() {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return nil
			}
		}
	}
	return fmt.Errorf("unbalanced parentheses")
}

func (p *typeParser) params() ([]*CType, bool, error) {
	var params []*CType
	if p.peek() == ")" {
		p.next()
		return nil, false, nil
	}
	for {
		if p.peek() == "..." {
			p.next()
			if p.next() != ")" {
				return nil, false, fmt.Errorf("... must be last")
			}
			return params, true, nil
		}
		t, err := p.typeName()
		if err != nil {
			return nil, false, err
		}
		params = append(params, t)
		switch p.next() {
		case ",":
		case ")":
			if len(params) == 1 && params[0].Kind == KindBuiltin && params[0].Name == "void" {
				params = nil
			}
			return params, false, nil
		default:
			return nil, false, fmt.Errorf("malformed parameter list")
		}
	}
}
