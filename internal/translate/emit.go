package translate

import (
	"bytes"
	"fmt"
	"go/format"
	"strconv"
	"strings"

	"github.com/phuslu/log"

	"ffbind/pkg/models"
)

// Stats counts what one translation emitted.
type Stats struct {
	Records   int
	Opaque    int
	Enums     int
	Typedefs  int
	Constants int
	Functions int
	Variadic  int
	Variables int
}

type emitter struct {
	m      *typeMapper
	opts   *Options
	body   bytes.Buffer
	stats  Stats
	strcnv bool
}

func (e *emitter) printf(format string, args ...any) {
	fmt.Fprintf(&e.body, format, args...)
}

func (e *emitter) emit(u *unit, macros []*macro) ([]byte, error) {
	e.constants(macros)

	for _, d := range u.decls {
		switch d := d.(type) {
		case *record:
			e.record(d)
		case *enum:
			if err := e.enum(d); err != nil {
				return nil, err
			}
		case *typedef:
			e.typedef(d)
		}
	}

	if err := e.functions(u.funcs); err != nil {
		return nil, err
	}
	if err := e.variables(u.vars); err != nil {
		return nil, err
	}
	e.loader(u, majorVersions(macros))

	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by ffbind. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "//go:build %s\n\n", e.opts.Target.BuildConstraint())
	fmt.Fprintf(&out, "package %s\n\nimport (\n", e.opts.Package)
	if e.strcnv {
		out.WriteString("\t\"strconv\"\n")
	}
	fmt.Fprintf(&out, "\t\"unsafe\"\n\n\t%q\n)\n\n", e.opts.RuntimeImport)
	out.WriteString("var _ unsafe.Pointer\n\n")
	out.Write(e.body.Bytes())

	src, err := format.Source(out.Bytes())
	if err != nil {
		return nil, &Error{Stage: StageFormat, Err: err}
	}
	return src, nil
}

// --- constants ---

func (e *emitter) constants(macros []*macro) {
	if len(macros) == 0 {
		return
	}
	e.printf("const (\n")
	for _, m := range macros {
		switch m.kind {
		case macroString:
			e.printf("\t%s = %s\n", m.goName, strconv.Quote(m.text))
		case macroFloat:
			e.printf("\t%s = %s\n", m.goName, m.text)
		default:
			if t := m.typ.GoType(); t != "" {
				e.printf("\t%s %s = %s\n", m.goName, t, intLiteral(m))
			} else {
				e.printf("\t%s = %s\n", m.goName, intLiteral(m))
			}
		}
		e.stats.Constants++
	}
	e.printf(")\n\n")
}

// intLiteral renders an integer macro for its chosen type. Unsigned types
// take the two's-complement bits of a negative value.
func intLiteral(m *macro) string {
	switch m.typ {
	case models.MacroTypeUint32:
		return strconv.FormatUint(uint64(uint32(m.i)), 10)
	case models.MacroTypeUint64, models.MacroTypeSize:
		return strconv.FormatUint(uint64(m.i), 10)
	case models.MacroTypeInt32:
		return strconv.FormatInt(m.i, 10)
	}
	if m.unsigned && m.i < 0 {
		return strconv.FormatUint(uint64(m.i), 10)
	}
	return strconv.FormatInt(m.i, 10)
}

// --- records ---

func alignField(align int64) string {
	switch {
	case align >= 8:
		return "_ [0]uint64"
	case align >= 4:
		return "_ [0]uint32"
	case align >= 2:
		return "_ [0]uint16"
	}
	return ""
}

func (e *emitter) record(r *record) {
	e.stats.Records++
	if !r.complete {
		e.printf("// %s is incomplete in C and only used through pointers.\ntype %s struct{ _ [0]byte }\n\n", r.goName, r.goName)
		return
	}

	l, err := e.m.recordLayout(r)
	if err != nil {
		log.Warn().Str("record", r.cName()).Err(err).Msg("record has no layout, emitted as incomplete")
		e.printf("// %s has no computable layout and is only usable through pointers.\ntype %s struct{ _ [0]byte }\n\n", r.goName, r.goName)
		return
	}

	if e.opts.OpaqueTypes.Contains(r.cName()) {
		e.opaque(r, l)
		return
	}
	if r.union {
		e.union(r, l)
		return
	}

	body, err := e.structBody(r, l)
	if err != nil {
		log.Warn().Str("record", r.cName()).Err(err).Msg("record emitted opaque")
		e.opaque(r, l)
		return
	}
	e.printf("type %s struct {\n%s}\n\n", r.goName, body)
}

func (e *emitter) opaque(r *record, l *recordLayout) {
	e.stats.Opaque++
	e.printf("// %s is opaque: only its size and alignment are kept.\n", r.goName)
	e.printf("type %s struct {\n", r.goName)
	if f := alignField(l.align); f != "" {
		e.printf("\t%s\n", f)
	}
	e.printf("\t_ [%d]byte\n}\n\n", l.size)
}

func (e *emitter) structBody(r *record, l *recordLayout) (string, error) {
	var (
		lines          []string
		goOff, goAlign int64 = 0, 1
		names                = newNamespace("_")
	)

	for i := 0; i < len(r.fields); {
		f := r.fields[i]
		if f.bitfield {
			var (
				endBits int64
				members []string
				j       = i
			)
			for ; j < len(r.fields) && r.fields[j].bitfield; j++ {
				bf := r.fields[j]
				endBits = max(endBits, l.fields[j].offsetBits+bf.width)
				if bf.name != "" {
					members = append(members, fmt.Sprintf("%s:%d", bf.name, bf.width))
				}
			}
			if end := (endBits + 7) / 8; end > goOff {
				if len(members) > 0 {
					lines = append(lines, "// bit-fields "+strings.Join(members, " "))
				}
				lines = append(lines, fmt.Sprintf("_ [%d]byte", end-goOff))
				goOff = end
			}
			i = j
			continue
		}

		fl := l.fields[i]
		if e.m.vaListByValue(f.ctype) {
			return "", fmt.Errorf("%s embeds a va_list", f.name)
		}
		g, err := e.m.goType(f.ctype)
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.name, err)
		}

		if fl.size == 0 && i == len(r.fields)-1 {
			// A trailing zero-size Go field would add padding C does not have.
			lines = append(lines, fmt.Sprintf("// %s %s follows the struct in memory", fieldName(f.name), g))
			break
		}

		_, natural, err := e.m.layout(f.ctype)
		if err != nil {
			return "", err
		}
		ga := min(natural, 8)
		cOff := fl.offsetBits / 8
		if cOff%ga != 0 || alignUp(goOff, ga) > cOff {
			return "", fmt.Errorf("%s at offset %d is not representable", f.name, cOff)
		}
		if alignUp(goOff, ga) < cOff {
			lines = append(lines, fmt.Sprintf("_ [%d]byte", cOff-goOff))
		}

		if f.embedded {
			names.claim(g)
			lines = append(lines, g)
		} else {
			lines = append(lines, names.claim(fieldName(f.name))+" "+g)
		}
		goOff = cOff + fl.size
		goAlign = max(goAlign, ga)
		i++
	}

	if l.size > goOff {
		lines = append(lines, fmt.Sprintf("_ [%d]byte", l.size-goOff))
	}
	if min(l.align, 8) > goAlign {
		if f := alignField(l.align); f != "" {
			lines = append([]string{f}, lines...)
		}
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString("\t" + line + "\n")
	}
	return b.String(), nil
}

func (e *emitter) union(r *record, l *recordLayout) {
	e.printf("type %s struct {\n", r.goName)
	if f := alignField(l.align); f != "" {
		e.printf("\t%s\n", f)
	}
	if l.size > 0 {
		e.printf("\tRaw [%d]byte\n", l.size)
	}
	e.printf("}\n\n")

	methods := newNamespace("Raw")
	for _, f := range r.fields {
		if f.bitfield || e.m.vaListByValue(f.ctype) {
			continue
		}
		g, err := e.m.goType(f.ctype)
		if err != nil {
			log.Debug().Str("union", r.cName()).Str("member", f.name).Err(err).Msg("member has no accessor")
			continue
		}
		name := fieldName(f.name)
		if f.embedded {
			name = ExportName(strings.TrimPrefix(g, r.goName+"_"))
		}
		e.printf("func (u *%s) %s() *%s { return (*%s)(unsafe.Pointer(u)) }\n\n", r.goName, methods.claim(name), g, g)
	}
}

// --- enums ---

func (e *emitter) enum(en *enum) error {
	base, err := e.m.enumBase(en)
	if err != nil {
		return &Error{Stage: StageTypes, Decl: en.tag, Err: err}
	}
	e.stats.Enums++

	typ := base
	if en.goName != "" {
		typ = en.goName
		e.printf("type %s %s\n\n", en.goName, base)
	}
	if len(en.members) == 0 {
		return nil
	}

	cname := en.tag
	if cname == "" {
		cname = en.typedefName
	}

	var (
		kept []enumMember
		seen = map[int64]bool{}
	)
	e.printf("const (\n")
	for _, mem := range en.members {
		e.printf("\t%s %s = %d\n", mem.goName, typ, mem.value)
		if e.opts.Callbacks.EnumVariant(cname, mem.name, mem.value) == models.VariantConstify {
			continue
		}
		if seen[mem.value] {
			continue
		}
		seen[mem.value] = true
		kept = append(kept, mem)
	}
	e.printf(")\n\n")

	if en.goName == "" {
		return nil
	}

	e.strcnv = true
	format := "strconv.FormatInt(int64(v), 10)"
	if strings.HasPrefix(base, "uint") {
		format = "strconv.FormatUint(uint64(v), 10)"
	}

	e.printf("func (v %s) String() string {\n", en.goName)
	if len(kept) > 0 {
		e.printf("\tswitch v {\n")
		for _, mem := range kept {
			e.printf("\tcase %s:\n\t\treturn %q\n", mem.goName, mem.goName)
		}
		e.printf("\t}\n")
	}
	e.printf("\treturn %q + %s + \")\"\n}\n\n", en.goName+"(", format)

	e.printf("// Valid reports whether v is a declared %s.\n", en.goName)
	e.printf("func (v %s) Valid() bool {\n", en.goName)
	if len(kept) > 0 {
		names := make([]string, 0, len(kept))
		for _, mem := range kept {
			names = append(names, mem.goName)
		}
		e.printf("\tswitch v {\n\tcase %s:\n\t\treturn true\n\t}\n", strings.Join(names, ",\n\t\t"))
	}
	e.printf("\treturn false\n}\n\n")
	return nil
}

// --- typedefs ---

func (e *emitter) typedef(td *typedef) {
	if td.namesRecord != nil || td.namesEnum != nil {
		return
	}
	if _, ok := e.m.wellKnown[td.name]; ok || vaListNames[td.name] {
		return
	}
	g, err := e.m.goType(td.ctype)
	if err != nil {
		log.Debug().Str("typedef", td.name).Err(err).Msg("typedef skipped")
		return
	}
	if g == td.goName {
		return
	}
	e.stats.Typedefs++
	e.printf("type %s = %s\n\n", td.goName, g)
}

// --- functions and variables ---

func (e *emitter) signature(fn *CType) (string, error) {
	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		g, err := e.m.goType(p)
		if err != nil {
			return "", err
		}
		params = append(params, g)
	}
	sig := "func(" + strings.Join(params, ", ") + ")"
	if e.m.returnsVoid(fn) {
		return sig, nil
	}
	ret, err := e.m.goType(fn.Elem)
	if err != nil {
		return "", err
	}
	return sig + " " + ret, nil
}

func (e *emitter) functions(funcs []*function) error {
	var variadic []string
	e.printf("var (\n")
	for _, f := range funcs {
		if f.ctype.Variadic {
			variadic = append(variadic, f.name)
			continue
		}
		sig, err := e.signature(f.ctype)
		if err != nil {
			return &Error{Stage: StageTypes, Decl: f.name, Err: err}
		}
		e.printf("\t%s %s\n", f.goName, sig)
		e.stats.Functions++
	}
	e.printf(")\n\n")

	e.stats.Variadic = len(variadic)
	if len(variadic) > 0 {
		e.printf("// Variadic functions are not bound:\n")
		for _, line := range wrapNames(variadic, 72) {
			e.printf("//\t%s\n", line)
		}
		e.printf("\n")
	}
	return nil
}

func wrapNames(names []string, width int) []string {
	var (
		lines []string
		cur   string
	)
	for _, n := range names {
		if cur != "" && len(cur)+2+len(n) > width {
			lines = append(lines, cur)
			cur = ""
		}
		if cur != "" {
			cur += ", "
		}
		cur += n
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

func (e *emitter) variables(vars []*variable) error {
	if len(vars) == 0 {
		return nil
	}
	e.printf("var (\n")
	for _, v := range vars {
		g, err := e.m.goType(v.ctype)
		if err != nil {
			return &Error{Stage: StageTypes, Decl: v.name, Err: err}
		}
		e.printf("\t%s *%s\n", v.goName, g)
		e.stats.Variables++
	}
	e.printf(")\n\n")
	return nil
}

// majorVersions reads the LIB<NAME>_VERSION_MAJOR macros, keyed by the
// lower-case library name.
func majorVersions(macros []*macro) map[string]int {
	out := map[string]int{}
	for _, m := range macros {
		if m.kind != macroInt || !strings.HasPrefix(m.name, "LIB") || !strings.HasSuffix(m.name, "_VERSION_MAJOR") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(m.name, "LIB"), "_VERSION_MAJOR")
		if name != "" && m.i > 0 {
			out[strings.ToLower(name)] = int(m.i)
		}
	}
	return out
}

func (e *emitter) loader(u *unit, majors map[string]int) {
	libs := make([]string, 0, len(e.opts.Libraries))
	for _, l := range e.opts.Libraries {
		if major := majors[l]; major > 0 {
			libs = append(libs, fmt.Sprintf("{Name: %q, Major: %d}", l, major))
			continue
		}
		libs = append(libs, fmt.Sprintf("{Name: %q}", l))
	}
	e.printf("// Libraries lists the native libraries Load opens, in link order.\n")
	e.printf("var Libraries = []ffi.Lib{%s}\n\n", strings.Join(libs, ", "))

	e.printf("// Load opens Libraries, searching dirs before the system paths, and\n")
	e.printf("// binds every function and variable declared in this file. Symbols the\n")
	e.printf("// libraries do not export stay nil and are reported by Missing.\n")
	e.printf("func Load(dirs ...string) (*ffi.Library, error) {\n")
	e.printf("\tlib, err := ffi.Open(Libraries, dirs...)\n\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	for _, f := range u.funcs {
		if f.ctype.Variadic {
			continue
		}
		e.printf("\tlib.Bind(&%s, %q)\n", f.goName, f.name)
	}
	for _, v := range u.vars {
		e.printf("\tffi.Var(lib, &%s, %q)\n", v.goName, v.name)
	}
	e.printf("\treturn lib, nil\n}\n")
}
