package translate

import (
	"errors"
	"fmt"
)

// typeMapper maps C types onto Go types and C layouts for one target.
type typeMapper struct {
	u         *unit
	target    Target
	scalars   map[string]scalar
	wellKnown map[string]scalar
	layouts   map[*record]*recordLayout
	busy      map[*record]bool
}

func newTypeMapper(u *unit, target Target) *typeMapper {
	return &typeMapper{
		u:         u,
		target:    target,
		scalars:   target.scalars(),
		wellKnown: target.wellKnown(),
		layouts:   map[*record]*recordLayout{},
		busy:      map[*record]bool{},
	}
}

var errIncomplete = errors.New("incomplete type")

func unsupported(t *CType) error {
	return &UnsupportedTypeError{Type: t.String()}
}

func (m *typeMapper) recordFor(t *CType) *record {
	if t.Anon != "" {
		return m.u.recordsByPos[t.Anon]
	}
	if r := m.u.recordsByTag[t.Name]; r != nil {
		return r
	}
	// Clang prints a typedef-named anonymous record with the typedef name.
	if td := m.u.typedefs[t.Name]; td != nil && td.namesRecord != nil {
		return td.namesRecord
	}
	return nil
}

func (m *typeMapper) enumFor(t *CType) *enum {
	if t.Anon != "" {
		return m.u.enumsByPos[t.Anon]
	}
	if e := m.u.enumsByTag[t.Name]; e != nil {
		return e
	}
	if td := m.u.typedefs[t.Name]; td != nil && td.namesEnum != nil {
		return td.namesEnum
	}
	return nil
}

// resolve follows typedefs that are not mapped directly.
func (m *typeMapper) resolve(t *CType) *CType {
	for i := 0; t.Kind == KindTypedef && i < 64; i++ {
		if _, ok := m.wellKnown[t.Name]; ok || vaListNames[t.Name] {
			return t
		}
		td := m.u.typedefs[t.Name]
		if td == nil {
			return t
		}
		t = td.ctype
	}
	return t
}

// goType returns the Go spelling of t as a value type.
func (m *typeMapper) goType(t *CType) (string, error) {
	switch t.Kind {
	case KindBuiltin:
		if s, ok := m.scalars[t.Name]; ok {
			return s.goType, nil
		}
		return "", unsupported(t)

	case KindTypedef:
		if s, ok := m.wellKnown[t.Name]; ok {
			return s.goType, nil
		}
		if vaListNames[t.Name] {
			return "unsafe.Pointer", nil
		}
		td := m.u.typedefs[t.Name]
		if td == nil {
			return "", fmt.Errorf("unknown type %s", t.Name)
		}
		if _, err := m.goType(td.ctype); err != nil {
			return "", err
		}
		return td.goName, nil

	case KindRecord:
		r := m.recordFor(t)
		if r == nil {
			return "", fmt.Errorf("unknown type %s", t)
		}
		return r.goName, nil

	case KindEnum:
		e := m.enumFor(t)
		if e == nil {
			return "", fmt.Errorf("unknown type %s", t)
		}
		if e.goName == "" {
			return m.enumBase(e)
		}
		return e.goName, nil

	case KindPointer:
		elem := m.resolve(t.Elem)
		switch {
		case elem.Kind == KindFunc:
			return "uintptr", nil
		case elem.Kind == KindBuiltin && elem.Name == "void",
			elem.Kind == KindTypedef && vaListNames[elem.Name]:
			return "unsafe.Pointer", nil
		}
		g, err := m.goType(t.Elem)
		if err != nil {
			// Pointers to types with no Go spelling stay untyped.
			return "unsafe.Pointer", nil
		}
		return "*" + g, nil

	case KindArray:
		g, err := m.goType(t.Elem)
		if err != nil {
			return "", err
		}
		n := t.Len
		if n < 0 {
			n = 0
		}
		return fmt.Sprintf("[%d]%s", n, g), nil

	case KindFunc:
		return "", fmt.Errorf("function type %s used as a value", t)
	}
	return "", unsupported(t)
}

// enumBase is the Go integer type backing e.
func (m *typeMapper) enumBase(e *enum) (string, error) {
	if e.fixed != nil {
		return m.goType(e.fixed)
	}
	fits32, fitsU32 := true, true
	for _, mem := range e.members {
		if mem.value < -1<<31 || mem.value > 1<<31-1 {
			fits32 = false
		}
		if mem.value < 0 || mem.value > 1<<32-1 {
			fitsU32 = false
		}
	}
	switch {
	case fits32:
		return "int32", nil
	case fitsU32:
		return "uint32", nil
	}
	return "int64", nil
}

// returnsVoid reports whether a function type has no result.
func (m *typeMapper) returnsVoid(fn *CType) bool {
	r := m.resolve(fn.Elem)
	return r.Kind == KindBuiltin && r.Name == "void"
}

// layout returns the C size and alignment of t in bytes.
func (m *typeMapper) layout(t *CType) (size, align int64, err error) {
	switch t.Kind {
	case KindBuiltin:
		if s, ok := m.scalars[t.Name]; ok {
			return s.size, s.align, nil
		}
		if size, align, ok := m.target.unsupportedScalar(t.Name); ok {
			return size, align, nil
		}
		return 0, 0, unsupported(t)

	case KindTypedef:
		if s, ok := m.wellKnown[t.Name]; ok {
			return s.size, s.align, nil
		}
		if vaListNames[t.Name] {
			size, align := m.target.vaListLayout()
			return size, align, nil
		}
		td := m.u.typedefs[t.Name]
		if td == nil {
			return 0, 0, fmt.Errorf("unknown type %s", t.Name)
		}
		return m.layout(td.ctype)

	case KindRecord:
		r := m.recordFor(t)
		if r == nil {
			return 0, 0, fmt.Errorf("unknown type %s", t)
		}
		l, err := m.recordLayout(r)
		if err != nil {
			return 0, 0, err
		}
		return l.size, l.align, nil

	case KindEnum:
		e := m.enumFor(t)
		if e == nil {
			return 0, 0, fmt.Errorf("unknown type %s", t)
		}
		if e.fixed != nil {
			return m.layout(e.fixed)
		}
		base, err := m.enumBase(e)
		if err != nil {
			return 0, 0, err
		}
		if base == "int64" {
			return 8, 8, nil
		}
		return 4, 4, nil

	case KindPointer:
		return 8, 8, nil

	case KindArray:
		size, align, err := m.layout(t.Elem)
		if err != nil {
			return 0, 0, err
		}
		if t.Len < 0 {
			return 0, align, nil
		}
		return size * t.Len, align, nil
	}
	return 0, 0, unsupported(t)
}

// vaListByValue reports whether t embeds a va_list by value. Its Go stand-in
// is pointer sized, which would break the enclosing layout.
func (m *typeMapper) vaListByValue(t *CType) bool {
	for t.Kind == KindArray {
		t = t.Elem
	}
	t = m.resolve(t)
	return t.Kind == KindTypedef && vaListNames[t.Name]
}

// --- record layout ---

type fieldLayout struct {
	offsetBits int64
	size       int64
	align      int64
}

type recordLayout struct {
	size   int64
	align  int64
	fields []fieldLayout
}

func alignUp(n, a int64) int64 {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}

func (m *typeMapper) recordLayout(r *record) (*recordLayout, error) {
	if l, ok := m.layouts[r]; ok {
		return l, nil
	}
	if !r.complete {
		return nil, fmt.Errorf("%s: %w", r.cName(), errIncomplete)
	}
	if m.busy[r] {
		return nil, fmt.Errorf("%s contains itself", r.cName())
	}
	m.busy[r] = true
	defer delete(m.busy, r)

	var (
		l   *recordLayout
		err error
	)
	switch {
	case r.union:
		l, err = m.unionLayout(r)
	case m.target.GOOS == "windows":
		l, err = m.msStructLayout(r)
	default:
		l, err = m.sysvStructLayout(r)
	}
	if err != nil {
		return nil, err
	}
	m.layouts[r] = l
	return l, nil
}

func (m *typeMapper) fieldSizes(r *record) ([]fieldLayout, error) {
	out := make([]fieldLayout, len(r.fields))
	for i, f := range r.fields {
		size, align, err := m.layout(f.ctype)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", r.cName(), f.name, err)
		}
		if r.packed {
			align = 1
		}
		out[i] = fieldLayout{size: size, align: align}
	}
	return out, nil
}

// sysvStructLayout places fields as the System V psABI does: a bit-field
// shares the storage unit of its neighbours unless it would straddle an
// alignment boundary of its own type.
func (m *typeMapper) sysvStructLayout(r *record) (*recordLayout, error) {
	fields, err := m.fieldSizes(r)
	if err != nil {
		return nil, err
	}
	var off, maxAlign int64 = 0, 1
	for i, f := range r.fields {
		fl := &fields[i]
		unit := fl.align * 8
		if f.bitfield {
			switch {
			case f.width == 0:
				off = alignUp(off, fl.size*8)
			case !r.packed && off/unit != (off+f.width-1)/unit:
				off = alignUp(off, unit)
			}
			fl.offsetBits = off
			off += f.width
			if f.name != "" {
				maxAlign = max(maxAlign, fl.align)
			}
			continue
		}
		off = alignUp(off, unit)
		fl.offsetBits = off
		off += fl.size * 8
		maxAlign = max(maxAlign, fl.align)
	}
	return &recordLayout{
		size:   alignUp((off+7)/8, maxAlign),
		align:  maxAlign,
		fields: fields,
	}, nil
}

// msStructLayout places bit-fields as MSVC does: a run of bit-fields shares a
// unit only while the declared type size stays the same.
func (m *typeMapper) msStructLayout(r *record) (*recordLayout, error) {
	fields, err := m.fieldSizes(r)
	if err != nil {
		return nil, err
	}
	var off, maxAlign, unitSize, unitEnd int64 = 0, 1, 0, 0
	for i, f := range r.fields {
		fl := &fields[i]
		if f.bitfield {
			if f.width == 0 {
				if unitSize != 0 {
					off = unitEnd
				}
				unitSize = 0
				continue
			}
			if unitSize != fl.size || off+f.width > unitEnd {
				if unitSize != 0 {
					off = unitEnd
				}
				off = alignUp(off, fl.align*8)
				unitSize = fl.size
				unitEnd = off + fl.size*8
			}
			fl.offsetBits = off
			off += f.width
			maxAlign = max(maxAlign, fl.align)
			continue
		}
		if unitSize != 0 {
			off = unitEnd
			unitSize = 0
		}
		off = alignUp(off, fl.align*8)
		fl.offsetBits = off
		off += fl.size * 8
		maxAlign = max(maxAlign, fl.align)
	}
	if unitSize != 0 {
		off = unitEnd
	}
	return &recordLayout{
		size:   alignUp((off+7)/8, maxAlign),
		align:  maxAlign,
		fields: fields,
	}, nil
}

func (m *typeMapper) unionLayout(r *record) (*recordLayout, error) {
	fields, err := m.fieldSizes(r)
	if err != nil {
		return nil, err
	}
	var size, maxAlign int64 = 0, 1
	for i, f := range r.fields {
		fl := fields[i]
		s := fl.size
		if f.bitfield {
			s = (f.width + 7) / 8
		}
		size = max(size, s)
		maxAlign = max(maxAlign, fl.align)
	}
	return &recordLayout{
		size:   alignUp(size, maxAlign),
		align:  maxAlign,
		fields: fields,
	}, nil
}
