package translate

import (
	"fmt"
	"strconv"

	"github.com/phuslu/log"
)

type record struct {
	id       string
	tag      string
	union    bool
	complete bool
	packed   bool
	pos      position
	fields   []field
	parent   *record
	// member is the field name of the parent this anonymous record types.
	member      string
	typedefName string
	goName      string
}

func (r *record) anonymous() bool { return r.tag == "" }

// cName is the name the record is known by in C, for messages and the
// opaque-type table.
func (r *record) cName() string {
	switch {
	case r.tag != "":
		return r.tag
	case r.typedefName != "":
		return r.typedefName
	}
	return "(anonymous at " + r.pos.String() + ")"
}

type field struct {
	name     string
	ctype    *CType
	bitfield bool
	width    int64
	// embedded marks a C11 anonymous struct or union member.
	embedded bool
	anon     *record
}

type enum struct {
	id          string
	tag         string
	pos         position
	fixed       *CType
	members     []enumMember
	typedefName string
	goName      string
}

type enumMember struct {
	name   string
	value  int64
	goName string
}

type typedef struct {
	name  string
	ctype *CType
	// names is the anonymous record or enum this typedef gives a name to.
	namesRecord *record
	namesEnum   *enum
	goName      string
}

type function struct {
	name   string
	ctype  *CType
	goName string
}

type variable struct {
	name   string
	ctype  *CType
	goName string
}

// unit is every declaration of the translation unit, in first-seen order.
type unit struct {
	decls []any

	recordsByTag map[string]*record
	recordsByID  map[string]*record
	recordsByPos map[string]*record
	enumsByTag   map[string]*enum
	enumsByID    map[string]*enum
	enumsByPos   map[string]*enum
	typedefs     map[string]*typedef
	constants    map[string]int64

	funcs    []*function
	funcSeen map[string]bool
	vars     []*variable
	varSeen  map[string]bool
}

func newUnit() *unit {
	return &unit{
		recordsByTag: map[string]*record{},
		recordsByID:  map[string]*record{},
		recordsByPos: map[string]*record{},
		enumsByTag:   map[string]*enum{},
		enumsByID:    map[string]*enum{},
		enumsByPos:   map[string]*enum{},
		typedefs:     map[string]*typedef{},
		constants:    map[string]int64{},
		funcSeen:     map[string]bool{},
		varSeen:      map[string]bool{},
	}
}

// collector turns top-level AST nodes into unit declarations.
type collector struct {
	u     *unit
	track locTracker
	skip  func(name string) bool
}

func (c *collector) add(n *node) error {
	pos := c.track.node(n)

	switch n.Kind {
	case "RecordDecl":
		_, err := c.record(n, pos, nil)
		return err
	case "EnumDecl":
		_, err := c.enum(n, pos)
		return err
	case "TypedefDecl":
		c.track.skip(n)
		return c.typedef(n)
	case "FunctionDecl":
		c.track.skip(n)
		return c.function(n)
	case "VarDecl":
		c.track.skip(n)
		return c.variable(n)
	default:
		c.track.skip(n)
	}
	return nil
}

func (c *collector) record(n *node, pos position, parent *record) (*record, error) {
	var r *record
	if n.Name != "" {
		r = c.u.recordsByTag[n.Name]
	}
	if r == nil {
		r = &record{id: n.ID, tag: n.Name, union: n.TagUsed == "union", pos: pos, parent: parent}
		if n.Name != "" {
			c.u.recordsByTag[n.Name] = r
		} else {
			c.u.recordsByPos[pos.String()] = r
		}
		c.u.decls = append(c.u.decls, r)
	}
	c.u.recordsByID[n.ID] = r

	if !n.CompleteDefinition {
		c.track.skip(n)
		return r, nil
	}
	if r.complete {
		log.Debug().Str("record", r.cName()).Msg("duplicate definition ignored")
		c.track.skip(n)
		return r, nil
	}
	r.complete = true

	var lastAnon *record
	for i := range n.Inner {
		child := &n.Inner[i]
		cpos := c.track.node(child)

		switch child.Kind {
		case "RecordDecl":
			nested, err := c.record(child, cpos, r)
			if err != nil {
				return nil, err
			}
			if nested.anonymous() {
				lastAnon = nested
			}
		case "EnumDecl":
			if _, err := c.enum(child, cpos); err != nil {
				return nil, err
			}
		case "FieldDecl":
			c.track.skip(child)
			f, err := c.field(child, lastAnon)
			if err != nil {
				return nil, &Error{Stage: StageDeclarations, Decl: r.cName(), Err: err}
			}
			r.fields = append(r.fields, f)
		case "PackedAttr":
			c.track.skip(child)
			r.packed = true
		default:
			c.track.skip(child)
		}
	}
	return r, nil
}

func (c *collector) field(n *node, lastAnon *record) (field, error) {
	if n.Type == nil {
		return field{}, fmt.Errorf("field %q without a type", n.Name)
	}
	t, err := ParseCType(n.Type.QualType)
	if err != nil {
		return field{}, err
	}
	f := field{name: n.Name, ctype: t, bitfield: n.IsBitfield}
	if f.bitfield {
		w, ok := constantValue(n.Inner, c.u.constants)
		if !ok {
			return field{}, fmt.Errorf("bit-field %q has no constant width", n.Name)
		}
		f.width = w
	}

	base := t
	for base.Kind == KindArray {
		base = base.Elem
	}
	if base.Kind == KindRecord && base.Anon != "" {
		f.anon = c.u.recordsByPos[base.Anon]
		if f.anon == nil {
			f.anon = lastAnon
		}
		if f.anon != nil && f.anon.member == "" {
			f.anon.member = n.Name
		}
		f.embedded = n.Name == "" && f.anon != nil
	}
	return f, nil
}

func (c *collector) enum(n *node, pos position) (*enum, error) {
	var e *enum
	if n.Name != "" {
		e = c.u.enumsByTag[n.Name]
	}
	if e == nil {
		e = &enum{id: n.ID, tag: n.Name, pos: pos}
		if n.Name != "" {
			c.u.enumsByTag[n.Name] = e
		} else {
			c.u.enumsByPos[pos.String()] = e
		}
		c.u.decls = append(c.u.decls, e)
	}
	c.u.enumsByID[n.ID] = e

	if n.FixedUnderlyingType != nil && e.fixed == nil {
		t, err := ParseCType(n.FixedUnderlyingType.QualType)
		if err != nil {
			return nil, &Error{Stage: StageDeclarations, Decl: n.Name, Err: err}
		}
		e.fixed = t
	}

	next := int64(0)
	for i := range n.Inner {
		child := &n.Inner[i]
		c.track.node(child)
		c.track.skip(child)
		if child.Kind != "EnumConstantDecl" {
			continue
		}
		v, ok := constantValue(child.Inner, c.u.constants)
		if !ok {
			if len(child.Inner) > 0 {
				return nil, &Error{Stage: StageDeclarations, Decl: child.Name, Err: fmt.Errorf("enumerator value is not a constant")}
			}
			v = next
		}
		e.members = append(e.members, enumMember{name: child.Name, value: v})
		c.u.constants[child.Name] = v
		next = v + 1
	}
	return e, nil
}

func (c *collector) typedef(n *node) error {
	if n.IsImplicit || n.Type == nil {
		return nil
	}
	if _, ok := c.u.typedefs[n.Name]; ok {
		return nil
	}
	t, err := ParseCType(n.Type.QualType)
	if err != nil {
		return &Error{Stage: StageDeclarations, Decl: n.Name, Err: err}
	}
	td := &typedef{name: n.Name, ctype: t}

	if t.Kind == KindRecord || t.Kind == KindEnum {
		id := ownedDecl(n.Inner)
		if r := c.u.recordsByID[id]; r != nil && r.anonymous() && r.typedefName == "" {
			r.typedefName = n.Name
			td.namesRecord = r
		}
		if e := c.u.enumsByID[id]; e != nil && e.tag == "" && e.typedefName == "" {
			e.typedefName = n.Name
			td.namesEnum = e
		}
	}

	c.u.typedefs[n.Name] = td
	c.u.decls = append(c.u.decls, td)
	return nil
}

// ownedDecl finds the record or enum a typedef's type node points at.
func ownedDecl(inner []node) string {
	for i := range inner {
		n := &inner[i]
		if n.OwnedTagDecl != nil {
			return n.OwnedTagDecl.ID
		}
		if n.Decl != nil && (n.Decl.Kind == "RecordDecl" || n.Decl.Kind == "EnumDecl") {
			return n.Decl.ID
		}
		if id := ownedDecl(n.Inner); id != "" {
			return id
		}
	}
	return ""
}

func (c *collector) function(n *node) error {
	switch {
	case n.IsImplicit, n.StorageClass == "static", n.Inline:
		return nil
	case c.u.funcSeen[n.Name]:
		return nil
	case c.skip(n.Name):
		log.Debug().Str("function", n.Name).Msg("function blocked")
		return nil
	}
	t, err := ParseCType(n.Type.QualType)
	if err != nil {
		return &Error{Stage: StageDeclarations, Decl: n.Name, Err: err}
	}
	if t.Kind != KindFunc {
		return &Error{Stage: StageDeclarations, Decl: n.Name, Err: fmt.Errorf("not a function type: %s", t)}
	}
	if n.Variadic {
		t.Variadic = true
	}
	c.u.funcSeen[n.Name] = true
	c.u.funcs = append(c.u.funcs, &function{name: n.Name, ctype: t})
	return nil
}

func (c *collector) variable(n *node) error {
	if n.StorageClass != "extern" || n.IsImplicit || c.u.varSeen[n.Name] {
		return nil
	}
	t, err := ParseCType(n.Type.QualType)
	if err != nil {
		return &Error{Stage: StageDeclarations, Decl: n.Name, Err: err}
	}
	c.u.varSeen[n.Name] = true
	c.u.vars = append(c.u.vars, &variable{name: n.Name, ctype: t})
	return nil
}

// constantValue reads the value of the first expression in inner. Clang
// attaches the folded value to ConstantExpr; bare expression trees are
// folded here.
func constantValue(inner []node, known map[string]int64) (int64, bool) {
	for i := range inner {
		if v, ok := foldExpr(&inner[i], known); ok {
			return v, true
		}
	}
	return 0, false
}

func foldExpr(n *node, known map[string]int64) (int64, bool) {
	if n.Value != "" {
		if v, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return v, true
		}
		if u, err := strconv.ParseUint(n.Value, 0, 64); err == nil {
			return int64(u), true
		}
	}
	switch n.Kind {
	case "ConstantExpr", "ParenExpr", "ImplicitCastExpr", "CStyleCastExpr":
		if len(n.Inner) == 1 {
			return foldExpr(&n.Inner[0], known)
		}
	case "DeclRefExpr":
		if n.ReferencedDecl != nil {
			v, ok := known[n.ReferencedDecl.Name]
			return v, ok
		}
	case "UnaryOperator":
		if len(n.Inner) != 1 {
			return 0, false
		}
		v, ok := foldExpr(&n.Inner[0], known)
		if !ok {
			return 0, false
		}
		switch n.Opcode {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		case "!":
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
	case "BinaryOperator":
		if len(n.Inner) != 2 {
			return 0, false
		}
		a, ok := foldExpr(&n.Inner[0], known)
		if !ok {
			return 0, false
		}
		b, ok := foldExpr(&n.Inner[1], known)
		if !ok {
			return 0, false
		}
		v, err := applyBinary(n.Opcode, value{v: uint64(a)}, value{v: uint64(b)})
		if err != nil {
			return 0, false
		}
		return int64(v.v), true
	}
	return 0, false
}
