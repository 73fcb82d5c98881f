package translate

import (
	"fmt"
	"go/token"
	"strings"
)

// ExportName exports a C identifier the way cgo -godefs does: the first
// letter is upper-cased and a leading underscore gets an X prefix.
func ExportName(c string) string {
	if c == "" {
		return c
	}
	if c[0] == '_' {
		return "X" + c
	}
	return strings.ToUpper(c[:1]) + c[1:]
}

// namespace hands out unique Go identifiers. C keeps tags, ordinary
// identifiers and macros apart; Go has one scope, so a later claimant of a
// taken name gets an underscore suffix.
type namespace struct {
	used map[string]bool
}

func newNamespace(reserved ...string) *namespace {
	ns := &namespace{used: map[string]bool{}}
	for _, r := range reserved {
		ns.used[r] = true
	}
	return ns
}

func (ns *namespace) claim(name string) string {
	for ns.used[name] {
		name += "_"
	}
	ns.used[name] = true
	return name
}

// fieldName exports a struct member name, avoiding Go keywords.
func fieldName(c string) string {
	n := ExportName(c)
	if token.IsKeyword(n) {
		n += "_"
	}
	return n
}

// assignNames gives every declaration its Go identifier, in declaration order
// so that collisions resolve the same way on every run.
func assignNames(u *unit, macros []*macro, reserved []string) {
	ns := newNamespace(reserved...)
	anon := 0

	var nameRecord func(r *record)
	nameRecord = func(r *record) {
		if r.goName != "" {
			return
		}
		switch {
		case r.tag != "":
			r.goName = ns.claim(ExportName(r.tag))
		case r.typedefName != "":
			r.goName = ns.claim(ExportName(r.typedefName))
		case r.parent != nil:
			nameRecord(r.parent)
			member := r.member
			if member == "" {
				anon++
				member = fmt.Sprintf("anon%d", anon)
			}
			r.goName = ns.claim(r.parent.goName + "_" + member)
		default:
			anon++
			r.goName = ns.claim(fmt.Sprintf("Anon%d", anon))
		}
	}

	for _, d := range u.decls {
		switch d := d.(type) {
		case *record:
			nameRecord(d)
		case *enum:
			switch {
			case d.tag != "":
				d.goName = ns.claim(ExportName(d.tag))
			case d.typedefName != "":
				d.goName = ns.claim(ExportName(d.typedefName))
			}
			for i := range d.members {
				d.members[i].goName = ns.claim(ExportName(d.members[i].name))
			}
		case *typedef:
			switch {
			case d.namesRecord != nil:
				nameRecord(d.namesRecord)
				d.goName = d.namesRecord.goName
			case d.namesEnum != nil:
				d.goName = d.namesEnum.goName
			default:
				d.goName = sameNameTarget(u, d)
				if d.goName == "" {
					d.goName = ns.claim(ExportName(d.name))
				}
			}
		}
	}

	for _, m := range macros {
		m.goName = ns.claim(ExportName(m.name))
	}
	for _, f := range u.funcs {
		f.goName = ns.claim(ExportName(f.name))
	}
	for _, v := range u.vars {
		v.goName = ns.claim(ExportName(v.name))
	}
}

// sameNameTarget returns the Go name of the tag a typedef repeats, as in
// "typedef struct AVFrame AVFrame". Such a typedef is not emitted.
func sameNameTarget(u *unit, td *typedef) string {
	t := td.ctype
	switch t.Kind {
	case KindRecord:
		if r := u.recordsByTag[t.Name]; r != nil && r.tag == td.name {
			return r.goName
		}
	case KindEnum:
		if e := u.enumsByTag[t.Name]; e != nil && e.tag == td.name {
			return e.goName
		}
	}
	return ""
}
