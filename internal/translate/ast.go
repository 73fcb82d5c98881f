package translate

import (
	"encoding/json"
	"fmt"
	"io"
)

// node is the subset of clang's JSON AST dump the translator reads.
type node struct {
	ID                  string    `json:"id"`
	Kind                string    `json:"kind"`
	Name                string    `json:"name"`
	Loc                 *srcLoc   `json:"loc"`
	Range               *srcRange `json:"range"`
	Type                *qualType `json:"type"`
	TagUsed             string    `json:"tagUsed"`
	CompleteDefinition  bool      `json:"completeDefinition"`
	IsImplicit          bool      `json:"isImplicit"`
	StorageClass        string    `json:"storageClass"`
	Inline              bool      `json:"inline"`
	Variadic            bool      `json:"variadic"`
	IsBitfield          bool      `json:"isBitfield"`
	FixedUnderlyingType *qualType `json:"fixedUnderlyingType"`
	Value               string    `json:"value"`
	Opcode              string    `json:"opcode"`
	Decl                *declRef  `json:"decl"`
	OwnedTagDecl        *declRef  `json:"ownedTagDecl"`
	ReferencedDecl      *declRef  `json:"referencedDecl"`
	Inner               []node    `json:"inner"`
}

type qualType struct {
	QualType          string `json:"qualType"`
	DesugaredQualType string `json:"desugaredQualType"`
}

type declRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type srcLoc struct {
	File         string  `json:"file"`
	Line         int     `json:"line"`
	Col          int     `json:"col"`
	SpellingLoc  *srcLoc `json:"spellingLoc"`
	ExpansionLoc *srcLoc `json:"expansionLoc"`
}

type srcRange struct {
	Begin *srcLoc `json:"begin"`
	End   *srcLoc `json:"end"`
}

// locTracker recovers full locations. The dump omits "file" and "line" when
// they repeat the previously printed location, so every location has to be
// replayed in print order: loc, range begin, range end, then children.
type locTracker struct {
	file string
	line int
}

type position struct {
	File string
	Line int
	Col  int
}

func (p position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

func (t *locTracker) visit(l *srcLoc) position {
	if l == nil {
		return position{File: t.file, Line: t.line}
	}
	if l.SpellingLoc != nil || l.ExpansionLoc != nil {
		t.visit(l.SpellingLoc)
		return t.visit(l.ExpansionLoc)
	}
	if l.File != "" {
		t.file = l.File
	}
	if l.Line != 0 {
		t.line = l.Line
	}
	return position{File: t.file, Line: t.line, Col: l.Col}
}

// node visits n's own locations and returns its declared position.
func (t *locTracker) node(n *node) position {
	pos := t.visit(n.Loc)
	if n.Range != nil {
		t.visit(n.Range.Begin)
		t.visit(n.Range.End)
	}
	return pos
}

// skip replays the locations of everything below n.
func (t *locTracker) skip(n *node) {
	for i := range n.Inner {
		t.node(&n.Inner[i])
		t.skip(&n.Inner[i])
	}
}

// decodeTopLevel streams the translation unit's direct children to fn without
// holding the whole dump in memory.
func decodeTopLevel(r io.Reader, fn func(*node) error) error {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if key != "inner" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return err
		}
		for dec.More() {
			var n node
			if err := dec.Decode(&n); err != nil {
				return err
			}
			if err := fn(&n); err != nil {
				return err
			}
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("malformed AST dump: expected %q, got %v", want, tok)
	}
	return nil
}
