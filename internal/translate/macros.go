package translate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"ffbind/internal/policy"
	"ffbind/pkg/models"
)

type macroDef struct {
	name     string
	body     string
	file     string
	function bool
}

var lineMarker = regexp.MustCompile(`^#\s*(?:line\s+)?\d+\s+"((?:[^"\\]|\\.)*)"`)

// readMacroDefs reads `clang -E -dD` output and returns the object-like and
// function-like macros still defined at the end, in definition order.
// Definitions from the compiler's predefined buffers are skipped.
func readMacroDefs(r io.Reader) ([]*macroDef, error) {
	var (
		file  string
		order []*macroDef
		live  = map[string]*macroDef{}
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "#") {
			continue
		}
		if m := lineMarker.FindStringSubmatch(line); m != nil {
			file = strings.ReplaceAll(m[1], `\\`, `\`)
			continue
		}
		if strings.HasPrefix(file, "<") && file != "<stdin>" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#define "):
			def := parseDefine(strings.TrimPrefix(line, "#define "))
			if def == nil {
				continue
			}
			def.file = file
			live[def.name] = def
			order = append(order, def)
		case strings.HasPrefix(line, "#undef "):
			delete(live, strings.TrimSpace(strings.TrimPrefix(line, "#undef ")))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]*macroDef, 0, len(live))
	for _, def := range order {
		if live[def.name] == def {
			out = append(out, def)
		}
	}
	return out, nil
}

func parseDefine(rest string) *macroDef {
	i := 0
	for i < len(rest) && isIdentByte(rest[i]) {
		i++
	}
	if i == 0 {
		return nil
	}
	def := &macroDef{name: rest[:i]}
	if i < len(rest) && rest[i] == '(' {
		def.function = true
		return def
	}
	def.body = strings.TrimSpace(rest[i:])
	return def
}

type macroKind int

const (
	macroInt macroKind = iota
	macroFloat
	macroString
)

// macro is one evaluated constant, ready for emission.
type macro struct {
	name     string
	kind     macroKind
	i        int64
	unsigned bool
	// text is the Go literal for floats and the decoded value for strings.
	text   string
	typ    models.MacroType
	goName string
}

// evaluateMacros keeps the definitions that fold to a constant, typing
// integers through the callbacks. Anything else is dropped.
func evaluateMacros(defs []*macroDef, cb policy.Callbacks) []*macro {
	ev := newEvaluator(defs)
	var out []*macro
	for _, def := range defs {
		if def.function || def.body == "" {
			continue
		}
		if cb.WillParseMacro(def.name) == models.MacroIgnore {
			continue
		}
		m, err := ev.eval(def.name)
		if err != nil {
			continue
		}
		if m.kind == macroInt {
			m.typ = cb.IntMacro(def.name, m.i)
		}
		out = append(out, m)
	}
	return out
}

var errCycle = errors.New("macro refers to itself")

type evaluator struct {
	defs   map[string]*macroDef
	memo   map[string]*macro
	failed map[string]error
	active map[string]bool
}

func newEvaluator(defs []*macroDef) *evaluator {
	e := &evaluator{
		defs:   make(map[string]*macroDef, len(defs)),
		memo:   map[string]*macro{},
		failed: map[string]error{},
		active: map[string]bool{},
	}
	for _, d := range defs {
		e.defs[d.name] = d
	}
	return e
}

func (e *evaluator) eval(name string) (*macro, error) {
	if m, ok := e.memo[name]; ok {
		return m, nil
	}
	if err, ok := e.failed[name]; ok {
		return nil, err
	}
	def, ok := e.defs[name]
	if !ok || def.function {
		return nil, fmt.Errorf("%s is not an object-like macro", name)
	}
	if e.active[name] {
		return nil, errCycle
	}
	e.active[name] = true
	defer delete(e.active, name)

	m, err := e.evalBody(def.body)
	if err != nil {
		e.failed[name] = err
		return nil, err
	}
	m.name = name
	e.memo[name] = m
	return m, nil
}

func (e *evaluator) evalBody(body string) (*macro, error) {
	toks, err := lexExpr(body)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errors.New("empty")
	}

	if s, ok := stringLiterals(toks); ok {
		return &macro{kind: macroString, text: s}, nil
	}
	if f, ok := floatLiteral(toks); ok {
		return &macro{kind: macroFloat, text: f}, nil
	}

	p := &exprParser{toks: toks, ev: e}
	v, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(toks) {
		return nil, fmt.Errorf("unexpected %q", toks[p.pos].text)
	}
	return &macro{kind: macroInt, i: int64(v.v), unsigned: v.unsigned}, nil
}

// --- lexing ---

type tokKind int

const (
	tokNumber tokKind = iota
	tokIdent
	tokPunct
	tokChar
	tokString
)

type exprTok struct {
	kind tokKind
	text string
}

var puncts = []string{"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "+", "-", "*", "/", "%", "&", "|", "^", "~", "!", "<", ">", "(", ")", "?", ":", ","}

func lexExpr(s string) ([]exprTok, error) {
	var toks []exprTok
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			j := i
			hex := strings.HasPrefix(s[i:], "0x") || strings.HasPrefix(s[i:], "0X")
			for j < len(s) {
				ch := s[j]
				if isIdentByte(ch) || ch == '.' {
					j++
					continue
				}
				prev := s[j-1]
				if (ch == '+' || ch == '-') && (prev == 'p' || prev == 'P' || !hex && (prev == 'e' || prev == 'E')) {
					j++
					continue
				}
				break
			}
			toks = append(toks, exprTok{tokNumber, s[i:j]})
			i = j
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, exprTok{tokIdent, s[i:j]})
			i = j
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(s) && s[j] != c {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				return nil, fmt.Errorf("unterminated literal in %q", s)
			}
			kind := tokChar
			if c == '"' {
				kind = tokString
			}
			toks = append(toks, exprTok{kind, s[i+1 : j]})
			i = j + 1
		default:
			matched := false
			for _, p := range puncts {
				if strings.HasPrefix(s[i:], p) {
					toks = append(toks, exprTok{tokPunct, p})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("unexpected %q in %q", c, s)
			}
		}
	}
	return toks, nil
}

func stringLiterals(toks []exprTok) (string, bool) {
	var b strings.Builder
	for _, t := range toks {
		if t.kind != tokString {
			return "", false
		}
		s, err := unescapeC(t.text)
		if err != nil {
			return "", false
		}
		b.WriteString(s)
	}
	return b.String(), true
}

func floatLiteral(toks []exprTok) (string, bool) {
	for len(toks) >= 3 && toks[0].text == "(" && toks[len(toks)-1].text == ")" {
		toks = toks[1 : len(toks)-1]
	}
	sign := ""
	if len(toks) == 2 && toks[0].text == "-" {
		sign, toks = "-", toks[1:]
	}
	if len(toks) != 1 || toks[0].kind != tokNumber || !isFloatText(toks[0].text) {
		return "", false
	}
	text := strings.TrimRight(toks[0].text, "fFlL")
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return "", false
	}
	return sign + text, true
}

func isFloatText(s string) bool {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strings.ContainsAny(s, "pP")
	}
	return strings.ContainsAny(s, ".eE")
}

func parseIntLiteral(s string) (value, error) {
	digits := strings.TrimRight(s, "uUlL")
	suffix := s[len(digits):]
	if strings.ContainsAny(digits, ".") {
		return value{}, fmt.Errorf("%s is not an integer", s)
	}
	u, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		return value{}, err
	}
	return value{v: u, unsigned: strings.ContainsAny(suffix, "uU") || u > math.MaxInt64}, nil
}

func unescapeC(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.New("dangling escape")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\', '"', '\'', '?':
			b.WriteByte(s[i])
		case 'x':
			j := i + 1
			for j < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[j]) >= 0 {
				j++
			}
			v, err := strconv.ParseUint(s[i+1:j], 16, 8)
			if err != nil {
				return "", err
			}
			b.WriteByte(byte(v))
			i = j - 1
		default:
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			if j == i {
				return "", fmt.Errorf("unknown escape \\%c", s[i])
			}
			v, err := strconv.ParseUint(s[i:j], 8, 8)
			if err != nil {
				return "", err
			}
			b.WriteByte(byte(v))
			i = j - 1
		}
	}
	return b.String(), nil
}

// --- evaluation ---

// value is a C integer: 64 bits plus the signedness of its type.
type value struct {
	v        uint64
	unsigned bool
}

func (v value) signed() int64 { return int64(v.v) }

func boolValue(b bool) value {
	if b {
		return value{v: 1}
	}
	return value{}
}

var binaryPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

type exprParser struct {
	toks []exprTok
	pos  int
	ev   *evaluator
}

func (p *exprParser) peek() *exprTok {
	if p.pos >= len(p.toks) {
		return nil
	}
	return &p.toks[p.pos]
}

// expr parses a conditional expression whose binary operators bind at least
// as tightly as minPrec.
func (p *exprParser) expr(minPrec int) (value, error) {
	lhs, err := p.unary()
	if err != nil {
		return value{}, err
	}
	for {
		t := p.peek()
		if t == nil || t.kind != tokPunct {
			return lhs, nil
		}
		if t.text == "?" && minPrec == 0 {
			p.pos++
			a, err := p.expr(0)
			if err != nil {
				return value{}, err
			}
			if t := p.peek(); t == nil || t.text != ":" {
				return value{}, errors.New("missing : in conditional")
			}
			p.pos++
			b, err := p.expr(0)
			if err != nil {
				return value{}, err
			}
			if lhs.v != 0 {
				return a, nil
			}
			return b, nil
		}
		prec, ok := binaryPrec[t.text]
		if !ok || prec < minPrec {
			return lhs, nil
		}
		p.pos++
		rhs, err := p.expr(prec + 1)
		if err != nil {
			return value{}, err
		}
		if lhs, err = applyBinary(t.text, lhs, rhs); err != nil {
			return value{}, err
		}
	}
}

func (p *exprParser) unary() (value, error) {
	t := p.peek()
	if t == nil {
		return value{}, errors.New("unexpected end of expression")
	}
	p.pos++

	switch t.kind {
	case tokNumber:
		return parseIntLiteral(t.text)
	case tokChar:
		s, err := unescapeC(t.text)
		if err != nil || len(s) != 1 {
			return value{}, fmt.Errorf("unsupported character literal '%s'", t.text)
		}
		return value{v: uint64(int64(int8(s[0])))}, nil
	case tokIdent:
		if next := p.peek(); next != nil && next.text == "(" {
			return value{}, fmt.Errorf("%s(...) is a call", t.text)
		}
		m, err := p.ev.eval(t.text)
		if err != nil {
			return value{}, err
		}
		if m.kind != macroInt {
			return value{}, fmt.Errorf("%s is not an integer", t.text)
		}
		return value{v: uint64(m.i), unsigned: m.unsigned}, nil
	case tokString:
		return value{}, errors.New("string in integer expression")
	}

	switch t.text {
	case "(":
		v, err := p.expr(0)
		if err != nil {
			return value{}, err
		}
		if t := p.peek(); t == nil || t.text != ")" {
			return value{}, errors.New("missing )")
		}
		p.pos++
		return v, nil
	case "-":
		v, err := p.unary()
		return value{v: -v.v, unsigned: v.unsigned}, err
	case "+":
		return p.unary()
	case "~":
		v, err := p.unary()
		return value{v: ^v.v, unsigned: v.unsigned}, err
	case "!":
		v, err := p.unary()
		return boolValue(v.v == 0), err
	}
	return value{}, fmt.Errorf("unexpected %q", t.text)
}

func applyBinary(op string, a, b value) (value, error) {
	unsigned := a.unsigned || b.unsigned
	less := func() bool {
		if unsigned {
			return a.v < b.v
		}
		return a.signed() < b.signed()
	}

	switch op {
	case "+":
		return value{a.v + b.v, unsigned}, nil
	case "-":
		return value{a.v - b.v, unsigned}, nil
	case "*":
		return value{a.v * b.v, unsigned}, nil
	case "/", "%":
		if b.v == 0 {
			return value{}, errors.New("division by zero")
		}
		if unsigned {
			if op == "/" {
				return value{a.v / b.v, true}, nil
			}
			return value{a.v % b.v, true}, nil
		}
		if a.signed() == math.MinInt64 && b.signed() == -1 {
			return value{}, errors.New("division overflow")
		}
		if op == "/" {
			return value{uint64(a.signed() / b.signed()), false}, nil
		}
		return value{uint64(a.signed() % b.signed()), false}, nil
	case "<<", ">>":
		if b.v >= 64 {
			return value{}, errors.New("shift count too large")
		}
		if op == "<<" {
			return value{a.v << b.v, a.unsigned}, nil
		}
		if a.unsigned {
			return value{a.v >> b.v, true}, nil
		}
		return value{uint64(a.signed() >> b.v), false}, nil
	case "&":
		return value{a.v & b.v, unsigned}, nil
	case "|":
		return value{a.v | b.v, unsigned}, nil
	case "^":
		return value{a.v ^ b.v, unsigned}, nil
	case "==":
		return boolValue(a.v == b.v), nil
	case "!=":
		return boolValue(a.v != b.v), nil
	case "<":
		return boolValue(less()), nil
	case ">=":
		return boolValue(!less()), nil
	case ">":
		return boolValue(!less() && a.v != b.v), nil
	case "<=":
		return boolValue(less() || a.v == b.v), nil
	case "&&":
		return boolValue(a.v != 0 && b.v != 0), nil
	case "||":
		return boolValue(a.v != 0 || b.v != 0), nil
	}
	return value{}, fmt.Errorf("unsupported operator %s", op)
}
