package requirement

import (
	"fmt"
	"strings"

	"github.com/matzehuels/pipios/pkg/errors"
	"github.com/matzehuels/pipios/pkg/specifier"
	"github.com/matzehuels/pipios/pkg/version"
)

// Predicate keys.
const (
	KeyPythonVersion         = "python_version"
	KeyPythonFullVersion     = "python_full_version"
	KeyImplementationVersion = "implementation_version"
	KeySysPlatform           = "sys_platform"
	KeyPlatformSystem        = "platform_system"
	KeyOSName                = "os_name"
	KeyPlatformMachine       = "platform_machine"
	KeyPythonImplementation  = "platform_python_implementation"
	KeyImplementationName    = "implementation_name"
	KeyExtra                 = "extra"
)

// KeyKind classifies predicate keys.
type KeyKind int

const (
	KindInterpreter KeyKind = iota // compared with version semantics
	KindPlatform                   // compared as strings
	KindFeature                    // matched against enabled flags
)

var keyKinds = map[string]KeyKind{
	KeyPythonVersion:         KindInterpreter,
	KeyPythonFullVersion:     KindInterpreter,
	KeyImplementationVersion: KindInterpreter,
	KeySysPlatform:           KindPlatform,
	KeyPlatformSystem:        KindPlatform,
	KeyOSName:                KindPlatform,
	KeyPlatformMachine:       KindPlatform,
	KeyPythonImplementation:  KindPlatform,
	KeyImplementationName:    KindPlatform,
	KeyExtra:                 KindFeature,
}

// keyAliases maps generic key spellings onto the canonical keys.
var keyAliases = map[string]string{
	"interpreter-version": KeyPythonVersion,
	"interpreter_version": KeyPythonVersion,
	"platform":            KeySysPlatform,
	"feature-flag":        KeyExtra,
	"feature_flag":        KeyExtra,
	"os.name":             KeyOSName,
	"sys.platform":        KeySysPlatform,
}

var predicateOps = map[string]bool{
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"~=": true, "===": true, "in": true, "not in": true,
}

var flippedOps = map[string]string{"<": ">", "<=": ">=", ">": "<", ">=": "<="}

// Predicate is a single (key, operator, value) environment test.
type Predicate struct {
	Key   string
	Op    string
	Value string
	// KeyRight is set when the value was written on the left, as in
	// '"win" in sys_platform'.
	KeyRight bool
}

// Kind returns the kind of the predicate's key.
func (p Predicate) Kind() KeyKind { return keyKinds[p.Key] }

// Evaluate reports whether the predicate holds in env.
func (p Predicate) Evaluate(env Environment) bool {
	if p.Kind() == KindFeature {
		enabled := env.HasFlag(p.Value)
		switch p.Op {
		case "==", "===":
			return enabled
		case "!=":
			return !enabled
		}
		return false
	}

	lhs, rhs := env.value(p.Key), p.Value
	if p.KeyRight {
		lhs, rhs = rhs, lhs
	}

	switch p.Op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	}

	if p.Kind() == KindInterpreter {
		if ok, handled := compareVersions(lhs, p.Op, rhs); handled {
			return ok
		}
	}
	return compareStrings(lhs, p.Op, rhs)
}

// compareVersions evaluates "lhs op rhs" with specifier semantics. handled is
// false when either side is not a version.
func compareVersions(lhs, op, rhs string) (ok, handled bool) {
	candidate, err := version.Parse(lhs)
	if err != nil {
		return false, false
	}
	spec, err := specifier.Parse(op + rhs)
	if err != nil {
		return false, false
	}
	return spec.Satisfies(candidate), true
}

func compareStrings(lhs, op, rhs string) bool {
	switch op {
	case "==", "===":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	}
	return false
}

// String renders the predicate in marker syntax.
func (p Predicate) String() string {
	if p.KeyRight {
		return `"` + p.Value + `" ` + p.Op + " " + p.Key
	}
	return p.Key + " " + p.Op + ` "` + p.Value + `"`
}

// PredicateGroup is a conjunction of predicates.
type PredicateGroup []Predicate

// Evaluate reports whether every predicate in the group holds.
func (g PredicateGroup) Evaluate(env Environment) bool {
	for _, p := range g {
		if !p.Evaluate(env) {
			return false
		}
	}
	return true
}

// ParsePredicates parses a predicate expression into disjunctive normal form.
// An empty expression yields no groups.
func ParsePredicates(text string) ([]PredicateGroup, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, nil
	}
	p := &markerParser{toks: toks, src: text}
	groups, err := p.expr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek().text)
	}
	return groups, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, errors.New(errors.ErrCodeSpecifierParse, "unterminated string in %q", s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case strings.IndexByte("<>=!~", c) >= 0:
			j := i
			for j < len(s) && strings.IndexByte("<>=!~", s[j]) >= 0 {
				j++
			}
			toks = append(toks, token{tokOp, s[i:j]})
			i = j
		case isIdentByte(c):
			j := i
			for j < len(s) && isIdentByte(s[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		default:
			return nil, errors.New(errors.ErrCodeSpecifierParse, "unexpected character %q in %q", c, s)
		}
	}
	return toks, nil
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.' || c == '*'
}

type markerParser struct {
	toks []token
	pos  int
	src  string
}

func (p *markerParser) done() bool  { return p.pos >= len(p.toks) }
func (p *markerParser) peek() token { return p.toks[p.pos] }

func (p *markerParser) keyword(word string) bool {
	if !p.done() && p.peek().kind == tokIdent && p.peek().text == word {
		p.pos++
		return true
	}
	return false
}

func (p *markerParser) errorf(format string, args ...any) error {
	return errors.New(errors.ErrCodeSpecifierParse, "predicates %q: %s", p.src, fmt.Sprintf(format, args...))
}

// expr := and (("or" | ",") and)*
func (p *markerParser) expr() ([]PredicateGroup, error) {
	groups, err := p.and()
	if err != nil {
		return nil, err
	}
	for !p.done() {
		if p.peek().kind == tokComma {
			p.pos++
		} else if !p.keyword("or") {
			break
		}
		more, err := p.and()
		if err != nil {
			return nil, err
		}
		groups = append(groups, more...)
	}
	return groups, nil
}

// and := atom ("and" atom)*
func (p *markerParser) and() ([]PredicateGroup, error) {
	groups, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		rhs, err := p.atom()
		if err != nil {
			return nil, err
		}
		groups = cross(groups, rhs)
	}
	return groups, nil
}

// cross distributes a conjunction over two disjunctions.
func cross(a, b []PredicateGroup) []PredicateGroup {
	out := make([]PredicateGroup, 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			g := make(PredicateGroup, 0, len(x)+len(y))
			g = append(append(g, x...), y...)
			out = append(out, g)
		}
	}
	return out
}

// atom := "(" expr ")" | operand op operand
func (p *markerParser) atom() ([]PredicateGroup, error) {
	if p.done() {
		return nil, p.errorf("unexpected end of expression")
	}
	if p.peek().kind == tokLParen {
		p.pos++
		groups, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.done() || p.peek().kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return groups, nil
	}

	left, err := p.operand()
	if err != nil {
		return nil, err
	}
	op, err := p.operator()
	if err != nil {
		return nil, err
	}
	right, err := p.operand()
	if err != nil {
		return nil, err
	}

	pred, err := p.predicate(left, op, right)
	if err != nil {
		return nil, err
	}
	return []PredicateGroup{{pred}}, nil
}

func (p *markerParser) operand() (token, error) {
	if p.done() {
		return token{}, p.errorf("unexpected end of expression")
	}
	t := p.peek()
	if t.kind != tokIdent && t.kind != tokString {
		return token{}, p.errorf("expected key or value, got %q", t.text)
	}
	p.pos++
	return t, nil
}

func (p *markerParser) operator() (string, error) {
	if p.done() {
		return "", p.errorf("missing operator")
	}
	t := p.peek()
	switch {
	case t.kind == tokOp && predicateOps[t.text]:
		p.pos++
		return t.text, nil
	case p.keyword("in"):
		return "in", nil
	case p.keyword("not"):
		if p.keyword("in") {
			return "not in", nil
		}
		return "", p.errorf("expected 'in' after 'not'")
	}
	return "", p.errorf("unknown operator %q", t.text)
}

// predicate builds a Predicate from two operands, one of which must be a key.
func (p *markerParser) predicate(left token, op string, right token) (Predicate, error) {
	if key, ok := lookupKey(left); ok {
		if _, both := lookupKey(right); both {
			return Predicate{}, p.errorf("comparison between two keys")
		}
		return Predicate{Key: key, Op: op, Value: right.text}, nil
	}
	if key, ok := lookupKey(right); ok {
		pred := Predicate{Key: key, Op: op, Value: left.text}
		if flipped, ok := flippedOps[op]; ok {
			pred.Op = flipped
		} else if op == "in" || op == "not in" || op == "~=" {
			pred.KeyRight = true
		}
		return pred, nil
	}
	return Predicate{}, p.errorf("unknown key in %q %s %q", left.text, op, right.text)
}

// lookupKey resolves an unquoted identifier to a canonical key.
func lookupKey(t token) (string, bool) {
	if t.kind != tokIdent {
		return "", false
	}
	name := strings.ToLower(t.text)
	if alias, ok := keyAliases[name]; ok {
		name = alias
	}
	_, ok := keyKinds[name]
	return name, ok
}
