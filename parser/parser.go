// Package parser parses script source into syntax trees.
package parser

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	"github.com/eaburns/peggy/peg"
	"github.com/eaburns/xform/loc"
	"github.com/eaburns/xform/tree"
)

// GlobalModule is the module of definitions outside of any module directive.
const GlobalModule = "GLOBAL"

// A Parser parses script files.
type Parser struct {
	Files []*tree.File
	// TrimPathPrefix is trimmed from file paths in error messages.
	TrimPathPrefix string

	offs    int
	globals []unlinked
}

type unlinked struct {
	module string
	global *tree.Global
}

// New returns a new parser.
func New() *Parser {
	return &Parser{offs: 1}
}

// Parse parses a file from an io.Reader.
// The first argument is the file path or "" if unspecified.
func (p *Parser) Parse(path string, r io.Reader) error {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	res, err := ParseData(path, data, p.offs)
	if err != nil {
		if perr, ok := err.(parseError); ok {
			perr.path = strings.TrimPrefix(perr.path, p.TrimPathPrefix)
			return perr
		}
		return err
	}
	p.Add(res)
	return nil
}

// ParseFile parses the source from a file path.
func (p *Parser) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Parse(path, f)
}

// Offset returns the location offset of the next file.
func (p *Parser) Offset() int { return p.offs }

// Add adds a file parsed by ParseData.
// The file must have been parsed at the Parser's current Offset.
func (p *Parser) Add(res *Result) {
	p.Files = append(p.Files, res.File)
	p.globals = append(p.globals, res.globals...)
	p.offs += res.File.Length
}

// Funcs returns all parsed functions in definition order.
func (p *Parser) Funcs() []*tree.Func {
	var funcs []*tree.Func
	for _, f := range p.Files {
		funcs = append(funcs, f.Funcs...)
	}
	return funcs
}

// Link resolves uses of global identifiers to script functions.
// An identifier used within a module first resolves
// to that module's definition, then to the global module.
// Unresolved identifiers are built-ins.
// If a function is defined more than once, the last definition wins.
func (p *Parser) Link() {
	defs := make(map[string]*tree.Func)
	for _, f := range p.Funcs() {
		defs[f.Name] = f
	}
	for _, u := range p.globals {
		g := u.global
		if u.module != GlobalModule && !strings.Contains(g.Name, "::") {
			if f, ok := defs[u.module+"::"+g.Name]; ok {
				g.Name = f.Name
				g.Func = f
				continue
			}
		}
		g.Func = defs[g.Name]
	}
}

// LocFiles returns the parsed files as a loc.Files.
func (p *Parser) LocFiles() loc.Files {
	var files loc.Files
	for _, f := range p.Files {
		files = append(files, f)
	}
	return files
}

// A Result is a single parsed file.
type Result struct {
	File    *tree.File
	globals []unlinked
}

// ParseData parses a file's contents with Locs starting at offs.
// It does not link global identifiers; see Parser.Add and Parser.Link.
func ParseData(path string, data []byte, offs int) (res *Result, err error) {
	text := string(data)
	file := &tree.File{Module: GlobalModule, P: path, Length: len(data)}
	for i, b := range data {
		if b == '\n' {
			file.NLs = append(file.NLs, i)
		}
	}
	toks, bad, want := lex(text)
	if bad >= 0 {
		return nil, newParseError(path, text, "Token", bad, want)
	}
	st := &state{
		path:   path,
		text:   text,
		offs:   offs,
		toks:   toks,
		file:   file,
		module: GlobalModule,
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch e := r.(type) {
		case parseError:
			err = e
		case semError:
			err = e
		default:
			panic(r)
		}
	}()
	st.parseFile()
	return &Result{File: file, globals: st.globals}, nil
}

// ImportsOnly returns the @load paths of a file.
func ImportsOnly(path string) ([]string, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	toks, bad, want := lex(string(data))
	if bad >= 0 {
		return nil, newParseError(path, string(data), "Token", bad, want)
	}
	var loads []string
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].kind == tokLoad && toks[i+1].kind == tokString {
			loads = append(loads, toks[i+1].text)
		}
	}
	return loads, nil
}

type parseError struct {
	path string
	text string
	fail *peg.Fail
}

func newParseError(path, text, rule string, pos int, want string) parseError {
	return parseError{
		path: path,
		text: text,
		fail: &peg.Fail{
			Name: rule,
			Pos:  pos,
			Kids: []*peg.Fail{{Pos: pos, Want: want}},
		},
	}
}

func (err parseError) Tree() *peg.Fail { return err.fail }

func (err parseError) Error() string {
	e := peg.SimpleError(err.text, err.fail)
	e.FilePath = err.path
	return e.Error()
}

// A semError is a well-formed but meaningless construct,
// such as assignment to an undeclared variable.
type semError struct {
	loc loc.Location
	msg string
}

func (err semError) Error() string {
	return fmt.Sprintf("%s: %s", err.loc, err.msg)
}

type state struct {
	path   string
	text   string
	offs   int
	toks   []token
	i      int
	file   *tree.File
	module string
	// scopes is the stack of function and lambda scopes,
	// innermost last.
	scopes  []*tree.Scope
	loops   int
	globals []unlinked
}

func (st *state) peek() token { return st.toks[st.i] }

func (st *state) next() token {
	t := st.toks[st.i]
	if t.kind != tokEOF {
		st.i++
	}
	return t
}

func (st *state) is(text string) bool {
	t := st.peek()
	return (t.kind == tokPunct || t.kind == tokIdent && keywords[t.text]) && t.text == text
}

func (st *state) accept(text string) bool {
	if st.is(text) {
		st.next()
		return true
	}
	return false
}

func (st *state) expect(rule, text string) token {
	if !st.is(text) {
		st.fail(rule, strconv.Quote(text))
	}
	return st.next()
}

func (st *state) fail(rule, want string) {
	panic(newParseError(st.path, st.text, rule, st.peek().pos, want))
}

func (st *state) semErr(l loc.Loc, f string, vs ...interface{}) {
	files := loc.Files{st.file}
	l[0] -= st.offs - 1
	l[1] -= st.offs - 1
	panic(semError{loc: files.Location(l), msg: fmt.Sprintf(f, vs...)})
}

func (st *state) loc(start, end int) loc.Loc {
	return loc.Loc{st.offs + start, st.offs + end}
}

// span returns the Loc from token index i to the last consumed token.
func (st *state) span(i int) loc.Loc {
	end := st.toks[i].end
	if st.i > 0 {
		end = st.toks[st.i-1].end
	}
	return st.loc(st.toks[i].pos, end)
}

func (st *state) ident(rule string) token {
	t := st.peek()
	if t.kind != tokIdent || keywords[t.text] {
		st.fail(rule, "identifier")
	}
	return st.next()
}

func (st *state) parseFile() {
	for st.peek().kind != tokEOF {
		switch t := st.peek(); {
		case t.kind == tokLoad:
			start := st.i
			st.next()
			s := st.peek()
			if s.kind != tokString {
				st.fail("Load", "string")
			}
			st.next()
			st.file.Loads = append(st.file.Loads, &tree.Load{Path: s.text, L: st.span(start)})
		case st.is("module"):
			st.next()
			st.module = st.ident("Module").text
			st.expect("Module", ";")
			if len(st.file.Funcs) == 0 {
				st.file.Module = st.module
			}
		case st.is("function"):
			st.parseFunc(tree.Function)
		case st.is("event"):
			st.parseFunc(tree.Event)
		case st.is("hook"):
			st.parseFunc(tree.Hook)
		default:
			st.fail("Def", `"function", "event", "hook", "module", or "@load"`)
		}
	}
}

func (st *state) parseFunc(kind tree.FuncKind) {
	start := st.i
	st.next()
	name := st.ident("Func").text
	if st.module != GlobalModule && !strings.Contains(name, "::") {
		name = st.module + "::" + name
	}
	f := &tree.Func{Kind: kind, Module: st.module, Name: name, Scope: tree.NewScope()}
	st.scopes = append(st.scopes, f.Scope)
	f.Params = st.parseParms(f.Scope)
	f.Body = st.parseBlock()
	st.scopes = st.scopes[:len(st.scopes)-1]
	f.FrameSize = f.Scope.Len()
	f.L = st.span(start)
	st.file.Funcs = append(st.file.Funcs, f)
}

func (st *state) parseParms(scope *tree.Scope) []*tree.Var {
	st.expect("Parms", "(")
	var parms []*tree.Var
	for !st.is(")") {
		if len(parms) > 0 {
			st.expect("Parms", ",")
		}
		t := st.ident("Parm")
		v, ok := scope.Add(t.text, st.loc(t.pos, t.end))
		if !ok {
			st.semErr(st.loc(t.pos, t.end), "parameter %s redefined", t.text)
		}
		v.Param = true
		parms = append(parms, v)
	}
	st.expect("Parms", ")")
	return parms
}

func (st *state) parseBlock() *tree.Block {
	start := st.i
	st.expect("Block", "{")
	b := &tree.Block{}
	for !st.is("}") {
		if st.peek().kind == tokEOF {
			st.fail("Block", `"}"`)
		}
		b.Stmts = append(b.Stmts, st.parseStmt())
	}
	st.next()
	b.L = st.span(start)
	return b
}

func (st *state) parseStmt() tree.Stmt {
	start := st.i
	switch {
	case st.is("{"):
		return st.parseBlock()
	case st.accept("local"):
		t := st.ident("Local")
		scope := st.scopes[len(st.scopes)-1]
		v, ok := scope.Add(t.text, st.loc(t.pos, t.end))
		if !ok {
			st.semErr(st.loc(t.pos, t.end), "%s redefined", t.text)
		}
		s := &tree.LocalStmt{Var: v}
		if st.accept("=") {
			s.Init = st.parseExpr()
		}
		st.expect("Local", ";")
		s.L = st.span(start)
		return s
	case st.accept("print"):
		s := &tree.PrintStmt{}
		for {
			s.Args = append(s.Args, st.parseExpr())
			if !st.accept(",") {
				break
			}
		}
		st.expect("Print", ";")
		s.L = st.span(start)
		return s
	case st.accept("if"):
		s := &tree.IfStmt{}
		st.expect("If", "(")
		s.Cond = st.parseExpr()
		st.expect("If", ")")
		s.Then = st.parseStmt()
		if st.accept("else") {
			s.Else = st.parseStmt()
		}
		s.L = st.span(start)
		return s
	case st.accept("while"):
		s := &tree.WhileStmt{}
		st.expect("While", "(")
		s.Cond = st.parseExpr()
		st.expect("While", ")")
		st.loops++
		s.Body = st.parseStmt()
		st.loops--
		s.L = st.span(start)
		return s
	case st.accept("break"):
		st.expect("Break", ";")
		l := st.span(start)
		if st.loops == 0 {
			st.semErr(l, "break outside of a loop")
		}
		return &tree.BreakStmt{L: l}
	case st.accept("return"):
		s := &tree.ReturnStmt{}
		if !st.is(";") {
			s.Expr = st.parseExpr()
		}
		st.expect("Return", ";")
		s.L = st.span(start)
		return s
	case st.accept("when"):
		s := &tree.WhenStmt{}
		st.expect("When", "(")
		s.Cond = st.parseExpr()
		st.expect("When", ")")
		loops := st.loops
		st.loops = 0
		s.Body = st.parseStmt()
		st.loops = loops
		s.L = st.span(start)
		return s
	}

	// Assignment or expression statement.
	if t := st.peek(); t.kind == tokIdent && !keywords[t.text] &&
		st.toks[st.i+1].kind == tokPunct && st.toks[st.i+1].text == "=" {
		st.next()
		st.next()
		v := st.lookup(t.text)
		if v == nil {
			st.semErr(st.loc(t.pos, t.end), "%s: undeclared local", t.text)
		}
		s := &tree.AssignStmt{Var: v, Expr: st.parseExpr()}
		st.expect("Assign", ";")
		s.L = st.span(start)
		return s
	}
	s := &tree.ExprStmt{Expr: st.parseExpr()}
	st.expect("Stmt", ";")
	s.L = st.span(start)
	return s
}

// lookup returns the local for a name from the innermost enclosing scope.
func (st *state) lookup(name string) *tree.Var {
	for i := len(st.scopes) - 1; i >= 0; i-- {
		if v := st.scopes[i].Lookup(name); v != nil {
			return v
		}
	}
	return nil
}

var binPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"<":  3, "<=": 3, ">": 3, ">=": 3, "==": 3, "!=": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

var binOps = map[string]tree.Op{
	"||": tree.OrOr,
	"&&": tree.AndAnd,
	"<":  tree.Less,
	"<=": tree.LessEq,
	">":  tree.Greater,
	">=": tree.GreaterEq,
	"==": tree.Eq,
	"!=": tree.NotEq,
	"+":  tree.Add,
	"-":  tree.Sub,
	"*":  tree.Mul,
	"/":  tree.Div,
	"%":  tree.Mod,
}

func (st *state) parseExpr() tree.Expr {
	return st.parseBinary(1)
}

func (st *state) parseBinary(prec int) tree.Expr {
	x := st.parseUnary()
	for {
		t := st.peek()
		p, ok := binPrec[t.text]
		if t.kind != tokPunct || !ok || p < prec {
			return x
		}
		st.next()
		y := st.parseBinary(p + 1)
		x = &tree.Binary{Op: binOps[t.text], X: x, Y: y, L: x.Loc().Join(y.Loc())}
	}
}

func (st *state) parseUnary() tree.Expr {
	t := st.peek()
	if t.kind == tokPunct && (t.text == "-" || t.text == "!") {
		st.next()
		x := st.parseUnary()
		op := tree.Neg
		if t.text == "!" {
			op = tree.Not
		}
		l := st.loc(t.pos, t.end).Join(x.Loc())
		if c, ok := x.(*tree.Const); ok && op == tree.Neg {
			return &tree.Const{Val: -c.Val, L: l}
		}
		return &tree.Unary{Op: op, X: x, L: l}
	}
	return st.parseCall()
}

func (st *state) parseCall() tree.Expr {
	x := st.parsePrimary()
	for st.is("(") {
		st.next()
		c := &tree.Call{Fun: x}
		for !st.is(")") {
			if len(c.Args) > 0 {
				st.expect("Args", ",")
			}
			c.Args = append(c.Args, st.parseExpr())
		}
		end := st.next()
		c.L = x.Loc().Join(st.loc(end.pos, end.end))
		x = c
	}
	return x
}

func (st *state) parsePrimary() tree.Expr {
	t := st.peek()
	switch {
	case t.kind == tokInt:
		st.next()
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			st.semErr(st.loc(t.pos, t.end), "bad integer %s: %s", t.text, err)
		}
		return &tree.Const{Val: n, L: st.loc(t.pos, t.end)}
	case st.is("("):
		st.next()
		x := st.parseExpr()
		st.expect("Primary", ")")
		return x
	case st.is("function"):
		return st.parseLambda()
	case t.kind == tokIdent && !keywords[t.text]:
		st.next()
		l := st.loc(t.pos, t.end)
		if v := st.lookup(t.text); v != nil {
			return &tree.Name{Var: v, L: l}
		}
		g := &tree.Global{Name: t.text, L: l}
		st.globals = append(st.globals, unlinked{module: st.module, global: g})
		return g
	}
	st.fail("Primary", "expression")
	panic("unreachable")
}

func (st *state) parseLambda() tree.Expr {
	start := st.i
	st.next()
	lam := &tree.Lambda{Scope: tree.NewScope()}
	st.scopes = append(st.scopes, lam.Scope)
	lam.Params = st.parseParms(lam.Scope)
	loops := st.loops
	st.loops = 0
	lam.Body = st.parseBlock()
	st.loops = loops
	st.scopes = st.scopes[:len(st.scopes)-1]
	lam.L = st.span(start)
	return lam
}
