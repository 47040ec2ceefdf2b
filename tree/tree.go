// Package tree is the syntax tree of script functions.
package tree

import (
	"strings"

	"github.com/eaburns/xform/loc"
)

// A File is a parsed script file.
type File struct {
	Module string
	Loads  []*Load
	Funcs  []*Func

	P      string
	NLs    []int
	Length int
}

func (f *File) Path() string    { return f.P }
func (f *File) NewLines() []int { return f.NLs }
func (f *File) Len() int        { return f.Length }

// A Load is an @load directive.
type Load struct {
	Path string
	L    loc.Loc
}

// FuncKind is the flavor of a script function.
type FuncKind int

const (
	Function FuncKind = iota
	Event
	Hook
)

func (k FuncKind) String() string {
	switch k {
	case Event:
		return "event"
	case Hook:
		return "hook"
	default:
		return "function"
	}
}

// A Func is a script function, event handler, or hook.
type Func struct {
	Kind   FuncKind
	Module string
	// Name is unique within Module.
	// For the global module it is unqualified,
	// otherwise it is Module::name.
	Name   string
	Params []*Var
	Scope  *Scope
	Body   Stmt
	// FrameSize is the number of slots the activation needs.
	// It is at least Scope.Len().
	FrameSize int
	L         loc.Loc
}

func (f *Func) Loc() loc.Loc { return f.L }

// ReplaceBody sets the body to new if the current body is old.
func (f *Func) ReplaceBody(old, new Stmt) {
	if f.Body == old {
		f.Body = new
	}
}

// SetFrameSize sets the frame size.
func (f *Func) SetFrameSize(n int) { f.FrameSize = n }

// A Scope maps the identifiers of a function to slots.
type Scope struct {
	Vars   []*Var
	byName map[string]*Var
}

// NewScope returns a new, empty scope.
func NewScope() *Scope {
	return &Scope{byName: make(map[string]*Var)}
}

// Len returns the number of slots of the scope.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Vars)
}

// Lookup returns the Var for a name, or nil.
func (s *Scope) Lookup(name string) *Var {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Contains returns whether v is one of the scope's variables.
func (s *Scope) Contains(v *Var) bool {
	return s != nil && v != nil && s.byName[v.Name] == v
}

// Add adds a new Var to the scope, assigned to the next slot.
// If the name is already defined, the existing Var is returned with false.
func (s *Scope) Add(name string, l loc.Loc) (*Var, bool) {
	if v, ok := s.byName[name]; ok {
		return v, false
	}
	v := &Var{Name: name, Slot: len(s.Vars), L: l}
	s.Vars = append(s.Vars, v)
	s.byName[name] = v
	return v, true
}

// A Var is a local variable, parameter, temporary, or inlined local.
type Var struct {
	Name  string
	Param bool
	// Temp is set for temporaries introduced by reduction.
	Temp bool
	// Slot is the frame slot of the variable.
	// It is -1 if the variable has no slot yet.
	Slot int
	L    loc.Loc
}

func (v *Var) Loc() loc.Loc { return v.L }

// A Node is a statement or an expression.
type Node interface {
	String() string
	Loc() loc.Loc
	buildString(*strings.Builder) *strings.Builder
}

type Stmt interface {
	Node
	isStmt()
}

type Expr interface {
	Node
	isExpr()
}

type Block struct {
	Stmts []Stmt
	L     loc.Loc
}

// A LocalStmt declares a local, optionally with an initial value.
type LocalStmt struct {
	Var  *Var
	Init Expr // nil if unspecified
	L    loc.Loc
}

type AssignStmt struct {
	Var  *Var
	Expr Expr
	L    loc.Loc
}

type ExprStmt struct {
	Expr Expr
	L    loc.Loc
}

type PrintStmt struct {
	Args []Expr
	L    loc.Loc
}

type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil if unspecified
	L    loc.Loc
}

type WhileStmt struct {
	// Pre is executed before each evaluation of Cond.
	// It is nil except in reduced bodies.
	Pre  Stmt
	Cond Expr
	Body Stmt
	L    loc.Loc
}

type BreakStmt struct {
	L loc.Loc
}

type ReturnStmt struct {
	Expr Expr // nil if unspecified
	L    loc.Loc
}

// A WhenStmt suspends the enclosing function
// until Cond holds, and then executes Body.
type WhenStmt struct {
	Cond Expr
	Body Stmt
	L    loc.Loc
}

func (*Block) isStmt()      {}
func (*LocalStmt) isStmt()  {}
func (*AssignStmt) isStmt() {}
func (*ExprStmt) isStmt()   {}
func (*PrintStmt) isStmt()  {}
func (*IfStmt) isStmt()     {}
func (*WhileStmt) isStmt()  {}
func (*BreakStmt) isStmt()  {}
func (*ReturnStmt) isStmt() {}
func (*WhenStmt) isStmt()   {}

func (s *Block) Loc() loc.Loc      { return s.L }
func (s *LocalStmt) Loc() loc.Loc  { return s.L }
func (s *AssignStmt) Loc() loc.Loc { return s.L }
func (s *ExprStmt) Loc() loc.Loc   { return s.L }
func (s *PrintStmt) Loc() loc.Loc  { return s.L }
func (s *IfStmt) Loc() loc.Loc     { return s.L }
func (s *WhileStmt) Loc() loc.Loc  { return s.L }
func (s *BreakStmt) Loc() loc.Loc  { return s.L }
func (s *ReturnStmt) Loc() loc.Loc { return s.L }
func (s *WhenStmt) Loc() loc.Loc   { return s.L }

type Const struct {
	Val int64
	L   loc.Loc
}

// A Name is a use of a local variable.
type Name struct {
	Var *Var
	L   loc.Loc
}

// A Global is a use of a global identifier.
type Global struct {
	Name string
	// Func is the script function named by the global,
	// or nil for a built-in.
	Func *Func
	L    loc.Loc
}

type Call struct {
	Fun  Expr
	Args []Expr
	L    loc.Loc
}

type Op int

const (
	Neg Op = iota + 1
	Not
	Mul
	Div
	Mod
	Add
	Sub
	Less
	LessEq
	Greater
	GreaterEq
	Eq
	NotEq
	AndAnd
	OrOr
)

var opStrings = [...]string{
	Neg:       "-",
	Not:       "!",
	Mul:       "*",
	Div:       "/",
	Mod:       "%",
	Add:       "+",
	Sub:       "-",
	Less:      "<",
	LessEq:    "<=",
	Greater:   ">",
	GreaterEq: ">=",
	Eq:        "==",
	NotEq:     "!=",
	AndAnd:    "&&",
	OrOr:      "||",
}

func (o Op) String() string {
	if o <= 0 || int(o) >= len(opStrings) {
		return "?"
	}
	return opStrings[o]
}

// IsCompare returns whether the operator is a comparison.
func (o Op) IsCompare() bool { return o >= Less && o <= NotEq }

type Unary struct {
	Op Op
	X  Expr
	L  loc.Loc
}

type Binary struct {
	Op   Op
	X, Y Expr
	L    loc.Loc
}

// A Lambda is an anonymous function closing over
// the variables of its enclosing function.
type Lambda struct {
	Params []*Var
	Scope  *Scope
	Body   Stmt
	L      loc.Loc
}

// An Inlined is a call site that the inliner expanded.
// Evaluation assigns Args to Params and then evaluates Body.
type Inlined struct {
	Callee *Func
	Params []*Var
	Args   []Expr
	Body   Expr
	L      loc.Loc
}

func (*Const) isExpr()   {}
func (*Name) isExpr()    {}
func (*Global) isExpr()  {}
func (*Call) isExpr()    {}
func (*Unary) isExpr()   {}
func (*Binary) isExpr()  {}
func (*Lambda) isExpr()  {}
func (*Inlined) isExpr() {}

func (e *Const) Loc() loc.Loc   { return e.L }
func (e *Name) Loc() loc.Loc    { return e.L }
func (e *Global) Loc() loc.Loc  { return e.L }
func (e *Call) Loc() loc.Loc    { return e.L }
func (e *Unary) Loc() loc.Loc   { return e.L }
func (e *Binary) Loc() loc.Loc  { return e.L }
func (e *Lambda) Loc() loc.Loc  { return e.L }
func (e *Inlined) Loc() loc.Loc { return e.L }

// IsSingleton returns whether e is a constant or a local name.
func IsSingleton(e Expr) bool {
	switch e.(type) {
	case *Const, *Name:
		return true
	}
	return false
}

// StaticFunc returns the script function called by c,
// or nil if the callee is a built-in or computed.
func StaticFunc(c *Call) *Func {
	if g, ok := c.Fun.(*Global); ok {
		return g.Func
	}
	return nil
}
