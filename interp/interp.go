// Package interp is a tree-walking interpreter for script functions.
package interp

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/eaburns/xform/native"
	"github.com/eaburns/xform/tree"
)

// MaxDepth is the maximum call depth.
const MaxDepth = 10000

type Interp struct {
	Out   io.Writer
	Trace bool

	globals map[string]Val
	pending []*pending
	depth   int
}

type frame struct {
	fn    string
	scope *tree.Scope
	slots []Val
	// extra holds variables that have no slot,
	// such as the parameters of inlined calls
	// in bodies that were not reduced.
	extra map[*tree.Var]*Val
	// outer is the frame enclosing a lambda's frame.
	outer *frame
}

type pending struct {
	stmt  *tree.WhenStmt
	frame *frame
}

// An Error is a run-time error.
type Error struct {
	Func string
	Msg  string
}

func (err *Error) Error() string {
	if err.Func == "" {
		return err.Msg
	}
	return err.Func + ": " + err.Msg
}

// New returns a new interpreter with the built-in globals bound.
func New() *Interp {
	interp := &Interp{
		Out:     os.Stdout,
		globals: make(map[string]Val),
	}
	for name, fn := range builtins {
		interp.globals[name] = Native{Name: name, Fn: fn}
	}
	return interp
}

var builtins = map[string]native.Func{
	"abs": func(args []int64) (int64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("abs: got %d arguments, expected 1", len(args))
		}
		if args[0] < 0 {
			return -args[0], nil
		}
		return args[0], nil
	},
	"min": func(args []int64) (int64, error) {
		if len(args) == 0 {
			return 0, fmt.Errorf("min: no arguments")
		}
		m := args[0]
		for _, a := range args[1:] {
			if a < m {
				m = a
			}
		}
		return m, nil
	},
	"max": func(args []int64) (int64, error) {
		if len(args) == 0 {
			return 0, fmt.Errorf("max: no arguments")
		}
		m := args[0]
		for _, a := range args[1:] {
			if a > m {
				m = a
			}
		}
		return m, nil
	},
}

// Load binds each function to the global of its name.
func (interp *Interp) Load(funcs []*tree.Func) {
	for _, f := range funcs {
		interp.globals[f.Name] = Func{Def: f}
	}
}

// Define binds a global to a native implementation,
// adding the global if it does not exist.
func (interp *Interp) Define(name string, fn native.Func) {
	interp.globals[name] = Native{Name: name, Fn: fn}
}

// Rebind binds an existing global to a native implementation.
// It returns false if there is no such global.
func (interp *Interp) Rebind(name string, fn native.Func) bool {
	if _, ok := interp.globals[name]; !ok {
		return false
	}
	interp.globals[name] = Native{Name: name, Fn: fn}
	return true
}

// Global returns the value of a global.
func (interp *Interp) Global(name string) (Val, bool) {
	v, ok := interp.globals[name]
	return v, ok
}

// Globals returns the sorted global names.
func (interp *Interp) Globals() []string {
	var names []string
	for name := range interp.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call calls the global function name with integer arguments.
func (interp *Interp) Call(name string, args ...int64) (res int64, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(*Error)
		if !ok {
			panic(r)
		}
		interp.depth = 0
		err = e
	}()
	fun, ok := interp.globals[name]
	if !ok {
		return 0, &Error{Msg: "undefined: " + name}
	}
	vals := make([]Val, len(args))
	for i, a := range args {
		vals[i] = Int(a)
	}
	v := interp.call(nil, fun, vals)
	n, ok := v.(Int)
	if !ok {
		return 0, &Error{Func: name, Msg: "returned non-integer " + v.String()}
	}
	return int64(n), nil
}

// Pending returns the number of suspended when statements.
func (interp *Interp) Pending() int { return len(interp.pending) }

// Drain re-evaluates the conditions of suspended when statements,
// running the bodies of those that hold,
// until no more can run.
// It returns the number of bodies run.
func (interp *Interp) Drain() (n int, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		e, ok := r.(*Error)
		if !ok {
			panic(r)
		}
		interp.depth = 0
		err = e
	}()
	for {
		ran := false
		todo := interp.pending
		interp.pending = nil
		for i, p := range todo {
			if ran {
				interp.pending = append(interp.pending, todo[i:]...)
				break
			}
			if isTrue(p.frame, interp.eval(p.frame, p.stmt.Cond)) {
				interp.exec(p.frame, p.stmt.Body)
				ran = true
				n++
				continue
			}
			interp.pending = append(interp.pending, p)
		}
		if !ran {
			return n, nil
		}
	}
}

func fail(fr *frame, f string, vs ...interface{}) {
	e := &Error{Msg: fmt.Sprintf(f, vs...)}
	if fr != nil {
		e.Func = fr.fn
	}
	panic(e)
}

func (interp *Interp) call(fr *frame, fun Val, args []Val) Val {
	interp.depth++
	defer func() { interp.depth-- }()
	if interp.depth > MaxDepth {
		fail(fr, "maximum call depth exceeded")
	}
	switch fun := fun.(type) {
	case Func:
		f := fun.Def
		if len(args) != len(f.Params) {
			fail(fr, "%s: got %d arguments, expected %d", f.Name, len(args), len(f.Params))
		}
		if interp.Trace {
			fmt.Printf("calling %s%v\n", f.Name, args)
		}
		n := f.FrameSize
		if n < f.Scope.Len() {
			n = f.Scope.Len()
		}
		callee := &frame{fn: f.Name, scope: f.Scope, slots: make([]Val, n)}
		for i, p := range f.Params {
			*callee.ref(p) = args[i]
		}
		return interp.body(callee, f.Body)
	case Closure:
		lam := fun.Lambda
		if len(args) != len(lam.Params) {
			fail(fr, "lambda: got %d arguments, expected %d", len(args), len(lam.Params))
		}
		callee := &frame{
			fn:    fun.env.fn,
			scope: lam.Scope,
			slots: make([]Val, lam.Scope.Len()),
			outer: fun.env,
		}
		for i, p := range lam.Params {
			*callee.ref(p) = args[i]
		}
		return interp.body(callee, lam.Body)
	case Native:
		ints := make([]int64, len(args))
		for i, a := range args {
			ints[i] = int64(intVal(fr, a))
		}
		n, err := fun.Fn(ints)
		if err != nil {
			fail(fr, "%s: %s", fun.Name, err)
		}
		return Int(n)
	default:
		fail(fr, "call of non-function %s", fun)
		panic("impossible")
	}
}

func (interp *Interp) body(fr *frame, s tree.Stmt) Val {
	if ctl, v := interp.exec(fr, s); ctl == ctlReturn && v != nil {
		return v
	}
	return Int(0)
}

// ref returns the location of a variable.
func (fr *frame) ref(v *tree.Var) *Val {
	f := fr
	for f.outer != nil && !f.scope.Contains(v) {
		f = f.outer
	}
	if v.Slot < 0 {
		if f.extra == nil {
			f.extra = make(map[*tree.Var]*Val)
		}
		p, ok := f.extra[v]
		if !ok {
			p = new(Val)
			f.extra[v] = p
		}
		return p
	}
	if v.Slot >= len(f.slots) {
		fail(fr, "%s: slot %d outside of frame of size %d", v.Name, v.Slot, len(f.slots))
	}
	return &f.slots[v.Slot]
}

func (fr *frame) load(v *tree.Var) Val {
	x := *fr.ref(v)
	if x == nil {
		fail(fr, "%s used before assignment", v.Name)
	}
	return x
}

type ctl int

const (
	ctlNone ctl = iota
	ctlBreak
	ctlReturn
)

func (interp *Interp) exec(fr *frame, s tree.Stmt) (ctl, Val) {
	if interp.Trace {
		if _, ok := s.(*tree.Block); !ok {
			fmt.Printf("%s: %s\n", fr.fn, s)
		}
	}
	switch s := s.(type) {
	case *tree.Block:
		for _, kid := range s.Stmts {
			if c, v := interp.exec(fr, kid); c != ctlNone {
				return c, v
			}
		}
	case *tree.LocalStmt:
		var v Val = Int(0)
		if s.Init != nil {
			v = interp.eval(fr, s.Init)
		}
		*fr.ref(s.Var) = v
	case *tree.AssignStmt:
		v := interp.eval(fr, s.Expr)
		*fr.ref(s.Var) = v
	case *tree.ExprStmt:
		interp.eval(fr, s.Expr)
	case *tree.PrintStmt:
		var strs []string
		for _, a := range s.Args {
			strs = append(strs, interp.eval(fr, a).String())
		}
		fmt.Fprintln(interp.Out, strings.Join(strs, ", "))
	case *tree.IfStmt:
		if isTrue(fr, interp.eval(fr, s.Cond)) {
			return interp.exec(fr, s.Then)
		} else if s.Else != nil {
			return interp.exec(fr, s.Else)
		}
	case *tree.WhileStmt:
		for {
			if s.Pre != nil {
				if c, v := interp.exec(fr, s.Pre); c != ctlNone {
					return c, v
				}
			}
			if !isTrue(fr, interp.eval(fr, s.Cond)) {
				break
			}
			c, v := interp.exec(fr, s.Body)
			if c == ctlBreak {
				break
			}
			if c == ctlReturn {
				return c, v
			}
		}
	case *tree.BreakStmt:
		return ctlBreak, nil
	case *tree.ReturnStmt:
		if s.Expr == nil {
			return ctlReturn, nil
		}
		return ctlReturn, interp.eval(fr, s.Expr)
	case *tree.WhenStmt:
		if isTrue(fr, interp.eval(fr, s.Cond)) {
			// A return ends only the when body.
			interp.exec(fr, s.Body)
			break
		}
		interp.pending = append(interp.pending, &pending{stmt: s, frame: fr})
	default:
		panic(fmt.Sprintf("impossible statement type %T", s))
	}
	return ctlNone, nil
}

func (interp *Interp) eval(fr *frame, e tree.Expr) Val {
	switch e := e.(type) {
	case *tree.Const:
		return Int(e.Val)
	case *tree.Name:
		return fr.load(e.Var)
	case *tree.Global:
		v, ok := interp.globals[e.Name]
		if !ok {
			fail(fr, "undefined: %s", e.Name)
		}
		return v
	case *tree.Call:
		fun := interp.eval(fr, e.Fun)
		args := make([]Val, len(e.Args))
		for i, a := range e.Args {
			args[i] = interp.eval(fr, a)
		}
		return interp.call(fr, fun, args)
	case *tree.Unary:
		x := intVal(fr, interp.eval(fr, e.X))
		switch e.Op {
		case tree.Neg:
			return -x
		case tree.Not:
			return truth(x == 0)
		}
		panic(fmt.Sprintf("impossible unary op %s", e.Op))
	case *tree.Binary:
		return interp.binary(fr, e)
	case *tree.Lambda:
		return Closure{Lambda: e, env: fr}
	case *tree.Inlined:
		args := make([]Val, len(e.Args))
		for i, a := range e.Args {
			args[i] = interp.eval(fr, a)
		}
		for i, p := range e.Params {
			*fr.ref(p) = args[i]
		}
		return interp.eval(fr, e.Body)
	default:
		panic(fmt.Sprintf("impossible expression type %T", e))
	}
}

func (interp *Interp) binary(fr *frame, e *tree.Binary) Val {
	switch e.Op {
	case tree.AndAnd:
		if !isTrue(fr, interp.eval(fr, e.X)) {
			return Int(0)
		}
		return truth(isTrue(fr, interp.eval(fr, e.Y)))
	case tree.OrOr:
		if isTrue(fr, interp.eval(fr, e.X)) {
			return Int(1)
		}
		return truth(isTrue(fr, interp.eval(fr, e.Y)))
	}
	x := intVal(fr, interp.eval(fr, e.X))
	y := intVal(fr, interp.eval(fr, e.Y))
	switch e.Op {
	case tree.Mul:
		return x * y
	case tree.Div:
		if y == 0 {
			fail(fr, "division by zero")
		}
		return x / y
	case tree.Mod:
		if y == 0 {
			fail(fr, "division by zero")
		}
		return x % y
	case tree.Add:
		return x + y
	case tree.Sub:
		return x - y
	case tree.Less:
		return truth(x < y)
	case tree.LessEq:
		return truth(x <= y)
	case tree.Greater:
		return truth(x > y)
	case tree.GreaterEq:
		return truth(x >= y)
	case tree.Eq:
		return truth(x == y)
	case tree.NotEq:
		return truth(x != y)
	}
	panic(fmt.Sprintf("impossible binary op %s", e.Op))
}

func intVal(fr *frame, v Val) Int {
	n, ok := v.(Int)
	if !ok {
		fail(fr, "%s is not an integer", v)
	}
	return n
}

func isTrue(fr *frame, v Val) bool { return intVal(fr, v) != 0 }
