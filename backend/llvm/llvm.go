// Package llvm generates LLVM IR for script functions.
package llvm

import (
	"fmt"
	"io"

	"github.com/eaburns/xform/loc"
	"github.com/eaburns/xform/opt"
	"github.com/eaburns/xform/tree"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

type Option func(*gen)

// LocFiles specifies the source files for location information.
func LocFiles(files loc.Files) Option {
	return func(g *gen) { g.files = files }
}

// Log specifies where to report functions that cannot be compiled.
func Log(l *opt.Log) Option {
	return func(g *gen) { g.log = l }
}

// A Backend is an opt.CodeGen that generates LLVM IR.
type Backend struct {
	Options []Option
}

func (b Backend) Generate(w io.Writer, infos []*opt.FuncInfo) error {
	return Generate(w, infos, b.Options...)
}

// Generate writes an LLVM module with a definition
// for each compilable function.
//
// Functions with when statements or lambdas,
// that use function values or built-ins,
// or that call functions that cannot be compiled
// are reported and skipped.
func Generate(w io.Writer, infos []*opt.FuncInfo, opts ...Option) error {
	g := &gen{
		mod:   ir.NewModule(),
		funcs: make(map[*tree.Func]*ir.Func),
	}
	for _, o := range opts {
		o(g)
	}
	return g.generate(w, infos)
}

type gen struct {
	files loc.Files
	log   *opt.Log
	mod   *ir.Module
	funcs map[*tree.Func]*ir.Func

	printInt     *ir.Func
	printNewline *ir.Func
	divZero      *ir.Func

	// Per-function state.
	fun    *ir.Func
	entry  *ir.Block
	cur    *ir.Block
	vars   map[*tree.Var]value.Value
	breaks []*ir.Block
	next   int
}

type genError struct{ error }

func (g *gen) generate(w io.Writer, infos []*opt.FuncInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if gErr, ok := r.(genError); ok {
				err = gErr.error
			} else {
				panic(r)
			}
		}
	}()
	g.printInt = g.mod.NewFunc("xform_print_int", types.Void, ir.NewParam("", types.I64))
	g.printNewline = g.mod.NewFunc("xform_print_newline", types.Void)
	g.divZero = g.mod.NewFunc("xform_div_zero", types.Void)

	ok := g.compilable(infos)
	for _, fi := range infos {
		if !ok[fi.Func] {
			continue
		}
		var parms []*ir.Param
		for _, p := range fi.Func.Params {
			parms = append(parms, ir.NewParam(p.Name, types.I64))
		}
		g.funcs[fi.Func] = g.mod.NewFunc(fi.Name(), types.I64, parms...)
	}
	for _, fi := range infos {
		if ok[fi.Func] {
			g.writeFuncDef(fi)
		}
	}
	_, err = io.WriteString(w, g.mod.String())
	return err
}

// compilable returns the compilable functions.
func (g *gen) compilable(infos []*opt.FuncInfo) map[*tree.Func]bool {
	ok := make(map[*tree.Func]bool)
	calls := make(map[*tree.Func][]*tree.Func)
	for _, fi := range infos {
		if why := uncompilable(fi.Body, calls, fi.Func); why != "" {
			g.report(fi, why)
			continue
		}
		ok[fi.Func] = true
	}
	for changed := true; changed; {
		changed = false
		for _, fi := range infos {
			if !ok[fi.Func] {
				continue
			}
			for _, c := range calls[fi.Func] {
				if !ok[c] {
					ok[fi.Func] = false
					changed = true
					g.report(fi, "calls "+c.Name)
					break
				}
			}
		}
	}
	return ok
}

func (g *gen) report(fi *opt.FuncInfo, why string) {
	where := fi.Name()
	if l := g.files.Location(fi.Func.L); l != (loc.Location{}) {
		where = fmt.Sprintf("%s (%s)", fi.Name(), l)
	}
	g.log.Report(fi.Name(), opt.PhaseGenerate, "%s cannot be compiled: %s", where, why)
}

func uncompilable(body tree.Stmt, calls map[*tree.Func][]*tree.Func, f *tree.Func) string {
	var why string
	var visit func(tree.Node) bool
	visit = func(n tree.Node) bool {
		if why != "" {
			return false
		}
		switch n := n.(type) {
		case *tree.WhenStmt:
			why = `use of "when" statement`
		case *tree.Lambda:
			why = "use of lambda"
		case *tree.Global:
			why = "use of function value " + n.Name
		case *tree.Call:
			c := tree.StaticFunc(n)
			switch {
			case c == nil:
				if g, ok := n.Fun.(*tree.Global); ok {
					why = "call of built-in " + g.Name
				} else {
					why = "call of a function value"
				}
			case len(n.Args) != len(c.Params):
				why = "call of " + c.Name + " with wrong number of arguments"
			default:
				calls[f] = append(calls[f], c)
				// The callee is not a value here.
				for _, a := range n.Args {
					tree.Walk(a, visit)
				}
				return false
			}
		}
		return why == ""
	}
	tree.Walk(body, visit)
	return why
}

func (g *gen) writeFuncDef(fi *opt.FuncInfo) {
	g.fun = g.funcs[fi.Func]
	g.vars = make(map[*tree.Var]value.Value)
	g.breaks = nil
	g.next = 0
	g.entry = g.fun.NewBlock("entry")
	g.cur = g.entry
	for i, p := range fi.Func.Params {
		g.store(g.fun.Params[i], p)
	}
	g.stmt(fi.Body)
	if g.cur != nil {
		g.cur.NewRet(constant.NewInt(types.I64, 0))
	}
}

func (g *gen) block(prefix string) *ir.Block {
	g.next++
	return g.fun.NewBlock(fmt.Sprintf("%s.%d", prefix, g.next))
}

// alloca returns the stack slot of a variable.
// Slots are allocated in the entry block.
func (g *gen) alloca(v *tree.Var) value.Value {
	a, ok := g.vars[v]
	if !ok {
		inst := ir.NewAlloca(types.I64)
		inst.SetName(fmt.Sprintf("%s.%d", v.Name, len(g.vars)))
		zero := ir.NewStore(constant.NewInt(types.I64, 0), inst)
		g.entry.Insts = append([]ir.Instruction{inst, zero}, g.entry.Insts...)
		a = inst
		g.vars[v] = a
	}
	return a
}

func (g *gen) store(x value.Value, v *tree.Var) {
	a := g.alloca(v)
	g.cur.NewStore(x, a)
}

func (g *gen) stmt(s tree.Stmt) {
	if g.cur == nil {
		// Unreachable.
		return
	}
	switch s := s.(type) {
	case *tree.Block:
		for _, kid := range s.Stmts {
			g.stmt(kid)
		}
	case *tree.LocalStmt:
		var x value.Value = constant.NewInt(types.I64, 0)
		if s.Init != nil {
			x = g.expr(s.Init)
		}
		g.store(x, s.Var)
	case *tree.AssignStmt:
		g.store(g.expr(s.Expr), s.Var)
	case *tree.ExprStmt:
		g.expr(s.Expr)
	case *tree.PrintStmt:
		for _, a := range s.Args {
			x := g.expr(a)
			g.cur.NewCall(g.printInt, x)
		}
		g.cur.NewCall(g.printNewline)
	case *tree.IfStmt:
		cond := g.truth(g.expr(s.Cond))
		then := g.block("then")
		join := g.block("join")
		els := join
		if s.Else != nil {
			els = g.block("else")
		}
		g.cur.NewCondBr(cond, then, els)
		g.cur = then
		g.stmt(s.Then)
		g.jump(join)
		if s.Else != nil {
			g.cur = els
			g.stmt(s.Else)
			g.jump(join)
		}
		g.cur = join
	case *tree.WhileStmt:
		head := g.block("loop")
		body := g.block("body")
		exit := g.block("exit")
		g.jump(head)
		g.cur = head
		if s.Pre != nil {
			g.stmt(s.Pre)
		}
		g.cur.NewCondBr(g.truth(g.expr(s.Cond)), body, exit)
		g.cur = body
		g.breaks = append(g.breaks, exit)
		g.stmt(s.Body)
		g.breaks = g.breaks[:len(g.breaks)-1]
		g.jump(head)
		g.cur = exit
	case *tree.BreakStmt:
		g.jump(g.breaks[len(g.breaks)-1])
	case *tree.ReturnStmt:
		var x value.Value = constant.NewInt(types.I64, 0)
		if s.Expr != nil {
			x = g.expr(s.Expr)
		}
		g.cur.NewRet(x)
		g.cur = nil
	default:
		panic(genError{fmt.Errorf("%s: unsupported statement %s", g.fun.Name(), s)})
	}
}

// jump branches to b if the current block is reachable.
// The current block becomes unreachable.
func (g *gen) jump(b *ir.Block) {
	if g.cur != nil {
		g.cur.NewBr(b)
	}
	g.cur = nil
}

func (g *gen) truth(x value.Value) value.Value {
	return g.cur.NewICmp(enum.IPredNE, x, constant.NewInt(types.I64, 0))
}

func (g *gen) bool(x value.Value) value.Value {
	return g.cur.NewZExt(x, types.I64)
}

var preds = map[tree.Op]enum.IPred{
	tree.Less:      enum.IPredSLT,
	tree.LessEq:    enum.IPredSLE,
	tree.Greater:   enum.IPredSGT,
	tree.GreaterEq: enum.IPredSGE,
	tree.Eq:        enum.IPredEQ,
	tree.NotEq:     enum.IPredNE,
}

func (g *gen) expr(e tree.Expr) value.Value {
	switch e := e.(type) {
	case *tree.Const:
		return constant.NewInt(types.I64, e.Val)
	case *tree.Name:
		return g.cur.NewLoad(types.I64, g.alloca(e.Var))
	case *tree.Call:
		var args []value.Value
		for _, a := range e.Args {
			args = append(args, g.expr(a))
		}
		return g.cur.NewCall(g.funcs[tree.StaticFunc(e)], args...)
	case *tree.Unary:
		x := g.expr(e.X)
		if e.Op == tree.Neg {
			return g.cur.NewSub(constant.NewInt(types.I64, 0), x)
		}
		return g.bool(g.cur.NewICmp(enum.IPredEQ, x, constant.NewInt(types.I64, 0)))
	case *tree.Binary:
		return g.binary(e)
	case *tree.Inlined:
		for i, p := range e.Params {
			g.store(g.expr(e.Args[i]), p)
		}
		return g.expr(e.Body)
	default:
		panic(genError{fmt.Errorf("%s: unsupported expression %s", g.fun.Name(), e)})
	}
}

func (g *gen) binary(e *tree.Binary) value.Value {
	if e.Op == tree.AndAnd || e.Op == tree.OrOr {
		return g.logical(e)
	}
	x := g.expr(e.X)
	y := g.expr(e.Y)
	if p, ok := preds[e.Op]; ok {
		return g.bool(g.cur.NewICmp(p, x, y))
	}
	switch e.Op {
	case tree.Mul:
		return g.cur.NewMul(x, y)
	case tree.Add:
		return g.cur.NewAdd(x, y)
	case tree.Sub:
		return g.cur.NewSub(x, y)
	case tree.Div, tree.Mod:
		g.checkDivisor(y)
		if e.Op == tree.Div {
			return g.cur.NewSDiv(x, y)
		}
		return g.cur.NewSRem(x, y)
	}
	panic(genError{fmt.Errorf("%s: unsupported operator %s", g.fun.Name(), e.Op)})
}

func (g *gen) checkDivisor(y value.Value) {
	zero := g.block("divzero")
	ok := g.block("divok")
	g.cur.NewCondBr(g.cur.NewICmp(enum.IPredEQ, y, constant.NewInt(types.I64, 0)), zero, ok)
	zero.NewCall(g.divZero)
	zero.NewUnreachable()
	g.cur = ok
}

// logical lowers && and || with a stack slot for the result.
func (g *gen) logical(e *tree.Binary) value.Value {
	res := ir.NewAlloca(types.I64)
	g.entry.Insts = append([]ir.Instruction{res}, g.entry.Insts...)
	x := g.bool(g.truth(g.expr(e.X)))
	g.cur.NewStore(x, res)
	rhs := g.block("rhs")
	join := g.block("join")
	if e.Op == tree.AndAnd {
		g.cur.NewCondBr(g.truth(x), rhs, join)
	} else {
		g.cur.NewCondBr(g.truth(x), join, rhs)
	}
	g.cur = rhs
	g.cur.NewStore(g.bool(g.truth(g.expr(e.Y))), res)
	g.jump(join)
	g.cur = join
	return g.cur.NewLoad(types.I64, res)
}
