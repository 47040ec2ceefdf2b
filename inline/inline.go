// Package inline folds calls of small functions into their callers.
package inline

import (
	"github.com/eaburns/xform/loc"
	"github.com/eaburns/xform/opt"
	"github.com/eaburns/xform/tree"
)

// An Inliner expands calls to functions whose body is a single return
// of an expression.
// Only non-recursive plain functions without when statements
// or lambdas are expanded.
// Calls within when statements and lambdas are left alone.
type Inliner struct {
	log     *opt.Log
	bodies  map[*tree.Func]tree.Expr
	inlined map[*tree.Func]bool
}

// New returns an Inliner that has expanded the calls
// in the bodies of infos.
// Rewritten bodies replace those of the FuncInfos and their Funcs.
func New(infos []*opt.FuncInfo, nonRec *opt.FuncSet, log *opt.Log) *Inliner {
	in := &Inliner{
		log:     log,
		bodies:  make(map[*tree.Func]tree.Expr),
		inlined: make(map[*tree.Func]bool),
	}
	for _, fi := range infos {
		if e := inlinable(fi, nonRec); e != nil {
			in.bodies[fi.Func] = e
		}
	}
	for _, fi := range infos {
		body := in.stmt(fi.Name(), fi.Body)
		if body != fi.Body {
			fi.Func.ReplaceBody(fi.Body, body)
			fi.SetBody(body)
		}
	}
	return in
}

// NewOpt is New returning an opt.Inliner, for opt.Analysis.NewInliner.
func NewOpt(infos []*opt.FuncInfo, nonRec *opt.FuncSet, log *opt.Log) opt.Inliner {
	return New(infos, nonRec, log)
}

// WasInlined returns whether any call to f was expanded.
func (in *Inliner) WasInlined(f *tree.Func) bool { return in.inlined[f] }

// Inlinable returns whether calls to f are expanded.
func (in *Inliner) Inlinable(f *tree.Func) bool {
	_, ok := in.bodies[f]
	return ok
}

func inlinable(fi *opt.FuncInfo, nonRec *opt.FuncSet) tree.Expr {
	if fi.Func.Kind != tree.Function || !nonRec.Has(fi.Func) {
		return nil
	}
	if pf := fi.Profile; pf == nil || pf.NumWhenStmts > 0 || pf.NumLambdas > 0 {
		return nil
	}
	s := fi.Body
	for {
		b, ok := s.(*tree.Block)
		if !ok || len(b.Stmts) != 1 {
			break
		}
		s = b.Stmts[0]
	}
	ret, ok := s.(*tree.ReturnStmt)
	if !ok || ret.Expr == nil {
		return nil
	}
	return ret.Expr
}

func (in *Inliner) expand(caller string, f *tree.Func, args []tree.Expr, l loc.Loc) tree.Expr {
	x := &tree.Inlined{Callee: f, Args: args, L: l}
	sub := make(map[*tree.Var]*tree.Var, len(f.Params))
	for _, p := range f.Params {
		q := &tree.Var{Name: f.Name + "." + p.Name, Slot: -1, L: p.L}
		sub[p] = q
		x.Params = append(x.Params, q)
	}
	// The copy is new, so nested calls can be expanded in place.
	x.Body = in.expr(caller, tree.CopyExpr(in.bodies[f], sub))
	in.inlined[f] = true
	in.log.Debug(caller, opt.PhaseInline, "inlined %s into %s", f.Name, caller)
	return x
}

// stmt returns s with calls expanded.
// Unchanged statements are returned as is;
// changed statements are copied, never modified.
func (in *Inliner) stmt(caller string, s tree.Stmt) tree.Stmt {
	switch s := s.(type) {
	case *tree.Block:
		var stmts []tree.Stmt
		changed := false
		for _, kid := range s.Stmts {
			k := in.stmt(caller, kid)
			changed = changed || k != kid
			stmts = append(stmts, k)
		}
		if changed {
			return &tree.Block{Stmts: stmts, L: s.L}
		}
	case *tree.LocalStmt:
		if s.Init == nil {
			return s
		}
		if e := in.expr(caller, s.Init); e != s.Init {
			return &tree.LocalStmt{Var: s.Var, Init: e, L: s.L}
		}
	case *tree.AssignStmt:
		if e := in.expr(caller, s.Expr); e != s.Expr {
			return &tree.AssignStmt{Var: s.Var, Expr: e, L: s.L}
		}
	case *tree.ExprStmt:
		if e := in.expr(caller, s.Expr); e != s.Expr {
			return &tree.ExprStmt{Expr: e, L: s.L}
		}
	case *tree.PrintStmt:
		if args, ok := in.exprs(caller, s.Args); ok {
			return &tree.PrintStmt{Args: args, L: s.L}
		}
	case *tree.IfStmt:
		cond := in.expr(caller, s.Cond)
		then := in.stmt(caller, s.Then)
		els := s.Else
		if els != nil {
			els = in.stmt(caller, els)
		}
		if cond != s.Cond || then != s.Then || els != s.Else {
			return &tree.IfStmt{Cond: cond, Then: then, Else: els, L: s.L}
		}
	case *tree.WhileStmt:
		pre := s.Pre
		if pre != nil {
			pre = in.stmt(caller, pre)
		}
		cond := in.expr(caller, s.Cond)
		body := in.stmt(caller, s.Body)
		if pre != s.Pre || cond != s.Cond || body != s.Body {
			return &tree.WhileStmt{Pre: pre, Cond: cond, Body: body, L: s.L}
		}
	case *tree.ReturnStmt:
		if s.Expr == nil {
			return s
		}
		if e := in.expr(caller, s.Expr); e != s.Expr {
			return &tree.ReturnStmt{Expr: e, L: s.L}
		}
	}
	return s
}

func (in *Inliner) exprs(caller string, es []tree.Expr) ([]tree.Expr, bool) {
	var out []tree.Expr
	changed := false
	for _, e := range es {
		f := in.expr(caller, e)
		changed = changed || f != e
		out = append(out, f)
	}
	return out, changed
}

func (in *Inliner) expr(caller string, e tree.Expr) tree.Expr {
	switch e := e.(type) {
	case *tree.Call:
		fun := in.expr(caller, e.Fun)
		args, changed := in.exprs(caller, e.Args)
		if f := tree.StaticFunc(e); f != nil && in.Inlinable(f) && len(args) == len(f.Params) {
			return in.expand(caller, f, args, e.L)
		}
		if fun != e.Fun || changed {
			return &tree.Call{Fun: fun, Args: args, L: e.L}
		}
	case *tree.Unary:
		if x := in.expr(caller, e.X); x != e.X {
			return &tree.Unary{Op: e.Op, X: x, L: e.L}
		}
	case *tree.Binary:
		x := in.expr(caller, e.X)
		y := in.expr(caller, e.Y)
		if x != e.X || y != e.Y {
			return &tree.Binary{Op: e.Op, X: x, Y: y, L: e.L}
		}
	case *tree.Inlined:
		args, changed := in.exprs(caller, e.Args)
		body := in.expr(caller, e.Body)
		if changed || body != e.Body {
			return &tree.Inlined{Callee: e.Callee, Params: e.Params, Args: args, Body: body, L: e.L}
		}
	}
	return e
}
