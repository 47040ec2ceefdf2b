package opt

import (
	"fmt"
	"regexp"

	"github.com/eaburns/xform/loc"
	"github.com/eaburns/xform/tree"
)

// A Reducer rewrites a body into reduced form:
// three-address statements over singleton operands.
//
// The reducer never modifies its input.
// Every statement and expression of the result is newly allocated,
// except for the scope's variables, which are shared.
type Reducer struct {
	scope    *tree.Scope
	nextSlot int
	numTemps int
	numNew   int
	// vars maps variables outside of the scope,
	// such as inlined parameters and earlier temporaries,
	// to their replacements.
	vars map[*tree.Var]*tree.Var
}

// NewReducer returns a Reducer for bodies bound to scope.
func NewReducer(scope *tree.Scope) *Reducer {
	return &Reducer{
		scope:    scope,
		nextSlot: scope.Len(),
		vars:     make(map[*tree.Var]*tree.Var),
	}
}

// NumTemps returns the number of temporaries introduced.
func (rc *Reducer) NumTemps() int { return rc.numTemps }

// NumNewLocals returns the number of non-temporary locals introduced,
// such as the parameters of inlined calls.
func (rc *Reducer) NumNewLocals() int { return rc.numNew }

// Reduce returns the reduced form of body.
func (rc *Reducer) Reduce(body tree.Stmt) tree.Stmt {
	var out []tree.Stmt
	rc.stmt(body, &out)
	if len(out) == 1 {
		if b, ok := out[0].(*tree.Block); ok {
			return b
		}
	}
	return &tree.Block{Stmts: out, L: body.Loc()}
}

func (rc *Reducer) temp() *tree.Var {
	v := &tree.Var{Name: fmt.Sprintf("#%d", rc.numTemps), Temp: true, Slot: rc.nextSlot}
	rc.numTemps++
	rc.nextSlot++
	return v
}

var localSuffix = regexp.MustCompile(`\.[0-9]+$`)

// newLocal returns a new local named after name.
// A previous numeric suffix of name is replaced.
func (rc *Reducer) newLocal(name string, l loc.Loc) *tree.Var {
	name = localSuffix.ReplaceAllString(name, "")
	v := &tree.Var{Name: fmt.Sprintf("%s.%d", name, rc.numNew), Slot: rc.nextSlot, L: l}
	rc.numNew++
	rc.nextSlot++
	return v
}

func (rc *Reducer) mapVar(v *tree.Var) *tree.Var {
	if rc.scope.Contains(v) {
		return v
	}
	if w, ok := rc.vars[v]; ok {
		return w
	}
	var w *tree.Var
	if v.Temp {
		w = rc.temp()
	} else {
		w = rc.newLocal(v.Name, v.L)
	}
	rc.vars[v] = w
	return w
}

func (rc *Reducer) block(s tree.Stmt) *tree.Block {
	var out []tree.Stmt
	rc.stmt(s, &out)
	if len(out) == 1 {
		if b, ok := out[0].(*tree.Block); ok {
			return b
		}
	}
	return &tree.Block{Stmts: out, L: s.Loc()}
}

func (rc *Reducer) stmt(s tree.Stmt, out *[]tree.Stmt) {
	switch s := s.(type) {
	case *tree.Block:
		b := &tree.Block{L: s.L}
		for _, kid := range s.Stmts {
			rc.stmt(kid, &b.Stmts)
		}
		*out = append(*out, b)
	case *tree.LocalStmt:
		v := rc.mapVar(s.Var)
		if s.Init == nil {
			*out = append(*out, &tree.LocalStmt{Var: v, L: s.L})
			return
		}
		rhs := rc.rhs(s.Init, out)
		*out = append(*out, &tree.AssignStmt{Var: v, Expr: rhs, L: s.L})
	case *tree.AssignStmt:
		rhs := rc.rhs(s.Expr, out)
		*out = append(*out, &tree.AssignStmt{Var: rc.mapVar(s.Var), Expr: rhs, L: s.L})
	case *tree.ExprStmt:
		switch e := rc.rhs(s.Expr, out).(type) {
		case *tree.Call:
			*out = append(*out, &tree.ExprStmt{Expr: e, L: s.L})
		case *tree.Unary, *tree.Binary:
			// Keep the evaluation for its run-time errors.
			*out = append(*out, &tree.AssignStmt{Var: rc.temp(), Expr: e, L: s.L})
		}
	case *tree.PrintStmt:
		p := &tree.PrintStmt{L: s.L}
		for _, a := range s.Args {
			p.Args = append(p.Args, rc.singleton(a, out))
		}
		*out = append(*out, p)
	case *tree.IfStmt:
		r := &tree.IfStmt{Cond: rc.cond(s.Cond, out), L: s.L}
		r.Then = rc.block(s.Then)
		if s.Else != nil {
			r.Else = rc.block(s.Else)
		}
		*out = append(*out, r)
	case *tree.WhileStmt:
		var pre []tree.Stmt
		if s.Pre != nil {
			rc.stmt(s.Pre, &pre)
			if len(pre) == 1 {
				if b, ok := pre[0].(*tree.Block); ok {
					pre = b.Stmts
				}
			}
		}
		w := &tree.WhileStmt{Cond: rc.cond(s.Cond, &pre), L: s.L}
		if len(pre) > 0 {
			w.Pre = &tree.Block{Stmts: pre, L: s.Cond.Loc()}
		}
		w.Body = rc.block(s.Body)
		*out = append(*out, w)
	case *tree.BreakStmt:
		*out = append(*out, &tree.BreakStmt{L: s.L})
	case *tree.ReturnStmt:
		r := &tree.ReturnStmt{L: s.L}
		if s.Expr != nil {
			r.Expr = rc.singleton(s.Expr, out)
		}
		*out = append(*out, r)
	case *tree.WhenStmt:
		// The condition is re-evaluated on resumption,
		// so it cannot be split into earlier statements.
		*out = append(*out, s)
	default:
		panic(fmt.Sprintf("impossible statement type %T", s))
	}
}

// singleton returns a constant or name holding the value of e.
func (rc *Reducer) singleton(e tree.Expr, out *[]tree.Stmt) tree.Expr {
	switch e := e.(type) {
	case *tree.Const:
		return &tree.Const{Val: e.Val, L: e.L}
	case *tree.Name:
		return &tree.Name{Var: rc.mapVar(e.Var), L: e.L}
	}
	rhs := rc.rhs(e, out)
	if tree.IsSingleton(rhs) {
		return rhs
	}
	t := rc.temp()
	*out = append(*out, &tree.AssignStmt{Var: t, Expr: rhs, L: e.Loc()})
	return &tree.Name{Var: t, L: e.Loc()}
}

// cond returns a singleton or a comparison of singletons.
func (rc *Reducer) cond(e tree.Expr, out *[]tree.Stmt) tree.Expr {
	if b, ok := e.(*tree.Binary); ok && b.Op.IsCompare() {
		x := rc.singleton(b.X, out)
		y := rc.singleton(b.Y, out)
		return &tree.Binary{Op: b.Op, X: x, Y: y, L: b.L}
	}
	return rc.singleton(e, out)
}

// rhs returns an expression valid on the right of a reduced assignment.
func (rc *Reducer) rhs(e tree.Expr, out *[]tree.Stmt) tree.Expr {
	switch e := e.(type) {
	case *tree.Const, *tree.Name:
		return rc.singleton(e, out)
	case *tree.Global:
		g := *e
		return &g
	case *tree.Call:
		c := &tree.Call{L: e.L}
		if g, ok := e.Fun.(*tree.Global); ok {
			gg := *g
			c.Fun = &gg
		} else {
			c.Fun = rc.singleton(e.Fun, out)
		}
		for _, a := range e.Args {
			c.Args = append(c.Args, rc.singleton(a, out))
		}
		return c
	case *tree.Unary:
		return &tree.Unary{Op: e.Op, X: rc.singleton(e.X, out), L: e.L}
	case *tree.Binary:
		switch e.Op {
		case tree.AndAnd, tree.OrOr:
			return rc.logical(e, out)
		}
		x := rc.singleton(e.X, out)
		y := rc.singleton(e.Y, out)
		return &tree.Binary{Op: e.Op, X: x, Y: y, L: e.L}
	case *tree.Inlined:
		for i, p := range e.Params {
			v := rc.mapVar(p)
			rhs := rc.rhs(e.Args[i], out)
			*out = append(*out, &tree.AssignStmt{Var: v, Expr: rhs, L: e.Args[i].Loc()})
		}
		return rc.rhs(e.Body, out)
	case *tree.Lambda:
		// Functions with lambdas are not reduced.
		return e
	default:
		panic(fmt.Sprintf("impossible expression type %T", e))
	}
}

// logical lowers && and || to conditionals on a temporary holding 0 or 1.
//
//	t = x != 0; if (t) { ...; t = y != 0; }	// x && y
//	t = x != 0; if (t == 0) { ...; t = y != 0; }	// x || y
func (rc *Reducer) logical(e *tree.Binary, out *[]tree.Stmt) tree.Expr {
	x := rc.singleton(e.X, out)
	t := rc.temp()
	*out = append(*out, &tree.AssignStmt{
		Var:  t,
		Expr: &tree.Binary{Op: tree.NotEq, X: x, Y: &tree.Const{L: e.L}, L: e.X.Loc()},
		L:    e.X.Loc(),
	})
	var then []tree.Stmt
	y := rc.singleton(e.Y, &then)
	then = append(then, &tree.AssignStmt{
		Var:  t,
		Expr: &tree.Binary{Op: tree.NotEq, X: y, Y: &tree.Const{L: e.L}, L: e.Y.Loc()},
		L:    e.Y.Loc(),
	})
	var cond tree.Expr = &tree.Name{Var: t, L: e.L}
	if e.Op == tree.OrOr {
		cond = &tree.Binary{Op: tree.Eq, X: cond, Y: &tree.Const{L: e.L}, L: e.L}
	}
	*out = append(*out, &tree.IfStmt{
		Cond: cond,
		Then: &tree.Block{Stmts: then, L: e.Y.Loc()},
		L:    e.L,
	})
	return &tree.Name{Var: t, L: e.L}
}
