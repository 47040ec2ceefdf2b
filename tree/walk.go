package tree

import "fmt"

// Children returns the immediate sub-nodes of n in evaluation order.
func Children(n Node) []Node {
	var kids []Node
	add := func(ns ...Node) {
		for _, k := range ns {
			if k != nil {
				kids = append(kids, k)
			}
		}
	}
	switch n := n.(type) {
	case *Block:
		for _, s := range n.Stmts {
			add(s)
		}
	case *LocalStmt:
		if n.Init != nil {
			add(n.Init)
		}
	case *AssignStmt:
		add(n.Expr)
	case *ExprStmt:
		add(n.Expr)
	case *PrintStmt:
		for _, a := range n.Args {
			add(a)
		}
	case *IfStmt:
		add(n.Cond, n.Then)
		if n.Else != nil {
			add(n.Else)
		}
	case *WhileStmt:
		if n.Pre != nil {
			add(n.Pre)
		}
		add(n.Cond, n.Body)
	case *ReturnStmt:
		if n.Expr != nil {
			add(n.Expr)
		}
	case *WhenStmt:
		add(n.Cond, n.Body)
	case *Call:
		add(n.Fun)
		for _, a := range n.Args {
			add(a)
		}
	case *Unary:
		add(n.X)
	case *Binary:
		add(n.X, n.Y)
	case *Lambda:
		add(n.Body)
	case *Inlined:
		for _, a := range n.Args {
			add(a)
		}
		add(n.Body)
	case *BreakStmt, *Const, *Name, *Global:
	default:
		panic(fmt.Sprintf("impossible node type %T", n))
	}
	return kids
}

// Walk calls f on n and its descendants in pre-order.
// If f returns false, the children of that node are skipped.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, k := range Children(n) {
		Walk(k, f)
	}
}

// CopyExpr returns a deep copy of e with uses of the variables
// in sub replaced by their mapped variables.
func CopyExpr(e Expr, sub map[*Var]*Var) Expr {
	switch e := e.(type) {
	case *Const:
		c := *e
		return &c
	case *Name:
		n := *e
		if v, ok := sub[e.Var]; ok {
			n.Var = v
		}
		return &n
	case *Global:
		g := *e
		return &g
	case *Call:
		c := &Call{Fun: CopyExpr(e.Fun, sub), L: e.L}
		for _, a := range e.Args {
			c.Args = append(c.Args, CopyExpr(a, sub))
		}
		return c
	case *Unary:
		return &Unary{Op: e.Op, X: CopyExpr(e.X, sub), L: e.L}
	case *Binary:
		return &Binary{Op: e.Op, X: CopyExpr(e.X, sub), Y: CopyExpr(e.Y, sub), L: e.L}
	case *Inlined:
		in := &Inlined{Callee: e.Callee, L: e.L}
		for _, a := range e.Args {
			in.Args = append(in.Args, CopyExpr(a, sub))
		}
		// Each copy gets its own parameter variables.
		inner := make(map[*Var]*Var, len(sub)+len(e.Params))
		for k, v := range sub {
			inner[k] = v
		}
		for _, p := range e.Params {
			q := *p
			inner[p] = &q
			in.Params = append(in.Params, &q)
		}
		in.Body = CopyExpr(e.Body, inner)
		return in
	case *Lambda:
		// Lambdas are never copied; the inliner does not fold them.
		panic("impossible lambda copy")
	default:
		panic(fmt.Sprintf("impossible expr type %T", e))
	}
}
