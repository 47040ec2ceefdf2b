package opt

import "github.com/eaburns/xform/tree"

// IsReduced returns whether s is in reduced form.
// If it is not, the first non-conforming node is also returned.
//
// Bodies with when statements or lambdas are never reduced.
func IsReduced(s tree.Stmt) (bool, tree.Node) {
	if n := nonReducedStmt(s); n != nil {
		return false, n
	}
	return true, nil
}

func nonReducedStmt(s tree.Stmt) tree.Node {
	switch s := s.(type) {
	case *tree.Block:
		for _, kid := range s.Stmts {
			if n := nonReducedStmt(kid); n != nil {
				return n
			}
		}
		return nil
	case *tree.LocalStmt:
		if s.Init != nil {
			return s
		}
		return nil
	case *tree.AssignStmt:
		return nonReducedRHS(s.Expr)
	case *tree.ExprStmt:
		if _, ok := s.Expr.(*tree.Call); !ok {
			return s
		}
		return nonReducedRHS(s.Expr)
	case *tree.PrintStmt:
		for _, a := range s.Args {
			if !tree.IsSingleton(a) {
				return a
			}
		}
		return nil
	case *tree.IfStmt:
		if n := nonReducedCond(s.Cond); n != nil {
			return n
		}
		if n := nonReducedStmt(s.Then); n != nil {
			return n
		}
		if s.Else != nil {
			return nonReducedStmt(s.Else)
		}
		return nil
	case *tree.WhileStmt:
		if s.Pre != nil {
			if n := nonReducedStmt(s.Pre); n != nil {
				return n
			}
		}
		if n := nonReducedCond(s.Cond); n != nil {
			return n
		}
		return nonReducedStmt(s.Body)
	case *tree.BreakStmt:
		return nil
	case *tree.ReturnStmt:
		if s.Expr != nil && !tree.IsSingleton(s.Expr) {
			return s.Expr
		}
		return nil
	default:
		// *tree.WhenStmt
		return s
	}
}

func nonReducedCond(e tree.Expr) tree.Node {
	if tree.IsSingleton(e) {
		return nil
	}
	if b, ok := e.(*tree.Binary); ok && b.Op.IsCompare() {
		return nonSingleton(b.X, b.Y)
	}
	return e
}

func nonReducedRHS(e tree.Expr) tree.Node {
	switch e := e.(type) {
	case *tree.Const, *tree.Name, *tree.Global:
		return nil
	case *tree.Call:
		switch e.Fun.(type) {
		case *tree.Global, *tree.Name:
		default:
			return e.Fun
		}
		return nonSingleton(e.Args...)
	case *tree.Unary:
		return nonSingleton(e.X)
	case *tree.Binary:
		if e.Op == tree.AndAnd || e.Op == tree.OrOr {
			return e
		}
		return nonSingleton(e.X, e.Y)
	default:
		// *tree.Lambda, *tree.Inlined
		return e
	}
}

func nonSingleton(es ...tree.Expr) tree.Node {
	for _, e := range es {
		if !tree.IsSingleton(e) {
			return e
		}
	}
	return nil
}
