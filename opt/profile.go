package opt

import "github.com/eaburns/xform/tree"

// A Profile is a static summary of a function body.
type Profile struct {
	// ScriptCalls are the script functions called
	// outside of any when statement.
	ScriptCalls FuncSet
	// WhenCalls are the script functions called
	// within the condition or body of a when statement.
	WhenCalls FuncSet
	// BuiltinCalls are the names of called built-ins, in first-call order.
	BuiltinCalls []string

	NumWhenStmts int
	NumLambdas   int
	NumCalls     int

	Params []*tree.Var
	// Locals are all function-scope variables, temporaries,
	// and inlined locals declared or used, in first-seen order.
	// Variables of lambda bodies are not included.
	Locals    []*tree.Var
	Assignees map[*tree.Var]bool

	seenLocal   map[*tree.Var]bool
	seenBuiltin map[string]bool
}

// ProfileFunc profiles the declaration of f and the given body.
func ProfileFunc(f *tree.Func, body tree.Stmt) *Profile {
	pf := &Profile{
		Assignees:   make(map[*tree.Var]bool),
		seenLocal:   make(map[*tree.Var]bool),
		seenBuiltin: make(map[string]bool),
	}
	for _, p := range f.Params {
		pf.Params = append(pf.Params, p)
		pf.local(p)
	}
	if body != nil {
		pf.traverse(body, false, false)
	}
	return pf
}

func (pf *Profile) local(v *tree.Var) {
	if !pf.seenLocal[v] {
		pf.seenLocal[v] = true
		pf.Locals = append(pf.Locals, v)
	}
}

func (pf *Profile) traverse(n tree.Node, inWhen, inLambda bool) {
	switch n := n.(type) {
	case *tree.WhenStmt:
		pf.NumWhenStmts++
		inWhen = true
	case *tree.Lambda:
		pf.NumLambdas++
		inLambda = true
	case *tree.Call:
		pf.NumCalls++
		if f := tree.StaticFunc(n); f != nil {
			if inWhen {
				pf.WhenCalls.Add(f)
			} else {
				pf.ScriptCalls.Add(f)
			}
		} else if g, ok := n.Fun.(*tree.Global); ok && !pf.seenBuiltin[g.Name] {
			pf.seenBuiltin[g.Name] = true
			pf.BuiltinCalls = append(pf.BuiltinCalls, g.Name)
		}
	case *tree.Name:
		if !inLambda {
			pf.local(n.Var)
		}
	case *tree.LocalStmt:
		if !inLambda {
			pf.local(n.Var)
			if n.Init != nil {
				pf.Assignees[n.Var] = true
			}
		}
	case *tree.AssignStmt:
		if !inLambda {
			pf.local(n.Var)
			pf.Assignees[n.Var] = true
		}
	case *tree.Inlined:
		if !inLambda {
			for _, p := range n.Params {
				pf.local(p)
				pf.Assignees[p] = true
			}
		}
	}
	for _, kid := range tree.Children(n) {
		pf.traverse(kid, inWhen, inLambda)
	}
}
