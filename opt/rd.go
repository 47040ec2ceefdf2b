package opt

import (
	"sort"

	"github.com/eaburns/xform/tree"
)

// A Def is a definition of a variable.
type Def struct {
	Var *tree.Var
	// Stmt is the defining assignment or local statement,
	// or nil for the entry value of a parameter.
	Stmt tree.Stmt
}

// RDs are the reaching definitions of a reduced function body.
type RDs struct {
	vars  map[*tree.Var]bool
	order map[tree.Stmt]int
	defs  []Def
	pre   map[tree.Node]rdState
	post  map[tree.Node]rdState
	uses  []*use
	useOf map[*tree.Name]*use
	// breaks is the stack of states reaching
	// the break statements of enclosing loops.
	breaks []rdState
}

type use struct {
	name      *tree.Name
	reach     stmtSet
	reachable bool
}

type stmtSet map[tree.Stmt]bool

// An rdState maps each variable to its reaching definitions.
// A nil rdState is unreachable.
// The stmtSets of an rdState are never modified once added.
type rdState map[*tree.Var]stmtSet

// Decorate computes the reaching definitions of body,
// the reduced body of f, for the variables of scope and
// the locals of the body's profile.
func Decorate(f *tree.Func, scope *tree.Scope, body tree.Stmt, pf *Profile) *RDs {
	rds := &RDs{
		vars:  make(map[*tree.Var]bool),
		order: make(map[tree.Stmt]int),
		pre:   make(map[tree.Node]rdState),
		post:  make(map[tree.Node]rdState),
		useOf: make(map[*tree.Name]*use),
	}
	if scope != nil {
		for _, v := range scope.Vars {
			rds.vars[v] = true
		}
	}
	if pf != nil {
		for _, v := range pf.Locals {
			rds.vars[v] = true
		}
	}
	entry := rdState{}
	for _, p := range f.Params {
		rds.vars[p] = true
		entry[p] = stmtSet{nil: true}
	}
	rds.stmt(body, entry)
	return rds
}

// Reachable returns whether the node can be executed.
func (rds *RDs) Reachable(n tree.Node) bool { return rds.pre[n] != nil }

// Pre returns the definitions of v reaching the start of n.
func (rds *RDs) Pre(n tree.Node, v *tree.Var) []Def { return rds.sorted(v, rds.pre[n][v]) }

// Post returns the definitions of v reaching the end of n.
func (rds *RDs) Post(n tree.Node, v *tree.Var) []Def { return rds.sorted(v, rds.post[n][v]) }

// Reaching returns the definitions reaching a use.
func (rds *RDs) Reaching(n *tree.Name) []Def {
	u, ok := rds.useOf[n]
	if !ok {
		return nil
	}
	return rds.sorted(n.Var, u.reach)
}

func (rds *RDs) sorted(v *tree.Var, set stmtSet) []Def {
	var defs []Def
	for s := range set {
		defs = append(defs, Def{Var: v, Stmt: s})
	}
	sort.Slice(defs, func(i, j int) bool {
		return rds.index(defs[i].Stmt) < rds.index(defs[j].Stmt)
	})
	return defs
}

func (rds *RDs) index(s tree.Stmt) int {
	if s == nil {
		return -1
	}
	return rds.order[s]
}

func (rds *RDs) stmt(s tree.Stmt, in rdState) rdState {
	rds.pre[s] = in
	out := rds.transfer(s, in)
	rds.post[s] = out
	return out
}

func (rds *RDs) transfer(s tree.Stmt, in rdState) rdState {
	switch s := s.(type) {
	case *tree.Block:
		st := in
		for _, kid := range s.Stmts {
			st = rds.stmt(kid, st)
		}
		return st
	case *tree.LocalStmt:
		if s.Init == nil {
			return rds.kill(in, s.Var)
		}
		rds.expr(s.Init, in)
		return rds.define(in, s.Var, s)
	case *tree.AssignStmt:
		rds.expr(s.Expr, in)
		return rds.define(in, s.Var, s)
	case *tree.ExprStmt:
		rds.expr(s.Expr, in)
		return in
	case *tree.PrintStmt:
		for _, a := range s.Args {
			rds.expr(a, in)
		}
		return in
	case *tree.IfStmt:
		rds.expr(s.Cond, in)
		then := rds.stmt(s.Then, in)
		els := in
		if s.Else != nil {
			els = rds.stmt(s.Else, in)
		}
		return join(then, els)
	case *tree.WhileStmt:
		return rds.loop(s, in)
	case *tree.BreakStmt:
		if n := len(rds.breaks); n > 0 {
			rds.breaks[n-1] = join(rds.breaks[n-1], in)
		}
		return nil
	case *tree.ReturnStmt:
		if s.Expr != nil {
			rds.expr(s.Expr, in)
		}
		return nil
	case *tree.WhenStmt:
		rds.expr(s.Cond, in)
		return join(in, rds.stmt(s.Body, in))
	default:
		panic("impossible statement type")
	}
}

// loop iterates the loop body until the state at the loop head
// no longer changes.
func (rds *RDs) loop(s *tree.WhileStmt, in rdState) rdState {
	head := in
	for {
		rds.pre[s] = head
		test := head
		if s.Pre != nil {
			test = rds.stmt(s.Pre, head)
		}
		rds.expr(s.Cond, test)
		rds.breaks = append(rds.breaks, nil)
		back := rds.stmt(s.Body, test)
		brk := rds.breaks[len(rds.breaks)-1]
		rds.breaks = rds.breaks[:len(rds.breaks)-1]
		next := join(in, back)
		if equal(next, head) {
			return join(test, brk)
		}
		head = next
	}
}

func (rds *RDs) expr(e tree.Expr, st rdState) {
	tree.Walk(e, func(n tree.Node) bool {
		rds.pre[n] = st
		rds.post[n] = st
		switch n := n.(type) {
		case *tree.Lambda:
			return false
		case *tree.Name:
			if !rds.vars[n.Var] {
				return true
			}
			u, ok := rds.useOf[n]
			if !ok {
				u = &use{name: n}
				rds.useOf[n] = u
				rds.uses = append(rds.uses, u)
			}
			u.reach = st[n.Var]
			u.reachable = st != nil
		}
		return true
	})
}

func (rds *RDs) define(in rdState, v *tree.Var, s tree.Stmt) rdState {
	if in == nil || !rds.vars[v] {
		return in
	}
	if _, ok := rds.order[s]; !ok {
		rds.order[s] = len(rds.defs)
		rds.defs = append(rds.defs, Def{Var: v, Stmt: s})
	}
	out := in.copy()
	out[v] = stmtSet{s: true}
	return out
}

func (rds *RDs) kill(in rdState, v *tree.Var) rdState {
	if in == nil || in[v] == nil {
		return in
	}
	out := in.copy()
	delete(out, v)
	return out
}

func (st rdState) copy() rdState {
	c := make(rdState, len(st))
	for v, s := range st {
		c[v] = s
	}
	return c
}

func join(a, b rdState) rdState {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	c := a.copy()
	for v, bs := range b {
		as := c[v]
		if as == nil {
			c[v] = bs
			continue
		}
		if subset(bs, as) {
			continue
		}
		u := make(stmtSet, len(as)+len(bs))
		for s := range as {
			u[s] = true
		}
		for s := range bs {
			u[s] = true
		}
		c[v] = u
	}
	return c
}

func subset(a, b stmtSet) bool {
	for s := range a {
		if !b[s] {
			return false
		}
	}
	return true
}

func equal(a, b rdState) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for v, as := range a {
		bs, ok := b[v]
		if !ok || len(as) != len(bs) || !subset(as, bs) {
			return false
		}
	}
	return true
}

// An Issue is a questionable use of a variable.
type Issue struct {
	Node tree.Node
	Var  *tree.Var
	Msg  string
}

// Issues returns the usage issues of the body.
// Level 1 reports reachable uses with no reaching definition.
// Level 2 also reports definitions that reach no use.
// Temporaries are never reported.
func (rds *RDs) Issues(level int) []Issue {
	if level < 1 {
		return nil
	}
	var issues []Issue
	used := make(map[tree.Stmt]bool)
	for _, u := range rds.uses {
		if !u.reachable {
			continue
		}
		for s := range u.reach {
			used[s] = true
		}
		if len(u.reach) == 0 && !u.name.Var.Temp {
			issues = append(issues, Issue{
				Node: u.name,
				Var:  u.name.Var,
				Msg:  u.name.Var.Name + " used without definition",
			})
		}
	}
	if level < 2 {
		return issues
	}
	for _, d := range rds.defs {
		if used[d.Stmt] || d.Var.Temp {
			continue
		}
		issues = append(issues, Issue{
			Node: d.Stmt,
			Var:  d.Var,
			Msg:  "value assigned to " + d.Var.Name + " is never used",
		})
	}
	return issues
}
