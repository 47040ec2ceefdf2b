package opt

import (
	"testing"

	"github.com/eaburns/xform/tree"
	"github.com/google/go-cmp/cmp"
)

// decorate reduces the first function of src and computes its RDs.
func decorate(t *testing.T, src, wantBody string) (*tree.Func, tree.Stmt, *RDs) {
	t.Helper()
	f := parseFuncs(t, src)[0]
	body := NewReducer(f.Scope).Reduce(f.Body)
	if body.String() != wantBody {
		t.Fatalf("reduced to %s\nwant %s", body, wantBody)
	}
	return f, body, Decorate(f, f.Scope, body, ProfileFunc(f, body))
}

// uses returns the uses of the named variable in walk order.
func uses(body tree.Stmt, name string) []*tree.Name {
	var ns []*tree.Name
	tree.Walk(body, func(n tree.Node) bool {
		if n, ok := n.(*tree.Name); ok && n.Var.Name == name {
			ns = append(ns, n)
		}
		return true
	})
	return ns
}

func defStrings(defs []Def) []string {
	var ss []string
	for _, d := range defs {
		if d.Stmt == nil {
			ss = append(ss, "param "+d.Var.Name)
		} else {
			ss = append(ss, d.Stmt.String())
		}
	}
	return ss
}

func TestReachingIf(t *testing.T) {
	_, body, rds := decorate(t,
		"function f(a) { local x = 1; if (a > 0) x = 2; return x + a; }",
		"{ x = 1; if (a > 0) { x = 2; } #0 = x + a; return #0; }")
	xs := uses(body, "x")
	if len(xs) != 1 {
		t.Fatalf("got %d uses of x, want 1", len(xs))
	}
	if diff := cmp.Diff([]string{"x = 1;", "x = 2;"}, defStrings(rds.Reaching(xs[0]))); diff != "" {
		t.Errorf("x: %s", diff)
	}
	as := uses(body, "a")
	if diff := cmp.Diff([]string{"param a"}, defStrings(rds.Reaching(as[1]))); diff != "" {
		t.Errorf("a: %s", diff)
	}

	// Before the if, only the first definition reaches.
	ifStmt := body.(*tree.Block).Stmts[1]
	x := xs[0].Var
	if diff := cmp.Diff([]string{"x = 1;"}, defStrings(rds.Pre(ifStmt, x))); diff != "" {
		t.Errorf("pre if: %s", diff)
	}
	if diff := cmp.Diff([]string{"x = 1;", "x = 2;"}, defStrings(rds.Post(ifStmt, x))); diff != "" {
		t.Errorf("post if: %s", diff)
	}
}

func TestReachingLoop(t *testing.T) {
	_, body, rds := decorate(t,
		"function f(n) { local i = 0; while (i < n) { i = i + 1; } return i; }",
		"{ i = 0; while (i < n) { i = i + 1; } return i; }")
	is := uses(body, "i")
	if len(is) != 3 {
		t.Fatalf("got %d uses of i, want 3", len(is))
	}
	want := []string{"i = 0;", "i = i + 1;"}
	for _, u := range is {
		if diff := cmp.Diff(want, defStrings(rds.Reaching(u))); diff != "" {
			t.Errorf("use %d: %s", u.L[0], diff)
		}
	}
}

func TestReachingBreak(t *testing.T) {
	_, body, rds := decorate(t,
		"function f(n) { local i = 0; local j = 0; while (1) { i = i + 1; if (i > n) break; j = i; } return i + j; }",
		"{ i = 0; j = 0; while (1) { i = i + 1; if (i > n) { break; } j = i; } #0 = i + j; return #0; }")
	js := uses(body, "j")
	if diff := cmp.Diff([]string{"j = 0;", "j = i;"}, defStrings(rds.Reaching(js[0]))); diff != "" {
		t.Errorf("j: %s", diff)
	}
	is := uses(body, "i")
	last := is[len(is)-1]
	if diff := cmp.Diff([]string{"i = 0;", "i = i + 1;"}, defStrings(rds.Reaching(last))); diff != "" {
		t.Errorf("i: %s", diff)
	}
}

func TestReachable(t *testing.T) {
	_, body, rds := decorate(t,
		"function f(a) { if (a) return 1; else return 2; print a; }",
		"{ if (a) { return 1; } else { return 2; } print a; }")
	stmts := body.(*tree.Block).Stmts
	if !rds.Reachable(stmts[0]) {
		t.Errorf("if is unreachable")
	}
	if rds.Reachable(stmts[1]) {
		t.Errorf("print is reachable")
	}
	if issues := rds.Issues(2); len(issues) != 0 {
		t.Errorf("got issues %v", issues)
	}
}

func TestKilledByLocal(t *testing.T) {
	f := parseFuncs(t, "function f(a) { local x = a; print x; }")[0]
	a, x := f.Scope.Lookup("a"), f.Scope.Lookup("x")
	def := &tree.AssignStmt{Var: x, Expr: &tree.Name{Var: a}}
	use := &tree.Name{Var: x}
	body := &tree.Block{Stmts: []tree.Stmt{
		def,
		&tree.IfStmt{Cond: &tree.Name{Var: a}, Then: &tree.LocalStmt{Var: x}},
		&tree.PrintStmt{Args: []tree.Expr{use}},
		&tree.LocalStmt{Var: x},
		&tree.ReturnStmt{Expr: &tree.Name{Var: x}},
	}}
	rds := Decorate(f, f.Scope, body, ProfileFunc(f, body))
	if diff := cmp.Diff([]Def{{Var: x, Stmt: def}}, rds.Reaching(use)); diff != "" {
		t.Errorf("x: %s", diff)
	}
	var got []string
	for _, is := range rds.Issues(1) {
		got = append(got, is.Msg)
	}
	if diff := cmp.Diff([]string{"x used without definition"}, got); diff != "" {
		t.Errorf("issues: %s", diff)
	}
}

func TestIssues(t *testing.T) {
	const src = "function f(a) { local x; local y = 1; local z = 2; a + 1; print z; return x; }"
	const reduced = "{ local x; y = 1; z = 2; #0 = a + 1; print z; return x; }"
	tests := []struct {
		level int
		want  []string
	}{
		{0, nil},
		{1, []string{"x used without definition"}},
		{2, []string{"x used without definition", "value assigned to y is never used"}},
	}
	for _, test := range tests {
		_, _, rds := decorate(t, src, reduced)
		var got []string
		for _, is := range rds.Issues(test.level) {
			got = append(got, is.Msg)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("level %d: %s", test.level, diff)
		}
	}
}
