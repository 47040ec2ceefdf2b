package opt

import (
	"sort"
	"strings"
	"testing"

	"github.com/eaburns/xform/parser"
	"github.com/eaburns/xform/tree"
	"github.com/google/go-cmp/cmp"
)

func parseFuncs(t *testing.T, src string) []*tree.Func {
	t.Helper()
	p := parser.New()
	if err := p.Parse("test.xs", strings.NewReader(src)); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	p.Link()
	return p.Funcs()
}

func profiled(funcs []*tree.Func) []*FuncInfo {
	var infos []*FuncInfo
	for _, f := range funcs {
		fi := &FuncInfo{Func: f, Scope: f.Scope, Body: f.Body}
		fi.SetProfile(ProfileFunc(f, f.Body))
		infos = append(infos, fi)
	}
	return infos
}

func sortedNames(s *FuncSet) []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

func TestComputeTaint(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "no when",
			src: `
				function a() { return b(); }
				function b() { return 1; }
			`,
			want: nil,
		},
		{
			name: "when without calls",
			src: `
				function a(x) { when (x > 1) print x; return 0; }
			`,
			want: nil,
		},
		{
			name: "closure of when calls",
			src: `
				function a() { when (1) b(); return e(); }
				function b() { return c(); }
				function c() { return 1; }
				function d() { return c(); }
				function e() { return d(); }
			`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "when condition",
			src: `
				function a() { when (b()) print 1; }
				function b() { return 1; }
				function c() { return b(); }
			`,
			want: []string{"a", "b"},
		},
		{
			name: "when calls of callees are not followed",
			src: `
				function a() { when (1) b(); }
				function b() { return 1; }
				function c() { when (1) print 1; return d(); }
				function d() { return 1; }
			`,
			want: []string{"a", "b"},
		},
		{
			name: "cycle",
			src: `
				function a() { when (1) b(); }
				function b() { return c(); }
				function c() { return b(); }
			`,
			want: []string{"a", "b", "c"},
		},
		{
			name: "builtins",
			src: `
				function a() { when (1) print_it(); }
			`,
			want: nil,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			infos := profiled(parseFuncs(t, test.src))
			got := sortedNames(ComputeTaint(infos))
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("%s", diff)
			}

			// The result does not depend on registration order.
			var rev []*FuncInfo
			for i := len(infos) - 1; i >= 0; i-- {
				rev = append(rev, infos[i])
			}
			if diff := cmp.Diff(got, sortedNames(ComputeTaint(rev))); diff != "" {
				t.Errorf("reversed order: %s", diff)
			}

			// Recomputing gives the same set.
			if diff := cmp.Diff(got, sortedNames(ComputeTaint(infos))); diff != "" {
				t.Errorf("recomputed: %s", diff)
			}
		})
	}
}

func TestComputeTaintUnregisteredCallee(t *testing.T) {
	funcs := parseFuncs(t, `
		function a() { when (1) b(); }
		function b() { return c(); }
		function c() { return 1; }
	`)
	// b is not registered, so its calls are unknown.
	infos := profiled([]*tree.Func{funcs[0], funcs[2]})
	got := sortedNames(ComputeTaint(infos))
	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("%s", diff)
	}
}

func TestNonRecursive(t *testing.T) {
	infos := profiled(parseFuncs(t, `
		function f() { return g(); }
		function g() { return f(); }
		function h(n) { if (n > 0) return h(n - 1); return 0; }
		function k() { return f() + m(); }
		function m() { return 1; }
		function w() { when (1) w(); }
	`))
	got := sortedNames(NonRecursive(infos))
	if diff := cmp.Diff([]string{"k", "m"}, got); diff != "" {
		t.Errorf("%s", diff)
	}
}

func TestProfile(t *testing.T) {
	funcs := parseFuncs(t, `
		function f(a) {
			local x = g(a);
			when (a > 0) h(x);
			local l = function(y) { return y + x; };
			print abs(x), abs(a), len(a);
			return g(x);
		}
		function g(a) { return a; }
		function h(a) { return a; }
	`)
	pf := ProfileFunc(funcs[0], funcs[0].Body)
	if diff := cmp.Diff([]string{"g"}, pf.ScriptCalls.Names()); diff != "" {
		t.Errorf("ScriptCalls: %s", diff)
	}
	if diff := cmp.Diff([]string{"h"}, pf.WhenCalls.Names()); diff != "" {
		t.Errorf("WhenCalls: %s", diff)
	}
	if diff := cmp.Diff([]string{"abs", "len"}, pf.BuiltinCalls); diff != "" {
		t.Errorf("BuiltinCalls: %s", diff)
	}
	if pf.NumWhenStmts != 1 || pf.NumLambdas != 1 || pf.NumCalls != 6 {
		t.Errorf("got %d when, %d lambdas, %d calls; want 1, 1, 6",
			pf.NumWhenStmts, pf.NumLambdas, pf.NumCalls)
	}
	var locals []string
	for _, v := range pf.Locals {
		locals = append(locals, v.Name)
	}
	// The lambda's y is not a local of f.
	if diff := cmp.Diff([]string{"a", "x", "l"}, locals); diff != "" {
		t.Errorf("Locals: %s", diff)
	}
	if len(pf.Params) != 1 || pf.Params[0].Name != "a" {
		t.Errorf("Params: %v", pf.Params)
	}
}
