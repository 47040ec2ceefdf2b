package interp

import (
	"errors"
	"strings"
	"testing"

	"github.com/eaburns/xform/inline"
	"github.com/eaburns/xform/opt"
	"github.com/eaburns/xform/parser"
	"github.com/eaburns/xform/tree"
	"github.com/google/go-cmp/cmp"
)

const testSrc = `
	function fact(n) { local r = 1; while (n > 1) { r = r * n; n = n - 1; } return r; }
	function fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); }
	function sq(x) { return x * x; }
	function hyp(a, b) { return sq(a) + sq(b); }
	function logic(a, b) { return (a > 0 && b > 0) + 2 * (a > 0 || b > 0) + 4 * !a; }
	function divmod(a, b) { return a / b * 10 + a % b; }
	function builtins(a) { return -a + abs(a) + max(a, 3) - min(a, 3); }
	function loop(n) { local i = 0; local s = 0; while (1) { i = i + 1; if (i > n) break; s = s + i; } return s; }
	function closure(a) { local g = function(y) { return y + a; }; return g(2); }
	function noret(a) { print a, a + 1; }
	function forever(n) { return forever(n + 1); }
	function later(a) { local x = 0; when (x > 0) print x; x = a; return 0; }
`

func load(t *testing.T, src string) (*Interp, []*tree.Func, *strings.Builder) {
	t.Helper()
	p := parser.New()
	if err := p.Parse("test.xs", strings.NewReader(src)); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	p.Link()
	var out strings.Builder
	interp := New()
	interp.Out = &out
	interp.Load(p.Funcs())
	return interp, p.Funcs(), &out
}

var callTests = []struct {
	fn   string
	args []int64
	want int64
}{
	{"fact", []int64{5}, 120},
	{"fact", []int64{0}, 1},
	{"fib", []int64{10}, 55},
	{"hyp", []int64{3, 4}, 25},
	{"logic", []int64{1, 0}, 2},
	{"logic", []int64{0, 0}, 4},
	{"logic", []int64{2, 3}, 3},
	{"divmod", []int64{17, 5}, 32},
	{"divmod", []int64{-7, 2}, -31},
	{"builtins", []int64{-5}, 18},
	{"loop", []int64{4}, 10},
	{"loop", []int64{0}, 0},
	{"closure", []int64{3}, 5},
	{"noret", []int64{7}, 0},
}

func TestCall(t *testing.T) {
	interp, _, out := load(t, testSrc)
	for _, test := range callTests {
		got, err := interp.Call(test.fn, test.args...)
		if err != nil || got != test.want {
			t.Errorf("%s%v=%d, %v, want %d", test.fn, test.args, got, err, test.want)
		}
	}
	if got := out.String(); got != "7, 8\n" {
		t.Errorf("printed %q, want %q", got, "7, 8\n")
	}
}

// TestCallOptimized checks that inlining and reduction
// do not change what functions compute.
func TestCallOptimized(t *testing.T) {
	interp, funcs, _ := load(t, testSrc)
	var infos []*opt.FuncInfo
	for _, f := range funcs {
		fi := &opt.FuncInfo{Func: f, Scope: f.Scope, Body: f.Body}
		fi.SetProfile(opt.ProfileFunc(f, f.Body))
		infos = append(infos, fi)
	}
	inline.New(infos, opt.NonRecursive(infos), nil)
	for _, fi := range infos {
		if fi.Profile.NumLambdas > 0 || fi.Profile.NumWhenStmts > 0 {
			continue
		}
		rc := opt.NewReducer(fi.Scope)
		body := rc.Reduce(fi.Body)
		if ok, n := opt.IsReduced(body); !ok {
			t.Fatalf("%s: not reduced at %s", fi.Name(), n)
		}
		fi.Func.ReplaceBody(fi.Body, body)
		fi.SetBody(body)
		fi.Func.SetFrameSize(fi.Scope.Len() + rc.NumTemps() + rc.NumNewLocals())
	}
	if got := funcs[3].Body.String(); !strings.Contains(got, "sq.x.0") {
		t.Fatalf("hyp not inlined: %s", got)
	}
	for _, test := range callTests {
		got, err := interp.Call(test.fn, test.args...)
		if err != nil || got != test.want {
			t.Errorf("%s%v=%d, %v, want %d", test.fn, test.args, got, err, test.want)
		}
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		fn   string
		args []int64
		want Error
	}{
		{"divmod", []int64{1, 0}, Error{Func: "divmod", Msg: "division by zero"}},
		{"nope", nil, Error{Msg: "undefined: nope"}},
		{"sq", nil, Error{Msg: "sq: got 0 arguments, expected 1"}},
		{"forever", []int64{0}, Error{Func: "forever", Msg: "maximum call depth exceeded"}},
		{"closure", []int64{1, 2}, Error{Msg: "closure: got 2 arguments, expected 1"}},
	}
	interp, _, _ := load(t, testSrc)
	for _, test := range tests {
		_, err := interp.Call(test.fn, test.args...)
		var e *Error
		if !errors.As(err, &e) {
			t.Errorf("%s%v: got %v, want an *Error", test.fn, test.args, err)
			continue
		}
		if diff := cmp.Diff(test.want, *e); diff != "" {
			t.Errorf("%s%v: %s", test.fn, test.args, diff)
		}
	}
	// The interpreter is usable after an error.
	if got, err := interp.Call("sq", 3); got != 9 || err != nil {
		t.Errorf("sq(3)=%d, %v, want 9", got, err)
	}
}

func TestDrain(t *testing.T) {
	interp, _, out := load(t, testSrc)
	if _, err := interp.Call("later", 5); err != nil {
		t.Fatalf("later(5) failed: %s", err)
	}
	if _, err := interp.Call("later", 0); err != nil {
		t.Fatalf("later(0) failed: %s", err)
	}
	if n := interp.Pending(); n != 2 {
		t.Fatalf("got %d pending, want 2", n)
	}
	if out.Len() != 0 {
		t.Fatalf("printed %q before Drain", out.String())
	}
	n, err := interp.Drain()
	if n != 1 || err != nil {
		t.Errorf("Drain()=%d, %v, want 1, nil", n, err)
	}
	if got := out.String(); got != "5\n" {
		t.Errorf("printed %q, want %q", got, "5\n")
	}
	if n := interp.Pending(); n != 1 {
		t.Errorf("got %d pending, want 1", n)
	}
}

func TestWhenTrue(t *testing.T) {
	interp, _, out := load(t, "function f(a) { when (a) { print a; return 1; } return 2; }")
	got, err := interp.Call("f", 3)
	if got != 2 || err != nil {
		t.Errorf("f(3)=%d, %v, want 2", got, err)
	}
	if out.String() != "3\n" || interp.Pending() != 0 {
		t.Errorf("printed %q with %d pending", out.String(), interp.Pending())
	}
}

func TestRebind(t *testing.T) {
	interp, _, _ := load(t, testSrc)
	double := func(args []int64) (int64, error) { return 2 * args[0], nil }
	if interp.Rebind("nope", double) {
		t.Errorf("Rebind of an undefined global succeeded")
	}
	if !interp.Rebind("sq", double) {
		t.Fatalf("Rebind(sq) failed")
	}
	// Callers use the new binding.
	if got, err := interp.Call("hyp", 3, 4); got != 14 || err != nil {
		t.Errorf("hyp(3, 4)=%d, %v, want 14", got, err)
	}
	if v, ok := interp.Global("sq"); !ok || v.String() != "<native sq>" {
		t.Errorf("Global(sq)=%v, %v", v, ok)
	}

	interp.Define("fail", func([]int64) (int64, error) { return 0, errors.New("oops") })
	_, err := interp.Call("fail")
	if err == nil || err.Error() != "fail: oops" {
		t.Errorf("got %v, want fail: oops", err)
	}
}

func TestGlobals(t *testing.T) {
	interp, _, _ := load(t, "function b() { return 0; } function a() { return 0; }")
	want := []string{"a", "abs", "b", "max", "min"}
	if diff := cmp.Diff(want, interp.Globals()); diff != "" {
		t.Errorf("%s", diff)
	}
}
