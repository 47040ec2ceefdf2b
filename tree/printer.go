package tree

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/eaburns/xform/loc"
)

type PrintOpt func(*config)

// PrintLocs prints node locations resolved against the files.
func PrintLocs(fs ...*File) PrintOpt {
	var files loc.Files
	for _, f := range fs {
		files = append(files, f)
	}
	return func(pc *config) { pc.files = files }
}

// Print writes a structural dump of a node.
func Print(w io.Writer, n Node, opts ...PrintOpt) error {
	pr, ok := n.(printer)
	if !ok {
		return fmt.Errorf("cannot print %T", n)
	}
	return print(w, pr, opts...)
}

// Print writes a structural dump of the function.
func (f *Func) Print(w io.Writer, opts ...PrintOpt) error {
	return print(w, f, opts...)
}

type config struct {
	w     io.Writer
	files loc.Files
	n     int
	ident string
}

type printerError struct{ error }

type printer interface {
	print(*config)
}

func print(w io.Writer, tree printer, opts ...PrintOpt) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(printerError); ok {
			err = e
		} else {
			panic(r)
		}
	}()
	pc := &config{w: w, ident: "  "}
	for _, opt := range opts {
		opt(pc)
	}
	tree.print(pc)
	pc.p("\n")
	return err
}

func (f *Func) print(pc *config) {
	pc.p("Func{")
	pc.loc(f.L)
	pc.field("Kind", f.Kind.String())
	pc.field("Name", f.Name)
	pc.field("Params", f.Params)
	pc.field("FrameSize", f.FrameSize)
	pc.field("Body", f.Body)
	pc.p("\n}")
}

func (v *Var) print(pc *config) {
	pc.p("Var(%s, slot %d)", v.Name, v.Slot)
	pc.loc(v.L)
}

func (s *Block) print(pc *config) {
	pc.p("Block{")
	pc.loc(s.L)
	pc.field("Stmts", s.Stmts)
	pc.p("\n}")
}

func (s *LocalStmt) print(pc *config) {
	pc.p("LocalStmt{")
	pc.loc(s.L)
	pc.field("Var", s.Var)
	pc.field("Init", s.Init)
	pc.p("\n}")
}

func (s *AssignStmt) print(pc *config) {
	pc.p("AssignStmt{")
	pc.loc(s.L)
	pc.field("Var", s.Var)
	pc.field("Expr", s.Expr)
	pc.p("\n}")
}

func (s *ExprStmt) print(pc *config) {
	pc.p("ExprStmt{")
	pc.loc(s.L)
	pc.field("Expr", s.Expr)
	pc.p("\n}")
}

func (s *PrintStmt) print(pc *config) {
	pc.p("PrintStmt{")
	pc.loc(s.L)
	pc.field("Args", s.Args)
	pc.p("\n}")
}

func (s *IfStmt) print(pc *config) {
	pc.p("IfStmt{")
	pc.loc(s.L)
	pc.field("Cond", s.Cond)
	pc.field("Then", s.Then)
	pc.field("Else", s.Else)
	pc.p("\n}")
}

func (s *WhileStmt) print(pc *config) {
	pc.p("WhileStmt{")
	pc.loc(s.L)
	pc.field("Pre", s.Pre)
	pc.field("Cond", s.Cond)
	pc.field("Body", s.Body)
	pc.p("\n}")
}

func (s *BreakStmt) print(pc *config) {
	pc.p("BreakStmt")
	pc.loc(s.L)
}

func (s *ReturnStmt) print(pc *config) {
	pc.p("ReturnStmt{")
	pc.loc(s.L)
	pc.field("Expr", s.Expr)
	pc.p("\n}")
}

func (s *WhenStmt) print(pc *config) {
	pc.p("WhenStmt{")
	pc.loc(s.L)
	pc.field("Cond", s.Cond)
	pc.field("Body", s.Body)
	pc.p("\n}")
}

func (e *Const) print(pc *config) {
	pc.p("Const(%d)", e.Val)
	pc.loc(e.L)
}

func (e *Name) print(pc *config) {
	pc.p("Name(%s)", e.Var.Name)
	pc.loc(e.L)
}

func (e *Global) print(pc *config) {
	if e.Func == nil {
		pc.p("Global(%s, builtin)", e.Name)
	} else {
		pc.p("Global(%s)", e.Name)
	}
	pc.loc(e.L)
}

func (e *Call) print(pc *config) {
	pc.p("Call{")
	pc.loc(e.L)
	pc.field("Fun", e.Fun)
	pc.field("Args", e.Args)
	pc.p("\n}")
}

func (e *Unary) print(pc *config) {
	pc.p("Unary{")
	pc.loc(e.L)
	pc.field("Op", e.Op.String())
	pc.field("X", e.X)
	pc.p("\n}")
}

func (e *Binary) print(pc *config) {
	pc.p("Binary{")
	pc.loc(e.L)
	pc.field("Op", e.Op.String())
	pc.field("X", e.X)
	pc.field("Y", e.Y)
	pc.p("\n}")
}

func (e *Lambda) print(pc *config) {
	pc.p("Lambda{")
	pc.loc(e.L)
	pc.field("Params", e.Params)
	pc.field("Body", e.Body)
	pc.p("\n}")
}

func (e *Inlined) print(pc *config) {
	pc.p("Inlined{")
	pc.loc(e.L)
	pc.field("Callee", e.Callee.Name)
	pc.field("Params", e.Params)
	pc.field("Args", e.Args)
	pc.field("Body", e.Body)
	pc.p("\n}")
}

func (pc *config) loc(l loc.Loc) {
	if pc.files == nil || (l == loc.Loc{}) {
		return
	}
	pc.p("\t(%s)", pc.files.Location(l))
}

func (pc *config) field(name string, val interface{}) {
	v := reflect.ValueOf(val)
	if val == nil || (v.Kind() == reflect.Ptr || v.Kind() == reflect.Slice || v.Kind() == reflect.Interface) && v.IsNil() {
		return
	}
	pc.n++
	defer func() { pc.n-- }()
	pc.p("\n" + name + ": ")
	if v.Kind() == reflect.Slice {
		pc.slice(val)
		return
	}
	if t, ok := val.(printer); ok {
		t.print(pc)
		return
	}
	pc.p("%v", val)
}

func (pc *config) slice(s interface{}) {
	v := reflect.ValueOf(s)
	pc.n++
	pc.p("{")
	for i := 0; i < v.Len(); i++ {
		pc.p("\n")
		v.Index(i).Interface().(printer).print(pc)
		pc.p(",")
	}
	pc.n--
	pc.p("\n}")
}

func (pc *config) p(f string, vs ...interface{}) {
	f = strings.ReplaceAll(f, "\n", "\n"+strings.Repeat(pc.ident, pc.n))
	_, err := fmt.Fprintf(pc.w, f, vs...)
	if err != nil {
		panic(printerError{err})
	}
}
