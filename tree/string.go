package tree

import (
	"strconv"
	"strings"
)

func (x *Block) String() string      { return x.buildString(new(strings.Builder)).String() }
func (x *LocalStmt) String() string  { return x.buildString(new(strings.Builder)).String() }
func (x *AssignStmt) String() string { return x.buildString(new(strings.Builder)).String() }
func (x *ExprStmt) String() string   { return x.buildString(new(strings.Builder)).String() }
func (x *PrintStmt) String() string  { return x.buildString(new(strings.Builder)).String() }
func (x *IfStmt) String() string     { return x.buildString(new(strings.Builder)).String() }
func (x *WhileStmt) String() string  { return x.buildString(new(strings.Builder)).String() }
func (x *BreakStmt) String() string  { return x.buildString(new(strings.Builder)).String() }
func (x *ReturnStmt) String() string { return x.buildString(new(strings.Builder)).String() }
func (x *WhenStmt) String() string   { return x.buildString(new(strings.Builder)).String() }
func (x *Const) String() string      { return x.buildString(new(strings.Builder)).String() }
func (x *Name) String() string       { return x.buildString(new(strings.Builder)).String() }
func (x *Global) String() string     { return x.buildString(new(strings.Builder)).String() }
func (x *Call) String() string       { return x.buildString(new(strings.Builder)).String() }
func (x *Unary) String() string      { return x.buildString(new(strings.Builder)).String() }
func (x *Binary) String() string     { return x.buildString(new(strings.Builder)).String() }
func (x *Lambda) String() string     { return x.buildString(new(strings.Builder)).String() }
func (x *Inlined) String() string    { return x.buildString(new(strings.Builder)).String() }

func (f *Func) String() string {
	var s strings.Builder
	s.WriteString(f.Kind.String())
	s.WriteString(" ")
	s.WriteString(f.Name)
	buildParms(&s, f.Params)
	s.WriteString(" ")
	if f.Body == nil {
		s.WriteString("{}")
	} else {
		f.Body.buildString(&s)
	}
	return s.String()
}

func buildParms(s *strings.Builder, parms []*Var) {
	s.WriteString("(")
	for i, p := range parms {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(p.Name)
	}
	s.WriteString(")")
}

func (x *Block) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("{")
	for _, st := range x.Stmts {
		s.WriteString(" ")
		st.buildString(s)
	}
	s.WriteString(" }")
	return s
}

func (x *LocalStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("local ")
	s.WriteString(x.Var.Name)
	if x.Init != nil {
		s.WriteString(" = ")
		x.Init.buildString(s)
	}
	s.WriteString(";")
	return s
}

func (x *AssignStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(x.Var.Name)
	s.WriteString(" = ")
	x.Expr.buildString(s)
	s.WriteString(";")
	return s
}

func (x *ExprStmt) buildString(s *strings.Builder) *strings.Builder {
	x.Expr.buildString(s)
	s.WriteString(";")
	return s
}

func (x *PrintStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("print")
	for i, a := range x.Args {
		if i > 0 {
			s.WriteString(",")
		}
		s.WriteString(" ")
		a.buildString(s)
	}
	s.WriteString(";")
	return s
}

func (x *IfStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("if (")
	x.Cond.buildString(s)
	s.WriteString(") ")
	x.Then.buildString(s)
	if x.Else != nil {
		s.WriteString(" else ")
		x.Else.buildString(s)
	}
	return s
}

func (x *WhileStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("while (")
	if x.Pre != nil {
		x.Pre.buildString(s)
		s.WriteString(" ")
	}
	x.Cond.buildString(s)
	s.WriteString(") ")
	x.Body.buildString(s)
	return s
}

func (x *BreakStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("break;")
	return s
}

func (x *ReturnStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("return")
	if x.Expr != nil {
		s.WriteString(" ")
		x.Expr.buildString(s)
	}
	s.WriteString(";")
	return s
}

func (x *WhenStmt) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("when (")
	x.Cond.buildString(s)
	s.WriteString(") ")
	x.Body.buildString(s)
	return s
}

func (x *Const) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(strconv.FormatInt(x.Val, 10))
	return s
}

func (x *Name) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(x.Var.Name)
	return s
}

func (x *Global) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(x.Name)
	return s
}

func (x *Call) buildString(s *strings.Builder) *strings.Builder {
	x.Fun.buildString(s)
	s.WriteString("(")
	for i, a := range x.Args {
		if i > 0 {
			s.WriteString(", ")
		}
		a.buildString(s)
	}
	s.WriteString(")")
	return s
}

func (x *Unary) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString(x.Op.String())
	buildOperand(s, x.X)
	return s
}

func (x *Binary) buildString(s *strings.Builder) *strings.Builder {
	buildOperand(s, x.X)
	s.WriteString(" ")
	s.WriteString(x.Op.String())
	s.WriteString(" ")
	buildOperand(s, x.Y)
	return s
}

func buildOperand(s *strings.Builder, e Expr) {
	switch e.(type) {
	case *Unary, *Binary:
		s.WriteString("(")
		e.buildString(s)
		s.WriteString(")")
	default:
		e.buildString(s)
	}
}

func (x *Lambda) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("function")
	buildParms(s, x.Params)
	s.WriteString(" ")
	x.Body.buildString(s)
	return s
}

func (x *Inlined) buildString(s *strings.Builder) *strings.Builder {
	s.WriteString("inline ")
	s.WriteString(x.Callee.Name)
	s.WriteString("(")
	for i, p := range x.Params {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(p.Name)
		s.WriteString(" = ")
		x.Args[i].buildString(s)
	}
	s.WriteString(") { ")
	x.Body.buildString(s)
	s.WriteString(" }")
	return s
}
