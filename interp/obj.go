package interp

import (
	"fmt"

	"github.com/eaburns/xform/native"
	"github.com/eaburns/xform/tree"
)

// A Val is a run-time value.
type Val interface {
	String() string
	isVal()
}

// Int is an integer value.
type Int int64

// Func is a script function value.
type Func struct{ Def *tree.Func }

// Native is a compiled implementation or built-in.
type Native struct {
	Name string
	Fn   native.Func
}

// Closure is a lambda value with its defining frame.
type Closure struct {
	Lambda *tree.Lambda
	env    *frame
}

func (Int) isVal()     {}
func (Func) isVal()    {}
func (Native) isVal()  {}
func (Closure) isVal() {}

func (o Int) String() string     { return fmt.Sprintf("%d", int64(o)) }
func (o Func) String() string    { return "<function " + o.Def.Name + ">" }
func (o Native) String() string  { return "<native " + o.Name + ">" }
func (o Closure) String() string { return "<lambda>" }

func truth(b bool) Int {
	if b {
		return 1
	}
	return 0
}
