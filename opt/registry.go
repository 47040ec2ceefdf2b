package opt

import "github.com/eaburns/xform/tree"

// FuncInfo is the analysis record of a registered function.
type FuncInfo struct {
	Func  *tree.Func
	Scope *tree.Scope
	// Body is the current body.
	// It is replaced, never mutated, by reduction.
	Body tree.Stmt
	// Profile is nil until profiling.
	Profile *Profile
	// RDs are the reaching definitions of a reduced Body.
	RDs *RDs
	// Revision counts body replacements.
	Revision int
}

// SetBody replaces the body.
func (fi *FuncInfo) SetBody(body tree.Stmt) {
	if body != fi.Body {
		fi.Body = body
		fi.Revision++
	}
}

// SetProfile replaces the profile.
func (fi *FuncInfo) SetProfile(pf *Profile) { fi.Profile = pf }

// Name returns the function name.
func (fi *FuncInfo) Name() string { return fi.Func.Name }

// A FuncSet is a set of functions that iterates in insertion order.
// The zero value is an empty set.
type FuncSet struct {
	list []*tree.Func
	set  map[*tree.Func]bool
}

// NewFuncSet returns a set of the given functions.
func NewFuncSet(fs ...*tree.Func) *FuncSet {
	s := &FuncSet{}
	for _, f := range fs {
		s.Add(f)
	}
	return s
}

// Add adds f and returns whether it was not already present.
func (s *FuncSet) Add(f *tree.Func) bool {
	if s.set == nil {
		s.set = make(map[*tree.Func]bool)
	}
	if s.set[f] {
		return false
	}
	s.set[f] = true
	s.list = append(s.list, f)
	return true
}

// Has returns whether f is in the set.
func (s *FuncSet) Has(f *tree.Func) bool { return s != nil && s.set[f] }

// Len returns the size of the set.
func (s *FuncSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}

// Funcs returns the members in insertion order.
func (s *FuncSet) Funcs() []*tree.Func {
	if s == nil {
		return nil
	}
	return append([]*tree.Func{}, s.list...)
}

// Names returns the member names in insertion order.
func (s *FuncSet) Names() []string {
	var names []string
	for _, f := range s.Funcs() {
		names = append(names, f.Name)
	}
	return names
}
