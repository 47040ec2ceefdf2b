package opt

import "github.com/eaburns/xform/tree"

// ComputeTaint returns the functions involved in when statements:
// those that call a function from within a when statement,
// the functions they call that way,
// and, transitively, every function those call directly.
// These functions cannot be optimized.
func ComputeTaint(infos []*FuncInfo) *FuncSet {
	profs := make(map[*tree.Func]*Profile, len(infos))
	for _, fi := range infos {
		profs[fi.Func] = fi.Profile
	}

	taint := &FuncSet{}
	todo := &FuncSet{}
	for _, fi := range infos {
		if fi.Profile == nil || fi.Profile.WhenCalls.Len() == 0 {
			continue
		}
		taint.Add(fi.Func)
		for _, wf := range fi.Profile.WhenCalls.Funcs() {
			todo.Add(wf)
		}
	}
	for todo.Len() > 0 {
		for _, wf := range todo.Funcs() {
			taint.Add(wf)
		}
		next := &FuncSet{}
		for _, wf := range todo.Funcs() {
			// Functions filtered out of registration have no profile.
			pf := profs[wf]
			if pf == nil {
				continue
			}
			for _, c := range pf.ScriptCalls.Funcs() {
				if !taint.Has(c) {
					next.Add(c)
				}
			}
		}
		todo = next
	}
	return taint
}

// NonRecursive returns the registered functions that are not
// on any call cycle, including a call to themselves.
// Both direct and when calls are edges.
func NonRecursive(infos []*FuncInfo) *FuncSet {
	t := &tarjan{
		profs: make(map[*tree.Func]*Profile, len(infos)),
		index: make(map[*tree.Func]int),
		low:   make(map[*tree.Func]int),
		on:    make(map[*tree.Func]bool),
	}
	for _, fi := range infos {
		t.profs[fi.Func] = fi.Profile
	}
	nonRec := &FuncSet{}
	for _, fi := range infos {
		if _, ok := t.index[fi.Func]; !ok {
			t.visit(fi.Func)
		}
	}
	for _, fi := range infos {
		if !t.recursive[fi.Func] {
			nonRec.Add(fi.Func)
		}
	}
	return nonRec
}

type tarjan struct {
	profs     map[*tree.Func]*Profile
	next      int
	index     map[*tree.Func]int
	low       map[*tree.Func]int
	on        map[*tree.Func]bool
	stack     []*tree.Func
	recursive map[*tree.Func]bool
}

func (t *tarjan) callees(f *tree.Func) []*tree.Func {
	pf := t.profs[f]
	if pf == nil {
		return nil
	}
	return append(pf.ScriptCalls.Funcs(), pf.WhenCalls.Funcs()...)
}

func (t *tarjan) visit(f *tree.Func) {
	if t.recursive == nil {
		t.recursive = make(map[*tree.Func]bool)
	}
	t.index[f] = t.next
	t.low[f] = t.next
	t.next++
	t.stack = append(t.stack, f)
	t.on[f] = true

	selfCall := false
	for _, c := range t.callees(f) {
		if c == f {
			selfCall = true
		}
		if _, ok := t.index[c]; !ok {
			t.visit(c)
			if t.low[c] < t.low[f] {
				t.low[f] = t.low[c]
			}
		} else if t.on[c] && t.index[c] < t.low[f] {
			t.low[f] = t.index[c]
		}
	}
	if t.low[f] != t.index[f] {
		return
	}
	var scc []*tree.Func
	for {
		g := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.on[g] = false
		scc = append(scc, g)
		if g == f {
			break
		}
	}
	if len(scc) > 1 || selfCall {
		for _, g := range scc {
			t.recursive[g] = true
		}
	}
}
