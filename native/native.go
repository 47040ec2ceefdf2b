// Package native holds compiled implementations of script functions.
package native

import (
	"sort"
	"sync"
)

// A Func is a compiled implementation of a script function.
type Func func(args []int64) (int64, error)

// A Registry maps function names to compiled implementations.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
	hook  func(*Registry)
	ran   bool
}

// NewRegistry returns a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Default is the registry that generated code registers with.
var Default = NewRegistry()

// Register adds an implementation for a function name,
// replacing any earlier one.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the implementation for a function name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the sorted names of the registered implementations.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install sets the initialization hook of the registry.
// The hook registers the compiled implementations.
func (r *Registry) Install(hook func(*Registry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = hook
	r.ran = false
}

// Installed returns whether an initialization hook is installed.
func (r *Registry) Installed() bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hook != nil
}

// RunHook runs the initialization hook if it is installed
// and has not yet run.
func (r *Registry) RunHook() {
	if r == nil {
		return
	}
	r.mu.Lock()
	hook := r.hook
	if hook == nil || r.ran {
		r.mu.Unlock()
		return
	}
	r.ran = true
	r.mu.Unlock()
	hook(r)
}
