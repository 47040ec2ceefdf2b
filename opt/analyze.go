// Package opt is the function-level optimization pipeline.
//
// Functions are registered with an Analysis,
// and Run profiles them, computes the functions involved in when statements,
// optionally inlines, and then does exactly one of:
// substituting compiled implementations,
// generating native code,
// or reducing, checking, and decorating each eligible function.
package opt

import (
	"io"
	"os"

	"github.com/eaburns/xform/loc"
	"github.com/eaburns/xform/native"
	"github.com/eaburns/xform/tree"
)

// A State is the progress of an Analysis.
type State int

const (
	Uninitialized State = iota
	ConfigResolved
	Profiled
	TaintComputed
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ConfigResolved:
		return "config-resolved"
	case Profiled:
		return "profiled"
	case TaintComputed:
		return "taint-computed"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// A Mode is the terminal action of a run.
type Mode int

const (
	// ModeNone is the mode before a run or after an early exit.
	ModeNone Mode = iota
	// ModeInlineOnly inlines without any further action.
	ModeInlineOnly
	// ModeNativeSubstitution rebinds functions to compiled implementations.
	ModeNativeSubstitution
	// ModeNativeGeneration generates native code for all functions.
	ModeNativeGeneration
	// ModeReduction reduces each eligible function.
	ModeReduction
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeInlineOnly:
		return "inline-only"
	case ModeNativeSubstitution:
		return "native-substitution"
	case ModeNativeGeneration:
		return "native-generation"
	case ModeReduction:
		return "reduction"
	default:
		return "unknown"
	}
}

// An Inliner folds calls into their callers.
type Inliner interface {
	// WasInlined returns whether every call to f was folded away.
	WasInlined(f *tree.Func) bool
}

// A CodeGen generates native code for a set of functions.
type CodeGen interface {
	Generate(w io.Writer, infos []*FuncInfo) error
}

// A Binder sets the value of global identifiers.
type Binder interface {
	// Rebind binds a global name to a compiled implementation.
	// It returns false if there is no such global.
	Rebind(name string, fn native.Func) bool
}

// An Analysis is one optimization pipeline over a set of functions.
type Analysis struct {
	Options Options
	// Env is consulted once to resolve Options.
	// If nil, the process environment is used.
	Env Environ
	Log *Log
	// Errors holds errors found before the analysis, such as parse errors.
	// Functions are not reduced if there are any.
	Errors *Reporter

	// Native is the registry of compiled implementations.
	// If it has an initialization hook installed,
	// the run substitutes compiled implementations.
	Native *native.Registry
	// Binder rebinds globals for substitution.
	Binder Binder
	// CodeGen generates native code to GenOut,
	// or to os.Stdout if GenOut is nil.
	CodeGen CodeGen
	GenOut  io.Writer
	// NewInliner creates the inliner if inlining is enabled.
	NewInliner func(infos []*FuncInfo, nonRec *FuncSet, log *Log) Inliner
	// Files locates usage issues; it may be nil.
	Files loc.Files

	// reduce returns the reduced body
	// and the number of temporaries and new locals it introduced.
	// If nil, a Reducer is used.
	reduce func(scope *tree.Scope, body tree.Stmt) (tree.Stmt, int, int)

	infos   []*FuncInfo
	state   State
	mode    Mode
	taint   *FuncSet
	inliner Inliner
}

// Register adds a function to the analysis.
// If OnlyFunc is set, other functions are ignored.
func (a *Analysis) Register(f *tree.Func) {
	if a.Options.OnlyFunc != "" && a.Options.OnlyFunc != f.Name {
		return
	}
	a.infos = append(a.infos, &FuncInfo{Func: f, Scope: f.Scope, Body: f.Body})
}

// Funcs returns the registered functions in registration order.
func (a *Analysis) Funcs() []*FuncInfo { return a.infos }

// Taint returns the functions involved in when statements,
// or nil before the taint is computed.
func (a *Analysis) Taint() *FuncSet { return a.taint }

// State returns the progress of the analysis.
func (a *Analysis) State() State { return a.state }

// Mode returns the terminal action of the last run.
func (a *Analysis) Mode() Mode { return a.mode }

// Run runs the pipeline over the registered functions.
// Options are resolved only on the first call;
// everything else is recomputed by each call.
func (a *Analysis) Run() {
	if a.state == Uninitialized {
		a.resolve()
	}
	a.mode = ModeNone
	if !a.Options.Activate && !a.Options.Inliner {
		return
	}

	for _, fi := range a.infos {
		fi.SetProfile(ProfileFunc(fi.Func, fi.Body))
	}
	a.state = Profiled

	a.taint = ComputeTaint(a.infos)
	a.state = TaintComputed
	for _, f := range a.taint.Funcs() {
		a.Log.Debug(f.Name, PhaseTaint, "%s is involved in a when statement", f.Name)
	}

	a.inliner = nil
	if a.Options.Inliner {
		a.inline()
	}
	if !a.Options.Activate {
		a.mode = ModeInlineOnly
		a.state = Done
		return
	}

	switch a.mode = a.chooseMode(); a.mode {
	case ModeNativeSubstitution:
		a.substitute()
	case ModeNativeGeneration:
		a.generate()
	case ModeReduction:
		a.reduceAll()
	}
	a.state = Done
}

func (a *Analysis) resolve() {
	a.Native.RunHook()
	e := a.Env
	if e == nil {
		e = ProcessEnv
	}
	a.Options.resolve(e)
	if only := a.Options.OnlyFunc; only != "" {
		var infos []*FuncInfo
		for _, fi := range a.infos {
			if fi.Name() == only {
				infos = append(infos, fi)
			}
		}
		a.infos = infos
	}
	a.state = ConfigResolved
	a.Log.Debug("", PhaseConfig, "options: %+v", a.Options)
}

func (a *Analysis) chooseMode() Mode {
	switch {
	case a.Native.Installed():
		return ModeNativeSubstitution
	case a.Options.GenNative:
		return ModeNativeGeneration
	default:
		return ModeReduction
	}
}

func (a *Analysis) inline() {
	nonRec := NonRecursive(a.infos)
	if a.Options.ReportRecursive {
		for _, fi := range a.infos {
			if !nonRec.Has(fi.Func) {
				a.Log.Report(fi.Name(), PhaseInline, "%s is recursive", fi.Name())
			}
		}
	}
	if a.NewInliner == nil {
		a.Log.Debug("", PhaseInline, "no inliner")
		return
	}
	a.inliner = a.NewInliner(a.infos, nonRec, a.Log)
}

func (a *Analysis) substitute() {
	for _, fi := range a.infos {
		fn, ok := a.Native.Lookup(fi.Name())
		if !ok {
			continue
		}
		if a.Binder == nil || !a.Binder.Rebind(fi.Name(), fn) {
			a.Log.Debug(fi.Name(), PhaseSubstitute, "%s: no global to rebind", fi.Name())
			continue
		}
		a.Log.Debug(fi.Name(), PhaseSubstitute, "%s: using compiled implementation", fi.Name())
	}
}

func (a *Analysis) generate() {
	if a.CodeGen == nil {
		a.Log.Report("", PhaseGenerate, "no code generator")
		a.Errors.Errorf("no code generator")
		return
	}
	w := a.GenOut
	if w == nil {
		w = os.Stdout
	}
	if err := a.CodeGen.Generate(w, a.infos); err != nil {
		a.Log.Report("", PhaseGenerate, "%s", err)
		a.Errors.Error(err)
	}
}

func (a *Analysis) reduceAll() {
	for _, fi := range a.infos {
		if a.inliner != nil && a.inliner.WasInlined(fi.Func) {
			a.Log.Debug(fi.Name(), PhaseReduce, "%s was inlined", fi.Name())
			continue
		}
		if a.taint.Has(fi.Func) {
			continue
		}
		a.optimizeFunc(fi)
	}
}

func (a *Analysis) optimizeFunc(fi *FuncInfo) {
	if a.Errors.Count() > 0 {
		return
	}
	only := a.Options.OnlyFunc
	if only != "" && only != fi.Name() {
		return
	}
	name := fi.Name()
	if only != "" {
		a.Log.Report(name, PhaseReduce, "Original: %s", fi.Body)
	}
	if pf := fi.Profile; pf.NumWhenStmts > 0 || pf.NumLambdas > 0 {
		const msg = `Skipping analysis due to "when" statement or use of lambdas`
		if only != "" {
			a.Log.Report(name, PhaseReduce, msg)
		} else {
			a.Log.Debug(name, PhaseReduce, msg)
		}
		return
	}

	reduce := a.reduce
	if reduce == nil {
		reduce = reduceBody
	}
	body, temps, newLocals := reduce(fi.Scope, fi.Body)
	if a.Errors.Count() > 0 {
		return
	}
	if ok, n := IsReduced(body); !ok {
		a.Log.Report(name, PhaseCheck, "Reduction inconsistency for %s: %s", name, n)
	}
	if only != "" || a.Options.DumpXform {
		a.Log.Report(name, PhaseReduce, "Transformed: %s", body)
	}
	fi.Func.ReplaceBody(fi.Body, body)
	fi.SetBody(body)

	pf := ProfileFunc(fi.Func, body)
	fi.SetProfile(pf)
	fi.RDs = Decorate(fi.Func, fi.Scope, body, pf)
	for _, is := range fi.RDs.Issues(a.Options.UsageIssues) {
		a.Log.Report(name, PhaseUsage, "%s: %s", a.where(name, is.Node), is.Msg)
	}

	if n := fi.Scope.Len() + temps + newLocals; n > fi.Func.FrameSize {
		fi.Func.SetFrameSize(n)
	}
}

func reduceBody(scope *tree.Scope, body tree.Stmt) (tree.Stmt, int, int) {
	rc := NewReducer(scope)
	body = rc.Reduce(body)
	return body, rc.NumTemps(), rc.NumNewLocals()
}

func (a *Analysis) where(name string, n tree.Node) string {
	if l := a.Files.Location(n.Loc()); l != (loc.Location{}) {
		return l.String()
	}
	return name
}
