package opt

import (
	"fmt"
	"io"
)

// A Phase is the pipeline stage that reported an event.
type Phase string

const (
	PhaseConfig     Phase = "config"
	PhaseProfile    Phase = "profile"
	PhaseTaint      Phase = "taint"
	PhaseInline     Phase = "inline"
	PhaseSubstitute Phase = "substitute"
	PhaseGenerate   Phase = "generate"
	PhaseReduce     Phase = "reduce"
	PhaseCheck      Phase = "check"
	PhaseDecorate   Phase = "decorate"
	PhaseUsage      Phase = "usage"
)

// An Event is a diagnostic from the pipeline.
type Event struct {
	// Func is the name of the function, or "" if not function-specific.
	Func  string
	Phase Phase
	Msg   string
	// Debug events are only printed in verbose mode.
	Debug bool
}

func (e Event) String() string { return e.Msg }

// A Log records events and prints them as lines to Out.
type Log struct {
	// Out receives printed events; nil discards them.
	Out io.Writer
	// Verbose prints Debug events too.
	Verbose bool
	Events  []Event
}

// Report records and prints a diagnostic.
func (l *Log) Report(fn string, ph Phase, f string, vs ...interface{}) {
	l.add(Event{Func: fn, Phase: ph, Msg: fmt.Sprintf(f, vs...)})
}

// Debug records an event that is printed only in verbose mode.
func (l *Log) Debug(fn string, ph Phase, f string, vs ...interface{}) {
	l.add(Event{Func: fn, Phase: ph, Msg: fmt.Sprintf(f, vs...), Debug: true})
}

func (l *Log) add(e Event) {
	if l == nil {
		return
	}
	l.Events = append(l.Events, e)
	if l.Out != nil && (!e.Debug || l.Verbose) {
		fmt.Fprintln(l.Out, e.Msg)
	}
}

// Find returns the events for a function and phase.
// An empty fn or ph matches any.
func (l *Log) Find(fn string, ph Phase) []Event {
	var es []Event
	for _, e := range l.Events {
		if (fn == "" || e.Func == fn) && (ph == "" || e.Phase == ph) {
			es = append(es, e)
		}
	}
	return es
}

// Reporter accumulates errors found outside of the pipeline,
// such as parse errors. Any error stops per-function reduction.
type Reporter struct {
	errs []error
}

// Error records an error.
// A nil Reporter discards it.
func (r *Reporter) Error(err error) {
	if r != nil {
		r.errs = append(r.errs, err)
	}
}

// Errorf records a formatted error.
func (r *Reporter) Errorf(f string, vs ...interface{}) { r.Error(fmt.Errorf(f, vs...)) }

// Count returns the number of errors.
func (r *Reporter) Count() int {
	if r == nil {
		return 0
	}
	return len(r.errs)
}

// Errs returns the recorded errors.
func (r *Reporter) Errs() []error {
	if r == nil {
		return nil
	}
	return r.errs
}
