package eventstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eaburns/xform/native"
	"github.com/eaburns/xform/opt"
	"github.com/eaburns/xform/parser"
	"github.com/google/go-cmp/cmp"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Open failed: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordEvents(t *testing.T) {
	ctx := context.Background()
	s := open(t)
	events := []opt.Event{
		{Func: "f", Phase: opt.PhaseReduce, Msg: "Transformed: { return a; }"},
		{Func: "g", Phase: opt.PhaseInline, Msg: "inlined f into g", Debug: true},
		{Phase: opt.PhaseConfig, Msg: "no inliner"},
	}
	id1, err := s.RecordEvents(ctx, "reduction", 2, events)
	if err != nil {
		t.Fatalf("RecordEvents failed: %s", err)
	}
	id2, err := s.RecordEvents(ctx, "none", 0, nil)
	if err != nil {
		t.Fatalf("RecordEvents failed: %s", err)
	}
	if id1 == id2 {
		t.Fatalf("duplicate run ID %s", id1)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs failed: %s", err)
	}
	for i := range runs {
		if runs[i].Started.IsZero() {
			t.Errorf("run %d has no start time", i)
		}
		runs[i].Started = runs[0].Started
	}
	want := []Run{
		{ID: id1, Started: runs[0].Started, Mode: "reduction", Funcs: 2, Events: 3},
		{ID: id2, Started: runs[0].Started, Mode: "none", Funcs: 0, Events: 0},
	}
	if diff := cmp.Diff(want, runs); diff != "" {
		t.Errorf("Runs: %s", diff)
	}

	got, err := s.Events(ctx, id1, "")
	if err != nil {
		t.Fatalf("Events failed: %s", err)
	}
	if diff := cmp.Diff(events, got); diff != "" {
		t.Errorf("Events: %s", diff)
	}
	got, err = s.Events(ctx, id1, opt.PhaseInline)
	if err != nil {
		t.Fatalf("Events failed: %s", err)
	}
	if diff := cmp.Diff(events[1:2], got); diff != "" {
		t.Errorf("Events(inline): %s", diff)
	}
	if got, err := s.Events(ctx, id2, ""); err != nil || len(got) != 0 {
		t.Errorf("Events(%s)=%v, %v, want none", id2, got, err)
	}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	p := parser.New()
	if err := p.Parse("test.xs", strings.NewReader("function f(a) { return a + 1; }")); err != nil {
		t.Fatalf("failed to parse: %s", err)
	}
	p.Link()
	a := &opt.Analysis{
		Options: opt.Options{Activate: true, DumpXform: true},
		Env:     opt.MapEnv{},
		Log:     &opt.Log{},
		Errors:  &opt.Reporter{},
		Native:  native.NewRegistry(),
	}
	for _, f := range p.Funcs() {
		a.Register(f)
	}
	a.Run()

	s := open(t)
	id, err := s.Record(ctx, a)
	if err != nil {
		t.Fatalf("Record failed: %s", err)
	}
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs failed: %s", err)
	}
	if len(runs) != 1 || runs[0].ID != id || runs[0].Mode != "reduction" || runs[0].Funcs != 1 {
		t.Fatalf("Runs()=%+v", runs)
	}
	if runs[0].Events != len(a.Log.Events) {
		t.Errorf("got %d events, want %d", runs[0].Events, len(a.Log.Events))
	}
	got, err := s.Events(ctx, id, "")
	if err != nil {
		t.Fatalf("Events failed: %s", err)
	}
	if diff := cmp.Diff(a.Log.Events, got); diff != "" {
		t.Errorf("Events: %s", diff)
	}
}

func TestOpenBadPath(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "events.db")); err == nil {
		t.Errorf("Open succeeded in a missing directory")
	}
}
