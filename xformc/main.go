// xformc loads script files, runs the optimization pipeline over their functions,
// and optionally generates LLVM IR, calls a function, or records the run.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/eaburns/pretty"
	"github.com/eaburns/xform/backend/llvm"
	"github.com/eaburns/xform/eventstore"
	"github.com/eaburns/xform/inline"
	"github.com/eaburns/xform/interp"
	"github.com/eaburns/xform/mod"
	"github.com/eaburns/xform/native"
	"github.com/eaburns/xform/opt"
	"github.com/eaburns/xform/parser"
	"github.com/eaburns/xform/tree"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	root       = flag.String("root", ".", "@load root directory")
	activate   = flag.Bool("xform", false, "reduce functions")
	inliner    = flag.Bool("inline", false, "inline small functions")
	dump       = flag.Bool("dump", false, "print transformed function bodies")
	only       = flag.String("only", "", "only analyze the named function")
	usageLevel = flag.Int("usage", 0, "report usage issues: 1 for undefined uses, 2 for unused assignments too")
	recursive  = flag.Bool("report-recursive", false, "report recursive functions")
	gen        = flag.String("gen", "", "write LLVM IR for all functions to this path")
	call       = flag.String("call", "", "call the named function after the analysis")
	callArgs   = flag.String("args", "", "comma-separated integer arguments for -call")
	events     = flag.String("events", "", "record the run's events in this SQLite database")
	dumpTree   = flag.Bool("dumptree", false, "print the syntax tree of each function after the analysis")
	dumpInfo   = flag.Bool("dumpinfo", false, "print the analysis summary of each function")
	trace      = flag.Bool("trace", false, "trace interpretation")
	v          = flag.Bool("v", false, "print debug events")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage("a script file or directory is required")
	}
	start := time.Now()

	m, err := mod.NewLoader(*root).LoadMain(args...)
	if err != nil {
		die("%s", err)
	}
	files := m.AllSrcFiles()
	p, parseErrs, err := parse(files)
	if err != nil {
		die("%s", err)
	}

	in := interp.New()
	in.Trace = *trace
	in.Load(p.Funcs())

	a := &opt.Analysis{
		Options: opt.Options{
			Activate:        *activate,
			Inliner:         *inliner,
			DumpXform:       *dump,
			OnlyFunc:        *only,
			UsageIssues:     *usageLevel,
			GenNative:       *gen != "",
			ReportRecursive: *recursive,
		},
		Log:        &opt.Log{Out: os.Stdout, Verbose: *v},
		Errors:     &opt.Reporter{},
		Native:     native.Default,
		Binder:     in,
		NewInliner: inline.NewOpt,
		Files:      p.LocFiles(),
	}
	for _, err := range parseErrs {
		fmt.Println(err)
		a.Errors.Error(err)
	}
	a.CodeGen = llvm.Backend{Options: []llvm.Option{llvm.LocFiles(a.Files), llvm.Log(a.Log)}}
	var genFile *os.File
	if *gen != "" {
		if genFile, err = os.Create(*gen); err != nil {
			die("failed to create output file: %s", err)
		}
		a.GenOut = bufio.NewWriter(genFile)
	}
	for _, f := range p.Funcs() {
		a.Register(f)
	}
	a.Run()
	if genFile != nil {
		if err := a.GenOut.(*bufio.Writer).Flush(); err != nil {
			die("failed to write %s: %s", *gen, err)
		}
		if err := genFile.Close(); err != nil {
			die("failed to close output file: %s", err)
		}
	}

	if *dumpTree {
		for _, fi := range a.Funcs() {
			if err := fi.Func.Print(os.Stdout, tree.PrintLocs(p.Files...)); err != nil {
				die("%s", err)
			}
		}
	}
	if *dumpInfo {
		pretty.Indent = "    "
		for _, fi := range a.Funcs() {
			pretty.Print(summarize(a, fi))
			fmt.Println("")
		}
	}
	if *call != "" {
		if err := callFunc(in, *call, *callArgs); err != nil {
			die("%s", err)
		}
	}
	if *events != "" {
		id, err := record(*events, a)
		if err != nil {
			die("%s", err)
		}
		if *v {
			fmt.Println("recorded run", id)
		}
	}

	fmt.Printf("%s in %s: %s functions, %s events, mode %s (%s)\n",
		humanize.Comma(int64(len(files))), strings.Join(args, " "),
		humanize.Comma(int64(len(a.Funcs()))),
		humanize.Comma(int64(len(a.Log.Events))),
		a.Mode(), time.Since(start).Round(time.Millisecond))
	if a.Errors.Count() > 0 {
		os.Exit(1)
	}
}

func usage(msg string) {
	fmt.Printf("%s\n", msg)
	fmt.Printf("xformc [flags] <file or directory>...\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func die(f string, vs ...interface{}) {
	fmt.Printf(f+"\n", vs...)
	os.Exit(1)
}

// parse reads and parses the files concurrently.
// Files that fail to parse are omitted,
// and their errors returned.
func parse(files []string) (*parser.Parser, []error, error) {
	data := make([][]byte, len(files))
	var g errgroup.Group
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			d, err := os.ReadFile(file)
			if err != nil {
				return errors.Wrap(err, "read")
			}
			data[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	p := parser.New()
	if wd, err := os.Getwd(); err == nil {
		p.TrimPathPrefix = wd + "/"
	}
	offs := make([]int, len(files))
	next := p.Offset()
	for i := range files {
		offs[i] = next
		next += len(data[i])
	}
	results := make([]*parser.Result, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		i, file := i, file
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := strings.TrimPrefix(file, p.TrimPathPrefix)
			results[i], errs[i] = parser.ParseData(path, data[i], offs[i])
		}()
	}
	wg.Wait()

	var parseErrs []error
	for i := range files {
		if errs[i] != nil {
			parseErrs = append(parseErrs, errs[i])
			continue
		}
		if p.Offset() != offs[i] {
			// An earlier file failed; re-parse at the current offset.
			res, err := parser.ParseData(results[i].File.P, data[i], p.Offset())
			if err != nil {
				parseErrs = append(parseErrs, err)
				continue
			}
			results[i] = res
		}
		p.Add(results[i])
	}
	p.Link()
	return p, parseErrs, nil
}

func callFunc(in *interp.Interp, name, args string) error {
	var ints []int64
	if args != "" {
		for _, s := range strings.Split(args, ",") {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return errors.Wrapf(err, "bad argument %q", s)
			}
			ints = append(ints, n)
		}
	}
	res, err := in.Call(name, ints...)
	if err != nil {
		return errors.Wrapf(err, "call %s", name)
	}
	if n, err := in.Drain(); err != nil {
		return errors.Wrap(err, "when")
	} else if *v && n > 0 {
		fmt.Println("ran", n, "when statements")
	}
	fmt.Println(res)
	return nil
}

func record(path string, a *opt.Analysis) (string, error) {
	store, err := eventstore.Open(path)
	if err != nil {
		return "", err
	}
	defer store.Close()
	id, err := store.Record(context.Background(), a)
	return id, errors.Wrapf(err, "record events in %s", path)
}

type summary struct {
	Name        string
	Kind        string
	FrameSize   int
	Revision    int
	ScriptCalls []string
	WhenCalls   []string
	Builtins    []string
	Tainted     bool
}

func summarize(a *opt.Analysis, fi *opt.FuncInfo) summary {
	s := summary{
		Name:      fi.Name(),
		Kind:      fi.Func.Kind.String(),
		FrameSize: fi.Func.FrameSize,
		Revision:  fi.Revision,
		Tainted:   a.Taint().Has(fi.Func),
	}
	if pf := fi.Profile; pf != nil {
		s.ScriptCalls = pf.ScriptCalls.Names()
		s.WhenCalls = pf.WhenCalls.Names()
		s.Builtins = pf.BuiltinCalls
	}
	return s
}
