package opt

import (
	"strconv"

	"github.com/xyproto/env/v2"
)

// Options control the analysis.
type Options struct {
	// Activate enables the reduction pipeline.
	Activate bool
	// Inliner enables the inlining phase.
	Inliner bool
	// DumpXform reports the transformed body of each optimized function.
	DumpXform bool
	// OnlyFunc, if non-empty, restricts analysis to the named function.
	// It implies Activate.
	OnlyFunc string
	// UsageIssues is the verbosity of usage reports: 0, 1, or 2.
	// Non-zero implies Activate.
	UsageIssues int
	// GenNative requests native code generation
	// in place of the reduction pipeline.
	GenNative bool
	// ReportRecursive reports functions excluded from inlining
	// because they are recursive.
	ReportRecursive bool
}

// Environment variables consulted when resolving Options.
const (
	EnvDumpXform       = "XFORM_DUMP"
	EnvInline          = "XFORM_INLINE"
	EnvActivate        = "XFORM"
	EnvUsageIssues     = "XFORM_USAGE_ISSUES"
	EnvOnly            = "XFORM_ONLY"
	EnvGenNative       = "XFORM_GEN"
	EnvReportRecursive = "XFORM_REPORT_RECURSIVE"
)

// An Environ is a source of option settings.
type Environ interface {
	Has(name string) bool
	Str(name string) string
	Int(name string, def int) int
}

// ProcessEnv is the process environment.
var ProcessEnv Environ = processEnv{}

type processEnv struct{}

func (processEnv) Has(name string) bool         { return env.Has(name) }
func (processEnv) Str(name string) string       { return env.Str(name) }
func (processEnv) Int(name string, def int) int { return env.Int(name, def) }

// MapEnv is an Environ backed by a map.
type MapEnv map[string]string

func (m MapEnv) Has(name string) bool { _, ok := m[name]; return ok }

func (m MapEnv) Str(name string) string { return m[name] }

func (m MapEnv) Int(name string, def int) int {
	n, err := strconv.Atoi(m[name])
	if err != nil {
		return def
	}
	return n
}

// resolve merges the environment into opts.
// A variable being set turns its flag on;
// flags already on are never turned off.
func (opts *Options) resolve(e Environ) {
	setFlag := func(name string, flag *bool) {
		if e.Has(name) {
			*flag = true
		}
	}
	setFlag(EnvDumpXform, &opts.DumpXform)
	setFlag(EnvInline, &opts.Inliner)
	setFlag(EnvActivate, &opts.Activate)
	setFlag(EnvGenNative, &opts.GenNative)
	setFlag(EnvReportRecursive, &opts.ReportRecursive)

	if e.Has(EnvUsageIssues) {
		if e.Int(EnvUsageIssues, 0) > 1 {
			opts.UsageIssues = 2
		} else {
			opts.UsageIssues = 1
		}
	}
	switch {
	case opts.UsageIssues > 2:
		opts.UsageIssues = 2
	case opts.UsageIssues < 0:
		opts.UsageIssues = 0
	}
	if opts.OnlyFunc == "" {
		opts.OnlyFunc = e.Str(EnvOnly)
	}
	if opts.OnlyFunc != "" || opts.UsageIssues > 0 {
		opts.Activate = true
	}
}
