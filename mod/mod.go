// Package mod loads script directories and their @load dependencies.
package mod

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/eaburns/xform/parser"
	"github.com/pkg/errors"
)

// Ext is the extension of script source files.
const Ext = ".xs"

// A Mod is information about a single script directory.
type Mod struct {
	Path     string
	FullPath string
	SrcFiles []string
	Deps     []*Mod
}

// A Loader loads script directories and their dependencies.
// @load paths are relative to the root directory.
type Loader struct {
	rootDir string
	mods    map[string]*Mod
}

// NewLoader returns a new Loader that loads @load paths from a root directory.
func NewLoader(rootDir string) *Loader {
	return &Loader{
		rootDir: rootDir,
		mods:    make(map[string]*Mod),
	}
}

// Load returns the module at a given @load path.
func (ld *Loader) Load(modPath string) (*Mod, error) {
	return ld.load([]string{}, make(map[string]bool), modPath)
}

// LoadMain returns a module named "main" made of the given source files,
// or of the source files of the directory if a single directory is given.
func (ld *Loader) LoadMain(paths ...string) (*Mod, error) {
	mod := &Mod{Path: "main"}
	if len(paths) == 1 {
		if info, err := os.Stat(paths[0]); err == nil && info.IsDir() {
			mod.FullPath = paths[0]
			srcFiles, err := sourceFiles(paths[0])
			if err != nil {
				return nil, err
			}
			paths = srcFiles
		}
	}
	for _, p := range paths {
		if mod.FullPath == "" {
			mod.FullPath = filepath.Dir(p)
		}
		if filepath.Ext(p) != Ext {
			return nil, errors.Errorf("%s: not a %s file", p, Ext)
		}
		mod.SrcFiles = append(mod.SrcFiles, p)
	}
	sort.Strings(mod.SrcFiles)
	loads, err := loadPaths(mod.SrcFiles)
	if err != nil {
		return nil, err
	}
	for _, l := range loads {
		m, err := ld.load([]string{mod.Path}, map[string]bool{}, l)
		if err != nil {
			return nil, err
		}
		mod.Deps = append(mod.Deps, m)
	}
	return mod, nil
}

func (ld *Loader) load(path []string, onPath map[string]bool, modPath string) (*Mod, error) {
	path = append(path, modPath)
	defer func() { path = path[:len(path)-1] }()
	if onPath[modPath] {
		return nil, errors.Errorf("dependency cycle: %v", path)
	}
	onPath[modPath] = true
	defer func() { delete(onPath, modPath) }()

	if mod, ok := ld.mods[modPath]; ok {
		return mod, nil
	}

	fullPath := filepath.Join(ld.rootDir, modPath)
	srcFiles, err := sourceFiles(fullPath)
	if err != nil {
		return nil, err
	}
	loads, err := loadPaths(srcFiles)
	if err != nil {
		return nil, err
	}

	mod := &Mod{
		Path:     modPath,
		FullPath: fullPath,
		SrcFiles: srcFiles,
	}
	ld.mods[modPath] = mod
	for _, l := range loads {
		m, err := ld.load(path, onPath, l)
		if err != nil {
			return nil, err
		}
		mod.Deps = append(mod.Deps, m)
	}
	return mod, nil
}

// Sorted returns the module and its transitive dependencies,
// each exactly once, with every module after its dependencies.
func (mod *Mod) Sorted() []*Mod {
	var sorted []*Mod
	seen := make(map[*Mod]bool)
	var visit func(*Mod)
	visit = func(m *Mod) {
		if seen[m] {
			return
		}
		seen[m] = true
		for _, d := range m.Deps {
			visit(d)
		}
		sorted = append(sorted, m)
	}
	visit(mod)
	return sorted
}

// AllSrcFiles returns the source files of the module
// and its transitive dependencies, dependencies first.
func (mod *Mod) AllSrcFiles() []string {
	var files []string
	for _, m := range mod.Sorted() {
		files = append(files, m.SrcFiles...)
	}
	return files
}

func sourceFiles(fullPath string) ([]string, error) {
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, errors.Wrap(err, "read module")
	}
	var srcFiles []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if filepath.Ext(e.Name()) == Ext {
			srcFiles = append(srcFiles, filepath.Join(fullPath, e.Name()))
		}
	}
	sort.Strings(srcFiles)
	return srcFiles, nil
}

func loadPaths(srcFiles []string) ([]string, error) {
	var loads []string
	seen := make(map[string]bool)
	for _, srcFile := range srcFiles {
		ls, err := parser.ImportsOnly(srcFile)
		if err != nil {
			return nil, err
		}
		for _, l := range ls {
			if !seen[l] {
				seen[l] = true
				loads = append(loads, l)
			}
		}
	}
	sort.Strings(loads)
	return loads, nil
}
