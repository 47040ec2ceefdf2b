package mod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMainFilesNoDeps(t *testing.T) {
	fsPath := makeFS([]file{
		{"x/y/z/foo.xs", ""},
		{"x/y/z/bar.xs", ""},
		{"x/y/z/baz.xs", ""},
	})
	defer os.RemoveAll(fsPath)
	m, err := NewLoader(fsPath).LoadMain(
		filepath.Join(fsPath, "x/y/z", "foo.xs"),
		filepath.Join(fsPath, "x/y/z", "bar.xs"),
		filepath.Join(fsPath, "x/y/z", "baz.xs"),
	)
	if err != nil {
		t.Fatalf("failed to load main: %s", err)
	}
	if diff := cmp.Diff(m, &Mod{
		Path:     "main",
		FullPath: filepath.Join(fsPath, "x/y/z"),
		SrcFiles: []string{
			filepath.Join(fsPath, "x/y/z", "bar.xs"),
			filepath.Join(fsPath, "x/y/z", "baz.xs"),
			filepath.Join(fsPath, "x/y/z", "foo.xs"),
		},
	}); diff != "" {
		t.Errorf("%s", diff)
	}
}

func TestLoadMainFilesDeps(t *testing.T) {
	fsPath := makeFS([]file{
		{"x/y/z/foo.xs", `@load "dep0"`},
		{"x/y/z/bar.xs", ``},
		{"x/y/z/baz.xs", `@load "dep1"`},
		{"root/dep0/source.xs", ``},
		{"root/dep1/source.xs", ``},
	})
	defer os.RemoveAll(fsPath)
	m, err := NewLoader(filepath.Join(fsPath, "root")).LoadMain(
		filepath.Join(fsPath, "x/y/z", "foo.xs"),
		filepath.Join(fsPath, "x/y/z", "bar.xs"),
		filepath.Join(fsPath, "x/y/z", "baz.xs"),
	)
	if err != nil {
		t.Fatalf("failed to load main: %s", err)
	}
	if diff := cmp.Diff(m, &Mod{
		Path:     "main",
		FullPath: filepath.Join(fsPath, "x/y/z"),
		SrcFiles: []string{
			filepath.Join(fsPath, "x/y/z", "bar.xs"),
			filepath.Join(fsPath, "x/y/z", "baz.xs"),
			filepath.Join(fsPath, "x/y/z", "foo.xs"),
		},
		Deps: []*Mod{
			{
				Path:     "dep0",
				FullPath: filepath.Join(fsPath, "root/dep0"),
				SrcFiles: []string{
					filepath.Join(fsPath, "root/dep0", "source.xs"),
				},
			},
			{
				Path:     "dep1",
				FullPath: filepath.Join(fsPath, "root/dep1"),
				SrcFiles: []string{
					filepath.Join(fsPath, "root/dep1", "source.xs"),
				},
			},
		},
	}); diff != "" {
		for _, dep := range m.Deps {
			t.Logf("%#v\n", dep)
		}
		t.Errorf("%s", diff)
	}
}

func TestLoadMainDir(t *testing.T) {
	fsPath := makeFS([]file{
		{"main/foo.xs", ""},
		{"main/bar.xs", ""},
		{"main/README", ""},
		{"main/.hidden.xs", ""},
	})
	defer os.RemoveAll(fsPath)
	m, err := NewLoader(fsPath).LoadMain(filepath.Join(fsPath, "main"))
	if err != nil {
		t.Fatalf("failed to load main: %s", err)
	}
	if diff := cmp.Diff(m, &Mod{
		Path:     "main",
		FullPath: filepath.Join(fsPath, "main"),
		SrcFiles: []string{
			filepath.Join(fsPath, "main", "bar.xs"),
			filepath.Join(fsPath, "main", "foo.xs"),
		},
	}); diff != "" {
		t.Errorf("%s", diff)
	}
}

func TestLoadMainNotSource(t *testing.T) {
	fsPath := makeFS([]file{{"main/foo.txt", ""}})
	defer os.RemoveAll(fsPath)
	if _, err := NewLoader(fsPath).LoadMain(filepath.Join(fsPath, "main", "foo.txt")); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLoadNoDeps(t *testing.T) {
	fsPath := makeFS([]file{
		{"main/foo.xs", ""},
		{"main/bar.xs", ""},
		{"main/baz.xs", ""},
	})
	defer os.RemoveAll(fsPath)
	m, err := NewLoader(fsPath).Load("main")
	if err != nil {
		t.Fatalf("failed to load main: %s", err)
	}
	if diff := cmp.Diff(m, &Mod{
		Path:     "main",
		FullPath: filepath.Join(fsPath, "main"),
		SrcFiles: []string{
			filepath.Join(fsPath, "main", "bar.xs"),
			filepath.Join(fsPath, "main", "baz.xs"),
			filepath.Join(fsPath, "main", "foo.xs"),
		},
	}); diff != "" {
		t.Errorf("%s", diff)
	}
}

func TestLoadDepsDeduped(t *testing.T) {
	fsPath := makeFS([]file{
		{"main/foo.xs", `@load "dep0"`},
		{"main/bar.xs", `@load "dep1"`},
		{"main/baz.xs", `@load "dep0"`},
		{"dep0/source.xs", `@load "dep1"`},
		{"dep1/source.xs", ``},
	})
	defer os.RemoveAll(fsPath)
	m, err := NewLoader(fsPath).Load("main")
	if err != nil {
		t.Fatalf("failed to load main: %s", err)
	}
	dep1 := &Mod{
		Path:     "dep1",
		FullPath: filepath.Join(fsPath, "dep1"),
		SrcFiles: []string{
			filepath.Join(fsPath, "dep1", "source.xs"),
		},
	}
	if diff := cmp.Diff(m, &Mod{
		Path:     "main",
		FullPath: filepath.Join(fsPath, "main"),
		SrcFiles: []string{
			filepath.Join(fsPath, "main", "bar.xs"),
			filepath.Join(fsPath, "main", "baz.xs"),
			filepath.Join(fsPath, "main", "foo.xs"),
		},
		Deps: []*Mod{
			{
				Path:     "dep0",
				FullPath: filepath.Join(fsPath, "dep0"),
				SrcFiles: []string{
					filepath.Join(fsPath, "dep0", "source.xs"),
				},
				Deps: []*Mod{dep1},
			},
			dep1,
		},
	}); diff != "" {
		t.Errorf("%s", diff)
	}
	if m.Deps[0].Deps[0] != m.Deps[1] {
		t.Errorf("dep1 loaded twice")
	}
}

func TestAllSrcFiles(t *testing.T) {
	fsPath := makeFS([]file{
		{"main/main.xs", `@load "b" @load "a"`},
		{"a/a.xs", `@load "b"`},
		{"b/b.xs", ``},
	})
	defer os.RemoveAll(fsPath)
	m, err := NewLoader(fsPath).Load("main")
	if err != nil {
		t.Fatalf("failed to load main: %s", err)
	}
	want := []string{
		filepath.Join(fsPath, "b", "b.xs"),
		filepath.Join(fsPath, "a", "a.xs"),
		filepath.Join(fsPath, "main", "main.xs"),
	}
	if diff := cmp.Diff(m.AllSrcFiles(), want); diff != "" {
		t.Errorf("%s", diff)
	}
}

func TestLoadNotFound(t *testing.T) {
	fsPath := makeFS([]file{
		{"main/foo.xs", ``},
	})
	defer os.RemoveAll(fsPath)
	if _, err := NewLoader(fsPath).Load("NOT_FOUND"); err == nil {
		t.Fatalf("expected not found error")
	}
}

func TestLoadDepCycle(t *testing.T) {
	fsPath := makeFS([]file{
		{"main/foo.xs", `@load "dep0"`},
		{"main/bar.xs", `@load "dep1"`},
		{"dep0/source.xs", `@load "dep1"`},
		{"dep1/source.xs", `@load "dep0"`},
	})
	defer os.RemoveAll(fsPath)
	if _, err := NewLoader(fsPath).Load("main"); err == nil {
		t.Fatalf("expected dependency cycle error")
	}
}

type file struct {
	path string
	data string
}

func makeFS(files []file) string {
	root, err := os.MkdirTemp("", "xform_mod_test.*")
	if err != nil {
		panic("os.MkdirTemp failed: " + err.Error())
	}
	for _, file := range files {
		path := filepath.Join(root, file.path)
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			os.RemoveAll(root)
			panic("os.MkdirAll failed: " + err.Error())
		}
		if err := os.WriteFile(path, []byte(file.data), 0666); err != nil {
			os.RemoveAll(root)
			panic("os.WriteFile failed: " + err.Error())
		}
	}
	return root
}
