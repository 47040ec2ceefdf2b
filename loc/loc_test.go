package loc

import "testing"

type file struct {
	path string
	nls  []int
	n    int
}

func (f file) Path() string    { return f.path }
func (f file) Len() int        { return f.n }
func (f file) NewLines() []int { return f.nls }

func TestJoin(t *testing.T) {
	tests := []struct {
		l, m, want Loc
	}{
		{Loc{}, Loc{}, Loc{}},
		{Loc{1, 2}, Loc{}, Loc{1, 2}},
		{Loc{}, Loc{3, 4}, Loc{3, 4}},
		{Loc{1, 2}, Loc{3, 4}, Loc{1, 4}},
		{Loc{3, 9}, Loc{1, 4}, Loc{1, 9}},
	}
	for _, test := range tests {
		if got := test.l.Join(test.m); got != test.want {
			t.Errorf("%v.Join(%v)=%v, want %v", test.l, test.m, got, test.want)
		}
	}
}

func TestLocation(t *testing.T) {
	// "ab\ncd\n" and "efg\n"
	files := Files{
		file{path: "a.xs", nls: []int{2, 5}, n: 6},
		file{path: "b.xs", nls: []int{3}, n: 4},
	}
	tests := []struct {
		l    Loc
		want string
	}{
		{Loc{}, ""},
		{Loc{1, 3}, "a.xs:1.1-1.3"},
		{Loc{4, 6}, "a.xs:2.1-2.3"},
		{Loc{1, 6}, "a.xs:1.1-2.3"},
		{Loc{7, 9}, "b.xs:1.1-1.3"},
		{Loc{100, 101}, ""},
		{Loc{5, 2}, ""},
	}
	for _, test := range tests {
		if got := files.Location(test.l).String(); got != test.want {
			t.Errorf("Location(%v)=%q, want %q", test.l, got, test.want)
		}
	}
	if (Files{}).Location(Loc{1, 2}) != (Location{}) {
		t.Errorf("empty Files has a location")
	}
}
