// Package loc tracks source locations of script nodes.
package loc

import "fmt"

// Loc is a byte span [start, end) into the concatenation of a set of files,
// offset by 1 so that the zero value means no location.
type Loc [2]int

// Join returns the smallest Loc covering both l and m.
// A zero Loc is ignored.
func (l Loc) Join(m Loc) Loc {
	switch {
	case l == Loc{}:
		return m
	case m == Loc{}:
		return l
	}
	if m[0] < l[0] {
		l[0] = m[0]
	}
	if m[1] > l[1] {
		l[1] = m[1]
	}
	return l
}

// A Locer is anything with a Loc.
type Locer interface {
	Loc() Loc
}

// A Location is a human-readable position in a file.
// The zero value indicates no location.
type Location struct {
	Path string
	Line [2]int
	Col  [2]int
}

func (l Location) String() string {
	if (l == Location{}) {
		return ""
	}
	if l.Line[0] == l.Line[1] && l.Col[0] == l.Col[1] {
		return fmt.Sprintf("%s:%d.%d", l.Path, l.Line[0], l.Col[0])
	}
	return fmt.Sprintf("%s:%d.%d-%d.%d", l.Path, l.Line[0], l.Col[0], l.Line[1], l.Col[1])
}

// File describes a script file by its path, size, and newline offsets.
type File interface {
	Path() string
	Len() int
	NewLines() []int
}

// Files is the ordered set of files that Locs index into.
type Files []File

// Len returns the total length of all files.
func (fs Files) Len() int {
	var n int
	for _, f := range fs {
		n += f.Len()
	}
	return n
}

// Location returns the Location of a Loc.
// A zero Loc, or a Loc outside of the files, has the zero Location.
func (fs Files) Location(l Loc) Location {
	if len(fs) == 0 || l == (Loc{}) || l[0] < 1 || l[1]-1 > fs.Len() || l[0] > l[1] {
		return Location{}
	}
	p0, l0, c0 := fs.pos(l[0])
	p1, l1, c1 := fs.pos(l[1])
	if p0 != p1 {
		// Spans never cross files; report the start.
		return Location{Path: p0, Line: [2]int{l0, l0}, Col: [2]int{c0, c0}}
	}
	return Location{Path: p0, Line: [2]int{l0, l1}, Col: [2]int{c0, c1}}
}

func (fs Files) pos(q int) (string, int, int) {
	q--
	var f File
	var offs int
	for i := range fs {
		f = fs[i]
		if q < offs+f.Len() || q == offs+f.Len() && i == len(fs)-1 {
			break
		}
		offs += f.Len()
	}
	line, lineStart := 1, offs-1
	for _, nl := range f.NewLines() {
		if offs+nl >= q {
			break
		}
		lineStart = offs + nl
		line++
	}
	return f.Path(), line, q - lineStart
}
