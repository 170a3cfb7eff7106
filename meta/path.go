package meta

import (
	"strings"
)

// Reserved path segments.
const (
	Any    = "*"
	This   = "$this"
	Parent = "$parent"
)

// Path is an immutable sequence of field name segments. Segments may be
// numeric array indexes or the Any wildcard.
type Path struct {
	segs []string
}

// EmptyPath is the zero-length path.
var EmptyPath = Path{}

// ParsePath splits a dotted path. The empty string yields EmptyPath.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmptyPath
	}
	return Path{segs: strings.Split(s, ".")}
}

// NewPath builds a path from individual segments.
func NewPath(segs ...string) Path {
	if len(segs) == 0 {
		return EmptyPath
	}
	return Path{segs: append([]string(nil), segs...)}
}

func (p Path) Len() int       { return len(p.segs) }
func (p Path) IsEmpty() bool  { return len(p.segs) == 0 }
func (p Path) String() string { return strings.Join(p.segs, ".") }

// Head returns the i'th segment.
func (p Path) Head(i int) string { return p.segs[i] }

// Last returns the final segment, or "" for the empty path.
func (p Path) Last() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[len(p.segs)-1]
}

// Segments returns a copy of the segments.
func (p Path) Segments() []string { return append([]string(nil), p.segs...) }

// Prefix returns the first n segments. A negative n drops -n segments from
// the end.
func (p Path) Prefix(n int) Path {
	if n < 0 {
		n = len(p.segs) + n
	}
	if n <= 0 {
		return EmptyPath
	}
	if n >= len(p.segs) {
		return p
	}
	return Path{segs: p.segs[:n:n]}
}

// Tail returns the segments from index n onward.
func (p Path) Tail(n int) Path {
	if n >= len(p.segs) {
		return EmptyPath
	}
	if n <= 0 {
		return p
	}
	return Path{segs: append([]string(nil), p.segs[n:]...)}
}

// Append returns a new path with segs added at the end.
func (p Path) Append(segs ...string) Path {
	out := make([]string, 0, len(p.segs)+len(segs))
	out = append(out, p.segs...)
	out = append(out, segs...)
	return Path{segs: out}
}

// Concat returns p followed by q.
func (p Path) Concat(q Path) Path { return p.Append(q.segs...) }

// IsIndex reports whether segment i is a non-negative integer.
func (p Path) IsIndex(i int) bool { return isIndex(p.segs[i]) }

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Equal compares segment by segment, without wildcard matching.
func (p Path) Equal(q Path) bool {
	if len(p.segs) != len(q.segs) {
		return false
	}
	for i := range p.segs {
		if p.segs[i] != q.segs[i] {
			return false
		}
	}
	return true
}

// Mask replaces numeric indexes with Any.
func (p Path) Mask() Path {
	out := make([]string, len(p.segs))
	for i, s := range p.segs {
		if isIndex(s) {
			out[i] = Any
		} else {
			out[i] = s
		}
	}
	return Path{segs: out}
}

func segmentMatches(a, b string) bool {
	return a == b || a == Any || b == Any
}

// Matches reports whether both paths have the same length and every pair of
// segments is equal or contains a wildcard.
func (p Path) Matches(q Path) bool {
	if len(p.segs) != len(q.segs) {
		return false
	}
	for i := range p.segs {
		if !segmentMatches(p.segs[i], q.segs[i]) {
			return false
		}
	}
	return true
}

// MatchingPrefix reports whether p is a prefix of q using Matches rules.
func (p Path) MatchingPrefix(q Path) bool {
	if len(p.segs) > len(q.segs) {
		return false
	}
	for i := range p.segs {
		if !segmentMatches(p.segs[i], q.segs[i]) {
			return false
		}
	}
	return true
}

// NormalizeRelative removes This segments and folds Parent segments into the
// preceding field name. Going up from an array element also drops the array
// field, the same way Resolve treats it.
func (p Path) NormalizeRelative() (Path, error) {
	out := make([]string, 0, len(p.segs))
	for _, s := range p.segs {
		switch s {
		case This:
		case Parent:
			if len(out) == 0 {
				return EmptyPath, newError(ErrInvalidFieldReference, "%s: %s beyond root", p, Parent)
			}
			last := out[len(out)-1]
			out = out[:len(out)-1]
			if (last == Any || isIndex(last)) && len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return Path{segs: out}, nil
}

// MutablePath is a segment stack used while walking field trees.
type MutablePath struct {
	segs []string
}

// Push adds seg and returns the function that removes it again, so callers
// can write defer mp.Push(seg)().
func (m *MutablePath) Push(seg string) func() {
	m.segs = append(m.segs, seg)
	n := len(m.segs) - 1
	return func() { m.segs = m.segs[:n] }
}

func (m *MutablePath) Len() int { return len(m.segs) }

// Immutable snapshots the current stack.
func (m *MutablePath) Immutable() Path { return NewPath(m.segs...) }

func (m *MutablePath) String() string { return strings.Join(m.segs, ".") }
