package ir

import "strings"

// Path is an ordered sequence of labels. The empty path is the root.
type Path []string

// Root is the empty path.
var Root = Path{}

// ParsePath splits a dotted string into labels, dropping empty segments.
// ParsePath("") and ParsePath("...") both return the root.
func ParsePath(s string) Path {
	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			p = append(p, part)
		}
	}
	return p
}

// String renders the path by joining labels with ".".
func (p Path) String() string {
	return strings.Join(p, ".")
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Split returns the scope (all but the last label) and the leaf.
// ok is false for the root path.
func (p Path) Split() (scope Path, leaf string, ok bool) {
	if len(p) == 0 {
		return Root, "", false
	}
	return p[:len(p)-1].Clone(), p[len(p)-1], true
}

// Leaf returns the last label, or "" for the root.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Append returns a new path with labels appended. p is never modified.
func (p Path) Append(labels ...string) Path {
	out := make(Path, 0, len(p)+len(labels))
	out = append(out, p...)
	return append(out, labels...)
}

// Clone returns a copy of p that shares no backing array.
func (p Path) Clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
// Every path has the root as prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether p and other hold the same labels.
func (p Path) Equal(other Path) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// IsAtOrUnder reports whether the dotted key lies at or beneath the dotted
// prefix. The root prefix ("") contains every key.
func IsAtOrUnder(key, prefix string) bool {
	if prefix == "" {
		return true
	}
	return key == prefix || strings.HasPrefix(key, prefix+".")
}
