package requirements

import (
	"fmt"
	"strings"
)

type ManifestPath = string

type PackageName = string

// Requirement is one requirement line: a package name with an optional
// version constraint. An empty Op means the requirement is unconstrained.
type Requirement struct {
	Name    PackageName
	Extras  []string
	Op      string
	Version string
	// Marker is the raw environment marker after ';', if any.
	Marker string
	File   ManifestPath
	Line   int
}

// Pinned reports whether the requirement is an exact pin.
func (r Requirement) Pinned() bool {
	return r.Op == "=="
}

func (r Requirement) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if len(r.Extras) != 0 {
		sb.WriteString("[")
		sb.WriteString(strings.Join(r.Extras, ","))
		sb.WriteString("]")
	}
	if r.Op != "" {
		sb.WriteString(r.Op)
		sb.WriteString(r.Version)
	}
	return sb.String()
}

type DirectiveKind string

const (
	// DirectiveRequirement is a -r/--requirement include.
	DirectiveRequirement DirectiveKind = "-r"
	// DirectiveConstraint is a -c/--constraint include.
	DirectiveConstraint DirectiveKind = "-c"
)

// Directive is a -r or -c line naming another manifest file. Target is kept
// as written; callers resolve it relative to the including file.
type Directive struct {
	Kind   DirectiveKind
	Target string
	File   ManifestPath
	Line   int
}

// LineError records a line that is not blank, not a comment, and not a valid
// requirement or directive.
type LineError struct {
	File   ManifestPath
	Line   int
	Text   string
	Reason string
}

func (e LineError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
}

// Manifest is one parsed requirements file. Malformed lines are collected
// rather than aborting the parse, so a single bad line does not hide the
// rest of the file.
type Manifest struct {
	Path         ManifestPath
	Requirements []Requirement
	Directives   []Directive
	Malformed    []LineError
}

// Includes returns the directives of the given kind.
func (m *Manifest) Includes(kind DirectiveKind) []Directive {
	var out []Directive
	for _, d := range m.Directives {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// CanonicalName folds a package name the way pip does: case-insensitive,
// with runs of '-', '_' and '.' treated as a single '-'.
func CanonicalName(name string) PackageName {
	var sb strings.Builder
	prevSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			prevSep = true
			continue
		}
		if prevSep && sb.Len() != 0 {
			sb.WriteByte('-')
		}
		prevSep = false
		sb.WriteRune(r)
	}
	return sb.String()
}
