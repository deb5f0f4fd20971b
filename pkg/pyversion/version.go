// Package pyversion models release version strings of the form
// major.minor.micro with an optional pre-release phase, e.g. 7.4.1b3.
package pyversion

import (
	"fmt"
	"regexp"
	"strconv"
)

// Phase is a pre-release phase. The empty phase means a final release.
type Phase string

const (
	PhaseAlpha Phase = "a"
	PhaseBeta  Phase = "b"
	PhaseRC    Phase = "rc"
	PhaseFinal Phase = ""
)

// Part names accepted by Bump.
const (
	PartMajor = "major"
	PartMinor = "minor"
	PartMicro = "micro"
	PartAlpha = "alpha"
	PartBeta  = "beta"
	PartRC    = "rc"
	PartFinal = "final"
)

type Version struct {
	Major  int
	Minor  int
	Micro  int
	Phase  Phase
	Serial int
}

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)(?:\.(\d+))?(?:(a|b|rc)(\d+))?$`)

func Parse(s string) (Version, error) {
	match := versionPattern.FindStringSubmatch(s)
	if match == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	v := Version{}
	v.Major, _ = strconv.Atoi(match[1])
	v.Minor, _ = strconv.Atoi(match[2])
	if match[3] != "" {
		v.Micro, _ = strconv.Atoi(match[3])
	}
	if match[4] != "" {
		v.Phase = Phase(match[4])
		v.Serial, _ = strconv.Atoi(match[5])
	}
	return v, nil
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
	if v.Phase != PhaseFinal {
		s += fmt.Sprintf("%s%d", v.Phase, v.Serial)
	}
	return s
}

func (v Version) IsFinal() bool {
	return v.Phase == PhaseFinal
}

// phaseRank orders phases: alpha < beta < rc < final.
func phaseRank(p Phase) int {
	switch p {
	case PhaseAlpha:
		return 0
	case PhaseBeta:
		return 1
	case PhaseRC:
		return 2
	default:
		return 3
	}
}

// Compare returns -1, 0, or 1 as v sorts before, equal to, or after o.
func (v Version) Compare(o Version) int {
	nums := [][2]int{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Micro, o.Micro},
		{phaseRank(v.Phase), phaseRank(o.Phase)},
		{v.Serial, o.Serial},
	}
	for _, pair := range nums {
		if pair[0] < pair[1] {
			return -1
		}
		if pair[0] > pair[1] {
			return 1
		}
	}
	return 0
}

// Bump returns the version with the named part advanced. Bumping a numeric
// part resets everything after it. Bumping a phase on a final release opens
// the next micro at serial 0; bumping the phase already active increments
// its serial. Moving a pre-release backwards (e.g. rc to alpha) is an error,
// as is finalizing an already-final version.
func (v Version) Bump(part string) (Version, error) {
	switch part {
	case PartMajor:
		return Version{Major: v.Major + 1}, nil
	case PartMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case PartMicro:
		return Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro + 1}, nil
	case PartAlpha:
		return v.bumpPhase(PhaseAlpha)
	case PartBeta:
		return v.bumpPhase(PhaseBeta)
	case PartRC:
		return v.bumpPhase(PhaseRC)
	case PartFinal:
		if v.IsFinal() {
			return Version{}, fmt.Errorf("%s is already a final release", v)
		}
		return Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro}, nil
	default:
		return Version{}, fmt.Errorf("unknown version part %q", part)
	}
}

func (v Version) bumpPhase(p Phase) (Version, error) {
	if v.IsFinal() {
		next := Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro + 1, Phase: p}
		return next, nil
	}
	if v.Phase == p {
		v.Serial++
		return v, nil
	}
	if phaseRank(p) < phaseRank(v.Phase) {
		return Version{}, fmt.Errorf("cannot move %s backwards to %s%d", v, p, 0)
	}
	return Version{Major: v.Major, Minor: v.Minor, Micro: v.Micro, Phase: p}, nil
}
