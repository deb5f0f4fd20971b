package relkit

import (
	"fmt"

	"github.com/relkit/relkit/pkg/requirements"
)

// LintRoot lints one root manifest's tier: the root plus everything its -r
// includes pull in, checked against the constraint pins that apply to it.
func (l *LoadedProject) LintRoot(root ManifestPath) []Finding {
	var findings []Finding
	if _, ok := l.MissingIncludes[root]; ok {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Rule:     RuleMissingInclude,
			Manifest: root,
			Message:  "manifest does not exist",
		})
		return findings
	}
	closure := l.Graph.Closure(root, l.Manifests, requirements.DirectiveRequirement)
	for _, path := range closure {
		findings = append(findings, l.lintManifest(path)...)
	}
	findings = append(findings, l.lintTier(root, closure)...)
	return findings
}

// GenerateFindings streams findings for every root, include cycles first,
// and closes the channel when done. Findings for manifests shared between
// tiers are reported once.
func (l *LoadedProject) GenerateFindings(findings chan<- Finding) {
	seen := make(map[Finding]struct{})
	emit := func(f Finding) {
		if _, ok := seen[f]; ok {
			return
		}
		seen[f] = struct{}{}
		findings <- f
	}
	for _, f := range l.lintGraph() {
		emit(f)
	}
	for _, root := range l.AllRoots() {
		for _, f := range l.LintRoot(root) {
			emit(f)
		}
	}
	close(findings)
}

// LintAll collects every finding for the whole project.
func (l *LoadedProject) LintAll() []Finding {
	findings := make(chan Finding)
	go l.GenerateFindings(findings)
	var out []Finding
	for f := range findings {
		out = append(out, f)
	}
	return out
}

// lintManifest applies the single-file rules: malformed lines, missing
// include targets, and constraint shape.
func (l *LoadedProject) lintManifest(path ManifestPath) []Finding {
	m, ok := l.Manifests[path]
	if !ok {
		return nil
	}
	var findings []Finding
	for _, e := range m.Malformed {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Rule:     RuleParseError,
			Manifest: path,
			Line:     e.Line,
			Message:  e.Reason,
		})
	}
	for _, d := range m.Directives {
		target := resolveInclude(d)
		if _, missing := l.MissingIncludes[target]; !missing {
			continue
		}
		findings = append(findings, Finding{
			Severity: SeverityError,
			Rule:     RuleMissingInclude,
			Manifest: path,
			Line:     d.Line,
			Message:  fmt.Sprintf("included manifest %s does not exist", d.Target),
		})
	}
	for _, req := range m.Requirements {
		switch {
		case req.Op == "" && l.RequirePins:
			findings = append(findings, Finding{
				Severity: SeverityError,
				Rule:     RuleUnpinned,
				Manifest: path,
				Line:     req.Line,
				Message:  fmt.Sprintf("%s has no version pin", req.Name),
			})
		case req.Op != "" && req.Op != "==":
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Rule:     RuleNonExactPin,
				Manifest: path,
				Line:     req.Line,
				Message:  fmt.Sprintf("%s uses %s, constraints should be exact pins", req.Name, req.Op),
			})
		}
	}
	return findings
}

// lintTier applies the cross-file rules within one tier: duplicate names
// and conflicts with the applicable constraint pins.
func (l *LoadedProject) lintTier(root ManifestPath, closure []ManifestPath) []Finding {
	var findings []Finding
	pins := l.constraintPins(closure)
	first := make(map[requirements.PackageName]requirements.Requirement)
	for _, path := range closure {
		m, ok := l.Manifests[path]
		if !ok {
			continue
		}
		for _, req := range m.Requirements {
			name := requirements.CanonicalName(req.Name)
			if prev, ok := first[name]; ok {
				findings = append(findings, Finding{
					Severity: SeverityError,
					Rule:     RuleDuplicateName,
					Manifest: path,
					Line:     req.Line,
					Message:  fmt.Sprintf("%s already appears at %s:%d", req.Name, prev.File, prev.Line),
				})
			} else {
				first[name] = req
			}
			pin, ok := pins[name]
			if !ok || !req.Pinned() || req.Version == pin.Version {
				continue
			}
			findings = append(findings, Finding{
				Severity: SeverityError,
				Rule:     RuleConstraintConflict,
				Manifest: path,
				Line:     req.Line,
				Message: fmt.Sprintf("%s==%s conflicts with constraint %s==%s (%s:%d)",
					req.Name, req.Version, pin.Name, pin.Version, pin.File, pin.Line),
			})
		}
	}
	return findings
}

// lintGraph reports directive edges the include graph rejected as cycles.
func (l *LoadedProject) lintGraph() []Finding {
	var findings []Finding
	for _, d := range l.Graph.CycleEdges {
		findings = append(findings, Finding{
			Severity: SeverityError,
			Rule:     RuleIncludeCycle,
			Manifest: d.File,
			Line:     d.Line,
			Message:  fmt.Sprintf("including %s creates a cycle", d.Target),
		})
	}
	return findings
}

// constraintPins gathers exact pins from the project-wide constraint
// manifests and from any -c directive inside the tier's own closure.
func (l *LoadedProject) constraintPins(closure []ManifestPath) map[requirements.PackageName]requirements.Requirement {
	roots := append([]ManifestPath{}, l.ConstraintRoots...)
	for _, path := range closure {
		m, ok := l.Manifests[path]
		if !ok {
			continue
		}
		for _, d := range m.Includes(requirements.DirectiveConstraint) {
			roots = append(roots, resolveInclude(d))
		}
	}
	pins := make(map[requirements.PackageName]requirements.Requirement)
	seen := make(map[ManifestPath]struct{})
	for _, root := range roots {
		for _, path := range l.Graph.Closure(root, l.Manifests, requirements.DirectiveRequirement) {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			m, ok := l.Manifests[path]
			if !ok {
				continue
			}
			for _, req := range m.Requirements {
				if !req.Pinned() {
					continue
				}
				name := requirements.CanonicalName(req.Name)
				if _, ok := pins[name]; !ok {
					pins[name] = req
				}
			}
		}
	}
	return pins
}
