package relkit

import "fmt"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type RuleName string

const (
	RuleParseError         RuleName = "parse-error"
	RuleMissingInclude     RuleName = "missing-include"
	RuleIncludeCycle       RuleName = "include-cycle"
	RuleDuplicateName      RuleName = "duplicate-name"
	RuleNonExactPin        RuleName = "non-exact-pin"
	RuleUnpinned           RuleName = "unpinned"
	RuleConstraintConflict RuleName = "constraint-conflict"
)

// Finding is one lint result, tied to the manifest line that produced it.
// Line is zero when the finding concerns the manifest as a whole.
type Finding struct {
	Severity Severity
	Rule     RuleName
	Manifest string
	Line     int
	Message  string
}

func (f Finding) String() string {
	if f.Line == 0 {
		return fmt.Sprintf("%s: %s: %s: %s", f.Manifest, f.Severity, f.Rule, f.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s: %s", f.Manifest, f.Line, f.Severity, f.Rule, f.Message)
}

// IsError reports whether the finding should fail a batch lint.
func (f Finding) IsError() bool {
	return f.Severity == SeverityError
}
