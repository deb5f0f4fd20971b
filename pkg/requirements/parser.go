package requirements

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var requirementPattern = regexp.MustCompile(
	`^([A-Za-z0-9][A-Za-z0-9._-]*)` + // name
		`(?:\[([^\]]*)\])?` + // extras
		`\s*(?:(===|==|~=|!=|<=|>=|<|>)\s*([^\s;]+))?` + // constraint
		`\s*(?:;\s*(.+))?$`, // environment marker
)

// ParseFile reads and parses the manifest at path.
func ParseFile(path ManifestPath) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("open manifest %s", path))
	}
	defer f.Close()
	return Parse(path, f)
}

// Parse parses a manifest from r. The path is only used to label
// requirements and errors with their origin.
func Parse(path ManifestPath, r io.Reader) (*Manifest, error) {
	m := &Manifest{Path: path}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parseLine(m, lineNo, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("read manifest %s", path))
	}
	return m, nil
}

func parseLine(m *Manifest, lineNo int, raw string) {
	line := stripComment(raw)
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if strings.HasPrefix(line, "-") {
		parseDirective(m, lineNo, line)
		return
	}

	match := requirementPattern.FindStringSubmatch(line)
	if match == nil {
		m.Malformed = append(m.Malformed, LineError{
			File:   m.Path,
			Line:   lineNo,
			Text:   raw,
			Reason: fmt.Sprintf("not a requirement or directive: %q", line),
		})
		return
	}
	req := Requirement{
		Name:    match[1],
		Op:      match[3],
		Version: match[4],
		Marker:  strings.TrimSpace(match[5]),
		File:    m.Path,
		Line:    lineNo,
	}
	if match[2] != "" {
		for _, extra := range strings.Split(match[2], ",") {
			extra = strings.TrimSpace(extra)
			if extra != "" {
				req.Extras = append(req.Extras, extra)
			}
		}
	}
	m.Requirements = append(m.Requirements, req)
}

func parseDirective(m *Manifest, lineNo int, line string) {
	fields := strings.Fields(line)
	var kind DirectiveKind
	switch fields[0] {
	case "-r", "--requirement":
		kind = DirectiveRequirement
	case "-c", "--constraint":
		kind = DirectiveConstraint
	default:
		m.Malformed = append(m.Malformed, LineError{
			File:   m.Path,
			Line:   lineNo,
			Text:   line,
			Reason: fmt.Sprintf("unsupported option %s", fields[0]),
		})
		return
	}
	if len(fields) != 2 {
		m.Malformed = append(m.Malformed, LineError{
			File:   m.Path,
			Line:   lineNo,
			Text:   line,
			Reason: fmt.Sprintf("%s expects exactly one file argument", fields[0]),
		})
		return
	}
	m.Directives = append(m.Directives, Directive{
		Kind:   kind,
		Target: fields[1],
		File:   m.Path,
		Line:   lineNo,
	})
}

// stripComment removes a '#' comment. A '#' only starts a comment at the
// beginning of the line or after whitespace, so URLs in markers survive.
func stripComment(line string) string {
	for i, r := range line {
		if r != '#' {
			continue
		}
		if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
			return line[:i]
		}
	}
	return line
}
