package relkit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/relkit/relkit/pkg/checklist"
	"github.com/relkit/relkit/pkg/pyversion"
	"github.com/relkit/relkit/pkg/requirements"
)

const (
	V1Alpha1APIVersion = "relkit.github.com/v1alpha1"
	ProjectKind        = "Project"

	TempDirReports = "reports"
)

type ManifestPath = requirements.ManifestPath

// Project is the relkit.yaml document: the manifests to lint, the release
// checklist, and where the release version lives.
type Project struct {
	metav1.TypeMeta
	Manifests     []ManifestPath   `json:"manifests,omitempty"`
	ManifestDirs  []string         `json:"manifestDirs,omitempty"`
	Constraints   []ManifestPath   `json:"constraints,omitempty"`
	VersionFile   string           `json:"versionFile,omitempty"`
	Changelog     string           `json:"changelog,omitempty"`
	ChecklistPath string           `json:"checklist,omitempty"`
	Steps         []checklist.Step `json:"steps,omitempty"`
	RequirePins   bool             `json:"requirePins,omitempty"`
}

// Load validates the project and resolves everything it references:
// manifests (explicit and scanned, plus their transitive includes), the
// checklist, and the version file. Missing include targets and include
// cycles are recorded for lint rather than failing the load.
func (p *Project) Load(root string) (*LoadedProject, error) {
	var err error
	if p.APIVersion != V1Alpha1APIVersion {
		return nil, fmt.Errorf("Unknown apiVersion: %s", p.APIVersion)
	}
	if p.Kind != ProjectKind {
		return nil, fmt.Errorf("Unknown kind: %s", p.Kind)
	}

	if len(p.Manifests)+len(p.ManifestDirs) == 0 {
		return nil, fmt.Errorf("No manifests or manifest directories specified")
	}
	if len(p.Steps) != 0 && p.ChecklistPath != "" {
		return nil, fmt.Errorf("Both an inline checklist and a checklist file are specified")
	}

	l := LoadedProject{
		Project:         p,
		Root:            root,
		Manifests:       make(map[ManifestPath]*requirements.Manifest),
		MissingIncludes: make(map[ManifestPath]struct{}),
		Graph:           newIncludeGraph(),
	}

	l.TempDir, err = os.MkdirTemp("", "relkit-*")
	if err != nil {
		return nil, errors.Wrap(err, "create project temp directory")
	}
	defer func() {
		if err != nil {
			os.RemoveAll(l.TempDir)
		}
	}()

	seen := make(map[ManifestPath]struct{})
	for _, path := range p.Manifests {
		path = filepath.ToSlash(path)
		if _, ok := seen[path]; ok {
			err = fmt.Errorf("Manifest %s is duplicated", path)
			return nil, err
		}
		seen[path] = struct{}{}
		l.Roots = append(l.Roots, path)
	}
	for _, dir := range p.ManifestDirs {
		err = func() error {
			entries, err := os.ReadDir(filepath.Join(root, dir))
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("list directory %s", dir))
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				name := entry.Name()
				if !strings.HasSuffix(name, ".pip") && !strings.HasSuffix(name, ".txt") {
					continue
				}
				path := filepath.ToSlash(filepath.Join(dir, name))
				if _, ok := seen[path]; ok {
					continue
				}
				seen[path] = struct{}{}
				l.Roots = append(l.Roots, path)
			}
			return nil
		}()
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("scan manifest dir %s", dir))
		}
	}
	sort.Strings(l.Roots)

	for _, path := range p.Constraints {
		path = filepath.ToSlash(path)
		if _, ok := seen[path]; ok {
			err = fmt.Errorf("Manifest %s is duplicated", path)
			return nil, err
		}
		seen[path] = struct{}{}
		l.ConstraintRoots = append(l.ConstraintRoots, path)
	}
	sort.Strings(l.ConstraintRoots)

	err = l.parseAll()
	if err != nil {
		return nil, err
	}

	if p.ChecklistPath != "" {
		l.Checklist, err = checklist.Load(filepath.Join(root, p.ChecklistPath))
		if err != nil {
			return nil, err
		}
	} else if len(p.Steps) != 0 {
		l.Checklist, err = checklist.FromSteps(p.Steps)
		if err != nil {
			return nil, err
		}
	}

	if p.VersionFile != "" {
		var raw []byte
		raw, err = os.ReadFile(filepath.Join(root, p.VersionFile))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("read version file %s", p.VersionFile))
		}
		l.RawVersion = strings.TrimSpace(string(raw))
		l.Version, err = pyversion.Parse(l.RawVersion)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("version file %s", p.VersionFile))
		}
		l.HasVersion = true
	}

	return &l, nil
}

// LoadedProject is a validated project with every reachable manifest parsed
// and the include graph built.
type LoadedProject struct {
	*Project
	Root    string
	TempDir string

	Roots           []ManifestPath
	ConstraintRoots []ManifestPath
	Manifests       map[ManifestPath]*requirements.Manifest
	MissingIncludes map[ManifestPath]struct{}
	Graph           *IncludeGraph

	Checklist  *checklist.Checklist
	RawVersion string
	Version    pyversion.Version
	HasVersion bool
}

// parseAll walks from the root and constraint manifests through every -r
// and -c directive, parsing each file once. Unreadable include targets go
// to MissingIncludes; cycles are diverted by the graph.
func (l *LoadedProject) parseAll() error {
	queue := append([]ManifestPath{}, l.Roots...)
	queue = append(queue, l.ConstraintRoots...)
	queued := make(map[ManifestPath]struct{}, len(queue))
	for _, path := range queue {
		queued[path] = struct{}{}
	}
	for i := 0; i < len(queue); i++ {
		path := queue[i]
		if err := l.Graph.addManifest(path); err != nil {
			return err
		}
		m, err := requirements.ParseFile(l.manifestFile(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				l.MissingIncludes[path] = struct{}{}
				continue
			}
			return err
		}
		// Re-key requirements and directives to the root-relative path.
		m.Path = path
		for ix := range m.Requirements {
			m.Requirements[ix].File = path
		}
		for ix := range m.Directives {
			m.Directives[ix].File = path
		}
		for ix := range m.Malformed {
			m.Malformed[ix].File = path
		}
		l.Manifests[path] = m
		for _, d := range m.Directives {
			target := resolveInclude(d)
			if err := l.Graph.addManifest(target); err != nil {
				return err
			}
			if err := l.Graph.addInclude(d, target); err != nil {
				return err
			}
			if _, ok := queued[target]; ok {
				continue
			}
			queued[target] = struct{}{}
			queue = append(queue, target)
		}
	}
	return nil
}

// manifestFile maps a manifest key to the file it lives in. Keys are
// root-relative except for absolute include targets, which stand alone.
func (l *LoadedProject) manifestFile(path ManifestPath) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.Root, path)
}

// AllRoots returns the lintable roots: requirement manifests first, then
// constraint manifests.
func (l *LoadedProject) AllRoots() []ManifestPath {
	out := make([]ManifestPath, 0, len(l.Roots)+len(l.ConstraintRoots))
	out = append(out, l.Roots...)
	out = append(out, l.ConstraintRoots...)
	return out
}

// ResolvedRequirement is a requirement paired with the root manifest whose
// tier it belongs to.
type ResolvedRequirement struct {
	Root ManifestPath
	requirements.Requirement
}

// GenerateRequirements streams every requirement of every root tier,
// flattened through -r includes, and closes the channel when done.
func (l *LoadedProject) GenerateRequirements(out chan<- ResolvedRequirement) {
	for _, root := range l.Roots {
		for _, path := range l.Graph.Closure(root, l.Manifests, requirements.DirectiveRequirement) {
			m, ok := l.Manifests[path]
			if !ok {
				continue
			}
			for _, req := range m.Requirements {
				out <- ResolvedRequirement{Root: root, Requirement: req}
			}
		}
	}
	close(out)
}

// ChecklistState loads the recorded checklist progress, opening a fresh
// state when none exists or restart is set. A state recorded against a
// different version of the checklist is refused.
func (l *LoadedProject) ChecklistState(restart bool) (*checklist.State, error) {
	if l.Checklist == nil {
		return nil, fmt.Errorf("The project has no checklist")
	}
	if restart {
		if err := checklist.ClearState(l.Root); err != nil {
			return nil, err
		}
	}
	state, err := checklist.LoadState(l.Root)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return checklist.NewState(l.Checklist, l.RawVersion), nil
	}
	if !state.Matches(l.Checklist.Fingerprint()) {
		return nil, errors.Wrap(checklist.ErrStaleState, "use --restart to discard the recorded progress")
	}
	return state, nil
}

func (l *LoadedProject) reportDirParts(root ManifestPath) []string {
	return []string{l.TempDir, TempDirReports, strings.ReplaceAll(root, "/", "__")}
}

// MakeReportDir creates the per-root report directory.
func (l *LoadedProject) MakeReportDir(root ManifestPath) error {
	return os.MkdirAll(filepath.Join(l.reportDirParts(root)...), 0700)
}

// ReportPath names a report file for the given root manifest.
func (l *LoadedProject) ReportPath(root ManifestPath, basename string) string {
	parts := append(l.reportDirParts(root), basename)
	return filepath.Join(parts...)
}

// ChecklistReportDir is where checklist step output is captured.
func (l *LoadedProject) ChecklistReportDir() string {
	return filepath.Join(l.TempDir, "checklist")
}
