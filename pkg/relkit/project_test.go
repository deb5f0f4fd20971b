package relkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkit/relkit/pkg/checklist"
)

// makeFiles writes the given relative path -> content pairs under a fresh
// project root and returns it.
func makeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0700))
		require.NoError(t, os.WriteFile(full, []byte(content), 0600))
	}
	return root
}

func newProject() *Project {
	p := new(Project)
	p.APIVersion = V1Alpha1APIVersion
	p.Kind = ProjectKind
	return p
}

func loadProject(t *testing.T, p *Project, files map[string]string) *LoadedProject {
	t.Helper()
	root := makeFiles(t, files)
	l, err := p.Load(root)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(l.TempDir) })
	return l
}

func TestLoadRejectsWrongTypeMeta(t *testing.T) {
	p := newProject()
	p.APIVersion = "nonsense/v1"
	_, err := p.Load(t.TempDir())
	assert.Error(t, err)

	p = newProject()
	p.Kind = "Pipeline"
	_, err = p.Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadRequiresManifests(t *testing.T) {
	_, err := newProject().Load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadRejectsDuplicateManifests(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip", "dev.pip"}
	_, err := p.Load(makeFiles(t, map[string]string{"dev.pip": ""}))
	assert.Error(t, err)

	p = newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.Constraints = []ManifestPath{"dev.pip"}
	_, err = p.Load(makeFiles(t, map[string]string{"dev.pip": ""}))
	assert.Error(t, err)
}

func TestLoadScansManifestDirs(t *testing.T) {
	p := newProject()
	p.ManifestDirs = []string{"requirements"}
	l := loadProject(t, p, map[string]string{
		"requirements/dev.pip":    "pytest==7.4.4\n",
		"requirements/kit.pip":    "build==1.0.3\n",
		"requirements/notes.md":   "not a manifest\n",
		"requirements/mypy.txt":   "mypy==1.8.0\n",
		"requirements/nested/x":   "",
		"requirements/light.pip~": "",
	})
	assert.Equal(t, []ManifestPath{
		"requirements/dev.pip",
		"requirements/kit.pip",
		"requirements/mypy.txt",
	}, l.Roots)
}

func TestLoadParsesTransitiveIncludes(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"requirements/dev.pip"}
	l := loadProject(t, p, map[string]string{
		"requirements/dev.pip":  "-r base.pip\npytest==7.4.4\n",
		"requirements/base.pip": "-c ../pins.pip\nattrs\n",
		"pins.pip":              "attrs==23.2.0\n",
	})
	assert.Len(t, l.Manifests, 3)
	assert.Contains(t, l.Manifests, "requirements/base.pip")
	assert.Contains(t, l.Manifests, "pins.pip")
	assert.Empty(t, l.MissingIncludes)
}

func TestLoadResolvesAbsoluteIncludes(t *testing.T) {
	shared := filepath.Join(t.TempDir(), "common.pip")
	require.NoError(t, os.WriteFile(shared, []byte("attrs==23.2.0\n"), 0600))

	p := newProject()
	p.Manifests = []ManifestPath{"requirements/dev.pip"}
	l := loadProject(t, p, map[string]string{
		"requirements/dev.pip": "-r " + shared + "\n",
	})
	assert.Empty(t, l.MissingIncludes)
	require.Contains(t, l.Manifests, filepath.ToSlash(shared))
	assert.Equal(t, "attrs", l.Manifests[filepath.ToSlash(shared)].Requirements[0].Name)
}

func TestLoadRecordsMissingIncludes(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	l := loadProject(t, p, map[string]string{
		"dev.pip": "-r gone.pip\n",
	})
	assert.Contains(t, l.MissingIncludes, "gone.pip")
}

func TestLoadChecklist(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.ChecklistPath = "checklist.yaml"
	l := loadProject(t, p, map[string]string{
		"dev.pip": "",
		"checklist.yaml": `
apiVersion: relkit.github.com/v1alpha1
kind: Checklist
steps:
  - name: run-tests
    command: make test
`,
	})
	require.NotNil(t, l.Checklist)
	assert.Equal(t, "run-tests", l.Checklist.Steps[0].Name)
}

func TestLoadInlineSteps(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.Steps = []checklist.Step{{Name: "run-tests", Command: "make test"}}
	l := loadProject(t, p, map[string]string{"dev.pip": ""})
	require.NotNil(t, l.Checklist)
	assert.Equal(t, 0, l.Checklist.Index("run-tests"))
}

func TestLoadRejectsChecklistFileAndInlineSteps(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.ChecklistPath = "checklist.yaml"
	p.Steps = []checklist.Step{{Name: "a", Command: "true"}}
	_, err := p.Load(makeFiles(t, map[string]string{"dev.pip": ""}))
	assert.Error(t, err)
}

func TestLoadVersionFile(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.VersionFile = "VERSION"
	l := loadProject(t, p, map[string]string{
		"dev.pip": "",
		"VERSION": "7.4.1b3\n",
	})
	require.True(t, l.HasVersion)
	assert.Equal(t, "7.4.1b3", l.RawVersion)
	assert.Equal(t, "7.4.1b3", l.Version.String())
}

func TestLoadRejectsBadVersionFile(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.VersionFile = "VERSION"
	_, err := p.Load(makeFiles(t, map[string]string{
		"dev.pip": "",
		"VERSION": "not a version\n",
	}))
	assert.Error(t, err)
}

func TestGenerateRequirements(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	l := loadProject(t, p, map[string]string{
		"dev.pip":  "-r base.pip\npytest==7.4.4\n",
		"base.pip": "attrs==23.2.0\n",
	})
	reqs := make(chan ResolvedRequirement)
	go l.GenerateRequirements(reqs)

	names := []string{}
	for req := range reqs {
		assert.Equal(t, ManifestPath("dev.pip"), req.Root)
		names = append(names, req.Name)
	}
	assert.Equal(t, []string{"pytest", "attrs"}, names)
}

func TestChecklistState(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.Steps = []checklist.Step{{Name: "a", Command: "true"}}
	p.VersionFile = "VERSION"
	l := loadProject(t, p, map[string]string{
		"dev.pip": "",
		"VERSION": "7.4.1\n",
	})

	state, err := l.ChecklistState(false)
	require.NoError(t, err)
	assert.Equal(t, "7.4.1", state.Version)

	state.MarkDone("a")
	require.NoError(t, state.Save(l.Root))

	state, err = l.ChecklistState(false)
	require.NoError(t, err)
	assert.True(t, state.Done("a"))

	state, err = l.ChecklistState(true)
	require.NoError(t, err)
	assert.False(t, state.Done("a"))
}

func TestChecklistStateRefusesStale(t *testing.T) {
	p := newProject()
	p.Manifests = []ManifestPath{"dev.pip"}
	p.Steps = []checklist.Step{{Name: "a", Command: "true"}}
	l := loadProject(t, p, map[string]string{"dev.pip": ""})

	state, err := l.ChecklistState(false)
	require.NoError(t, err)
	state.Fingerprint = "stale"
	require.NoError(t, state.Save(l.Root))

	_, err = l.ChecklistState(false)
	require.ErrorIs(t, err, checklist.ErrStaleState)
}
