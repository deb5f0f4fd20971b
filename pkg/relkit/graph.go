package relkit

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"

	"github.com/relkit/relkit/pkg/requirements"
)

// IncludeGraph is the directed graph of manifests connected by -r and -c
// directives. Vertices are manifest paths relative to the project root.
type IncludeGraph struct {
	g graph.Graph[string, string]
	// CycleEdges are directive edges that would close a cycle. They are
	// kept out of the graph so traversal terminates.
	CycleEdges []requirements.Directive
}

func newIncludeGraph() *IncludeGraph {
	return &IncludeGraph{
		g: graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
}

func (ig *IncludeGraph) addManifest(path string) error {
	err := ig.g.AddVertex(path)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return nil
	}
	return err
}

func (ig *IncludeGraph) addInclude(d requirements.Directive, target string) error {
	err := ig.g.AddEdge(d.File, target)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		ig.CycleEdges = append(ig.CycleEdges, d)
		return nil
	default:
		return errors.Wrap(err, fmt.Sprintf("add include edge %s -> %s", d.File, target))
	}
}

// Closure returns root plus every manifest reachable from it over edges of
// the given kinds, in breadth-first order.
func (ig *IncludeGraph) Closure(root string, manifests map[string]*requirements.Manifest, kinds ...requirements.DirectiveKind) []string {
	want := make(map[requirements.DirectiveKind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}
	seen := map[string]struct{}{root: {}}
	order := []string{root}
	for i := 0; i < len(order); i++ {
		m, ok := manifests[order[i]]
		if !ok {
			continue
		}
		for _, d := range m.Directives {
			if _, ok := want[d.Kind]; !ok {
				continue
			}
			target := resolveInclude(d)
			if _, ok := seen[target]; ok {
				continue
			}
			seen[target] = struct{}{}
			order = append(order, target)
		}
	}
	return order
}

// DOT writes the include graph in graphviz format.
func (ig *IncludeGraph) DOT(w io.Writer) error {
	return errors.Wrap(draw.DOT(ig.g, w), "render include graph")
}

// Manifests returns every vertex in sorted order.
func (ig *IncludeGraph) Manifests() ([]string, error) {
	m, err := ig.g.AdjacencyMap()
	if err != nil {
		return nil, errors.Wrap(err, "list include graph vertices")
	}
	out := make([]string, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// resolveInclude turns a directive target into a path relative to the
// project root, following it from the including manifest's directory.
// Absolute targets are kept as-is.
func resolveInclude(d requirements.Directive) string {
	if filepath.IsAbs(d.Target) {
		return filepath.ToSlash(filepath.Clean(d.Target))
	}
	return filepath.ToSlash(filepath.Join(filepath.Dir(d.File), d.Target))
}
