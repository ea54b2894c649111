package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/scanner"
)

// Dependency is a dependency directive resolved to an exact version.
type Dependency struct {
	Name string

	// Token is the version token written in the build script.
	Token string

	Version string
}

// String returns "name/version".
func (d Dependency) String() string {
	return d.Name + "/" + d.Version
}

// DependenciesOf reads the dependency directives of the build script for
// name/version and resolves each token against the dependency's known
// versions. Unknown dependency names are looked up remotely.
func (o *Orchestrator) DependenciesOf(ctx context.Context, name, ver string) ([]Dependency, error) {
	if err := ValidateRequest(name, ver); err != nil {
		return nil, err
	}
	if ver == "" {
		return nil, NewValidationError("version is required", nil).WithResource(name)
	}

	directives, err := o.scripts.ReadDirectives(name, ver)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewNotFoundError("build script not found", err).WithResource(name + "/" + ver)
		}
		return nil, fmt.Errorf("failed to read dependencies of %s/%s: %w", name, ver, err)
	}
	return o.resolveDirectives(ctx, name+"/"+ver, directives.Dependencies)
}

func (o *Orchestrator) resolveDirectives(ctx context.Context, owner string, deps []scanner.Dependency) ([]Dependency, error) {
	out := make([]Dependency, 0, len(deps))
	for _, dep := range deps {
		t, err := o.Resolve(ctx, dep.Name, dep.Token)
		if err != nil {
			if IsValidation(err) || IsInterrupted(err) {
				return nil, err
			}
			return nil, NewResolutionError(fmt.Sprintf("cannot resolve dependency %s", dep), err).
				WithResource(owner)
		}
		out = append(out, Dependency{Name: dep.Name, Token: dep.Token, Version: t.Version})
	}
	return out, nil
}

// DependencyGraph builds the graph of name/version and its transitive
// dependencies. Nodes are "name/version" identifiers; only local packages
// contribute edges.
func (o *Orchestrator) DependencyGraph(ctx context.Context, name, ver string) (*DependencyGraph, string, error) {
	root, err := o.Resolve(ctx, name, ver)
	if err != nil {
		return nil, "", err
	}

	g := NewDependencyGraph()
	visited := make(map[string]bool)

	var visit func(t *Target) error
	visit = func(t *Target) error {
		id := t.ID()
		if visited[id] {
			return nil
		}
		visited[id] = true
		g.AddNode(id)

		if t.Descriptor.Provenance.Kind() != catalog.KindLocal {
			return nil
		}
		deps, err := o.DependenciesOf(ctx, t.Name(), t.Version)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			g.AddEdge(id, dep.String())
			child, err := o.Resolve(ctx, dep.Name, dep.Version)
			if err != nil {
				return err
			}
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(root); err != nil {
		return nil, "", err
	}
	return g, root.ID(), nil
}
