// Package resolver computes dependency-ordered start/stop plans over a
// project's services. It is the authoritative cycle check in the
// pipeline; internal/core/compose.validateDependsOnCycles runs an
// earlier, fail-fast pass over the AST but this package is what the
// orchestrator actually drives from.
package resolver

import (
	"sort"
	"strings"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
)

// Plan is the output of Resolve: services grouped into start order,
// with the groups listed in execution order (services within a group
// have no ordering dependency on each other and can start in parallel).
type Plan struct {
	ParallelGroups [][]string
	StartOrder     []string
	StopOrder      []string
}

// Resolve builds a dependency plan over services using Kahn's algorithm,
// with edges formed by the union of all four dependency kinds
// (Service.AllDependencies).
func Resolve(services map[string]project.Service) (Plan, error) {
	const op = "resolver.Resolve"

	for name, svc := range services {
		for _, dep := range svc.AllDependencies() {
			if _, ok := services[dep]; !ok {
				return Plan{}, apperr.Newf(op, apperr.NotFound, nil, "service %q depends on undefined service %q", name, dep)
			}
		}
	}

	if err := detectCycle(services); err != nil {
		return Plan{}, err
	}

	inDegree := make(map[string]int, len(services))
	dependents := make(map[string][]string, len(services))
	for name := range services {
		inDegree[name] = 0
	}
	for name, svc := range services {
		for _, dep := range svc.AllDependencies() {
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var frontier []string
	for name, degree := range inDegree {
		if degree == 0 {
			frontier = append(frontier, name)
		}
	}
	sort.Strings(frontier)

	var groups [][]string
	var order []string
	remaining := make(map[string]int, len(inDegree))
	for k, v := range inDegree {
		remaining[k] = v
	}

	for len(frontier) > 0 {
		group := append([]string(nil), frontier...)
		sort.Strings(group)
		groups = append(groups, group)
		order = append(order, group...)

		var next []string
		for _, name := range group {
			for _, dep := range dependents[name] {
				remaining[dep]--
				if remaining[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		frontier = next
	}

	if len(order) != len(services) {
		return Plan{}, apperr.New(op, apperr.InvalidArgument, "circular dependency detected among services", nil)
	}

	stopOrder := make([]string, len(order))
	for i, name := range order {
		stopOrder[len(order)-1-i] = name
	}

	return Plan{ParallelGroups: groups, StartOrder: order, StopOrder: stopOrder}, nil
}

// detectCycle runs an independent DFS cycle check (spec.md §4.4 step 2)
// ahead of the Kahn pass, so the error message can report the exact
// cycle path rather than just "circular dependency detected".
func detectCycle(services map[string]project.Service) error {
	const op = "resolver.Resolve"

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(services))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			path = append(path, name)
			return apperr.Newf(op, apperr.InvalidArgument, nil, "circular dependency: %s", strings.Join(path, " → "))
		}
		state[name] = visiting
		path = append(path, name)
		if svc, ok := services[name]; ok {
			for _, dep := range svc.AllDependencies() {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if state[name] == unvisited {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// TransitiveClosure expands a requested set of service names to include
// every service reachable via any dependency edge (spec.md §4.4's
// "transitive selection helper"), used both by the up(selected) path
// and by the Converter's selection filter.
func TransitiveClosure(services map[string]project.Service, requested []string) map[string]project.Service {
	out := make(map[string]project.Service, len(requested))
	var visit func(name string)
	visit = func(name string) {
		if _, ok := out[name]; ok {
			return
		}
		svc, ok := services[name]
		if !ok {
			return
		}
		out[name] = svc
		for _, dep := range svc.AllDependencies() {
			visit(dep)
		}
	}
	for _, name := range requested {
		visit(name)
	}
	return out
}
