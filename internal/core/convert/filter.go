package convert

import (
	"github.com/containerstack/compose/internal/core/compose"
)

// filterByProfiles implements spec.md §4.3 stage 2: with an empty active
// profile set, keep only services that declare no profiles; otherwise
// keep services with no profiles or any profile intersecting active.
func filterByProfiles(services map[string]compose.ServiceSpec, active []string) map[string]compose.ServiceSpec {
	if len(services) == 0 {
		return services
	}
	activeSet := make(map[string]bool, len(active))
	for _, p := range active {
		activeSet[p] = true
	}

	out := make(map[string]compose.ServiceSpec, len(services))
	for name, svc := range services {
		if len(svc.Profiles) == 0 {
			out[name] = svc
			continue
		}
		if len(activeSet) == 0 {
			continue
		}
		for _, p := range svc.Profiles {
			if activeSet[p] {
				out[name] = svc
				break
			}
		}
	}
	return out
}

// filterBySelection implements spec.md §4.3 stage 3: if the user
// supplied explicit service names, build the transitive closure over
// all dependency-type edges in the (profile-filtered) service set and
// emit a warning for any requested name that doesn't resolve.
func filterBySelection(services map[string]compose.ServiceSpec, selected []string) (map[string]compose.ServiceSpec, []string) {
	if len(selected) == 0 {
		return services, nil
	}

	var warnings []string
	var valid []string
	for _, name := range selected {
		if _, ok := services[name]; ok {
			valid = append(valid, name)
		} else {
			warnings = append(warnings, "selected service "+name+" does not exist in the project")
		}
	}

	out := make(map[string]compose.ServiceSpec, len(valid))
	var visit func(name string)
	visit = func(name string) {
		if _, already := out[name]; already {
			return
		}
		svc, ok := services[name]
		if !ok {
			return
		}
		out[name] = svc
		for _, dep := range allDeps(svc) {
			visit(dep)
		}
	}
	for _, name := range valid {
		visit(name)
	}

	return out, warnings
}

// allDeps returns the union of a ServiceSpec's four dependency-kind
// edges, ahead of conversion into project.Service.AllDependencies.
func allDeps(svc compose.ServiceSpec) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(svc.DependsOn.Names)
	for name := range svc.DependsOn.Conditions {
		add([]string{name})
	}
	return out
}
