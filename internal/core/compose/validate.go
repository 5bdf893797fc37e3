package compose

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var knownComposeVersions = map[string]bool{
	"2": true, "2.0": true, "2.1": true, "2.2": true, "2.3": true, "2.4": true,
	"3": true, "3.0": true, "3.1": true, "3.2": true, "3.3": true, "3.4": true,
	"3.5": true, "3.6": true, "3.7": true, "3.8": true, "3.9": true,
}

var validShortVolumeOpts = map[string]bool{
	"ro": true, "rw": true, "z": true, "Z": true, "cached": true, "delegated": true,
}

// Validate runs the validation phase of spec.md §4.1 against the merged
// document. It returns advisory warnings plus the first error found, if
// any; parsing/validation errors abort the invocation immediately
// (spec.md §7).
func Validate(cf *ComposeFile) ([]string, error) {
	const op = "compose.Validate"
	var warnings []string

	if cf.Version != "" && !knownComposeVersions[cf.Version] {
		warnings = append(warnings, "unrecognized compose version "+cf.Version)
	}

	if len(cf.Services) == 0 {
		return warnings, errInvalid(op, "services must not be empty")
	}

	for name, svc := range cf.Services {
		if svc.Image == "" && svc.Build == nil {
			return warnings, errInvalid(op, "service %q must specify image or build", name)
		}
		for key := range svc.Environment {
			if !IsValidEnvName(key) {
				return warnings, errInvalid(op, "service %q has invalid environment variable name %q", name, key)
			}
		}
		for i, p := range svc.Ports {
			if err := validatePortEntry(p); err != nil {
				return warnings, wrapInvalid(op, err, "service %q ports[%d]: %v", name, i, err)
			}
		}
		for i, v := range svc.Volumes {
			if s, ok := v.(string); ok {
				if err := validateShortVolume(s); err != nil {
					return warnings, wrapInvalid(op, err, "service %q volumes[%d]: %v", name, i, err)
				}
			}
		}
	}

	if err := validateDependsOnCycles(cf); err != nil {
		return warnings, err
	}

	return warnings, nil
}

func validatePortEntry(raw any) error {
	s, ok := raw.(string)
	if !ok {
		return nil // long-form map entry, validated structurally during conversion
	}
	proto := "tcp"
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		proto = s[idx+1:]
		s = s[:idx]
	}
	if proto != "tcp" && proto != "udp" {
		return fmt.Errorf("invalid protocol %q", proto)
	}
	parts := strings.Split(s, ":")
	if len(parts) < 1 || len(parts) > 3 {
		return fmt.Errorf("malformed port spec %q", s)
	}
	for _, part := range parts[max(0, len(parts)-2):] {
		if err := validatePortRangeNumeric(part); err != nil {
			return err
		}
	}
	return nil
}

func validatePortRangeNumeric(s string) error {
	for _, piece := range strings.Split(s, "-") {
		n, err := strconv.Atoi(piece)
		if err != nil {
			return fmt.Errorf("non-numeric port %q", piece)
		}
		if n < 1 || n > 65535 {
			return fmt.Errorf("port %d out of range [1,65535]", n)
		}
	}
	return nil
}

func validateShortVolume(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return fmt.Errorf("malformed volume spec %q", s)
	}
	if len(parts) == 3 {
		for _, opt := range strings.Split(parts[2], ",") {
			if opt != "" && !validShortVolumeOpts[opt] {
				return fmt.Errorf("unknown volume option %q", opt)
			}
		}
	}
	return nil
}

// validateDependsOnCycles runs a DFS cycle check over depends_on edges
// at the AST level (spec.md §4.1's "re-validate absence of cycles").
// The resolver (internal/core/resolver) performs the authoritative check
// on the canonical project; this is a fail-fast pass before conversion.
// Traversal order is sorted rather than taken from map iteration, so the
// reported cycle path is stable across runs.
func validateDependsOnCycles(cf *ComposeFile) error {
	const op = "compose.Validate"

	edges := make(map[string][]string, len(cf.Services))
	for name, svc := range cf.Services {
		var deps []string
		deps = append(deps, svc.DependsOn.Names...)
		var conditionDeps []string
		for dep := range svc.DependsOn.Conditions {
			conditionDeps = append(conditionDeps, dep)
		}
		sort.Strings(conditionDeps)
		deps = append(deps, conditionDeps...)
		edges[name] = deps
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(edges))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			path = append(path, name)
			return errInvalid(op, "circular dependency: %s", strings.Join(path, " → "))
		}
		state[name] = visiting
		path = append(path, name)
		for _, dep := range edges[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		return nil
	}

	names := make([]string, 0, len(edges))
	for name := range edges {
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
