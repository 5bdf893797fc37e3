package convert

import (
	"strings"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/compose"
)

// resolveExtends replaces every service that declares `extends` with its
// fully-merged form (spec.md §4.3 stage 1). Cross-file extends is out of
// scope: a non-empty ExtendsSpec.File is an invalid-argument error.
// Merge policy: scalars overridden by the child, arrays concatenated
// (base ++ child) for volumes/ports/env_file/profiles, environment
// merged with the child winning on collision, and the resolved
// service's own Extends pointer cleared.
func resolveExtends(services map[string]compose.ServiceSpec) (map[string]compose.ServiceSpec, error) {
	const op = "convert.resolveExtends"

	const (
		unvisited = 0
		resolving = 1
		resolved  = 2
	)
	state := make(map[string]int, len(services))
	var path []string

	var resolve func(name string) (compose.ServiceSpec, error)
	resolve = func(name string) (compose.ServiceSpec, error) {
		svc, ok := services[name]
		if !ok {
			return compose.ServiceSpec{}, apperr.Newf(op, apperr.NotFound, nil, "extends references undefined service %q", name)
		}
		if svc.Extends == nil {
			return svc, nil
		}

		switch state[name] {
		case resolved:
			return services[name], nil
		case resolving:
			path = append(path, name)
			return compose.ServiceSpec{}, apperr.Newf(op, apperr.InvalidArgument, nil, "circular extends: %s", strings.Join(path, " → "))
		}

		if svc.Extends.File != "" {
			return compose.ServiceSpec{}, apperr.Newf(op, apperr.InvalidArgument, nil, "service %q: cross-file extends is not supported", name)
		}

		state[name] = resolving
		path = append(path, name)

		base, err := resolve(svc.Extends.Service)
		if err != nil {
			return compose.ServiceSpec{}, err
		}

		merged := extendMerge(base, svc)
		services[name] = merged

		path = path[:len(path)-1]
		state[name] = resolved
		return merged, nil
	}

	for name := range services {
		if state[name] == unvisited {
			if _, err := resolve(name); err != nil {
				return nil, err
			}
		}
	}
	return services, nil
}

// extendMerge merges base into child per the policy above. child's
// non-zero scalar fields win; list fields named in spec.md §4.3 are
// concatenated (base ++ child) rather than replaced.
func extendMerge(base, child compose.ServiceSpec) compose.ServiceSpec {
	result := child

	if child.Image == "" {
		result.Image = base.Image
	}
	if child.Build == nil {
		result.Build = base.Build
	}
	if len(child.Command) == 0 {
		result.Command = base.Command
	}
	if len(child.Entrypoint) == 0 {
		result.Entrypoint = base.Entrypoint
	}
	if child.WorkingDir == "" {
		result.WorkingDir = base.WorkingDir
	}
	if child.Hostname == "" {
		result.Hostname = base.Hostname
	}
	if child.DomainName == "" {
		result.DomainName = base.DomainName
	}
	if child.Restart == "" {
		result.Restart = base.Restart
	}
	if child.ContainerName == "" {
		result.ContainerName = base.ContainerName
	}
	if child.CPUs == "" {
		result.CPUs = base.CPUs
	}
	if child.Mem == "" {
		result.Mem = base.Mem
	}
	if !child.TTY {
		result.TTY = base.TTY
	}
	if !child.StdinOpen {
		result.StdinOpen = base.StdinOpen
	}
	if child.StopGracePeriod == "" {
		result.StopGracePeriod = base.StopGracePeriod
	}
	if child.HealthCheck == nil {
		result.HealthCheck = base.HealthCheck
	}
	if child.Deploy == nil {
		result.Deploy = base.Deploy
	}

	result.Environment = mergeEnv(base.Environment, child.Environment)

	result.Volumes = append(append([]any(nil), base.Volumes...), child.Volumes...)
	result.Ports = append(append([]any(nil), base.Ports...), child.Ports...)
	result.EnvFile = append(append(compose.StringOrList(nil), base.EnvFile...), child.EnvFile...)
	result.Profiles = append(append(compose.StringOrList(nil), base.Profiles...), child.Profiles...)

	if len(child.Networks) == 0 {
		result.Networks = base.Networks
	}
	if len(child.DependsOn.Names) == 0 && len(child.DependsOn.Conditions) == 0 {
		result.DependsOn = base.DependsOn
	}
	if len(child.Labels) == 0 {
		result.Labels = base.Labels
	}

	result.Extends = nil
	return result
}

func mergeEnv(base, child compose.Environment) compose.Environment {
	if len(base) == 0 {
		return child
	}
	merged := make(compose.Environment, len(base)+len(child))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range child {
		merged[k] = v
	}
	return merged
}
