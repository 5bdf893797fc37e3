package compose

// Merge combines an ordered list of ComposeFiles with later files
// overriding earlier ones per the rules in spec.md §4.2. An empty list
// is an error; a single-element list returns that file unchanged.
func Merge(files []*ComposeFile) (*ComposeFile, error) {
	const op = "compose.Merge"
	if len(files) == 0 {
		return nil, errInvalid(op, "no compose files given")
	}

	result := &ComposeFile{
		Version:    files[0].Version,
		Services:   map[string]ServiceSpec{},
		Networks:   map[string]NetworkSpec{},
		Volumes:    map[string]VolumeSpec{},
		sourceFile: files[0].sourceFile,
	}
	for _, f := range files {
		mergeInto(result, f)
	}
	return result, nil
}

func mergeInto(base *ComposeFile, override *ComposeFile) {
	if override.Version != "" {
		base.Version = override.Version
	}
	if override.sourceFile != "" {
		base.sourceFile = override.sourceFile
	}

	for name, svc := range override.Services {
		if existing, ok := base.Services[name]; ok {
			base.Services[name] = mergeService(existing, svc)
		} else {
			base.Services[name] = svc
		}
	}

	for name, net := range override.Networks {
		base.Networks[name] = net
	}
	for name, vol := range override.Volumes {
		base.Volumes[name] = vol
	}
}

// mergeService merges override into base per the field-kind strategy
// table in spec.md §4.2.
func mergeService(base, override ServiceSpec) ServiceSpec {
	result := base
	result.name = base.name

	// Scalars: override wins if present.
	if override.Image != "" {
		result.Image = override.Image
	}
	if override.Build != nil {
		result.Build = override.Build
	}
	if len(override.Command) > 0 {
		result.Command = override.Command
	}
	if len(override.Entrypoint) > 0 {
		result.Entrypoint = override.Entrypoint
	}
	if override.WorkingDir != "" {
		result.WorkingDir = override.WorkingDir
	}
	if override.Hostname != "" {
		result.Hostname = override.Hostname
	}
	if override.DomainName != "" {
		result.DomainName = override.DomainName
	}
	if override.Restart != "" {
		result.Restart = override.Restart
	}
	if override.ContainerName != "" {
		result.ContainerName = override.ContainerName
	}
	if override.CPUs != "" {
		result.CPUs = override.CPUs
	}
	if override.Mem != "" {
		result.Mem = override.Mem
	}
	if override.TTY {
		result.TTY = override.TTY
	}
	if override.StdinOpen {
		result.StdinOpen = override.StdinOpen
	}
	if override.StopGracePeriod != "" {
		result.StopGracePeriod = override.StopGracePeriod
	}
	if override.HealthCheck != nil {
		result.HealthCheck = override.HealthCheck
	}
	if override.Deploy != nil {
		result.Deploy = override.Deploy
	}
	if override.Extends != nil {
		result.Extends = override.Extends
	}

	// Environment: merge keys, override wins on collision.
	if len(override.Environment) > 0 {
		merged := make(Environment, len(result.Environment)+len(override.Environment))
		for k, v := range result.Environment {
			merged[k] = v
		}
		for k, v := range override.Environment {
			merged[k] = v
		}
		result.Environment = merged
	}

	// Labels: merge keys, override wins on collision.
	if len(override.Labels) > 0 {
		merged := make(Labels, len(result.Labels)+len(override.Labels))
		for k, v := range result.Labels {
			merged[k] = v
		}
		for k, v := range override.Labels {
			merged[k] = v
		}
		result.Labels = merged
	}

	// env_file, ports, volumes, networks, depends_on, profiles: override
	// replaces entirely when present.
	if len(override.EnvFile) > 0 {
		result.EnvFile = override.EnvFile
	}
	if len(override.Ports) > 0 {
		result.Ports = override.Ports
	}
	if len(override.Volumes) > 0 {
		result.Volumes = override.Volumes
	}
	if len(override.Networks) > 0 {
		result.Networks = override.Networks
	}
	if len(override.DependsOn.Names) > 0 || len(override.DependsOn.Conditions) > 0 {
		result.DependsOn = override.DependsOn
	}
	if len(override.Profiles) > 0 {
		result.Profiles = override.Profiles
	}

	return result
}
