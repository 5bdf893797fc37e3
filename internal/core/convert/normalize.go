package convert

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/compose"
	"github.com/containerstack/compose/internal/core/project"
	units "github.com/docker/go-units"
)

// normalizePorts expands spec.md §4.3's port shapes — short-string,
// ranged short-string, and long-form map — into discrete PortMappings.
func normalizePorts(op string, raw []any) ([]project.PortMapping, error) {
	var out []project.PortMapping
	for i, entry := range raw {
		switch v := entry.(type) {
		case string:
			mappings, err := expandPortString(v)
			if err != nil {
				return nil, apperr.Newf(op, apperr.InvalidArgument, err, "ports[%d]: %v", i, err)
			}
			out = append(out, mappings...)
		case map[string]any:
			m, err := expandPortMap(v)
			if err != nil {
				return nil, apperr.Newf(op, apperr.InvalidArgument, err, "ports[%d]: %v", i, err)
			}
			out = append(out, m)
		default:
			return nil, apperr.Newf(op, apperr.InvalidArgument, nil, "ports[%d]: unsupported shape", i)
		}
	}
	return out, nil
}

func expandPortMap(v map[string]any) (project.PortMapping, error) {
	m := project.PortMapping{Protocol: "tcp"}
	if p, ok := v["protocol"]; ok {
		m.Protocol = strings.ToLower(toString(p))
	}
	if hostIP, ok := v["host_ip"]; ok {
		m.HostIP = toString(hostIP)
	}
	if target, ok := v["target"]; ok {
		cport, err := toInt(target)
		if err != nil {
			return m, err
		}
		m.ContainerPort = cport
	}
	if published, ok := v["published"]; ok {
		hport, err := toInt(published)
		if err != nil {
			return m, err
		}
		m.HostPort = hport
	} else {
		m.HostPort = m.ContainerPort
	}
	return m, nil
}

func expandPortString(s string) ([]project.PortMapping, error) {
	proto := "tcp"
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		proto = strings.ToLower(s[idx+1:])
		s = s[:idx]
	}

	parts := strings.Split(s, ":")
	var hostIP, hostRange, containerRange string
	switch len(parts) {
	case 1:
		containerRange = parts[0]
	case 2:
		hostRange, containerRange = parts[0], parts[1]
	case 3:
		hostIP, hostRange, containerRange = parts[0], parts[1], parts[2]
	default:
		return nil, apperr.Newf("", apperr.InvalidArgument, nil, "malformed port spec %q", s)
	}

	containerPorts, err := expandPortRange(containerRange)
	if err != nil {
		return nil, err
	}

	var hostPorts []int
	if hostRange == "" {
		hostPorts = containerPorts
	} else {
		hostPorts, err = expandPortRange(hostRange)
		if err != nil {
			return nil, err
		}
		if len(hostPorts) != len(containerPorts) {
			return nil, apperr.Newf("", apperr.InvalidArgument, nil, "port range size mismatch in %q", s)
		}
	}

	out := make([]project.PortMapping, len(containerPorts))
	for i := range containerPorts {
		out[i] = project.PortMapping{
			HostIP:        hostIP,
			HostPort:      hostPorts[i],
			ContainerPort: containerPorts[i],
			Protocol:      proto,
		}
	}
	return out, nil
}

func expandPortRange(s string) ([]int, error) {
	if s == "" {
		return nil, apperr.Newf("", apperr.InvalidArgument, nil, "empty port")
	}
	dash := strings.Index(s, "-")
	if dash < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, apperr.Newf("", apperr.InvalidArgument, err, "non-numeric port %q", s)
		}
		return []int{n}, nil
	}
	lo, err := strconv.Atoi(s[:dash])
	if err != nil {
		return nil, apperr.Newf("", apperr.InvalidArgument, err, "non-numeric port range %q", s)
	}
	hi, err := strconv.Atoi(s[dash+1:])
	if err != nil {
		return nil, apperr.Newf("", apperr.InvalidArgument, err, "non-numeric port range %q", s)
	}
	if hi < lo {
		return nil, apperr.Newf("", apperr.InvalidArgument, nil, "invalid port range %q", s)
	}
	ports := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		ports = append(ports, p)
	}
	return ports, nil
}

// normalizeVolumes expands spec.md §4.3's short and long volume shapes.
func normalizeVolumes(op string, raw []any, baseDir string) ([]project.VolumeMount, error) {
	var out []project.VolumeMount
	for i, entry := range raw {
		switch v := entry.(type) {
		case string:
			mount, err := expandShortVolume(v, baseDir)
			if err != nil {
				return nil, apperr.Newf(op, apperr.InvalidArgument, err, "volumes[%d]: %v", i, err)
			}
			out = append(out, mount)
		case map[string]any:
			mount, err := expandLongVolume(v, baseDir)
			if err != nil {
				return nil, apperr.Newf(op, apperr.InvalidArgument, err, "volumes[%d]: %v", i, err)
			}
			out = append(out, mount)
		default:
			return nil, apperr.Newf(op, apperr.InvalidArgument, nil, "volumes[%d]: unsupported shape", i)
		}
	}
	return out, nil
}

func expandShortVolume(s string, baseDir string) (project.VolumeMount, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		return project.VolumeMount{Type: project.MountTypeVolume, Source: "", Target: expandPath(parts[0], baseDir, false)}, nil
	case 2, 3:
		source, target := parts[0], parts[1]
		readOnly := false
		if len(parts) == 3 {
			for _, opt := range strings.Split(parts[2], ",") {
				if opt == "ro" {
					readOnly = true
				}
			}
		}
		if isHostPath(source) {
			return project.VolumeMount{
				Type:     project.MountTypeBind,
				Source:   expandPath(source, baseDir, true),
				Target:   target,
				ReadOnly: readOnly,
			}, nil
		}
		return project.VolumeMount{
			Type:     project.MountTypeVolume,
			Source:   source,
			Target:   target,
			ReadOnly: readOnly,
		}, nil
	default:
		return project.VolumeMount{}, apperr.Newf("", apperr.InvalidArgument, nil, "malformed volume spec %q", s)
	}
}

func expandLongVolume(v map[string]any, baseDir string) (project.VolumeMount, error) {
	mount := project.VolumeMount{Type: project.MountTypeVolume}
	if t, ok := v["type"]; ok {
		switch toString(t) {
		case "bind":
			mount.Type = project.MountTypeBind
		case "tmpfs":
			mount.Type = project.MountTypeTmpfs
		default:
			mount.Type = project.MountTypeVolume
		}
	}
	if s, ok := v["source"]; ok {
		mount.Source = toString(s)
		if mount.Type == project.MountTypeBind {
			mount.Source = expandPath(mount.Source, baseDir, true)
		}
	}
	if t, ok := v["target"]; ok {
		mount.Target = toString(t)
	}
	if ro, ok := v["read_only"]; ok {
		if b, ok := ro.(bool); ok {
			mount.ReadOnly = b
		}
	}
	return mount, nil
}

// isHostPath reports whether a short-volume source segment names a host
// filesystem path rather than a named volume.
func isHostPath(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") || strings.HasPrefix(s, "~") || s == "."
}

// expandPath resolves `~` to the user home directory and, when
// makeAbsolute is set, resolves a relative path against baseDir.
func expandPath(p string, baseDir string, makeAbsolute bool) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if makeAbsolute && !filepath.IsAbs(p) {
		if baseDir == "" {
			baseDir, _ = os.Getwd()
		}
		p = filepath.Join(baseDir, p)
	}
	return p
}

// normalizeEnvFile resolves and parses every env_file path (support
// `./` prefix and `~`), merging parsed keys into environment with
// service-level `environment` overriding (spec.md §4.3).
func normalizeEnvFile(op string, envFiles []string, baseDir string, serviceEnv map[string]string, processEnv map[string]string) (map[string]string, error) {
	merged := map[string]string{}
	for _, f := range envFiles {
		path := expandPath(f, baseDir, true)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperr.Newf(op, apperr.NotFound, err, "env_file %s: %v", f, err)
		}
		parsed, _, err := compose.ParseDotEnv(string(data), merged, processEnv)
		if err != nil {
			return nil, err
		}
		for k, v := range parsed {
			merged[k] = v
		}
	}
	for k, v := range serviceEnv {
		merged[k] = v
	}
	return merged, nil
}

// normalizeHealthCheck converts the AST healthcheck block into its
// canonical form (spec.md §4.3).
func normalizeHealthCheck(op string, hc *compose.HealthCheckSpec) (*project.HealthCheck, error) {
	if hc == nil {
		return nil, nil
	}
	test := hc.Test.Values
	switch {
	case len(test) == 0:
		// no test given: fall through with empty test, timings still apply
	case hc.Test.WasScalar:
		// bare string form is always an implicit shell command, even if
		// it happens to read "NONE" or "CMD ..." as plain text (spec.md
		// §4.3 only special-cases those keywords in the list form).
		test = []string{"/bin/sh", "-c", test[0]}
	case len(test) == 1 && test[0] == "NONE":
		return nil, nil
	case test[0] == "CMD-SHELL":
		test = []string{"/bin/sh", "-c", strings.Join(test[1:], " ")}
	case test[0] == "CMD":
		test = test[1:]
	}

	out := &project.HealthCheck{Test: test}
	var err error
	if out.Interval, err = parseDurationSeconds(hc.Interval); err != nil {
		return nil, apperr.Newf(op, apperr.InvalidArgument, err, "healthcheck interval: %v", err)
	}
	if out.Timeout, err = parseDurationSeconds(hc.Timeout); err != nil {
		return nil, apperr.Newf(op, apperr.InvalidArgument, err, "healthcheck timeout: %v", err)
	}
	if out.StartPeriod, err = parseDurationSeconds(hc.StartPeriod); err != nil {
		return nil, apperr.Newf(op, apperr.InvalidArgument, err, "healthcheck start_period: %v", err)
	}
	if hc.Retries != nil {
		out.Retries = *hc.Retries
	}
	return out, nil
}

// parseDurationSeconds parses the `<number><s|m|h>` duration grammar
// used by healthcheck timing fields (spec.md §4.3). An empty string
// means "unset" (0).
func parseDurationSeconds(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	unit := s[len(s)-1]
	var multiplier int
	switch unit {
	case 's':
		multiplier = 1
	case 'm':
		multiplier = 60
	case 'h':
		multiplier = 3600
	default:
		return 0, apperr.Newf("", apperr.InvalidArgument, nil, "invalid duration %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, apperr.Newf("", apperr.InvalidArgument, err, "invalid duration %q", s)
	}
	return n * multiplier, nil
}

// normalizeDependsOn splits the AST DependsOn into the four canonical
// dependency-kind lists (spec.md §4.3: list form populates dependsOn
// only; dict form populates condition-specific lists).
func normalizeDependsOn(d compose.DependsOn) (dependsOn, healthy, started, completed []string) {
	dependsOn = append([]string(nil), d.Names...)

	names := make([]string, 0, len(d.Conditions))
	for name := range d.Conditions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch d.Conditions[name] {
		case compose.ConditionHealthy:
			healthy = append(healthy, name)
		case compose.ConditionCompletedSuccessfully:
			completed = append(completed, name)
		default:
			started = append(started, name)
		}
	}
	return
}

// normalizeResources parses the `cpus`/`mem_limit` scalars (spec.md
// §4.5.2). mem == "max" sets memIsMax, meaning "leave the runtime
// default"; an empty value leaves memBytes at 0, which the orchestrator
// replaces with its 2 GiB default.
func normalizeResources(op string, cpus, mem string) (cpuCount float64, memBytes int64, memIsMax bool, err error) {
	if cpus != "" {
		cpuCount, err = strconv.ParseFloat(cpus, 64)
		if err != nil {
			return 0, 0, false, apperr.Newf(op, apperr.InvalidArgument, err, "invalid cpus %q", cpus)
		}
	}
	switch mem {
	case "":
		// default
	case "max":
		memIsMax = true
	default:
		n, parseErr := units.RAMInBytes(mem)
		if parseErr != nil {
			return cpuCount, 0, false, apperr.Newf(op, apperr.InvalidArgument, parseErr, "invalid memory %q", mem)
		}
		memBytes = n
	}
	return cpuCount, memBytes, memIsMax, nil
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	default:
		return ""
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, apperr.Newf("", apperr.InvalidArgument, nil, "expected a port number, got %T", v)
	}
}
