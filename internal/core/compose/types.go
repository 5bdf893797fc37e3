package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// ComposeFile - AST-level representation (mirrors YAML shape)
// =============================================================================

// ComposeFile mirrors the on-disk YAML shape of a single compose file.
// It is intentionally permissive: variant fields decode either of their
// documented shapes into a single canonical Go representation, but no
// cross-field validation or semantic normalization happens here — that
// is internal/core/convert's job.
type ComposeFile struct {
	Version  string                 `yaml:"version,omitempty"`
	Services map[string]ServiceSpec `yaml:"services"`
	Networks map[string]NetworkSpec `yaml:"networks,omitempty"`
	Volumes  map[string]VolumeSpec  `yaml:"volumes,omitempty"`

	// sourceFile is the absolute path this document was decoded from,
	// used for .env lookup and for resolving relative build contexts
	// and bind-mount sources. Not part of the YAML shape.
	sourceFile string
}

// ServiceSpec is the AST-level shape of one service entry.
type ServiceSpec struct {
	Image      string       `yaml:"image,omitempty"`
	Build      *BuildSpec   `yaml:"build,omitempty"`
	Command    StringOrList `yaml:"command,omitempty"`
	Entrypoint StringOrList `yaml:"entrypoint,omitempty"`
	WorkingDir string       `yaml:"working_dir,omitempty"`
	Hostname   string       `yaml:"hostname,omitempty"`
	DomainName string       `yaml:"domainname,omitempty"`

	Environment Environment  `yaml:"environment,omitempty"`
	EnvFile     StringOrList `yaml:"env_file,omitempty"`
	Ports       []any        `yaml:"ports,omitempty"` // strings or maps, resolved in convert
	Volumes     []any        `yaml:"volumes,omitempty"`
	Networks    NetworkRefs  `yaml:"networks,omitempty"`

	DependsOn DependsOn `yaml:"depends_on,omitempty"`

	HealthCheck *HealthCheckSpec `yaml:"healthcheck,omitempty"`
	Deploy      *DeploySpec      `yaml:"deploy,omitempty"`
	Restart     string           `yaml:"restart,omitempty"`

	ContainerName string       `yaml:"container_name,omitempty"`
	Profiles      StringOrList `yaml:"profiles,omitempty"`
	Labels        Labels       `yaml:"labels,omitempty"`

	CPUs            string `yaml:"cpus,omitempty"`
	Mem             string `yaml:"mem_limit,omitempty"`
	TTY             bool   `yaml:"tty,omitempty"`
	StdinOpen       bool   `yaml:"stdin_open,omitempty"`
	StopGracePeriod string `yaml:"stop_grace_period,omitempty"`

	Extends *ExtendsSpec `yaml:"extends,omitempty"`

	// name is filled in from the services map key during decode.
	name string
}

// ExtendsSpec names the base service a ServiceSpec inherits from.
// Cross-file extends is out of scope (§4.3): File, if present and
// non-empty, is rejected during conversion.
type ExtendsSpec struct {
	Service string `yaml:"service"`
	File    string `yaml:"file,omitempty"`
}

// BuildSpec is the AST-level build block.
type BuildSpec struct {
	Context    string            `yaml:"context,omitempty"`
	Dockerfile string            `yaml:"dockerfile,omitempty"`
	Args       Environment       `yaml:"args,omitempty"`
	Target     string            `yaml:"target,omitempty"`
}

// HealthCheckSpec is the AST-level healthcheck block.
type HealthCheckSpec struct {
	Test        HealthCheckTest `yaml:"test,omitempty"`
	Interval    string          `yaml:"interval,omitempty"`
	Timeout     string          `yaml:"timeout,omitempty"`
	Retries     *int            `yaml:"retries,omitempty"`
	StartPeriod string          `yaml:"start_period,omitempty"`
}

// DeploySpec carries the subset of the deploy block this orchestrator
// understands (resource limits).
type DeploySpec struct {
	Resources DeployResources `yaml:"resources,omitempty"`
}

type DeployResources struct {
	Limits       *ResourceSpec `yaml:"limits,omitempty"`
	Reservations *ResourceSpec `yaml:"reservations,omitempty"`
}

type ResourceSpec struct {
	CPUs   string `yaml:"cpus,omitempty"`
	Memory string `yaml:"memory,omitempty"`
}

// NetworkSpec is the AST-level top-level network block.
type NetworkSpec struct {
	Driver   string       `yaml:"driver,omitempty"`
	External ExternalSpec `yaml:"external,omitempty"`
	Labels   Labels       `yaml:"labels,omitempty"`
}

// VolumeSpec is the AST-level top-level volume block.
type VolumeSpec struct {
	Driver   string       `yaml:"driver,omitempty"`
	External ExternalSpec `yaml:"external,omitempty"`
	Labels   Labels       `yaml:"labels,omitempty"`
}

// =============================================================================
// Variant types — each accepts two YAML shapes and decodes to one
// canonical Go representation (per DESIGN NOTES in spec.md §9).
// =============================================================================

// StringOrList decodes either a bare scalar string or a YAML sequence of
// strings into []string.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		if single == "" {
			*s = nil
			return nil
		}
		*s = []string{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	case 0:
		*s = nil
		return nil
	default:
		return fmt.Errorf("expected scalar or list, got %v", value.Kind)
	}
}

// HealthCheckTest decodes healthcheck.test, which unlike StringOrList
// must keep track of whether it arrived as a bare scalar: a scalar
// string is an implicit shell command (spec.md §4.3 — "as string
// becomes `[\"/bin/sh\",\"-c\", s]`"), while a list of the same single
// string is an explicit argv and must not be shell-wrapped.
type HealthCheckTest struct {
	Values    []string
	WasScalar bool
}

func (t *HealthCheckTest) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*t = HealthCheckTest{Values: []string{single}, WasScalar: true}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*t = HealthCheckTest{Values: list}
		return nil
	case 0:
		*t = HealthCheckTest{}
		return nil
	default:
		return fmt.Errorf("expected scalar or list, got %v", value.Kind)
	}
}

// Environment decodes either `KEY=VALUE` list entries or a `KEY: VALUE`
// map into map[string]string. A list entry with no `=` maps to "";
// convert keeps that empty value as is and does not look the key up in
// the process environment.
type Environment map[string]string

func (e *Environment) UnmarshalYAML(value *yaml.Node) error {
	out := map[string]string{}
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		for _, entry := range list {
			key, val, hasVal := splitKV(entry)
			if hasVal {
				out[key] = val
			} else {
				out[key] = ""
			}
		}
	case yaml.MappingNode:
		var raw map[string]any
		if err := value.Decode(&raw); err != nil {
			return err
		}
		for k, v := range raw {
			if v == nil {
				out[k] = ""
				continue
			}
			out[k] = fmt.Sprintf("%v", v)
		}
	case 0:
		*e = out
		return nil
	default:
		return fmt.Errorf("expected list or map, got %v", value.Kind)
	}
	*e = out
	return nil
}

// Labels decodes either `key=value` list entries or a `key: value` map
// into map[string]string.
type Labels map[string]string

func (l *Labels) UnmarshalYAML(value *yaml.Node) error {
	var e Environment
	if err := e.UnmarshalYAML(value); err != nil {
		return err
	}
	*l = Labels(e)
	return nil
}

// DependsOnCondition is one of the three dependency readiness conditions.
type DependsOnCondition string

const (
	ConditionStarted              DependsOnCondition = "service_started"
	ConditionHealthy              DependsOnCondition = "service_healthy"
	ConditionCompletedSuccessfully DependsOnCondition = "service_completed_successfully"
)

// DependsOn decodes either a bare list of service names (convert puts
// these in the canonical model's plain DependsOn list only, with no
// condition-specific list) or a map of service name to `{condition: ...}`.
type DependsOn struct {
	// Names preserves list-form depends_on verbatim (plain dependsOn,
	// no specific condition requested).
	Names []string
	// Conditions holds dict-form entries, service name to condition.
	Conditions map[string]DependsOnCondition
}

func (d *DependsOn) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		d.Names = list
		return nil
	case yaml.MappingNode:
		var raw map[string]struct {
			Condition string `yaml:"condition"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		d.Conditions = make(map[string]DependsOnCondition, len(raw))
		for name, v := range raw {
			cond := DependsOnCondition(v.Condition)
			if cond == "" {
				cond = ConditionStarted
			}
			d.Conditions[name] = cond
		}
		return nil
	case 0:
		return nil
	default:
		return fmt.Errorf("expected list or map, got %v", value.Kind)
	}
}

// NetworkRefs decodes either a bare list of network names or a map of
// network name to per-service network settings (aliases, etc. — only
// the name matters to this orchestrator, per spec.md §4.3).
type NetworkRefs []string

func (n *NetworkRefs) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*n = list
		return nil
	case yaml.MappingNode:
		var raw map[string]any
		if err := value.Decode(&raw); err != nil {
			return err
		}
		names := make([]string, 0, len(raw))
		for k := range raw {
			names = append(names, k)
		}
		*n = names
		return nil
	case 0:
		*n = nil
		return nil
	default:
		return fmt.Errorf("expected list or map, got %v", value.Kind)
	}
}

// ExternalSpec decodes either a bare bool or `{name: ...}`.
type ExternalSpec struct {
	External bool
	Name     string
}

func (e *ExternalSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		e.External = b
		return nil
	case yaml.MappingNode:
		var raw struct {
			Name string `yaml:"name"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		e.External = true
		e.Name = raw.Name
		return nil
	case 0:
		return nil
	default:
		return fmt.Errorf("expected bool or map, got %v", value.Kind)
	}
}

func splitKV(entry string) (key, val string, hasVal bool) {
	for i := 0; i < len(entry); i++ {
		if entry[i] == '=' {
			return entry[:i], entry[i+1:], true
		}
	}
	return entry, "", false
}
