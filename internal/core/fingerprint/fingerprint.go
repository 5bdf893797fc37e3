// Package fingerprint computes the deterministic configuration hash the
// orchestrator uses to decide whether an existing container can be
// reused or must be recreated (spec.md §4.5.4).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/containerstack/compose/internal/core/project"
)

// Input is everything that participates in a container's configuration
// hash. Executable/Arguments/Workdir are the final resolved exec form
// computed by the orchestrator (image entrypoint/cmd merged with the
// service's own entrypoint/command, per spec.md §4.5.2).
type Input struct {
	Image       string
	Executable  string
	Arguments   []string
	WorkingDir  string
	Environment map[string]string
	CPUs        float64
	Memory      int64
	Ports       []project.PortMapping
	Mounts      []ResolvedMount
	Labels      map[string]string
	HealthCheck *project.HealthCheck
}

// ResolvedMount is a VolumeMount with its fingerprint-relevant source
// already resolved: the logical volume name for named/anonymous
// volumes, or the absolute host path for binds (spec.md §4.5.4 — "so
// host-path churn doesn't invalidate the hash").
type ResolvedMount struct {
	Source   string
	Target   string
	Options  string
}

// canonical is the JSON-serializable shape Input is projected into
// before hashing: environment, labels, ports and mounts sorted into a
// deterministic order so equivalent configurations produce
// byte-identical JSON regardless of map/slice iteration order upstream.
// Arguments and the healthcheck test keep their given order.
type canonical struct {
	Image       string            `json:"image"`
	Executable  string            `json:"executable"`
	Arguments   []string          `json:"arguments"`
	WorkingDir  string            `json:"workdir"`
	Environment []kv              `json:"environment"`
	CPUs        float64           `json:"cpus"`
	Memory      int64             `json:"memory"`
	Ports       []string          `json:"ports"`
	Mounts      []string          `json:"mounts"`
	Labels      []kv              `json:"labels"`
	HealthCheck *healthCanonical  `json:"healthcheck,omitempty"`
}

type kv struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type healthCanonical struct {
	Test        []string `json:"test"`
	Interval    int      `json:"interval"`
	Timeout     int      `json:"timeout"`
	Retries     int      `json:"retries"`
	StartPeriod int      `json:"startPeriod"`
}

// Hash returns the lowercase hex SHA-256 of in's canonical JSON
// representation. The same Input always yields the same Hash regardless
// of map iteration order.
func Hash(in Input) (string, error) {
	data, err := CanonicalJSON(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalJSON serializes in into the deterministic byte sequence Hash
// digests, exported so callers can inspect or log it.
func CanonicalJSON(in Input) ([]byte, error) {
	c := canonical{
		Image:      in.Image,
		Executable: in.Executable,
		Arguments:  append([]string(nil), in.Arguments...),
		WorkingDir: in.WorkingDir,
		CPUs:       in.CPUs,
		Memory:     in.Memory,
	}

	c.Environment = sortedKV(in.Environment)
	c.Labels = sortedKV(in.Labels)

	ports := make([]string, 0, len(in.Ports))
	for _, p := range in.Ports {
		ports = append(ports, portKey(p))
	}
	sort.Strings(ports)
	c.Ports = ports

	mounts := make([]string, 0, len(in.Mounts))
	for _, m := range in.Mounts {
		mounts = append(mounts, mountKey(m))
	}
	sort.Strings(mounts)
	c.Mounts = mounts

	if in.HealthCheck != nil {
		c.HealthCheck = &healthCanonical{
			Test:        append([]string(nil), in.HealthCheck.Test...),
			Interval:    in.HealthCheck.Interval,
			Timeout:     in.HealthCheck.Timeout,
			Retries:     in.HealthCheck.Retries,
			StartPeriod: in.HealthCheck.StartPeriod,
		}
	}

	return json.Marshal(c)
}

func sortedKV(m map[string]string) []kv {
	out := make([]kv, 0, len(m))
	for k, v := range m {
		out = append(out, kv{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// portKey formats a PortMapping as "host:port->cport/proto" (spec.md
// §4.5.4's sort key).
func portKey(p project.PortMapping) string {
	hostIP := p.HostIP
	if hostIP == "" {
		hostIP = "0.0.0.0"
	}
	return hostIP + ":" + strconv.Itoa(p.HostPort) + "->" + strconv.Itoa(p.ContainerPort) + "/" + p.Protocol
}

// mountKey formats a ResolvedMount as "dest=source:options" (spec.md
// §4.5.4's sort key).
func mountKey(m ResolvedMount) string {
	return m.Target + "=" + m.Source + ":" + m.Options
}
