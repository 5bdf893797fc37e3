package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/runtime"
)

var volumeNameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// anonymousVolumeName derives the deterministic name spec.md §4.5.8
// assigns to a volume mount with no source: <project>_<service>_anon_<12 hex>.
func anonymousVolumeName(projectName, serviceName, target string) string {
	h := sha256.Sum256([]byte(target))
	suffix := hex.EncodeToString(h[:])[:12]
	raw := projectName + "_" + serviceName + "_anon_" + suffix
	return volumeNameSanitizer.ReplaceAllString(raw, "_")
}

// resolveMount implements spec.md §4.5.8, turning a declared VolumeMount
// into the runtime.Mount the container is created with.
func (o *Orchestrator) resolveMount(ctx context.Context, projectName, serviceName string, v project.VolumeMount, declaredVolumes map[string]project.Volume) (runtime.Mount, error) {
	const op = "orchestrator.resolveMount"

	switch v.Type {
	case project.MountTypeBind:
		return runtime.Mount{Type: "bind", Source: v.Source, Target: v.Target, ReadOnly: v.ReadOnly}, nil

	case project.MountTypeTmpfs:
		return runtime.Mount{Type: "tmpfs", Target: v.Target, ReadOnly: v.ReadOnly}, nil

	case project.MountTypeVolume:
		name := v.Source
		anonymous := name == ""
		if anonymous {
			name = anonymousVolumeName(projectName, serviceName, v.Target)
		}

		decl, declared := declaredVolumes[name]

		info, err := o.runtime.InspectVolume(ctx, name)
		if err != nil {
			if declared && decl.External {
				return runtime.Mount{}, apperr.Newf(op, apperr.NotFound, err, "external volume %q not found", name)
			}
			info, err = o.runtime.CreateVolume(ctx, runtime.VolumeSpec{
				Name: name,
				Labels: map[string]string{
					LabelVolumeProject:   projectName,
					LabelVolumeService:   serviceName,
					LabelVolumeTarget:    v.Target,
					LabelVolumeAnonymous: boolLabel(anonymous),
				},
			})
			if err != nil {
				return runtime.Mount{}, apperr.Newf(op, apperr.InternalError, err, "failed to create volume %q", name)
			}
		}

		return runtime.Mount{Type: "volume", Source: info.Name, Target: v.Target, ReadOnly: v.ReadOnly}, nil
	}

	return runtime.Mount{}, apperr.Newf(op, apperr.InvalidArgument, nil, "unknown mount type %q", v.Type)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
