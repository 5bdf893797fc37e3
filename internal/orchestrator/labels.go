package orchestrator

import "github.com/containerstack/compose/internal/core/project"

// Label keys persisted on runtime containers and volumes (spec.md §6.3),
// used both to write state at creation time and to recognize a
// project's resources when reconciling or tearing down.
const (
	LabelProject    = "com.apple.compose.project"
	LabelService    = "com.apple.compose.service"
	LabelContainer  = "com.apple.compose.container"
	LabelConfigHash = "com.apple.container.compose.config-hash"

	LabelVolumeProject   = "com.apple.compose.project"
	LabelVolumeService   = "com.apple.compose.service"
	LabelVolumeTarget    = "com.apple.compose.target"
	LabelVolumeAnonymous = "com.apple.compose.anonymous"
)

func containerName(projectName, serviceName string) string {
	return projectName + "_" + serviceName
}

func networkRuntimeName(projectName string, n project.Network) string {
	if n.External {
		if n.ExternalName != "" {
			return n.ExternalName
		}
		return n.Name
	}
	return projectName + "_" + n.Name
}
