package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/containerstack/compose/internal/core/compose"
	"github.com/containerstack/compose/internal/core/convert"
	"github.com/containerstack/compose/internal/core/project"
)

// globalFlags holds the options spec.md §6.1 lists as consumed by every
// subcommand: repeatable -f/--file, -p/--project, --profile, repeatable
// --env KEY=VAL, and --allow-anchors.
type globalFlags struct {
	files        []string
	project      string
	profiles     []string
	envOverrides []string
	allowAnchors bool
}

// stringList is a flag.Value collecting repeated occurrences of a flag
// into a slice, the way `docker compose -f a.yaml -f b.yaml` works.
type stringList struct{ values *[]string }

func (s stringList) String() string {
	if s.values == nil {
		return ""
	}
	return strings.Join(*s.values, ",")
}

func (s stringList) Set(v string) error {
	*s.values = append(*s.values, v)
	return nil
}

// processEnv builds the environment map used for interpolation: the
// shell's own environment, overridden by --env KEY=VAL entries (spec.md
// §6.1), mirroring how a directory's .env only fills gaps shell env
// leaves (spec.md §4.1).
func (g globalFlags) processEnv() (map[string]string, error) {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	for _, entry := range g.envOverrides {
		idx := strings.IndexByte(entry, '=')
		if idx < 0 {
			return nil, fmt.Errorf("invalid --env entry %q: expected KEY=VAL", entry)
		}
		env[entry[:idx]] = entry[idx+1:]
	}
	return env, nil
}

// resolveFiles returns the compose files to load: explicit -f flags win;
// otherwise the configured default search list, filtered to files that
// actually exist.
func (g globalFlags) resolveFiles(cfg *Config) ([]string, error) {
	if len(g.files) > 0 {
		return g.files, nil
	}
	var found []string
	for _, name := range cfg.Project.Files {
		if _, err := os.Stat(name); err == nil {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no compose file found (looked for %s); pass -f explicitly", strings.Join(cfg.Project.Files, ", "))
	}
	return found, nil
}

var invalidProjectNameChars = regexp.MustCompile(`[^a-z0-9_-]`)

// resolveProjectName picks the project name: explicit -p/--project wins,
// then the config default, then the sanitized basename of the first
// compose file's directory.
func (g globalFlags) resolveProjectName(cfg *Config, firstFile string) string {
	if g.project != "" {
		return g.project
	}
	if cfg.Project.Name != "" {
		return cfg.Project.Name
	}
	dir, err := filepath.Abs(filepath.Dir(firstFile))
	if err != nil {
		dir = filepath.Dir(firstFile)
	}
	base := strings.ToLower(filepath.Base(dir))
	return invalidProjectNameChars.ReplaceAllString(base, "")
}

// loadProject runs the full Parser → Merger → Validator → Converter
// pipeline (spec.md §4.1–§4.3) and returns the canonical project.
func loadProject(g globalFlags, cfg *Config, selected []string) (*project.Project, []string, error) {
	files, err := g.resolveFiles(cfg)
	if err != nil {
		return nil, nil, err
	}

	env, err := g.processEnv()
	if err != nil {
		return nil, nil, err
	}

	merged, warnings, err := compose.LoadAndMerge(files, env, compose.Options{AllowAnchors: g.allowAnchors})
	if err != nil {
		return nil, warnings, err
	}

	name := g.resolveProjectName(cfg, files[0])

	proj, convWarnings, err := convert.Convert(merged, name, convert.Options{
		Profiles:   g.profiles,
		Selected:   selected,
		ProcessEnv: env,
	})
	warnings = append(warnings, convWarnings...)
	if err != nil {
		return nil, warnings, err
	}
	return proj, warnings, nil
}
