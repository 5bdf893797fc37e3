package compose

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxComposeFileSize = 9 * 1024 * 1024 // ~9MB, spec.md §4.1
	maxIndentDepth     = 40
)

// Options controls parser behavior that a caller (the CLI, in this
// repository) can opt into.
type Options struct {
	// AllowAnchors disables the anchor/alias/merge-key rejection.
	AllowAnchors bool
}

var allowedYAMLTags = map[string]bool{
	"!!str": true, "!!int": true, "!!float": true, "!!bool": true,
	"!!null": true, "!!seq": true, "!!map": true, "!!binary": true,
	"!!timestamp": true,
}

// LoadComposeFile reads, interpolates and decodes a single compose file.
// The directory containing path is scanned for a `.env` file first
// (spec.md §4.1); processEnv is not mutated, a merged copy is returned
// as envUsed along with any warnings collected along the way.
func LoadComposeFile(path string, processEnv map[string]string, opts Options) (cf *ComposeFile, envUsed map[string]string, warnings []string, err error) {
	const op = "compose.LoadComposeFile"

	abs, absErr := filepath.Abs(path)
	if absErr != nil {
		abs = path
	}

	info, statErr := os.Stat(abs)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, nil, nil, errNotFound(op, "compose file not found: %s", path)
		}
		return nil, nil, nil, wrapInvalid(op, statErr, "stat %s: %v", path, statErr)
	}
	if info.Size() > maxComposeFileSize {
		return nil, nil, nil, errInvalid(op, "%s exceeds the %d byte size limit", path, maxComposeFileSize)
	}

	envUsed, envWarnings, err := LoadDotEnvFile(filepath.Dir(abs), processEnv)
	if err != nil {
		return nil, nil, nil, err
	}
	warnings = append(warnings, envWarnings...)

	data, readErr := os.ReadFile(abs)
	if readErr != nil {
		return nil, nil, nil, wrapInvalid(op, readErr, "read %s: %v", path, readErr)
	}

	cf, parseWarnings, err := ParseDocument(string(data), abs, envUsed, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	warnings = append(warnings, parseWarnings...)
	return cf, envUsed, warnings, nil
}

// ParseDocument interpolates and decodes a single in-memory compose
// document. sourceFile is recorded on the result for later path
// resolution (build contexts, bind mounts) and need not exist on disk.
func ParseDocument(content string, sourceFile string, env map[string]string, opts Options) (*ComposeFile, []string, error) {
	const op = "compose.ParseDocument"

	if err := checkIndentDepth(content); err != nil {
		return nil, nil, wrapInvalid(op, err, "%v", err)
	}

	interpolated, err := Interpolate(content, env)
	if err != nil {
		return nil, nil, wrapInvalid(op, err, "interpolation failed: %v", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(interpolated), &root); err != nil {
		return nil, nil, wrapInvalid(op, err, "invalid YAML syntax: %v", err)
	}
	if root.Kind == 0 {
		return nil, nil, errInvalid(op, "empty document")
	}

	if err := securityWalk(&root, opts.AllowAnchors); err != nil {
		return nil, nil, err
	}

	var cf ComposeFile
	if err := root.Decode(&cf); err != nil {
		return nil, nil, wrapInvalid(op, err, "invalid compose document: %v", err)
	}
	cf.sourceFile = sourceFile

	for name, svc := range cf.Services {
		svc.name = name
		cf.Services[name] = svc
	}

	return &cf, nil, nil
}

// checkIndentDepth enforces the "indentation depth ≤ 40 spaces" limit
// (spec.md §4.1) before the document is ever decoded, so a pathological
// file can't exhaust the YAML decoder first.
func checkIndentDepth(content string) error {
	for _, line := range strings.Split(content, "\n") {
		n := 0
		for n < len(line) && line[n] == ' ' {
			n++
		}
		if n > maxIndentDepth {
			return errInvalid("compose.Parser", "indentation depth %d exceeds limit of %d", n, maxIndentDepth)
		}
	}
	return nil
}

// securityWalk rejects custom YAML tags outside the safe set and, unless
// allowAnchors is set, anchors/aliases/merge keys (spec.md §4.1).
func securityWalk(n *yaml.Node, allowAnchors bool) error {
	if n == nil {
		return nil
	}
	const op = "compose.Parser"

	if n.Kind == yaml.AliasNode {
		if !allowAnchors {
			return errInvalid(op, "aliases are not allowed (line %d)", n.Line)
		}
		return nil
	}
	if n.Anchor != "" && !allowAnchors {
		return errInvalid(op, "anchor %q is not allowed (line %d)", n.Anchor, n.Line)
	}
	if n.Tag != "" && !allowedYAMLTags[n.Tag] && !(allowAnchors && n.Tag == "!!merge") {
		return errInvalid(op, "tag %q is not allowed (line %d)", n.Tag, n.Line)
	}

	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.Value == "<<" && !allowAnchors {
				return errInvalid(op, "merge keys are not allowed (line %d)", key.Line)
			}
			if err := securityWalk(key, allowAnchors); err != nil {
				return err
			}
			if err := securityWalk(val, allowAnchors); err != nil {
				return err
			}
		}
		return nil
	}

	for _, c := range n.Content {
		if err := securityWalk(c, allowAnchors); err != nil {
			return err
		}
	}
	return nil
}

// SourceFile returns the absolute path this ComposeFile was decoded
// from, or "" for documents parsed from an in-memory string.
func (c *ComposeFile) SourceFile() string {
	return c.sourceFile
}

// SourceDir returns the directory containing SourceFile, or "" if there
// is none.
func (c *ComposeFile) SourceDir() string {
	if c.sourceFile == "" {
		return ""
	}
	return filepath.Dir(c.sourceFile)
}
