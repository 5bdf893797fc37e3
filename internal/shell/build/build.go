// Package build implements the external build-executable adapter
// (spec.md §4.5.6): the orchestrator never embeds an image builder,
// it shells out to one discovered on the host.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/containerstack/compose/internal/core/apperr"
)

// defaultExecutableName is the build tool this adapter shells out to.
const defaultExecutableName = "container-builder"

// standardInstallLocations is checked, in order, after the current
// executable's sibling path and before falling back to PATH.
var standardInstallLocations = []string{
	"/usr/local/bin/" + defaultExecutableName,
	"/usr/local/libexec/" + defaultExecutableName,
	"/opt/container/bin/" + defaultExecutableName,
}

// Request describes one image build.
type Request struct {
	ProjectName string
	ServiceName string
	Context     string
	Dockerfile  string // resolved relative to Context if not absolute
	Args        map[string]string
	Target      string
	Tag         string
}

// maxConcurrentBuilds bounds the number of build subprocesses in
// flight at once (spec.md §4.5.6/§5).
const maxConcurrentBuilds = 3

// Adapter discovers and invokes the build executable, caching
// completed builds by their input fingerprint (spec.md §4.5.6).
type Adapter struct {
	// ExecutablePath, when set, is used verbatim and skips discovery.
	ExecutablePath string

	mu    sync.Mutex
	cache map[string]string // fingerprint -> tag
	sem   chan struct{}
}

// NewAdapter returns an Adapter with an empty build cache.
func NewAdapter() *Adapter {
	return &Adapter{cache: make(map[string]string), sem: make(chan struct{}, maxConcurrentBuilds)}
}

// Fingerprint computes the cache key spec.md §4.5.6 names:
// hash(projectName, serviceName, context, dockerfile, sortedArgs).
func Fingerprint(projectName, serviceName, context, dockerfile string, args map[string]string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s", projectName, serviceName, context, dockerfile, sortedArgsString(args))
	return hex.EncodeToString(h.Sum(nil))
}

// DeterministicTag is the fallback tag spec.md §4.5.6/§4.5.7 specify
// when the service doesn't pin an image: <project>_<service>:<12 hex>.
func DeterministicTag(projectName, serviceName, context, dockerfile string, args map[string]string) string {
	fp := Fingerprint(projectName, serviceName, context, dockerfile, args)
	return fmt.Sprintf("%s_%s:%s", projectName, serviceName, fp[:12])
}

func sortedArgsString(args map[string]string) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+args[k])
	}
	return strings.Join(parts, "\x00")
}

// Build resolves req.Dockerfile/req.Context, checks the in-memory
// cache, and on a miss invokes the build executable. It returns the
// tag the image was built under.
func (a *Adapter) Build(ctx context.Context, req Request) (string, error) {
	const op = "build.Build"

	dockerfile := req.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	resolvedDockerfile := dockerfile
	if !filepath.IsAbs(resolvedDockerfile) {
		resolvedDockerfile = filepath.Join(req.Context, resolvedDockerfile)
	}

	if _, err := os.Stat(req.Context); err != nil {
		return "", apperr.New(op, apperr.NotFound, "build context not found: "+req.Context, err)
	}
	if _, err := os.Stat(resolvedDockerfile); err != nil {
		return "", apperr.New(op, apperr.NotFound, "dockerfile not found: "+resolvedDockerfile, err)
	}

	fp := Fingerprint(req.ProjectName, req.ServiceName, req.Context, dockerfile, req.Args)

	a.mu.Lock()
	if tag, ok := a.cache[fp]; ok {
		a.mu.Unlock()
		return tag, nil
	}
	a.mu.Unlock()

	tag := req.Tag
	if tag == "" {
		tag = DeterministicTag(req.ProjectName, req.ServiceName, req.Context, dockerfile, req.Args)
	}

	exePath, err := a.discover()
	if err != nil {
		return "", apperr.New(op, apperr.NotFound, "build executable not found", err)
	}

	args := []string{"build"}
	if dockerfile != "" {
		args = append(args, "--file", dockerfile)
	}
	keys := make([]string, 0, len(req.Args))
	for k := range req.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, req.Args[k]))
	}
	if req.Target != "" {
		args = append(args, "--target", req.Target)
	}
	args = append(args, "--tag", tag, req.Context)

	cmd := exec.CommandContext(ctx, exePath, args...)
	cmd.Dir = req.Context
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	select {
	case a.sem <- struct{}{}:
		defer func() { <-a.sem }()
	case <-ctx.Done():
		return "", apperr.New(op, apperr.Timeout, "timed out waiting for a build slot", ctx.Err())
	}

	if err := cmd.Run(); err != nil {
		return "", apperr.Newf(op, apperr.InternalError, err, "build failed for %s/%s: %s", req.ProjectName, req.ServiceName, stderr.String())
	}

	a.mu.Lock()
	a.cache[fp] = tag
	a.mu.Unlock()

	return tag, nil
}

// discover locates the build executable per spec.md §4.5.6: explicit
// injectable path, `which <name>`, the current executable's sibling
// path, a fixed list of standard install locations, then PATH.
func (a *Adapter) discover() (string, error) {
	if a.ExecutablePath != "" {
		if _, err := os.Stat(a.ExecutablePath); err == nil {
			return a.ExecutablePath, nil
		}
		return "", fmt.Errorf("injected build executable path does not exist: %s", a.ExecutablePath)
	}

	if out, err := exec.Command("which", defaultExecutableName).Output(); err == nil {
		if path := strings.TrimSpace(string(out)); path != "" {
			return path, nil
		}
	}

	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), defaultExecutableName)
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}

	for _, candidate := range standardInstallLocations {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(defaultExecutableName); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%s not found via which, sibling path, standard install locations, or PATH", defaultExecutableName)
}
