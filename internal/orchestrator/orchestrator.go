// Package orchestrator implements the actor that reconciles a
// project.Project against a runtime.Client: building images, creating
// and starting containers in dependency order, gating on health and
// lifecycle conditions, and tearing projects down (spec.md §4.5).
package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/core/resolver"
	"github.com/containerstack/compose/internal/shell/build"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// Orchestrator is a single-writer actor: every mutation of project
// state is made under mu, but suspension points (runtime calls, sleeps,
// build subprocess waits) happen outside the lock so independent
// operations can make progress concurrently (spec.md §5).
type Orchestrator struct {
	runtime runtime.Client
	builder *build.Adapter
	logger  *slog.Logger

	mu       sync.Mutex
	projects map[string]*projectState
}

// projectState is the orchestrator's bookkeeping for one named project:
// the containers it has reconciled and when they were last touched,
// used by the §4.5.1 step-8 purge of stale entries.
type projectState struct {
	containers map[string]containerRecord // serviceName -> record
	lastTouch  time.Time
}

type containerRecord struct {
	id         string
	configHash string
	touchedAt  time.Time
}

// New constructs an Orchestrator driving rt and using builder for
// image builds.
func New(rt runtime.Client, builder *build.Adapter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runtime:  rt,
		builder:  builder,
		logger:   logger,
		projects: make(map[string]*projectState),
	}
}

const staleProjectStateTTL = time.Hour

func (o *Orchestrator) state(projectName string) *projectState {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.purgeStaleLocked()

	ps, ok := o.projects[projectName]
	if !ok {
		ps = &projectState{containers: make(map[string]containerRecord)}
		o.projects[projectName] = ps
	}
	ps.lastTouch = time.Now()
	return ps
}

// purgeStaleLocked evicts project-state entries untouched for over an
// hour (spec.md §4.5.1 step 8). Callers must hold mu.
func (o *Orchestrator) purgeStaleLocked() {
	cutoff := time.Now().Add(-staleProjectStateTTL)
	for name, ps := range o.projects {
		if ps.lastTouch.Before(cutoff) {
			delete(o.projects, name)
		}
	}
}

func (o *Orchestrator) recordContainer(projectName, serviceName, id, configHash string) {
	ps := o.state(projectName)
	o.mu.Lock()
	defer o.mu.Unlock()
	ps.containers[serviceName] = containerRecord{id: id, configHash: configHash, touchedAt: time.Now()}
}

func (o *Orchestrator) forgetContainer(projectName, serviceName string) {
	ps := o.state(projectName)
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(ps.containers, serviceName)
}

// serviceFilter implements spec.md §4.5.1 step 1.
func serviceFilter(p *project.Project, selected []string, noDeps bool) map[string]project.Service {
	if len(selected) == 0 {
		return p.Services
	}
	if noDeps {
		out := make(map[string]project.Service, len(selected))
		for _, name := range selected {
			if svc, ok := p.Services[name]; ok {
				out[name] = svc
			}
		}
		return out
	}
	return resolver.TransitiveClosure(p.Services, selected)
}
