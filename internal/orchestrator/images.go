package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/containerstack/compose/internal/core/apperr"
	"github.com/containerstack/compose/internal/core/project"
	"github.com/containerstack/compose/internal/shell/build"
	"github.com/containerstack/compose/internal/shell/runtime"
)

// effectiveImageName implements spec.md §4.5.7.
func effectiveImageName(projectName string, svc project.Service) string {
	if svc.Image != "" {
		return svc.Image
	}
	if svc.Build != nil {
		return build.DeterministicTag(projectName, svc.Name, svc.Build.Context, svc.Build.Dockerfile, svc.Build.Args)
	}
	return "unknown"
}

const maxConcurrentBuilds = 3

// buildImages implements spec.md §4.5.1 step 3: build every service
// that declares a build config, up to min(3, #builds) at a time.
func (o *Orchestrator) buildImages(ctx context.Context, p *project.Project, services map[string]project.Service) error {
	const op = "orchestrator.buildImages"

	var toBuild []project.Service
	for _, svc := range services {
		if svc.Build != nil {
			toBuild = append(toBuild, svc)
		}
	}
	if len(toBuild) == 0 {
		return nil
	}

	sem := make(chan struct{}, maxConcurrentBuilds)
	var wg sync.WaitGroup
	errs := make([]error, len(toBuild))

	for i, svc := range toBuild {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, svc project.Service) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := verifyBuildInputs(svc.Build); err != nil {
				errs[i] = apperr.Newf(op, apperr.NotFound, err, "service %q: %v", svc.Name, err)
				return
			}

			tag := effectiveImageName(p.Name, svc)
			_, err := o.builder.Build(ctx, build.Request{
				ProjectName: p.Name,
				ServiceName: svc.Name,
				Context:     svc.Build.Context,
				Dockerfile:  svc.Build.Dockerfile,
				Args:        svc.Build.Args,
				Target:      svc.Build.Target,
				Tag:         tag,
			})
			if err != nil {
				errs[i] = err
			}
		}(i, svc)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func verifyBuildInputs(b *project.BuildConfig) error {
	if _, err := os.Stat(b.Context); err != nil {
		return err
	}
	dockerfile := b.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	if !filepath.IsAbs(dockerfile) {
		dockerfile = filepath.Join(b.Context, dockerfile)
	}
	if _, err := os.Stat(dockerfile); err != nil {
		return err
	}
	return nil
}

// ensureImageAvailable implements spec.md §4.5.2 step 3.
func (o *Orchestrator) ensureImageAvailable(ctx context.Context, p *project.Project, svc project.Service, pullPolicy string) error {
	const op = "orchestrator.ensureImageAvailable"
	image := effectiveImageName(p.Name, svc)

	if svc.Build != nil {
		present, err := o.runtime.GetImage(ctx, image)
		if err != nil {
			return apperr.Newf(op, apperr.InternalError, err, "failed to check built image %q", image)
		}
		if !present {
			return apperr.Newf(op, apperr.NotFound, nil, "built image %q not found", image)
		}
		return nil
	}

	switch pullPolicy {
	case "always":
		return fetch(ctx, o.runtime, image)
	case "never":
		present, err := o.runtime.GetImage(ctx, image)
		if err != nil {
			return apperr.Newf(op, apperr.InternalError, err, "failed to check image %q", image)
		}
		if !present {
			return apperr.Newf(op, apperr.NotFound, nil, "image %q not present and pull policy is never", image)
		}
		return nil
	default: // "missing" or unset
		present, err := o.runtime.GetImage(ctx, image)
		if err != nil {
			return apperr.Newf(op, apperr.InternalError, err, "failed to check image %q", image)
		}
		if present {
			return nil
		}
		return fetch(ctx, o.runtime, image)
	}
}

func fetch(ctx context.Context, rt runtime.Client, image string) error {
	const op = "orchestrator.fetch"
	if err := rt.FetchImage(ctx, image, runtime.PullOptions{}); err != nil {
		return apperr.Newf(op, apperr.NotFound, err, "failed to fetch image %q", image)
	}
	return nil
}
