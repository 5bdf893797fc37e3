// Package compose implements the Parser, Interpolator and Merger stages
// of the pipeline: it turns raw compose YAML text into a merged
// ComposeFile AST. It knows nothing about the container runtime; the
// AST it produces is handed to internal/core/convert for conversion into
// a canonical project.Project.
package compose

import "github.com/containerstack/compose/internal/core/apperr"

func errInvalid(op, format string, args ...any) error {
	return apperr.Newf(op, apperr.InvalidArgument, nil, format, args...)
}

func errNotFound(op, format string, args ...any) error {
	return apperr.Newf(op, apperr.NotFound, nil, format, args...)
}

func wrapInvalid(op string, cause error, format string, args ...any) error {
	return apperr.Newf(op, apperr.InvalidArgument, cause, format, args...)
}
