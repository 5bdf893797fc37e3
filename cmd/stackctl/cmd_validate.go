package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/containerstack/compose/internal/core/resolver"
)

// cmdValidate runs Parser → Merger → Converter → Resolver without
// touching the runtime (a supplemental subcommand, not part of spec.md
// §6.1's illustrative list, exercising the whole pipeline standalone
// the way cmd/hoster/parser_test.go smoke-tests ParseComposeSpec).
func cmdValidate(ctx context.Context, args []string, cfg *Config, logger *slog.Logger) (int, error) {
	fs, g := newGlobalFlagSet("validate")
	if err := fs.Parse(args); err != nil {
		return ExitGeneralFailure, err
	}
	selected := fs.Args()

	proj, warnings, err := loadProject(*g, cfg, selected)
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if err != nil {
		return ExitGeneralFailure, err
	}

	if _, err := resolver.Resolve(proj.Services); err != nil {
		return ExitGeneralFailure, err
	}

	fmt.Printf("%s: %d service(s) valid\n", proj.Name, len(proj.Services))
	for _, name := range proj.ServiceNames() {
		fmt.Printf("  - %s\n", name)
	}
	return ExitSuccess, nil
}
