package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"ffbind/internal/paths"
	"ffbind/internal/shell"
	"ffbind/pkg/models"
)

// DefaultBrewFormula pins the major version the headers are translated for.
const DefaultBrewFormula = "ffmpeg@6"

// Brew asks Homebrew for the install prefix of the FFmpeg formula.
type Brew struct {
	Runner  shell.Runner
	Formula string
}

func (b *Brew) Name() string { return "brew" }

func (b *Brew) Resolve(ctx context.Context, outDir string, _ bool) (models.PathSet, error) {
	formula := b.Formula
	if formula == "" {
		formula = DefaultBrewFormula
	}

	out, err := b.Runner.Run(ctx, "brew --prefix "+formula, outDir)
	if err != nil {
		return models.PathSet{}, fmt.Errorf("brew --prefix %s: %w", formula, err)
	}

	prefix := strings.ReplaceAll(out, "\n", "")
	prefix = strings.TrimSpace(strings.ReplaceAll(prefix, "\r", ""))
	if prefix == "" {
		return models.PathSet{}, fmt.Errorf("brew --prefix %s: empty output", formula)
	}

	log.Info().Str("formula", formula).Str("prefix", prefix).Msg("resolved homebrew prefix")

	return models.PathSet{
		IncludePaths: []string{paths.Join(prefix, "./include")},
		LinkPaths:    []string{paths.Join(prefix, "./lib")},
	}, nil
}
