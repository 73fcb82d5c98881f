// Package platform resolves where the FFmpeg headers and libraries live on
// the build host. Each OS family gets one strategy; all of them produce the
// same PathSet.
package platform

import (
	"context"
	"fmt"

	"ffbind/internal/shell"
	"ffbind/pkg/models"
)

// Resolver produces the include and link search paths for one build.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, outDir string, debug bool) (models.PathSet, error)
}

// Downloader is the part of fetch.Downloader the archive strategy needs.
type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

// Settings are the per-strategy knobs taken from configuration.
type Settings struct {
	BrewFormula    string
	ArchiveBaseURL string
	PkgConfig      string
}

// Dependencies carries the collaborators the strategies run through.
type Dependencies struct {
	Runner     shell.Runner
	Downloader Downloader
	Settings   Settings
}

// ForOS picks the strategy for the target operating system.
func ForOS(goos string, deps Dependencies) Resolver {
	switch goos {
	case "darwin":
		return &Brew{Runner: deps.Runner, Formula: deps.Settings.BrewFormula}
	case "windows":
		return &Archive{Downloader: deps.Downloader, BaseURL: deps.Settings.ArchiveBaseURL}
	default:
		return &PkgConfig{Runner: deps.Runner, Binary: deps.Settings.PkgConfig, Libraries: models.Libraries()}
	}
}

// MissingLibraryError reports a required library that could not be probed
// at its minimum version.
type MissingLibraryError struct {
	Library models.LibraryRequirement
	Err     error
}

func (e *MissingLibraryError) Error() string {
	return fmt.Sprintf("required library %s (>= %s) not available: %v", e.Library.PackageName(), e.Library.MinVersion, e.Err)
}

func (e *MissingLibraryError) Unwrap() error {
	return e.Err
}
