package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"ffbind/internal/shell"
	"ffbind/pkg/models"
)

// PkgConfig probes every required library through the system pkg-config and
// concatenates the paths it reports. One failed probe fails the whole
// resolution; the interface would be incomplete without that library.
type PkgConfig struct {
	Runner    shell.Runner
	Binary    string
	Libraries [8]models.LibraryRequirement
}

func (p *PkgConfig) Name() string { return "pkg-config" }

func (p *PkgConfig) Resolve(ctx context.Context, outDir string, _ bool) (models.PathSet, error) {
	var set models.PathSet

	for _, lib := range p.Libraries {
		probed, err := p.probe(ctx, outDir, lib)
		if err != nil {
			return models.PathSet{}, err
		}
		set = set.Append(probed)
	}

	log.Info().
		Int("include_paths", len(set.IncludePaths)).
		Int("link_paths", len(set.LinkPaths)).
		Msg("pkg-config probes complete")

	return set, nil
}

func (p *PkgConfig) probe(ctx context.Context, dir string, lib models.LibraryRequirement) (models.PathSet, error) {
	bin := p.Binary
	if bin == "" {
		bin = "pkg-config"
	}
	pkg := lib.PackageName()

	out, err := p.Runner.Run(ctx, fmt.Sprintf("%s --modversion %s", bin, pkg), dir)
	if err != nil {
		return models.PathSet{}, &MissingLibraryError{Library: lib, Err: err}
	}
	version := strings.TrimSpace(out)
	if !lib.Satisfies(version) {
		return models.PathSet{}, &MissingLibraryError{
			Library: lib,
			Err:     fmt.Errorf("found version %q", version),
		}
	}

	out, err = p.Runner.Run(ctx, fmt.Sprintf("%s --cflags-only-I --libs-only-L %s", bin, pkg), dir)
	if err != nil {
		return models.PathSet{}, &MissingLibraryError{Library: lib, Err: err}
	}

	set := parseFlags(out)
	log.Debug().Str("package", pkg).Str("version", version).
		Strs("include", set.IncludePaths).Strs("link", set.LinkPaths).
		Msg("probed library")
	return set, nil
}

// parseFlags extracts -I and -L directories from pkg-config output. Both the
// attached ("-I/usr/include") and detached ("-I /usr/include") forms occur.
func parseFlags(out string) models.PathSet {
	var set models.PathSet
	fields := strings.Fields(out)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		var flag, value string
		switch {
		case f == "-I" || f == "-L":
			if i+1 >= len(fields) {
				continue
			}
			flag, value = f, fields[i+1]
			i++
		case strings.HasPrefix(f, "-I") || strings.HasPrefix(f, "-L"):
			flag, value = f[:2], f[2:]
		default:
			continue
		}

		if flag == "-I" {
			set.IncludePaths = append(set.IncludePaths, value)
		} else {
			set.LinkPaths = append(set.LinkPaths, value)
		}
	}
	return set
}
