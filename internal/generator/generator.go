// Package generator runs one binding build: it resolves the library paths
// for the target, locates the headers, translates them and writes the
// artifact. Link metadata is printed rather than written.
package generator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"ffbind/internal/deps"
	"ffbind/internal/headers"
	"ffbind/internal/platform"
	"ffbind/internal/policy"
	"ffbind/internal/translate"
	"ffbind/pkg/models"
)

// DefaultArtifactName is the file written under the output directory.
const DefaultArtifactName = "bindings.go"

// DarwinFrameworks are linked on macOS in addition to the libraries.
var DarwinFrameworks = []string{
	"AppKit",
	"AudioToolbox",
	"AVFoundation",
	"CoreFoundation",
	"CoreGraphics",
	"CoreMedia",
	"CoreServices",
	"CoreVideo",
	"Foundation",
	"OpenCL",
	"OpenGL",
	"QTKit",
	"QuartzCore",
	"Security",
	"VideoDecodeAcceleration",
	"VideoToolbox",
}

// DependencyFetcher makes a source-only dependency available under outDir.
type DependencyFetcher interface {
	EnsurePresent(ctx context.Context, outDir string) (string, error)
}

// TranslateFunc produces the bindings. translate.Translate in production.
type TranslateFunc func(ctx context.Context, opts translate.Options) (*translate.Bindings, error)

// Options are the per-run settings.
type Options struct {
	OutDir       string
	Debug        bool
	Target       translate.Target
	Package      string
	ArtifactName string
	// Clang is the compiler binary the translation runs; "" uses PATH.
	Clang          string
	DedupPaths     bool
	MetadataFormat string
}

// Generator wires the pipeline stages together.
type Generator struct {
	Options

	Resolver  platform.Resolver
	Fetcher   DependencyFetcher
	Translate TranslateFunc
	// Out receives the link directives. Defaults to os.Stdout.
	Out io.Writer
}

// Result summarises a successful run.
type Result struct {
	ArtifactPath string
	Paths        models.PathSet
	Directives   models.LinkDirectives
	Headers      int
	Stats        translate.Stats
}

// New returns a generator with the production translator.
func New(opts Options, resolver platform.Resolver, fetcher DependencyFetcher) *Generator {
	return &Generator{
		Options:   opts,
		Resolver:  resolver,
		Fetcher:   fetcher,
		Translate: translate.Translate,
		Out:       os.Stdout,
	}
}

// Run executes the whole build. Any failure aborts it and leaves a previous
// artifact untouched.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	// 1. Resolve the search paths for the target platform
	ps, err := g.Resolver.Resolve(ctx, g.OutDir, g.Debug)
	if err != nil {
		return nil, fmt.Errorf("resolve paths (%s): %w", g.Resolver.Name(), err)
	}
	log.Info().Str("strategy", g.Resolver.Name()).Strs("include", ps.IncludePaths).Strs("link", ps.LinkPaths).Msg("paths resolved")

	// 2. The hardware SDK headers are a fallback, so they go last
	sdk, err := g.Fetcher.EnsurePresent(ctx, g.OutDir)
	if err != nil {
		return nil, err
	}
	ps = ps.Append(models.PathSet{IncludePaths: []string{deps.IncludeDir(sdk)}})
	if g.DedupPaths {
		ps = ps.Dedup()
	}

	directives := LinkDirectivesFor(g.Target.GOOS, ps)
	var rendered bytes.Buffer
	if err := WriteDirectives(&rendered, directives, g.MetadataFormat); err != nil {
		return nil, err
	}

	// 3. Locate every header of the target's list
	list := headers.ForTarget(g.Target.GOOS)
	resolved := headers.Resolve(ps.IncludePaths, list)
	log.Info().Int("headers", len(resolved)).Msg("headers resolved")

	// 4. Translate with the FFmpeg rules attached
	b, err := g.Translate(ctx, g.translateOptions(resolved, ps))
	if err != nil {
		return nil, err
	}

	// 5. Replace the artifact
	artifact := filepath.Join(g.OutDir, g.artifactName())
	if err := WriteArtifact(artifact, b.Source); err != nil {
		return nil, err
	}
	log.Info().
		Str("artifact", artifact).
		Int("functions", b.Stats.Functions).
		Int("records", b.Stats.Records).
		Int("enums", b.Stats.Enums).
		Int("constants", b.Stats.Constants).
		Dur("elapsed", time.Since(start)).
		Msg("bindings written")

	// 6. Hand the link metadata to the caller
	out := g.Out
	if out == nil {
		out = os.Stdout
	}
	if _, err := rendered.WriteTo(out); err != nil {
		return nil, fmt.Errorf("write directives: %w", err)
	}

	return &Result{
		ArtifactPath: artifact,
		Paths:        ps,
		Directives:   directives,
		Headers:      len(resolved),
		Stats:        b.Stats,
	}, nil
}

func (g *Generator) artifactName() string {
	if g.ArtifactName == "" {
		return DefaultArtifactName
	}
	return g.ArtifactName
}

func (g *Generator) translateOptions(hs []headers.Resolved, ps models.PathSet) translate.Options {
	return translate.Options{
		Headers:              hs,
		IncludeDirs:          ps.IncludePaths,
		BlockFunctions:       policy.LongDoubleFunctions,
		BlockFunctionPattern: policy.InternalSymbolPattern,
		OpaqueTypes:          policy.OpaqueTypes,
		Callbacks:            policy.FFmpeg{},
		Target:               g.Target,
		Package:              g.Package,
		Libraries:            models.LibraryNames(),
		Frontend:             &translate.Clang{Binary: g.Clang},
	}
}

// LinkDirectivesFor lists every link path and library, plus the system
// frameworks on darwin.
func LinkDirectivesFor(goos string, ps models.PathSet) models.LinkDirectives {
	d := models.LinkDirectives{
		SearchPaths: append([]string(nil), ps.LinkPaths...),
		Libraries:   models.LibraryNames(),
	}
	if goos == "darwin" {
		d.Frameworks = append([]string(nil), DarwinFrameworks...)
	}
	return d
}
