package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"
	"github.com/spf13/pflag"

	"ffbind/internal/config"
	"ffbind/internal/deps"
	"ffbind/internal/fetch"
	"ffbind/internal/generator"
	"ffbind/internal/platform"
	"ffbind/internal/shell"
	"ffbind/internal/translate"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ffbind: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the link directives only
	log.DefaultLogger = log.Logger{
		Level:  log.ParseLevel(cfg.LogLevel),
		Writer: &log.ConsoleWriter{Writer: os.Stderr},
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("binding generation failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Describe the build host
	host := platform.DescribeHost(ctx)
	log.Info().
		Str("os", host.OS).
		Str("arch", host.Arch).
		Str("platform", host.Platform).
		Str("platform_version", host.PlatformVersion).
		Str("cpu", host.CPUModel).
		Int("threads", host.Threads).
		Str("target", cfg.TargetOS+"/"+cfg.TargetArch).
		Bool("debug", cfg.Debug).
		Msg("starting ffbind")

	tools := platform.LookupTools(platform.RequiredTools(cfg.TargetOS))
	for name, path := range tools {
		log.Debug().Str("tool", name).Str("path", path).Msg("tool found")
	}

	// 3. Wire the pipeline
	runner := shell.New()
	resolver := platform.ForOS(cfg.TargetOS, platform.Dependencies{
		Runner:     runner,
		Downloader: fetch.NewDownloader(cfg.DownloadRetryMax),
		Settings: platform.Settings{
			BrewFormula:    cfg.BrewFormula,
			ArchiveBaseURL: cfg.ArchiveBaseURL,
			PkgConfig:      cfg.PkgConfig,
		},
	})

	gen := generator.New(generator.Options{
		OutDir:         cfg.OutDir,
		Debug:          cfg.Debug,
		Target:         translate.Target{GOOS: cfg.TargetOS, GOARCH: cfg.TargetArch, Triple: cfg.ClangTarget},
		Package:        cfg.Package,
		ArtifactName:   cfg.ArtifactName,
		Clang:          cfg.Clang,
		DedupPaths:     cfg.DedupPaths,
		MetadataFormat: cfg.MetadataFormat,
	}, resolver, deps.NewMediaSDK(runner, cfg.MediaSDKRepo))

	// 4. Generate
	result, err := gen.Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("artifact", result.ArtifactPath).
		Int("headers", result.Headers).
		Int("typedefs", result.Stats.Typedefs).
		Int("opaque", result.Stats.Opaque).
		Int("variadic_skipped", result.Stats.Variadic).
		Msg("done")
	return nil
}
