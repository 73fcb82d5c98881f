package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ffbind/internal/deps"
	"ffbind/internal/platform"
)

// DefaultFile is read when present; a missing file is not an error.
const DefaultFile = "ffbind.yaml"

// Config holds all the settings for one generator run.
type Config struct {
	OutDir string `mapstructure:"out_dir" validate:"required"`
	Debug  bool   `mapstructure:"debug"`

	TargetOS    string `mapstructure:"target_os" validate:"required,oneof=linux darwin windows freebsd"`
	TargetArch  string `mapstructure:"target_arch" validate:"required,oneof=amd64 arm64"`
	ClangTarget string `mapstructure:"clang_target"`

	Package      string `mapstructure:"package" validate:"required"`
	ArtifactName string `mapstructure:"artifact_name" validate:"required,endswith=.go,excludesall=/\\"`

	Clang          string `mapstructure:"clang" validate:"required"`
	PkgConfig      string `mapstructure:"pkg_config" validate:"required"`
	BrewFormula    string `mapstructure:"brew_formula" validate:"required"`
	ArchiveBaseURL string `mapstructure:"archive_base_url" validate:"required,url"`
	MediaSDKRepo   string `mapstructure:"media_sdk_repo" validate:"required"`

	DownloadRetryMax int  `mapstructure:"download_retry_max" validate:"min=0,max=10"`
	DedupPaths       bool `mapstructure:"dedup_paths"`

	MetadataFormat string `mapstructure:"metadata_format" validate:"oneof=lines yaml json ldflags"`
	LogLevel       string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
}

// Flags declares the command-line overrides. Every flag maps to the setting
// of the same name with dashes for underscores.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("ffbind", pflag.ContinueOnError)
	fs.String("config", DefaultFile, "path to the YAML config file")
	fs.String("out-dir", "", "build output directory (default $OUT_DIR)")
	fs.Bool("debug", true, "fetch the debug distribution where one is downloaded (default from $DEBUG)")
	fs.String("target-os", "", "GOOS the bindings are generated for")
	fs.String("target-arch", "", "GOARCH the bindings are generated for")
	fs.String("clang-target", "", "clang --target triple override")
	fs.String("package", "", "package name of the artifact")
	fs.String("artifact-name", "", "artifact file name under the output directory")
	fs.String("clang", "", "clang binary")
	fs.String("metadata-format", "", "link directive format: lines, yaml, json or ldflags")
	fs.String("log-level", "", "log level")
	fs.Bool("dedup-paths", false, "drop repeated search paths")
	return fs
}

// LoadConfig merges defaults, the config file, the environment and flags,
// in increasing priority, and validates the result. flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	v.SetDefault("out_dir", os.Getenv("OUT_DIR"))
	v.SetDefault("debug", debugFromEnv())
	v.SetDefault("target_os", runtime.GOOS)
	v.SetDefault("target_arch", runtime.GOARCH)
	v.SetDefault("clang_target", "")
	v.SetDefault("package", "ffmpeg")
	v.SetDefault("artifact_name", "bindings.go")
	v.SetDefault("clang", "clang")
	v.SetDefault("pkg_config", "pkg-config")
	v.SetDefault("brew_formula", platform.DefaultBrewFormula)
	v.SetDefault("archive_base_url", platform.DefaultArchiveBaseURL)
	v.SetDefault("media_sdk_repo", deps.DefaultMediaSDKRepo)
	v.SetDefault("download_retry_max", 0)
	v.SetDefault("dedup_paths", false)
	v.SetDefault("metadata_format", "lines")
	v.SetDefault("log_level", "info")

	// 2. Read from File
	path := DefaultFile
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			path = f.Value.String()
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// 3. Environment
	v.SetEnvPrefix("FFBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Flags that were actually set
	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// debugFromEnv reads the build system's DEBUG variable: only "true" selects
// the debug profile, and an unset variable counts as debug.
func debugFromEnv() bool {
	label, ok := os.LookupEnv("DEBUG")
	if !ok {
		return true
	}
	return label == "true"
}
