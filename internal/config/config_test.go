package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigFile(t *testing.T, body string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffbind.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return []string{"--config", path}
}

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := Flags()
	require.NoError(t, fs.Parse(args))
	return LoadConfig(fs)
}

func noConfigFile(t *testing.T) []string {
	return []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OUT_DIR", "/tmp/build/out")
	t.Setenv("DEBUG", "")
	require.NoError(t, os.Unsetenv("DEBUG"))

	cfg, err := load(t, noConfigFile(t)...)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/build/out", cfg.OutDir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, runtime.GOOS, cfg.TargetOS)
	assert.Equal(t, runtime.GOARCH, cfg.TargetArch)
	assert.Equal(t, "ffmpeg", cfg.Package)
	assert.Equal(t, "bindings.go", cfg.ArtifactName)
	assert.Equal(t, "clang", cfg.Clang)
	assert.Equal(t, "pkg-config", cfg.PkgConfig)
	assert.Equal(t, "ffmpeg@6", cfg.BrewFormula)
	assert.Equal(t, "https://github.com/Intel-Media-SDK/MediaSDK", cfg.MediaSDKRepo)
	assert.Equal(t, 0, cfg.DownloadRetryMax)
	assert.False(t, cfg.DedupPaths)
	assert.Equal(t, "lines", cfg.MetadataFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigDebugLabel(t *testing.T) {
	t.Setenv("OUT_DIR", "/out")

	tests := []struct {
		label string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"1", false},
		{"TRUE", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			t.Setenv("DEBUG", tt.label)
			cfg, err := load(t, noConfigFile(t)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Debug)
		})
	}
}

func TestLoadConfigRequiresOutDir(t *testing.T) {
	t.Setenv("OUT_DIR", "")

	_, err := load(t, noConfigFile(t)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OutDir")
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("OUT_DIR", "/from/out_dir")
	args := withConfigFile(t, `
out_dir: /from/file
package: avbind
metadata_format: yaml
log_level: debug
target_os: windows
`)

	cfg, err := load(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.OutDir)
	assert.Equal(t, "avbind", cfg.Package)
	assert.Equal(t, "yaml", cfg.MetadataFormat)
	assert.Equal(t, "windows", cfg.TargetOS)

	t.Setenv("FFBIND_PACKAGE", "fromenv")
	t.Setenv("FFBIND_DOWNLOAD_RETRY_MAX", "3")
	cfg, err = load(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Package)
	assert.Equal(t, 3, cfg.DownloadRetryMax)

	cfg, err = load(t, append(args, "--package", "fromflag", "--dedup-paths", "--target-arch", "arm64")...)
	require.NoError(t, err)
	assert.Equal(t, "fromflag", cfg.Package)
	assert.True(t, cfg.DedupPaths)
	assert.Equal(t, "arm64", cfg.TargetArch)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigAcceptsLDFlagsFormat(t *testing.T) {
	t.Setenv("OUT_DIR", "/out")

	cfg, err := load(t, append(noConfigFile(t), "--metadata-format", "ldflags")...)
	require.NoError(t, err)
	assert.Equal(t, "ldflags", cfg.MetadataFormat)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("OUT_DIR", "/out")

	tests := []struct {
		name string
		args []string
	}{
		{"target os", []string{"--target-os", "plan9"}},
		{"target arch", []string{"--target-arch", "386"}},
		{"metadata format", []string{"--metadata-format", "toml"}},
		{"log level", []string{"--log-level", "loud"}},
		{"artifact name", []string{"--artifact-name", "bindings.txt"}},
		{"artifact path", []string{"--artifact-name", "sub/bindings.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, append(noConfigFile(t), tt.args...)...)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Setenv("OUT_DIR", "/out")
	_, err := load(t, withConfigFile(t, "out_dir: [unclosed\n")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfigWithoutFlags(t *testing.T) {
	t.Setenv("OUT_DIR", "/out")
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "/out", cfg.OutDir)
}
