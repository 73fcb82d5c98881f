// Package deps fetches source-only dependencies whose headers feed the
// translation but which are not installed system-wide.
package deps

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"ffbind/internal/paths"
	"ffbind/internal/shell"
)

const (
	// DefaultMediaSDKRepo hosts the hardware-acceleration SDK headers
	// referenced by libavutil/hwcontext_qsv.h.
	DefaultMediaSDKRepo = "https://github.com/Intel-Media-SDK/MediaSDK"
	// MediaSDKDirName is the checkout directory under the build output dir.
	MediaSDKDirName = "media-sdk"
)

// Fetcher clones a repository into the build output directory on first use.
// An existing checkout is used as-is and never updated.
type Fetcher struct {
	Runner  shell.Runner
	RepoURL string
	DirName string
}

// NewMediaSDK returns the fetcher for the hardware-acceleration SDK.
func NewMediaSDK(runner shell.Runner, repoURL string) *Fetcher {
	if repoURL == "" {
		repoURL = DefaultMediaSDKRepo
	}
	return &Fetcher{Runner: runner, RepoURL: repoURL, DirName: MediaSDKDirName}
}

// EnsurePresent returns the checkout root, cloning it into outDir if absent.
func (f *Fetcher) EnsurePresent(ctx context.Context, outDir string) (string, error) {
	root := paths.Join(outDir, f.DirName)
	if paths.Exists(root) {
		log.Debug().Str("dir", root).Msg("dependency checkout already present")
		return root, nil
	}

	command := fmt.Sprintf("git clone %s %s", f.RepoURL, f.DirName)
	if _, err := f.Runner.Run(ctx, command, outDir); err != nil {
		return "", fmt.Errorf("clone %s: %w", f.RepoURL, err)
	}

	log.Info().Str("repo", f.RepoURL).Str("dir", root).Msg("dependency cloned")
	return root, nil
}

// IncludeDir is the public header directory inside the SDK checkout.
func IncludeDir(root string) string {
	return paths.Join(root, "./api/include")
}
