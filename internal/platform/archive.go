package platform

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/phuslu/log"

	"ffbind/internal/fetch"
	"ffbind/internal/paths"
	"ffbind/pkg/models"
)

// DefaultArchiveBaseURL hosts the prebuilt windows distributions.
const DefaultArchiveBaseURL = "https://github.com/mycrl/third-party/releases/download/distributions"

// ArchiveDirName is the directory the distribution unpacks to under the build output dir.
const ArchiveDirName = "ffmpeg"

// Archive downloads a prebuilt distribution matching the build profile and
// unpacks it next to the build output. Nothing is fetched when the
// distribution directory already exists.
type Archive struct {
	Downloader Downloader
	BaseURL    string
}

func (a *Archive) Name() string { return "archive" }

// ArchiveFileName is the release asset for profile.
func ArchiveFileName(profile models.Profile) string {
	return fmt.Sprintf("ffmpeg-windows-x64-%s.zip", profile)
}

func (a *Archive) Resolve(ctx context.Context, outDir string, debug bool) (models.PathSet, error) {
	prefix := paths.Join(outDir, ArchiveDirName)

	if !paths.Exists(prefix) {
		if err := a.fetch(ctx, outDir, models.ProfileFor(debug)); err != nil {
			return models.PathSet{}, err
		}
	} else {
		log.Debug().Str("dir", prefix).Msg("prebuilt distribution already present")
	}

	return models.PathSet{
		IncludePaths: []string{paths.Join(prefix, "./include")},
		LinkPaths:    []string{paths.Join(prefix, "./lib")},
	}, nil
}

func (a *Archive) fetch(ctx context.Context, outDir string, profile models.Profile) error {
	base := a.BaseURL
	if base == "" {
		base = DefaultArchiveBaseURL
	}
	url := strings.TrimRight(base, "/") + "/" + ArchiveFileName(profile)
	staged := paths.Join(outDir, ArchiveDirName+".zip")

	if err := a.Downloader.Download(ctx, url, staged); err != nil {
		return err
	}
	defer os.Remove(staged)

	if err := fetch.Unzip(staged, outDir); err != nil {
		// A half-extracted tree would pass the presence check next time.
		_ = os.RemoveAll(paths.Join(outDir, ArchiveDirName))
		return err
	}
	if !paths.Exists(paths.Join(outDir, ArchiveDirName)) {
		return fmt.Errorf("archive %s did not contain a top-level %s/ directory", url, ArchiveDirName)
	}

	log.Info().Str("profile", string(profile)).Str("dir", paths.Join(outDir, ArchiveDirName)).Msg("prebuilt distribution unpacked")
	return nil
}
