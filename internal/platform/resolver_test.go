package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffbind/internal/fetch"
	"ffbind/internal/shell"
	"ffbind/internal/shell/shelltest"
	"ffbind/pkg/models"
)

func TestForOS(t *testing.T) {
	deps := Dependencies{Runner: shelltest.New(nil)}

	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "brew"},
		{"windows", "archive"},
		{"linux", "pkg-config"},
		{"freebsd", "pkg-config"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			assert.Equal(t, tt.want, ForOS(tt.goos, deps).Name())
		})
	}
}

func TestBrewResolve(t *testing.T) {
	runner := shelltest.New(map[string]shelltest.Response{
		"brew --prefix ffmpeg@6": {Stdout: "/opt/homebrew/opt/ffmpeg@6\n"},
	})
	out := t.TempDir()

	set, err := (&Brew{Runner: runner}).Resolve(context.Background(), out, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/homebrew/opt/ffmpeg@6/include"}, set.IncludePaths)
	assert.Equal(t, []string{"/opt/homebrew/opt/ffmpeg@6/lib"}, set.LinkPaths)
	require.Len(t, runner.Calls, 1)
	assert.Equal(t, out, runner.Calls[0].Dir)
}

func TestBrewResolveFailureKeepsStderr(t *testing.T) {
	runner := shelltest.New(map[string]shelltest.Response{
		"brew --prefix ffmpeg@6": {Fail: true, Stderr: "Error: No available formula with the name \"ffmpeg@6\"."},
	})

	_, err := (&Brew{Runner: runner}).Resolve(context.Background(), t.TempDir(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: No available formula with the name \"ffmpeg@6\".")

	var cmdErr *shell.CommandError
	assert.True(t, errors.As(err, &cmdErr))
}

// probeResponses answers both pkg-config calls for every library at version.
func probeResponses(version string) map[string]shelltest.Response {
	responses := map[string]shelltest.Response{}
	for _, lib := range models.Libraries() {
		pkg := lib.PackageName()
		responses["pkg-config --modversion "+pkg] = shelltest.Response{Stdout: version + "\n"}
		responses["pkg-config --cflags-only-I --libs-only-L "+pkg] = shelltest.Response{
			Stdout: fmt.Sprintf("-I/opt/ffmpeg/include/%s -L/opt/ffmpeg/lib \n", lib.Name),
		}
	}
	return responses
}

func TestPkgConfigResolveAccumulatesInOrder(t *testing.T) {
	runner := shelltest.New(probeResponses("60.31.102"))
	r := ForOS("linux", Dependencies{Runner: runner})

	set, err := r.Resolve(context.Background(), t.TempDir(), false)
	require.NoError(t, err)

	require.Len(t, set.IncludePaths, 8)
	require.Len(t, set.LinkPaths, 8)
	assert.Equal(t, "/opt/ffmpeg/include/avcodec", set.IncludePaths[0])
	assert.Equal(t, "/opt/ffmpeg/include/swscale", set.IncludePaths[7])
	// Duplicates are kept; ordering is the contract.
	for _, p := range set.LinkPaths {
		assert.Equal(t, "/opt/ffmpeg/lib", p)
	}
	assert.Len(t, runner.Calls, 16)
}

func TestPkgConfigResolveMissingLibraryIsFatal(t *testing.T) {
	responses := probeResponses("6.0")
	responses["pkg-config --modversion libpostproc"] = shelltest.Response{
		Fail:   true,
		Stderr: "Package libpostproc was not found in the pkg-config search path.",
	}
	runner := shelltest.New(responses)

	set, err := ForOS("linux", Dependencies{Runner: runner}).Resolve(context.Background(), t.TempDir(), false)
	require.Error(t, err)

	assert.True(t, set.IsEmpty(), "no partial PathSet on failure")
	assert.Contains(t, err.Error(), "Package libpostproc was not found in the pkg-config search path.")

	var missing *MissingLibraryError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "postproc", missing.Library.Name)
}

func TestPkgConfigResolveRejectsOldVersion(t *testing.T) {
	responses := probeResponses("6.0")
	responses["pkg-config --modversion libswresample"] = shelltest.Response{Stdout: "4.6.100\n"}

	_, err := ForOS("linux", Dependencies{Runner: shelltest.New(responses)}).Resolve(context.Background(), t.TempDir(), false)

	var missing *MissingLibraryError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "swresample", missing.Library.Name)
	assert.Contains(t, err.Error(), "4.6.100")
}

func TestPkgConfigResolveAcceptsFourPartVersion(t *testing.T) {
	responses := probeResponses("60.31.102")
	responses["pkg-config --modversion libswresample"] = shelltest.Response{Stdout: "4.12.100.1\n"}

	set, err := ForOS("linux", Dependencies{Runner: shelltest.New(responses)}).Resolve(context.Background(), t.TempDir(), false)
	require.NoError(t, err)
	assert.Len(t, set.IncludePaths, 8)
}

func TestParseFlags(t *testing.T) {
	set := parseFlags("-I/usr/include/ffmpeg -I /opt/include -pthread -L/usr/lib64 -L /opt/lib -lavcodec\n")
	assert.Equal(t, []string{"/usr/include/ffmpeg", "/opt/include"}, set.IncludePaths)
	assert.Equal(t, []string{"/usr/lib64", "/opt/lib"}, set.LinkPaths)

	assert.True(t, parseFlags("\n").IsEmpty())
}

func distributionZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range []string{"ffmpeg/include/libavcodec/avcodec.h", "ffmpeg/lib/avcodec.lib"} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte("x"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestArchiveResolveIsIdempotent(t *testing.T) {
	body := distributionZip(t)
	var requests atomic.Int32
	var lastPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		lastPath.Store(r.URL.Path)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	out := t.TempDir()
	r := &Archive{Downloader: fetch.NewDownloader(0), BaseURL: srv.URL + "/dist/"}

	set, err := r.Resolve(context.Background(), out, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load())
	assert.Equal(t, "/dist/ffmpeg-windows-x64-debug.zip", lastPath.Load())
	assert.Equal(t, []string{filepath.Join(out, "ffmpeg", "include")}, set.IncludePaths)
	assert.Equal(t, []string{filepath.Join(out, "ffmpeg", "lib")}, set.LinkPaths)
	assert.FileExists(t, filepath.Join(out, "ffmpeg", "include", "libavcodec", "avcodec.h"))
	assert.NoFileExists(t, filepath.Join(out, "ffmpeg.zip"))

	again, err := r.Resolve(context.Background(), out, false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), requests.Load(), "second resolve must not touch the network")
	assert.Equal(t, set, again)
}

func TestArchiveResolveDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	out := t.TempDir()
	r := &Archive{Downloader: fetch.NewDownloader(0), BaseURL: srv.URL}

	_, err := r.Resolve(context.Background(), out, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg-windows-x64-release.zip")
	assert.NoDirExists(t, filepath.Join(out, "ffmpeg"))
}

func TestArchiveResolveRejectsUnexpectedLayout(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("include/libavcodec/avcodec.h")
	require.NoError(t, err)
	_, _ = f.Write([]byte("x"))
	require.NoError(t, w.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write(buf.Bytes())
	}))
	defer srv.Close()

	out := t.TempDir()
	_, err = (&Archive{Downloader: fetch.NewDownloader(0), BaseURL: srv.URL}).Resolve(context.Background(), out, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-level ffmpeg/")

	_, statErr := os.Stat(filepath.Join(out, "ffmpeg.zip"))
	assert.True(t, os.IsNotExist(statErr))
}
