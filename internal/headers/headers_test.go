package headers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeHeader(t *testing.T, dir, rel string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#pragma once\n"), 0o644))
	return path
}

func TestLocateFirstMatchWins(t *testing.T) {
	primary, secondary := t.TempDir(), t.TempDir()
	writeHeader(t, secondary, "libavcodec/avcodec.h")
	want := writeHeader(t, primary, "libavcodec/avcodec.h")

	assert.Equal(t, want, Locate([]string{primary, secondary}, "libavcodec/avcodec.h"))
}

func TestLocateSkipsDirsWithoutHeader(t *testing.T) {
	empty, full := t.TempDir(), t.TempDir()
	want := writeHeader(t, full, "libavutil/frame.h")

	assert.Equal(t, want, Locate([]string{empty, full}, "libavutil/frame.h"))
}

func TestLocateIsTotal(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		rel        string
	}{
		{"no candidates", nil, "libavutil/avutil.h"},
		{"nothing matches", []string{t.TempDir(), "/does/not/exist"}, "libavutil/hwcontext_drm.h"},
		{"nested path", []string{t.TempDir()}, "libswscale/swscale.h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "/usr/include/"+tt.rel, Locate(tt.candidates, tt.rel))
		})
	}
}

func TestResolveKeepsOrderAndInlinesSupplement(t *testing.T) {
	dir := t.TempDir()
	channel := writeHeader(t, dir, "libavutil/channel_layout.h")

	got := Resolve([]string{dir}, []string{"libavutil/channel_layout.h", SupplementName, "libavutil/cpu.h"})
	require.Len(t, got, 3)

	assert.Equal(t, channel, got[0].Path)
	assert.False(t, got[0].IsInline())

	assert.True(t, got[1].IsInline())
	assert.Equal(t, Supplement(), got[1].Text)

	assert.Equal(t, "/usr/include/libavutil/cpu.h", got[2].Path)
}

func TestCoreList(t *testing.T) {
	list := Core()

	idx := func(name string) int {
		for i, h := range list {
			if h == name {
				return i
			}
		}
		return -1
	}

	require.NotEqual(t, -1, idx(SupplementName))
	assert.Equal(t, idx("libavutil/channel_layout.h")+1, idx(SupplementName),
		"the supplement must directly follow the header it patches")

	seen := map[string]bool{}
	for _, h := range list {
		assert.False(t, seen[h], "duplicate header %s", h)
		seen[h] = true
	}

	var utils int
	for _, h := range list {
		if strings.HasPrefix(h, "libavutil/") {
			utils++
		}
	}
	assert.GreaterOrEqual(t, utils, 50)

	list[0] = "mutated.h"
	assert.Equal(t, "libavcodec/avcodec.h", Core()[0])
}

func TestHWAccel(t *testing.T) {
	assert.Equal(t, []string{"libavutil/hwcontext_qsv.h", "libavutil/hwcontext_d3d11va.h"}, HWAccel("windows"))
	assert.Equal(t, []string{"libavutil/hwcontext_drm.h"}, HWAccel("linux"))
	assert.Empty(t, HWAccel("darwin"))
	assert.Empty(t, HWAccel("freebsd"))

	assert.Len(t, ForTarget("linux"), len(Core())+1)
	assert.Equal(t, "libavutil/hwcontext_drm.h", ForTarget("linux")[len(Core())])
}

func TestSupplementRedefinesChannelMasks(t *testing.T) {
	text := Supplement()
	assert.Contains(t, text, "#undef AV_CH_FRONT_LEFT\n")
	assert.Contains(t, text, "#define AV_CH_FRONT_LEFT             (1ULL << 0)")
	assert.Contains(t, text, "#define AV_CH_BOTTOM_FRONT_RIGHT     (1ULL << 40)")
}
