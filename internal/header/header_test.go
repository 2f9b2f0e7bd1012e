package header

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	tests := []struct {
		entry string
		want  string
	}{
		{entry: "/opt/build/coreversion", want: filepath.FromSlash("/opt/build/core/core_version.h")},
		{entry: "tools/coreversion", want: filepath.FromSlash("tools/core/core_version.h")},
		{entry: "coreversion", want: filepath.FromSlash("core/core_version.h")},
	}

	for _, tt := range tests {
		t.Run(tt.entry, func(t *testing.T) {
			assert.Equal(t, tt.want, Path(tt.entry))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, `#define CORE_VERSION "v1.2"`, Format("v1.2"))
	assert.Equal(t, `#define CORE_VERSION "unknown"`, Format("unknown"))
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core_version.h")

	require.NoError(t, Write(path, "v1.2-3-gab12-dirty"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `#define CORE_VERSION "v1.2-3-gab12-dirty"`, string(data))
	assert.False(t, strings.HasSuffix(string(data), "\n"))
}

func TestWriteTruncatesExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core_version.h")
	prior := strings.Repeat("/* stale generated content */\n", 200)
	require.NoError(t, os.WriteFile(path, []byte(prior), 0o644))

	require.NoError(t, Write(path, "v1.2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `#define CORE_VERSION "v1.2"`, string(data))
}

func TestWriteMissingDirectory(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "missing", "core_version.h")

	err := Write(path, "v1.2")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), path)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is created on failure")
}

func TestWriteRejectsEmptyDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core_version.h")

	assert.ErrorIs(t, Write(path, ""), ErrEmptyDescriptor)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
