package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBytesToHumanReadable(t *testing.T) {
	assert.Equal(t, "512 B", ConvertBytesToHumanReadable(512))
	assert.Equal(t, "1.0 KB", ConvertBytesToHumanReadable(1024))
	assert.Equal(t, "1.5 MB", ConvertBytesToHumanReadable(1536*1024))
	assert.Equal(t, "2.0 GB", ConvertBytesToHumanReadable(2*1024*1024*1024))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename(`a/b\c`))
	assert.Equal(t, "what_ no way", SanitizeFilename("what? no way."))
	assert.Equal(t, "download", SanitizeFilename("   "))
	assert.Equal(t, "Video Title _2024_", SanitizeFilename(`Video Title "2024"`))
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.mp4")

	assert.Equal(t, path, UniquePath(path))

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.Equal(t, filepath.Join(dir, "file (1).mp4"), UniquePath(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "file (1).mp4"), []byte("x"), 0644))
	assert.Equal(t, filepath.Join(dir, "file (2).mp4"), UniquePath(path))
}
