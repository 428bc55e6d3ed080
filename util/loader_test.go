package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDirectoryImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.png", "scale.JPEG", "alpha.bmp", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.png"), 0o755))

	files, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
		assert.Equal(t, filepath.Base(f.Path), string(f.Data))
	}
	assert.Equal(t, []string{"frame-2.png", "frame-10.jpg", "alpha.bmp", "scale.JPEG"}, names)
	assert.Equal(t, 2, files[0].Frame)
	assert.Equal(t, -1, files[2].Frame)
}

func TestLoadDirectoryImagesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("a.PNG"))
	assert.True(t, IsImageFile("dir/b.jpeg"))
	assert.False(t, IsImageFile("model.onnx"))
	assert.False(t, IsImageFile("frame-1"))
}
