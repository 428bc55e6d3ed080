// Package util holds file helpers shared by the command line tools.
package util

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ImageExtensions are the file extensions LoadDirectoryImageFiles picks up.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff"}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the number in a "frame-<n>" file name, or -1.
	Frame int
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files named "frame-<n>.<ext>" (as written by frame dumps) come first in frame order;
// every other image follows in name order. Subdirectories are skipped.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read image %s", path)
		}
		files = append(files, ImageFile{
			Path:  path,
			Data:  data,
			Frame: frameNumber(entry.Name()),
		})
	}

	slices.SortStableFunc(files, func(a, b ImageFile) int {
		switch {
		case a.Frame >= 0 && b.Frame >= 0:
			return cmp.Compare(a.Frame, b.Frame)
		case a.Frame >= 0:
			return -1
		case b.Frame >= 0:
			return 1
		}
		return cmp.Compare(a.Path, b.Path)
	})

	return files, nil
}

// IsImageFile reports whether name has one of ImageExtensions, ignoring case.
func IsImageFile(name string) bool {
	return slices.Contains(ImageExtensions, strings.ToLower(filepath.Ext(name)))
}

func frameNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	n, ok := strings.CutPrefix(base, "frame-")
	if !ok {
		return -1
	}
	frame, err := strconv.Atoi(n)
	if err != nil || frame < 0 {
		return -1
	}
	return frame
}
