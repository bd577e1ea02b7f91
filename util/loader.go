// Package util holds small file helpers for replaying recorded frames.
package util

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/nvr-ai/roi-motion/images"
	"github.com/pkg/errors"
)

// frameNumber extracts the trailing number of names like frame-0042.jpg.
var frameNumber = regexp.MustCompile(`(\d+)$`)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Format is the encoding inferred from the file extension.
	Format images.ImageFormat
	// Frame is the frame number parsed from the file name, or -1.
	Frame int
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Files are ordered by the number at the end of their base name
// (frame-9.jpg before frame-10.jpg); files without one sort after numbered
// files, by name. Subdirectories and files with unknown extensions are
// ignored.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read frame directory %s", dir)
	}

	var frames []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		format, ok := images.FormatFromPath(file.Name())
		if !ok {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read frame %s", imgPath)
		}

		frames = append(frames, ImageFile{
			Path:   imgPath,
			Data:   data,
			Format: format,
			Frame:  parseFrameNumber(file.Name()),
		})
	}

	sort.SliceStable(frames, func(i, j int) bool {
		a, b := frames[i], frames[j]
		switch {
		case a.Frame >= 0 && b.Frame >= 0 && a.Frame != b.Frame:
			return a.Frame < b.Frame
		case (a.Frame >= 0) != (b.Frame >= 0):
			return a.Frame >= 0
		default:
			return a.Path < b.Path
		}
	})

	return frames, nil
}

func parseFrameNumber(name string) int {
	base := name[:len(name)-len(filepath.Ext(name))]
	m := frameNumber.FindString(base)
	if m == "" {
		return -1
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return -1
	}
	return n
}
