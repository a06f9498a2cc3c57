// Package images - image directory listing, size probing and annotation overlays.
package images

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SupportedExtensions lists the image file extensions picked up by ListImages.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// ImageFile represents an image file on disk.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// ID is the file name without its extension.
	ID string
}

// ListImages returns the image files of dir sorted by file name.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: One entry per supported image file.
// - error: Error if the directory cannot be read.
func ListImages(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read image dir %s", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := filepath.Ext(file.Name())
		if !isSupported(ext) {
			continue
		}
		images = append(images, ImageFile{
			Path: filepath.Join(dir, file.Name()),
			ID:   strings.TrimSuffix(file.Name(), ext),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return filepath.Base(images[i].Path) < filepath.Base(images[j].Path)
	})

	return images, nil
}

func isSupported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
