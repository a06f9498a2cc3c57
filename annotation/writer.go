package annotation

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nvr-ai/bbox-eval/common"
)

// WriteBox persists one identifier's box and nominal image size to <dir>/<id>.xml.
//
// Arguments:
//   - dir: Output directory. Created when missing.
//   - id: Image identifier, also recorded as the document's filename.
//   - size: Nominal image size.
//   - box: The bounding box.
//
// Returns:
//   - The path of the written file.
func WriteBox(dir, id string, size Size, box common.BoundingBox) (string, error) {
	if id == "" || id != filepath.Base(id) {
		return "", errors.Errorf("invalid identifier %q", id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}

	path := filepath.Join(dir, id+Extension)
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}

	err = WriteDocument(f, &Document{Filename: id, Size: size, Box: box})
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = errors.Wrapf(closeErr, "close %s", path)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
