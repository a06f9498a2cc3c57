package annotation

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nvr-ai/bbox-eval/common"
)

// Extension is the file extension of annotation files.
const Extension = ".xml"

// LoadPolicy decides what happens when one annotation file fails to parse.
type LoadPolicy string

const (
	// LoadAbort stops at the first ParseError.
	LoadAbort LoadPolicy = "abort"
	// LoadSkip leaves the file out of the map and keeps going.
	LoadSkip LoadPolicy = "skip"
)

// ErrUnknownLoadPolicy is returned when a load policy name cannot be parsed.
var ErrUnknownLoadPolicy = errors.New("unknown load policy")

// ParseLoadPolicy converts a policy name into a LoadPolicy. The empty string maps to LoadAbort.
func ParseLoadPolicy(name string) (LoadPolicy, error) {
	switch LoadPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", LoadAbort:
		return LoadAbort, nil
	case LoadSkip:
		return LoadSkip, nil
	default:
		return "", errors.Wrapf(ErrUnknownLoadPolicy, "%q", name)
	}
}

// LoaderConfig configures LoadBoxes.
type LoaderConfig struct {
	Policy LoadPolicy  // Defaults to LoadAbort.
	Logger *zap.Logger // Optional. Defaults to a no-op logger.
}

// Identifier returns the identifier of an annotation or image file: its base name
// without the extension.
func Identifier(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadBox reads the bounding box of a single annotation file.
func LoadBox(path string) (common.BoundingBox, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return common.BoundingBox{}, err
	}
	return doc.Box, nil
}

// LoadDocument reads a single annotation file. Decoding failures are *ParseError.
func LoadDocument(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	doc, err := ReadDocument(f)
	if err != nil {
		return nil, newParseError(path, err)
	}
	return doc, nil
}

// annotationFile reports whether path, with symlinks followed, should be read. Entries
// that cannot be resolved are kept so that reading them reports the failure.
func annotationFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Mode().IsRegular()
}

// LoadBoxes scans dir for annotation files and returns their boxes keyed by identifier.
//
// Files are processed in name order. Every .xml entry (any case) that is a file, directly
// or through a symlink, is read; sub-directories are not descended into. A dangling
// symlink fails like an unreadable file.
//
// Arguments:
//   - dir: Directory holding the annotation files.
//   - config: Loader configuration. A nil config uses the defaults.
//
// Returns:
//   - The annotation map.
//   - With LoadAbort: the first *ParseError, and a nil map.
//   - With LoadSkip: the map of every file that parsed plus the combined *ParseError
//     values of the skipped files (see multierr.Errors). The map is non-nil whenever the
//     directory itself could be read.
func LoadBoxes(dir string, config *LoaderConfig) (*common.AnnotationMap, error) {
	cfg := LoaderConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Policy == "" {
		cfg.Policy = LoadAbort
	}
	if cfg.Policy != LoadAbort && cfg.Policy != LoadSkip {
		return nil, errors.Wrapf(ErrUnknownLoadPolicy, "%q", cfg.Policy)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read annotation dir %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			cfg.Logger.Debug("ignoring non-annotation entry", zap.String("name", entry.Name()))
			continue
		}
		if !entry.Type().IsRegular() && !annotationFile(filepath.Join(dir, entry.Name())) {
			cfg.Logger.Debug("ignoring annotation entry that is not a file",
				zap.String("name", entry.Name()), zap.Stringer("mode", entry.Type()))
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	boxes := make(map[string]common.BoundingBox, len(names))
	var skipped error
	for _, name := range names {
		path := filepath.Join(dir, name)
		id := Identifier(name)

		var box common.BoundingBox
		if _, dup := boxes[id]; dup {
			err = &ParseError{Path: path, Err: errors.Wrapf(ErrDuplicateIdentifier, "%q", id)}
		} else {
			box, err = LoadBox(path)
		}
		if err != nil {
			if cfg.Policy == LoadAbort {
				return nil, err
			}
			cfg.Logger.Warn("skipping annotation file", zap.String("path", path), zap.Error(err))
			skipped = multierr.Append(skipped, err)
			continue
		}
		boxes[id] = box
	}

	cfg.Logger.Debug("loaded annotations",
		zap.String("dir", dir),
		zap.Int("files", len(names)),
		zap.Int("boxes", len(boxes)),
		zap.Int("skipped", len(multierr.Errors(skipped))),
	)

	return common.NewAnnotationMap(boxes), skipped
}
