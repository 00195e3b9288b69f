package training

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrMissingPath is returned when persistence is requested without a
// destination path. It fails before touching the filesystem.
var ErrMissingPath = errors.New("save path required when save is requested")

// ClassIndexed is a dataset that exposes its class-name-to-index table.
// The table is assumed to be populated by the dataset's own discovery logic.
type ClassIndexed interface {
	ClassToIndex() map[string]int
}

// ExtractClassMapping reads the dataset's class mapping and optionally
// persists it to savePath as a YAML key-value document.
func ExtractClassMapping(ds ClassIndexed, savePath string, save bool) (map[string]int, error) {
	mapping := ds.ClassToIndex()

	if save {
		if savePath == "" {
			return nil, ErrMissingPath
		}
		if err := SaveClassMapping(mapping, savePath); err != nil {
			return nil, err
		}
	}

	return mapping, nil
}

// SaveClassMapping writes a class mapping to path in YAML format.
func SaveClassMapping(mapping map[string]int, path string) error {
	data, err := yaml.Marshal(mapping)
	if err != nil {
		return errors.Wrap(err, "marshal class mapping")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write class mapping to %s", path)
	}
	return nil
}

// LoadClassMapping reads a class mapping previously written by
// SaveClassMapping.
func LoadClassMapping(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read class mapping from %s", path)
	}
	var mapping map[string]int
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, errors.Wrap(err, "unmarshal class mapping")
	}
	return mapping, nil
}
