package models

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Metadata is the subset of an Ultralytics export metadata file the pipeline reads.
type Metadata struct {
	// Description of the export.
	Description string `yaml:"description"`
	// Task is "detect" for detection models.
	Task string `yaml:"task"`
	// ImgSize is [height, width] of the model input.
	ImgSize []int `yaml:"imgsz"`
	// Names holds the class names, either as a {index: name} map or a list.
	Names yaml.Node `yaml:"names"`
}

// LoadLabels reads a label table from path.
//
// Files ending in .yaml or .yml are parsed as model metadata with a names field; anything
// else is read as plain text with one class name per line (blank lines ignored).
//
// Arguments:
//   - path: Path to the labels or metadata file.
//
// Returns:
//   - Labels: The label table.
//   - error: A wrapped common.ErrConfiguration if the file cannot be read or parsed.
//
// @example
//
//	labels, err := models.LoadLabels("models/yolo11n_metadata.yaml")
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Labels{}, errors.Wrapf(common.ErrConfiguration, "open labels %s: %v", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseMetadataLabels(f)
	default:
		return ParseTextLabels(f)
	}
}

// ParseTextLabels reads one class name per line.
func ParseTextLabels(r io.Reader) (Labels, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			names = append(names, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return Labels{}, errors.Wrapf(common.ErrConfiguration, "read labels: %v", err)
	}
	return NewLabels(names)
}

// ParseMetadataLabels reads the names field of a YAML metadata document.
//
// Both spellings Ultralytics uses are accepted:
//
//	names: {0: person, 1: bicycle}
//	names: [person, bicycle]
//
// Map keys must cover 0..n-1 exactly.
func ParseMetadataLabels(r io.Reader) (Labels, error) {
	var md Metadata
	if err := yaml.NewDecoder(r).Decode(&md); err != nil {
		return Labels{}, errors.Wrapf(common.ErrConfiguration, "parse metadata: %v", err)
	}

	switch md.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := md.Names.Decode(&names); err != nil {
			return Labels{}, errors.Wrapf(common.ErrConfiguration, "decode names list: %v", err)
		}
		return NewLabels(names)

	case yaml.MappingNode:
		byIndex := map[int]string{}
		if err := md.Names.Decode(&byIndex); err != nil {
			return Labels{}, errors.Wrapf(common.ErrConfiguration, "decode names map: %v", err)
		}
		keys := make([]int, 0, len(byIndex))
		for k := range byIndex {
			keys = append(keys, k)
		}
		sort.Ints(keys)

		names := make([]string, len(keys))
		for i, k := range keys {
			if k != i {
				return Labels{}, errors.Wrapf(common.ErrConfiguration, "names map is missing index %d", i)
			}
			names[i] = byIndex[k]
		}
		return NewLabels(names)

	default:
		return Labels{}, errors.Wrap(common.ErrConfiguration, "metadata has no names field")
	}
}
