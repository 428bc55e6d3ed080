// Package models - Label tables for detection model outputs.
package models

import (
	"github.com/nvr-ai/go-detect/common"
	"github.com/pkg/errors"
)

// Labels is the ordered, immutable class name table of a model. Position i names class
// index i of the model output.
type Labels struct {
	names     []string
	nameToIdx map[string]int
}

// NewLabels copies names into a label table.
//
// Arguments:
//   - names: Class names in model output order.
//
// Returns:
//   - Labels: The table.
//   - error: A wrapped common.ErrConfiguration if names is empty or has an empty entry.
func NewLabels(names []string) (Labels, error) {
	if len(names) == 0 {
		return Labels{}, errors.Wrap(common.ErrConfiguration, "label table is empty")
	}

	l := Labels{
		names:     make([]string, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if n == "" {
			return Labels{}, errors.Wrapf(common.ErrConfiguration, "label %d is empty", i)
		}
		l.names[i] = n
		// Duplicates keep the first index.
		if _, ok := l.nameToIdx[n]; !ok {
			l.nameToIdx[n] = i
		}
	}
	return l, nil
}

// Len returns the number of classes.
func (l Labels) Len() int {
	return len(l.names)
}

// Name returns the class name for idx.
//
// Returns:
//   - string: The class name.
//   - error: A wrapped common.ErrUnknownClassIndex if idx is outside the table.
func (l Labels) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(l.names) {
		return "", errors.Wrapf(common.ErrUnknownClassIndex, "index %d out of range for %d labels", idx, len(l.names))
	}
	return l.names[idx], nil
}

// Index returns the class index for name, or -1 when the name is unknown.
func (l Labels) Index(name string) int {
	if idx, ok := l.nameToIdx[name]; ok {
		return idx
	}
	return -1
}

// Names returns a copy of the names in class order.
func (l Labels) Names() []string {
	return append([]string(nil), l.names...)
}

// View returns the backing name slice without copying. It must not be modified.
func (l Labels) View() []string {
	return l.names
}
