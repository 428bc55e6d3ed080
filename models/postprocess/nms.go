// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"cmp"
	"slices"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/images"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	// DefaultConfidenceThreshold is the minimum score a candidate needs to be kept.
	DefaultConfidenceThreshold float32 = 0.25
	// DefaultIoUThreshold is the overlap at which a same-class box is suppressed.
	DefaultIoUThreshold float32 = 0.45
	// DefaultMaxDetections bounds the number of detections returned per frame.
	DefaultMaxDetections = 30
)

// Thresholds are the tunable knobs of the suppressor. They are read once at the start of
// every pass.
type Thresholds struct {
	// ConfidenceThreshold in [0, 1]. Candidates scoring exactly the threshold are kept.
	ConfidenceThreshold float32 `yaml:"confidence"`
	// IoUThreshold in [0, 1]. Same-class boxes overlapping an accepted box at or above
	// it are suppressed.
	IoUThreshold float32 `yaml:"iou"`
	// MaxDetections bounds the result length. 0 means unbounded.
	MaxDetections int `yaml:"max_detections"`
}

// DefaultThresholds returns 0.25 / 0.45 / 30.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		IoUThreshold:        DefaultIoUThreshold,
		MaxDetections:       DefaultMaxDetections,
	}
}

// Validate checks that every threshold is in range.
//
// Returns:
//   - error: A wrapped common.ErrConfiguration naming the first bad value, or nil.
func (t Thresholds) Validate() error {
	if !(t.ConfidenceThreshold >= 0 && t.ConfidenceThreshold <= 1) {
		return errors.Wrapf(common.ErrConfiguration, "confidence threshold %v outside [0, 1]", t.ConfidenceThreshold)
	}
	if !(t.IoUThreshold >= 0 && t.IoUThreshold <= 1) {
		return errors.Wrapf(common.ErrConfiguration, "IoU threshold %v outside [0, 1]", t.IoUThreshold)
	}
	if t.MaxDetections < 0 {
		return errors.Wrapf(common.ErrConfiguration, "max detections %d is negative", t.MaxDetections)
	}
	return nil
}

// Suppressor filters, ranks and suppresses candidates.
//
// The scratch slices are reused between calls, so a Suppressor must not be shared by
// concurrent callers. The zero value is ready to use.
type Suppressor struct {
	ranked   []Candidate
	accepted []Candidate
	boxes    []images.Rect
}

// NewSuppressor creates a suppressor with scratch space for capacity candidates.
func NewSuppressor(capacity int) *Suppressor {
	return &Suppressor{
		ranked:   make([]Candidate, 0, capacity),
		accepted: make([]Candidate, 0, capacity),
		boxes:    make([]images.Rect, 0, capacity),
	}
}

// Suppress runs greedy class-scoped Non-Maximum Suppression over cands.
//
// The pass is:
//  1. keep candidates with Score >= ConfidenceThreshold (NaN scores are dropped),
//  2. rank by Score descending, ties by Index ascending,
//  3. accept a candidate unless its IoU with an accepted box of the same class is
//     >= IoUThreshold,
//  4. stop after MaxDetections accepted candidates (0 = no limit),
//  5. map class indices to labels.
//
// A candidate whose class index falls outside labels is skipped; the returned error then
// combines one wrapped common.ErrUnknownClassIndex per skipped candidate and the
// detections are still valid.
//
// Arguments:
//   - cands: The decoded candidates. The slice is not modified.
//   - th: The thresholds for this pass.
//   - labels: The label table.
//
// Returns:
//   - []Detection: The detections in rank order, never nil.
//   - error: Non-fatal per-candidate errors, or nil.
//
// @example
//
//	var s postprocess.Suppressor
//	dets, err := s.Suppress(cands, postprocess.DefaultThresholds(), labels)
func (s *Suppressor) Suppress(cands []Candidate, th Thresholds, labels []string) ([]Detection, error) {
	s.ranked = s.ranked[:0]
	for _, c := range cands {
		if c.Score >= th.ConfidenceThreshold {
			s.ranked = append(s.ranked, c)
		}
	}
	if len(s.ranked) == 0 {
		return []Detection{}, nil
	}

	slices.SortFunc(s.ranked, compareRank)

	s.accepted = s.accepted[:0]
	s.boxes = s.boxes[:0]
	for _, c := range s.ranked {
		if th.MaxDetections > 0 && len(s.accepted) == th.MaxDetections {
			break
		}

		box := c.Box()
		if s.overlapsAccepted(c.ClassIndex, box, th.IoUThreshold) {
			continue
		}
		s.accepted = append(s.accepted, c)
		s.boxes = append(s.boxes, box)
	}

	var errs error
	out := make([]Detection, 0, len(s.accepted))
	for i, c := range s.accepted {
		if c.ClassIndex < 0 || c.ClassIndex >= len(labels) {
			errs = multierr.Append(errs, errors.Wrapf(common.ErrUnknownClassIndex,
				"candidate %d has class %d, label table has %d entries", c.Index, c.ClassIndex, len(labels)))
			continue
		}
		out = append(out, Detection{
			Box:        s.boxes[i],
			Label:      labels[c.ClassIndex],
			ClassIndex: c.ClassIndex,
			Confidence: c.Score,
		})
	}
	return out, errs
}

func (s *Suppressor) overlapsAccepted(class int, box images.Rect, threshold float32) bool {
	for i, a := range s.accepted {
		if a.ClassIndex != class {
			continue
		}
		if images.CalculateIoU(s.boxes[i], box) >= threshold {
			return true
		}
	}
	return false
}

// compareRank orders by score descending, then by index ascending.
func compareRank(a, b Candidate) int {
	if a.Score != b.Score {
		return cmp.Compare(b.Score, a.Score)
	}
	return cmp.Compare(a.Index, b.Index)
}
