// Package reading turns the detections of a scale display model into a measurement.
package reading

import (
	"cmp"
	"slices"
	"strings"

	"github.com/nvr-ai/go-detect/models/postprocess"
)

// Empty is the value of a reading without any character detection.
const Empty = "—"

var (
	characterLabels = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "."}
	unitLabels      = []string{"Lb", "Kg", "OZ", "jin"}
)

// Reading is a measurement read off a scale display.
type Reading struct {
	// Value is the characters of the display, left to right, or Empty.
	Value string
	// Unit is the most confident unit label, or "" when none was detected.
	Unit string
	// Characters are the detections Value was built from, left to right.
	Characters []postprocess.Detection
	// UnitDetection is the detection Unit was taken from, or nil.
	UnitDetection *postprocess.Detection
}

// Assemble builds a reading from detections.
//
// Digit and decimal point detections are ordered by the left edge of their box and
// concatenated. Among unit detections the most confident one wins; the first one wins a
// tie. Labels are compared after trimming surrounding spaces. Anything else is ignored.
//
// Arguments:
//   - detections: The detections of one frame, in any order.
//
// Returns:
//   - Reading: The assembled reading.
//
// @example
//
//	r := reading.Assemble(det.Detect(ctx, frame))
//	fmt.Println(r) // 12.5 Kg
func Assemble(detections []postprocess.Detection) Reading {
	var r Reading
	for i := range detections {
		d := detections[i]
		label := strings.TrimSpace(d.Label)
		switch {
		case slices.Contains(characterLabels, label):
			d.Label = label
			r.Characters = append(r.Characters, d)
		case slices.Contains(unitLabels, label):
			if r.UnitDetection == nil || d.Confidence > r.UnitDetection.Confidence {
				d.Label = label
				r.UnitDetection = &d
			}
		}
	}

	slices.SortStableFunc(r.Characters, func(a, b postprocess.Detection) int {
		return cmp.Compare(a.Box.X1, b.Box.X1)
	})

	var sb strings.Builder
	for _, c := range r.Characters {
		sb.WriteString(c.Label)
	}
	r.Value = sb.String()
	if r.Value == "" {
		r.Value = Empty
	}
	if r.UnitDetection != nil {
		r.Unit = r.UnitDetection.Label
	}
	return r
}

// Overlay returns the detections worth drawing: the characters and the chosen unit.
func (r Reading) Overlay() []postprocess.Detection {
	out := slices.Clone(r.Characters)
	if r.UnitDetection != nil {
		out = append(out, *r.UnitDetection)
	}
	return out
}

func (r Reading) String() string {
	if r.Unit == "" {
		return r.Value
	}
	return r.Value + " " + r.Unit
}
