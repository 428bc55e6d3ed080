package postprocess

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/nvr-ai/go-detect/common"
	"github.com/nvr-ai/go-detect/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var testLabels = []string{"person", "car", "dog"}

func cand(index, class int, score, cx, cy, w, h float32) Candidate {
	return Candidate{Index: index, ClassIndex: class, Score: score, CenterX: cx, CenterY: cy, Width: w, Height: h}
}

// randomCandidates returns candidates on an integer grid with even sizes so that boxes
// convert between center and corner form without rounding.
func randomCandidates(r *rand.Rand, n, classes int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{
			Index:      i,
			CenterX:    float32(r.IntN(100)),
			CenterY:    float32(r.IntN(100)),
			Width:      float32(2 + 2*r.IntN(20)),
			Height:     float32(2 + 2*r.IntN(20)),
			ClassIndex: r.IntN(classes),
			Score:      float32(r.IntN(1000)) / 1000,
		}
	}
	return out
}

func toCandidates(dets []Detection) []Candidate {
	out := make([]Candidate, len(dets))
	for i, d := range dets {
		out[i] = Candidate{
			Index:      i,
			CenterX:    (d.Box.X1 + d.Box.X2) / 2,
			CenterY:    (d.Box.Y1 + d.Box.Y2) / 2,
			Width:      d.Box.Width(),
			Height:     d.Box.Height(),
			ClassIndex: d.ClassIndex,
			Score:      d.Confidence,
		}
	}
	return out
}

// TestSuppressScenarios covers the reference scenarios of the suppression pass.
func TestSuppressScenarios(t *testing.T) {
	th := Thresholds{ConfidenceThreshold: 0.5, IoUThreshold: 0.5, MaxDetections: 30}

	t.Run("Identical boxes same class keep the best", func(t *testing.T) {
		var s Suppressor
		dets, err := s.Suppress([]Candidate{
			cand(0, 0, 0.8, 50, 50, 20, 20),
			cand(1, 0, 0.9, 50, 50, 20, 20),
		}, th, testLabels)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		assert.Equal(t, float32(0.9), dets[0].Confidence)
		assert.Equal(t, "person", dets[0].Label)
	})

	t.Run("Overlapping boxes of different classes are both kept", func(t *testing.T) {
		var s Suppressor
		dets, err := s.Suppress([]Candidate{
			cand(0, 0, 0.9, 50, 50, 20, 20),
			cand(1, 1, 0.8, 50, 50, 20, 20),
		}, th, testLabels)
		require.NoError(t, err)
		require.Len(t, dets, 2)
		assert.Equal(t, "person", dets[0].Label)
		assert.Equal(t, "car", dets[1].Label)
	})

	t.Run("No candidates", func(t *testing.T) {
		var s Suppressor
		dets, err := s.Suppress(nil, th, testLabels)
		require.NoError(t, err)
		assert.NotNil(t, dets)
		assert.Empty(t, dets)
	})

	t.Run("MaxDetections keeps the top two", func(t *testing.T) {
		var s Suppressor
		cands := []Candidate{
			cand(0, 0, 0.6, 10, 10, 4, 4),
			cand(1, 0, 0.9, 30, 30, 4, 4),
			cand(2, 0, 0.7, 50, 50, 4, 4),
			cand(3, 0, 0.95, 70, 70, 4, 4),
			cand(4, 0, 0.8, 90, 90, 4, 4),
		}
		dets, err := s.Suppress(cands, Thresholds{ConfidenceThreshold: 0.5, IoUThreshold: 0.5, MaxDetections: 2}, testLabels)
		require.NoError(t, err)
		require.Len(t, dets, 2)
		assert.Equal(t, float32(0.95), dets[0].Confidence)
		assert.Equal(t, float32(0.9), dets[1].Confidence)
	})
}

func TestSuppressInclusiveThreshold(t *testing.T) {
	var s Suppressor
	dets, err := s.Suppress([]Candidate{
		cand(0, 0, 0.5, 10, 10, 4, 4),
		cand(1, 0, 0.4999, 50, 50, 4, 4),
	}, Thresholds{ConfidenceThreshold: 0.5, IoUThreshold: 0.5}, testLabels)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, float32(0.5), dets[0].Confidence)
}

func TestSuppressIoUBoundaryIsSuppressed(t *testing.T) {
	// Boxes [0,10]x[0,10] and [0,10]x[5,15]: intersection 50, union 150, IoU = 1/3.
	var s Suppressor
	cands := []Candidate{
		cand(0, 0, 0.9, 5, 5, 10, 10),
		cand(1, 0, 0.8, 5, 10, 10, 10),
	}

	iou := images.CalculateIoU(cands[0].Box(), cands[1].Box())
	dets, err := s.Suppress(cands, Thresholds{IoUThreshold: iou}, testLabels)
	require.NoError(t, err)
	assert.Len(t, dets, 1, "IoU equal to the threshold suppresses")

	dets, err = s.Suppress(cands, Thresholds{IoUThreshold: iou + 0.01}, testLabels)
	require.NoError(t, err)
	assert.Len(t, dets, 2)
}

func TestSuppressTiesOrderedByIndex(t *testing.T) {
	var s Suppressor
	dets, err := s.Suppress([]Candidate{
		cand(7, 2, 0.7, 10, 10, 4, 4),
		cand(3, 1, 0.7, 30, 30, 4, 4),
		cand(5, 0, 0.7, 50, 50, 4, 4),
	}, DefaultThresholds(), testLabels)
	require.NoError(t, err)
	require.Len(t, dets, 3)
	assert.Equal(t, []string{"car", "person", "dog"}, []string{dets[0].Label, dets[1].Label, dets[2].Label})
}

func TestSuppressZeroMaxDetectionsIsUnbounded(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	cands := make([]Candidate, 100)
	for i := range cands {
		// Disjoint boxes on a diagonal.
		cands[i] = cand(i, r.IntN(3), 0.5+float32(r.IntN(500))/1000, float32(i*10), float32(i*10), 4, 4)
	}

	var s Suppressor
	dets, err := s.Suppress(cands, Thresholds{ConfidenceThreshold: 0.1, IoUThreshold: 0.5, MaxDetections: 0}, testLabels)
	require.NoError(t, err)
	assert.Len(t, dets, 100)
}

func TestSuppressDropsNaNScores(t *testing.T) {
	var s Suppressor
	dets, err := s.Suppress([]Candidate{
		cand(0, 0, float32(math.NaN()), 10, 10, 4, 4),
		cand(1, 0, 0.9, 50, 50, 4, 4),
	}, Thresholds{}, testLabels)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, float32(0.9), dets[0].Confidence)
}

func TestSuppressUnknownClassIndex(t *testing.T) {
	var s Suppressor
	dets, err := s.Suppress([]Candidate{
		cand(0, 0, 0.9, 10, 10, 4, 4),
		cand(1, 5, 0.8, 30, 30, 4, 4),
		cand(2, -1, 0.7, 50, 50, 4, 4),
		cand(3, 2, 0.6, 70, 70, 4, 4),
	}, DefaultThresholds(), testLabels)

	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnknownClassIndex), "got %v", err)
	assert.Len(t, multierr.Errors(err), 2)

	require.Len(t, dets, 2)
	assert.Equal(t, "person", dets[0].Label)
	assert.Equal(t, "dog", dets[1].Label)
}

func TestSuppressDoesNotModifyInput(t *testing.T) {
	cands := []Candidate{
		cand(0, 0, 0.3, 10, 10, 4, 4),
		cand(1, 0, 0.9, 10, 10, 4, 4),
	}
	before := append([]Candidate(nil), cands...)

	var s Suppressor
	_, err := s.Suppress(cands, DefaultThresholds(), testLabels)
	require.NoError(t, err)
	assert.Equal(t, before, cands)
}

// TestSuppressProperties validates the suppression invariants over random inputs.
func TestSuppressProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	s := NewSuppressor(256)

	for round := 0; round < 200; round++ {
		cands := randomCandidates(r, 1+r.IntN(200), len(testLabels))
		th := Thresholds{
			ConfidenceThreshold: float32(r.IntN(100)) / 100,
			IoUThreshold:        float32(1+r.IntN(99)) / 100,
			MaxDetections:       r.IntN(40),
		}

		dets, err := s.Suppress(cands, th, testLabels)
		require.NoError(t, err)

		if th.MaxDetections > 0 {
			require.LessOrEqual(t, len(dets), th.MaxDetections, "round %d: length bound", round)
		}
		for i, d := range dets {
			require.GreaterOrEqual(t, d.Confidence, th.ConfidenceThreshold, "round %d: threshold", round)
			if i > 0 {
				require.LessOrEqual(t, d.Confidence, dets[i-1].Confidence, "round %d: order", round)
			}
			for _, o := range dets[:i] {
				if o.ClassIndex == d.ClassIndex {
					require.Less(t, images.CalculateIoU(o.Box, d.Box), th.IoUThreshold, "round %d: class-scoped IoU", round)
				}
			}
		}

		again, err := s.Suppress(toCandidates(dets), th, testLabels)
		require.NoError(t, err)
		require.Equal(t, dets, again, "round %d: idempotence", round)
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{ConfidenceThreshold: 1, IoUThreshold: 0}.Validate())

	for _, th := range []Thresholds{
		{ConfidenceThreshold: -0.1, IoUThreshold: 0.5},
		{ConfidenceThreshold: 1.1, IoUThreshold: 0.5},
		{ConfidenceThreshold: 0.5, IoUThreshold: 2},
		{ConfidenceThreshold: float32(math.NaN()), IoUThreshold: 0.5},
		{ConfidenceThreshold: 0.5, IoUThreshold: 0.5, MaxDetections: -1},
	} {
		assert.True(t, errors.Is(th.Validate(), common.ErrConfiguration), "thresholds %+v", th)
	}
}

func TestDetectionScaled(t *testing.T) {
	d := Detection{Box: images.Rect{X1: -0.1, Y1: 0.25, X2: 0.5, Y2: 1.2}, Label: "dog"}
	got := d.Scaled(200, 100)
	assert.InDelta(t, 0, got.Box.X1, 1e-4)
	assert.InDelta(t, 25, got.Box.Y1, 1e-4)
	assert.InDelta(t, 100, got.Box.X2, 1e-4)
	assert.InDelta(t, 100, got.Box.Y2, 1e-4)
	assert.Equal(t, "dog", got.Label)
}

func BenchmarkSuppress8400(b *testing.B) {
	r := rand.New(rand.NewPCG(3, 4))
	cands := randomCandidates(r, 8400, 80)
	labels := make([]string, 80)
	for i := range labels {
		labels[i] = "class"
	}
	s := NewSuppressor(len(cands))
	th := DefaultThresholds()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Suppress(cands, th, labels); err != nil {
			b.Fatal(err)
		}
	}
}
