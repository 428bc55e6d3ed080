package reading

import (
	"testing"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(label string, x1, confidence float32) postprocess.Detection {
	return postprocess.Detection{
		Box:        images.Rect{X1: x1, Y1: 0, X2: x1 + 10, Y2: 20},
		Label:      label,
		Confidence: confidence,
	}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name  string
		dets  []postprocess.Detection
		value string
		unit  string
		str   string
	}{
		{
			name:  "Digits left to right with unit",
			dets:  []postprocess.Detection{det("5", 30, 0.9), det("1", 0, 0.8), det("Kg", 50, 0.7), det(".", 20, 0.6), det("2", 10, 0.9)},
			value: "12.5",
			unit:  "Kg",
			str:   "12.5 Kg",
		},
		{
			name:  "Most confident unit wins",
			dets:  []postprocess.Detection{det("7", 0, 0.9), det("Lb", 20, 0.4), det("OZ", 30, 0.8), det("jin", 40, 0.6)},
			value: "7",
			unit:  "OZ",
			str:   "7 OZ",
		},
		{
			name:  "Unit tie keeps the first",
			dets:  []postprocess.Detection{det("Kg", 0, 0.5), det("Lb", 10, 0.5)},
			value: Empty,
			unit:  "Kg",
			str:   Empty + " Kg",
		},
		{
			name:  "Labels are trimmed and others ignored",
			dets:  []postprocess.Detection{det(" 3 ", 10, 0.9), det("person", 0, 0.99), det("0", 0, 0.5)},
			value: "03",
			str:   "03",
		},
		{
			name:  "Nothing detected",
			value: Empty,
			str:   Empty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Assemble(tt.dets)
			assert.Equal(t, tt.value, r.Value)
			assert.Equal(t, tt.unit, r.Unit)
			assert.Equal(t, tt.str, r.String())
		})
	}
}

func TestAssembleKeepsInputAndOverlay(t *testing.T) {
	dets := []postprocess.Detection{det("9", 20, 0.9), det("8", 0, 0.8), det("Lb", 40, 0.7), det("cat", 60, 0.99)}
	before := append([]postprocess.Detection(nil), dets...)

	r := Assemble(dets)
	assert.Equal(t, before, dets)

	overlay := r.Overlay()
	require.Len(t, overlay, 3)
	assert.Equal(t, "8", overlay[0].Label)
	assert.Equal(t, "9", overlay[1].Label)
	assert.Equal(t, "Lb", overlay[2].Label)
}
