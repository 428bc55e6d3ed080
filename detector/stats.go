package detector

import "time"

// Stats holds the stage timings of one Detect call.
type Stats struct {
	// Setup is the time spent encoding the frame.
	Setup time.Duration
	// Inference is the time spent in the engine.
	Inference time.Duration
	// PostProcess is the time spent decoding and suppressing.
	PostProcess time.Duration
}

// Total returns the sum of every stage.
func (s Stats) Total() time.Duration {
	return s.Setup + s.Inference + s.PostProcess
}

// SetupMs returns Setup in milliseconds.
func (s Stats) SetupMs() float64 { return ms(s.Setup) }

// InferenceMs returns Inference in milliseconds.
func (s Stats) InferenceMs() float64 { return ms(s.Inference) }

// PostProcessMs returns PostProcess in milliseconds.
func (s Stats) PostProcessMs() float64 { return ms(s.PostProcess) }

// TotalMs returns Total in milliseconds.
func (s Stats) TotalMs() float64 { return ms(s.Total()) }

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
