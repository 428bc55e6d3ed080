package detector

import "go.uber.org/zap"

// Option customizes a Detector.
type Option func(*Detector)

// WithLogger sets the logger. Load-time choices are logged at Info and per-call
// failures at Debug.
func WithLogger(log *zap.Logger) Option {
	return func(d *Detector) {
		if log != nil {
			d.log = log
		}
	}
}

// WithHistory keeps the stats of the last n successful calls. n <= 0 disables it.
func WithHistory(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.history = newHistory(n)
		} else {
			d.history = nil
		}
	}
}
