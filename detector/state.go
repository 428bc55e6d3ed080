package detector

import "fmt"

// State is the stage a Detect call is in. A call always moves forward through the
// stages and ends in StateDone or StateFailed.
type State int

const (
	// StateIdle is the state of a detector that has not run yet.
	StateIdle State = iota
	// StateEncoding is the frame to tensor conversion.
	StateEncoding
	// StateInferring is the engine run.
	StateInferring
	// StateDecoding is the raw output to candidate conversion.
	StateDecoding
	// StateSuppressing is thresholding, ranking and non-maximum suppression.
	StateSuppressing
	// StateDone is a completed call.
	StateDone
	// StateFailed is a call aborted by an error. See Detector.LastError.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEncoding:
		return "encoding"
	case StateInferring:
		return "inferring"
	case StateDecoding:
		return "decoding"
	case StateSuppressing:
		return "suppressing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
