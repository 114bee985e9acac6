package execution

import (
	"github.com/kbukum/zofia/codec"
)

// Phase is the run session lifecycle phase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequested
	PhaseRunning
	PhaseFinished
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequested:
		return "requested"
	case PhaseRunning:
		return "running"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a finished session.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	default:
		return "none"
	}
}

// session is the coordinator's internal run state. It is a plain value
// so the reducer can evolve it without touching the coordinator.
type session struct {
	phase       Phase
	requestID   int64
	executionID string
	pipelineID  string
	outcome     Outcome
	message     string
}

// Output is the stored result of a finished execution, fetched on
// request.
type Output struct {
	ExecutionID string `json:"executionId"`
	File        string `json:"file"`
	Content     any    `json:"content"`
}

// Snapshot is the immutable view handed to change listeners.
type Snapshot struct {
	Phase       Phase
	RequestID   int64
	ExecutionID string
	PipelineID  string
	Outcome     Outcome
	Message     string
	Output      *Output
}

// --- wire content shapes ---

// adHocContent is the body of an execute-from-payload request.
type adHocContent struct {
	Graph  codec.Envelope `json:"graph"`
	Params map[string]any `json:"params"`
}

// savedContent is the body of an execute-saved-pipeline request.
type savedContent struct {
	PipelineID string         `json:"pipelineId"`
	Params     map[string]any `json:"params"`
}

// startReply is the content of an execution-started acknowledgement.
type startReply struct {
	ExecutionID string `json:"executionId"`
	Status      string `json:"status"`
}

// nodeStatusContent is the content of a node status push.
type nodeStatusContent struct {
	ExecutionID string  `json:"executionId"`
	NodeID      string  `json:"nodeId"`
	NodeKind    string  `json:"nodeKind"`
	Status      string  `json:"status"`
	DurationMs  float64 `json:"durationMs"`
	Error       string  `json:"error"`
	Order       int     `json:"order"`
}

// finishedContent is the content of a pipeline-finished push or of an
// output reply.
type finishedContent struct {
	ExecutionID string  `json:"executionId"`
	Status      string  `json:"status"`
	Error       string  `json:"error"`
	DurationMs  float64 `json:"durationMs"`
	File        string  `json:"file"`
	Content     any     `json:"content"`
}

// executionRef is the body of stop and output requests.
type executionRef struct {
	ExecutionID string `json:"executionId"`
}
