package execution

import (
	"fmt"
	"time"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/protocol"
)

// nodeUpdate is a requested status change for one graph node.
type nodeUpdate struct {
	id      string
	status  board.Status
	message string
}

// finalize stamps still-running nodes with a terminal status.
type finalize struct {
	status  board.Status
	message string
}

// effects is everything a frame asks the coordinator to do beyond
// evolving the session value.
type effects struct {
	markAllRunning bool
	nodeUpdates    []nodeUpdate
	finalize       *finalize
	changed        bool
}

// apply folds one inbound frame into the session. It is pure: the graph
// side effects come back as values for the coordinator to carry out.
func apply(s session, frame *protocol.Frame) (session, effects) {
	switch frame.Type {
	case protocol.TypeExecuteAdHocOK, protocol.TypeExecuteSavedOK:
		return applyStarted(s, frame)

	case protocol.TypeExecuteAdHocError, protocol.TypeExecuteSavedError,
		protocol.TypeTooManyExecutions, protocol.TypeExecutionsHalted, protocol.TypeMaintenanceMode:
		return applyStartFailed(s, frame)

	case protocol.TypeNodeStatusOK, protocol.TypeNodeStatusError:
		return applyNodeStatus(s, frame)

	case protocol.TypeFinishedOK, protocol.TypeFinishedError:
		return applyFinished(s, frame)
	}
	return s, effects{}
}

func applyStarted(s session, frame *protocol.Frame) (session, effects) {
	if s.phase != PhaseRequested || frame.RequestID != s.requestID {
		return s, effects{}
	}
	var reply startReply
	if err := frame.Decode(&reply); err != nil {
		return s, effects{}
	}
	s.phase = PhaseRunning
	s.executionID = reply.ExecutionID
	s.message = ""
	return s, effects{markAllRunning: true, changed: true}
}

func applyStartFailed(s session, frame *protocol.Frame) (session, effects) {
	if s.phase != PhaseRequested || frame.RequestID != s.requestID {
		return s, effects{}
	}
	s.phase = PhaseFinished
	s.outcome = OutcomeError
	s.message = frame.ErrorMessage()
	if s.message == "" {
		s.message = "The execution server rejected the run."
	}
	return s, effects{changed: true}
}

func applyNodeStatus(s session, frame *protocol.Frame) (session, effects) {
	if s.phase != PhaseRunning || frame.RequestID != s.requestID {
		return s, effects{}
	}
	var content nodeStatusContent
	if err := frame.Decode(&content); err != nil || content.NodeID == "" {
		return s, effects{}
	}
	if content.ExecutionID != "" && content.ExecutionID != s.executionID {
		return s, effects{}
	}

	update := nodeUpdate{id: content.NodeID}
	if frame.Type == protocol.TypeNodeStatusError || content.Status == "error" {
		update.status = board.StatusError
		update.message = content.Error
	} else {
		update.status = board.StatusSuccess
		update.message = fmt.Sprintf("completed in %s", formatDuration(content.DurationMs))
	}
	return s, effects{nodeUpdates: []nodeUpdate{update}, changed: true}
}

func applyFinished(s session, frame *protocol.Frame) (session, effects) {
	if (s.phase != PhaseRunning && s.phase != PhaseRequested) || frame.RequestID != s.requestID {
		return s, effects{}
	}
	var content finishedContent
	if err := frame.Decode(&content); err != nil {
		return s, effects{}
	}

	s.phase = PhaseFinished
	if frame.Type == protocol.TypeFinishedOK {
		s.outcome = OutcomeSuccess
		s.message = fmt.Sprintf("finished in %s", formatDuration(content.DurationMs))
		return s, effects{
			finalize: &finalize{status: board.StatusSuccess},
			changed:  true,
		}
	}
	s.outcome = OutcomeError
	s.message = content.Error
	if s.message == "" {
		s.message = "The pipeline execution failed."
	}
	return s, effects{
		finalize: &finalize{status: board.StatusError, message: s.message},
		changed:  true,
	}
}

func formatDuration(ms float64) time.Duration {
	d := time.Duration(ms * float64(time.Millisecond))
	if d >= time.Second {
		return d.Round(10 * time.Millisecond)
	}
	return d.Round(time.Millisecond)
}
