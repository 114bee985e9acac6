package execution

import (
	"sync"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/codec"
	"github.com/kbukum/zofia/errors"
	"github.com/kbukum/zofia/logger"
	"github.com/kbukum/zofia/protocol"
)

// Transport is the slice of the protocol client the coordinator needs.
type Transport interface {
	Send(typeCode int, body any) (int64, error)
	Handle(typeCode int, h protocol.Handler)
	OnClose(l protocol.CloseListener)
}

// ChangeListener receives a session snapshot after every change.
type ChangeListener func(snapshot Snapshot)

// Coordinator owns the single run session and reflects server progress
// onto the graph. At most one execution is in flight; a second Run is
// rejected, never queued, and nothing retries automatically.
type Coordinator struct {
	transport Transport
	graph     *board.Graph
	log       *logger.Logger

	mu              sync.Mutex
	sess            session
	output          *Output
	outputRequestID int64
	listeners       []ChangeListener
}

// NewCoordinator creates the coordinator and registers its frame
// handlers on the transport.
func NewCoordinator(transport Transport, graph *board.Graph, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	c := &Coordinator{
		transport: transport,
		graph:     graph,
		log:       log.WithComponent("execution"),
	}

	for _, typeCode := range []int{
		protocol.OKFor(protocol.TypeExecuteAdHoc), protocol.ErrorFor(protocol.TypeExecuteAdHoc),
		protocol.OKFor(protocol.TypeExecuteSaved), protocol.ErrorFor(protocol.TypeExecuteSaved),
		protocol.TypeNodeStatusOK, protocol.TypeNodeStatusError,
		protocol.TypeTooManyExecutions, protocol.TypeExecutionsHalted, protocol.TypeMaintenanceMode,
	} {
		transport.Handle(typeCode, c.handleFrame)
	}
	transport.Handle(protocol.TypeFinishedOK, c.handleFinishedType)
	transport.Handle(protocol.TypeFinishedError, c.handleFinishedType)
	transport.Handle(protocol.OKFor(protocol.TypeStopExecution), c.handleStopReply)
	transport.Handle(protocol.ErrorFor(protocol.TypeStopExecution), c.handleStopReply)
	transport.OnClose(c.handleClose)
	return c
}

// OnChange registers a session change listener.
func (c *Coordinator) OnChange(l ChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Snapshot returns the current session view.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Run submits the board for ad-hoc execution. Rejected without sending
// a frame while another session is in flight.
func (c *Coordinator) Run(record board.PipelineRecord, params map[string]any) error {
	c.mu.Lock()
	if c.sess.phase == PhaseRequested || c.sess.phase == PhaseRunning {
		c.mu.Unlock()
		return errors.ExecutionInProgress()
	}

	body := adHocContent{Graph: codec.ToEnvelope(record), Params: params}
	id, err := c.transport.Send(protocol.TypeExecuteAdHoc, body)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.startSessionLocked(id, record.ID)
	snap, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()

	c.log.Info("run requested", logger.Fields("request_id", id, "pipeline_id", record.ID))
	notifyAll(listeners, snap)
	return nil
}

// RunSaved asks the server to execute one of its stored pipelines.
func (c *Coordinator) RunSaved(pipelineID string, params map[string]any) error {
	c.mu.Lock()
	if c.sess.phase == PhaseRequested || c.sess.phase == PhaseRunning {
		c.mu.Unlock()
		return errors.ExecutionInProgress()
	}

	body := savedContent{PipelineID: pipelineID, Params: params}
	id, err := c.transport.Send(protocol.TypeExecuteSaved, body)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.startSessionLocked(id, pipelineID)
	snap, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()

	c.log.Info("saved run requested", logger.Fields("request_id", id, "pipeline_id", pipelineID))
	notifyAll(listeners, snap)
	return nil
}

// Stop asks the server to stop the active execution.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.phase != PhaseRunning || c.sess.executionID == "" {
		return errors.Validation("No execution is running.")
	}
	_, err := c.transport.Send(protocol.TypeStopExecution, executionRef{ExecutionID: c.sess.executionID})
	return err
}

// RequestOutput fetches the stored output of a finished execution. With
// an empty id the last session's execution is used.
func (c *Coordinator) RequestOutput(executionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if executionID == "" {
		executionID = c.sess.executionID
	}
	if executionID == "" {
		return errors.NotFound("execution", "")
	}
	id, err := c.transport.Send(protocol.TypeRequestOutput, executionRef{ExecutionID: executionID})
	if err != nil {
		return err
	}
	c.outputRequestID = id
	return nil
}

// Acknowledge releases a finished session back to idle. The graph keeps
// its node statuses until the next run.
func (c *Coordinator) Acknowledge() {
	c.mu.Lock()
	if c.sess.phase != PhaseFinished {
		c.mu.Unlock()
		return
	}
	c.sess = session{}
	snap, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()
	notifyAll(listeners, snap)
}

func (c *Coordinator) startSessionLocked(requestID int64, pipelineID string) {
	c.sess = session{phase: PhaseRequested, requestID: requestID, pipelineID: pipelineID}
	c.output = nil
	c.graph.ResetStatuses()
}

// handleFrame folds an inbound frame into the session and carries out
// the graph effects the reducer asked for.
func (c *Coordinator) handleFrame(frame *protocol.Frame) {
	c.mu.Lock()
	next, eff := apply(c.sess, frame)
	if !eff.changed {
		c.mu.Unlock()
		c.log.WithError(errors.StaleCorrelation(frame.RequestID)).Debug("ignoring stale frame",
			logger.Fields("type", frame.Type))
		return
	}
	c.sess = next
	if eff.markAllRunning {
		c.graph.MarkAllRunning()
	}
	for _, u := range eff.nodeUpdates {
		c.graph.SetNodeStatus(u.id, u.status, u.message)
	}
	if eff.finalize != nil {
		c.graph.FinalizePending(eff.finalize.status, eff.finalize.message)
	}
	snap, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()
	notifyAll(listeners, snap)
}

// handleFinishedType routes 207/307 frames: a requestId matching a
// pending output request is an output reply; anything else goes through
// the session reducer.
func (c *Coordinator) handleFinishedType(frame *protocol.Frame) {
	c.mu.Lock()
	if c.outputRequestID != 0 && frame.RequestID == c.outputRequestID {
		c.outputRequestID = 0
		if frame.Type == protocol.TypeFinishedError {
			c.mu.Unlock()
			c.log.Warn("output request failed", logger.Fields("error", frame.ErrorMessage()))
			return
		}
		var content finishedContent
		if err := frame.Decode(&content); err != nil {
			c.mu.Unlock()
			c.log.WithError(err).Warn("malformed output reply")
			return
		}
		c.output = &Output{
			ExecutionID: content.ExecutionID,
			File:        content.File,
			Content:     content.Content,
		}
		snap, listeners := c.snapshotLocked(), c.listenersLocked()
		c.mu.Unlock()
		notifyAll(listeners, snap)
		return
	}
	c.mu.Unlock()
	c.handleFrame(frame)
}

func (c *Coordinator) handleStopReply(frame *protocol.Frame) {
	if frame.Type == protocol.TypeStopError {
		c.log.Warn("stop request rejected", logger.Fields("error", frame.ErrorMessage()))
		return
	}

	c.mu.Lock()
	if c.sess.phase != PhaseRunning && c.sess.phase != PhaseRequested {
		c.mu.Unlock()
		return
	}
	c.sess.phase = PhaseFinished
	c.sess.outcome = OutcomeError
	c.sess.message = "Execution stopped."
	c.graph.FinalizePending(board.StatusNone, "")
	snap, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()
	c.log.Info("execution stopped")
	notifyAll(listeners, snap)
}

// handleClose finalizes an in-flight session when the connection goes
// away, deliberately or not. Node statuses that never reached a
// terminal state are reset.
func (c *Coordinator) handleClose(err error) {
	c.mu.Lock()
	c.outputRequestID = 0
	if c.sess.phase != PhaseRequested && c.sess.phase != PhaseRunning {
		c.mu.Unlock()
		return
	}
	c.sess.phase = PhaseFinished
	c.sess.outcome = OutcomeError
	if err != nil {
		c.sess.message = "Connection to the execution server was lost."
	} else {
		c.sess.message = "Disconnected during execution."
	}
	c.graph.FinalizePending(board.StatusNone, "")
	snap, listeners := c.snapshotLocked(), c.listenersLocked()
	c.mu.Unlock()
	c.log.Warn("session finalized on close", logger.Fields("outcome", snap.Outcome.String()))
	notifyAll(listeners, snap)
}

func (c *Coordinator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:       c.sess.phase,
		RequestID:   c.sess.requestID,
		ExecutionID: c.sess.executionID,
		PipelineID:  c.sess.pipelineID,
		Outcome:     c.sess.outcome,
		Message:     c.sess.message,
	}
	if c.output != nil {
		out := *c.output
		snap.Output = &out
	}
	return snap
}

func (c *Coordinator) listenersLocked() []ChangeListener {
	return append([]ChangeListener(nil), c.listeners...)
}

func notifyAll(listeners []ChangeListener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
