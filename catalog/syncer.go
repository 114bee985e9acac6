package catalog

import (
	"sync"

	"github.com/kbukum/zofia/board"
	"github.com/kbukum/zofia/errors"
	"github.com/kbukum/zofia/logger"
	"github.com/kbukum/zofia/protocol"
	"github.com/kbukum/zofia/store"
)

// Transport is the slice of the protocol client the syncer needs.
type Transport interface {
	Send(typeCode int, body any) (int64, error)
	Handle(typeCode int, h protocol.Handler)
	OnClose(l protocol.CloseListener)
}

// Snapshot is the immutable view handed to change listeners.
type Snapshot struct {
	Pending    bool
	SelectedID string
	Count      int
	LastError  string
}

// ChangeListener receives a snapshot after every catalog change.
type ChangeListener func(snapshot Snapshot)

// catalogContent is the payload of a catalog reply.
type catalogContent struct {
	Pipelines []board.PipelineRecord `json:"pipelines"`
}

// Syncer owns the single catalog sync session and the pipeline
// selection.
type Syncer struct {
	transport Transport
	store     *store.Store
	log       *logger.Logger

	mu         sync.Mutex
	pendingID  int64
	selectedID string
	lastError  string
	listeners  []ChangeListener
}

// NewSyncer creates the syncer and registers its frame handlers.
func NewSyncer(transport Transport, st *store.Store, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &Syncer{
		transport: transport,
		store:     st,
		log:       log.WithComponent("catalog"),
	}
	transport.Handle(protocol.OKFor(protocol.TypeCatalog), s.handleCatalog)
	transport.Handle(protocol.ErrorFor(protocol.TypeCatalog), s.handleCatalogError)
	transport.OnClose(s.handleClose)
	return s
}

// OnChange registers a catalog change listener.
func (s *Syncer) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns the current catalog view.
func (s *Syncer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SelectedID returns the selected pipeline id, empty when none.
func (s *Syncer) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Select marks a pipeline as selected. The pipeline must exist locally.
func (s *Syncer) Select(id string) error {
	s.mu.Lock()
	if id != "" && !s.store.Has(id) {
		s.mu.Unlock()
		return errors.NotFound("pipeline", id)
	}
	s.selectedID = id
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()
	notifyAll(listeners, snap)
	return nil
}

// Sync requests the full catalog from the server. At most one sync is
// pending; a second request is rejected without sending a frame.
func (s *Syncer) Sync() error {
	s.mu.Lock()
	if s.pendingID != 0 {
		s.mu.Unlock()
		return errors.SyncInProgress()
	}
	id, err := s.transport.Send(protocol.TypeCatalog, nil)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.pendingID = id
	s.lastError = ""
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	s.log.Info("catalog sync requested", logger.Fields("request_id", id))
	notifyAll(listeners, snap)
	return nil
}

// handleCatalog replaces the local pipeline set with the returned
// catalog and reconciles the selection against it.
func (s *Syncer) handleCatalog(frame *protocol.Frame) {
	s.mu.Lock()
	if s.pendingID == 0 || frame.RequestID != s.pendingID {
		s.mu.Unlock()
		return
	}
	var content catalogContent
	if err := frame.Decode(&content); err != nil {
		s.pendingID = 0
		s.lastError = "The server returned an unreadable catalog."
		snap, listeners := s.snapshotLocked(), s.listenersLocked()
		s.mu.Unlock()
		s.log.WithError(err).Warn("malformed catalog reply")
		notifyAll(listeners, snap)
		return
	}
	s.pendingID = 0

	if err := s.store.ReplaceAll(content.Pipelines); err != nil {
		s.lastError = "The synced catalog could not be persisted."
		snap, listeners := s.snapshotLocked(), s.listenersLocked()
		s.mu.Unlock()
		s.log.WithError(err).Error("persisting synced catalog")
		notifyAll(listeners, snap)
		return
	}

	if s.selectedID == "" || !s.store.Has(s.selectedID) {
		s.selectedID = ""
		if len(content.Pipelines) > 0 {
			s.selectedID = content.Pipelines[0].ID
		}
	}
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	s.log.Info("catalog synced", logger.Fields("count", snap.Count, "selected", snap.SelectedID))
	notifyAll(listeners, snap)
}

// handleCatalogError clears the pending sync and leaves the local set
// untouched.
func (s *Syncer) handleCatalogError(frame *protocol.Frame) {
	s.mu.Lock()
	if s.pendingID == 0 || frame.RequestID != s.pendingID {
		s.mu.Unlock()
		return
	}
	s.pendingID = 0
	s.lastError = frame.ErrorMessage()
	if s.lastError == "" {
		s.lastError = "The catalog sync failed."
	}
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()

	s.log.Warn("catalog sync failed", logger.Fields("error", snap.LastError))
	notifyAll(listeners, snap)
}

func (s *Syncer) handleClose(err error) {
	s.mu.Lock()
	if s.pendingID == 0 {
		s.mu.Unlock()
		return
	}
	s.pendingID = 0
	if err != nil {
		s.lastError = "Connection was lost during catalog sync."
	}
	snap, listeners := s.snapshotLocked(), s.listenersLocked()
	s.mu.Unlock()
	notifyAll(listeners, snap)
}

func (s *Syncer) snapshotLocked() Snapshot {
	return Snapshot{
		Pending:    s.pendingID != 0,
		SelectedID: s.selectedID,
		Count:      s.store.Len(),
		LastError:  s.lastError,
	}
}

func (s *Syncer) listenersLocked() []ChangeListener {
	return append([]ChangeListener(nil), s.listeners...)
}

func notifyAll(listeners []ChangeListener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
