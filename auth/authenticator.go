package auth

import (
	"sync"

	"github.com/kbukum/zofia/errors"
	"github.com/kbukum/zofia/logger"
	"github.com/kbukum/zofia/protocol"
)

// Transport is the slice of the protocol client the authenticator needs.
type Transport interface {
	Send(typeCode int, body any) (int64, error)
	Handle(typeCode int, h protocol.Handler)
	OnClose(l protocol.CloseListener)
}

// Snapshot is the immutable view handed to change listeners.
type Snapshot struct {
	Pending       bool
	Authenticated bool
	Username      string
	LastError     string
	Profile       *Profile
}

// ChangeListener receives a snapshot after every auth change.
type ChangeListener func(snapshot Snapshot)

// credentials is the login request body.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Profile is the user record served for a user-data request.
type Profile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Roles     []string       `json:"roles"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"metadata"`
	LastLogin string         `json:"lastLogin"`
}

// userDataRequest is the user-data request body.
type userDataRequest struct {
	UserID string `json:"userId"`
}

// userDataReply is the user-data success reply body.
type userDataReply struct {
	User Profile `json:"user"`
}

// Authenticator owns the login session state for one connection.
type Authenticator struct {
	transport Transport
	log       *logger.Logger

	mu               sync.Mutex
	pendingID        int64
	profilePendingID int64
	username         string
	authenticated    bool
	profile          *Profile
	lastError        string
	listeners        []ChangeListener
}

// NewAuthenticator creates the authenticator and registers its frame
// handlers.
func NewAuthenticator(transport Transport, log *logger.Logger) *Authenticator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	a := &Authenticator{
		transport: transport,
		log:       log.WithComponent("auth"),
	}
	transport.Handle(protocol.OKFor(protocol.TypeLogin), a.handleLoginOK)
	transport.Handle(protocol.ErrorFor(protocol.TypeLogin), a.handleLoginError)
	transport.Handle(protocol.OKFor(protocol.TypeUserData), a.handleProfileOK)
	transport.Handle(protocol.ErrorFor(protocol.TypeUserData), a.handleProfileError)
	transport.OnClose(a.handleClose)
	return a
}

// OnChange registers an auth change listener.
func (a *Authenticator) OnChange(l ChangeListener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Snapshot returns the current auth view.
func (a *Authenticator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Authenticated reports whether the server accepted a login on the
// current connection.
func (a *Authenticator) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authenticated
}

// Login sends the credentials. At most one login is pending; a second
// request is rejected without sending a frame.
func (a *Authenticator) Login(username, password string) error {
	a.mu.Lock()
	if a.pendingID != 0 {
		a.mu.Unlock()
		return errors.LoginInProgress()
	}
	id, err := a.transport.Send(protocol.TypeLogin, credentials{Username: username, Password: password})
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.pendingID = id
	a.username = username
	a.lastError = ""
	snap, listeners := a.snapshotLocked(), a.listenersLocked()
	a.mu.Unlock()

	a.log.Info("login requested", logger.Fields("username", username, "request_id", id))
	notifyAll(listeners, snap)
	return nil
}

// FetchProfile asks the server for the user record. With an empty id
// the logged-in username is used. At most one fetch is pending.
func (a *Authenticator) FetchProfile(userID string) error {
	a.mu.Lock()
	if a.profilePendingID != 0 {
		a.mu.Unlock()
		return errors.FetchInProgress()
	}
	if userID == "" {
		userID = a.username
	}
	if userID == "" {
		a.mu.Unlock()
		return errors.Validation("No user to fetch a profile for.")
	}
	id, err := a.transport.Send(protocol.TypeUserData, userDataRequest{UserID: userID})
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.profilePendingID = id
	a.mu.Unlock()

	a.log.Info("profile requested", logger.Fields("user_id", userID, "request_id", id))
	return nil
}

// Profile returns the last fetched user record, or nil.
func (a *Authenticator) Profile() *Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneProfile(a.profile)
}

func (a *Authenticator) handleLoginOK(frame *protocol.Frame) {
	a.mu.Lock()
	if a.pendingID == 0 || frame.RequestID != a.pendingID {
		a.mu.Unlock()
		return
	}
	a.pendingID = 0
	a.authenticated = true
	snap, listeners := a.snapshotLocked(), a.listenersLocked()
	a.mu.Unlock()

	a.log.Info("login accepted", logger.Fields("username", snap.Username))
	notifyAll(listeners, snap)
}

func (a *Authenticator) handleLoginError(frame *protocol.Frame) {
	a.mu.Lock()
	if a.pendingID == 0 || frame.RequestID != a.pendingID {
		a.mu.Unlock()
		return
	}
	a.pendingID = 0
	a.authenticated = false
	a.lastError = frame.ErrorMessage()
	if a.lastError == "" {
		a.lastError = "The server rejected the login."
	}
	snap, listeners := a.snapshotLocked(), a.listenersLocked()
	a.mu.Unlock()

	a.log.Warn("login rejected", logger.Fields("error", snap.LastError))
	notifyAll(listeners, snap)
}

func (a *Authenticator) handleProfileOK(frame *protocol.Frame) {
	a.mu.Lock()
	if a.profilePendingID == 0 || frame.RequestID != a.profilePendingID {
		a.mu.Unlock()
		return
	}
	a.profilePendingID = 0
	var reply userDataReply
	if err := frame.Decode(&reply); err != nil {
		a.mu.Unlock()
		a.log.WithError(err).Warn("malformed profile reply")
		return
	}
	a.profile = &reply.User
	snap, listeners := a.snapshotLocked(), a.listenersLocked()
	a.mu.Unlock()

	a.log.Info("profile received", logger.Fields("user_id", reply.User.ID))
	notifyAll(listeners, snap)
}

func (a *Authenticator) handleProfileError(frame *protocol.Frame) {
	a.mu.Lock()
	if a.profilePendingID == 0 || frame.RequestID != a.profilePendingID {
		a.mu.Unlock()
		return
	}
	a.profilePendingID = 0
	a.lastError = frame.ErrorMessage()
	if a.lastError == "" {
		a.lastError = "The server rejected the profile request."
	}
	snap, listeners := a.snapshotLocked(), a.listenersLocked()
	a.mu.Unlock()

	a.log.Warn("profile request rejected", logger.Fields("error", snap.LastError))
	notifyAll(listeners, snap)
}

// handleClose clears the pending requests, the authenticated flag and
// the fetched profile; none of them outlive the connection.
func (a *Authenticator) handleClose(_ error) {
	a.mu.Lock()
	if a.pendingID == 0 && a.profilePendingID == 0 && !a.authenticated && a.profile == nil {
		a.mu.Unlock()
		return
	}
	a.pendingID = 0
	a.profilePendingID = 0
	a.authenticated = false
	a.profile = nil
	snap, listeners := a.snapshotLocked(), a.listenersLocked()
	a.mu.Unlock()
	notifyAll(listeners, snap)
}

func (a *Authenticator) snapshotLocked() Snapshot {
	return Snapshot{
		Pending:       a.pendingID != 0,
		Authenticated: a.authenticated,
		Username:      a.username,
		LastError:     a.lastError,
		Profile:       cloneProfile(a.profile),
	}
}

func cloneProfile(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Roles = append([]string(nil), p.Roles...)
	if p.Metadata != nil {
		c.Metadata = make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func (a *Authenticator) listenersLocked() []ChangeListener {
	return append([]ChangeListener(nil), a.listeners...)
}

func notifyAll(listeners []ChangeListener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
