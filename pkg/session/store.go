package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/execution"
	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
)

// DefaultSessionID is used when the caller does not supply a session
// identifier, e.g. a single-conversation stdio transport.
const DefaultSessionID = "default"

// Persistence is the durable-storage hook for conversation context. The
// store calls it on every context change; failures are logged, never fatal.
type Persistence interface {
	Save(sessionID string, snap Snapshot) error
	Load(sessionID string) (Snapshot, bool, error)
}

// Session bundles the per-conversation state: the identifier context and the
// scenario execution tracker. Both live and die with the session.
type Session struct {
	ID      string
	Context *Context
	Tracker *execution.Tracker
}

// Store hands out one Session per session ID. Idle sessions expire after the
// configured TTL; each session's state is only ever touched by one in-flight
// operation at a time because the orchestrator serializes tool calls within
// a conversation turn.
type Store struct {
	log      logrus.FieldLogger
	sessions *gocache.Cache
	persist  Persistence
}

// NewStore creates a session store. ttl bounds how long an idle session's
// state is kept; persist may be nil to disable durable context snapshots.
func NewStore(log logrus.FieldLogger, ttl time.Duration, persist Persistence) *Store {
	s := &Store{
		log:      log.WithField("component", "session_store"),
		sessions: gocache.New(ttl, ttl/2),
		persist:  persist,
	}

	s.sessions.OnEvicted(func(sessionID string, _ any) {
		observability.ActiveSessions.Set(float64(s.sessions.ItemCount()))
		s.log.WithField("session_id", sessionID).Debug("Session expired")
	})

	return s
}

// Get returns the session for the given ID, creating it on first use. An
// empty ID maps to the default session.
func (s *Store) Get(sessionID string) *Session {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	if v, ok := s.sessions.Get(sessionID); ok {
		return v.(*Session)
	}

	sess := &Session{
		ID:      sessionID,
		Context: NewContext(s.log),
		Tracker: execution.NewTracker(s.log),
	}

	if s.persist != nil {
		if snap, ok, err := s.persist.Load(sessionID); err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).
				Warn("Failed to load persisted conversation context")
		} else if ok {
			sess.Context.Restore(snap)
			s.log.WithField("session_id", sessionID).Info("Restored conversation context")
		}
	}

	s.sessions.SetDefault(sessionID, sess)
	observability.ActiveSessions.Set(float64(s.sessions.ItemCount()))
	s.log.WithField("session_id", sessionID).Debug("Session created")

	return sess
}

// Save pushes a session's context snapshot through the persistence hook.
func (s *Store) Save(sess *Session) {
	if s.persist == nil {
		return
	}

	if err := s.persist.Save(sess.ID, sess.Context.Snapshot()); err != nil {
		s.log.WithError(err).WithField("session_id", sess.ID).
			Warn("Failed to persist conversation context")
	}
}

// Reset clears a session's context and tracker and persists the empty state.
func (s *Store) Reset(sessionID string) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	v, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}

	sess := v.(*Session)
	sess.Context.Clear()
	sess.Tracker.Clear()
	s.Save(sess)
	s.log.WithField("session_id", sessionID).Info("Session reset")
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return s.sessions.ItemCount()
}
