package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/ptpal-data/ptpal/internal/httputil"
	"github.com/ptpal-data/ptpal/internal/monitoring"
	"github.com/ptpal-data/ptpal/internal/pose"
)

// sessionRegistry owns one FramingState per active session. The lock guards
// only the map; frames within a session must still arrive in order, which the
// capture client guarantees by sending from a single loop.
type sessionRegistry struct {
	mu     sync.Mutex
	engine *pose.Engine
	states map[string]*pose.FramingState
}

func newSessionRegistry(engine *pose.Engine) *sessionRegistry {
	return &sessionRegistry{
		engine: engine,
		states: make(map[string]*pose.FramingState),
	}
}

// get returns the session's framing state, allocating a fresh one for
// sessions this process has not seen yet (e.g. after a restart).
func (r *sessionRegistry) get(sessionID string) *pose.FramingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[sessionID]
	if !ok {
		state = r.engine.NewSession()
		r.states[sessionID] = state
	}
	return state
}

// lookup returns the session's framing state or nil if the session is
// unknown. Used where history is optional.
func (r *sessionRegistry) lookup(sessionID string) *pose.FramingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[sessionID]
}

// drop discards a session's framing state.
func (r *sessionRegistry) drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
}

// handleSessions dispatches the /sessions/ subtree:
//
//	GET    /sessions/{id}/chart  joint angle chart
//	DELETE /sessions/{id}        end the session, discarding its framing state
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSessionChart(w, r)
	case http.MethodDelete:
		sessionID := strings.TrimPrefix(r.URL.Path, "/sessions/")
		if sessionID == "" || strings.Contains(sessionID, "/") {
			httputil.BadRequest(w, "session id is required")
			return
		}
		s.sessions.drop(sessionID)
		monitoring.Logf("session ended: %s", sessionID)
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
	default:
		httputil.MethodNotAllowed(w)
	}
}
