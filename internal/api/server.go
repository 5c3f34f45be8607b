// Package api exposes the pose engine and pose database over HTTP+JSON. The
// transport is deliberately thin: every handler validates input, calls the
// engine or database, and encodes the structured result. The engine never
// sees HTTP types.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ptpal-data/ptpal/internal/httputil"
	"github.com/ptpal-data/ptpal/internal/monitoring"
	"github.com/ptpal-data/ptpal/internal/pose"
	"github.com/ptpal-data/ptpal/internal/posedb"
	"github.com/ptpal-data/ptpal/internal/version"
)

// Server wires the engine, per-session framing states and the database
// behind an http.ServeMux.
type Server struct {
	db       *posedb.DB
	engine   *pose.Engine
	sessions *sessionRegistry
}

// NewServer creates an API server. db may be nil in engine-only deployments;
// endpoints that need persistence then answer 503.
func NewServer(engine *pose.Engine, db *posedb.DB) *Server {
	return &Server{
		db:       db,
		engine:   engine,
		sessions: newSessionRegistry(engine),
	}
}

// ServeMux returns the route table. Mounted by the caller, typically under
// /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/pose/validate", s.handleValidate)
	mux.HandleFunc("/pose/framing", s.handleFraming)
	mux.HandleFunc("/pose-data", s.handlePoseData)
	mux.HandleFunc("/angles/", s.handleAngles)
	mux.HandleFunc("/export/", s.handleExport)
	mux.HandleFunc("/sessions/", s.handleSessions)
	mux.HandleFunc("/new-session", s.handleNewSession)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// validateRequest is the body of POST /pose/validate.
type validateRequest struct {
	PoseType  string          `json:"pose_type"`
	Landmarks []pose.Landmark `json:"landmarks"`
	SessionID string          `json:"session_id,omitempty"`
}

// validateResponse wraps a ValidationResult in the transport envelope.
type validateResponse struct {
	Status string `json:"status"`
	pose.ValidationResult
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	var state *pose.FramingState
	if req.SessionID != "" {
		state = s.sessions.lookup(req.SessionID)
	}

	result, err := s.engine.Validate(req.PoseType, req.Landmarks, state)
	if err != nil {
		// Engine errors are client errors: bad landmarks or an unknown
		// exercise. Both carry their detail in the message.
		httputil.BadRequest(w, err.Error())
		return
	}

	if s.db != nil && req.SessionID != "" {
		ts := posedb.Timestamp(time.Now())
		if err := s.db.RecordValidation(req.SessionID, ts, result); err != nil {
			monitoring.Logf("failed to record validation: %v", err)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, validateResponse{Status: "success", ValidationResult: result})
}

// framingRequest is the body of POST /pose/framing. Landmarks is null when
// no pose was detected this frame.
type framingRequest struct {
	SessionID string          `json:"session_id"`
	Landmarks []pose.Landmark `json:"landmarks"`
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
}

func (s *Server) handleFraming(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req framingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		httputil.BadRequest(w, "session_id is required")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		httputil.BadRequest(w, "width and height must be positive")
		return
	}

	state := s.sessions.get(req.SessionID)
	result, err := s.engine.CheckFraming(req.Landmarks, req.Width, req.Height, state)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// poseDataRequest is the raw ingest body. Field names keep the camelCase of
// the capture client.
type poseDataRequest struct {
	SessionID      string          `json:"sessionId"`
	Timestamp      string          `json:"timestamp"`
	Landmarks      []pose.Landmark `json:"landmarks"`
	WorldLandmarks []pose.Landmark `json:"worldLandmarks,omitempty"`
}

// handlePoseData ingests one raw frame: stores the landmarks, computes the
// standard joint set and stores that too.
func (s *Server) handlePoseData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "persistence is not configured")
		return
	}
	var req poseDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		httputil.BadRequest(w, "sessionId is required")
		return
	}
	if req.Timestamp == "" {
		req.Timestamp = posedb.Timestamp(time.Now())
	}

	frame, err := pose.NewPoseFrame(req.Landmarks)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if err := s.db.RecordPoseFrame(req.SessionID, req.Timestamp, req.Landmarks, req.WorldLandmarks); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to record pose data: %v", err))
		return
	}

	angles := pose.JointAngles(frame)
	if err := s.db.RecordAngles(req.SessionID, req.Timestamp, angles); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to record angles: %v", err))
		return
	}

	// Undefined angles are omitted from the response the same way they are
	// NULL in the database.
	defined := make(map[string]float64, len(angles))
	for k, v := range angles {
		if pose.IsDefined(v) {
			defined[k] = v
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "angles": defined})
}

func (s *Server) handleAngles(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionPathValue(w, r, "/angles/")
	if !ok {
		return
	}
	records, err := s.db.AnglesForSession(sessionID)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to retrieve angles: %v", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"angles": records})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionPathValue(w, r, "/export/")
	if !ok {
		return
	}
	records, err := s.db.ExportSession(sessionID)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to export session: %v", err))
		return
	}

	type exportRecord struct {
		Timestamp   string                 `json:"timestamp"`
		JointAngles map[string]interface{} `json:"joint_angles"`
	}
	out := make([]exportRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, exportRecord{
			Timestamp: rec.Timestamp,
			JointAngles: map[string]interface{}{
				"shoulder_left":  rec.ShoulderLeft,
				"shoulder_right": rec.ShoulderRight,
				"elbow_left":     rec.ElbowLeft,
				"elbow_right":    rec.ElbowRight,
				"hip_left":       rec.HipLeft,
				"hip_right":      rec.HipRight,
				"knee_left":      rec.KneeLeft,
				"knee_right":     rec.KneeRight,
			},
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id":    sessionID,
		"total_records": len(out),
		"angle_data":    out,
	})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	sessionID := uuid.NewString()
	if s.db != nil {
		if err := s.db.CreateSession(sessionID); err != nil {
			httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create session: %v", err))
			return
		}
	}
	s.sessions.get(sessionID) // allocate fresh framing state
	monitoring.Logf("new session started: %s", sessionID)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "session_id": sessionID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"message": "ptpal backend is running",
		"version": version.Version,
	})
}

// sessionPathValue extracts the trailing session id from a GET route and
// performs the shared method/persistence checks.
func (s *Server) sessionPathValue(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return "", false
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "persistence is not configured")
		return "", false
	}
	sessionID := strings.TrimPrefix(r.URL.Path, prefix)
	if sessionID == "" || strings.Contains(sessionID, "/") {
		httputil.BadRequest(w, "session id is required")
		return "", false
	}
	return sessionID, true
}
