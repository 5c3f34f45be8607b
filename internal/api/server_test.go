package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ptpal-data/ptpal/internal/pose"
	"github.com/ptpal-data/ptpal/internal/posedb"
)

func testServer(t *testing.T) (*Server, *posedb.DB) {
	t.Helper()
	db, err := posedb.NewDB(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(pose.NewDefaultEngine(), db), db
}

// standingLandmarks returns a fully visible upright skeleton for request
// bodies.
func standingLandmarks() []pose.Landmark {
	lms := make([]pose.Landmark, pose.LandmarkCount)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: 0.95}
	}
	set := func(i int, x, y float64) { lms[i].X, lms[i].Y = x, y }
	set(pose.Nose, 0.50, 0.10)
	set(pose.LeftEar, 0.47, 0.10)
	set(pose.RightEar, 0.53, 0.10)
	set(pose.LeftShoulder, 0.42, 0.25)
	set(pose.RightShoulder, 0.58, 0.25)
	set(pose.LeftElbow, 0.40, 0.38)
	set(pose.RightElbow, 0.60, 0.38)
	set(pose.LeftWrist, 0.40, 0.50)
	set(pose.RightWrist, 0.60, 0.50)
	set(pose.LeftHip, 0.45, 0.52)
	set(pose.RightHip, 0.55, 0.52)
	set(pose.LeftKnee, 0.45, 0.70)
	set(pose.RightKnee, 0.55, 0.70)
	set(pose.LeftAnkle, 0.45, 0.88)
	set(pose.RightAnkle, 0.55, 0.88)
	set(pose.LeftHeel, 0.45, 0.92)
	set(pose.RightHeel, 0.55, 0.92)
	set(pose.LeftFootIndex, 0.47, 0.92)
	set(pose.RightFootIndex, 0.53, 0.92)
	return lms
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func getPath(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	w := getPath(s.ServeMux(), "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("status field = %q", resp["status"])
	}
}

func TestNewSession(t *testing.T) {
	s, db := testServer(t)
	w := postJSON(t, s.ServeMux(), "/new-session", map[string]any{})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	decode(t, w, &resp)
	if resp["session_id"] == "" {
		t.Fatal("no session_id in response")
	}

	// Method check.
	if w := getPath(s.ServeMux(), "/new-session"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /new-session = %d, want 405", w.Code)
	}
	_ = db
}

func TestValidateEndpoint(t *testing.T) {
	s, _ := testServer(t)
	mux := s.ServeMux()

	w := postJSON(t, mux, "/pose/validate", validateRequest{
		PoseType:  "squat",
		Landmarks: standingLandmarks(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status   string   `json:"status"`
		Pose     string   `json:"pose"`
		Score    int      `json:"score"`
		Pass     bool     `json:"pass"`
		Feedback []string `json:"feedback"`
	}
	decode(t, w, &resp)
	if resp.Status != "success" || resp.Pose != "partial_squat" {
		t.Errorf("got status=%q pose=%q", resp.Status, resp.Pose)
	}
	if resp.Pass {
		t.Error("standing frame passed a squat")
	}
	if len(resp.Feedback) == 0 || !strings.HasPrefix(resp.Feedback[0], "Go deeper") {
		t.Errorf("feedback = %q", resp.Feedback)
	}
}

func TestValidateEndpointErrors(t *testing.T) {
	s, _ := testServer(t)
	mux := s.ServeMux()

	// Unknown exercise.
	w := postJSON(t, mux, "/pose/validate", validateRequest{
		PoseType:  "cartwheel",
		Landmarks: standingLandmarks(),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown exercise status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "partial_squat") {
		t.Errorf("error body does not list exercises: %s", w.Body.String())
	}

	// Wrong landmark count.
	w = postJSON(t, mux, "/pose/validate", validateRequest{
		PoseType:  "squat",
		Landmarks: standingLandmarks()[:7],
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad landmarks status = %d, want 400", w.Code)
	}

	// Malformed JSON body.
	req := httptest.NewRequest(http.MethodPost, "/pose/validate", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rec.Code)
	}
}

func TestFramingEndpoint(t *testing.T) {
	s, _ := testServer(t)
	mux := s.ServeMux()

	// Missing session.
	w := postJSON(t, mux, "/pose/framing", framingRequest{Landmarks: standingLandmarks(), Width: 1280, Height: 720})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing session status = %d, want 400", w.Code)
	}

	// Bad dimensions.
	w = postJSON(t, mux, "/pose/framing", framingRequest{SessionID: "s1", Landmarks: standingLandmarks()})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero dimensions status = %d, want 400", w.Code)
	}

	// Good frame.
	w = postJSON(t, mux, "/pose/framing", framingRequest{SessionID: "s1", Landmarks: standingLandmarks(), Width: 1280, Height: 720})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var res pose.FramingResult
	decode(t, w, &res)
	if res.Status != pose.InFrame {
		t.Errorf("status = %s, want %s", res.Status, pose.InFrame)
	}

	// Ten no-pose frames in the same session flip it to OUT_OF_FRAME.
	for i := 0; i < 10; i++ {
		w = postJSON(t, mux, "/pose/framing", framingRequest{SessionID: "s1", Width: 1280, Height: 720})
		if w.Code != http.StatusOK {
			t.Fatalf("frame %d status = %d", i, w.Code)
		}
	}
	decode(t, w, &res)
	if res.Status != pose.OutOfFrame {
		t.Errorf("status after lost frames = %s, want %s", res.Status, pose.OutOfFrame)
	}

	// A different session is unaffected.
	w = postJSON(t, mux, "/pose/framing", framingRequest{SessionID: "s2", Landmarks: standingLandmarks(), Width: 1280, Height: 720})
	decode(t, w, &res)
	if res.Status != pose.InFrame {
		t.Errorf("session s2 status = %s; state leaked across sessions", res.Status)
	}
}

func TestPoseDataIngestAndExport(t *testing.T) {
	s, db := testServer(t)
	mux := s.ServeMux()

	w := postJSON(t, mux, "/pose-data", poseDataRequest{
		SessionID: "s1",
		Timestamp: "2026-08-24T10:00:00.000Z",
		Landmarks: standingLandmarks(),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("ingest status = %d: %s", w.Code, w.Body.String())
	}
	var ingest struct {
		Status string             `json:"status"`
		Angles map[string]float64 `json:"angles"`
	}
	decode(t, w, &ingest)
	if ingest.Angles["knee_left"] < 179 {
		t.Errorf("knee_left = %v, want ~180 for a standing frame", ingest.Angles["knee_left"])
	}

	n, err := db.AngleCountForSession("s1")
	if err != nil || n != 1 {
		t.Fatalf("angle records = %d (err %v), want 1", n, err)
	}

	// Retrieval endpoints.
	w = getPath(mux, "/angles/s1")
	if w.Code != http.StatusOK {
		t.Fatalf("angles status = %d", w.Code)
	}
	var anglesResp struct {
		Angles []posedb.AngleRecord `json:"angles"`
	}
	decode(t, w, &anglesResp)
	if len(anglesResp.Angles) != 1 {
		t.Fatalf("got %d angle records", len(anglesResp.Angles))
	}

	w = getPath(mux, "/export/s1")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	var export struct {
		SessionID    string `json:"session_id"`
		TotalRecords int    `json:"total_records"`
		AngleData    []struct {
			Timestamp   string             `json:"timestamp"`
			JointAngles map[string]float64 `json:"joint_angles"`
		} `json:"angle_data"`
	}
	decode(t, w, &export)
	if export.SessionID != "s1" || export.TotalRecords != 1 {
		t.Errorf("export = %+v", export)
	}
	if len(export.AngleData) != 1 || export.AngleData[0].JointAngles["knee_left"] < 179 {
		t.Errorf("export angle data = %+v", export.AngleData)
	}
}

func TestPoseDataRejectsBadFrames(t *testing.T) {
	s, _ := testServer(t)
	mux := s.ServeMux()

	w := postJSON(t, mux, "/pose-data", poseDataRequest{
		SessionID: "s1",
		Landmarks: standingLandmarks()[:3],
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad frame status = %d, want 400", w.Code)
	}

	w = postJSON(t, mux, "/pose-data", poseDataRequest{Landmarks: standingLandmarks()})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing session status = %d, want 400", w.Code)
	}
}

func TestSessionPathValidation(t *testing.T) {
	s, _ := testServer(t)
	mux := s.ServeMux()

	for _, path := range []string{"/angles/", "/export/", "/angles/a/b"} {
		if w := getPath(mux, path); w.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, w.Code)
		}
	}
}

func TestPersistenceEndpointsWithoutDB(t *testing.T) {
	s := NewServer(pose.NewDefaultEngine(), nil)
	mux := s.ServeMux()

	w := postJSON(t, mux, "/pose-data", poseDataRequest{SessionID: "s1", Landmarks: standingLandmarks()})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("pose-data without db = %d, want 503", w.Code)
	}
	if w := getPath(mux, "/angles/s1"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("angles without db = %d, want 503", w.Code)
	}

	// Engine endpoints still work.
	w = postJSON(t, mux, "/pose/validate", validateRequest{PoseType: "squat", Landmarks: standingLandmarks()})
	if w.Code != http.StatusOK {
		t.Errorf("validate without db = %d, want 200", w.Code)
	}
	w = postJSON(t, mux, "/new-session", map[string]any{})
	if w.Code != http.StatusOK {
		t.Errorf("new-session without db = %d, want 200", w.Code)
	}
}

func TestSessionChart(t *testing.T) {
	s, db := testServer(t)
	mux := s.ServeMux()

	if w := getPath(mux, "/sessions/s1/chart"); w.Code != http.StatusNotFound {
		t.Errorf("chart for empty session = %d, want 404", w.Code)
	}

	angles := map[string]float64{"knee_left": 170, "knee_right": 171}
	for i := 0; i < 3; i++ {
		ts := fmt.Sprintf("2026-08-24T10:00:0%d.000Z", i)
		if err := db.RecordAngles("s1", ts, angles); err != nil {
			t.Fatal(err)
		}
	}

	w := getPath(mux, "/sessions/s1/chart")
	if w.Code != http.StatusOK {
		t.Fatalf("chart status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q, want text/html", ct)
	}
	if !strings.Contains(w.Body.String(), "knee_left") {
		t.Error("chart HTML does not mention the plotted series")
	}

	if w := getPath(mux, "/sessions/s1/wrong"); w.Code != http.StatusNotFound {
		t.Errorf("bad chart path = %d, want 404", w.Code)
	}
}

func TestEndSession(t *testing.T) {
	s, _ := testServer(t)
	mux := s.ServeMux()

	// Accumulate lost frames, then end the session.
	for i := 0; i < 5; i++ {
		postJSON(t, mux, "/pose/framing", framingRequest{SessionID: "s1", Width: 1280, Height: 720})
	}
	if s.sessions.lookup("s1") == nil {
		t.Fatal("framing did not register the session")
	}

	req := httptest.NewRequest(http.MethodDelete, "/sessions/s1", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d: %s", w.Code, w.Body.String())
	}
	if s.sessions.lookup("s1") != nil {
		t.Error("framing state survived the session end")
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("DELETE without id = %d, want 400", w.Code)
	}
}
