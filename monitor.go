package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ptpal-data/ptpal/internal/posedb"
)

const monitorPageFmt = `<!DOCTYPE html>
<html>
<head>
	<title>PT Pal Live Data</title>
	<meta http-equiv="refresh" content="3">
	<style>
		body { font-family: monospace; margin: 20px; white-space: pre-line; background: #f0f0f0; }
	</style>
</head>
<body>
%s</body>
</html>
`

// liveMonitorHandler renders the therapist-facing monitor page: the most
// recent session's joint angles, newest first, auto-refreshing every 3
// seconds. It tracks only the current session, so the page clears itself when
// a new session starts.
func liveMonitorHandler(db *posedb.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		var body strings.Builder
		body.WriteString("PT Pal Live Data Monitor\nUpdates every 3 seconds\n")

		if db == nil {
			body.WriteString("Persistence is disabled; no session data to display.\n")
			writeMonitorPage(w, body.String())
			return
		}

		sessionID, err := db.CurrentSession()
		if err != nil {
			http.Error(w, fmt.Sprintf("Error loading data: %v", err), http.StatusInternalServerError)
			return
		}
		if sessionID == "" {
			body.WriteString("Session ID: No active session\nCurrent Session Records: 0\n")
			body.WriteString(strings.Repeat("=", 60) + "\n\n")
			body.WriteString("No data available. Start the camera to begin a new session.\n")
			writeMonitorPage(w, body.String())
			return
		}

		count, err := db.AngleCountForSession(sessionID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error loading data: %v", err), http.StatusInternalServerError)
			return
		}
		records, err := db.AnglesForSession(sessionID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error loading data: %v", err), http.StatusInternalServerError)
			return
		}

		fmt.Fprintf(&body, "Session ID: %s\nCurrent Session Records: %d\n", sessionID, count)
		body.WriteString(strings.Repeat("=", 60) + "\n\n")

		for _, rec := range records {
			fmt.Fprintf(&body, "[%s]\n", monitorTime(rec.Timestamp))
			fmt.Fprintf(&body, "  Shoulders: Left %s, Right %s\n", deg(rec.ShoulderLeft), deg(rec.ShoulderRight))
			fmt.Fprintf(&body, "  Elbows:    Left %s, Right %s\n", deg(rec.ElbowLeft), deg(rec.ElbowRight))
			fmt.Fprintf(&body, "  Hips:      Left %s, Right %s\n", deg(rec.HipLeft), deg(rec.HipRight))
			fmt.Fprintf(&body, "  Knees:     Left %s, Right %s\n\n", deg(rec.KneeLeft), deg(rec.KneeRight))
		}

		writeMonitorPage(w, body.String())
	}
}

func writeMonitorPage(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, monitorPageFmt, body)
}

// deg formats an optional angle; joints hidden from the camera show as "n/a".
func deg(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f°", *v)
}

// monitorTime reformats a stored timestamp for display in local time. Raw
// value passes through if it does not parse.
func monitorTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
