package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ptpal-data/ptpal/internal/httputil"
	"github.com/ptpal-data/ptpal/internal/posedb"
)

// handleSessionChart renders a line chart (HTML) of a session's stored joint
// angles using go-echarts. This is a review tool for therapists, not part of
// the capture loop. Route: GET /sessions/{id}/chart.
func (s *Server) handleSessionChart(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		httputil.ServiceUnavailable(w, "persistence is not configured")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	sessionID, tail, _ := strings.Cut(rest, "/")
	if sessionID == "" || tail != "chart" {
		httputil.WriteJSONError(w, http.StatusNotFound, "not found")
		return
	}

	records, err := s.db.ExportSession(sessionID)
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load session angles: %v", err))
		return
	}
	if len(records) == 0 {
		httputil.WriteJSONError(w, http.StatusNotFound, "no angle data for session")
		return
	}

	// One series per joint. NULL angles become gaps in the line rather than
	// drops to zero.
	series := map[string]func(posedb.AngleRecord) *float64{
		"shoulder_left":  func(r posedb.AngleRecord) *float64 { return r.ShoulderLeft },
		"shoulder_right": func(r posedb.AngleRecord) *float64 { return r.ShoulderRight },
		"elbow_left":     func(r posedb.AngleRecord) *float64 { return r.ElbowLeft },
		"elbow_right":    func(r posedb.AngleRecord) *float64 { return r.ElbowRight },
		"hip_left":       func(r posedb.AngleRecord) *float64 { return r.HipLeft },
		"hip_right":      func(r posedb.AngleRecord) *float64 { return r.HipRight },
		"knee_left":      func(r posedb.AngleRecord) *float64 { return r.KneeLeft },
		"knee_right":     func(r posedb.AngleRecord) *float64 { return r.KneeRight },
	}
	order := []string{
		"shoulder_left", "shoulder_right",
		"elbow_left", "elbow_right",
		"hip_left", "hip_right",
		"knee_left", "knee_right",
	}

	x := make([]string, 0, len(records))
	for _, rec := range records {
		x = append(x, rec.Timestamp)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Session Joint Angles", Theme: "dark", Width: "1200px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Joint Angles", Subtitle: fmt.Sprintf("session=%s frames=%d", sessionID, len(records))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "degrees", Min: 0, Max: 180}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	line.SetXAxis(x)
	for _, name := range order {
		get := series[name]
		data := make([]opts.LineData, 0, len(records))
		for _, rec := range records {
			if v := get(rec); v != nil {
				data = append(data, opts.LineData{Value: *v})
			} else {
				data = append(data, opts.LineData{Value: nil})
			}
		}
		line.AddSeries(name, data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ConnectNulls: opts.Bool(false)}))
	}

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
