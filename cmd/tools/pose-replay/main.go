// Command pose-replay runs a recorded landmark stream through the pose engine
// offline. The input is JSONL: one frame per line, each an object with
// "landmarks" (33 entries) or null landmarks for dropped frames. It prints the
// framing status per frame, validates each frame against the chosen exercise,
// and can write a PNG plot of the joint angle series.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/ptpal-data/ptpal/internal/config"
	"github.com/ptpal-data/ptpal/internal/pose"
	"github.com/ptpal-data/ptpal/internal/report"
)

type replayFrame struct {
	Timestamp string          `json:"timestamp,omitempty"`
	Landmarks []pose.Landmark `json:"landmarks"`
	Width     float64         `json:"width,omitempty"`
	Height    float64         `json:"height,omitempty"`
}

func main() {
	input := flag.String("i", "", "input JSONL recording (required)")
	exercise := flag.String("exercise", "", "exercise to validate each frame against (empty skips validation)")
	configPath := flag.String("config", "", "tuning config JSON (defaults apply when empty)")
	plotOut := flag.String("plot", "", "write a PNG of the joint angle series to this path")
	verbose := flag.Bool("v", false, "print per-frame results")
	flag.Parse()

	if *input == "" {
		log.Fatal("input recording is required (-i)")
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		if err := tuning.Validate(); err != nil {
			log.Fatalf("invalid tuning config: %v", err)
		}
	}
	engine := pose.NewEngine(tuning.Thresholds(), tuning.FramingConfig())
	state := engine.NewSession()

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open recording: %v", err)
	}
	defer f.Close()

	jointNames := []string{
		"shoulder_left", "shoulder_right",
		"elbow_left", "elbow_right",
		"hip_left", "hip_right",
		"knee_left", "knee_right",
	}
	series := make([]report.Series, len(jointNames))
	for i, name := range jointNames {
		series[i] = report.Series{Name: name}
	}

	var (
		frames   int
		statuses = map[pose.FramingStatus]int{}
		passes   int
		fails    int
	)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<22)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame replayFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			log.Fatalf("frame %d: invalid JSON: %v", frames+1, err)
		}
		frames++

		width, height := frame.Width, frame.Height
		if width <= 0 || height <= 0 {
			width, height = 1280, 720
		}

		framing, err := engine.CheckFraming(frame.Landmarks, width, height, state)
		if err != nil {
			log.Fatalf("frame %d: %v", frames, err)
		}
		statuses[framing.Status]++
		if *verbose {
			fmt.Printf("frame %4d: framing=%s reason=%q\n", frames, framing.Status, framing.Reason)
		}

		if frame.Landmarks == nil {
			for i := range series {
				series[i].Values = append(series[i].Values, math.NaN())
			}
			continue
		}

		pf, err := pose.NewPoseFrame(frame.Landmarks)
		if err != nil {
			log.Fatalf("frame %d: %v", frames, err)
		}
		angles := pose.JointAngles(pf)
		for i, name := range jointNames {
			v, ok := angles[name]
			if !ok {
				v = math.NaN()
			}
			series[i].Values = append(series[i].Values, v)
		}

		if *exercise != "" {
			result, err := engine.Validate(*exercise, frame.Landmarks, state)
			if err != nil {
				log.Fatalf("frame %d: %v", frames, err)
			}
			if result.Pass {
				passes++
			} else {
				fails++
			}
			if *verbose {
				fmt.Printf("frame %4d: score=%d pass=%v feedback=%v\n", frames, result.Score, result.Pass, result.Feedback)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("failed to read recording: %v", err)
	}
	if frames == 0 {
		log.Fatal("recording contains no frames")
	}

	fmt.Printf("replayed %d frames from %s\n", frames, *input)
	for _, status := range []pose.FramingStatus{pose.InFrame, pose.PartiallyOut, pose.OutOfFrame} {
		if n := statuses[status]; n > 0 {
			fmt.Printf("  %-15s %d\n", status, n)
		}
	}
	if *exercise != "" {
		fmt.Printf("  pass %d / fail %d (%s)\n", passes, fails, *exercise)
	}
	if sway := state.SwayPeakDeg(); sway > 0 {
		fmt.Printf("  peak sway %.2f\n", sway)
	}

	if *plotOut != "" {
		title := fmt.Sprintf("Joint angles: %s", *input)
		if err := report.SaveAnglePlot(title, series, *plotOut); err != nil {
			log.Fatalf("failed to write plot: %v", err)
		}
		log.Printf("✓ Created: %s", *plotOut)
	}
}
