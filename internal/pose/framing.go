package pose

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FramingStatus classifies whether the subject is usably inside the camera
// frame.
type FramingStatus string

const (
	InFrame      FramingStatus = "IN_FRAME"
	PartiallyOut FramingStatus = "PARTIALLY_OUT"
	OutOfFrame   FramingStatus = "OUT_OF_FRAME"
)

// Sides of the canvas, in counter order.
const (
	sideLeft = iota
	sideRight
	sideTop
	sideBottom
	sideCount
)

var sideNames = [sideCount]string{"left", "right", "top", "bottom"}

// FramingConfig holds the tuning for the framing state machine.
type FramingConfig struct {
	LostFramesLimit  int     // consecutive no-pose frames before OUT_OF_FRAME
	MinKeyLandmarks  int     // visible key landmarks required to classify at all
	PartialFrames    int     // frames of sustained crossing before a side counts
	EdgeMarginFrac   float64 // safety margin from each canvas edge, as a fraction of that dimension
	VisibilityRatio  float64 // minimum clipped/unclipped bounding box area ratio
	KeyVisibility    float64 // visibility cutoff for key landmarks
	CenterHistoryLen int     // ring buffer capacity for recent body centers
}

// DefaultFramingConfig returns the default framing tuning.
func DefaultFramingConfig() FramingConfig {
	return FramingConfig{
		LostFramesLimit:  10,
		MinKeyLandmarks:  8,
		PartialFrames:    2,
		EdgeMarginFrac:   0.05,
		VisibilityRatio:  0.85,
		KeyVisibility:    0.5,
		CenterHistoryLen: 30,
	}
}

// keyLandmarks are the indices the framing machine cares about: head,
// shoulders, hips, knees, ankles.
var keyLandmarks = []int{
	Nose, LeftEar, RightEar,
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

var lowerBodyLandmarks = []int{LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle}

// centerSample is one entry in the recent-centers ring buffer.
type centerSample struct {
	x, y  float64
	torso float64 // mid-shoulder to mid-hip distance, normalised units
}

// FramingState carries the hysteresis counters for one camera/video session.
// It must never be shared across sessions; create one per stream with
// NewFramingState and feed it frames in arrival order.
type FramingState struct {
	cfg        FramingConfig
	status     FramingStatus
	lostFrames int
	sideCounts [sideCount]int

	centers    []centerSample // ring buffer, newest at centersPos-1
	centersPos int
	centersLen int
}

// NewFramingState returns a fresh session state in the IN_FRAME status.
func NewFramingState(cfg FramingConfig) *FramingState {
	return &FramingState{
		cfg:     cfg,
		status:  InFrame,
		centers: make([]centerSample, cfg.CenterHistoryLen),
	}
}

// Reset returns the state to its initial counters, as on stream stop/start.
func (s *FramingState) Reset() {
	s.status = InFrame
	s.lostFrames = 0
	s.sideCounts = [sideCount]int{}
	s.centersPos = 0
	s.centersLen = 0
}

// Status returns the current classification without advancing the machine.
func (s *FramingState) Status() FramingStatus { return s.status }

// FramingResult is the per-frame output of the state machine.
type FramingResult struct {
	Status FramingStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Advance feeds one frame into the state machine and returns the resulting
// classification. A nil frame means "no pose detected". Width and height are
// the canvas dimensions in pixels; landmarks are normalised to them.
//
// The machine is debounced: a single anomalous frame never flips the status.
// No-pose frames only reach OUT_OF_FRAME after LostFramesLimit in a row, and
// edge crossings charge a per-side counter by 2 per crossed frame while
// clearing at 1 per clean frame, so a crossing is detected quickly but clears
// slowly.
func (s *FramingState) Advance(f *PoseFrame, width, height float64) FramingResult {
	if f == nil {
		s.lostFrames++
		if s.lostFrames >= s.cfg.LostFramesLimit {
			s.status = OutOfFrame
			return FramingResult{Status: s.status, Reason: "no pose detected"}
		}
		// Keep the prior classification; one missed frame is noise.
		return FramingResult{Status: s.status}
	}
	s.lostFrames = 0

	visible := 0
	for _, i := range keyLandmarks {
		if f[i].Visibility >= s.cfg.KeyVisibility {
			visible++
		}
	}
	if visible < s.cfg.MinKeyLandmarks {
		s.status = PartiallyOut
		return FramingResult{Status: s.status, Reason: s.missingReason(f)}
	}

	box, _ := Bounds(f, keyLandmarks, s.cfg.KeyVisibility)
	s.pushCenter(f, box)

	// Per-side margin crossings in pixel space, asymmetric debounce.
	marginX := s.cfg.EdgeMarginFrac * width
	marginY := s.cfg.EdgeMarginFrac * height
	crossed := [sideCount]bool{
		sideLeft:   box.MinX*width < marginX,
		sideRight:  box.MaxX*width > width-marginX,
		sideTop:    box.MinY*height < marginY,
		sideBottom: box.MaxY*height > height-marginY,
	}
	for side := 0; side < sideCount; side++ {
		if crossed[side] {
			s.sideCounts[side] += 2
		} else if s.sideCounts[side] > 0 {
			s.sideCounts[side]--
		}
	}

	trigger := s.cfg.PartialFrames * 2
	for side := 0; side < sideCount; side++ {
		if s.sideCounts[side] >= trigger {
			s.status = PartiallyOut
			return FramingResult{Status: s.status, Reason: "body crossing " + sideNames[side] + " edge"}
		}
	}

	if ratio := visibleAreaRatio(box, width, height); ratio < s.cfg.VisibilityRatio {
		s.status = PartiallyOut
		return FramingResult{Status: s.status, Reason: "body partially outside the frame"}
	}

	s.status = InFrame
	return FramingResult{Status: s.status}
}

// missingReason names what is missing when too few key landmarks are visible.
// Lower-body landmarks take priority over upper-body ones so the user is told
// to step back before being told to adjust the camera.
func (s *FramingState) missingReason(f *PoseFrame) string {
	lowerMissing := 0
	for _, i := range lowerBodyLandmarks {
		if f[i].Visibility < s.cfg.KeyVisibility {
			lowerMissing++
		}
	}
	if lowerMissing > 0 {
		return "lower body not visible"
	}
	return "upper body not visible"
}

// visibleAreaRatio returns the area of the bounding box clipped to the canvas
// divided by its unclipped area, in pixel space. 1.0 when fully inside.
func visibleAreaRatio(box FrameBounds, width, height float64) float64 {
	minX, maxX := box.MinX*width, box.MaxX*width
	minY, maxY := box.MinY*height, box.MaxY*height
	area := (maxX - minX) * (maxY - minY)
	if area <= 0 {
		return 1
	}
	cw := math.Min(maxX, width) - math.Max(minX, 0)
	ch := math.Min(maxY, height) - math.Max(minY, 0)
	if cw < 0 {
		cw = 0
	}
	if ch < 0 {
		ch = 0
	}
	return cw * ch / area
}

func (s *FramingState) pushCenter(f *PoseFrame, box FrameBounds) {
	if len(s.centers) == 0 {
		return
	}
	midShoulderX := (f[LeftShoulder].X + f[RightShoulder].X) / 2
	midShoulderY := (f[LeftShoulder].Y + f[RightShoulder].Y) / 2
	midHipX := (f[LeftHip].X + f[RightHip].X) / 2
	midHipY := (f[LeftHip].Y + f[RightHip].Y) / 2
	s.centers[s.centersPos] = centerSample{
		x:     box.CenterX(),
		y:     box.CenterY(),
		torso: math.Hypot(midShoulderX-midHipX, midShoulderY-midHipY),
	}
	s.centersPos = (s.centersPos + 1) % len(s.centers)
	if s.centersLen < len(s.centers) {
		s.centersLen++
	}
}

// SwayPeakDeg estimates peak-to-peak horizontal body sway over the recent
// center history, expressed as an angle about the base of support. It needs a
// few frames of history; with fewer than two samples it returns 0, matching
// the single-frame contract for temporal metrics.
func (s *FramingState) SwayPeakDeg() float64 {
	if s.centersLen < 2 {
		return 0
	}
	xs := make([]float64, 0, s.centersLen)
	torsos := make([]float64, 0, s.centersLen)
	for i := 0; i < s.centersLen; i++ {
		c := s.centers[i]
		xs = append(xs, c.x)
		torsos = append(torsos, c.torso)
	}
	torso := stat.Mean(torsos, nil)
	if torso <= 0 {
		return 0
	}
	p2p := floats.Max(xs) - floats.Min(xs)
	return math.Atan2(p2p, torso) * 180 / math.Pi
}
