// Package pose implements the PT Pal pose quality and framing engine: joint
// geometry over BlazePose landmark frames, a debounced camera-framing state
// machine, and per-exercise rule evaluation with scoring and feedback.
//
// The engine is a pure function of its inputs plus an explicit per-session
// FramingState. It performs no I/O and keeps no global state; persistence and
// transport live outside this package.
package pose

import (
	"fmt"
	"math"
)

// LandmarkCount is the fixed number of landmarks in a BlazePose skeleton.
const LandmarkCount = 33

// BlazePose landmark indices. Only the subset the engine reads is named;
// the layout is fixed by the upstream model and must not be reordered.
const (
	Nose           = 0
	LeftEar        = 7
	RightEar       = 8
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
)

// Landmark is a single body keypoint in normalised [0,1] image space with a
// relative depth and a model-reported visibility confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseFrame is one validated skeleton: exactly LandmarkCount landmarks in
// model index order. Frames are treated as immutable once constructed.
type PoseFrame [LandmarkCount]Landmark

// MalformedLandmarksError reports a frame rejected by NewPoseFrame before any
// computation. Field and Index identify the violated constraint; Index is -1
// when the problem is the landmark count itself.
type MalformedLandmarksError struct {
	Index int
	Field string
	Value float64
	Count int
}

func (e *MalformedLandmarksError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed landmarks: got %d landmarks, want %d", e.Count, LandmarkCount)
	}
	return fmt.Sprintf("malformed landmarks: landmark %d has invalid %s %v", e.Index, e.Field, e.Value)
}

// NewPoseFrame validates a candidate landmark slice and returns it as a
// PoseFrame. It fails on anything other than exactly 33 landmarks with finite
// coordinates and visibility in [0,1]; it never pads or drops landmarks.
func NewPoseFrame(landmarks []Landmark) (*PoseFrame, error) {
	if len(landmarks) != LandmarkCount {
		return nil, &MalformedLandmarksError{Index: -1, Count: len(landmarks)}
	}
	var frame PoseFrame
	for i, lm := range landmarks {
		switch {
		case !isFinite(lm.X):
			return nil, &MalformedLandmarksError{Index: i, Field: "x", Value: lm.X}
		case !isFinite(lm.Y):
			return nil, &MalformedLandmarksError{Index: i, Field: "y", Value: lm.Y}
		case !isFinite(lm.Z):
			return nil, &MalformedLandmarksError{Index: i, Field: "z", Value: lm.Z}
		case !isFinite(lm.Visibility) || lm.Visibility < 0 || lm.Visibility > 1:
			return nil, &MalformedLandmarksError{Index: i, Field: "visibility", Value: lm.Visibility}
		}
		frame[i] = lm
	}
	return &frame, nil
}

// Mirror returns a copy of the frame reflected about the vertical image axis,
// with left/right landmark pairs swapped so anatomical sides stay labelled
// correctly. Used by symmetry tests.
func (f *PoseFrame) Mirror() *PoseFrame {
	var m PoseFrame
	for i, lm := range f {
		lm.X = 1 - lm.X
		m[mirrorIndex(i)] = lm
	}
	return &m
}

// mirrorIndex maps a BlazePose index to its opposite-side counterpart.
// Midline landmarks (nose) map to themselves. The model lays out pairs as
// consecutive (left, right) indices except for the face ring, where left
// occupies 1..3 and right 4..6.
func mirrorIndex(i int) int {
	switch {
	case i == Nose:
		return i
	case i >= 1 && i <= 3:
		return i + 3
	case i >= 4 && i <= 6:
		return i - 3
	case i%2 == 1: // odd = left from ear (7) onward
		return i + 1
	default:
		return i - 1
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
