package pose

import (
	"math"
	"testing"
)

// standingLandmarks returns a well-formed, fully visible skeleton standing
// upright in the middle of the frame: legs vertical, arms at the sides, feet
// flat. Left-side landmarks sit at smaller x.
func standingLandmarks() []Landmark {
	lm := func(x, y float64) Landmark {
		return Landmark{X: x, Y: y, Visibility: 0.95}
	}
	return []Landmark{
		0:  lm(0.50, 0.10), // nose
		1:  lm(0.490, 0.09),
		2:  lm(0.485, 0.09),
		3:  lm(0.480, 0.09),
		4:  lm(0.510, 0.09),
		5:  lm(0.515, 0.09),
		6:  lm(0.520, 0.09),
		7:  lm(0.47, 0.10), // ears
		8:  lm(0.53, 0.10),
		9:  lm(0.49, 0.12),
		10: lm(0.51, 0.12),
		11: lm(0.42, 0.25), // shoulders
		12: lm(0.58, 0.25),
		13: lm(0.40, 0.38), // elbows
		14: lm(0.60, 0.38),
		15: lm(0.40, 0.50), // wrists
		16: lm(0.60, 0.50),
		17: lm(0.40, 0.53),
		18: lm(0.60, 0.53),
		19: lm(0.39, 0.53),
		20: lm(0.61, 0.53),
		21: lm(0.41, 0.52),
		22: lm(0.59, 0.52),
		23: lm(0.45, 0.52), // hips
		24: lm(0.55, 0.52),
		25: lm(0.45, 0.70), // knees
		26: lm(0.55, 0.70),
		27: lm(0.45, 0.88), // ankles
		28: lm(0.55, 0.88),
		29: lm(0.45, 0.92), // heels
		30: lm(0.55, 0.92),
		31: lm(0.47, 0.92), // foot indices
		32: lm(0.53, 0.92),
	}
}

// squatLandmarks returns a skeleton mid partial squat with acceptable form:
// roughly 49° of knee flexion, knees within the valgus margin, heels down,
// trunk upright.
func squatLandmarks() []Landmark {
	lms := standingLandmarks()
	set := func(i int, x, y float64) {
		lms[i].X, lms[i].Y = x, y
	}
	set(LeftShoulder, 0.42, 0.45)
	set(RightShoulder, 0.58, 0.45)
	set(LeftElbow, 0.40, 0.55)
	set(RightElbow, 0.60, 0.55)
	set(LeftWrist, 0.40, 0.64)
	set(RightWrist, 0.60, 0.64)
	set(LeftHip, 0.45, 0.70)
	set(RightHip, 0.55, 0.70)
	set(LeftKnee, 0.42, 0.74)
	set(RightKnee, 0.58, 0.74)
	// Ankles, heels and foot indices stay where they were: feet planted.
	return lms
}

func mustFrame(t *testing.T, lms []Landmark) *PoseFrame {
	t.Helper()
	f, err := NewPoseFrame(lms)
	if err != nil {
		t.Fatalf("NewPoseFrame: %v", err)
	}
	return f
}

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.IsNaN(got) || math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}
