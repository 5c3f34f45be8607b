package pose

import (
	"math"
	"testing"
)

func TestComputeMetricsStanding(t *testing.T) {
	f := mustFrame(t, standingLandmarks())
	m := ComputeMetrics(f, nil)

	near(t, MetricKneeFlexion, m[MetricKneeFlexion], 0, 1e-6)
	near(t, MetricKneeAlignment, m[MetricKneeAlignment], 0, 1e-6)
	near(t, MetricHeelHeight, m[MetricHeelHeight], 0, 1e-9)
	near(t, MetricTrunkLean, m[MetricTrunkLean], 0, 1e-9)
	near(t, MetricSymmetryDiff, m[MetricSymmetryDiff], 0, 1e-9)
	near(t, MetricAnkleRoll, m[MetricAnkleRoll], 0, 1e-9)
	near(t, MetricPelvicDrop, m[MetricPelvicDrop], 0, 1e-9)
	near(t, MetricArmOverhead, m[MetricArmOverhead], 0, 1e-6)

	// Temporal metrics are zero without session history.
	near(t, MetricSwayPeak, m[MetricSwayPeak], 0, 0)
	near(t, MetricHoldTime, m[MetricHoldTime], 0, 0)
	near(t, MetricStepped, m[MetricStepped], 0, 0)

	// Arms hang at the sides: barely any forward reach.
	if m[MetricReachRatio] > 0.2 {
		t.Errorf("%s = %v, want small for arms at sides", MetricReachRatio, m[MetricReachRatio])
	}

	// Feet side by side give no meaningful heel-toe line.
	if IsDefined(m[MetricFootLineDeviation]) {
		t.Errorf("%s = %v, want Undefined for side-by-side feet", MetricFootLineDeviation, m[MetricFootLineDeviation])
	}
}

func TestComputeMetricsSquat(t *testing.T) {
	f := mustFrame(t, squatLandmarks())
	m := ComputeMetrics(f, nil)

	flexion := m[MetricKneeFlexion]
	if flexion < 45 || flexion > 55 {
		t.Errorf("%s = %v, want within [45,55]", MetricKneeFlexion, flexion)
	}
	// Knees bend forward, not inward: frontal alignment stays in the margin.
	if math.Abs(m[MetricKneeAlignment]) > 10 {
		t.Errorf("%s = %v, want |v| <= 10", MetricKneeAlignment, m[MetricKneeAlignment])
	}
	near(t, MetricHeelHeight, m[MetricHeelHeight], 0, 1e-9)
	near(t, MetricTrunkLean, m[MetricTrunkLean], 0, 1e-9)
}

func TestKneeAlignmentSigns(t *testing.T) {
	// Push the left knee toward the midline: valgus, positive.
	lms := standingLandmarks()
	lms[LeftKnee].X = 0.48
	m := ComputeMetrics(mustFrame(t, lms), nil)
	if v := m[MetricKneeAlignment]; !IsDefined(v) || v <= 0 {
		t.Errorf("valgus alignment = %v, want positive", v)
	}

	// Push it away from the midline: varus, negative.
	lms = standingLandmarks()
	lms[LeftKnee].X = 0.42
	m = ComputeMetrics(mustFrame(t, lms), nil)
	if v := m[MetricKneeAlignment]; !IsDefined(v) || v >= 0 {
		t.Errorf("varus alignment = %v, want negative", v)
	}
}

func TestComputeMetricsHeelRaise(t *testing.T) {
	lms := standingLandmarks()
	// Raise both heels 0.02 units above the toe line; at 237.5 cm/unit that
	// is 4.75 cm.
	lms[LeftHeel].Y = 0.90
	lms[RightHeel].Y = 0.90
	// Keep the heels under the ankles so the raise reads as roll-free.
	m := ComputeMetrics(mustFrame(t, lms), nil)
	near(t, MetricHeelHeight, m[MetricHeelHeight], 4.75, 1e-6)
	near(t, MetricSymmetryDiff, m[MetricSymmetryDiff], 0, 1e-9)

	// One-sided raise shows up as asymmetry.
	lms[RightHeel].Y = 0.92
	m = ComputeMetrics(mustFrame(t, lms), nil)
	near(t, MetricSymmetryDiff, m[MetricSymmetryDiff], 100, 1e-6)
}

func TestComputeMetricsTrunkLean(t *testing.T) {
	lms := standingLandmarks()
	// Shift both shoulders forward (in image x) by 0.27 units: a 45° lean
	// against the 0.27 unit trunk height.
	lms[LeftShoulder].X += 0.27
	lms[RightShoulder].X += 0.27
	m := ComputeMetrics(mustFrame(t, lms), nil)
	near(t, MetricTrunkLean, m[MetricTrunkLean], 45, 1e-6)
}

func TestComputeMetricsPelvicDrop(t *testing.T) {
	lms := standingLandmarks()
	// Drop the left hip 0.10 units below the right over a 0.10 unit hip
	// width: 45° of obliquity.
	lms[LeftHip].Y = 0.62
	m := ComputeMetrics(mustFrame(t, lms), nil)
	near(t, MetricPelvicDrop, m[MetricPelvicDrop], 45, 1e-6)
}

func TestComputeMetricsUndefinedWhenLegsHidden(t *testing.T) {
	lms := standingLandmarks()
	for _, i := range []int{LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle, LeftHeel, RightHeel, LeftFootIndex, RightFootIndex} {
		lms[i].Visibility = 0.2
	}
	m := ComputeMetrics(mustFrame(t, lms), nil)

	for _, key := range []string{MetricKneeFlexion, MetricKneeAlignment, MetricHeelHeight, MetricAnkleRoll, MetricPelvicDrop, MetricSymmetryDiff, MetricFootLineDeviation} {
		if IsDefined(m[key]) {
			t.Errorf("%s = %v, want Undefined with legs hidden", key, m[key])
		}
	}
	// Upper-body metrics survive.
	if !IsDefined(m[MetricArmOverhead]) {
		t.Errorf("%s should stay defined with legs hidden", MetricArmOverhead)
	}
}

func TestComputeMetricsUsesSessionSway(t *testing.T) {
	s := NewFramingState(DefaultFramingConfig())
	for i := 0; i < 5; i++ {
		s.Advance(mustFrame(t, standingLandmarks()), canvasW, canvasH)
		lms := standingLandmarks()
		for j := range lms {
			lms[j].X += 0.05
		}
		s.Advance(mustFrame(t, lms), canvasW, canvasH)
	}

	m := ComputeMetrics(mustFrame(t, standingLandmarks()), s)
	if m[MetricSwayPeak] <= 0 {
		t.Errorf("%s = %v, want positive with swaying history", MetricSwayPeak, m[MetricSwayPeak])
	}
}
