package pose

import "math"

// Metric keys shared between the geometry layer and the rule tables. Angle
// metrics are degrees; *_cm metrics use the approximate shoulder-width scale
// from CMPerUnit; ratios are unitless.
const (
	MetricKneeFlexion       = "knee_flexion_deg"
	MetricKneeAlignment     = "hip_knee_ankle_alignment_deg"
	MetricHeelHeight        = "heel_height_cm"
	MetricTrunkLean         = "trunk_forward_lean_deg"
	MetricSymmetryDiff      = "symmetry_diff_pct"
	MetricAnkleRoll         = "ankle_roll_deg"
	MetricSwayPeak          = "sway_peak_deg"
	MetricPelvicDrop        = "pelvic_drop_deg"
	MetricFootLineDeviation = "foot_line_deviation_deg"
	MetricReachRatio        = "reach_distance_ratio"
	MetricStepped           = "stepped_during_task"
	MetricArmOverhead       = "arm_overhead_alignment_deg"
	MetricHoldTime          = "hold_time_s"
)

// ComputeMetrics derives the full metric set for a frame. The session framing
// state is optional: when present its center history supplies sway_peak_deg,
// otherwise temporal metrics stay at zero per the single-frame contract
// (hold_time_s and stepped_during_task are always zero without history; this
// is a documented limitation, not a silent default).
//
// Metrics that cannot be computed from the visible landmarks are Undefined
// (NaN) and are reported as such rather than clamped to zero.
func ComputeMetrics(f *PoseFrame, state *FramingState) map[string]float64 {
	angles := JointAngles(f)
	m := make(map[string]float64, len(angles)+13)
	for k, v := range angles {
		m[k] = v
	}

	m[MetricKneeFlexion] = kneeFlexion(angles)
	m[MetricKneeAlignment] = kneeAlignment(f)
	m[MetricHeelHeight] = heelHeight(f)
	m[MetricTrunkLean] = trunkLean(f)
	m[MetricSymmetryDiff] = Symmetry(heelHeightSide(f, LeftHeel, LeftFootIndex), heelHeightSide(f, RightHeel, RightFootIndex))
	m[MetricAnkleRoll] = ankleRoll(f)
	m[MetricPelvicDrop] = pelvicDrop(f)
	m[MetricFootLineDeviation] = footLineDeviation(f)
	m[MetricReachRatio] = reachRatio(f)
	m[MetricArmOverhead] = armOverheadAlignment(f)

	m[MetricSwayPeak] = 0
	if state != nil {
		m[MetricSwayPeak] = state.SwayPeakDeg()
	}
	m[MetricStepped] = 0
	m[MetricHoldTime] = 0
	return m
}

// kneeFlexion converts knee joint angles (180 = straight leg) into flexion
// degrees, averaging sides when both are defined.
func kneeFlexion(angles map[string]float64) float64 {
	l, r := angles["knee_left"], angles["knee_right"]
	switch {
	case IsDefined(l) && IsDefined(r):
		return 180 - (l+r)/2
	case IsDefined(l):
		return 180 - l
	case IsDefined(r):
		return 180 - r
	}
	return Undefined()
}

// kneeAlignment measures frontal-plane knee collapse: the horizontal offset
// of the knee from the hip-ankle line, as an angle, signed positive for
// valgus (knee drifting toward the midline). The worse side is reported.
// Offset rather than joint angle keeps it independent of sagittal knee bend,
// so deep flexion never reads as collapse.
func kneeAlignment(f *PoseFrame) float64 {
	medialLeft := 1.0
	if f[RightHip].X < f[LeftHip].X {
		medialLeft = -1
	}
	left := kneeAlignmentSide(f, LeftHip, LeftKnee, LeftAnkle, medialLeft)
	right := kneeAlignmentSide(f, RightHip, RightKnee, RightAnkle, -medialLeft)
	switch {
	case IsDefined(left) && IsDefined(right):
		if math.Abs(left) >= math.Abs(right) {
			return left
		}
		return right
	case IsDefined(left):
		return left
	case IsDefined(right):
		return right
	}
	return Undefined()
}

// kneeAlignmentSide computes the signed frontal deviation of one knee from
// its hip-ankle line. medialX is +1 when the body midline lies at larger x
// than this hip, -1 otherwise; the result is positive when the knee is
// displaced toward the midline (valgus).
func kneeAlignmentSide(f *PoseFrame, hip, knee, ankle int, medialX float64) float64 {
	h, k, a := f[hip], f[knee], f[ankle]
	if h.Visibility < MinJointVisibility || k.Visibility < MinJointVisibility || a.Visibility < MinJointVisibility {
		return Undefined()
	}
	legX, legY := a.X-h.X, a.Y-h.Y
	legLen := math.Hypot(legX, legY)
	if legLen == 0 || math.Abs(legY) < 1e-9 {
		return Undefined()
	}
	// Where the hip-ankle line sits at the knee's height.
	lineX := h.X + legX*(k.Y-h.Y)/legY
	offset := (k.X - lineX) * medialX
	dev := math.Atan2(math.Abs(offset), legLen) * 180 / math.Pi
	if offset >= 0 {
		return dev
	}
	return -dev
}

// heelHeightSide estimates how far one heel is raised above its toe line, in
// normalised units. Grounded heels sit at or below the foot index, so the
// value floors at zero.
func heelHeightSide(f *PoseFrame, heel, footIndex int) float64 {
	h, t := f[heel], f[footIndex]
	if h.Visibility < MinJointVisibility || t.Visibility < MinJointVisibility {
		return Undefined()
	}
	// Image y grows downward; a raised heel has smaller y than the toe.
	return math.Max(0, t.Y-h.Y)
}

// heelHeight converts the higher of the two heel raises to centimetres via
// the shoulder-width scale. Approximate by construction.
func heelHeight(f *PoseFrame) float64 {
	scale := CMPerUnit(f)
	l := heelHeightSide(f, LeftHeel, LeftFootIndex)
	r := heelHeightSide(f, RightHeel, RightFootIndex)
	if !IsDefined(scale) {
		return Undefined()
	}
	switch {
	case IsDefined(l) && IsDefined(r):
		return math.Max(l, r) * scale
	case IsDefined(l):
		return l * scale
	case IsDefined(r):
		return r * scale
	}
	return Undefined()
}

// trunkLean measures the sagittal trunk angle from vertical, degrees, using
// the mid-shoulder to mid-hip segment.
func trunkLean(f *PoseFrame) float64 {
	ls, rs, lh, rh := f[LeftShoulder], f[RightShoulder], f[LeftHip], f[RightHip]
	for _, lm := range []Landmark{ls, rs, lh, rh} {
		if lm.Visibility < MinJointVisibility {
			return Undefined()
		}
	}
	dx := (ls.X+rs.X)/2 - (lh.X+rh.X)/2
	dy := (lh.Y+rh.Y)/2 - (ls.Y+rs.Y)/2 // positive when shoulders are above hips
	if dy <= 0 {
		return Undefined()
	}
	return math.Atan2(math.Abs(dx), dy) * 180 / math.Pi
}

// ankleRoll estimates frontal ankle inversion/eversion as the deviation of
// the ankle-heel segment from vertical, worse side reported, degrees.
func ankleRoll(f *PoseFrame) float64 {
	l := ankleRollSide(f, LeftAnkle, LeftHeel)
	r := ankleRollSide(f, RightAnkle, RightHeel)
	switch {
	case IsDefined(l) && IsDefined(r):
		return math.Max(math.Abs(l), math.Abs(r))
	case IsDefined(l):
		return math.Abs(l)
	case IsDefined(r):
		return math.Abs(r)
	}
	return Undefined()
}

func ankleRollSide(f *PoseFrame, ankle, heel int) float64 {
	a, h := f[ankle], f[heel]
	if a.Visibility < MinJointVisibility || h.Visibility < MinJointVisibility {
		return Undefined()
	}
	dy := h.Y - a.Y
	if dy <= 0 {
		return Undefined()
	}
	return math.Atan2(h.X-a.X, dy) * 180 / math.Pi
}

// pelvicDrop measures frontal pelvic obliquity: the hip line's angle from
// horizontal, degrees, positive regardless of side.
func pelvicDrop(f *PoseFrame) float64 {
	lh, rh := f[LeftHip], f[RightHip]
	if lh.Visibility < MinJointVisibility || rh.Visibility < MinJointVisibility {
		return Undefined()
	}
	dx := math.Abs(lh.X - rh.X)
	if dx == 0 {
		return Undefined()
	}
	return math.Atan2(math.Abs(lh.Y-rh.Y), dx) * 180 / math.Pi
}

// footLineDeviation measures how far the back-heel to front-toe line deviates
// from the image vertical, degrees. The vertical axis stands in for the body
// midline, which assumes the camera faces the subject head-on; documented as
// an approximation.
func footLineDeviation(f *PoseFrame) float64 {
	lh, rt := f[LeftHeel], f[RightFootIndex]
	rh, lt := f[RightHeel], f[LeftFootIndex]
	// Pick whichever foot is in front (higher in the image at equal depth is
	// ambiguous, so use the pairing with better combined visibility).
	visA := lh.Visibility * rt.Visibility
	visB := rh.Visibility * lt.Visibility
	heel, toe := lh, rt
	if visB > visA {
		heel, toe = rh, lt
	}
	if heel.Visibility < MinJointVisibility || toe.Visibility < MinJointVisibility {
		return Undefined()
	}
	dy := math.Abs(heel.Y - toe.Y)
	if dy == 0 {
		return Undefined()
	}
	return math.Atan2(heel.X-toe.X, dy) * 180 / math.Pi
}

// reachRatio measures forward reach as horizontal wrist travel from the
// shoulder divided by full arm length, using the more visible arm. Arm length
// comes from the same frame, so the ratio is self-scaling.
func reachRatio(f *PoseFrame) float64 {
	left := reachRatioSide(f, LeftShoulder, LeftElbow, LeftWrist)
	right := reachRatioSide(f, RightShoulder, RightElbow, RightWrist)
	switch {
	case IsDefined(left) && IsDefined(right):
		return math.Max(left, right)
	case IsDefined(left):
		return left
	case IsDefined(right):
		return right
	}
	return Undefined()
}

func reachRatioSide(f *PoseFrame, shoulder, elbow, wrist int) float64 {
	s, e, w := f[shoulder], f[elbow], f[wrist]
	if s.Visibility < MinJointVisibility || e.Visibility < MinJointVisibility || w.Visibility < MinJointVisibility {
		return Undefined()
	}
	armLen := dist(s, e) + dist(e, w)
	if armLen == 0 {
		return Undefined()
	}
	return math.Abs(w.X-s.X) / armLen
}

// armOverheadAlignment measures how unevenly the two arms are held overhead:
// the difference between each shoulder->wrist segment's angle from vertical,
// degrees.
func armOverheadAlignment(f *PoseFrame) float64 {
	l := armVerticalAngle(f, LeftShoulder, LeftWrist)
	r := armVerticalAngle(f, RightShoulder, RightWrist)
	if !IsDefined(l) || !IsDefined(r) {
		return Undefined()
	}
	return math.Abs(l - r)
}

func armVerticalAngle(f *PoseFrame, shoulder, wrist int) float64 {
	s, w := f[shoulder], f[wrist]
	if s.Visibility < MinJointVisibility || w.Visibility < MinJointVisibility {
		return Undefined()
	}
	dy := s.Y - w.Y // positive when the wrist is above the shoulder
	return math.Atan2(math.Abs(w.X-s.X), math.Max(dy, 1e-9)) * 180 / math.Pi
}
