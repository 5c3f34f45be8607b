package pose

import "math"

// MinJointVisibility is the visibility below which a landmark is considered
// too unreliable to contribute to an angle.
const MinJointVisibility = 0.5

// referenceShoulderWidthCM is the assumed biacromial width used to convert
// normalised image distances to centimetres. This makes every *_cm metric an
// approximation scaled to an average adult, not an absolute measurement.
const referenceShoulderWidthCM = 38.0

const symmetryEps = 1e-6

// Undefined marks a metric that could not be computed from the frame, usually
// because a required landmark fell below MinJointVisibility. It propagates
// through arithmetic instead of silently becoming zero.
func Undefined() float64 { return math.NaN() }

// IsDefined reports whether a metric value carries a real measurement.
func IsDefined(v float64) bool { return !math.IsNaN(v) }

// Angle computes the angle in degrees at vertex b between rays b->a and b->c,
// clamped to [0,180]. If any of the three landmarks is below
// MinJointVisibility, or either ray is degenerate, the result is Undefined.
func Angle(a, b, c Landmark) float64 {
	if a.Visibility < MinJointVisibility || b.Visibility < MinJointVisibility || c.Visibility < MinJointVisibility {
		return Undefined()
	}
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	m1 := math.Hypot(v1x, v1y)
	m2 := math.Hypot(v2x, v2y)
	if m1 == 0 || m2 == 0 {
		return Undefined()
	}
	cos := (v1x*v2x + v1y*v2y) / (m1 * m2)
	// Clamp against floating point drift before acos.
	cos = math.Max(-1, math.Min(1, cos))
	deg := math.Acos(cos) * 180 / math.Pi
	return math.Max(0, math.Min(180, deg))
}

// jointDef names a joint angle and fixes the three landmark indices that
// define it: the vertex plus the two adjacent landmarks.
type jointDef struct {
	name   string
	a, b, c int // b is the vertex
}

// jointTable is the standard bilateral joint set. The triples mirror the
// measurement convention of the upstream angle pipeline: shoulders measure the
// arm opening at the shoulder, elbows/hips/knees are conventional joint angles.
var jointTable = []jointDef{
	{"shoulder_left", LeftElbow, LeftShoulder, LeftWrist},
	{"shoulder_right", RightElbow, RightShoulder, RightWrist},
	{"elbow_left", LeftShoulder, LeftElbow, LeftWrist},
	{"elbow_right", RightShoulder, RightElbow, RightWrist},
	{"hip_left", LeftKnee, LeftHip, LeftAnkle},
	{"hip_right", RightKnee, RightHip, RightAnkle},
	{"knee_left", LeftHip, LeftKnee, LeftAnkle},
	{"knee_right", RightHip, RightKnee, RightAnkle},
}

// JointAngles computes the standard joint set for a frame. Joints whose
// landmarks are insufficiently visible map to Undefined.
func JointAngles(f *PoseFrame) map[string]float64 {
	angles := make(map[string]float64, len(jointTable))
	for _, j := range jointTable {
		angles[j.name] = Angle(f[j.a], f[j.b], f[j.c])
	}
	return angles
}

// Symmetry returns the percentage difference between the left and right values
// of a bilateral metric: 100*|L-R|/max(L,R,eps). Undefined inputs propagate.
func Symmetry(left, right float64) float64 {
	if !IsDefined(left) || !IsDefined(right) {
		return Undefined()
	}
	return 100 * math.Abs(left-right) / math.Max(math.Max(left, right), symmetryEps)
}

// FrameBounds is the axis-aligned box over a set of landmarks, in the same
// normalised coordinates as the landmarks themselves.
type FrameBounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// CenterX returns the horizontal center of the box.
func (b FrameBounds) CenterX() float64 { return (b.MinX + b.MaxX) / 2 }

// CenterY returns the vertical center of the box.
func (b FrameBounds) CenterY() float64 { return (b.MinY + b.MaxY) / 2 }

// Width returns the horizontal extent of the box.
func (b FrameBounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent of the box.
func (b FrameBounds) Height() float64 { return b.MaxY - b.MinY }

// Bounds computes the bounding box over the given landmark indices, skipping
// landmarks below minVisibility. The second return is the number of landmarks
// that contributed; a count of zero means the box is meaningless.
func Bounds(f *PoseFrame, indices []int, minVisibility float64) (FrameBounds, int) {
	b := FrameBounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	n := 0
	for _, i := range indices {
		lm := f[i]
		if lm.Visibility < minVisibility {
			continue
		}
		b.MinX = math.Min(b.MinX, lm.X)
		b.MinY = math.Min(b.MinY, lm.Y)
		b.MaxX = math.Max(b.MaxX, lm.X)
		b.MaxY = math.Max(b.MaxY, lm.Y)
		n++
	}
	return b, n
}

// CMPerUnit estimates a normalised-unit to centimetre scale from the apparent
// shoulder width, assuming an average adult biacromial width. Undefined when
// either shoulder is insufficiently visible or the shoulders coincide.
func CMPerUnit(f *PoseFrame) float64 {
	ls, rs := f[LeftShoulder], f[RightShoulder]
	if ls.Visibility < MinJointVisibility || rs.Visibility < MinJointVisibility {
		return Undefined()
	}
	w := math.Hypot(ls.X-rs.X, ls.Y-rs.Y)
	if w == 0 {
		return Undefined()
	}
	return referenceShoulderWidthCM / w
}

func dist(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
