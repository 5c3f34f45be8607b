package pose

import (
	"fmt"
	"sort"
	"strings"
)

// Severity separates rules that gate pass/fail from rules that only cost
// score.
type Severity string

const (
	// Hard rules are safety or task-defining checks; a frame fails if any
	// hard rule fails.
	Hard Severity = "hard"
	// Soft rules are form refinements; failing one reduces the score only.
	Soft Severity = "soft"
)

// Comparison is the kind of threshold check a rule applies.
type Comparison int

const (
	// AtLeast passes when value >= Threshold.
	AtLeast Comparison = iota
	// AtMost passes when value <= Threshold.
	AtMost
	// AbsAtMost passes when |value| <= Threshold.
	AbsAtMost
	// WithinRange passes when Threshold <= value <= UpperThreshold.
	WithinRange
)

// Rule is one metric check within an exercise. Feedback is a fmt template
// receiving the measured value then the violated threshold; for WithinRange,
// FeedbackHigh covers the upper bound and Feedback the lower.
type Rule struct {
	Metric         string
	Compare        Comparison
	Threshold      float64
	UpperThreshold float64
	Severity       Severity
	Weight         int
	Feedback       string
	FeedbackHigh   string
}

// ExerciseSpec binds a canonical exercise identifier to its display name and
// ordered rule list. Rule order fixes feedback ordering within a severity
// class; it does not affect pass/fail.
type ExerciseSpec struct {
	ID    string
	Name  string
	Rules []Rule
}

// UnsupportedExerciseError reports a pose_type that resolves to no canonical
// exercise. It lists the valid canonical identifiers.
type UnsupportedExerciseError struct {
	Requested string
	Valid     []string
}

func (e *UnsupportedExerciseError) Error() string {
	return fmt.Sprintf("unsupported exercise %q: valid exercises are %s",
		e.Requested, strings.Join(e.Valid, ", "))
}

// Thresholds carries every tunable rule threshold. Defaults follow the
// clinic-reviewed values of the original validator; internal/config can
// override individual fields from a tuning file.
type Thresholds struct {
	// Partial squat
	SquatMinDepthDeg       float64
	SquatMaxForwardLeanDeg float64
	SquatMaxKneeValgusDeg  float64
	SquatMaxHeelLiftCM     float64

	// Heel raises
	HeelMinRaiseCM         float64
	HeelSymmetryMaxDiffPct float64
	HeelMaxAnkleRollDeg    float64

	// Single-leg stance
	SLSMinHoldS         float64
	SLSMaxSwayDeg       float64
	SLSMaxPelvicDropDeg float64

	// Tandem stance
	TandemMaxFootLineDevDeg float64
	TandemMaxTrunkLeanDeg   float64
	TandemMinHoldS          float64

	// Functional reach
	ReachMinRatio           float64
	ReachMinTrunkFlexionDeg float64
	ReachMaxTrunkFlexionDeg float64

	// Tree pose
	TreeMaxPelvicShiftDeg float64
	TreeMaxTrunkSwayDeg   float64
	TreeMaxArmMisalignDeg float64
	TreeMinHoldS          float64
}

// DefaultThresholds returns the default rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SquatMinDepthDeg:       45,
		SquatMaxForwardLeanDeg: 35,
		SquatMaxKneeValgusDeg:  10,
		SquatMaxHeelLiftCM:     1.0,

		HeelMinRaiseCM:         2.0,
		HeelSymmetryMaxDiffPct: 15,
		HeelMaxAnkleRollDeg:    8,

		SLSMinHoldS:         10,
		SLSMaxSwayDeg:       8,
		SLSMaxPelvicDropDeg: 7,

		TandemMaxFootLineDevDeg: 6,
		TandemMaxTrunkLeanDeg:   10,
		TandemMinHoldS:          10,

		ReachMinRatio:           0.7,
		ReachMinTrunkFlexionDeg: 10,
		ReachMaxTrunkFlexionDeg: 30,

		TreeMaxPelvicShiftDeg: 8,
		TreeMaxTrunkSwayDeg:   8,
		TreeMaxArmMisalignDeg: 10,
		TreeMinHoldS:          10,
	}
}

// RuleSet is the compiled alias and rule tables for one Thresholds setting.
// Build it once and reuse it across calls; it is read-only after construction.
type RuleSet struct {
	specs map[string]*ExerciseSpec
}

// aliases maps every accepted pose_type string to a canonical exercise
// identifier. Matching is case-sensitive and exact. Canonical identifiers are
// their own aliases.
var aliases = map[string]string{
	"partial_squat":     "partial_squat",
	"squat":             "partial_squat",
	"heel_raises":       "heel_raises",
	"heel_raise":        "heel_raises",
	"single_leg_stance": "single_leg_stance",
	"balance":           "single_leg_stance",
	"single_leg":        "single_leg_stance",
	"tandem_stance":     "tandem_stance",
	"tandem":            "tandem_stance",
	"functional_reach":  "functional_reach",
	"reach":             "functional_reach",
	"tree_pose":         "tree_pose",
	"tree":              "tree_pose",
}

// NewRuleSet compiles the per-exercise rule tables for the given thresholds.
func NewRuleSet(th Thresholds) *RuleSet {
	specs := map[string]*ExerciseSpec{
		"partial_squat": {
			ID:   "partial_squat",
			Name: "Partial Squat",
			Rules: []Rule{
				{Metric: MetricKneeFlexion, Compare: AtLeast, Threshold: th.SquatMinDepthDeg, Severity: Hard, Weight: 30,
					Feedback: "Go deeper: knee flexion %.0f° < %.0f°."},
				{Metric: MetricKneeAlignment, Compare: AbsAtMost, Threshold: th.SquatMaxKneeValgusDeg, Severity: Hard, Weight: 30,
					Feedback: "Knees in line: valgus/varus %.0f° > %.0f°."},
				{Metric: MetricHeelHeight, Compare: AtMost, Threshold: th.SquatMaxHeelLiftCM, Severity: Soft, Weight: 20,
					Feedback: "Keep heels down: heel lift %.1f cm > %.1f cm."},
				{Metric: MetricTrunkLean, Compare: AtMost, Threshold: th.SquatMaxForwardLeanDeg, Severity: Soft, Weight: 20,
					Feedback: "Upright chest: trunk lean %.0f° > %.0f°."},
			},
		},
		"heel_raises": {
			ID:   "heel_raises",
			Name: "Heel Raises",
			Rules: []Rule{
				{Metric: MetricHeelHeight, Compare: AtLeast, Threshold: th.HeelMinRaiseCM, Severity: Hard, Weight: 35,
					Feedback: "Raise higher: heel height %.1f cm < %.1f cm."},
				{Metric: MetricSymmetryDiff, Compare: AtMost, Threshold: th.HeelSymmetryMaxDiffPct, Severity: Soft, Weight: 25,
					Feedback: "Match sides: asymmetry %.0f%% > %.0f%%."},
				{Metric: MetricAnkleRoll, Compare: AbsAtMost, Threshold: th.HeelMaxAnkleRollDeg, Severity: Hard, Weight: 30,
					Feedback: "Neutral ankles: roll %.0f° > %.0f°."},
			},
		},
		"single_leg_stance": {
			ID:   "single_leg_stance",
			Name: "Single-Leg Stance",
			Rules: []Rule{
				{Metric: MetricHoldTime, Compare: AtLeast, Threshold: th.SLSMinHoldS, Severity: Soft, Weight: 20,
					Feedback: "Hold longer: %.1fs < %.1fs."},
				{Metric: MetricSwayPeak, Compare: AtMost, Threshold: th.SLSMaxSwayDeg, Severity: Hard, Weight: 30,
					Feedback: "Reduce sway: %.0f° > %.0f°."},
				{Metric: MetricPelvicDrop, Compare: AtMost, Threshold: th.SLSMaxPelvicDropDeg, Severity: Hard, Weight: 30,
					Feedback: "Level pelvis: drop %.0f° > %.0f°."},
			},
		},
		"tandem_stance": {
			ID:   "tandem_stance",
			Name: "Tandem Stance",
			Rules: []Rule{
				{Metric: MetricFootLineDeviation, Compare: AbsAtMost, Threshold: th.TandemMaxFootLineDevDeg, Severity: Hard, Weight: 35,
					Feedback: "Line up feet: deviation %.0f° > %.0f°."},
				{Metric: MetricTrunkLean, Compare: AbsAtMost, Threshold: th.TandemMaxTrunkLeanDeg, Severity: Soft, Weight: 20,
					Feedback: "Stand tall: trunk lean %.0f° > %.0f°."},
				{Metric: MetricHoldTime, Compare: AtLeast, Threshold: th.TandemMinHoldS, Severity: Soft, Weight: 20,
					Feedback: "Hold longer: %.1fs < %.1fs."},
			},
		},
		"functional_reach": {
			ID:   "functional_reach",
			Name: "Functional Reach",
			Rules: []Rule{
				{Metric: MetricReachRatio, Compare: AtLeast, Threshold: th.ReachMinRatio, Severity: Hard, Weight: 35,
					Feedback: "Reach further: ratio %.2f < %.2f."},
				{Metric: MetricStepped, Compare: AtMost, Threshold: 0.5, Severity: Hard, Weight: 30,
					Feedback: "Keep feet planted: stepping detected."},
				{Metric: MetricTrunkLean, Compare: WithinRange, Threshold: th.ReachMinTrunkFlexionDeg, UpperThreshold: th.ReachMaxTrunkFlexionDeg, Severity: Soft, Weight: 20,
					Feedback:     "Lean forward slightly: trunk flexion %.0f° < %.0f°.",
					FeedbackHigh: "Reach with arms, not trunk: flexion %.0f° > %.0f°."},
			},
		},
		"tree_pose": {
			ID:   "tree_pose",
			Name: "Tree Pose",
			Rules: []Rule{
				{Metric: MetricPelvicDrop, Compare: AbsAtMost, Threshold: th.TreeMaxPelvicShiftDeg, Severity: Hard, Weight: 30,
					Feedback: "Level hips: shift %.0f° > %.0f°."},
				{Metric: MetricSwayPeak, Compare: AtMost, Threshold: th.TreeMaxTrunkSwayDeg, Severity: Hard, Weight: 25,
					Feedback: "Steady trunk: sway %.0f° > %.0f°."},
				{Metric: MetricArmOverhead, Compare: AbsAtMost, Threshold: th.TreeMaxArmMisalignDeg, Severity: Soft, Weight: 20,
					Feedback: "Align arms overhead: error %.0f° > %.0f°."},
				{Metric: MetricHoldTime, Compare: AtLeast, Threshold: th.TreeMinHoldS, Severity: Soft, Weight: 20,
					Feedback: "Hold longer: %.1fs < %.1fs."},
			},
		},
	}
	return &RuleSet{specs: specs}
}

// CanonicalExercises returns the sorted canonical exercise identifiers.
func CanonicalExercises() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range aliases {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Resolve maps a requested pose_type (canonical id or alias) to its
// ExerciseSpec, or returns UnsupportedExerciseError. Matching is an exact
// table lookup resolved once per call.
func (r *RuleSet) Resolve(poseType string) (*ExerciseSpec, error) {
	id, ok := aliases[poseType]
	if !ok {
		return nil, &UnsupportedExerciseError{Requested: poseType, Valid: CanonicalExercises()}
	}
	return r.specs[id], nil
}
