package pose

import (
	"fmt"
	"math"
	"strings"
)

// ValidationResult is the full outcome of validating one frame against one
// exercise. Metrics carries every defined computed value, including ones that
// gate nothing, so callers can display full detail. Undefined metrics are
// omitted from the map and surfaced in Feedback instead.
type ValidationResult struct {
	Pose     string             `json:"pose"`
	Score    int                `json:"score"`
	Pass     bool               `json:"pass"`
	Feedback []string           `json:"feedback"`
	Metrics  map[string]float64 `json:"metrics"`
}

// ruleOutcome is the evaluation of a single rule against the metric map.
type ruleOutcome struct {
	rule     Rule
	failed   bool
	skipped  bool // metric undefined, rule neither passes nor fails
	feedback string
}

// Evaluate scores a metric map against an exercise's rules.
//
// Pass is true iff no hard rule failed, independent of the numeric score.
// The score starts at 100 and each failed rule, hard or soft, subtracts its
// weight, flooring at 0. Feedback lists hard failures before soft ones,
// preserving rule order within each class; rules skipped for insufficient
// visibility contribute a note instead of a failure.
func Evaluate(spec *ExerciseSpec, metrics map[string]float64) ValidationResult {
	outcomes := make([]ruleOutcome, 0, len(spec.Rules))
	for _, rule := range spec.Rules {
		outcomes = append(outcomes, applyRule(rule, metrics))
	}

	score := 100
	pass := true
	for _, o := range outcomes {
		if o.failed {
			score -= o.rule.Weight
			if o.rule.Severity == Hard {
				pass = false
			}
		}
	}
	if score < 0 {
		score = 0
	}

	var feedback []string
	for _, sev := range []Severity{Hard, Soft} {
		for _, o := range outcomes {
			if o.failed && o.rule.Severity == sev {
				feedback = append(feedback, o.feedback)
			}
		}
	}
	for _, o := range outcomes {
		if o.skipped {
			feedback = append(feedback, o.feedback)
		}
	}
	if len(feedback) == 0 {
		feedback = []string{"Nice control and alignment."}
	}

	return ValidationResult{
		Pose:     spec.ID,
		Score:    score,
		Pass:     pass,
		Feedback: feedback,
		Metrics:  definedMetrics(metrics),
	}
}

func applyRule(rule Rule, metrics map[string]float64) ruleOutcome {
	value, ok := metrics[rule.Metric]
	if !ok || !IsDefined(value) {
		return ruleOutcome{
			rule:     rule,
			skipped:  true,
			feedback: fmt.Sprintf("Cannot assess %s: landmarks not visible enough.", rule.Metric),
		}
	}

	var failed bool
	threshold := rule.Threshold
	template := rule.Feedback
	switch rule.Compare {
	case AtLeast:
		failed = value < rule.Threshold
	case AtMost:
		failed = value > rule.Threshold
	case AbsAtMost:
		failed = math.Abs(value) > rule.Threshold
	case WithinRange:
		if value < rule.Threshold {
			failed = true
		} else if value > rule.UpperThreshold {
			failed = true
			threshold = rule.UpperThreshold
			template = rule.FeedbackHigh
		}
	}
	if !failed {
		return ruleOutcome{rule: rule}
	}
	msg := template
	if strings.Contains(template, "%") {
		msg = fmt.Sprintf(template, value, threshold)
	}
	return ruleOutcome{rule: rule, failed: true, feedback: msg}
}

// definedMetrics filters out undefined values, which neither JSON nor the
// callers' displays can represent.
func definedMetrics(metrics map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		if IsDefined(v) {
			out[k] = v
		}
	}
	return out
}
