package pose

import (
	"errors"
	"sort"
	"strings"
	"testing"
)

func TestResolveAliases(t *testing.T) {
	rs := NewRuleSet(DefaultThresholds())
	tests := []struct {
		poseType string
		want     string
	}{
		{"partial_squat", "partial_squat"},
		{"squat", "partial_squat"},
		{"heel_raises", "heel_raises"},
		{"heel_raise", "heel_raises"},
		{"single_leg_stance", "single_leg_stance"},
		{"balance", "single_leg_stance"},
		{"single_leg", "single_leg_stance"},
		{"tandem_stance", "tandem_stance"},
		{"tandem", "tandem_stance"},
		{"functional_reach", "functional_reach"},
		{"reach", "functional_reach"},
		{"tree_pose", "tree_pose"},
		{"tree", "tree_pose"},
	}
	for _, tt := range tests {
		spec, err := rs.Resolve(tt.poseType)
		if err != nil {
			t.Errorf("Resolve(%q): %v", tt.poseType, err)
			continue
		}
		if spec.ID != tt.want {
			t.Errorf("Resolve(%q) = %s, want %s", tt.poseType, spec.ID, tt.want)
		}
	}
}

func TestResolveIsCaseSensitive(t *testing.T) {
	rs := NewRuleSet(DefaultThresholds())
	for _, poseType := range []string{"Squat", "SQUAT", " squat", "squat "} {
		if _, err := rs.Resolve(poseType); err == nil {
			t.Errorf("Resolve(%q) succeeded, want exact-match failure", poseType)
		}
	}
}

func TestResolveUnsupported(t *testing.T) {
	rs := NewRuleSet(DefaultThresholds())
	_, err := rs.Resolve("cartwheel")
	var uerr *UnsupportedExerciseError
	if !errors.As(err, &uerr) {
		t.Fatalf("got err %v, want UnsupportedExerciseError", err)
	}
	if uerr.Requested != "cartwheel" {
		t.Errorf("Requested = %q", uerr.Requested)
	}
	want := []string{"functional_reach", "heel_raises", "partial_squat", "single_leg_stance", "tandem_stance", "tree_pose"}
	if len(uerr.Valid) != len(want) {
		t.Fatalf("Valid = %v, want %v", uerr.Valid, want)
	}
	for i, id := range want {
		if uerr.Valid[i] != id {
			t.Fatalf("Valid = %v, want %v", uerr.Valid, want)
		}
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error message %q does not name %s", err.Error(), id)
		}
	}
}

func TestCanonicalExercisesSorted(t *testing.T) {
	ids := CanonicalExercises()
	if len(ids) != 6 {
		t.Fatalf("got %d canonical exercises, want 6: %v", len(ids), ids)
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("not sorted: %v", ids)
	}
}

func TestEveryExerciseHasAHardRule(t *testing.T) {
	rs := NewRuleSet(DefaultThresholds())
	for _, id := range CanonicalExercises() {
		spec, err := rs.Resolve(id)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", id, err)
		}
		hard := 0
		for _, r := range spec.Rules {
			if r.Severity == Hard {
				hard++
			}
			if r.Weight <= 0 {
				t.Errorf("%s: rule for %s has weight %d", id, r.Metric, r.Weight)
			}
		}
		if hard == 0 {
			t.Errorf("%s has no hard rules; pass/fail would be meaningless", id)
		}
	}
}

func TestThresholdOverridesReachRules(t *testing.T) {
	th := DefaultThresholds()
	th.SquatMinDepthDeg = 60
	rs := NewRuleSet(th)
	spec, err := rs.Resolve("squat")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range spec.Rules {
		if r.Metric == MetricKneeFlexion {
			found = true
			if r.Threshold != 60 {
				t.Errorf("knee flexion threshold = %v, want 60", r.Threshold)
			}
		}
	}
	if !found {
		t.Error("squat spec has no knee flexion rule")
	}
}
