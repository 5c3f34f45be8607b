// Package config loads the engine's tuning file: framing state machine
// constants and per-exercise rule thresholds. All fields are optional
// pointers so a partial JSON file only overrides what it names; the
// materialising accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ptpal-data/ptpal/internal/pose"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the root tuning schema. The same JSON shape is accepted at
// startup and (if the host exposes it) for runtime updates.
type TuningConfig struct {
	// Framing state machine
	LostFramesLimit  *int     `json:"lost_frames_limit,omitempty"`
	MinKeyLandmarks  *int     `json:"min_key_landmarks,omitempty"`
	PartialFrames    *int     `json:"partial_frames,omitempty"`
	EdgeMarginFrac   *float64 `json:"edge_margin_frac,omitempty"`
	VisibilityRatio  *float64 `json:"visibility_ratio,omitempty"`
	KeyVisibility    *float64 `json:"key_visibility,omitempty"`
	CenterHistoryLen *int     `json:"center_history_len,omitempty"`

	// Exercise thresholds (subset most often tuned per clinic)
	SquatMinDepthDeg        *float64 `json:"squat_min_depth_deg,omitempty"`
	SquatMaxForwardLeanDeg  *float64 `json:"squat_max_forward_lean_deg,omitempty"`
	SquatMaxKneeValgusDeg   *float64 `json:"squat_max_knee_valgus_deg,omitempty"`
	SquatMaxHeelLiftCM      *float64 `json:"squat_max_heel_lift_cm,omitempty"`
	HeelMinRaiseCM          *float64 `json:"heel_min_raise_cm,omitempty"`
	HeelSymmetryMaxDiffPct  *float64 `json:"heel_symmetry_max_diff_pct,omitempty"`
	HeelMaxAnkleRollDeg     *float64 `json:"heel_max_ankle_roll_deg,omitempty"`
	SLSMinHoldS             *float64 `json:"sls_min_hold_s,omitempty"`
	SLSMaxSwayDeg           *float64 `json:"sls_max_sway_deg,omitempty"`
	SLSMaxPelvicDropDeg     *float64 `json:"sls_max_pelvic_drop_deg,omitempty"`
	TandemMaxFootLineDevDeg *float64 `json:"tandem_max_foot_line_dev_deg,omitempty"`
	TandemMaxTrunkLeanDeg   *float64 `json:"tandem_max_trunk_lean_deg,omitempty"`
	TandemMinHoldS          *float64 `json:"tandem_min_hold_s,omitempty"`
	ReachMinRatio           *float64 `json:"reach_min_ratio,omitempty"`
	ReachMinTrunkFlexionDeg *float64 `json:"reach_min_trunk_flexion_deg,omitempty"`
	ReachMaxTrunkFlexionDeg *float64 `json:"reach_max_trunk_flexion_deg,omitempty"`
	TreeMaxPelvicShiftDeg   *float64 `json:"tree_max_pelvic_shift_deg,omitempty"`
	TreeMaxTrunkSwayDeg     *float64 `json:"tree_max_trunk_sway_deg,omitempty"`
	TreeMaxArmMisalignDeg   *float64 `json:"tree_max_arm_misalign_deg,omitempty"`
	TreeMinHoldS            *float64 `json:"tree_min_hold_s,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the file keep their defaults, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that set values are within their operating ranges.
func (c *TuningConfig) Validate() error {
	if c.VisibilityRatio != nil {
		if *c.VisibilityRatio < 0 || *c.VisibilityRatio > 1 {
			return fmt.Errorf("visibility_ratio must be between 0 and 1, got %f", *c.VisibilityRatio)
		}
	}
	if c.KeyVisibility != nil {
		if *c.KeyVisibility < 0 || *c.KeyVisibility > 1 {
			return fmt.Errorf("key_visibility must be between 0 and 1, got %f", *c.KeyVisibility)
		}
	}
	if c.EdgeMarginFrac != nil {
		if *c.EdgeMarginFrac < 0 || *c.EdgeMarginFrac >= 0.5 {
			return fmt.Errorf("edge_margin_frac must be in [0, 0.5), got %f", *c.EdgeMarginFrac)
		}
	}
	if c.LostFramesLimit != nil && *c.LostFramesLimit < 1 {
		return fmt.Errorf("lost_frames_limit must be >= 1, got %d", *c.LostFramesLimit)
	}
	if c.MinKeyLandmarks != nil && (*c.MinKeyLandmarks < 1 || *c.MinKeyLandmarks > 11) {
		return fmt.Errorf("min_key_landmarks must be in [1, 11], got %d", *c.MinKeyLandmarks)
	}
	if c.PartialFrames != nil && *c.PartialFrames < 1 {
		return fmt.Errorf("partial_frames must be >= 1, got %d", *c.PartialFrames)
	}
	if c.CenterHistoryLen != nil && *c.CenterHistoryLen < 0 {
		return fmt.Errorf("center_history_len must be non-negative, got %d", *c.CenterHistoryLen)
	}
	return nil
}

// FramingConfig materialises the framing tuning, applying defaults for any
// unset field.
func (c *TuningConfig) FramingConfig() pose.FramingConfig {
	fc := pose.DefaultFramingConfig()
	if c.LostFramesLimit != nil {
		fc.LostFramesLimit = *c.LostFramesLimit
	}
	if c.MinKeyLandmarks != nil {
		fc.MinKeyLandmarks = *c.MinKeyLandmarks
	}
	if c.PartialFrames != nil {
		fc.PartialFrames = *c.PartialFrames
	}
	if c.EdgeMarginFrac != nil {
		fc.EdgeMarginFrac = *c.EdgeMarginFrac
	}
	if c.VisibilityRatio != nil {
		fc.VisibilityRatio = *c.VisibilityRatio
	}
	if c.KeyVisibility != nil {
		fc.KeyVisibility = *c.KeyVisibility
	}
	if c.CenterHistoryLen != nil {
		fc.CenterHistoryLen = *c.CenterHistoryLen
	}
	return fc
}

// Thresholds materialises the exercise thresholds, applying defaults for any
// unset field.
func (c *TuningConfig) Thresholds() pose.Thresholds {
	th := pose.DefaultThresholds()
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&th.SquatMinDepthDeg, c.SquatMinDepthDeg)
	setF(&th.SquatMaxForwardLeanDeg, c.SquatMaxForwardLeanDeg)
	setF(&th.SquatMaxKneeValgusDeg, c.SquatMaxKneeValgusDeg)
	setF(&th.SquatMaxHeelLiftCM, c.SquatMaxHeelLiftCM)
	setF(&th.HeelMinRaiseCM, c.HeelMinRaiseCM)
	setF(&th.HeelSymmetryMaxDiffPct, c.HeelSymmetryMaxDiffPct)
	setF(&th.HeelMaxAnkleRollDeg, c.HeelMaxAnkleRollDeg)
	setF(&th.SLSMinHoldS, c.SLSMinHoldS)
	setF(&th.SLSMaxSwayDeg, c.SLSMaxSwayDeg)
	setF(&th.SLSMaxPelvicDropDeg, c.SLSMaxPelvicDropDeg)
	setF(&th.TandemMaxFootLineDevDeg, c.TandemMaxFootLineDevDeg)
	setF(&th.TandemMaxTrunkLeanDeg, c.TandemMaxTrunkLeanDeg)
	setF(&th.TandemMinHoldS, c.TandemMinHoldS)
	setF(&th.ReachMinRatio, c.ReachMinRatio)
	setF(&th.ReachMinTrunkFlexionDeg, c.ReachMinTrunkFlexionDeg)
	setF(&th.ReachMaxTrunkFlexionDeg, c.ReachMaxTrunkFlexionDeg)
	setF(&th.TreeMaxPelvicShiftDeg, c.TreeMaxPelvicShiftDeg)
	setF(&th.TreeMaxTrunkSwayDeg, c.TreeMaxTrunkSwayDeg)
	setF(&th.TreeMaxArmMisalignDeg, c.TreeMaxArmMisalignDeg)
	setF(&th.TreeMinHoldS, c.TreeMinHoldS)
	return th
}
