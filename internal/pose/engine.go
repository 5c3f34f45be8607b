package pose

// Engine bundles the rule set and framing configuration behind a single
// entrypoint. It is stateless and safe for concurrent use; all per-session
// state lives in the FramingState the caller owns.
type Engine struct {
	rules      *RuleSet
	framingCfg FramingConfig
}

// NewEngine builds an engine from explicit tuning.
func NewEngine(th Thresholds, fc FramingConfig) *Engine {
	return &Engine{rules: NewRuleSet(th), framingCfg: fc}
}

// NewDefaultEngine builds an engine with default thresholds and framing.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultThresholds(), DefaultFramingConfig())
}

// NewSession returns a fresh framing state for a new camera/video stream.
func (e *Engine) NewSession() *FramingState {
	return NewFramingState(e.framingCfg)
}

// Validate runs the full per-frame pipeline: landmark validation, geometry,
// rule evaluation, scoring. A non-nil session state contributes its center
// history to temporal metrics; frames must arrive in order for that state to
// stay coherent.
//
// Errors are MalformedLandmarksError or UnsupportedExerciseError; partial
// visibility never errors, it degrades individual metrics instead.
func (e *Engine) Validate(poseType string, landmarks []Landmark, state *FramingState) (ValidationResult, error) {
	spec, err := e.rules.Resolve(poseType)
	if err != nil {
		return ValidationResult{}, err
	}
	frame, err := NewPoseFrame(landmarks)
	if err != nil {
		return ValidationResult{}, err
	}
	return Evaluate(spec, ComputeMetrics(frame, state)), nil
}

// CheckFraming validates the landmarks (nil slice means "no pose detected")
// and advances the session's framing state machine one step.
func (e *Engine) CheckFraming(landmarks []Landmark, width, height float64, state *FramingState) (FramingResult, error) {
	if landmarks == nil {
		return state.Advance(nil, width, height), nil
	}
	frame, err := NewPoseFrame(landmarks)
	if err != nil {
		return FramingResult{}, err
	}
	return state.Advance(frame, width, height), nil
}
