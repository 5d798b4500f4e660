package model

const (
	DefaultFocusMinutes      = 25
	DefaultBreakMinutes      = 5
	DefaultLongBreakMinutes  = 10
	DefaultLongBreakInterval = 4
)

// TimerPolicy is the user configuration consulted at every phase boundary.
type TimerPolicy struct {
	FocusMinutes      int  `json:"focusDuration" yaml:"focus_duration"`
	BreakMinutes      int  `json:"breakDuration" yaml:"break_duration"`
	LongBreakMinutes  int  `json:"longBreakDuration" yaml:"long_break_duration"`
	LongBreakInterval int  `json:"longBreakInterval" yaml:"long_break_interval"`
	AutoStartFocus    bool `json:"autoStartFocus" yaml:"auto_start_focus"`
	AutoStartBreaks   bool `json:"autoStartBreaks" yaml:"auto_start_breaks"`
	SessionSummary    bool `json:"sessionSummary" yaml:"session_summary"`
}

func DefaultTimerPolicy() TimerPolicy {
	return TimerPolicy{
		FocusMinutes:      DefaultFocusMinutes,
		BreakMinutes:      DefaultBreakMinutes,
		LongBreakMinutes:  DefaultLongBreakMinutes,
		LongBreakInterval: DefaultLongBreakInterval,
		AutoStartFocus:    false,
		AutoStartBreaks:   false,
		SessionSummary:    true,
	}
}

// Normalize replaces durations and intervals below one with their defaults.
func (p TimerPolicy) Normalize() TimerPolicy {
	if p.FocusMinutes < 1 {
		p.FocusMinutes = DefaultFocusMinutes
	}
	if p.BreakMinutes < 1 {
		p.BreakMinutes = DefaultBreakMinutes
	}
	if p.LongBreakMinutes < 1 {
		p.LongBreakMinutes = DefaultLongBreakMinutes
	}
	if p.LongBreakInterval < 1 {
		p.LongBreakInterval = DefaultLongBreakInterval
	}
	return p
}

// TimerPolicyUpdate is a partial update; nil fields keep their current value.
type TimerPolicyUpdate struct {
	FocusMinutes      *int  `json:"focusDuration"`
	BreakMinutes      *int  `json:"breakDuration"`
	LongBreakMinutes  *int  `json:"longBreakDuration"`
	LongBreakInterval *int  `json:"longBreakInterval"`
	AutoStartFocus    *bool `json:"autoStartFocus"`
	AutoStartBreaks   *bool `json:"autoStartBreaks"`
	SessionSummary    *bool `json:"sessionSummary"`
}

func (u TimerPolicyUpdate) Apply(p TimerPolicy) TimerPolicy {
	if u.FocusMinutes != nil {
		p.FocusMinutes = *u.FocusMinutes
	}
	if u.BreakMinutes != nil {
		p.BreakMinutes = *u.BreakMinutes
	}
	if u.LongBreakMinutes != nil {
		p.LongBreakMinutes = *u.LongBreakMinutes
	}
	if u.LongBreakInterval != nil {
		p.LongBreakInterval = *u.LongBreakInterval
	}
	if u.AutoStartFocus != nil {
		p.AutoStartFocus = *u.AutoStartFocus
	}
	if u.AutoStartBreaks != nil {
		p.AutoStartBreaks = *u.AutoStartBreaks
	}
	if u.SessionSummary != nil {
		p.SessionSummary = *u.SessionSummary
	}
	return p
}
