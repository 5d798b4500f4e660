package model

const (
	PhaseFocus      PhaseKind = "focus"
	PhaseShortBreak PhaseKind = "short_break"
	PhaseLongBreak  PhaseKind = "long_break"
)

type PhaseKind string

func (k PhaseKind) Valid() bool {
	return k == PhaseFocus || k == PhaseShortBreak || k == PhaseLongBreak
}

// IsBreak reports whether the phase is one of the break kinds.
func (k PhaseKind) IsBreak() bool {
	return k == PhaseShortBreak || k == PhaseLongBreak
}

type Intent struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Session is the phase currently driven by the timer engine.
type Session struct {
	Kind            PhaseKind `json:"kind"`
	DurationMinutes int       `json:"duration"`
	ElapsedSeconds  int       `json:"elapsed"`
	StartedAt       *int64    `json:"startedAt,omitempty"`
	IsPlaying       bool      `json:"isPlaying"`
	Intent          Intent    `json:"intent"`
}

// DurationSeconds is the phase length the elapsed counter runs up to.
func (s Session) DurationSeconds() int {
	return s.DurationMinutes * 60
}

// Clone returns a copy that shares no memory with s.
func (s Session) Clone() Session {
	if s.StartedAt != nil {
		startedAt := *s.StartedAt
		s.StartedAt = &startedAt
	}
	return s
}

type QueueEntry struct {
	Intent          Intent `json:"intent"`
	DurationMinutes int    `json:"duration"`
	Iterations      int    `json:"iterations"`
}
