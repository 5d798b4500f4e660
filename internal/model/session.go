package model

import "time"

// MinPersistedSeconds is the shortest focus phase that is written to the
// session store.
const MinPersistedSeconds = 60

// PersistedSession is a completed focus phase as stored in the sessions table.
// StartedAt and FinishedAt are epoch seconds.
type PersistedSession struct {
	ID              int64     `json:"id"`
	DurationSeconds int       `json:"duration"`
	Summary         *string   `json:"summary,omitempty"`
	StartedAt       int64     `json:"startedAt"`
	FinishedAt      int64     `json:"finishedAt"`
	IntentID        int64     `json:"intentId"`
	CreatedAt       time.Time `json:"createdAt"`
}

type SessionFilter struct {
	IntentID *int64
	Since    *int64
	Limit    int
}
