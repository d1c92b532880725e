package timetrack

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StateIdle    = "idle"
	StateRunning = "running"
	StatePaused  = "paused"
)

// Session is the durable timer record for one holder on one task. It is written on
// every transition so a restart can pick it up.
type Session struct {
	TaskID             string     `json:"taskId"`
	HolderID           string     `json:"holderId"`
	State              string     `json:"state"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	AccumulatedSeconds int64      `json:"accumulatedSeconds"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type Task struct {
	ID             string          `json:"id"`
	ParentID       string          `json:"parentId,omitempty"`
	Title          string          `json:"title"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	ActualHours    decimal.Decimal `json:"actualHours"`
	TrackedMinutes int             `json:"trackedMinutes"`
}

func (t Task) IsSubtask() bool {
	return t.ParentID != ""
}

type TimerView struct {
	Session
	ElapsedSeconds int64           `json:"elapsedSeconds"`
	ElapsedHours   decimal.Decimal `json:"elapsedHours"`
}

type StopResult struct {
	Session   Session         `json:"session"`
	Seconds   int64           `json:"seconds"`
	Hours     decimal.Decimal `json:"hours"`
	Committed bool            `json:"committed"`
}

type Effort struct {
	TaskID         string          `json:"taskId"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	ActualHours    decimal.Decimal `json:"actualHours"`
	SubtaskMinutes int             `json:"subtaskMinutes"`
	EffectiveHours decimal.Decimal `json:"effectiveHours"`
	Progress       *float64        `json:"progress"`
	OverEstimate   bool            `json:"overEstimate"`
}
