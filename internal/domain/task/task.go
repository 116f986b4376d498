package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an analysis task.
// Transitions are strictly forward: pending -> running -> completed|failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// StatusError is the wire form of StatusFailed. Notifications carry
	// pending|running|completed|error; failed stays internal.
	StatusError Status = "error"
)

// Terminal reports whether the status is final
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusError
}

// Wire maps an internal status to the form notifications carry
func (s Status) Wire() Status {
	if s == StatusFailed {
		return StatusError
	}
	return s
}

// Stage names one independently-failing unit of analysis work
type Stage string

const (
	StageQuantitative Stage = "quantitative"
	StageQualitative  Stage = "qualitative"
	StageSynthesis    Stage = "synthesis"
)

// StageResult is the outcome of one adapter invocation.
// Err is set instead of raising a fault; a StageResult is immutable once
// attached to a Task.
type StageResult struct {
	Stage   Stage           `json:"stage"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Text    string          `json:"text,omitempty"`
	Err     string          `json:"error,omitempty"`
}

// OK reports whether the stage produced a usable result
func (r StageResult) OK() bool {
	return r.Err == ""
}

// Failed builds an error StageResult
func Failed(stage Stage, err error) StageResult {
	return StageResult{Stage: stage, Err: err.Error()}
}

// Task is one analysis request tracked by the orchestrator.
// Only the orchestrator goroutine that owns the task id mutates it.
type Task struct {
	ID          string       `json:"task_id"`
	Ticker      string       `json:"ticker"`
	CompanyName string       `json:"company_name"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	CompletedAt time.Time    `json:"completed_at,omitzero"`

	Quantitative *StageResult `json:"quantitative,omitempty"`
	Qualitative  *StageResult `json:"qualitative,omitempty"`
	Synthesis    *StageResult `json:"synthesis,omitempty"`

	ErrDetail string `json:"error_detail,omitempty"`
}

// New creates a pending task with a fresh opaque id
func New(ticker, companyName string) *Task {
	return &Task{
		ID:          uuid.NewString(),
		Ticker:      ticker,
		CompanyName: companyName,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}

// Notification is one frame on the streaming relay. Exactly one notification
// per task has a terminal status, and it is the last one sent.
type Notification struct {
	Status Status          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Result is the payload carried by a completed terminal notification
type Result struct {
	Ticker       string          `json:"ticker"`
	CompanyName  string          `json:"company_name"`
	Synthesis    string          `json:"synthesis"`
	Quantitative json.RawMessage `json:"quantitative_data,omitempty"`
	Qualitative  string          `json:"qualitative_summary,omitempty"`
}

// ErrorDetail is the payload carried by an error terminal notification
type ErrorDetail struct {
	Message string `json:"message"`
}
