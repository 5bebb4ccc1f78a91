package models

import "time"

// FocusGroupMode controls the discussion tone a persona is prompted with.
type FocusGroupMode string

const (
	ModeNormal FocusGroupMode      = "normal"
	ModeAdversarial FocusGroupMode = "adversarial"
)

// FocusGroupStatus is one of the four exact strings the state machine uses.
// Dashboards and the API surface depend on these literal values.
type FocusGroupStatus string

const (
	StatusPending FocusGroupStatus   = "pending"
	StatusRunning FocusGroupStatus   = "running"
	StatusCompleted FocusGroupStatus = "completed"
	StatusFailed FocusGroupStatus    = "failed"
)

// FocusGroup drives N personas through M ordered questions.
type FocusGroup struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`

	PersonaIDs []string       `json:"persona_ids"`
	Questions  []string       `json:"questions"`
	Mode       FocusGroupMode `json:"mode"`

	Status FocusGroupStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	TotalExecutionTimeMS int64   `json:"total_execution_time_ms"`
	AvgResponseTimeMS    float64 `json:"avg_response_time_ms"`
	MeetsRequirements    bool    `json:"meets_requirements"`

	PolarizationScore       float64 `json:"polarization_score,omitempty"`
	OverallConsistencyScore float64 `json:"overall_consistency_score,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`

	Summary map[string]any `json:"summary,omitempty"`
}

// IsTerminal reports whether the focus group has reached completed or failed.
func (f *FocusGroup) IsTerminal() bool {
	return f.Status == StatusCompleted || f.Status == StatusFailed
}

// PersonaResponse is one (persona, focus_group, question) cell.
type PersonaResponse struct {
	ID            string `json:"id"`
	FocusGroupID  string `json:"focus_group_id"`
	PersonaID     string `json:"persona_id"`
	QuestionIndex int    `json:"question_index"`
	Question      string `json:"question"`

	ResponseText string `json:"response_text"`
	LatencyMS    int64  `json:"latency_ms"`

	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message,omitempty"`

	ConsistencyScore *float64 `json:"consistency_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
