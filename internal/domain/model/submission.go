package model

import "time"

type SubmissionStatus string

const (
	StatusInFlight SubmissionStatus = "InFlight" // created before judging, for auditability
	StatusAccepted SubmissionStatus = "Accepted"
	StatusRejected SubmissionStatus = "Rejected"
	StatusError    SubmissionStatus = "Error"
)

type Submission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	ProblemID   string           `json:"problem_id"`
	RoomID      string           `json:"room_id,omitempty"`
	Code        string           `json:"code"`
	Language    string           `json:"language"`
	Status      SubmissionStatus `json:"status"`
	PassedCount int              `json:"passed_count"`
	TotalCount  int              `json:"total_count"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}
