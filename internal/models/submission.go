package models

import "time"

// SubmissionStatus is the lifecycle state of a submission. Values other than
// the constants below are allowed: unknown review actions are stored verbatim.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// StatusForAction maps a review action to the resulting status.
// approve and reject map to approved and rejected; anything else is kept as is.
func StatusForAction(action string) SubmissionStatus {
	switch action {
	case ActionApprove:
		return StatusApproved
	case ActionReject:
		return StatusRejected
	default:
		return SubmissionStatus(action)
	}
}

// Submission is one batch of solutions generated for one challenge.
type Submission struct {
	ID          string           `json:"submission_id"`
	Challenge   ChallengeInput   `json:"challenge"`
	Solutions   []Solution       `json:"solutions"`
	SubmittedAt time.Time        `json:"submitted_at"`
	Status      SubmissionStatus `json:"status"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty"`
	Feedback    *string          `json:"feedback,omitempty"`
}

// ReviewAction is the body of a review request.
type ReviewAction struct {
	Action   string  `json:"action"`
	Feedback *string `json:"feedback,omitempty"`
}

// SubmissionList is a snapshot of every submission with derived counts.
type SubmissionList struct {
	Total       int          `json:"total"`
	Pending     int          `json:"pending"`
	Approved    int          `json:"approved"`
	Rejected    int          `json:"rejected"`
	Submissions []Submission `json:"submissions"`
}

// PendingList is a snapshot of the pending submissions.
type PendingList struct {
	Count       int          `json:"count"`
	Submissions []Submission `json:"submissions"`
}

// NewSubmissionList derives the aggregate counts from subs.
func NewSubmissionList(subs []Submission) SubmissionList {
	list := SubmissionList{Total: len(subs), Submissions: subs}
	for _, s := range subs {
		switch s.Status {
		case StatusPending:
			list.Pending++
		case StatusApproved:
			list.Approved++
		case StatusRejected:
			list.Rejected++
		}
	}
	return list
}
