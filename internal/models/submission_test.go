package models

import (
	"math"
	"testing"
)

func TestStatusForAction(t *testing.T) {
	tests := []struct {
		action string
		want   SubmissionStatus
	}{
		{"approve", StatusApproved},
		{"reject", StatusRejected},
		{"escalate", SubmissionStatus("escalate")},
		{"", SubmissionStatus("")},
	}
	for _, tt := range tests {
		if got := StatusForAction(tt.action); got != tt.want {
			t.Errorf("StatusForAction(%q) = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestNewSubmissionList_counts(t *testing.T) {
	subs := []Submission{
		{ID: "a", Status: StatusPending},
		{ID: "b", Status: StatusApproved},
		{ID: "c", Status: StatusRejected},
		{ID: "d", Status: StatusApproved},
		{ID: "e", Status: "escalate"},
	}
	list := NewSubmissionList(subs)
	if list.Total != 5 || list.Pending != 1 || list.Approved != 2 || list.Rejected != 1 {
		t.Errorf("unexpected counts: %+v", list)
	}
}

func TestRetrievedTechnology_Relevance(t *testing.T) {
	r := RetrievedTechnology{Distance: 0.25}
	if got := r.Relevance(); got != 0.75 {
		t.Errorf("Relevance() = %v, want 0.75", got)
	}
	far := RetrievedTechnology{Distance: 1.5}
	if got := far.Relevance(); got != -0.5 {
		t.Errorf("Relevance() must not clamp, got %v", got)
	}
}

func TestNewTechnologyMatch(t *testing.T) {
	r := RetrievedTechnology{
		TechnologyRecord: TechnologyRecord{ID: 7, Title: "Heat pump", TRL: "8"},
		Distance:         0.1,
	}
	m := NewTechnologyMatch(r, "recovers heat")
	if m.TechID != "7" || m.Title != "Heat pump" || m.Reasoning != "recovers heat" {
		t.Errorf("unexpected match: %+v", m)
	}
	if math.Abs(m.RelevanceScore-0.9) > 1e-9 {
		t.Errorf("relevance: got %v", m.RelevanceScore)
	}
}
