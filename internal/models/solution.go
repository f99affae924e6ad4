package models

import "strconv"

// Solution is a generated solution concept. ID is scoped to its batch.
type Solution struct {
	ID                        int               `json:"solution_id"`
	Title                     string            `json:"title"`
	Technologies              []TechnologyMatch `json:"technologies"`
	Description               string            `json:"description"`
	HowItWorks                string            `json:"how_it_works"`
	Benefits                  []string          `json:"benefits"`
	IntegrationConsiderations []string          `json:"integration_considerations"`
	Feasibility               string            `json:"feasibility"`
	TimelineEstimate          string            `json:"timeline_estimate"`
	EstimatedCostRange        string            `json:"estimated_cost_range"`
}

// GenerationResult is returned to callers of the generate operation.
type GenerationResult struct {
	Solutions            []Solution `json:"solutions"`
	ProcessingTime       float64    `json:"processing_time"`
	TechnologiesAnalyzed int        `json:"technologies_analyzed"`
	SubmissionID         string     `json:"submission_id,omitempty"`
}

// TechIDString formats a dense catalog id the way it appears in prompts and model output.
func TechIDString(id int) string {
	return strconv.Itoa(id)
}
