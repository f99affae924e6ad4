package models

// ChallengeInput describes a client problem. Numeric fields are passed
// through as given; no range validation is applied.
type ChallengeInput struct {
	Description       string   `json:"challenge_description"`
	IndustrySector    *string  `json:"industry_sector,omitempty"`
	EmissionsBaseline *float64 `json:"emissions_baseline,omitempty"`
	TargetReduction   *float64 `json:"target_reduction,omitempty"`
	TimelineMonths    *int     `json:"timeline_months,omitempty"`
	BudgetRange       *string  `json:"budget_range,omitempty"`
	Constraints       []string `json:"constraints"`
}
