package synth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// draftSolution is the model's solution entry after parsing, before ids are resolved.
type draftSolution struct {
	SolutionID                flexInt           `json:"solution_id"`
	Title                     string            `json:"title"`
	TechnologyIDs             []flexString      `json:"technology_ids"`
	Description               string            `json:"description"`
	HowItWorks                string            `json:"how_it_works"`
	TechnologyRoles           map[string]string `json:"technology_roles"`
	Benefits                  []string          `json:"benefits"`
	IntegrationConsiderations []string          `json:"integration_considerations"`
	Feasibility               string            `json:"feasibility"`
	TimelineEstimate          string            `json:"timeline_estimate"`
	EstimatedCostRange        string            `json:"estimated_cost_range"`
}

// flexString accepts a JSON string or number. Models emit ids both ways.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("technology id must be a string or number: %s", b)
	}
	// 2.0 names the same technology as 2.
	if v, err := n.Float64(); err == nil && isIntegral(v) {
		*f = flexString(strconv.FormatInt(int64(v), 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if n, err := strconv.Atoi(string(s)); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil || !isIntegral(v) {
		return fmt.Errorf("solution_id must be an integer: %s", b)
	}
	*f = flexInt(int(v))
	return nil
}

func isIntegral(v float64) bool {
	return v == math.Trunc(v) && math.Abs(v) <= 1<<53
}

// decodeDrafts parses the extracted object: untyped first to check the
// top-level shape, then the solutions array into drafts.
func decodeDrafts(raw string) ([]draftSolution, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return nil, newError(CodeInvalidJSON, "model returned invalid JSON", err)
	}
	sols, ok := top["solutions"]
	if !ok {
		return nil, newError(CodeMissingField, "model response missing 'solutions' key", nil)
	}
	var drafts []draftSolution
	if err := json.Unmarshal(sols, &drafts); err != nil {
		return nil, newError(CodeInvalidJSON, "model returned malformed solutions", err)
	}
	return drafts, nil
}
