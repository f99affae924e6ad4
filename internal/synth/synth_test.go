package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/copilot/internal/llm"
	"github.com/hyperjump/copilot/internal/models"
)

type fakeGenerator struct {
	response string
	err      error
	prompt   string
	opts     llm.Options
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.prompt = prompt
	f.opts = opts
	return f.response, f.err
}

func (f *fakeGenerator) Ping(ctx context.Context) error { return f.err }

func candidates(n int) []models.RetrievedTechnology {
	out := make([]models.RetrievedTechnology, n)
	for i := range out {
		out[i] = models.RetrievedTechnology{
			TechnologyRecord: models.TechnologyRecord{
				ID:          i,
				Title:       "Tech " + models.TechIDString(i),
				Provider:    "Provider",
				Description: "Desc",
				Category:    "Energy",
				SubCategory: "Heat",
				TRL:         "7",
			},
			Distance: 0.25,
		}
	}
	return out
}

const goodResponse = `Sure! Here are the solutions:
{
  "solutions": [
    {
      "solution_id": 1,
      "title": "Heat loop",
      "technology_ids": ["0", 2, "9"],
      "description": "d",
      "how_it_works": "h",
      "technology_roles": {"0": "Captures heat"},
      "benefits": ["b1"],
      "integration_considerations": ["i1"],
      "feasibility": "High",
      "timeline_estimate": "24-30 months",
      "estimated_cost_range": "High"
    },
    {
      "solution_id": "2",
      "title": "Ghost",
      "technology_ids": ["5"],
      "technology_roles": {}
    }
  ]
}
Let me know if you need more.`

func TestSynthesize(t *testing.T) {
	gen := &fakeGenerator{response: goodResponse}
	opts := llm.Options{Temperature: 0.7, MaxTokens: 3072, TopP: 0.9}
	s := New(gen, opts, 0, nil)

	sols, err := s.Synthesize(context.Background(), models.ChallengeInput{Description: "cut flare emissions"}, candidates(3))
	if err != nil {
		t.Fatal(err)
	}
	if gen.opts != opts {
		t.Errorf("sampling options not passed: %+v", gen.opts)
	}
	if len(sols) != 1 {
		t.Fatalf("expected the unresolvable solution to be dropped, got %d", len(sols))
	}
	sol := sols[0]
	if sol.ID != 1 || sol.Title != "Heat loop" || len(sol.Technologies) != 2 {
		t.Fatalf("unexpected solution: %+v", sol)
	}
	if sol.Technologies[0].TechID != "0" || sol.Technologies[0].Reasoning != "Captures heat" {
		t.Errorf("unexpected first match: %+v", sol.Technologies[0])
	}
	if sol.Technologies[1].TechID != "2" || sol.Technologies[1].Reasoning != DefaultReasoning {
		t.Errorf("numeric id should resolve with default reasoning: %+v", sol.Technologies[1])
	}
	if sol.Technologies[0].RelevanceScore != 0.75 {
		t.Errorf("relevance = %f", sol.Technologies[0].RelevanceScore)
	}
}

func TestSynthesize_failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		genErr   error
		want     Code
	}{
		{"generator down", "", errors.New("connection refused"), CodeModelUnavailable},
		{"no json", "I'm sorry, I can't.", nil, CodeNoJSONFound},
		{"unterminated", `{"solutions": [`, nil, CodeUnterminatedJSON},
		{"invalid json", `{"solutions": [1,]}`, nil, CodeInvalidJSON},
		{"missing key", `{"ideas": []}`, nil, CodeMissingField},
		{"wrong shape", `{"solutions": {"a": 1}}`, nil, CodeInvalidJSON},
		{"all dropped", `{"solutions": [{"solution_id": 1, "title": "x", "technology_ids": ["5"], "technology_roles": {}}]}`, nil, CodeNoSolutionsProduced},
		{"empty list", `{"solutions": []}`, nil, CodeNoSolutionsProduced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeGenerator{response: tt.response, err: tt.genErr}, llm.Options{}, 12, nil)
			_, err := s.Synthesize(context.Background(), models.ChallengeInput{Description: "x"}, candidates(3))
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("expected ErrGenerationFailed, got %v", err)
			}
			if CodeOf(err) != tt.want {
				t.Errorf("code = %s, want %s", CodeOf(err), tt.want)
			}
		})
	}
}

func TestParse_integralFloatIDs(t *testing.T) {
	s := New(&fakeGenerator{}, llm.Options{}, 12, nil)
	resp := `{"solutions": [
		{"solution_id": 1.0, "title": "a", "technology_ids": [2.0, "0"], "technology_roles": {"2": "r"}},
		{"solution_id": "3.0", "title": "b", "technology_ids": [1], "technology_roles": {}}]}`
	sols, err := s.Parse(resp, candidates(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(sols) != 2 || sols[0].ID != 1 || sols[1].ID != 3 {
		t.Fatalf("unexpected solutions: %+v", sols)
	}
	if len(sols[0].Technologies) != 2 || sols[0].Technologies[0].TechID != "2" || sols[0].Technologies[0].Reasoning != "r" {
		t.Errorf("float technology id should resolve: %+v", sols[0].Technologies)
	}

	_, err = s.Parse(`{"solutions": [{"solution_id": 1.5, "title": "a", "technology_ids": ["0"]}]}`, candidates(3))
	if CodeOf(err) != CodeInvalidJSON {
		t.Errorf("fractional solution_id: code = %s", CodeOf(err))
	}
}

func TestSynthesize_resolvesAgainstAllCandidates(t *testing.T) {
	resp := `{"solutions": [{"solution_id": 1, "title": "t", "technology_ids": ["13"], "technology_roles": {"13": "r"}}]}`
	gen := &fakeGenerator{response: resp}
	s := New(gen, llm.Options{}, 12, nil)
	sols, err := s.Synthesize(context.Background(), models.ChallengeInput{Description: "x"}, candidates(15))
	if err != nil {
		t.Fatal(err)
	}
	if sols[0].Technologies[0].TechID != "13" {
		t.Errorf("unexpected match %+v", sols[0].Technologies[0])
	}
	if strings.Contains(gen.prompt, "Technology 13:") {
		t.Error("prompt should only list the first 12 candidates")
	}
}

func TestBuildPrompt(t *testing.T) {
	sector := "Oil & Gas"
	baseline := 50000.0
	months := 24
	p := BuildPrompt(models.ChallengeInput{
		Description:       "Reduce flaring",
		IndustrySector:    &sector,
		EmissionsBaseline: &baseline,
		TimelineMonths:    &months,
	}, candidates(2))

	for _, want := range []string{
		"CLIENT CHALLENGE:\nReduce flaring",
		"- Industry: Oil & Gas",
		"- Emissions Baseline: 50000 tCO2e/year",
		"- Target Reduction: Not specified%",
		"- Timeline: 24 months",
		"- Budget: Not specified",
		"- Constraints: None specified",
		"Technology 1:\n- Title: Tech 1\n- Provider: Provider",
		"- Category: Energy / Heat",
		"Use technology IDs ONLY from this list: 0, 1",
		`"technology_ids": ["0", "1", "2"]`,
		"Now generate 3 innovative solutions following this format exactly.",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_constraints(t *testing.T) {
	p := BuildPrompt(models.ChallengeInput{Description: "x", Constraints: []string{"offshore", "no downtime"}}, nil)
	if !strings.Contains(p, "- Constraints: offshore, no downtime") {
		t.Error("constraints should be comma joined")
	}
}

func TestPromptCandidates(t *testing.T) {
	if got := PromptCandidates(candidates(20), 12); len(got) != 12 || got[11].ID != 11 {
		t.Errorf("expected first 12, got %d", len(got))
	}
	if got := PromptCandidates(candidates(3), 0); len(got) != 3 {
		t.Errorf("expected all 3, got %d", len(got))
	}
}
