package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/copilot/internal/models"
)

// DefaultMaxCandidates is how many retrieved technologies are shown to the model.
const DefaultMaxCandidates = 12

const (
	notSpecified  = "Not specified"
	noneSpecified = "None specified"
)

// PromptCandidates returns the candidates shown to the model: the first max in retrieval order.
func PromptCandidates(candidates []models.RetrievedTechnology, max int) []models.RetrievedTechnology {
	if max <= 0 {
		max = DefaultMaxCandidates
	}
	if len(candidates) > max {
		return candidates[:max]
	}
	return candidates
}

// BuildPrompt renders the generation prompt for challenge over the given candidates.
// Absent optional challenge fields render as "Not specified".
func BuildPrompt(challenge models.ChallengeInput, candidates []models.RetrievedTechnology) string {
	validIDs := make([]string, len(candidates))
	blocks := make([]string, len(candidates))
	for i, c := range candidates {
		id := models.TechIDString(c.ID)
		validIDs[i] = id
		blocks[i] = fmt.Sprintf("Technology %s:\n- Title: %s\n- Provider: %s\n- Description: %s\n- TRL: %s\n- Category: %s / %s",
			id, c.Title, c.Provider, c.Description, c.TRL, c.Category, c.SubCategory)
	}
	example := func(i int) string {
		if i < len(validIDs) {
			return validIDs[i]
		}
		return strconv.Itoa(i)
	}
	constraints := noneSpecified
	if len(challenge.Constraints) > 0 {
		constraints = strings.Join(challenge.Constraints, ", ")
	}

	var b strings.Builder
	b.WriteString("You are an innovation consultant specializing in net-zero technology solutions. \n\n")
	b.WriteString("CLIENT CHALLENGE:\n")
	b.WriteString(challenge.Description)
	b.WriteString("\n\nCONTEXT:\n")
	fmt.Fprintf(&b, "- Industry: %s\n", stringOr(challenge.IndustrySector))
	fmt.Fprintf(&b, "- Emissions Baseline: %s tCO2e/year\n", floatOr(challenge.EmissionsBaseline))
	fmt.Fprintf(&b, "- Target Reduction: %s%%\n", floatOr(challenge.TargetReduction))
	fmt.Fprintf(&b, "- Timeline: %s months\n", intOr(challenge.TimelineMonths))
	fmt.Fprintf(&b, "- Budget: %s\n", stringOr(challenge.BudgetRange))
	fmt.Fprintf(&b, "- Constraints: %s\n\n", constraints)
	b.WriteString("AVAILABLE TECHNOLOGIES:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nIMPORTANT RULES:\n")
	fmt.Fprintf(&b, "1. Use technology IDs ONLY from this list: %s\n", strings.Join(validIDs, ", "))
	b.WriteString(`2. Each solution can combine 3-4 technologies to create synergistic value
3. Explain WHY each technology is essential to the solution
4. The description field should be 4-5 sentences explaining the complete solution concept
5. Focus on innovative combinations that address multiple aspects of the challenge

TASK:
Generate 3 distinct solution concepts. Each solution should:
- Combine 3-4 complementary technologies that work together
- Have a clear, compelling title that captures the solution's essence
- Include a detailed description (4-5 sentences) covering: what the solution does, how technologies integrate, expected outcomes, and key innovation
- Explain the specific role of each technology in the combination
- List 4 concrete benefits (quantify where possible)
- Identify 3-4 realistic integration challenges
- Provide honest feasibility assessment based on TRL levels and complexity

CRITICAL: Output ONLY the JSON object below, with NO explanatory text before or after.

Example structure (use 3-4 technologies per solution):
`)
	fmt.Fprintf(&b, exampleTemplate,
		example(0), example(1), example(2),
		example(0), example(1), example(2))
	b.WriteString("\n\nNow generate 3 innovative solutions following this format exactly.")
	return b.String()
}

const exampleTemplate = `{
  "solutions": [
    {
      "solution_id": 1,
      "title": "Descriptive Solution Name That Captures the Innovation",
      "technology_ids": ["%s", "%s", "%s"],
      "description": "A comprehensive 4-5 sentence description that explains the complete solution concept. This should cover what the solution achieves, how the technologies work together as a system, the expected quantitative impact on emissions reduction, and what makes this combination innovative. Be specific about integration points between technologies and how they create synergistic value beyond using them independently.",
      "how_it_works": "Detailed technical explanation of the integrated system, describing the flow of energy/materials/data between components, operational sequence, control mechanisms, and how each technology enables the others to function more effectively. Include specific technical details about integration points.",
      "technology_roles": {
        "%s": "Specific detailed role explaining what this technology contributes and why it's essential",
        "%s": "Specific detailed role explaining integration with other components",
        "%s": "Specific detailed role explaining unique value it adds to the system"
      },
      "benefits": [
        "Quantified emissions reduction: specific percentage or tonnage",
        "Operational benefit with measurable impact",
        "Economic benefit with estimated savings or ROI timeframe",
        "Additional strategic or compliance benefit"
      ],
      "integration_considerations": [
        "Technical integration challenge with specific details",
        "Operational or safety consideration requiring attention",
        "Commercial or regulatory hurdle to address"
      ],
      "feasibility": "High",
      "timeline_estimate": "24-30 months",
      "estimated_cost_range": "High (£8M-£15M)"
    }
  ]
}`

func stringOr(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return notSpecified
	}
	return *v
}

func floatOr(v *float64) string {
	if v == nil {
		return notSpecified
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intOr(v *int) string {
	if v == nil {
		return notSpecified
	}
	return strconv.Itoa(*v)
}
