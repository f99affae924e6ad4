// Package synth turns a challenge and retrieved technologies into solution
// concepts using the text-generation service, and validates what comes back.
package synth

import (
	"context"

	"github.com/hyperjump/copilot/internal/llm"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/pkg/utils"
	"go.uber.org/zap"
)

// DefaultReasoning is attached when the model gives no role for a technology.
const DefaultReasoning = "Key component"

// Synthesizer builds prompts, calls the generator and maps its output to solutions.
type Synthesizer struct {
	generator     llm.Generator
	options       llm.Options
	maxCandidates int
	logger        *zap.Logger
}

// New creates a synthesizer. maxCandidates <= 0 uses DefaultMaxCandidates.
func New(generator llm.Generator, options llm.Options, maxCandidates int, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &Synthesizer{generator: generator, options: options, maxCandidates: maxCandidates, logger: logger}
}

// Synthesize returns at least one solution or a *GenerationError.
func (s *Synthesizer) Synthesize(ctx context.Context, challenge models.ChallengeInput, candidates []models.RetrievedTechnology) ([]models.Solution, error) {
	prompt := BuildPrompt(challenge, PromptCandidates(candidates, s.maxCandidates))
	raw, err := s.generator.Generate(ctx, prompt, s.options)
	if err != nil {
		return nil, newError(CodeModelUnavailable, "text generation failed", err)
	}
	s.logger.Debug("model responded", zap.Int("chars", len(raw)))
	return s.Parse(raw, candidates)
}

// Parse extracts, decodes and resolves a raw model response against candidates.
func (s *Synthesizer) Parse(raw string, candidates []models.RetrievedTechnology) ([]models.Solution, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		s.logger.Warn("could not extract JSON from model response",
			zap.Error(err), zap.String("response_head", utils.Truncate(raw, 500)))
		return nil, err
	}
	drafts, err := decodeDrafts(obj)
	if err != nil {
		s.logger.Warn("could not decode model response", zap.Error(err))
		return nil, err
	}

	byID := make(map[string]models.RetrievedTechnology, len(candidates))
	for _, c := range candidates {
		byID[models.TechIDString(c.ID)] = c
	}

	solutions := make([]models.Solution, 0, len(drafts))
	for i, d := range drafts {
		id := int(d.SolutionID)
		if id == 0 {
			id = i + 1
		}
		matches := make([]models.TechnologyMatch, 0, len(d.TechnologyIDs))
		for _, techID := range d.TechnologyIDs {
			c, ok := byID[string(techID)]
			if !ok {
				s.logger.Warn("skipping unknown technology id", zap.Int("solution_id", id), zap.String("tech_id", string(techID)))
				continue
			}
			reasoning, ok := d.TechnologyRoles[string(techID)]
			if !ok {
				reasoning = DefaultReasoning
			}
			matches = append(matches, models.NewTechnologyMatch(c, reasoning))
		}
		if len(matches) == 0 {
			s.logger.Warn("dropping solution with no resolvable technologies", zap.Int("solution_id", id), zap.String("title", d.Title))
			continue
		}
		solutions = append(solutions, models.Solution{
			ID:                        id,
			Title:                     d.Title,
			Technologies:              matches,
			Description:               d.Description,
			HowItWorks:                d.HowItWorks,
			Benefits:                  nonNil(d.Benefits),
			IntegrationConsiderations: nonNil(d.IntegrationConsiderations),
			Feasibility:               d.Feasibility,
			TimelineEstimate:          d.TimelineEstimate,
			EstimatedCostRange:        d.EstimatedCostRange,
		})
	}
	if len(solutions) == 0 {
		return nil, newError(CodeNoSolutionsProduced, "no valid solutions generated", nil)
	}
	return solutions, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
