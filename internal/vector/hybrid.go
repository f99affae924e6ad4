package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Default weights for hybrid ranking. Semantic similarity dominates; lexical
// matches lift exact provider and product names.
const (
	DefaultLexicalWeight  = 0.3
	DefaultSemanticWeight = 0.7
)

// HybridService keeps a semantic and a lexical collection under the same name
// and answers queries by fusing both rankings.
type HybridService struct {
	semantic       Service
	lexical        Service
	lexicalWeight  float64
	semanticWeight float64
	logger         *zap.Logger
}

// NewHybridService combines semantic and lexical services. Non-positive weights use the defaults.
func NewHybridService(semantic, lexical Service, lexicalWeight, semanticWeight float64, logger *zap.Logger) *HybridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lexicalWeight <= 0 && semanticWeight <= 0 {
		lexicalWeight, semanticWeight = DefaultLexicalWeight, DefaultSemanticWeight
	}
	return &HybridService{
		semantic:       semantic,
		lexical:        lexical,
		lexicalWeight:  lexicalWeight,
		semanticWeight: semanticWeight,
		logger:         logger,
	}
}

func (s *HybridService) CreateCollection(ctx context.Context, name string) (Collection, error) {
	sem, err := s.semantic.CreateCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	lex, err := s.lexical.CreateCollection(ctx, name)
	if errors.Is(err, ErrCollectionExists) {
		// left over from a run that failed half way
		if err = s.lexical.DeleteCollection(ctx, name); err == nil {
			lex, err = s.lexical.CreateCollection(ctx, name)
		}
	}
	if err != nil {
		_ = s.semantic.DeleteCollection(ctx, name)
		return nil, fmt.Errorf("lexical collection: %w", err)
	}
	return s.wrap(name, sem, lex), nil
}

// GetCollection requires both halves; a missing half is reported as not found so
// the indexer rebuilds.
func (s *HybridService) GetCollection(ctx context.Context, name string) (Collection, error) {
	sem, err := s.semantic.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	lex, err := s.lexical.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.wrap(name, sem, lex), nil
}

func (s *HybridService) DeleteCollection(ctx context.Context, name string) error {
	errSem := s.semantic.DeleteCollection(ctx, name)
	errLex := s.lexical.DeleteCollection(ctx, name)
	if errors.Is(errSem, ErrCollectionNotFound) && errors.Is(errLex, ErrCollectionNotFound) {
		return errSem
	}
	if errSem != nil && !errors.Is(errSem, ErrCollectionNotFound) {
		return errSem
	}
	if errLex != nil && !errors.Is(errLex, ErrCollectionNotFound) {
		return errLex
	}
	return nil
}

func (s *HybridService) Close() error {
	return errors.Join(s.semantic.Close(), s.lexical.Close())
}

func (s *HybridService) wrap(name string, sem, lex Collection) *hybridCollection {
	return &hybridCollection{
		name:           name,
		semantic:       sem,
		lexical:        lex,
		lexicalWeight:  s.lexicalWeight,
		semanticWeight: s.semanticWeight,
		logger:         s.logger,
	}
}

type hybridCollection struct {
	name           string
	semantic       Collection
	lexical        Collection
	lexicalWeight  float64
	semanticWeight float64
	logger         *zap.Logger
}

func (c *hybridCollection) Name() string {
	return c.name
}

func (c *hybridCollection) Add(ctx context.Context, ids []string, documents []string, metadatas []map[string]string) error {
	if err := c.semantic.Add(ctx, ids, documents, metadatas); err != nil {
		return err
	}
	if err := c.lexical.Add(ctx, ids, documents, metadatas); err != nil {
		return fmt.Errorf("lexical add: %w", err)
	}
	return nil
}

// Count reports the semantic half, which is what retrieval depends on.
func (c *hybridCollection) Count(ctx context.Context) (int, error) {
	return c.semantic.Count(ctx)
}

// Query over-fetches from both halves, fuses the scores and returns the top k
// with Distance = 1 - fused score.
func (c *hybridCollection) Query(ctx context.Context, text string, k int) ([]QueryResult, error) {
	if k <= 0 {
		return nil, nil
	}
	sem, err := c.semantic.Query(ctx, text, 2*k)
	if err != nil {
		return nil, err
	}
	lex, err := c.lexical.Query(ctx, text, 2*k)
	if err != nil {
		// semantic ranking alone is still a valid answer
		c.logger.Warn("lexical query failed, using semantic ranking only", zap.Error(err))
		lex = nil
	}

	byID := make(map[string]QueryResult, len(sem)+len(lex))
	for _, r := range lex {
		byID[r.ID] = r
	}
	for _, r := range sem {
		byID[r.ID] = r
	}
	fused := Fuse(NormalizeLexicalScores(lex), SemanticScores(sem), c.lexicalWeight, c.semanticWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	out := make([]QueryResult, 0, len(fused))
	for _, f := range fused {
		r := byID[f.ID]
		r.Distance = 1 - f.Score
		out = append(out, r)
	}
	return out, nil
}

// FusedResult holds an id with its fused and per-source scores.
type FusedResult struct {
	ID            string
	Score         float64
	LexicalScore  float64
	SemanticScore float64
}

// NormalizeLexicalScores converts lexical distances back to match scores and
// scales them to [0,1] by the best hit.
func NormalizeLexicalScores(results []QueryResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	raw := make(map[string]float64, len(results))
	maxScore := 0.0
	for _, r := range results {
		score := 0.0
		if r.Distance > 0 {
			score = 1/r.Distance - 1
		}
		raw[r.ID] = score
		if score > maxScore {
			maxScore = score
		}
	}
	for id, score := range raw {
		if maxScore > 0 {
			normalized[id] = score / maxScore
		} else {
			normalized[id] = 0
		}
	}
	return normalized
}

// SemanticScores returns 1 - distance per id (cosine similarity for normalized vectors).
func SemanticScores(results []QueryResult) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.ID] = 1 - r.Distance
	}
	return scores
}

// Fuse merges lexical and semantic score maps with weights and returns results
// sorted by fused score, ties broken by id.
func Fuse(lexicalScores, semanticScores map[string]float64, lexicalWeight, semanticWeight float64) []FusedResult {
	scoreMap := make(map[string]*FusedResult, len(lexicalScores)+len(semanticScores))
	for id, score := range lexicalScores {
		scoreMap[id] = &FusedResult{ID: id, LexicalScore: score}
	}
	for id, score := range semanticScores {
		if r, ok := scoreMap[id]; ok {
			r.SemanticScore = score
		} else {
			scoreMap[id] = &FusedResult{ID: id, SemanticScore: score}
		}
	}
	results := make([]FusedResult, 0, len(scoreMap))
	for _, r := range scoreMap {
		r.Score = lexicalWeight*r.LexicalScore + semanticWeight*r.SemanticScore
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}
