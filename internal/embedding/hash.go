package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/hyperjump/copilot/pkg/utils"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "these", "those",
		"from", "into", "about", "than", "so", "such", "can", "will", "should", "our", "we", "need",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// HashEmbedder is a deterministic, offline bag-of-words embedder. Each token is
// hashed into one of a fixed number of buckets with a hash-derived sign, so texts
// sharing vocabulary land close together without a trained model or a fitted
// vocabulary. Used in tests and when no embedding model is reachable.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns a unit-length embedding of the token counts of text.
// Text without any indexable token yields the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}
	emb := make([]float32, e.dimensions)
	for tok, n := range counts {
		h := hashToken(tok)
		weight := float32(1 + math.Log(float64(n)))
		if h&(1<<63) != 0 {
			weight = -weight
		}
		emb[h%uint64(e.dimensions)] += weight
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

// Tokenize lowercases text and splits it into letter/digit runs, dropping stopwords.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func hashToken(tok string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(tok))
	return h.Sum64()
}
