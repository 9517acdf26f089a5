// Package embedadapter implements the embedding-provider boundary:
// ctxd's index substrate and retriever depend only on the Embedder
// interface below, wrapped in resilience. A deterministic, dependency-free
// implementation is provided so the repository is self-contained; a real
// deployment wires in a network-backed provider behind the same interface.
package embedadapter

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/codectx/ctxd/internal/resilience"
)

// Embedder produces dense vectors for retrieval text. The semantic channel
// of the hybrid retriever and the indexer both depend on this interface,
// never on a concrete provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

var stopWords = map[string]struct{}{
	"func": {}, "function": {}, "def": {}, "class": {}, "return": {},
	"import": {}, "const": {}, "var": {}, "let": {}, "int": {},
	"string": {}, "bool": {}, "void": {}, "true": {}, "false": {},
	"nil": {}, "null": {}, "this": {}, "self": {}, "new": {},
}

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// StaticEmbedder is a hash-based, deterministic embedder: no network, no
// model download, stable output for the same input. It is the default
// provider for
// "deterministic" in config.EmbeddingsConfig.
type StaticEmbedder struct {
	dimensions int
}

// NewStaticEmbedder creates a deterministic embedder producing vectors of
// the given dimension.
func NewStaticEmbedder(dimensions int) *StaticEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &StaticEmbedder{dimensions: dimensions}
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int { return e.dimensions }

// Embed generates a deterministic embedding for text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dimensions), nil
	}
	return normalize(e.generateVector(trimmed)), nil
}

// EmbedBatch embeds each text in order.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, e.dimensions)

	for _, token := range tokenize(text) {
		if _, stop := stopWords[token]; stop {
			continue
		}
		vector[hashToIndex(token, e.dimensions)] += tokenWeight
	}

	normalized := normalizeForNgrams(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram, e.dimensions)] += ngramWeight
	}

	return vector
}

func tokenize(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range splitCodeToken(word) {
			lower := strings.ToLower(t)
			if lower != "" {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	var current strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func normalizeForNgrams(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		return nil
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i <= len(text)-n; i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

// Resilient wraps an Embedder with retry and circuit-breaker policies, so
// the semantic channel degrades gracefully rather than blocking a query on
// a misbehaving provider: transient failures degrade the channel to empty
// for the query.
type Resilient struct {
	inner   Embedder
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewResilient wraps inner with the default retry policy and a circuit
// breaker named for diagnostics.
func NewResilient(inner Embedder, breakerName string) *Resilient {
	return &Resilient{
		inner:   inner,
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker(breakerName, 5, 0),
	}
}

// Dimensions delegates to the wrapped embedder.
func (r *Resilient) Dimensions() int { return r.inner.Dimensions() }

// Embed retries transient failures and fails fast once the breaker is open.
func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	if !r.breaker.Allow() {
		return nil, resilience.ErrCircuitOpen
	}
	v, err := resilience.RetryWithResult(ctx, r.retry, func() ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
	if err != nil {
		r.breaker.RecordFailure()
		return nil, err
	}
	r.breaker.RecordSuccess()
	return v, nil
}

// EmbedBatch applies the same resilience policy to a batch call.
func (r *Resilient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if !r.breaker.Allow() {
		return nil, resilience.ErrCircuitOpen
	}
	v, err := resilience.RetryWithResult(ctx, r.retry, func() ([][]float32, error) {
		return r.inner.EmbedBatch(ctx, texts)
	})
	if err != nil {
		r.breaker.RecordFailure()
		return nil, err
	}
	r.breaker.RecordSuccess()
	return v, nil
}
