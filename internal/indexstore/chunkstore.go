package indexstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/model"
)

// chunkFileFormat is the on-disk shape of the chunk store:
// `{header: {build_id, format_version}, chunks: [Chunk...]}`.
type chunkFileFormat struct {
	Header model.ChunkStoreHeader `json:"header"`
	Chunks []*model.Chunk         `json:"chunks"`
}

// SaveChunks writes the chunk list atomically to path, prefixed by header.
func SaveChunks(path string, header model.ChunkStoreHeader, chunks []*model.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chunk store directory: %w", err)
	}
	doc := chunkFileFormat{Header: header, Chunks: chunks}
	return writeAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		return enc.Encode(doc)
	})
}

// LoadChunks reads path and validates its header against expected. A missing
// header field (legacy headerless format) or a build/format mismatch is
// raised as Corrupted.
func LoadChunks(root string, expected model.ChunkStoreHeader) ([]*model.Chunk, error) {
	data, err := os.ReadFile(root)
	if os.IsNotExist(err) {
		return nil, errs.Corrupted("chunk store missing: " + root)
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk store: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Corrupted("chunk store is not valid JSON: " + err.Error())
	}
	if _, ok := raw["header"]; !ok {
		return nil, errs.Corrupted("chunk store has no header (legacy headerless format)")
	}

	var doc chunkFileFormat
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Corrupted("chunk store header/chunks unreadable: " + err.Error())
	}
	if doc.Header.BuildID != expected.BuildID || doc.Header.FormatVersion != expected.FormatVersion {
		return nil, errs.Corrupted(fmt.Sprintf(
			"chunk store header {build_id=%s, format_version=%d} does not match manifest {build_id=%s, format_version=%d}",
			doc.Header.BuildID, doc.Header.FormatVersion, expected.BuildID, expected.FormatVersion))
	}
	return doc.Chunks, nil
}

// effective field weights for the fuzzy matcher.
const (
	weightContent       = 0.40
	weightComponentName = 0.25
	weightTags          = 0.15
	weightFilePath      = 0.15
	weightRelativePath  = 0.15
	weightComponentType = 0.15
	weightLayer         = 0.10

	// fuzzyDistanceThreshold is the maximum per-candidate distance
	// (1 - similarity) admitted into results.
	fuzzyDistanceThreshold = 0.4
)

const (
	fuzzyTokenizerName = "ctxd_fuzzy_tokenizer"
	fuzzyAnalyzerName  = "ctxd_fuzzy_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(fuzzyTokenizerName, fuzzyTokenizerConstructor)
}

// FuzzyHit is one lexical match; Similarity is 1 - distance on the
// normalized scale.
type FuzzyHit struct {
	ChunkID    string
	Similarity float64
}

// FuzzyIndex is the in-memory weighted-field fuzzy matcher the lexical
// retriever builds from the chunk list, shaped around per-field boosts
// and a normalized [0,1] similarity contract instead of raw BM25 scores.
type FuzzyIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

type fuzzyDoc struct {
	Content       string `json:"content"`
	ComponentName string `json:"component_name"`
	Tags          string `json:"tags"`
	FilePath      string `json:"file_path"`
	RelativePath  string `json:"relative_path"`
	ComponentType string `json:"component_type"`
	Layer         string `json:"layer"`
}

// BuildFuzzyIndex constructs a fresh in-memory fuzzy index over chunks. It
// is rebuilt whenever the manifest changes, never persisted.
func BuildFuzzyIndex(chunks []*model.Chunk) (*FuzzyIndex, error) {
	im, err := fuzzyIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("build fuzzy index mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("create in-memory fuzzy index: %w", err)
	}

	batch := idx.NewBatch()
	for _, c := range chunks {
		doc := fuzzyDoc{
			Content:       c.Content,
			ComponentName: c.ComponentName,
			Tags:          strings.Join(c.Tags, " "),
			FilePath:      c.AbsPath,
			RelativePath:  c.RelPath,
			ComponentType: c.ComponentType,
			Layer:         c.Layer,
		}
		if err := batch.Index(c.ID, doc); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("execute fuzzy index batch: %w", err)
	}

	return &FuzzyIndex{index: idx}, nil
}

func fuzzyIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(fuzzyAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": fuzzyTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = fuzzyAnalyzerName
	return im, nil
}

// Search runs a weighted-field fuzzy query and returns hits clamped to
// [0,1] similarity, dropping anything past the distance threshold.
func (idx *FuzzyIndex) Search(query string, limit int) ([]FuzzyHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	disjunction := bleve.NewDisjunctionQuery(
		weightedFuzzyQuery(query, "content", weightContent),
		weightedFuzzyQuery(query, "component_name", weightComponentName),
		weightedFuzzyQuery(query, "tags", weightTags),
		weightedFuzzyQuery(query, "file_path", weightFilePath),
		weightedFuzzyQuery(query, "relative_path", weightRelativePath),
		weightedFuzzyQuery(query, "component_type", weightComponentType),
		weightedFuzzyQuery(query, "layer", weightLayer),
	)

	req := bleve.NewSearchRequest(disjunction)
	req.Size = limit * 4 // oversample pre-threshold, then clamp below
	if req.Size <= 0 {
		req.Size = 100
	}

	result, err := idx.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("fuzzy search: %w", err)
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}

	maxScore := result.Hits[0].Score
	for _, hit := range result.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	if maxScore == 0 {
		return nil, nil
	}

	hits := make([]FuzzyHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		similarity := hit.Score / maxScore
		if similarity > 1 {
			similarity = 1
		}
		distance := 1 - similarity
		if distance > fuzzyDistanceThreshold {
			continue
		}
		hits = append(hits, FuzzyHit{ChunkID: hit.ID, Similarity: similarity})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases the in-memory index's resources.
func (idx *FuzzyIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.index.Close()
}

// weightedFuzzyQuery builds a boosted disjunction of a match query (whole
// tokens) and a fuzzy query (edit-distance tolerant), so a single field
// query contributes both exact and near-miss term matches at the same
// boost, satisfying the "substring-within-field matching without a
// global-position penalty" requirement (bleve's match/fuzzy queries score
// independent of term position).
func weightedFuzzyQuery(query, field string, weight float64) bquery.Query {
	match := bleve.NewMatchQuery(query)
	match.SetField(field)
	match.SetBoost(weight)

	fuzzy := bleve.NewMatchQuery(query)
	fuzzy.SetField(field)
	fuzzy.SetFuzziness(2)
	fuzzy.SetBoost(weight * 0.6)

	return bleve.NewDisjunctionQuery(match, fuzzy)
}

// fuzzyTokenRegex matches alphanumeric runs, splitting on punctuation and
// path separators so "internal/store/hnsw.go" tokenizes into its parts.
var fuzzyTokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

func fuzzyTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &fuzzyTokenizer{}, nil
}

type fuzzyTokenizer struct{}

// Tokenize splits on non-alphanumerics then further splits camelCase and
// snake_case identifiers so identifiers match regardless of casing
// convention.
func (t *fuzzyTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	words := fuzzyTokenRegex.FindAllString(text, -1)

	var stream analysis.TokenStream
	pos := 1
	offset := 0
	for _, word := range words {
		for _, sub := range splitIdentifier(word) {
			if len(sub) < 2 {
				continue
			}
			start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(sub))
			if start == -1 {
				start = offset
			} else {
				start += offset
			}
			end := start + len(sub)
			stream = append(stream, &analysis.Token{
				Term:     []byte(strings.ToLower(sub)),
				Start:    start,
				End:      end,
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
			if end <= len(text) {
				offset = end
			}
		}
	}
	return stream
}

func splitIdentifier(token string) []string {
	if strings.Contains(token, "_") {
		var out []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				out = append(out, splitCamelCase(part)...)
			}
		}
		return out
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
