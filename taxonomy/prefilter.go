package taxonomy

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/use-agent/skuforge/models"
)

// DefaultTopK is the number of category candidates handed to the assembler.
// The pre-filter only guarantees the correct category is somewhere in the
// top k, not that it is ranked first; fine ranking is the assembler's job.
const DefaultTopK = 20

// Per-field caps on the query so one noisy signal cannot drown the others.
const (
	maxTitleTerms    = 3
	maxBrandTerms    = 2
	maxCategoryHints = 3
)

// Matches runs of lowercase letters and digits; punctuation and separators
// are word boundaries.
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Common English words that carry no signal for category matching.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "by": {}, "for": {},
	"from": {}, "in": {}, "of": {}, "on": {}, "or": {}, "the": {},
	"to": {}, "with": {},
}

// Prefilter ranks the vocabulary against context-derived query terms.
// The BM25 index is a pure function of the immutable vocabulary, built once
// on first use and shared across concurrent calls.
type Prefilter struct {
	vocab *Vocabulary

	once  sync.Once
	index *bm25Index
}

// NewPrefilter creates a pre-filter over the given vocabulary.
func NewPrefilter(vocab *Vocabulary) *Prefilter {
	return &Prefilter{vocab: vocab}
}

// SelectCandidates returns up to topK category labels most relevant to the
// extraction context. Zero vocabulary overlap falls back to a representative
// spread of top-level taxonomy segments so the downstream resolver always
// receives a non-empty candidate list.
func (p *Prefilter) SelectCandidates(ctx *models.Context, topK int) []string {
	if topK <= 0 {
		return nil
	}
	if topK > p.vocab.Len() {
		topK = p.vocab.Len()
	}

	p.once.Do(func() {
		categories := p.vocab.Categories()
		docs := make([][]string, len(categories))
		for i, cat := range categories {
			docs[i] = tokenize(cat)
		}
		p.index = newBM25Index(docs)
	})

	query := buildQueryTerms(ctx)
	if len(query) == 0 {
		return p.fallbackCandidates(topK)
	}

	categories := p.vocab.Categories()
	scores := p.index.scores(query)

	type scoredCategory struct {
		score float64
		name  string
	}
	scored := make([]scoredCategory, len(categories))
	for i, cat := range categories {
		scored[i] = scoredCategory{score: scores[i], name: cat}
	}
	// Ties broken alphabetically for determinism across runs.
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].name < scored[j].name
	})

	if scored[0].score <= 0 {
		// Best match has zero term overlap with the query.
		return p.fallbackCandidates(topK)
	}

	out := make([]string, 0, topK)
	for _, sc := range scored[:topK] {
		out = append(out, sc.name)
	}
	return out
}

// buildQueryTerms flattens the most informative context fields into tokens,
// capped per field.
func buildQueryTerms(ctx *models.Context) []string {
	var values []string
	values = append(values, ctx.Values(models.FieldTitle, maxTitleTerms)...)
	values = append(values, ctx.Values(models.FieldBrand, maxBrandTerms)...)
	values = append(values, ctx.Values(models.FieldCategoryHint, maxCategoryHints)...)

	var terms []string
	for _, v := range values {
		terms = append(terms, tokenize(v)...)
	}
	return terms
}

// tokenize lowercases, extracts alphanumeric runs, and drops stopwords and
// single-character tokens.
func tokenize(value string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(value), -1)
	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) <= 1 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// fallbackCandidates returns a broad spread when scoring found nothing:
// first one representative per top-level taxonomy segment, then full paths
// to fill any remaining slots.
func (p *Prefilter) fallbackCandidates(topK int) []string {
	var ordered []string
	seen := make(map[string]struct{})

	for _, category := range p.vocab.Categories() {
		segment, _, _ := strings.Cut(category, " > ")
		if _, ok := seen[segment]; ok {
			continue
		}
		seen[segment] = struct{}{}
		ordered = append(ordered, segment)
		if len(ordered) >= topK {
			return ordered
		}
	}

	for _, category := range p.vocab.Categories() {
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		ordered = append(ordered, category)
		if len(ordered) >= topK {
			break
		}
	}
	return ordered
}
