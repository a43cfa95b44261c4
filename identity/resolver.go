// Package identity clusters assembled products that refer to the same
// real-world item and assigns each cluster a stable canonical id.
//
// Matching is two-tier. Tier 1 is deterministic: products sharing a
// barcode-length digit sequence (GTIN/UPC, 8–14 digits) found anywhere in
// their name, description, key features, or offer source URLs are an
// automatic match with confidence floored at a configured value. Tier 2 is a
// probabilistic fallback used only when Tier 1 finds nothing: a weighted
// combination of normalized-title and normalized-brand similarity compared
// against a configured threshold. Every decision carries its scored
// evidence; a bare boolean is never the whole answer.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/use-agent/skuforge/config"
	"github.com/use-agent/skuforge/models"
)

// gtinPattern matches standalone barcode-length digit runs (GTIN-8 through
// GTIN-14, which covers UPC-A and EAN-13).
var gtinPattern = regexp.MustCompile(`\b\d{8,14}\b`)

// Resolver performs the batch identity pass over assembled products.
type Resolver struct {
	cfg config.IdentityConfig
}

// NewResolver validates the matching configuration up front; an invalid
// threshold or weight set is a startup error, never a silently applied one.
func NewResolver(cfg config.IdentityConfig) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("identity config: %w", err)
	}
	return &Resolver{cfg: cfg}, nil
}

// Resolve clusters the given products in place, assigning each a
// CanonicalProductID and an explainable MatchDecision. Products are keyed by
// their content-derived ids; the output is deterministic for a given id set
// regardless of map iteration order.
func (r *Resolver) Resolve(products map[string]*models.Product) {
	ids := make([]string, 0, len(products))
	for id := range products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	codes := make(map[string]map[string]struct{}, len(ids))
	for _, id := range ids {
		codes[id] = extractBarcodes(products[id])
	}

	uf := newUnionFind(ids)
	best := make(map[string]*models.MatchDecision, len(ids))

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			decision := r.compare(products[a], products[b], codes[a], codes[b])
			if decision.Matched {
				uf.union(a, b)
			}
			recordBest(best, a, b, decision)
			recordBest(best, b, a, decision)
		}
	}

	for _, members := range uf.components() {
		sort.Strings(members)
		canonical := canonicalID(members)
		for _, id := range members {
			products[id].CanonicalProductID = canonical
		}
	}

	for _, id := range ids {
		decision := best[id]
		if decision == nil {
			// Singleton corpus entry: nothing to compare against.
			decision = &models.MatchDecision{
				Matched:   false,
				Threshold: r.cfg.MatchThreshold,
				Evidence:  []models.MatchEvidence{},
			}
		}
		products[id].MatchDecision = decision
	}
}

// compare scores one product pair. Tier 2 runs only when the pair shares no
// barcode; the barcode tier is authoritative when it fires.
func (r *Resolver) compare(a, b *models.Product, codesA, codesB map[string]struct{}) *models.MatchDecision {
	if shared := sharedCode(codesA, codesB); shared != "" {
		return &models.MatchDecision{
			Matched:    true,
			Confidence: r.cfg.GTINConfidenceFloor,
			Threshold:  r.cfg.GTINConfidenceFloor,
			Evidence: []models.MatchEvidence{{
				Signal:  "gtin",
				Score:   1.0,
				Matched: true,
				Details: map[string]string{"code": shared},
			}},
		}
	}

	titleSim := similarity(normalizeText(a.Name), normalizeText(b.Name))
	brandSim := similarity(normalizeText(a.Brand), normalizeText(b.Brand))
	score := (r.cfg.TitleWeight*titleSim + r.cfg.BrandWeight*brandSim) / (r.cfg.TitleWeight + r.cfg.BrandWeight)
	matched := score > r.cfg.MatchThreshold

	return &models.MatchDecision{
		Matched:    matched,
		Confidence: score,
		Threshold:  r.cfg.MatchThreshold,
		Evidence: []models.MatchEvidence{
			{Signal: "title_similarity", Score: titleSim, Matched: matched},
			{Signal: "brand_similarity", Score: brandSim, Matched: matched},
		},
	}
}

// recordBest keeps the highest-confidence counterpart per product, breaking
// ties toward the smaller counterpart id so reruns agree.
func recordBest(best map[string]*models.MatchDecision, self, other string, decision *models.MatchDecision) {
	current := best[self]
	if current != nil {
		if decision.Confidence < current.Confidence {
			return
		}
		if decision.Confidence == current.Confidence && other >= current.CandidateProductID {
			return
		}
	}
	copied := *decision
	copied.CandidateProductID = other
	best[self] = &copied
}

// canonicalID derives the cluster id from its sorted member ids, so the same
// member set yields the same id regardless of input order.
func canonicalID(sortedMembers []string) string {
	sum := sha256.Sum256([]byte(strings.Join(sortedMembers, "||")))
	return "cp_" + hex.EncodeToString(sum[:])[:16]
}

// extractBarcodes scans the identity-bearing text fields of a product for
// barcode-length digit runs.
func extractBarcodes(p *models.Product) map[string]struct{} {
	out := make(map[string]struct{})
	scan := func(s string) {
		for _, code := range gtinPattern.FindAllString(s, -1) {
			out[code] = struct{}{}
		}
	}
	scan(p.Name)
	scan(p.Description)
	for _, f := range p.KeyFeatures {
		scan(f)
	}
	for _, o := range p.Offers {
		scan(o.SourceURL)
	}
	return out
}

// sharedCode returns the smallest code present in both sets, or "".
func sharedCode(a, b map[string]struct{}) string {
	shared := ""
	for code := range a {
		if _, ok := b[code]; ok {
			if shared == "" || code < shared {
				shared = code
			}
		}
	}
	return shared
}

// normalizeText lowercases and collapses every non-alphanumeric run to a
// single space, so punctuation and casing never affect similarity.
func normalizeText(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// similarity is the Levenshtein ratio of two normalized strings in [0, 1].
// An empty side scores zero: absence of a field is not evidence of identity.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshteinDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1 - float64(dist)/float64(maxLen)
}

// levenshteinDistance computes edit distance with a two-row rolling table.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
