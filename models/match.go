package models

// MatchEvidence is one scored signal that fed a match decision. Decisions
// are never reduced to a bare boolean; the evidence list explains why a pair
// was or wasn't merged.
type MatchEvidence struct {
	Signal  string            `json:"signal"`
	Score   float64           `json:"score"`
	Matched bool              `json:"matched"`
	Details map[string]string `json:"details,omitempty"`
}

// MatchDecision records the outcome of comparing a product against its
// best-scoring counterpart in the corpus.
type MatchDecision struct {
	CandidateProductID string          `json:"candidate_product_id,omitempty"`
	Matched            bool            `json:"matched"`
	Confidence         float64         `json:"confidence"`
	Threshold          float64         `json:"threshold"`
	Evidence           []MatchEvidence `json:"evidence"`
}
