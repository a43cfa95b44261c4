package assemble

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/use-agent/skuforge/models"
)

const systemPrompt = `You are a product data assembler. You will be given structured signals extracted from a product page and a numbered list of plausible taxonomy categories.

Your job is to produce a single, valid product draft.

Rules:
- name: choose the most accurate and complete title from title_candidates.
- description: choose or lightly combine the best description from description_candidates.
- brand: choose the most credible brand from brand_candidates. If brand_candidates is empty or unhelpful, infer the brand from other signals (description, title, page URL domain, or breadcrumbs). For a retailer's own private-label products, the retailer name is the brand.
- price: parse the best price string from price_candidates into a numeric amount. Use currency_candidates to determine the currency code (e.g. "USD", "GBP"). If a sale price and original price are both present, set compare_at_amount to the higher value.
- image_urls: use only URLs from image_url_candidates. Do NOT invent or modify URLs.
- key_features: extract a concise list of bullet-point features from key_feature_candidates or the description. An empty list is acceptable.
- colors: list ALL available color options from color_candidates and Color option groups. Include hex codes, colorway names, and swatch names. Exclude entries that are product titles or variant names. Deduplicate equivalent colors.
- category_index: return the 1-based position of exactly one entry from the numbered category list. Return the number, never the category text.
- variants: if option groups are present, build variant entries from the cartesian product of the dimensions. Each variant needs a human-readable name (e.g. "Red / M") and an attributes map (e.g. {"color": "Red", "size": "M"}). Cap the list at 50 entries. If no option groups exist, return an empty list.`

// buildUserPrompt serializes the extraction context and the numbered
// category candidates. A validation error from a prior attempt is appended
// so the service can self-correct; the retry happens at most once.
func buildUserPrompt(ec *models.Context, categoryCandidates []string, validationError string) string {
	var numbered strings.Builder
	for i, cat := range categoryCandidates {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, cat)
	}

	// Marshal is deterministic (struct field order, sorted map keys), so
	// identical contexts produce identical prompts across reruns.
	contextJSON, err := json.MarshalIndent(ec, "", "  ")
	if err != nil {
		contextJSON = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("## Category candidates (return the number of exactly one)\n\n")
	b.WriteString(numbered.String())
	b.WriteString("\n## Extraction signals (JSON)\n\n")
	b.Write(contextJSON)
	b.WriteString("\n")

	if validationError != "" {
		b.WriteString("\n## Validation error from previous attempt — fix this\n\n")
		b.WriteString(validationError)
		b.WriteString("\n")
	}
	return b.String()
}
