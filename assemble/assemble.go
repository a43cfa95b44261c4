// Package assemble resolves a candidate Context plus pre-filtered category
// candidates into one validated Product.
//
// One resolution call per product. On schema or taxonomy validation failure
// the call is retried exactly once with the validation error appended to the
// request; a second failure is terminal for the attempt — the record
// degrades to a partial Product when its required fields survived, or is
// skipped entirely when they did not. An unbounded retry loop is
// deliberately avoided: it would mask systematic request-construction
// defects rather than surface them.
package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/taxonomy"
)

// Resolver is the external semantic-resolution collaborator. Implementations
// must be safe for concurrent use; each call must construct any call-scoped
// resource fresh.
type Resolver interface {
	Resolve(ctx context.Context, systemPrompt, userPrompt string, schema json.RawMessage) (json.RawMessage, error)
}

// Assembler turns candidate contexts into validated Products.
type Assembler struct {
	resolver Resolver
	vocab    *taxonomy.Vocabulary
	schema   *jsonschema.Schema
}

// New creates an Assembler. It fails only when the built-in draft schema
// does not compile, which indicates a programming error.
func New(resolver Resolver, vocab *taxonomy.Vocabulary) (*Assembler, error) {
	schema, err := compileDraftSchema()
	if err != nil {
		return nil, fmt.Errorf("compile draft schema: %w", err)
	}
	return &Assembler{resolver: resolver, vocab: vocab, schema: schema}, nil
}

// Assemble resolves the context and category candidates into one Product.
// categoryCandidates must be non-empty; the pre-filter guarantees that even
// for zero-overlap queries.
func (a *Assembler) Assemble(ctx context.Context, ec *models.Context, categoryCandidates []string) (*models.Product, error) {
	if len(categoryCandidates) == 0 {
		return nil, models.NewExtractError(models.ErrCodeInvalidInput, "no category candidates supplied", nil)
	}

	raw, err := a.resolver.Resolve(ctx, systemPrompt, buildUserPrompt(ec, categoryCandidates, ""), json.RawMessage(draftSchema))
	if err != nil {
		return nil, err
	}

	product, validationErr := a.buildProduct(raw, ec, categoryCandidates)
	if validationErr == nil {
		return product, nil
	}

	// Exactly one retry, with the validation error appended so the service
	// can self-correct.
	slog.Warn("draft validation failed, retrying once",
		"page_url", ec.PageURL,
		"error", validationErr,
	)
	raw2, err := a.resolver.Resolve(ctx, systemPrompt, buildUserPrompt(ec, categoryCandidates, validationErr.Error()), json.RawMessage(draftSchema))
	if err != nil {
		return nil, err
	}

	product, validationErr = a.buildProduct(raw2, ec, categoryCandidates)
	if validationErr == nil {
		return product, nil
	}

	// Terminal: salvage a partial record when the required fields survived,
	// otherwise skip the record.
	if partial, ok := a.salvagePartial(raw2, categoryCandidates); ok {
		slog.Warn("draft validation failed twice, degrading to partial record",
			"page_url", ec.PageURL,
			"error", validationErr,
		)
		return partial, nil
	}
	slog.Error("draft validation failed twice, skipping record",
		"page_url", ec.PageURL,
		"error", validationErr,
	)
	return nil, models.NewExtractError(models.ErrCodeRecordSkipped, "draft failed validation after retry", validationErr)
}

// draft mirrors the resolver's output schema.
type draft struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Brand         string            `json:"brand"`
	CategoryIndex int               `json:"category_index"`
	Price         draftPrice        `json:"price"`
	KeyFeatures   []string          `json:"key_features"`
	ImageURLs     []string          `json:"image_urls"`
	Colors        []string          `json:"colors"`
	Variants      []draftVariant    `json:"variants"`
	Offers        []draftOffer      `json:"offers"`
}

type draftPrice struct {
	Amount          json.RawMessage `json:"amount"`
	Currency        string          `json:"currency"`
	CompareAtAmount json.RawMessage `json:"compare_at_amount"`
}

type draftVariant struct {
	Name         string            `json:"name"`
	Attributes   map[string]string `json:"attributes"`
	Availability string            `json:"availability"`
}

type draftOffer struct {
	MerchantName string     `json:"merchant_name"`
	MerchantID   string     `json:"merchant_id"`
	Price        draftPrice `json:"price"`
	Availability string     `json:"availability"`
	Shipping     string     `json:"shipping"`
	Promo        string     `json:"promo"`
	SourceURL    string     `json:"source_url"`
}

// buildProduct validates raw resolver output and maps it onto a Product.
// Any returned error is a validation error suitable for the retry prompt.
func (a *Assembler) buildProduct(raw json.RawMessage, ec *models.Context, categoryCandidates []string) (*models.Product, error) {
	if err := validateDraftJSON(a.schema, raw); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var d draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}

	if strings.TrimSpace(d.Name) == "" {
		return nil, fmt.Errorf("name is required and was empty")
	}
	if d.CategoryIndex < 1 || d.CategoryIndex > len(categoryCandidates) {
		return nil, fmt.Errorf("category_index %d out of range 1..%d", d.CategoryIndex, len(categoryCandidates))
	}
	categoryName := categoryCandidates[d.CategoryIndex-1]
	if !a.vocab.Contains(categoryName) {
		return nil, fmt.Errorf("category %q is not in the taxonomy vocabulary", categoryName)
	}

	price, err := parseDraftPrice(d.Price)
	if err != nil {
		return nil, fmt.Errorf("price is required: %w", err)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(d.Name),
		Brand:       strings.TrimSpace(d.Brand),
		Description: strings.TrimSpace(d.Description),
		KeyFeatures: emptyIfNil(d.KeyFeatures),
		Price:       price,
		Category:    models.Category{Name: categoryName},
		ImageURLs:   filterImageURLs(d.ImageURLs, ec),
		Colors:      emptyIfNil(d.Colors),
		Variants:    capVariants(d.Variants, ec.PageURL),
		Offers:      buildOffers(d.Offers),
	}
	return product, nil
}

// salvagePartial extracts a partial record from a draft that failed full
// validation: required fields only, derived collections empty. The category
// falls back to the top-ranked pre-filter candidate so the taxonomy
// invariant still holds.
func (a *Assembler) salvagePartial(raw json.RawMessage, categoryCandidates []string) (*models.Product, bool) {
	var d draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, false
	}
	price, err := parseDraftPrice(d.Price)
	if err != nil {
		return nil, false
	}

	categoryName := categoryCandidates[0]
	if d.CategoryIndex >= 1 && d.CategoryIndex <= len(categoryCandidates) {
		categoryName = categoryCandidates[d.CategoryIndex-1]
	}
	if !a.vocab.Contains(categoryName) {
		return nil, false
	}

	return &models.Product{
		Name:        strings.TrimSpace(d.Name),
		Brand:       strings.TrimSpace(d.Brand),
		Description: strings.TrimSpace(d.Description),
		KeyFeatures: []string{},
		Price:       price,
		Category:    models.Category{Name: categoryName},
		ImageURLs:   []string{},
		Colors:      []string{},
		Variants:    []models.Variant{},
		Offers:      []models.Offer{},
	}, true
}

// parseDraftPrice converts a draft price into a Price, extracting the first
// numeric token from string amounts.
func parseDraftPrice(dp draftPrice) (models.Price, error) {
	amount, err := parseDraftAmount(dp.Amount)
	if err != nil {
		return models.Price{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(dp.Currency))
	if currency == "" {
		currency = "USD"
	}
	price := models.Price{Price: amount, Currency: currency}

	if len(dp.CompareAtAmount) > 0 && string(dp.CompareAtAmount) != "null" {
		if compareAt, err := parseDraftAmount(dp.CompareAtAmount); err == nil && compareAt > amount {
			price.CompareAtPrice = &compareAt
		}
	}
	return price, nil
}

func parseDraftAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing amount")
	}
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, fmt.Errorf("amount is neither number nor string")
	}
	amount, _, err := models.ParseAmount(asString)
	return amount, err
}

// capVariants enforces the variant cap. Exceeding it is logged, never
// silently truncated.
func capVariants(in []draftVariant, pageURL string) []models.Variant {
	if len(in) > models.MaxVariants {
		slog.Warn("variant cap reached, truncating",
			"page_url", pageURL,
			"variants", len(in),
			"cap", models.MaxVariants,
		)
		in = in[:models.MaxVariants]
	}
	out := make([]models.Variant, 0, len(in))
	for _, v := range in {
		attrs := v.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		out = append(out, models.Variant{
			Name:         v.Name,
			Attributes:   attrs,
			Availability: v.Availability,
		})
	}
	return out
}

// filterImageURLs keeps only URLs that were actually extracted as
// candidates — the resolver must never invent or rewrite URLs — and drops
// entries whose canonical form duplicates an earlier one.
func filterImageURLs(urls []string, ec *models.Context) []string {
	allowed := make(map[string]struct{})
	for _, candidate := range ec.Values(models.FieldImageURL, 0) {
		allowed[candidate] = struct{}{}
	}

	out := []string{}
	seen := make(map[string]struct{})
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if _, ok := allowed[u]; !ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func buildOffers(in []draftOffer) []models.Offer {
	out := []models.Offer{}
	for _, o := range in {
		price, err := parseDraftPrice(o.Price)
		if err != nil {
			continue
		}
		out = append(out, models.Offer{
			Merchant:     models.Merchant{Name: o.MerchantName, MerchantID: o.MerchantID},
			Price:        price,
			Availability: o.Availability,
			Shipping:     o.Shipping,
			Promo:        o.Promo,
			SourceURL:    o.SourceURL,
		})
	}
	return out
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
