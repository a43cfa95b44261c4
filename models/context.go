package models

import "strings"

// SignalSource identifies which markup surface a candidate value came from.
type SignalSource string

const (
	SourceLinkedData SignalSource = "linked_data"
	SourceMetaTag    SignalSource = "meta_tag"
	SourceScriptBlob SignalSource = "script_blob"
	SourceDOM        SignalSource = "dom"
)

// CandidateSignal is one unresolved value extracted for a semantic field,
// tagged with its originating source. Immutable once created.
type CandidateSignal struct {
	Value  string       `json:"value"`
	Source SignalSource `json:"source"`
}

// OptionValue is one selectable value inside an OptionGroup.
type OptionValue struct {
	Value      string   `json:"value"`
	Available  bool     `json:"available"`
	PriceDelta *float64 `json:"price_delta,omitempty"`
}

// OptionGroup is a named selection dimension (Size, Color, ...) with its
// enumerated values. Variants are derived from the cartesian product of
// groups during assembly.
type OptionGroup struct {
	Dimension string        `json:"dimension"`
	Options   []OptionValue `json:"options"`
}

// CandidateField names one of the per-field candidate sequences in a Context.
type CandidateField string

const (
	FieldTitle        CandidateField = "title_candidates"
	FieldDescription  CandidateField = "description_candidates"
	FieldBrand        CandidateField = "brand_candidates"
	FieldPrice        CandidateField = "price_candidates"
	FieldCurrency     CandidateField = "currency_candidates"
	FieldImageURL     CandidateField = "image_url_candidates"
	FieldCategoryHint CandidateField = "category_hint_candidates"
	FieldKeyFeature   CandidateField = "key_feature_candidates"
	FieldColor        CandidateField = "color_candidates"
)

// passthroughAllowlist is the enforcement point for the open attribute map:
// structured blobs and scalar hints outside this set are dropped at write
// time rather than carried as arbitrary dynamic values.
var passthroughAllowlist = map[string]struct{}{
	"variants":      {},
	"options":       {},
	"option_groups": {},
	"availability":  {},
	"sku":           {},
	"gtin":          {},
	"gtin13":        {},
	"mpn":           {},
	"itemGroupId":   {},
	"ratingValue":   {},
	"reviewCount":   {},
	"material":      {},
	"gender":        {},
	"condition":     {},
}

// Context is the per-page bag of unresolved candidates both extraction
// passes write into and the assembler consumes. Merges are append-only and
// order-preserving; nothing is resolved here except image URL
// canonicalization, which happens before the value reaches AddCandidate.
type Context struct {
	PageURL string `json:"page_url,omitempty"`

	TitleCandidates        []CandidateSignal `json:"title_candidates"`
	DescriptionCandidates  []CandidateSignal `json:"description_candidates"`
	BrandCandidates        []CandidateSignal `json:"brand_candidates"`
	PriceCandidates        []CandidateSignal `json:"price_candidates"`
	CurrencyCandidates     []CandidateSignal `json:"currency_candidates"`
	ImageURLCandidates     []CandidateSignal `json:"image_url_candidates"`
	CategoryHintCandidates []CandidateSignal `json:"category_hint_candidates"`
	KeyFeatureCandidates   []CandidateSignal `json:"key_feature_candidates"`
	ColorCandidates        []CandidateSignal `json:"color_candidates"`

	OptionGroups []OptionGroup `json:"option_groups"`

	// RawAttributes holds JSON-serialized structured blobs (variant arrays,
	// option maps) plus scalar hints, keyed through passthroughAllowlist.
	RawAttributes map[string]string `json:"raw_attributes"`

	seen map[CandidateField]map[string]struct{}
}

// NewContext creates an empty candidate context for one page.
func NewContext(pageURL string) *Context {
	return &Context{
		PageURL:       pageURL,
		RawAttributes: make(map[string]string),
		seen:          make(map[CandidateField]map[string]struct{}),
	}
}

// AddCandidate appends a candidate to the named field, skipping empty values
// and exact duplicates while preserving insertion order. Unknown field names
// are ignored.
func (c *Context) AddCandidate(field CandidateField, signal CandidateSignal) {
	value := strings.TrimSpace(signal.Value)
	if value == "" {
		return
	}

	slot := c.fieldSlot(field)
	if slot == nil {
		return
	}
	if c.seen[field] == nil {
		c.seen[field] = make(map[string]struct{})
	}
	if _, dup := c.seen[field][value]; dup {
		return
	}
	c.seen[field][value] = struct{}{}
	*slot = append(*slot, CandidateSignal{Value: value, Source: signal.Source})
}

// AddCandidates appends multiple values for one field with a shared source.
func (c *Context) AddCandidates(field CandidateField, source SignalSource, values []string) {
	for _, v := range values {
		c.AddCandidate(field, CandidateSignal{Value: v, Source: source})
	}
}

// AddOptionGroup appends an option group. Groups are not merged across
// passes; the assembler sees every grouping each pass produced.
func (c *Context) AddOptionGroup(group OptionGroup) {
	if group.Dimension == "" || len(group.Options) == 0 {
		return
	}
	c.OptionGroups = append(c.OptionGroups, group)
}

// AddRawAttribute stores a passthrough value if the key is allowlisted.
// Returns false when the key was rejected.
func (c *Context) AddRawAttribute(key, value string) bool {
	if _, ok := passthroughAllowlist[key]; !ok {
		return false
	}
	if strings.TrimSpace(value) == "" {
		return false
	}
	if c.RawAttributes == nil {
		c.RawAttributes = make(map[string]string)
	}
	c.RawAttributes[key] = value
	return true
}

// Values returns the plain values for a field, capped at limit (<=0 for all).
func (c *Context) Values(field CandidateField, limit int) []string {
	slot := c.fieldSlot(field)
	if slot == nil {
		return nil
	}
	signals := *slot
	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}
	values := make([]string, 0, len(signals))
	for _, s := range signals {
		values = append(values, s.Value)
	}
	return values
}

func (c *Context) fieldSlot(field CandidateField) *[]CandidateSignal {
	switch field {
	case FieldTitle:
		return &c.TitleCandidates
	case FieldDescription:
		return &c.DescriptionCandidates
	case FieldBrand:
		return &c.BrandCandidates
	case FieldPrice:
		return &c.PriceCandidates
	case FieldCurrency:
		return &c.CurrencyCandidates
	case FieldImageURL:
		return &c.ImageURLCandidates
	case FieldCategoryHint:
		return &c.CategoryHintCandidates
	case FieldKeyFeature:
		return &c.KeyFeatureCandidates
	case FieldColor:
		return &c.ColorCandidates
	default:
		return nil
	}
}
