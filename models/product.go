package models

// MaxVariants caps the number of variants a Product may carry. The assembler
// truncates cartesian expansions beyond this and logs the cap event.
const MaxVariants = 50

// Category is a single entry from the fixed taxonomy vocabulary.
// A Product's category name must be a member of the loaded vocabulary;
// the assembler enforces this before a Product is released.
type Category struct {
	Name string `json:"name"`
}

// Variant is one concrete purchasable configuration derived from option
// groups (e.g. "Red / M").
type Variant struct {
	Name         string            `json:"name"`
	Attributes   map[string]string `json:"attributes"`
	Price        *Price            `json:"price,omitempty"`
	Availability string            `json:"availability,omitempty"`
}

// Merchant identifies the seller behind an Offer.
type Merchant struct {
	Name       string `json:"name"`
	MerchantID string `json:"merchant_id,omitempty"`
}

// Offer is a merchant-specific listing of the product.
type Offer struct {
	Merchant     Merchant `json:"merchant"`
	Price        Price    `json:"price"`
	Availability string   `json:"availability,omitempty"`
	Shipping     string   `json:"shipping,omitempty"`
	Promo        string   `json:"promo,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
}

// Product is the canonical resolved record produced by the assembler.
// Name and Price are required; their absence after assembly is terminal for
// the record. CanonicalProductID and MatchDecision are assigned later by the
// identity resolver during the batch pass.
type Product struct {
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	KeyFeatures []string  `json:"key_features"`
	Price       Price     `json:"price"`
	Category    Category  `json:"category"`
	ImageURLs   []string  `json:"image_urls"`
	VideoURL    string    `json:"video_url,omitempty"`
	Colors      []string  `json:"colors"`
	Variants    []Variant `json:"variants"`
	Offers      []Offer   `json:"offers"`

	CanonicalProductID string         `json:"canonical_product_id,omitempty"`
	MatchDecision      *MatchDecision `json:"match_decision,omitempty"`
}

// Clone returns a deep copy. Stored records are shared with concurrent
// readers, so batch passes must mutate a clone and persist it with Put
// rather than write through the shared pointer.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	out := *p
	out.KeyFeatures = append([]string(nil), p.KeyFeatures...)
	out.ImageURLs = append([]string(nil), p.ImageURLs...)
	out.Colors = append([]string(nil), p.Colors...)
	out.Price = p.Price.clone()

	if p.Variants != nil {
		out.Variants = make([]Variant, len(p.Variants))
		for i, v := range p.Variants {
			cv := v
			if v.Attributes != nil {
				cv.Attributes = make(map[string]string, len(v.Attributes))
				for k, val := range v.Attributes {
					cv.Attributes[k] = val
				}
			}
			if v.Price != nil {
				vp := v.Price.clone()
				cv.Price = &vp
			}
			out.Variants[i] = cv
		}
	}
	if p.Offers != nil {
		out.Offers = make([]Offer, len(p.Offers))
		for i, o := range p.Offers {
			co := o
			co.Price = o.Price.clone()
			out.Offers[i] = co
		}
	}
	if p.MatchDecision != nil {
		md := *p.MatchDecision
		md.Evidence = append([]MatchEvidence(nil), p.MatchDecision.Evidence...)
		for i, ev := range p.MatchDecision.Evidence {
			if ev.Details != nil {
				details := make(map[string]string, len(ev.Details))
				for k, v := range ev.Details {
					details[k] = v
				}
				md.Evidence[i].Details = details
			}
		}
		out.MatchDecision = &md
	}
	return &out
}

// ProductSummary is the trimmed listing shape served by GET /products.
type ProductSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Brand    string   `json:"brand"`
	Price    Price    `json:"price"`
	Category Category `json:"category"`
	ImageURL string   `json:"image_url,omitempty"`
}
