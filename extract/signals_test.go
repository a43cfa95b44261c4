package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/use-agent/skuforge/models"
)

const linkedDataPage = `<!doctype html>
<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "Product",
  "name": "Aero Trail Runner",
  "description": "Lightweight trail running shoe.",
  "brand": {"name": "Stride"},
  "sku": "ATR-100",
  "image": ["https://cdn.example.com/atr.jpg?w=300"],
  "offers": {
    "@type": "Offer",
    "price": "29.95",
    "priceCurrency": "USD"
  }
}
</script>
</head><body><h1>Aero Trail Runner</h1></body></html>`

func TestExtractSignals_LinkedDataProduct(t *testing.T) {
	ctx := ExtractSignals(linkedDataPage, "https://shop.example.com/p/atr")

	if got := ctx.Values(models.FieldTitle, 0); len(got) == 0 || got[0] != "Aero Trail Runner" {
		t.Errorf("title not extracted: %v", got)
	}
	if got := ctx.Values(models.FieldBrand, 0); len(got) == 0 || got[0] != "Stride" {
		t.Errorf("nested brand name not extracted: %v", got)
	}
	if got := ctx.Values(models.FieldPrice, 0); len(got) != 1 || got[0] != "29.95" {
		t.Errorf("expected exactly one price candidate 29.95, got %v", got)
	}
	if got := ctx.Values(models.FieldCurrency, 0); len(got) == 0 || got[0] != "USD" {
		t.Errorf("currency not extracted: %v", got)
	}
	if ctx.RawAttributes["sku"] != "ATR-100" {
		t.Errorf("sku passthrough missing: %v", ctx.RawAttributes)
	}
	// Resize parameter stripped at write time.
	if got := ctx.Values(models.FieldImageURL, 0); len(got) == 0 || got[0] != "https://cdn.example.com/atr.jpg" {
		t.Errorf("image not canonicalized: %v", got)
	}
}

func TestExtractSignals_GraphAndBreadcrumbs(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@graph": [
	  {"@type": "Product", "name": "Canvas Tote", "brand": "Carry Co"},
	  {"@graph": [{"@type": "BreadcrumbList", "itemListElement": [
	    {"name": "Home"}, {"name": "Bags"}, {"name": "Totes"}
	  ]}]}
	]}
	</script></head><body></body></html>`

	ctx := ExtractSignals(page, "")

	if got := ctx.Values(models.FieldTitle, 0); len(got) == 0 || got[0] != "Canvas Tote" {
		t.Errorf("graph node title not extracted: %v", got)
	}
	hints := ctx.Values(models.FieldCategoryHint, 0)
	joined := strings.Join(hints, "|")
	if !strings.Contains(joined, "Bags") || !strings.Contains(joined, "Totes") {
		t.Errorf("breadcrumb names missing from category hints: %v", hints)
	}
}

func TestExtractSignals_MetaTags(t *testing.T) {
	page := `<html><head>
	<meta property="og:title" content="Studio Headphones X2">
	<meta property="og:image" content="//cdn.example.com/x2.jpg">
	<meta property="product:price:amount" content="149.00">
	<meta property="product:price:currency" content="GBP">
	<meta name="description" content="Closed-back studio headphones.">
	</head><body></body></html>`

	ctx := ExtractSignals(page, "https://shop.example.com/p/x2")

	if got := ctx.Values(models.FieldTitle, 0); len(got) == 0 || got[0] != "Studio Headphones X2" {
		t.Errorf("og:title not extracted: %v", got)
	}
	if got := ctx.Values(models.FieldPrice, 0); len(got) == 0 || got[0] != "149.00" {
		t.Errorf("meta price not extracted: %v", got)
	}
	if got := ctx.Values(models.FieldCurrency, 0); len(got) == 0 || got[0] != "GBP" {
		t.Errorf("meta currency not extracted: %v", got)
	}
	// Protocol-relative URL upgraded to https.
	if got := ctx.Values(models.FieldImageURL, 0); len(got) == 0 || got[0] != "https://cdn.example.com/x2.jpg" {
		t.Errorf("og:image not canonicalized: %v", got)
	}
}

func TestExtractSignals_InlineVariantBlob(t *testing.T) {
	var sizes []string
	for _, s := range []string{"4", "4.5", "5", "5.5", "6", "6.5", "7", "7.5", "8", "8.5", "9", "9.5", "10", "10.5"} {
		sizes = append(sizes, `{"name": "Size `+s+`", "option1": "`+s+`"}`)
	}
	page := `<html><head><script>
	var meta = {"product": {"title": "Court Sneaker", "variants": [` + strings.Join(sizes, ",") + `]}};
	</script></head><body></body></html>`

	ctx := ExtractSignals(page, "")

	blob, ok := ctx.RawAttributes["variants"]
	if !ok {
		t.Fatal("variants blob not carried through raw attributes")
	}
	var decoded []any
	if err := json.Unmarshal([]byte(blob), &decoded); err != nil {
		t.Fatalf("variants blob is not valid JSON: %v", err)
	}
	if len(decoded) != 14 {
		t.Errorf("expected 14 variant entries, got %d", len(decoded))
	}
	titles := ctx.Values(models.FieldTitle, 0)
	found := false
	for _, v := range titles {
		if v == "Court Sneaker" {
			found = true
		}
	}
	if !found {
		t.Errorf("title from assigned blob not extracted: %v", titles)
	}
}

func TestExtractSignals_ColorOptionGroupSynthesis(t *testing.T) {
	page := `<html><head><script type="application/json">
	{"product": {"name": "Zip Hoodie", "swatchColors": ["Blizzard%2FDeep%20Navy", "Heather Grey"]}}
	</script></head><body></body></html>`

	ctx := ExtractSignals(page, "")

	colors := ctx.Values(models.FieldColor, 0)
	if len(colors) != 2 || colors[0] != "Blizzard/Deep Navy" {
		t.Errorf("swatch colors not decoded: %v", colors)
	}
	found := false
	for _, g := range ctx.OptionGroups {
		if g.Dimension == "Color" && len(g.Options) == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("two distinct colors should synthesize a Color option group: %+v", ctx.OptionGroups)
	}
}

func TestExtractSignals_MalformedInputsNeverFail(t *testing.T) {
	pages := []string{
		"",
		"<html><head><script type=\"application/ld+json\">{not json</script></head></html>",
		"<div><p>plain fragment, no head",
	}
	for _, page := range pages {
		ctx := ExtractSignals(page, "")
		if ctx == nil {
			t.Fatal("extraction must degrade, never return nil")
		}
	}
}

func TestExtractSignals_Idempotent(t *testing.T) {
	a, err := json.Marshal(ExtractSignals(linkedDataPage, "https://shop.example.com/p/atr"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(ExtractSignals(linkedDataPage, "https://shop.example.com/p/atr"))
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("byte-identical markup produced different contexts")
	}
}
