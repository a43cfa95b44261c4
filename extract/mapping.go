package extract

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/use-agent/skuforge/models"
)

// Declarative key→field mapping tables. Recognizing a new structured-data
// key is a table entry, never new code. Entries are ordered slices (not
// maps) so candidate insertion order is stable across runs.

type fieldMapping struct {
	key   string
	field models.CandidateField
}

// jsonKeyMappings maps known JSON-LD / script-state keys to candidate fields.
var jsonKeyMappings = []fieldMapping{
	{"name", models.FieldTitle},
	{"title", models.FieldTitle},
	{"productName", models.FieldTitle},
	{"headline", models.FieldTitle},
	{"description", models.FieldDescription},
	{"shortDescription", models.FieldDescription},
	{"metaDescription", models.FieldDescription},
	{"subtitle", models.FieldDescription},
	{"brand", models.FieldBrand},
	{"brandName", models.FieldBrand},
	{"vendor", models.FieldBrand},
	{"manufacturer", models.FieldBrand},
	{"price", models.FieldPrice},
	{"salePrice", models.FieldPrice},
	{"currentPrice", models.FieldPrice},
	{"listPrice", models.FieldPrice},
	{"compareAtPrice", models.FieldPrice},
	{"priceCurrency", models.FieldCurrency},
	{"currency", models.FieldCurrency},
	{"currencyCode", models.FieldCurrency},
	{"image", models.FieldImageURL},
	{"images", models.FieldImageURL},
	{"imageUrl", models.FieldImageURL},
	{"imageUrls", models.FieldImageURL},
	{"primaryImage", models.FieldImageURL},
	{"category", models.FieldCategoryHint},
	{"productType", models.FieldCategoryHint},
	{"breadcrumb", models.FieldCategoryHint},
	{"positiveNotes", models.FieldKeyFeature},
	{"keyFeatures", models.FieldKeyFeature},
	{"features", models.FieldKeyFeature},
	{"highlights", models.FieldKeyFeature},
	{"benefits", models.FieldKeyFeature},
}

// colorKeys are JSON keys whose values are color strings; they feed both the
// color candidate list and a synthesized Color option group.
var colorKeys = []string{
	"color", "colour", "colors", "colourways",
	"colorDescription", "colorName", "hues", "swatchColors",
}

// metaKeyToField maps meta tag keys (property/name/itemprop, lowercased) to
// candidate fields. Meta tags are the universal fallback for
// title/description/primary image.
var metaKeyToField = map[string]models.CandidateField{
	"og:title":                models.FieldTitle,
	"twitter:title":           models.FieldTitle,
	"title":                   models.FieldTitle,
	"description":             models.FieldDescription,
	"og:description":          models.FieldDescription,
	"twitter:description":     models.FieldDescription,
	"og:image":                models.FieldImageURL,
	"twitter:image":           models.FieldImageURL,
	"image":                   models.FieldImageURL,
	"og:brand":                models.FieldBrand,
	"brand":                   models.FieldBrand,
	"product:brand":           models.FieldBrand,
	"product:price:amount":    models.FieldPrice,
	"og:price:amount":         models.FieldPrice,
	"price":                   models.FieldPrice,
	"product:price:currency":  models.FieldCurrency,
	"og:price:currency":       models.FieldCurrency,
	"pricecurrency":           models.FieldCurrency,
}

// structuredPassthroughKeys name list/map values that are JSON-serialized
// into the raw attribute map instead of flattened, preserving structure the
// assembler can still use (variant arrays, option maps).
var structuredPassthroughKeys = []string{"variants", "options", "option_groups"}

// scalarPassthroughKeys are primitive hints carried through the allowlisted
// attribute map when present on a node.
var scalarPassthroughKeys = []string{
	"availability", "sku", "gtin", "gtin13", "mpn", "itemGroupId",
	"ratingValue", "reviewCount", "material", "gender", "condition",
}

// maxStructuredBlobBytes caps serialized passthrough blobs so one enormous
// hydration payload cannot dominate the context.
const maxStructuredBlobBytes = 100_000

// collectFromNode extracts candidates from one decoded JSON node through the
// mapping tables. imageTransform canonicalizes image URLs before insertion.
func collectFromNode(node any, ctx *models.Context, source models.SignalSource, imageTransform func(string) string) {
	for _, m := range jsonKeyMappings {
		values := collectValuesForKey(node, m.key)
		if m.field == models.FieldImageURL && imageTransform != nil {
			for i, v := range values {
				values[i] = imageTransform(v)
			}
		}
		ctx.AddCandidates(m.field, source, values)
	}

	var colorValues []string
	for _, key := range colorKeys {
		for _, v := range collectValuesForKey(node, key) {
			colorValues = append(colorValues, decodeColorValue(v))
		}
	}
	if len(colorValues) > 0 {
		ctx.AddCandidates(models.FieldColor, source, colorValues)
		emitColorOptionGroup(colorValues, ctx)
	}

	for _, key := range structuredPassthroughKeys {
		value := findStructuredValue(node, key)
		if value == nil {
			continue
		}
		serialized, err := json.Marshal(value)
		if err != nil || len(serialized) > maxStructuredBlobBytes {
			continue
		}
		ctx.AddRawAttribute(key, string(serialized))
	}

	for _, key := range scalarPassthroughKeys {
		if v, ok := findScalarValue(node, key); ok {
			ctx.AddRawAttribute(key, v)
		}
	}
}

// collectBreadcrumbs pulls BreadcrumbList item names into category hints.
func collectBreadcrumbs(node any, ctx *models.Context, source models.SignalSource) {
	obj, ok := node.(map[string]any)
	if !ok || obj["@type"] != "BreadcrumbList" {
		return
	}
	elements, ok := obj["itemListElement"].([]any)
	if !ok {
		return
	}
	var names []string
	for _, element := range elements {
		if m, ok := element.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	ctx.AddCandidates(models.FieldCategoryHint, source, names)
}

// iterLinkedDataNodes flattens a JSON-LD payload into its object nodes,
// walking @graph containers (including nested ones) and top-level arrays.
func iterLinkedDataNodes(payload any) []map[string]any {
	var nodes []map[string]any
	switch v := payload.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, item := range graph {
				nodes = append(nodes, iterLinkedDataNodes(item)...)
			}
			return nodes
		}
		nodes = append(nodes, v)
	case []any:
		for _, item := range v {
			nodes = append(nodes, iterLinkedDataNodes(item)...)
		}
	}
	return nodes
}

// collectValuesForKey walks node breadth-first and flattens every value found
// under targetKey into scalar strings. Breadth-first matters: a top-level
// "name" outranks a "name" buried inside a brand object or a variant entry.
// Map keys are visited in sorted order so output is reproducible.
func collectValuesForKey(node any, targetKey string) []string {
	var values []string
	level := []any{node}
	for len(level) > 0 {
		var next []any
		for _, obj := range level {
			switch v := obj.(type) {
			case map[string]any:
				for _, key := range sortedKeys(v) {
					if key == targetKey {
						values = append(values, flattenScalarStrings(v[key])...)
					}
					next = append(next, v[key])
				}
			case []any:
				next = append(next, v...)
			}
		}
		level = next
	}
	return values
}

// flattenScalarStrings converts a JSON value into candidate strings. Nested
// objects contribute their name/value/url/text members; everything else
// non-scalar is dropped.
func flattenScalarStrings(value any) []string {
	switch v := value.(type) {
	case string:
		return []string{v}
	case float64:
		return []string{formatJSONNumber(v)}
	case bool:
		if v {
			return []string{"true"}
		}
		return []string{"false"}
	case map[string]any:
		var out []string
		for _, key := range []string{"name", "value", "url", "text"} {
			if s, ok := v[key].(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flattenScalarStrings(item)...)
		}
		return out
	}
	return nil
}

// findStructuredValue returns the first list or map value under targetKey,
// searching depth-first with sorted map keys.
func findStructuredValue(node any, targetKey string) any {
	switch v := node.(type) {
	case map[string]any:
		if val, ok := v[targetKey]; ok {
			switch val.(type) {
			case []any, map[string]any:
				return val
			}
		}
		for _, key := range sortedKeys(v) {
			if found := findStructuredValue(v[key], targetKey); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := findStructuredValue(item, targetKey); found != nil {
				return found
			}
		}
	}
	return nil
}

// findScalarValue returns the first primitive value under targetKey.
func findScalarValue(node any, targetKey string) (string, bool) {
	switch v := node.(type) {
	case map[string]any:
		if val, ok := v[targetKey]; ok {
			switch s := val.(type) {
			case string:
				if strings.TrimSpace(s) != "" {
					return s, true
				}
			case float64:
				return formatJSONNumber(s), true
			case bool:
				if s {
					return "true", true
				}
				return "false", true
			}
		}
		for _, key := range sortedKeys(v) {
			if found, ok := findScalarValue(v[key], targetKey); ok {
				return found, true
			}
		}
	case []any:
		for _, item := range v {
			if found, ok := findScalarValue(item, targetKey); ok {
				return found, true
			}
		}
	}
	return "", false
}

// emitColorOptionGroup deduplicates color values and emits a Color option
// group when two or more distinct values exist (a single value is not a
// choice).
func emitColorOptionGroup(colorValues []string, ctx *models.Context) {
	seen := make(map[string]struct{})
	var options []models.OptionValue
	for _, raw := range colorValues {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, models.OptionValue{Value: value, Available: true})
	}
	if len(options) >= 2 {
		ctx.AddOptionGroup(models.OptionGroup{Dimension: "Color", Options: options})
	}
}

// decodeColorValue URL-decodes swatch values
// (Blizzard%2FDeep%20Navy → Blizzard/Deep Navy).
func decodeColorValue(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return value
	}
	return decoded
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatJSONNumber renders a float64 the way the source JSON most likely
// wrote it: integers without a decimal point, no exponent noise.
func formatJSONNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
