package assemble

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// draftSchema constrains the resolution service's output. The category is
// selected by position in the numbered candidate list — an integer index,
// never a free-text string — which removes the paraphrase-mismatch failure
// mode entirely; the caller maps the index back to the taxonomy string.
// Price amounts accept both numbers and strings; the numeric token is
// extracted defensively at this boundary rather than trusting upstream
// formatting.
const draftSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "required": ["name", "description", "brand", "category_index", "price", "key_features", "image_urls", "colors", "variants"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "brand": {"type": "string"},
    "category_index": {"type": "integer", "minimum": 1},
    "price": {"$ref": "#/$defs/price"},
    "key_features": {"type": "array", "items": {"type": "string"}},
    "image_urls": {"type": "array", "items": {"type": "string"}},
    "colors": {"type": "array", "items": {"type": "string"}},
    "variants": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "attributes"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "attributes": {"type": "object", "additionalProperties": {"type": "string"}},
          "availability": {"type": ["string", "null"]}
        }
      }
    },
    "offers": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["merchant_name", "price"],
        "properties": {
          "merchant_name": {"type": "string", "minLength": 1},
          "merchant_id": {"type": ["string", "null"]},
          "price": {"$ref": "#/$defs/price"},
          "availability": {"type": ["string", "null"]},
          "shipping": {"type": ["string", "null"]},
          "promo": {"type": ["string", "null"]},
          "source_url": {"type": ["string", "null"]}
        }
      }
    }
  },
  "$defs": {
    "price": {
      "type": "object",
      "additionalProperties": false,
      "required": ["amount", "currency"],
      "properties": {
        "amount": {"type": ["number", "string"]},
        "currency": {"type": "string"},
        "compare_at_amount": {"type": ["number", "string", "null"]}
      }
    }
  }
}`

// compileDraftSchema compiles the draft schema for local validation of
// resolver output.
func compileDraftSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("draft.json", bytes.NewReader([]byte(draftSchema))); err != nil {
		return nil, err
	}
	return compiler.Compile("draft.json")
}

// validateDraftJSON checks raw resolver output against the draft schema.
func validateDraftJSON(schema *jsonschema.Schema, raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}
