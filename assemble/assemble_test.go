package assemble

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/skuforge/models"
	"github.com/use-agent/skuforge/taxonomy"
)

// stubResolver replays canned drafts and records every prompt it was sent.
type stubResolver struct {
	responses []json.RawMessage
	prompts   []string
	calls     int
}

func (s *stubResolver) Resolve(_ context.Context, _, userPrompt string, _ json.RawMessage) (json.RawMessage, error) {
	s.prompts = append(s.prompts, userPrompt)
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx], nil
}

func testVocab(t *testing.T) *taxonomy.Vocabulary {
	t.Helper()
	vocab, err := taxonomy.New([]string{
		"Apparel & Accessories > Shoes > Running Shoes",
		"Electronics > Audio > Headphones",
		"Home & Garden > Kitchen > Cookware",
	})
	require.NoError(t, err)
	return vocab
}

func testCandidates() []string {
	return []string{
		"Apparel & Accessories > Shoes > Running Shoes",
		"Electronics > Audio > Headphones",
	}
}

func validDraft(overrides map[string]any) json.RawMessage {
	draft := map[string]any{
		"name":           "Aero Trail Runner",
		"description":    "Lightweight trail shoe.",
		"brand":          "Stride",
		"category_index": 1,
		"price":          map[string]any{"amount": 29.95, "currency": "USD"},
		"key_features":   []any{"Breathable mesh"},
		"image_urls":     []any{},
		"colors":         []any{},
		"variants":       []any{},
	}
	for k, v := range overrides {
		draft[k] = v
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		panic(err)
	}
	return raw
}

func newTestAssembler(t *testing.T, resolver Resolver) *Assembler {
	t.Helper()
	a, err := New(resolver, testVocab(t))
	require.NoError(t, err)
	return a
}

func TestAssemble_FirstAttemptSucceeds(t *testing.T) {
	stub := &stubResolver{responses: []json.RawMessage{validDraft(nil)}}
	a := newTestAssembler(t, stub)

	product, err := a.Assemble(context.Background(), models.NewContext(""), testCandidates())
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "Aero Trail Runner", product.Name)
	assert.Equal(t, 29.95, product.Price.Price)
	assert.Equal(t, "USD", product.Price.Currency)
	// category_index 1 maps to the first numbered candidate.
	assert.Equal(t, "Apparel & Accessories > Shoes > Running Shoes", product.Category.Name)
}

func TestAssemble_StringAmountParsed(t *testing.T) {
	stub := &stubResolver{responses: []json.RawMessage{validDraft(map[string]any{
		"price": map[string]any{"amount": "$1,299.95", "currency": "usd", "compare_at_amount": "1,499.00"},
	})}}
	a := newTestAssembler(t, stub)

	product, err := a.Assemble(context.Background(), models.NewContext(""), testCandidates())
	require.NoError(t, err)
	assert.Equal(t, 1299.95, product.Price.Price)
	assert.Equal(t, "USD", product.Price.Currency)
	require.NotNil(t, product.Price.CompareAtPrice)
	assert.Equal(t, 1499.00, *product.Price.CompareAtPrice)
}

func TestAssemble_RetriesOnceWithValidationError(t *testing.T) {
	stub := &stubResolver{responses: []json.RawMessage{
		validDraft(map[string]any{"category_index": 99}), // schema-valid, out of candidate range
		validDraft(map[string]any{"category_index": 2}),
	}}
	a := newTestAssembler(t, stub)

	product, err := a.Assemble(context.Background(), models.NewContext(""), testCandidates())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls, "exactly one retry")
	assert.Equal(t, "Electronics > Audio > Headphones", product.Category.Name)
	// The retry prompt carries the validation error back to the service.
	assert.Contains(t, stub.prompts[1], "category_index 99 out of range")
}

func TestAssemble_SecondFailureDegradesToPartial(t *testing.T) {
	bad := validDraft(map[string]any{
		"category_index": 99,
		"variants": []any{map[string]any{
			"name":       "Red / M",
			"attributes": map[string]any{"color": "Red", "size": "M"},
		}},
	})
	stub := &stubResolver{responses: []json.RawMessage{bad, bad}}
	a := newTestAssembler(t, stub)

	product, err := a.Assemble(context.Background(), models.NewContext(""), testCandidates())
	require.NoError(t, err)
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, "Aero Trail Runner", product.Name)
	// Category falls back to the top-ranked candidate; derived collections
	// are emptied because they never passed validation.
	assert.Equal(t, "Apparel & Accessories > Shoes > Running Shoes", product.Category.Name)
	assert.Empty(t, product.Variants)
	assert.Empty(t, product.ImageURLs)
}

func TestAssemble_UnsalvageableRecordSkipped(t *testing.T) {
	bad := json.RawMessage(`{"description": "no name, no price"}`)
	stub := &stubResolver{responses: []json.RawMessage{bad, bad}}
	a := newTestAssembler(t, stub)

	_, err := a.Assemble(context.Background(), models.NewContext(""), testCandidates())
	require.Error(t, err)
	var extractErr *models.ExtractError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, models.ErrCodeRecordSkipped, extractErr.Code)
}

func TestAssemble_VariantCap(t *testing.T) {
	variants := make([]any, 0, models.MaxVariants+10)
	for i := 0; i < models.MaxVariants+10; i++ {
		variants = append(variants, map[string]any{
			"name":       fmt.Sprintf("Size %d", i),
			"attributes": map[string]any{"size": fmt.Sprintf("%d", i)},
		})
	}
	stub := &stubResolver{responses: []json.RawMessage{validDraft(map[string]any{"variants": variants})}}
	a := newTestAssembler(t, stub)

	product, err := a.Assemble(context.Background(), models.NewContext(""), testCandidates())
	require.NoError(t, err)
	assert.Len(t, product.Variants, models.MaxVariants)
}

func TestAssemble_ImageURLsRestrictedToCandidates(t *testing.T) {
	ec := models.NewContext("")
	ec.AddCandidates(models.FieldImageURL, models.SourceLinkedData, []string{
		"https://cdn.example.com/real.jpg",
	})

	stub := &stubResolver{responses: []json.RawMessage{validDraft(map[string]any{
		"image_urls": []any{
			"https://cdn.example.com/real.jpg",
			"https://cdn.example.com/invented.jpg",
			"https://cdn.example.com/real.jpg",
		},
	})}}
	a := newTestAssembler(t, stub)

	product, err := a.Assemble(context.Background(), ec, testCandidates())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/real.jpg"}, product.ImageURLs)
}

func TestAssemble_NoCandidatesRejected(t *testing.T) {
	stub := &stubResolver{responses: []json.RawMessage{validDraft(nil)}}
	a := newTestAssembler(t, stub)

	_, err := a.Assemble(context.Background(), models.NewContext(""), nil)
	require.Error(t, err)
	assert.Zero(t, stub.calls)
}

func TestBuildUserPrompt_NumbersCandidates(t *testing.T) {
	prompt := buildUserPrompt(models.NewContext(""), testCandidates(), "")
	assert.Contains(t, prompt, "1. Apparel & Accessories > Shoes > Running Shoes")
	assert.Contains(t, prompt, "2. Electronics > Audio > Headphones")
	assert.NotContains(t, prompt, "Validation error")

	withErr := buildUserPrompt(models.NewContext(""), testCandidates(), "category_index 99 out of range")
	assert.Contains(t, withErr, "category_index 99 out of range")
	assert.True(t, strings.Contains(withErr, "previous attempt"))
}
