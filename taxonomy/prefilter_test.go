package taxonomy

import (
	"strings"
	"testing"

	"github.com/use-agent/skuforge/models"
)

func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	vocab, err := New([]string{
		"Apparel & Accessories > Shoes > Running Shoes",
		"Apparel & Accessories > Shoes > Sneakers",
		"Apparel & Accessories > Clothing > Hoodies",
		"Electronics > Audio > Headphones",
		"Electronics > Audio > Speakers",
		"Electronics > Computers > Laptops",
		"Home & Garden > Kitchen > Cookware",
		"Home & Garden > Furniture > Desks",
	})
	if err != nil {
		t.Fatal(err)
	}
	return vocab
}

func TestSelectCandidates_RelevantCategoryInTopK(t *testing.T) {
	vocab := testVocabulary(t)
	p := NewPrefilter(vocab)

	ctx := models.NewContext("")
	ctx.AddCandidates(models.FieldTitle, models.SourceLinkedData, []string{"Aero Trail Running Shoes"})
	ctx.AddCandidates(models.FieldCategoryHint, models.SourceLinkedData, []string{"Shoes"})

	got := p.SelectCandidates(ctx, 3)
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	joined := strings.Join(got, "|")
	if !strings.Contains(joined, "Running Shoes") {
		t.Errorf("relevant category missing from top candidates: %v", got)
	}
	for _, c := range got {
		if !vocab.Contains(c) {
			t.Errorf("candidate %q is not a vocabulary member", c)
		}
	}
}

func TestSelectCandidates_TopKCap(t *testing.T) {
	vocab := testVocabulary(t)
	p := NewPrefilter(vocab)

	ctx := models.NewContext("")
	ctx.AddCandidates(models.FieldTitle, models.SourceLinkedData, []string{"Shoes"})

	if got := p.SelectCandidates(ctx, 100); len(got) > vocab.Len() {
		t.Errorf("candidate list exceeds vocabulary size: %d", len(got))
	}
	if got := p.SelectCandidates(ctx, 2); len(got) != 2 {
		t.Errorf("topK not honored: %v", got)
	}
}

func TestSelectCandidates_ZeroOverlapFallsBackToSegments(t *testing.T) {
	vocab := testVocabulary(t)
	p := NewPrefilter(vocab)

	ctx := models.NewContext("")
	ctx.AddCandidates(models.FieldTitle, models.SourceLinkedData, []string{"zzqq xyzzy plugh"})

	got := p.SelectCandidates(ctx, 5)
	if len(got) == 0 {
		t.Fatal("fallback must never return an empty list")
	}
	// Top-level segments come first: broad coverage beats arbitrary leaves.
	wantSegments := map[string]struct{}{
		"Apparel & Accessories": {}, "Electronics": {}, "Home & Garden": {},
	}
	for i := 0; i < 3 && i < len(got); i++ {
		if _, ok := wantSegments[got[i]]; !ok {
			t.Errorf("expected top-level segment at position %d, got %q", i, got[i])
		}
	}
}

func TestSelectCandidates_EmptyContextUsesFallback(t *testing.T) {
	p := NewPrefilter(testVocabulary(t))
	got := p.SelectCandidates(models.NewContext(""), 20)
	if len(got) == 0 {
		t.Fatal("empty context must still yield candidates")
	}
}

func TestSelectCandidates_Deterministic(t *testing.T) {
	vocab := testVocabulary(t)

	run := func() []string {
		ctx := models.NewContext("")
		ctx.AddCandidates(models.FieldTitle, models.SourceLinkedData, []string{"Audio Headphones"})
		return NewPrefilter(vocab).SelectCandidates(ctx, 4)
	}

	a, b := run(), run()
	if strings.Join(a, "|") != strings.Join(b, "|") {
		t.Errorf("same input ranked differently: %v vs %v", a, b)
	}
}

func TestLoadVocabulary_EmptyRejected(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("empty vocabulary must be rejected")
	}
	if _, err := New([]string{"  ", ""}); err == nil {
		t.Error("whitespace-only vocabulary must be rejected")
	}
}
