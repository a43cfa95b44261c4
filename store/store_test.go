package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/use-agent/skuforge/config"
	"github.com/use-agent/skuforge/identity"
	"github.com/use-agent/skuforge/models"
)

func sampleProduct(name string) *models.Product {
	return &models.Product{
		Name:        name,
		Brand:       "Stride",
		KeyFeatures: []string{},
		Price:       models.Price{Price: 29.95, Currency: "USD"},
		Category:    models.Category{Name: "Apparel & Accessories > Shoes > Running Shoes"},
		ImageURLs:   []string{"https://cdn.example.com/a.jpg"},
		Colors:      []string{},
		Variants:    []models.Variant{},
		Offers:      []models.Offer{},
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}

	want := sampleProduct("Aero Trail Runner")
	if err := s.Put("abc123", want); err != nil {
		t.Fatal(err)
	}

	got, ok := s.Get("abc123")
	if !ok {
		t.Fatal("product not found after Put")
	}
	if got.Name != want.Name {
		t.Errorf("got %q, want %q", got.Name, want.Name)
	}

	// A fresh Store over the same directory sees the persisted record.
	s2, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	reloaded, ok := s2.Get("abc123")
	if !ok {
		t.Fatal("product not found after reopen")
	}
	if reloaded.Price.Price != 29.95 {
		t.Errorf("price lost on reload: %v", reloaded.Price)
	}
}

func TestStore_ListSortedByID(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"c", "a", "b"} {
		if err := s.Put(id, sampleProduct("Product "+id)); err != nil {
			t.Fatal(err)
		}
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(list))
	}
	for i, want := range []string{"a", "b", "c"} {
		if list[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, list[i].ID, want)
		}
	}
	if list[0].ImageURL != "https://cdn.example.com/a.jpg" {
		t.Errorf("summary should carry the first image URL: %q", list[0].ImageURL)
	}
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put("p1", sampleProduct("One")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "p1.json" {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestStore_AllReturnsIsolatedCopies(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := sampleProduct("Aero Trail Runner")
	p.Variants = []models.Variant{{Name: "Red / M", Attributes: map[string]string{"Color": "Red"}}}
	if err := s.Put("p1", p); err != nil {
		t.Fatal(err)
	}

	snapshot := s.All()
	snapshot["p1"].CanonicalProductID = "cp_deadbeef"
	snapshot["p1"].ImageURLs[0] = "https://cdn.example.com/mutated.jpg"
	snapshot["p1"].Variants[0].Attributes["Color"] = "Blue"

	stored, _ := s.Get("p1")
	if stored.CanonicalProductID != "" {
		t.Error("mutating the snapshot must not write through to the index")
	}
	if stored.ImageURLs[0] != "https://cdn.example.com/a.jpg" {
		t.Errorf("image slice shared with snapshot: %q", stored.ImageURLs[0])
	}
	if stored.Variants[0].Attributes["Color"] != "Red" {
		t.Error("variant attributes shared with snapshot")
	}
}

func TestStore_BatchResolveWhileReading(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a := sampleProduct("Aero Trail Runner 12345678901")
	b := sampleProduct("ATR shoe 12345678901")
	if err := s.Put("p1", a); err != nil {
		t.Fatal(err)
	}
	if err := s.Put("p2", b); err != nil {
		t.Fatal(err)
	}

	resolver, err := identity.NewResolver(config.IdentityConfig{
		MatchThreshold:      0.62,
		TitleWeight:         0.75,
		BrandWeight:         0.25,
		GTINConfidenceFloor: 0.95,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Readers marshal live records while the batch pass mutates its
	// snapshot and swaps results in with Put.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if p, ok := s.Get("p1"); ok {
				if _, err := json.Marshal(p); err != nil {
					t.Errorf("marshal during batch pass: %v", err)
					return
				}
			}
		}
	}()

	for i := 0; i < 20; i++ {
		products := s.All()
		resolver.Resolve(products)
		for id, p := range products {
			if err := s.Put(id, p); err != nil {
				t.Fatal(err)
			}
		}
	}
	<-done

	p1, _ := s.Get("p1")
	p2, _ := s.Get("p2")
	if p1.CanonicalProductID == "" || p1.CanonicalProductID != p2.CanonicalProductID {
		t.Errorf("batch results not visible after Put: %q vs %q", p1.CanonicalProductID, p2.CanonicalProductID)
	}
}

func TestLoadCorpus_ManifestAndSorting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.html", "<html>b</html>")
	writeFile(t, dir, "a.html", "<html>a</html>")
	writeFile(t, dir, "notes.txt", "skip me")

	manifest, _ := json.Marshal(map[string]string{"a.html": "https://shop.example.com/a"})
	writeFile(t, dir, "pages.json", string(manifest))

	pages, err := LoadCorpus(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Filename != "a.html" || pages[1].Filename != "b.html" {
		t.Errorf("pages not sorted by filename: %+v", pages)
	}
	if pages[0].URL != "https://shop.example.com/a" {
		t.Errorf("manifest URL not resolved: %q", pages[0].URL)
	}
	if pages[1].URL != "" {
		t.Errorf("unmapped page should have empty URL: %q", pages[1].URL)
	}
}

func TestLoadCorpus_MissingManifestTolerated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "only.html", "<html></html>")

	pages, err := LoadCorpus(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].URL != "" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
