// Package store persists assembled products as one JSON file per record and
// serves reads from an in-memory index loaded at startup.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/use-agent/skuforge/models"
)

// Store is a disk-backed product store. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	dir      string
	products map[string]*models.Product
}

// Open loads every product record under dir into the in-memory index,
// creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create product dir: %w", err)
	}

	s := &Store{dir: dir, products: make(map[string]*models.Product)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read product dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read product %s: %w", e.Name(), err)
		}
		var p models.Product
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", e.Name(), err)
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		s.products[id] = &p
	}
	return s, nil
}

// Put writes the product to disk and updates the index. The write is
// atomic: a temp file renamed into place, so a crashed write never leaves a
// truncated record behind.
func (s *Store) Put(id string, p *models.Product) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode product %s: %w", id, err)
	}

	final := filepath.Join(s.dir, id+".json")
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write product %s: %w", id, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("commit product %s: %w", id, err)
	}

	s.mu.Lock()
	s.products[id] = p
	s.mu.Unlock()
	return nil
}

// Get returns the product with the given id, or false.
func (s *Store) Get(id string) (*models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// List returns summaries of every product, sorted by id.
func (s *Store) List() []models.ProductSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.ProductSummary, 0, len(ids))
	for _, id := range ids {
		p := s.products[id]
		summary := models.ProductSummary{
			ID:       id,
			Name:     p.Name,
			Brand:    p.Brand,
			Price:    p.Price,
			Category: p.Category,
		}
		if len(p.ImageURLs) > 0 {
			summary.ImageURL = p.ImageURLs[0]
		}
		out = append(out, summary)
	}
	return out
}

// All returns a deep-copied snapshot of the id→product index for batch
// passes. Indexed records are shared with concurrent readers, so callers
// mutate the copies and persist them with Put, which swaps the fresh
// pointer into the index.
func (s *Store) All() map[string]*models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Product, len(s.products))
	for id, p := range s.products {
		out[id] = p.Clone()
	}
	return out
}

// Len reports the number of stored products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
