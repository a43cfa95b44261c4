package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Page is one saved product page from the seed corpus.
type Page struct {
	Filename string
	URL      string
	HTML     string
}

// LoadCorpus reads saved HTML pages from dir, resolving each file's source
// URL through the pages.json manifest when present. Files absent from the
// manifest still load; their URL is empty and extraction degrades to
// relative-URL handling. Pages come back sorted by filename so batch runs
// are reproducible.
func LoadCorpus(dir string) ([]Page, error) {
	manifest, err := loadManifest(filepath.Join(dir, "pages.json"))
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".html" && ext != ".htm" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	pages := make([]Page, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read page %s: %w", name, err)
		}
		pages = append(pages, Page{
			Filename: name,
			URL:      manifest[name],
			HTML:     string(data),
		})
	}
	return pages, nil
}

// loadManifest reads the filename→URL map. A missing manifest is not an
// error; an unreadable or malformed one is.
func loadManifest(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus manifest: %w", err)
	}
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode corpus manifest: %w", err)
	}
	return manifest, nil
}
