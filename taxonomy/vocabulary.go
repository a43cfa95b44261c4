// Package taxonomy loads the fixed category vocabulary and narrows it to a
// short candidate list for the assembler.
//
// The vocabulary is a flat file of category paths in Google Product Taxonomy
// form ("Apparel & Accessories > Shoes"), one per line, with "#" comments.
// It is loaded once and treated as immutable for the process lifetime.
package taxonomy

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Vocabulary is the immutable set of valid category strings.
type Vocabulary struct {
	categories []string // sorted, deduplicated
	members    map[string]struct{}
}

// LoadFile reads a vocabulary file. Blank lines and lines starting with "#"
// are skipped. An empty vocabulary is an error: every Product must carry a
// category from this set.
func LoadFile(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	return New(lines)
}

// New builds a Vocabulary from raw category strings.
func New(categories []string) (*Vocabulary, error) {
	members := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		members[c] = struct{}{}
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("taxonomy vocabulary is empty")
	}

	sorted := make([]string, 0, len(members))
	for c := range members {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	return &Vocabulary{categories: sorted, members: members}, nil
}

// Contains reports whether name is a member of the vocabulary.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.members[name]
	return ok
}

// Categories returns the sorted category list. Callers must not mutate it.
func (v *Vocabulary) Categories() []string {
	return v.categories
}

// Len returns the number of categories.
func (v *Vocabulary) Len() int {
	return len(v.categories)
}
