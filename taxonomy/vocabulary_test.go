package taxonomy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.txt")
	content := `# comment line
Apparel & Accessories > Shoes > Sneakers

Electronics > Audio > Headphones
Electronics > Audio > Headphones
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	vocab, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if vocab.Len() != 2 {
		t.Errorf("comments/blanks skipped, duplicates collapsed: got %d", vocab.Len())
	}
	if !vocab.Contains("Electronics > Audio > Headphones") {
		t.Error("membership check failed")
	}
	if vocab.Contains("Electronics") {
		t.Error("partial paths are not members")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("missing file must error")
	}
}
