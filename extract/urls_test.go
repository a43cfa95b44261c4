package extract

import "testing"

func TestCanonicalizeImageURL(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		pageURL string
		want    string
	}{
		{
			name:    "relative path resolved",
			value:   "/img/shoe.jpg",
			pageURL: "https://shop.example.com/p/1",
			want:    "https://shop.example.com/img/shoe.jpg",
		},
		{
			name:    "protocol relative upgraded",
			value:   "//cdn.example.com/shoe.jpg",
			pageURL: "https://shop.example.com/p/1",
			want:    "https://cdn.example.com/shoe.jpg",
		},
		{
			name:    "resize params stripped, others kept",
			value:   "https://cdn.example.com/shoe.jpg?w=640&v=3&quality=80",
			pageURL: "",
			want:    "https://cdn.example.com/shoe.jpg?v=3",
		},
		{
			name:    "fragment dropped",
			value:   "https://cdn.example.com/shoe.jpg#zoomed",
			pageURL: "",
			want:    "https://cdn.example.com/shoe.jpg",
		},
		{
			name:    "no page URL leaves relative untouched",
			value:   "/img/shoe.jpg",
			pageURL: "",
			want:    "/img/shoe.jpg",
		},
		{
			name:    "whitespace trimmed",
			value:   "  https://cdn.example.com/shoe.jpg  ",
			pageURL: "",
			want:    "https://cdn.example.com/shoe.jpg",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanonicalizeImageURL(tc.value, tc.pageURL); got != tc.want {
				t.Errorf("CanonicalizeImageURL(%q, %q) = %q, want %q", tc.value, tc.pageURL, got, tc.want)
			}
		})
	}
}

func TestCanonicalizeImageURL_SameAssetDifferentSizes(t *testing.T) {
	a := CanonicalizeImageURL("https://cdn.example.com/shoe.jpg?w=300&h=300", "")
	b := CanonicalizeImageURL("https://cdn.example.com/shoe.jpg?w=1200&h=1200", "")
	if a != b {
		t.Errorf("two render sizes of the same asset must collapse: %q vs %q", a, b)
	}
}
