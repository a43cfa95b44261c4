package extract

import (
	"net/url"
	"strings"
)

// resizeQueryKeys are CDN resize/quality parameters stripped during image
// URL canonicalization so the same asset at different render sizes
// deduplicates to one entry.
var resizeQueryKeys = map[string]struct{}{
	"w": {}, "width": {}, "h": {}, "height": {},
	"q": {}, "quality": {}, "fit": {}, "crop": {},
	"auto": {}, "fm": {}, "format": {}, "ixlib": {}, "_mzcb": {},
}

// CanonicalizeImageURL resolves value to absolute form against pageURL and
// strips recognized resize parameters and the fragment. This is the one
// resolution step allowed before assembly: two spellings of the same asset
// must collapse to one candidate. Unparsable input is returned trimmed but
// otherwise untouched.
func CanonicalizeImageURL(value, pageURL string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return raw
	}

	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	} else if pageURL != "" {
		base, err := url.Parse(pageURL)
		if err == nil {
			resolved, err := base.Parse(raw)
			if err != nil {
				return raw
			}
			raw = resolved.String()
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = stripResizeParams(parsed.RawQuery)
	parsed.Fragment = ""
	return parsed.String()
}

// stripResizeParams removes resize keys from a raw query string while
// preserving the order and encoding of the remaining pairs.
func stripResizeParams(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if _, drop := resizeQueryKeys[key]; drop {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}
