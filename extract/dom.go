package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/use-agent/skuforge/models"
)

// Dimension names that indicate non-product selectors (image carousels,
// geography pickers, quantity steppers).
var nonProductDimensions = map[string]struct{}{
	"Thumbnail": {}, "Country": {}, "Quantity": {}, "Qty": {},
	"State": {}, "Language": {}, "Currency": {}, "Region": {},
}

// A single value is not a choice.
const minOptionValues = 2

// Aria-label patterns on interactive controls that encode a
// (dimension, value) pair:
//
//	"Size Option: Large"  /  "Select size 8.5"
var (
	optionLabelPattern = regexp.MustCompile(`(?i)^(.+?)\s+Option:\s+(.+)$`)
	selectLabelPattern = regexp.MustCompile(`(?i)^Select\s+(\w+)\s+(.+)$`)
)

// URL substrings marking non-product images: icons, tracking pixels,
// sprites, site chrome.
var nonProductImagePattern = regexp.MustCompile(`(?i)(?:icon|sprite|logo|pixel|favicon|badge|\.svg)`)

// Precompiled selectors for the heuristic sweeps.
var (
	priceItempropSel = cascadia.MustCompile(`[itemprop="price"]`)
	priceDataAttrSel = cascadia.MustCompile(`[data-price]`)
	priceClassSel    = cascadia.MustCompile(`[class*="price"], [class*="Price"]`)
	availabilitySel  = cascadia.MustCompile(`[itemprop="availability"]`)
	ariaLabelSel     = cascadia.MustCompile(`button[aria-label], input[aria-label], [role="radio"][aria-label], [role="option"][aria-label]`)
	selectSel        = cascadia.MustCompile(`select`)
	radioSel         = cascadia.MustCompile(`input[type="radio"]`)
	listboxOptionSel = cascadia.MustCompile(`[role="listbox"] [role="option"]`)
	imageSel         = cascadia.MustCompile(`img`)
)

// ExtractDOMSignals is Pass 2. It enriches ctx in place with signals that
// live in the rendered-attribute surface rather than in structured data
// blobs: price text, option groups, availability, and product images. Safe
// to call on any markup including the empty string. The three heuristics
// are independent; each may contribute nothing.
func ExtractDOMSignals(htmlText string, ctx *models.Context) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return
	}

	applyPriceSignals(doc, ctx)
	applyOptionGroups(doc, ctx)
	applyAvailability(doc, ctx)
	applyImages(doc, ctx)
}

// applyPriceSignals collects price strings from microdata attributes
// anywhere in the tree, explicit data-price attributes, and elements with
// price-indicating class names. Machine-readable attribute values win over
// rendered text.
func applyPriceSignals(doc *goquery.Document, ctx *models.Context) {
	add := func(raw string) {
		cleaned := strings.TrimSpace(raw)
		if cleaned == "" || len(cleaned) > 64 || !containsDigit(cleaned) {
			return
		}
		ctx.AddCandidate(models.FieldPrice, models.CandidateSignal{Value: cleaned, Source: models.SourceDOM})
	}

	doc.FindMatcher(priceItempropSel).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
			add(content)
			return
		}
		add(s.Text())
	})

	doc.FindMatcher(priceDataAttrSel).Each(func(_ int, s *goquery.Selection) {
		value, _ := s.Attr("data-price")
		add(value)
	})

	doc.FindMatcher(priceClassSel).Each(func(_ int, s *goquery.Selection) {
		// Skip container elements whose class merely mentions price; only
		// leaf-ish nodes carry the actual figure.
		if s.Children().Length() > 2 {
			return
		}
		add(s.Text())
	})
}

// applyOptionGroups derives (dimension, value) pairs from accessible labels
// on interactive controls and from native selection controls, then groups
// them into OptionGroups, dropping known non-product dimensions and groups
// with fewer than two distinct values.
func applyOptionGroups(doc *goquery.Document, ctx *models.Context) {
	type signal struct {
		dimension string
		value     string
		available bool
	}
	var signals []signal

	addSignal := func(dimension, value string, available bool) {
		dimension = titleCase(strings.TrimSpace(dimension))
		value = strings.TrimSpace(value)
		if dimension == "" || value == "" {
			return
		}
		signals = append(signals, signal{dimension: dimension, value: value, available: available})
	}

	doc.FindMatcher(ariaLabelSel).Each(func(_ int, s *goquery.Selection) {
		label, _ := s.Attr("aria-label")
		label = strings.TrimSpace(label)
		if label == "" {
			return
		}
		available := !isDisabled(s)
		if m := optionLabelPattern.FindStringSubmatch(label); m != nil {
			addSignal(m[1], m[2], available)
			return
		}
		if m := selectLabelPattern.FindStringSubmatch(label); m != nil {
			addSignal(m[1], m[2], available)
		}
	})

	doc.FindMatcher(selectSel).Each(func(_ int, s *goquery.Selection) {
		dimension := controlDimension(s)
		if dimension == "" {
			return
		}
		s.Find("option").Each(func(_ int, opt *goquery.Selection) {
			value := strings.TrimSpace(opt.Text())
			if v, ok := opt.Attr("value"); ok && strings.TrimSpace(v) == "" {
				return // placeholder entry
			}
			if value == "" || strings.HasPrefix(strings.ToLower(value), "select") {
				return
			}
			addSignal(dimension, value, !isDisabled(opt))
		})
	})

	doc.FindMatcher(radioSel).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		if value == "" {
			value = strings.TrimSpace(s.Parent().Find("label").First().Text())
		}
		addSignal(name, value, !isDisabled(s))
	})

	doc.FindMatcher(listboxOptionSel).Each(func(_ int, s *goquery.Selection) {
		listbox := s.Closest(`[role="listbox"]`)
		dimension := controlDimension(listbox)
		if dimension == "" {
			return
		}
		addSignal(dimension, strings.TrimSpace(s.Text()), !isDisabled(s))
	})

	// Group in first-seen dimension order, deduplicating values.
	grouped := make(map[string][]models.OptionValue)
	seenValues := make(map[string]map[string]struct{})
	var order []string
	for _, sig := range signals {
		if _, skip := nonProductDimensions[sig.dimension]; skip {
			continue
		}
		if seenValues[sig.dimension] == nil {
			seenValues[sig.dimension] = make(map[string]struct{})
			order = append(order, sig.dimension)
		}
		if _, dup := seenValues[sig.dimension][sig.value]; dup {
			continue
		}
		seenValues[sig.dimension][sig.value] = struct{}{}
		grouped[sig.dimension] = append(grouped[sig.dimension], models.OptionValue{
			Value:     sig.value,
			Available: sig.available,
		})
	}

	for _, dimension := range order {
		options := grouped[dimension]
		if len(options) < minOptionValues {
			continue
		}
		ctx.AddOptionGroup(models.OptionGroup{Dimension: dimension, Options: options})
	}
}

// applyAvailability captures the first microdata availability attribute,
// stripping the schema.org vocabulary prefix to a short token
// ("https://schema.org/InStock" → "InStock").
func applyAvailability(doc *goquery.Document, ctx *models.Context) {
	doc.FindMatcher(availabilitySel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content, ok := s.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			content, _ = s.Attr("href")
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return true
		}
		token := strings.TrimPrefix(content, "https://schema.org/")
		token = strings.TrimPrefix(token, "http://schema.org/")
		ctx.AddRawAttribute("availability", token)
		return false
	})
}

// applyImages enriches image candidates from the DOM surface through the
// ranking ladder: zoom-hint attribute, then the highest-resolution srcset
// entry, then lazy-load sources, then plain src. Known non-product images
// (icons, pixels, tiny fixed dimensions) are filtered out. Canonicalization
// and deduplication happen in the context at write time.
func applyImages(doc *goquery.Document, ctx *models.Context) {
	doc.FindMatcher(imageSel).Each(func(_ int, s *goquery.Selection) {
		raw := pickImageSource(s)
		if raw == "" || nonProductImagePattern.MatchString(raw) {
			return
		}
		if isTinyImage(s) {
			return
		}
		canonical := CanonicalizeImageURL(raw, ctx.PageURL)
		ctx.AddCandidate(models.FieldImageURL, models.CandidateSignal{Value: canonical, Source: models.SourceDOM})
	})
}

// pickImageSource walks the ranking ladder for one img element.
func pickImageSource(s *goquery.Selection) string {
	if v, ok := s.Attr("data-zoom-image"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if srcset, ok := s.Attr("srcset"); ok {
		if best := bestSrcsetEntry(srcset); best != "" {
			return best
		}
	}
	for _, attr := range []string{"data-src", "data-lazy-src", "data-original"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if v, ok := s.Attr("src"); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// bestSrcsetEntry returns the URL with the largest width descriptor.
// Entries without a numeric descriptor rank below any entry with one; ties
// and descriptor-free srcsets fall back to the last (conventionally largest)
// entry.
func bestSrcsetEntry(srcset string) string {
	type entry struct {
		url   string
		width int
	}
	var entries []entry
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		e := entry{url: fields[0]}
		if len(fields) > 1 {
			descriptor := fields[1]
			if strings.HasSuffix(descriptor, "w") {
				if w, err := strconv.Atoi(strings.TrimSuffix(descriptor, "w")); err == nil {
					e.width = w
				}
			}
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return ""
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.width >= best.width {
			best = e
		}
	}
	return best.url
}

// isTinyImage filters out fixed-dimension chrome (spacers, pixels).
func isTinyImage(s *goquery.Selection) bool {
	w, wok := s.Attr("width")
	h, hok := s.Attr("height")
	if !wok || !hok {
		return false
	}
	wi, werr := strconv.Atoi(strings.TrimSpace(w))
	hi, herr := strconv.Atoi(strings.TrimSpace(h))
	return werr == nil && herr == nil && wi <= 64 && hi <= 64
}

// controlDimension derives a dimension name from a form control's
// aria-label, name, or id attribute.
func controlDimension(s *goquery.Selection) string {
	for _, attr := range []string{"aria-label", "name", "id"} {
		if v, ok := s.Attr(attr); ok {
			v = strings.TrimSpace(v)
			if v != "" {
				return titleCase(v)
			}
		}
	}
	return ""
}

func isDisabled(s *goquery.Selection) bool {
	if _, ok := s.Attr("disabled"); ok {
		return true
	}
	if v, ok := s.Attr("aria-disabled"); ok && strings.EqualFold(strings.TrimSpace(v), "true") {
		return true
	}
	return false
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
}

// titleCase uppercases the first letter of each word, matching how
// dimensions read in accessible labels ("size" → "Size").
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
