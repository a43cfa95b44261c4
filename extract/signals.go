// Package extract turns raw product-page markup into a candidate Context.
//
// Two deterministic passes, no site-specific logic anywhere:
//
//	Pass 1 (ExtractSignals)    — structured data: JSON-LD, meta tags, and
//	                             inline script state objects.
//	Pass 2 (ExtractDOMSignals) — heuristics over the rendered-attribute
//	                             surface: price text, option groups,
//	                             availability, image enrichment.
//
// Both passes write into the same Context through append-only merges, so
// they are independent of each other and of the assembler.
package extract

import (
	"encoding/json"
	"strings"

	"golang.org/x/net/html"

	"github.com/use-agent/skuforge/models"
)

type scriptSignal struct {
	attrs map[string]string
	body  string
}

type metaSignal struct {
	key     string
	content string
}

// ExtractSignals is Pass 1. It unconditionally parses all three structured
// sources from the markup — no source-detection branching — and returns a
// fresh Context. pageURL may be empty; extraction degrades gracefully, it
// never fails.
func ExtractSignals(htmlText, pageURL string) *models.Context {
	ctx := models.NewContext(pageURL)
	scripts, metaTags := collectHTMLSignals(htmlText)

	imageTransform := func(raw string) string {
		return CanonicalizeImageURL(raw, pageURL)
	}

	extractLinkedData(scripts, ctx, imageTransform)
	extractMetaTags(metaTags, ctx, imageTransform)
	extractScriptState(scripts, ctx, imageTransform)
	return ctx
}

// collectHTMLSignals walks the markup once with the streaming tokenizer and
// collects every script body (with attributes) and meta tag key/content pair.
func collectHTMLSignals(htmlText string) ([]scriptSignal, []metaSignal) {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlText))

	var scripts []scriptSignal
	var metaTags []metaSignal
	var scriptAttrs map[string]string
	var scriptChunks []string

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return scripts, metaTags

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			attrs := make(map[string]string, len(token.Attr))
			for _, a := range token.Attr {
				attrs[strings.ToLower(a.Key)] = a.Val
			}

			switch token.DataAtom.String() {
			case "script":
				if tt == html.StartTagToken {
					scriptAttrs = attrs
					scriptChunks = scriptChunks[:0]
				}
			case "meta":
				key := strings.TrimSpace(firstNonEmpty(attrs["property"], attrs["name"], attrs["itemprop"]))
				content := strings.TrimSpace(attrs["content"])
				if key != "" && content != "" {
					metaTags = append(metaTags, metaSignal{key: strings.ToLower(key), content: content})
				}
			}

		case html.TextToken:
			if scriptAttrs != nil {
				scriptChunks = append(scriptChunks, string(tokenizer.Text()))
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "script" && scriptAttrs != nil {
				scripts = append(scripts, scriptSignal{
					attrs: scriptAttrs,
					body:  strings.TrimSpace(strings.Join(scriptChunks, "")),
				})
				scriptAttrs = nil
				scriptChunks = nil
			}
		}
	}
}

// extractLinkedData walks every application/ld+json block: graph nodes
// (nested containers included) feed the mapping tables, breadcrumb nodes
// feed category hints.
func extractLinkedData(scripts []scriptSignal, ctx *models.Context, imageTransform func(string) string) {
	for _, script := range scripts {
		if scriptType(script) != "application/ld+json" {
			continue
		}
		payload := safeJSONDecode(script.body)
		if payload == nil {
			continue
		}
		for _, node := range iterLinkedDataNodes(payload) {
			collectFromNode(node, ctx, models.SourceLinkedData, imageTransform)
			collectBreadcrumbs(node, ctx, models.SourceLinkedData)
		}
	}
}

// extractMetaTags maps Open-Graph-style and standard meta tags through the
// declarative table.
func extractMetaTags(metaTags []metaSignal, ctx *models.Context, imageTransform func(string) string) {
	for _, meta := range metaTags {
		field, ok := metaKeyToField[meta.key]
		if !ok {
			continue
		}
		value := meta.content
		if field == models.FieldImageURL {
			value = imageTransform(value)
		}
		ctx.AddCandidate(field, models.CandidateSignal{Value: value, Source: models.SourceMetaTag})
	}
}

// extractScriptState handles application/json payload scripts and inline
// assignment blobs (SPA hydration state, storefront variable payloads).
func extractScriptState(scripts []scriptSignal, ctx *models.Context, imageTransform func(string) string) {
	for _, script := range scripts {
		if scriptType(script) == "application/json" {
			if payload := safeJSONDecode(script.body); payload != nil {
				collectFromNode(payload, ctx, models.SourceScriptBlob, imageTransform)
			}
		}

		for _, blob := range extractAssignedBlobs(script.body) {
			collectFromNode(blob, ctx, models.SourceScriptBlob, imageTransform)
		}
	}
}

func scriptType(s scriptSignal) string {
	return strings.ToLower(strings.TrimSpace(s.attrs["type"]))
}

func safeJSONDecode(body string) any {
	var payload any
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil
	}
	return payload
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
