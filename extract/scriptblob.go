package extract

import (
	"encoding/json"
	"log/slog"
	"regexp"
)

// Assignment prefixes that commonly carry hydration state or storefront
// variable payloads:
//
//	window.__STATE__ = {...};   self.__DATA__ = [...];
//	globalThis.productState = {...};
//	var meta = {...};   let config = [...];   const page = {...};
//
// The object literal after the "=" is pulled out with a character-level
// balanced scan, not a script parser. Anything that fails to decode as JSON
// is logged at debug level and skipped.
var assignmentPrefixPattern = regexp.MustCompile(
	`(?:window|self|globalThis)\.[A-Za-z0-9_$]+\s*=|(?:\b(?:var|let|const)\s+)[A-Za-z_$][A-Za-z0-9_$]*\s*=`,
)

// extractAssignedBlobs returns every decodable JSON payload assigned inside
// a script body. Malformed literals are never fatal.
func extractAssignedBlobs(scriptBody string) []any {
	var payloads []any
	idx := 0
	for {
		loc := assignmentPrefixPattern.FindStringIndex(scriptBody[idx:])
		if loc == nil {
			break
		}
		matchEnd := idx + loc[1]

		jsonStart := nextJSONStart(scriptBody, matchEnd)
		if jsonStart < 0 {
			idx = matchEnd
			continue
		}

		extracted, endIdx := extractBalancedJSON(scriptBody, jsonStart)
		if extracted != "" {
			var payload any
			if err := json.Unmarshal([]byte(extracted), &payload); err != nil {
				slog.Debug("skipping unparsable script assignment", "length", len(extracted), "error", err)
			} else {
				payloads = append(payloads, payload)
			}
		}
		idx = endIdx
	}
	return payloads
}

// nextJSONStart finds the first "{" or "[" after startIdx, giving up at the
// statement boundary so `var x = 5;` never scans into the next statement.
func nextJSONStart(text string, startIdx int) int {
	for i := startIdx; i < len(text); i++ {
		switch text[i] {
		case '{', '[':
			return i
		case ';':
			return -1
		}
	}
	return -1
}

// extractBalancedJSON scans from the opening delimiter to its balanced
// close, honoring double-quoted strings and backslash escapes. Returns the
// slice and the index just past it, or "" when the input is truncated.
func extractBalancedJSON(text string, startIdx int) (string, int) {
	opening := text[startIdx]
	var closing byte = '}'
	if opening == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case opening:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[startIdx : i+1], i + 1
			}
		}
	}
	return "", len(text)
}
