package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Price is a parsed monetary amount. CompareAtPrice carries the pre-sale
// price when the product is discounted.
type Price struct {
	Price          float64  `json:"price"`
	Currency       string   `json:"currency"`
	CompareAtPrice *float64 `json:"compare_at_price,omitempty"`
}

func (p Price) clone() Price {
	out := p
	if p.CompareAtPrice != nil {
		v := *p.CompareAtPrice
		out.CompareAtPrice = &v
	}
	return out
}

// currencySymbols maps common symbols to ISO codes for defensive parsing of
// adversarial price strings ("$99.00", "£1,299", "1 299,95 €").
var currencySymbols = map[rune]string{
	'$': "USD",
	'£': "GBP",
	'€': "EUR",
	'¥': "JPY",
	'₹': "INR",
}

// ParsePrice builds a Price from an arbitrary price string encoding.
// It extracts the first numeric token, tolerating currency symbols, ISO
// codes, thousands separators, and non-breaking whitespace. currencyHint
// wins over any symbol found in the string; an empty hint falls back to the
// symbol, then to "USD".
func ParsePrice(raw string, currencyHint string) (Price, error) {
	amount, symbolCurrency, err := ParseAmount(raw)
	if err != nil {
		return Price{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(currencyHint))
	if currency == "" {
		currency = symbolCurrency
	}
	if currency == "" {
		currency = "USD"
	}
	return Price{Price: amount, Currency: currency}, nil
}

// ParseAmount extracts the first numeric token from raw and returns it with
// any currency inferred from a symbol. The scan normalises NBSP and
// narrow-NBSP to plain spaces first, then reads the first run of digits with
// optional separators. "1,299.95" and "1.299,95" both parse to 1299.95.
func ParseAmount(raw string) (float64, string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u202f', '\u2009': // NBSP, narrow NBSP, thin space
			return ' '
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, "", fmt.Errorf("empty price string")
	}

	currency := ""
	for _, r := range cleaned {
		if code, ok := currencySymbols[r]; ok {
			currency = code
			break
		}
	}

	token := firstNumericToken(cleaned)
	if token == "" {
		return 0, "", fmt.Errorf("no numeric token in price %q", raw)
	}

	value, err := strconv.ParseFloat(normalizeSeparators(token), 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse price %q: %w", raw, err)
	}
	return value, currency, nil
}

// firstNumericToken returns the first maximal run of digits, commas and dots
// that starts with a digit. A single space between digit groups is accepted
// as a thousands separator ("1 299,95"); trailing separators are trimmed.
func firstNumericToken(s string) string {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := start
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == ',' || c == '.' {
			end++
			continue
		}
		// Space counts only when bridging two digits.
		if c == ' ' && end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9' {
			end++
			continue
		}
		break
	}
	return strings.TrimRight(s[start:end], ",. ")
}

// normalizeSeparators rewrites a numeric token into ParseFloat form.
// A single comma followed by exactly two digits is treated as a decimal
// comma ("1299,95"); all other commas are thousands separators. When both
// separators appear, the last one wins as the decimal mark. Spaces are
// always thousands grouping.
func normalizeSeparators(token string) string {
	token = strings.ReplaceAll(token, " ", "")
	lastComma := strings.LastIndex(token, ",")
	lastDot := strings.LastIndex(token, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// European style: dots group, comma is decimal.
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	case lastComma >= 0:
		decimals := len(token) - lastComma - 1
		if strings.Count(token, ",") == 1 && (decimals == 1 || decimals == 2) {
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	}
	return token
}
