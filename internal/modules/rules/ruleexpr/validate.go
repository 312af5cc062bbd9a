package ruleexpr

import (
	"fmt"
	"strings"
)

var forbiddenKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "ALTER",
	"CREATE", "ATTACH", "PRAGMA", "UNION",
}

// probeRow is a fully-populated binding used to smoke-test new filters so
// type errors surface at save time rather than during evaluation.
var probeRow = map[string]interface{}{
	"holdings.ticker":                    "AAPL",
	"holdings.shares":                    int64(100),
	"holdings.fund_id":                   int64(1),
	"securities.ticker":                  "AAPL",
	"securities.name":                    "Apple Inc",
	"securities.type":                    "equity",
	"securities.shares_outstanding":      int64(15000000000),
	"issuers.name":                       "Apple Inc",
	"issuers.gics_sector":                "Information Technology",
	"issuers.gics_industry_grp":          "Technology Hardware & Equipment",
	"issuers.gics_industry":              "Technology Hardware, Storage & Peripherals",
	"issuers.gics_sub_industry":          "Technology Hardware, Storage & Peripherals",
	"issuers.country_domicile":           "United States",
	"issuers.country_incorporation":      "United States",
	"issuers.country_domicile_code":      "US",
	"issuers.country_incorporation_code": "US",
}

// Validate checks a filter expression for use in a rule: no SQL statement
// keywords, parses against the closed schema, and evaluates cleanly against
// a probe row.
func Validate(input string) error {
	if kw := findForbiddenKeyword(input); kw != "" {
		return fmt.Errorf("expression contains forbidden keyword %s", kw)
	}

	expr, err := Parse(input)
	if err != nil {
		return err
	}

	if _, err := Evaluate(expr, probeRow); err != nil {
		return err
	}
	return nil
}

// findForbiddenKeyword scans for statement keywords as whole words outside
// string literals. Returns the keyword found, or "".
func findForbiddenKeyword(input string) string {
	words := bareWords(input)
	for _, w := range words {
		upper := strings.ToUpper(w)
		for _, kw := range forbiddenKeywords {
			if upper == kw {
				return kw
			}
		}
	}
	return ""
}

// bareWords extracts identifier-like words from the input, skipping the
// contents of single-quoted string literals.
func bareWords(input string) []string {
	var words []string
	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		if c == '\'' {
			i++
			for i < n {
				if input[i] == '\'' {
					if i+1 < n && input[i+1] == '\'' {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			continue
		}
		if isIdentStart(c) {
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			words = append(words, input[start:i])
			continue
		}
		i++
	}
	return words
}
