package ruleexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow() map[string]interface{} {
	return map[string]interface{}{
		"holdings.ticker":                    "NVDA",
		"holdings.shares":                    int64(500),
		"holdings.fund_id":                   int64(3),
		"securities.ticker":                  "NVDA",
		"securities.name":                    "NVIDIA Corp",
		"securities.type":                    "equity",
		"securities.shares_outstanding":      int64(24000000000),
		"issuers.name":                       "NVIDIA Corp",
		"issuers.gics_sector":                "Information Technology",
		"issuers.gics_industry_grp":          "Semiconductors & Semiconductor Equipment",
		"issuers.gics_industry":              "Semiconductors & Semiconductor Equipment",
		"issuers.gics_sub_industry":          "Semiconductors",
		"issuers.country_domicile":           "United States",
		"issuers.country_incorporation":      "United States",
		"issuers.country_domicile_code":      "US",
		"issuers.country_incorporation_code": "US",
	}
}

func TestParseEmptyAndWhere(t *testing.T) {
	for _, input := range []string{"", "   ", "WHERE", "where  "} {
		expr, err := Parse(input)
		require.NoError(t, err, "input %q", input)
		assert.IsType(t, &TrueExpr{}, expr)
	}

	expr, err := Parse("WHERE ticker = 'NVDA'")
	require.NoError(t, err)
	cmp, ok := expr.(*CompareExpr)
	require.True(t, ok)
	assert.Equal(t, "=", cmp.Op)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"semicolon", "ticker = 'A'; DROP TABLE rules"},
		{"unknown column", "price > 10"},
		{"ambiguous bare name", "name = 'Apple'"},
		{"unterminated string", "ticker = 'NVDA"},
		{"dangling operator", "shares >"},
		{"unbalanced paren", "(ticker = 'A'"},
		{"trailing garbage", "ticker = 'A' 'B'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestEvaluate(t *testing.T) {
	row := testRow()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"equality match", "ticker = 'NVDA'", true},
		{"equality miss", "ticker = 'AAPL'", false},
		{"not equal", "ticker != 'AAPL'", true},
		{"angle not equal", "ticker <> 'NVDA'", false},
		{"numeric compare", "shares >= 500", true},
		{"numeric compare strict", "shares > 500", false},
		{"qualified column", "issuers.gics_sector = 'Information Technology'", true},
		{"bare suffix resolves", "gics_sector = 'Information Technology'", true},
		{"in list hit", "ticker IN ('AAPL', 'NVDA', 'MSFT')", true},
		{"in list miss", "ticker IN ('AAPL', 'MSFT')", false},
		{"not in", "ticker NOT IN ('AAPL', 'MSFT')", true},
		{"like prefix", "issuers.name LIKE 'NVIDIA%'", true},
		{"like case insensitive", "ticker LIKE 'nv__'", true},
		{"not like", "ticker NOT LIKE 'A%'", true},
		{"and", "ticker = 'NVDA' AND shares = 500", true},
		{"and short circuit", "ticker = 'AAPL' AND shares = 500", false},
		{"or", "ticker = 'AAPL' OR country_domicile_code = 'US'", true},
		{"not", "NOT ticker = 'AAPL'", true},
		{"parens", "(ticker = 'AAPL' OR ticker = 'NVDA') AND shares >= 100", true},
		{"number as string compares numerically", "shares = 500.0", true},
		{"empty filter is true", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateString(tt.input, row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateNulls(t *testing.T) {
	row := testRow()
	row["securities.shares_outstanding"] = nil
	row["issuers.gics_sector"] = nil

	got, err := EvaluateString("shares_outstanding > 0", row)
	require.NoError(t, err)
	assert.False(t, got, "comparison against null is false")

	got, err = EvaluateString("gics_sector IN ('Energy', 'Utilities')", row)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = EvaluateString("NOT gics_sector = 'Energy'", row)
	require.NoError(t, err)
	assert.True(t, got, "NOT of a null comparison is true")
}

func TestEvaluateNonBoolean(t *testing.T) {
	_, err := EvaluateString("ticker", testRow())
	assert.Error(t, err)

	_, err = EvaluateString("ticker AND shares > 0", testRow())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := []string{
		"",
		"ticker = 'NVDA'",
		"WHERE issuers.gics_sector = 'Energy' AND shares > 100",
		"country_incorporation_code NOT IN ('US', 'CA')",
		"securities.name LIKE '%Corp%'",
	}
	for _, input := range valid {
		assert.NoError(t, Validate(input), "input %q", input)
	}

	invalid := []struct {
		name  string
		input string
	}{
		{"select keyword", "ticker = (SELECT ticker FROM holdings)"},
		{"drop keyword", "ticker = 'A' OR DROP"},
		{"union keyword", "ticker = 'A' UNION ticker = 'B'"},
		{"unknown column", "market_cap > 1000000"},
		{"syntax error", "ticker =="},
		{"non-boolean", "shares_outstanding LIKE 5"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, Validate(tt.input))
		})
	}
}

func TestValidateKeywordInString(t *testing.T) {
	// Statement keywords inside string literals are data, not SQL.
	assert.NoError(t, Validate("securities.name LIKE '%Select Comfort%'"))
}

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		s       string
		pattern string
		want    bool
	}{
		{"NVIDIA Corp", "NVIDIA%", true},
		{"NVIDIA Corp", "%corp", true},
		{"NVDA", "NV__", true},
		{"NVDA", "NV_", false},
		{"a.b", "a.b", true},
		{"axb", "a.b", false},
	}
	for _, tt := range tests {
		got, err := likeMatch(tt.s, tt.pattern)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q LIKE %q", tt.s, tt.pattern)
	}
}
