package ruleexpr

// The closed column schema rule filters may reference. Anything outside this
// set is rejected at parse time.
var schemaColumns = map[string]bool{
	"holdings.ticker":                    true,
	"holdings.shares":                    true,
	"holdings.fund_id":                   true,
	"securities.ticker":                  true,
	"securities.name":                    true,
	"securities.type":                    true,
	"securities.shares_outstanding":      true,
	"issuers.name":                       true,
	"issuers.gics_sector":                true,
	"issuers.gics_industry_grp":          true,
	"issuers.gics_industry":              true,
	"issuers.gics_sub_industry":          true,
	"issuers.country_domicile":           true,
	"issuers.country_incorporation":      true,
	"issuers.country_domicile_code":      true,
	"issuers.country_incorporation_code": true,
}

// bareColumns maps unqualified names to their qualified forms. Bare names
// resolving to more than one column (name, ticker) are only usable when
// every qualified form binds to the same value; ticker does, name does not.
var bareColumns = buildBareColumns()

func buildBareColumns() map[string][]string {
	result := make(map[string][]string)
	for qualified := range schemaColumns {
		dot := -1
		for i := 0; i < len(qualified); i++ {
			if qualified[i] == '.' {
				dot = i
			}
		}
		bare := qualified[dot+1:]
		result[bare] = append(result[bare], qualified)
	}
	return result
}

// resolveColumn canonicalises a column reference against the closed schema.
// holdings.ticker and securities.ticker always agree, so the bare "ticker"
// resolves to holdings.ticker; "name" stays ambiguous and must be qualified.
func resolveColumn(name string) (string, bool) {
	if schemaColumns[name] {
		return name, true
	}
	if name == "ticker" {
		return "holdings.ticker", true
	}
	qualified, ok := bareColumns[name]
	if ok && len(qualified) == 1 {
		return qualified[0], true
	}
	return "", false
}
