package trading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fundguard/fundguard/internal/domain"
	"github.com/fundguard/fundguard/internal/modules/holdings"
)

// cashTicker is the reserved pseudo-ticker for the fund's cash balance.
// It can appear in rule logic but never in an order.
const cashTicker = "CASH"

// availabilityReason checks whether the fund can actually settle the order.
// It returns the refusal message, or "" when the order is coverable. Must be
// called under the fund lock, with pricing already snapshotted.
func availabilityReason(side, ticker string, shares int64, price, totalValue, cash decimal.Decimal, holding *holdings.Holding) string {
	if ticker == cashTicker {
		return "Trading cash is not allowed"
	}

	switch side {
	case SideBuy:
		if cash.GreaterThanOrEqual(totalValue) {
			return ""
		}
		shortfall := totalValue.Sub(cash)
		msg := fmt.Sprintf("Insufficient cash: trade requires %s but the fund has %s (%s shortfall)",
			formatUSD(totalValue), formatUSD(cash), formatUSD(shortfall))
		if price.IsPositive() {
			affordable := cash.Div(price).Floor().IntPart()
			msg += fmt.Sprintf("; at the current price the fund can buy %d shares or fewer", affordable)
		}
		return msg

	case SideSell:
		if holding == nil {
			return fmt.Sprintf("Cannot sell %s: the fund does not hold this security", ticker)
		}
		if holding.Shares < shares {
			return fmt.Sprintf("Insufficient shares: the fund holds %d shares of %s, cannot sell %d",
				holding.Shares, ticker, shares)
		}
		return ""
	}
	return fmt.Sprintf("unknown trade side %q", side)
}

// formatUSD renders a dollar amount with thousands separators, dropping the
// cents when they are zero ($5,000 rather than $5,000.00).
func formatUSD(d decimal.Decimal) string {
	s := domain.RoundCash(d).StringFixed(2)
	s = strings.TrimSuffix(s, ".00")

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	return sign + "$" + groupThousands(intPart) + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
