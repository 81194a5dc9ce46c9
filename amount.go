package agentpay

import (
	"math/big"
	"strings"
)

const (
	// Decimals is the on-ledger precision of USDC on every supported chain
	Decimals = 6

	// TokenSymbol is the stablecoin handled by every provider
	TokenSymbol = "USDC"

	// TolerancePercent is the accepted shortfall when matching an inbound
	// transfer against a requested amount
	TolerancePercent = 1
)

var (
	decimalsFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	hundred        = big.NewInt(100)
)

// ParseAmount converts a human decimal string ("1.5") into its fixed-point
// integer form (1500000). Fractional digits past the sixth are truncated,
// never rounded.
func ParseAmount(text string) (*big.Int, error) {
	s := strings.TrimSpace(text)

	whole, frac, hasPoint := strings.Cut(s, ".")
	if hasPoint && strings.Contains(frac, ".") {
		return nil, ErrInvalidAmount(text, "more than one decimal point")
	}
	if !isDigits(whole) {
		return nil, ErrInvalidAmount(text, "whole part is not a non-negative integer")
	}
	if frac != "" && !isDigits(frac) {
		return nil, ErrInvalidAmount(text, "fractional part is not numeric")
	}

	if len(frac) > Decimals {
		frac = frac[:Decimals]
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, ErrInvalidAmount(text, "whole part is not a non-negative integer")
	}
	f, ok := new(big.Int).SetString(frac, 10)
	if !ok {
		return nil, ErrInvalidAmount(text, "fractional part is not numeric")
	}

	return w.Mul(w, decimalsFactor).Add(w, f), nil
}

// FormatAmount converts a fixed-point integer amount back into a decimal
// string. Trailing fractional zeros are stripped, leaving at least one
// fractional digit ("5.0").
func FormatAmount(raw *big.Int) string {
	if raw == nil {
		raw = new(big.Int)
	}
	whole, rem := new(big.Int).QuoRem(raw, decimalsFactor, new(big.Int))

	frac := rem.String()
	frac = strings.Repeat("0", Decimals-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	return whole.String() + "." + frac
}

// MeetsTolerance reports whether observed covers expected within the
// TolerancePercent shortfall, using integer arithmetic only:
// observed*100 >= expected*(100-TolerancePercent).
func MeetsTolerance(observed, expected *big.Int) bool {
	lhs := new(big.Int).Mul(observed, hundred)
	rhs := new(big.Int).Mul(expected, big.NewInt(100-TolerancePercent))
	return lhs.Cmp(rhs) >= 0
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
