package swaps

import (
	"fmt"
	"strings"
)

// TokenRef identifies a fungible asset on a specific chain, in
// CHAIN.SYMBOL or CHAIN.SYMBOL-0xCONTRACT notation plus the asset's
// decimal precision. Values are immutable once constructed.
type TokenRef struct {
	Blockchain string // chain key, e.g. "ETH", "BTC", "BASE"
	Symbol     string
	Contract   string // empty for native assets
	Decimals   int32
}

// ParseTokenRef parses CHAIN.SYMBOL or CHAIN.SYMBOL-0xCONTRACT notation.
// Examples: "BTC.BTC", "ETH.USDC-0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
func ParseTokenRef(s string, decimals int32) (TokenRef, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TokenRef{}, fmt.Errorf("invalid token notation %q: expected CHAIN.SYMBOL", s)
	}

	chain := strings.ToUpper(parts[0])
	symbolPart := parts[1]

	var symbol, contract string
	if idx := strings.Index(symbolPart, "-"); idx != -1 {
		symbol = strings.ToUpper(symbolPart[:idx])
		contract = symbolPart[idx+1:]
	} else {
		symbol = strings.ToUpper(symbolPart)
	}

	return TokenRef{
		Blockchain: chain,
		Symbol:     symbol,
		Contract:   contract,
		Decimals:   decimals,
	}, nil
}

// String returns the token in CHAIN.SYMBOL notation.
func (t TokenRef) String() string {
	if t.Contract != "" {
		return fmt.Sprintf("%s.%s-%s", t.Blockchain, t.Symbol, t.Contract)
	}
	return fmt.Sprintf("%s.%s", t.Blockchain, t.Symbol)
}

// IsNative returns true if the token is a chain-native asset (no contract address).
func (t TokenRef) IsNative() bool {
	return t.Contract == ""
}

// Equal compares chain, symbol and contract; decimals are informational.
func (t TokenRef) Equal(other TokenRef) bool {
	return t.Blockchain == other.Blockchain &&
		t.Symbol == other.Symbol &&
		strings.EqualFold(t.Contract, other.Contract)
}
