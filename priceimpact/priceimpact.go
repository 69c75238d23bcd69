// Package priceimpact computes the percentage deviation between the fiat
// value going into a swap and the fiat value coming out, classified into
// severity levels used as a risk signal.
package priceimpact

import "github.com/shopspring/decimal"

// Level classifies the magnitude of a price impact.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelHigh
	LevelForbidden
)

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelWarning:
		return "warning"
	case LevelHigh:
		return "high"
	case LevelForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Classification thresholds, in absolute percent.
var (
	thresholdNoticeable = decimal.NewFromInt(1)
	thresholdWarning    = decimal.NewFromInt(6)
	thresholdHigh       = decimal.NewFromInt(11)
	thresholdForbidden  = decimal.NewFromInt(50)
)

// Result is a signed impact percentage with its severity.
type Result struct {
	Percent decimal.Decimal
	Level   Level
}

// Compute derives the impact of amountOut relative to amountIn, both
// fiat-equivalent amounts. It returns nil when either amount is missing,
// amountIn is zero, or the deviation is under the 1% noise threshold.
// The percentage is truncated toward zero at two decimal places.
func Compute(amountOut, amountIn *decimal.Decimal) *Result {
	if amountOut == nil || amountIn == nil || amountIn.IsZero() {
		return nil
	}

	percent := amountOut.Sub(*amountIn).
		Div(*amountIn).
		Mul(decimal.NewFromInt(100)).
		Truncate(2)

	abs := percent.Abs()
	if abs.LessThan(thresholdNoticeable) {
		return nil
	}

	level := LevelNormal
	switch {
	case abs.GreaterThanOrEqual(thresholdForbidden):
		level = LevelForbidden
	case abs.GreaterThanOrEqual(thresholdHigh):
		level = LevelHigh
	case abs.GreaterThanOrEqual(thresholdWarning):
		level = LevelWarning
	}

	return &Result{Percent: percent, Level: level}
}
