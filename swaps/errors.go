package swaps

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNoSupportedProvider means no registered provider supports the
	// requested pair. Permanent until the pair changes.
	ErrNoSupportedProvider = errors.New("no provider supports the pair")

	// ErrRouteNotFound means providers support the pair but none
	// returned a quote. Retryable.
	ErrRouteNotFound = errors.New("no route found for the pair")

	// Balance-side preconditions.
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTokenNotEnabled     = errors.New("token not enabled")
	ErrWalletSyncing       = errors.New("wallet is syncing")
	ErrWalletNotSynced     = errors.New("wallet not synced")
)

// PriceImpactTooHighError is a policy rejection of a quote whose price
// impact is classified Forbidden.
type PriceImpactTooHighError struct {
	ProviderTitle string
}

func (e *PriceImpactTooHighError) Error() string {
	return fmt.Sprintf("price impact too high (%s)", e.ProviderTitle)
}

// QuoteNotReadyError is a provider-specific transient condition: the firm
// quote is not available yet. It is not a hard failure; callers stay in a
// loading state and retry on the next trigger.
type QuoteNotReadyError struct {
	Cause error
}

func (e *QuoteNotReadyError) Error() string {
	if e.Cause == nil {
		return "quote not ready"
	}
	return fmt.Sprintf("quote not ready: %v", e.Cause)
}

func (e *QuoteNotReadyError) Unwrap() error { return e.Cause }

// IsQuoteNotReady reports whether err is a transient quote-not-ready
// condition.
func IsQuoteNotReady(err error) bool {
	var qnr *QuoteNotReadyError
	return errors.As(err, &qnr)
}

// NetworkError marks a failure as connectivity-related, so recovery logic
// can re-quote automatically once the network returns.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// IsNetworkError reports whether err looks connectivity-related: an
// explicit NetworkError wrapper, a net.Error, or a deadline expiry.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
