package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/aggregator"
	"github.com/RaghavSood/multiswap/confirm"
	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/swaps"
)

const (
	quoteWait     = 45 * time.Second
	confirmWait   = 30 * time.Second
	retryInterval = 3 * time.Second
)

// SwapEngine bundles the quoting and submission machinery behind the
// execute endpoint. Without one the server is read-only.
type SwapEngine struct {
	Aggregator *aggregator.Service
	Submitters map[string]sendtx.Submitter // keyed by source blockchain
	Book       swaps.AddressBook
}

// depositNotifier is implemented by venues that want to hear about the
// deposit transaction once it is broadcast.
type depositNotifier interface {
	NotifyDeposit(ctx context.Context, txHash, depositAddress string) error
}

type executeRequest struct {
	TokenIn          string `json:"token_in"`
	TokenInDecimals  int32  `json:"token_in_decimals"`
	TokenOut         string `json:"token_out"`
	TokenOutDecimals int32  `json:"token_out_decimals"`
	AmountIn         string `json:"amount_in"`
	Recipient        string `json:"recipient,omitempty"`
	Slippage         string `json:"slippage,omitempty"`
	Provider         string `json:"provider,omitempty"`
}

// handleExecuteSwap runs a full swap: quote every provider, confirm the
// selected quote, broadcast, and persist the record for the tracker.
// Requests are serialized since the aggregator holds one pair at a time.
func (s *Server) handleExecuteSwap(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		httpError(w, "swap execution not enabled", http.StatusNotFound)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tokenIn, err := swaps.ParseTokenRef(req.TokenIn, req.TokenInDecimals)
	if err != nil {
		httpError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tokenOut, err := swaps.ParseTokenRef(req.TokenOut, req.TokenOutDecimals)
	if err != nil {
		httpError(w, err.Error(), http.StatusBadRequest)
		return
	}
	amountIn, err := decimal.NewFromString(req.AmountIn)
	if err != nil || !amountIn.IsPositive() {
		httpError(w, "amount_in must be a positive decimal", http.StatusBadRequest)
		return
	}

	settings := swaps.Settings{Recipient: req.Recipient}
	if req.Slippage != "" {
		if settings.Slippage, err = decimal.NewFromString(req.Slippage); err != nil {
			httpError(w, "invalid slippage", http.StatusBadRequest)
			return
		}
	}

	submitter, ok := s.engine.Submitters[tokenIn.Blockchain]
	if !ok {
		httpError(w, "no submitter configured for chain "+tokenIn.Blockchain, http.StatusBadRequest)
		return
	}

	s.swapMu.Lock()
	defer s.swapMu.Unlock()

	agg := s.engine.Aggregator
	agg.SetSettings(settings)
	agg.SetTokenIn(tokenIn)
	agg.SetTokenOut(tokenOut)
	agg.SetAmountIn(amountIn)

	state, ok := awaitQuotes(r.Context(), agg, tokenIn, tokenOut, amountIn)
	if !ok {
		httpError(w, "timed out waiting for quotes", http.StatusGatewayTimeout)
		return
	}
	if state.Err != nil {
		httpError(w, state.Err.Error(), http.StatusBadGateway)
		return
	}
	if state.BalanceErr != nil {
		httpError(w, state.BalanceErr.Error(), http.StatusBadRequest)
		return
	}
	if req.Provider != "" {
		agg.SelectQuote(req.Provider)
		state = agg.State()
	}
	if state.Selected == nil {
		httpError(w, swaps.ErrRouteNotFound.Error(), http.StatusBadGateway)
		return
	}
	selected := *state.Selected

	coord := confirm.New(selected, submitter, settings)
	defer coord.Stop()

	cs, err := awaitSendable(r.Context(), coord)
	if err != nil {
		httpError(w, err.Error(), http.StatusBadGateway)
		return
	}

	result, err := coord.Submit(r.Context())
	if err != nil {
		httpError(w, err.Error(), http.StatusBadGateway)
		return
	}

	sourceAddress := ""
	if addr, err := s.engine.Book.SendingAddress(r.Context(), tokenIn); err == nil {
		sourceAddress = addr
	} else {
		log.Warn().Err(err).Msg("no sending address for record")
	}

	rec := coord.BuildRecord(result.TxHash, sourceAddress)
	saved, err := s.store.InsertSwapRecord(r.Context(), rec)
	if err != nil {
		log.Error().Err(err).Str("tx_hash", result.TxHash).Msg("persisting swap record")
		httpError(w, "transaction sent but record not persisted: "+result.TxHash, http.StatusInternalServerError)
		return
	}
	log.Info().
		Str("id", saved.ID).
		Str("provider", saved.ProviderID).
		Str("tx_hash", saved.TxHash).
		Msg("swap submitted")

	if notifier, ok := selected.Provider.(depositNotifier); ok && cs.FinalQuote != nil {
		nctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := notifier.NotifyDeposit(nctx, result.TxHash, cs.FinalQuote.DepositAddress); err != nil {
			log.Warn().Err(err).Str("provider", saved.ProviderID).Msg("deposit notification failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSwapJSON(saved))
}

// awaitQuotes polls until the aggregator settles on the requested pair
// and amount.
func awaitQuotes(ctx context.Context, agg *aggregator.Service, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal) (aggregator.State, bool) {
	deadline := time.Now().Add(quoteWait)
	for {
		state := agg.State()
		current := state.TokenIn != nil && state.TokenIn.Equal(tokenIn) &&
			state.TokenOut != nil && state.TokenOut.Equal(tokenOut) &&
			state.AmountIn.Equal(amountIn)
		if current && !state.Quoting {
			return state, true
		}

		if time.Now().After(deadline) {
			return aggregator.State{}, false
		}
		select {
		case <-ctx.Done():
			return aggregator.State{}, false
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// awaitSendable polls the coordinator until the firm quote is ready to
// broadcast. A venue still finalizing pricing keeps the coordinator in
// the loading state, so a stalled load is nudged with Refresh.
func awaitSendable(ctx context.Context, coord *confirm.Coordinator) (confirm.State, error) {
	deadline := time.Now().Add(confirmWait)
	lastRefresh := time.Now()
	for {
		state := coord.State()
		if state.Err != nil {
			return state, state.Err
		}
		if state.Sendable {
			return state, nil
		}

		if time.Now().After(deadline) {
			return state, context.DeadlineExceeded
		}
		if state.Loading && time.Since(lastRefresh) > retryInterval {
			coord.Refresh()
			lastRefresh = time.Now()
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func httpError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
