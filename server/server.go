// Package server exposes the JSON API over the swap record store and,
// when a SwapEngine is attached, an endpoint that executes swaps end
// to end.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/RaghavSood/multiswap/db"
	"github.com/RaghavSood/multiswap/swaps"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "server").Logger()
}

type Server struct {
	port   int
	store  *db.Store
	engine *SwapEngine
	swapMu sync.Mutex
}

// Option adjusts server construction.
type Option func(*Server)

// WithSwapEngine enables the swap execution endpoint.
func WithSwapEngine(engine SwapEngine) Option {
	return func(s *Server) { s.engine = &engine }
}

func New(port int, store *db.Store, opts ...Option) *Server {
	s := &Server{port: port, store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/swaps", s.handleSwaps)
	mux.HandleFunc("/api/swaps/pending", s.handlePendingSwaps)
	mux.HandleFunc("/api/swaps/", s.handleSwapDetail)

	return mux
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Info().Str("addr", addr).Msg("http server listening")
	return http.ListenAndServe(addr, s.Handler())
}

// swapJSON flattens a record into API-friendly strings.
type swapJSON struct {
	ID               string `json:"id"`
	CreatedAt        string `json:"created_at"`
	Provider         string `json:"provider"`
	ProviderName     string `json:"provider_name"`
	TokenIn          string `json:"token_in"`
	TokenOut         string `json:"token_out"`
	AmountIn         string `json:"amount_in"`
	AmountOut        string `json:"amount_out,omitempty"`
	RecipientAddress string `json:"recipient_address,omitempty"`
	TxHash           string `json:"tx_hash,omitempty"`
	DepositAddress   string `json:"deposit_address,omitempty"`
	Status           string `json:"status"`
}

func toSwapJSON(rec swaps.SwapRecord) swapJSON {
	out := swapJSON{
		ID:               rec.ID,
		CreatedAt:        rec.CreatedAt.Format(time.RFC3339),
		Provider:         rec.ProviderID,
		ProviderName:     rec.ProviderName,
		TokenIn:          rec.TokenIn.String(),
		TokenOut:         rec.TokenOut.String(),
		AmountIn:         rec.AmountIn.String(),
		RecipientAddress: rec.RecipientAddress,
		TxHash:           rec.TxHash,
		DepositAddress:   rec.DepositAddress,
		Status:           string(rec.Status),
	}
	if rec.AmountOut != nil {
		out.AmountOut = rec.AmountOut.String()
	}
	return out
}

func (s *Server) handleSwaps(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleExecuteSwap(w, r)
		return
	}

	records, err := s.store.GetAllSwapRecords(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toSwapList(records))
}

func (s *Server) handlePendingSwaps(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.GetPendingSwapRecords(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toSwapList(records))
}

func (s *Server) handleSwapDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/swaps/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	rec, err := s.store.GetSwapRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, toSwapJSON(rec))
}

func toSwapList(records []swaps.SwapRecord) []swapJSON {
	out := make([]swapJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, toSwapJSON(rec))
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
