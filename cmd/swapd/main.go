package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/RaghavSood/multiswap/aggregator"
	"github.com/RaghavSood/multiswap/apilog"
	"github.com/RaghavSood/multiswap/balances"
	"github.com/RaghavSood/multiswap/config"
	"github.com/RaghavSood/multiswap/db"
	"github.com/RaghavSood/multiswap/nearintents"
	"github.com/RaghavSood/multiswap/notify"
	"github.com/RaghavSood/multiswap/oneinch"
	"github.com/RaghavSood/multiswap/resolver"
	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/server"
	"github.com/RaghavSood/multiswap/simpleswap"
	"github.com/RaghavSood/multiswap/swaps"
	"github.com/RaghavSood/multiswap/thorchain"
	"github.com/RaghavSood/multiswap/tracker"
	"github.com/RaghavSood/multiswap/tracking"
	"github.com/RaghavSood/multiswap/wallet"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log := zerolog.New(out).With().Timestamp().Str("component", "swapd").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer store.Close()

	signer, err := wallet.NewSigner(cfg.Mnemonic)
	if err != nil {
		log.Fatal().Err(err).Msg("loading wallet")
	}
	book := wallet.NewBook(signer, cfg.Addresses)

	key, err := signer.Key(0)
	if err != nil {
		log.Fatal().Err(err).Msg("deriving wallet key")
	}
	addr, err := signer.Address(0)
	if err != nil {
		log.Fatal().Err(err).Msg("deriving wallet address")
	}

	// Connect RPC clients and build a submitter per chain
	rpcClients := make(map[string]balances.ChainClient)
	addresses := make(map[string]common.Address)
	submitters := make(map[string]sendtx.Submitter)
	for chain, url := range cfg.RPCEndpoints {
		client, err := ethclient.Dial(url)
		if err != nil {
			log.Fatal().Err(err).Str("chain", chain).Msg("connecting to rpc")
		}
		rpcClients[chain] = client
		addresses[chain] = addr
		submitters[chain] = sendtx.NewEvmService(client, key)
		log.Info().Str("chain", chain).Str("address", addr.Hex()).Msg("connected to rpc")
	}

	// Providers, each with its own logged HTTP client
	providers := []swaps.Provider{
		thorchain.NewProvider(thorchain.NewClient(apilog.NewHTTPClient("thorchain", store)), book),
		oneinch.NewProvider(oneinch.NewClient(cfg.ProviderKey("oneinch"), apilog.NewHTTPClient("oneinch", store)), book),
		nearintents.NewProvider(nearintents.NewClient(cfg.ProviderKey("nearintents"), apilog.NewHTTPClient("nearintents", store)), book),
	}
	if apiKey := cfg.ProviderKey("simpleswap"); apiKey != "" {
		providers = append(providers,
			simpleswap.NewProvider(simpleswap.NewClient(apiKey, apilog.NewHTTPClient("simpleswap", store)), book))
		log.Info().Msg("simpleswap provider enabled")
	}

	rates := resolver.NewRates(cfg.CoingeckoAPIKey, apilog.NewHTTPClient("coingecko", store))
	balanceSvc := balances.New(rpcClients, addresses)

	agg := aggregator.New(providers,
		aggregator.WithRateSource(rates, cfg.Currency),
		aggregator.WithBalanceSource(balanceSvc),
	)
	defer agg.Close()

	// Settlement tracker
	trackingClient := tracking.NewClient(cfg.Tracking.BaseURL, cfg.Tracking.APIKey,
		apilog.NewHTTPClient("tracking", store))

	trackerOpts := []tracker.Option{}
	if cfg.Telegram.Token != "" {
		notifier, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to telegram")
		}
		trackerOpts = append(trackerOpts, tracker.WithNotifier(notifier))
		log.Info().Msg("telegram notifications enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	trk := tracker.New(store, trackingClient, providers, trackerOpts...)
	go trk.Run(ctx)

	srv := server.New(cfg.Port, store, server.WithSwapEngine(server.SwapEngine{
		Aggregator: agg,
		Submitters: submitters,
		Book:       book,
	}))
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	log.Info().Int("providers", len(providers)).Msg("swapd running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")
	cancel()
}
