package sendtx

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "sendtx").Logger()
}

var weiPerEth = decimal.New(1, 18)

// EvmPayload is the raw transaction a DEX-style provider hands back for
// local signing and broadcast.
type EvmPayload struct {
	ChainID  *big.Int
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}

// EvmService signs and broadcasts EVM transactions with a single key.
type EvmService struct {
	client *ethclient.Client
	key    *ecdsa.PrivateKey
	from   common.Address

	payload  *EvmPayload
	gasPrice *big.Int
	gasLimit uint64
}

// NewEvmService builds a submitter for one EVM chain and signing key.
func NewEvmService(client *ethclient.Client, key *ecdsa.PrivateKey) *EvmService {
	return &EvmService{
		client: client,
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
	}
}

// From returns the broadcasting address.
func (s *EvmService) From() common.Address { return s.from }

// SetPayload validates the payload, checks the native balance covers
// value plus fees, and estimates gas where the provider left it unset.
func (s *EvmService) SetPayload(ctx context.Context, payload swaps.TxPayload) (State, error) {
	s.payload = nil
	s.gasPrice = nil
	s.gasLimit = 0

	evm, ok := payload.(*EvmPayload)
	if !ok {
		return State{}, fmt.Errorf("expected evm payload, got %T", payload)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return State{}, fmt.Errorf("getting gas price: %w", err)
	}

	gasLimit := evm.GasLimit
	if gasLimit == 0 {
		gasLimit, err = s.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  s.from,
			To:    &evm.To,
			Value: evm.Value,
			Data:  evm.Data,
		})
		if err != nil {
			return State{}, fmt.Errorf("estimating gas: %w", err)
		}
	}

	fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit))
	cost := new(big.Int).Add(fee, evm.Value)

	balance, err := s.client.BalanceAt(ctx, s.from, nil)
	if err != nil {
		return State{}, fmt.Errorf("checking balance: %w", err)
	}
	if balance.Cmp(cost) < 0 {
		return State{}, swaps.ErrInsufficientBalance
	}

	s.payload = evm
	s.gasPrice = gasPrice
	s.gasLimit = gasLimit

	feeEth := decimal.NewFromBigInt(fee, 0).Div(weiPerEth)
	return State{
		Sendable:   true,
		FeePrimary: &feeEth,
		Fields: []swaps.Field{
			{Name: "Network Fee", Value: feeEth.String()},
		},
	}, nil
}

// Send signs the prepared transaction and broadcasts it. It does not
// wait for the transaction to mine.
func (s *EvmService) Send(ctx context.Context) (*Result, error) {
	if s.payload == nil {
		return nil, fmt.Errorf("no prepared payload")
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	tx := types.NewTransaction(nonce, s.payload.To, s.payload.Value, s.gasLimit, s.gasPrice, s.payload.Data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(s.payload.ChainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("signing tx: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("sending tx: %w", err)
	}

	hash := signedTx.Hash().Hex()
	log.Info().Str("tx", hash).Str("to", s.payload.To.Hex()).Msg("transaction broadcast")

	return &Result{TxHash: hash}, nil
}
