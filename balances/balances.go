// Package balances reports spendable balances for the wallet's tokens
// on EVM chains.
package balances

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
)

// A node whose head is older than this is treated as not synced.
const maxHeadAge = 10 * time.Minute

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(`[{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`))
	if err != nil {
		panic(err)
	}
}

// ChainClient is the slice of an EVM RPC client the balance service
// needs. *ethclient.Client satisfies it.
type ChainClient interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SyncProgress(ctx context.Context) (*ethereum.SyncProgress, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Service resolves token balances against per-chain RPC clients. Chains
// without a client simply report the token as not enabled.
type Service struct {
	clients   map[string]ChainClient
	addresses map[string]common.Address
	now       func() time.Time
}

// New builds a balance service. Both maps are keyed by blockchain id as
// it appears in token references.
func New(clients map[string]ChainClient, addresses map[string]common.Address) *Service {
	return &Service{clients: clients, addresses: addresses, now: time.Now}
}

// AvailableBalance returns the spendable balance of the token,
// expressed in whole token units. A balance read against a node that is
// still importing blocks returns swaps.ErrWalletSyncing; one against a
// node whose head has gone stale returns swaps.ErrWalletNotSynced.
func (s *Service) AvailableBalance(ctx context.Context, token swaps.TokenRef) (decimal.Decimal, error) {
	rpc, ok := s.clients[token.Blockchain]
	if !ok {
		return decimal.Zero, swaps.ErrTokenNotEnabled
	}
	addr, ok := s.addresses[token.Blockchain]
	if !ok {
		return decimal.Zero, swaps.ErrTokenNotEnabled
	}

	if err := checkSynced(ctx, rpc, s.now()); err != nil {
		return decimal.Zero, err
	}

	var raw *big.Int
	var err error
	if token.IsNative() {
		raw, err = rpc.BalanceAt(ctx, addr, nil)
		if err != nil {
			return decimal.Zero, fmt.Errorf("fetching %s native balance: %w", token.Blockchain, err)
		}
	} else {
		raw, err = tokenBalance(ctx, rpc, common.HexToAddress(token.Contract), addr)
		if err != nil {
			return decimal.Zero, fmt.Errorf("fetching %s balance: %w", token, err)
		}
	}

	return decimal.NewFromBigInt(raw, -token.Decimals), nil
}

// checkSynced rejects balance reads from nodes that cannot answer with
// an up to date view of the chain.
func checkSynced(ctx context.Context, rpc ChainClient, now time.Time) error {
	progress, err := rpc.SyncProgress(ctx)
	if err != nil {
		return fmt.Errorf("checking sync progress: %w", err)
	}
	if progress != nil {
		return swaps.ErrWalletSyncing
	}

	head, err := rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("fetching chain head: %w", err)
	}
	if now.Sub(time.Unix(int64(head.Time), 0)) > maxHeadAge {
		return swaps.ErrWalletNotSynced
	}
	return nil
}

// tokenBalance reads an ERC-20 balanceOf.
func tokenBalance(ctx context.Context, rpc ChainClient, contract, addr common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", addr)
	if err != nil {
		return nil, err
	}

	output, err := rpc.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, err
	}

	if len(output) < 32 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(output), nil
}
