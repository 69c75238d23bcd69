package oneinch

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/swaps"
)

type Provider struct {
	client *Client
	book   swaps.AddressBook
}

func NewProvider(client *Client, book swaps.AddressBook) *Provider {
	return &Provider{client: client, book: book}
}

func (p *Provider) ID() string    { return "oneinch" }
func (p *Provider) Title() string { return "1inch" }
func (p *Provider) Priority() int { return 5 }

func (p *Provider) TrackingFamily() swaps.TrackingFamily { return swaps.FamilyDexAggregator }

// Supports offers same-chain pairs on chains the router covers.
func (p *Provider) Supports(tokenIn, tokenOut swaps.TokenRef) bool {
	if tokenIn.Blockchain != tokenOut.Blockchain {
		return false
	}
	if tokenIn.Equal(tokenOut) {
		return false
	}
	_, ok := SupportedChains[tokenIn.Blockchain]
	return ok
}

func (p *Provider) FetchQuote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) (*swaps.Quote, error) {
	chainID, ok := SupportedChains[tokenIn.Blockchain]
	if !ok {
		return nil, fmt.Errorf("unsupported chain %s", tokenIn.Blockchain)
	}

	amount := amountIn.Shift(tokenIn.Decimals).BigInt().String()
	result, err := p.client.Quote(ctx, chainID, tokenAddress(tokenIn), tokenAddress(tokenOut), amount)
	if err != nil {
		return nil, err
	}

	amountOut, err := parseRawAmount(result.DstAmount, tokenOut.Decimals)
	if err != nil {
		return nil, fmt.Errorf("parsing destination amount: %w", err)
	}

	return &swaps.Quote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
	}, nil
}

func (p *Provider) FetchFinalQuote(ctx context.Context, quote swaps.RankedQuote, settings swaps.Settings) (*swaps.FinalQuote, error) {
	tokenIn := quote.Quote.TokenIn
	tokenOut := quote.Quote.TokenOut
	amountIn := quote.Quote.AmountIn

	chainID, ok := SupportedChains[tokenIn.Blockchain]
	if !ok {
		return nil, fmt.Errorf("unsupported chain %s", tokenIn.Blockchain)
	}

	from, err := p.book.SendingAddress(ctx, tokenIn)
	if err != nil {
		return nil, fmt.Errorf("resolving sending address: %w", err)
	}

	slippage := settings.Slippage
	if !slippage.IsPositive() {
		slippage = decimal.NewFromInt(1)
	}

	amount := amountIn.Shift(tokenIn.Decimals).BigInt().String()
	result, err := p.client.Swap(ctx, chainID, tokenAddress(tokenIn), tokenAddress(tokenOut), amount, from, slippage.String())
	if err != nil {
		return nil, err
	}

	amountOut, err := parseRawAmount(result.DstAmount, tokenOut.Decimals)
	if err != nil {
		return nil, fmt.Errorf("parsing destination amount: %w", err)
	}

	data, err := hexutil.Decode(result.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding calldata: %w", err)
	}
	value, ok := new(big.Int).SetString(result.Tx.Value, 10)
	if !ok {
		return nil, fmt.Errorf("parsing tx value %q", result.Tx.Value)
	}

	factor := decimal.NewFromInt(1).Sub(slippage.Div(decimal.NewFromInt(100)))

	return &swaps.FinalQuote{
		AmountOut:    amountOut,
		AmountOutMin: amountOut.Mul(factor),
		Payload: &sendtx.EvmPayload{
			ChainID:  big.NewInt(chainID),
			To:       common.HexToAddress(result.Tx.To),
			Value:    value,
			Data:     data,
			GasLimit: uint64(result.Tx.Gas),
		},
		Slippage: slippage,
		Fields: []swaps.Field{
			{Name: "Router", Value: result.Tx.To},
		},
	}, nil
}

func tokenAddress(token swaps.TokenRef) string {
	if token.IsNative() {
		return NativeToken
	}
	return strings.ToLower(token.Contract)
}

func parseRawAmount(raw string, decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-decimals), nil
}
