// Package thorchain quotes cross-chain swaps through THORChain's
// native liquidity pools. Deposits go through the chain router's
// depositWithExpiry, so only EVM source chains are offered.
package thorchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
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

func (p *Provider) ID() string    { return "thorchain" }
func (p *Provider) Title() string { return "THORChain" }
func (p *Provider) Priority() int { return 10 }

func (p *Provider) TrackingFamily() swaps.TrackingFamily { return swaps.FamilyBridge }

// Supports offers pairs between distinct THORChain-routed chains, with
// a native EVM token on the selling side for router deposits.
func (p *Provider) Supports(tokenIn, tokenOut swaps.TokenRef) bool {
	if !supportedChains[tokenIn.Blockchain] || !supportedChains[tokenOut.Blockchain] {
		return false
	}
	if tokenIn.Blockchain == tokenOut.Blockchain {
		return false
	}
	return tokenIn.IsNative() && sendtx.IsEvmChain(tokenIn.Blockchain)
}

func (p *Provider) FetchQuote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) (*swaps.Quote, error) {
	resp, err := p.quote(ctx, tokenIn, tokenOut, amountIn, settings)
	if err != nil {
		return nil, err
	}

	amountOut, err := parseThorAmount(resp.ExpectedAmountOut)
	if err != nil {
		return nil, fmt.Errorf("parsing expected output: %w", err)
	}

	quote := &swaps.Quote{
		TokenIn:          tokenIn,
		TokenOut:         tokenOut,
		AmountIn:         amountIn,
		AmountOut:        amountOut,
		EstimatedSeconds: resp.OutboundDelaySecs,
		Fields: []swaps.Field{
			{Name: "Liquidity Fee", Value: thorAmountField(resp.Fees.Liquidity, tokenOut.Symbol)},
			{Name: "Outbound Fee", Value: thorAmountField(resp.Fees.Outbound, tokenOut.Symbol)},
		},
	}
	if resp.Warning != "" {
		quote.Fields = append(quote.Fields, swaps.Field{Name: "Warning", Value: resp.Warning})
	}
	return quote, nil
}

func (p *Provider) FetchFinalQuote(ctx context.Context, quote swaps.RankedQuote, settings swaps.Settings) (*swaps.FinalQuote, error) {
	tokenIn := quote.Quote.TokenIn
	tokenOut := quote.Quote.TokenOut
	amountIn := quote.Quote.AmountIn

	resp, err := p.quote(ctx, tokenIn, tokenOut, amountIn, settings)
	if err != nil {
		return nil, err
	}
	if resp.InboundAddress == "" || resp.Router == "" {
		return nil, fmt.Errorf("quote missing inbound routing for %s", tokenIn.Blockchain)
	}

	amountOut, err := parseThorAmount(resp.ExpectedAmountOut)
	if err != nil {
		return nil, fmt.Errorf("parsing expected output: %w", err)
	}

	payload, err := depositPayload(tokenIn, resp, amountIn)
	if err != nil {
		return nil, err
	}

	amountOutMin := amountOut
	if settings.Slippage.IsPositive() {
		factor := decimal.NewFromInt(1).Sub(settings.Slippage.Div(decimal.NewFromInt(100)))
		amountOutMin = amountOut.Mul(factor)
	}

	return &swaps.FinalQuote{
		AmountOut:        amountOut,
		AmountOutMin:     amountOutMin,
		Payload:          payload,
		EstimatedSeconds: resp.OutboundDelaySecs,
		Slippage:         settings.Slippage,
		DepositAddress:   resp.InboundAddress,
		Fields: []swaps.Field{
			{Name: "Memo", Value: resp.Memo},
		},
	}, nil
}

func (p *Provider) quote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) (*QuoteResponse, error) {
	destination := settings.Recipient
	if destination == "" {
		var err error
		destination, err = p.book.ReceiveAddress(ctx, tokenOut)
		if err != nil {
			return nil, fmt.Errorf("resolving destination: %w", err)
		}
	}

	thorAmount := amountIn.Shift(thorDecimals).IntPart()
	return p.client.GetQuote(ctx, thorAsset(tokenIn), thorAsset(tokenOut), destination, thorAmount)
}

// depositPayload builds the router depositWithExpiry call carrying the
// native amount as tx value.
func depositPayload(tokenIn swaps.TokenRef, resp *QuoteResponse, amountIn decimal.Decimal) (*sendtx.EvmPayload, error) {
	chainID, ok := sendtx.ChainIDs[tokenIn.Blockchain]
	if !ok {
		return nil, fmt.Errorf("chain %s is not broadcastable", tokenIn.Blockchain)
	}

	parsed, err := abi.JSON(strings.NewReader(RouterDepositABI))
	if err != nil {
		return nil, err
	}

	expiry := resp.Expiry
	minExpiry := time.Now().Unix() + 3600
	if expiry < minExpiry {
		expiry = minExpiry
	}

	value := amountIn.Shift(tokenIn.Decimals).BigInt()
	vault := common.HexToAddress(resp.InboundAddress)
	var nativeAsset common.Address

	data, err := parsed.Pack("depositWithExpiry", vault, nativeAsset, value, resp.Memo, big.NewInt(expiry))
	if err != nil {
		return nil, fmt.Errorf("packing deposit: %w", err)
	}

	return &sendtx.EvmPayload{
		ChainID: chainID,
		To:      common.HexToAddress(resp.Router),
		Value:   value,
		Data:    data,
	}, nil
}

// thorAsset renders CHAIN.SYMBOL notation, uppercasing contract
// addresses the way thornode expects.
func thorAsset(token swaps.TokenRef) string {
	if token.Contract == "" {
		return fmt.Sprintf("%s.%s", token.Blockchain, token.Symbol)
	}
	return fmt.Sprintf("%s.%s-%s", token.Blockchain, token.Symbol, strings.ToUpper(token.Contract))
}

// parseThorAmount converts a 1e8 integer string to a decimal amount.
func parseThorAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Shift(-thorDecimals), nil
}

func thorAmountField(raw, symbol string) string {
	d, err := parseThorAmount(raw)
	if err != nil {
		return raw
	}
	return fmt.Sprintf("%s %s", d.String(), symbol)
}
