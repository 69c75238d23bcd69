// Package nearintents quotes cross-chain swaps through the NEAR
// Intents 1click API. Swaps work by transferring the sell token to a
// venue-issued deposit address, so the selling side must be an EVM
// chain the wallet can broadcast from.
package nearintents

import (
	"context"
	"fmt"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/swaps"
)

// Default slippage tolerance in basis points when settings carry none.
const defaultSlippageBps = 100

type Provider struct {
	client *Client
	book   swaps.AddressBook
}

func NewProvider(client *Client, book swaps.AddressBook) *Provider {
	return &Provider{client: client, book: book}
}

func (p *Provider) ID() string    { return "nearintents" }
func (p *Provider) Title() string { return "NEAR Intents" }
func (p *Provider) Priority() int { return 20 }

func (p *Provider) TrackingFamily() swaps.TrackingFamily { return swaps.FamilyBridge }

func (p *Provider) Supports(tokenIn, tokenOut swaps.TokenRef) bool {
	if _, ok := TokenID(tokenIn); !ok {
		return false
	}
	if _, ok := TokenID(tokenOut); !ok {
		return false
	}
	if tokenIn.Equal(tokenOut) {
		return false
	}
	return sendtx.IsEvmChain(tokenIn.Blockchain)
}

func (p *Provider) FetchQuote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) (*swaps.Quote, error) {
	resp, err := p.quote(ctx, tokenIn, tokenOut, amountIn, settings, true)
	if err != nil {
		return nil, err
	}

	amountOut, err := decimal.NewFromString(resp.Quote.AmountOutFormatted)
	if err != nil {
		return nil, fmt.Errorf("parsing amount out: %w", err)
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

	resp, err := p.quote(ctx, tokenIn, tokenOut, amountIn, settings, false)
	if err != nil {
		return nil, err
	}

	depositAddr := resp.Quote.GetDepositAddress()
	if depositAddr == "" {
		return nil, &swaps.QuoteNotReadyError{Cause: fmt.Errorf("no deposit address issued yet")}
	}

	amountOut, err := decimal.NewFromString(resp.Quote.AmountOutFormatted)
	if err != nil {
		return nil, fmt.Errorf("parsing amount out: %w", err)
	}
	amountOutMin := amountOut
	if settings.Slippage.IsPositive() {
		factor := decimal.NewFromInt(1).Sub(settings.Slippage.Div(decimal.NewFromInt(100)))
		amountOutMin = amountOut.Mul(factor)
	}

	payload, err := sendtx.NewEvmTransfer(tokenIn, common.HexToAddress(depositAddr), amountIn)
	if err != nil {
		return nil, fmt.Errorf("building deposit transfer: %w", err)
	}

	return &swaps.FinalQuote{
		AmountOut:      amountOut,
		AmountOutMin:   amountOutMin,
		Payload:        payload,
		Slippage:       settings.Slippage,
		DepositAddress: depositAddr,
		ProviderSwapID: depositAddr,
	}, nil
}

// NotifyDeposit tells the venue about the broadcast deposit so it picks
// the transfer up faster. Best-effort.
func (p *Provider) NotifyDeposit(ctx context.Context, txHash, depositAddress string) error {
	return p.client.SubmitDepositTx(ctx, txHash, depositAddress)
}

func (p *Provider) quote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings, dry bool) (*oneclick.QuoteResponse, error) {
	originAsset, ok := TokenID(tokenIn)
	if !ok {
		return nil, fmt.Errorf("unsupported source token %s", tokenIn)
	}
	destAsset, ok := TokenID(tokenOut)
	if !ok {
		return nil, fmt.Errorf("unsupported destination token %s", tokenOut)
	}

	recipient := settings.Recipient
	if recipient == "" {
		var err error
		recipient, err = p.book.ReceiveAddress(ctx, tokenOut)
		if err != nil {
			return nil, fmt.Errorf("resolving recipient: %w", err)
		}
	}
	refundTo, err := p.book.SendingAddress(ctx, tokenIn)
	if err != nil {
		return nil, fmt.Errorf("resolving refund address: %w", err)
	}

	slippageBps := int32(defaultSlippageBps)
	if settings.Slippage.IsPositive() {
		slippageBps = int32(settings.Slippage.Mul(decimal.NewFromInt(100)).IntPart())
	}

	amount := amountIn.Shift(tokenIn.Decimals).String()
	deadline := time.Now().Add(60 * time.Minute)

	quoteReq := *oneclick.NewQuoteRequest(
		dry,
		"EXACT_INPUT",
		float32(slippageBps),
		originAsset,
		"ORIGIN_CHAIN",
		destAsset,
		amount,
		refundTo,
		"ORIGIN_CHAIN",
		recipient,
		"DESTINATION_CHAIN",
		deadline,
	)
	depositMode := "SIMPLE"
	quoteReq.DepositMode = &depositMode

	return p.client.GetQuote(ctx, quoteReq)
}
