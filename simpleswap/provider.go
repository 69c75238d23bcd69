// Package simpleswap quotes swaps through the SimpleSwap instant
// exchange. Committing to a quote creates an exchange order; settlement
// is keyed on the venue-issued order id.
package simpleswap

import (
	"context"
	"fmt"

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

func (p *Provider) ID() string    { return "simpleswap" }
func (p *Provider) Title() string { return "SimpleSwap" }
func (p *Provider) Priority() int { return 30 }

func (p *Provider) TrackingFamily() swaps.TrackingFamily { return swaps.FamilyExchange }

func (p *Provider) Supports(tokenIn, tokenOut swaps.TokenRef) bool {
	if _, ok := Symbol(tokenIn); !ok {
		return false
	}
	if _, ok := Symbol(tokenOut); !ok {
		return false
	}
	if tokenIn.Equal(tokenOut) {
		return false
	}
	return sendtx.IsEvmChain(tokenIn.Blockchain)
}

func (p *Provider) FetchQuote(ctx context.Context, tokenIn, tokenOut swaps.TokenRef, amountIn decimal.Decimal, settings swaps.Settings) (*swaps.Quote, error) {
	from, to, err := symbols(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	estimated, err := p.client.GetEstimated(ctx, from, to, amountIn.String())
	if err != nil {
		return nil, err
	}

	amountOut, err := decimal.NewFromString(estimated)
	if err != nil {
		return nil, fmt.Errorf("parsing estimate %q: %w", estimated, err)
	}

	return &swaps.Quote{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		AmountIn:  amountIn,
		AmountOut: amountOut,
		Fields: []swaps.Field{
			{Name: "Rate Type", Value: "Floating"},
		},
	}, nil
}

func (p *Provider) FetchFinalQuote(ctx context.Context, quote swaps.RankedQuote, settings swaps.Settings) (*swaps.FinalQuote, error) {
	tokenIn := quote.Quote.TokenIn
	tokenOut := quote.Quote.TokenOut
	amountIn := quote.Quote.AmountIn

	from, to, err := symbols(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}

	recipient := settings.Recipient
	if recipient == "" {
		recipient, err = p.book.ReceiveAddress(ctx, tokenOut)
		if err != nil {
			return nil, fmt.Errorf("resolving recipient: %w", err)
		}
	}
	refund, err := p.book.SendingAddress(ctx, tokenIn)
	if err != nil {
		return nil, fmt.Errorf("resolving refund address: %w", err)
	}

	exchange, err := p.client.CreateExchange(ctx, from, to, amountIn.String(), recipient, refund)
	if err != nil {
		return nil, err
	}
	if exchange.AddressFrom == "" || exchange.ID == "" {
		return nil, fmt.Errorf("exchange created without deposit address or id")
	}

	amountOut := quote.Quote.AmountOut
	if exchange.AmountTo != "" {
		if parsed, err := decimal.NewFromString(exchange.AmountTo); err == nil {
			amountOut = parsed
		}
	}

	payload, err := sendtx.NewEvmTransfer(tokenIn, common.HexToAddress(exchange.AddressFrom), amountIn)
	if err != nil {
		return nil, fmt.Errorf("building deposit transfer: %w", err)
	}

	// Floating-rate exchange, the venue guarantees no minimum.
	return &swaps.FinalQuote{
		AmountOut:      amountOut,
		AmountOutMin:   decimal.Zero,
		Payload:        payload,
		ProviderSwapID: exchange.ID,
		DepositAddress: exchange.AddressFrom,
		Fields: []swaps.Field{
			{Name: "Order ID", Value: exchange.ID},
		},
	}, nil
}

func symbols(tokenIn, tokenOut swaps.TokenRef) (string, string, error) {
	from, ok := Symbol(tokenIn)
	if !ok {
		return "", "", fmt.Errorf("unsupported source token %s", tokenIn)
	}
	to, ok := Symbol(tokenOut)
	if !ok {
		return "", "", fmt.Errorf("unsupported destination token %s", tokenOut)
	}
	return from, to, nil
}
