package wallet

import (
	"context"
	"fmt"

	"github.com/RaghavSood/multiswap/sendtx"
	"github.com/RaghavSood/multiswap/swaps"
)

// Book resolves receive and sending addresses per token. EVM chains use
// the signer's first derived address; other chains fall back to the
// configured static addresses.
type Book struct {
	signer *Signer
	static map[string]string // blockchain id -> address
}

// NewBook builds an address book over the signer and any configured
// non-EVM addresses.
func NewBook(signer *Signer, static map[string]string) *Book {
	return &Book{signer: signer, static: static}
}

func (b *Book) ReceiveAddress(ctx context.Context, token swaps.TokenRef) (string, error) {
	return b.address(token)
}

func (b *Book) SendingAddress(ctx context.Context, token swaps.TokenRef) (string, error) {
	return b.address(token)
}

func (b *Book) address(token swaps.TokenRef) (string, error) {
	if sendtx.IsEvmChain(token.Blockchain) {
		addr, err := b.signer.Address(0)
		if err != nil {
			return "", err
		}
		return addr.Hex(), nil
	}

	if addr, ok := b.static[token.Blockchain]; ok {
		return addr, nil
	}
	return "", fmt.Errorf("no address configured for chain %s", token.Blockchain)
}
