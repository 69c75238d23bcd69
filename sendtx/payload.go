package sendtx

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/RaghavSood/multiswap/swaps"
)

// ChainIDs maps blockchain ids to EVM chain ids. Chains missing here
// cannot be broadcast from locally.
var ChainIDs = map[string]*big.Int{
	"ETH":     big.NewInt(1),
	"BSC":     big.NewInt(56),
	"POLYGON": big.NewInt(137),
	"BASE":    big.NewInt(8453),
	"ARB":     big.NewInt(42161),
	"AVAX":    big.NewInt(43114),
	"OP":      big.NewInt(10),
}

// IsEvmChain reports whether transactions on the blockchain can be
// signed and broadcast locally.
func IsEvmChain(blockchain string) bool {
	_, ok := ChainIDs[blockchain]
	return ok
}

var erc20TransferABI abi.ABI

func init() {
	var err error
	erc20TransferABI, err = abi.JSON(strings.NewReader(`[{"inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`))
	if err != nil {
		panic(err)
	}
}

// NewEvmTransfer builds the payload moving amount of token to
// recipient: a plain value transfer for native tokens, an ERC-20
// transfer call otherwise.
func NewEvmTransfer(token swaps.TokenRef, recipient common.Address, amount decimal.Decimal) (*EvmPayload, error) {
	chainID, ok := ChainIDs[token.Blockchain]
	if !ok {
		return nil, fmt.Errorf("chain %s is not broadcastable", token.Blockchain)
	}

	raw := amount.Shift(token.Decimals).BigInt()

	if token.IsNative() {
		return &EvmPayload{
			ChainID: chainID,
			To:      recipient,
			Value:   raw,
		}, nil
	}

	data, err := erc20TransferABI.Pack("transfer", recipient, raw)
	if err != nil {
		return nil, fmt.Errorf("packing transfer: %w", err)
	}
	return &EvmPayload{
		ChainID: chainID,
		To:      common.HexToAddress(token.Contract),
		Value:   big.NewInt(0),
		Data:    data,
	}, nil
}
