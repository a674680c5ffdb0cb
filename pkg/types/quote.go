package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// NativeTokenAddress is the placeholder the aggregator uses for the chain's
// native currency.
var NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// NativeDecimals is the precision of every EVM native currency.
const NativeDecimals uint8 = 18

// Quote is the aggregator's routing answer for one (sell, buy, amount)
// triple. Pricing is amount sensitive, so a quote is never reused for a
// different amount.
type Quote struct {
	ChainID          int64           `json:"chainId"`
	Price            decimal.Decimal `json:"price"`
	GuaranteedPrice  decimal.Decimal `json:"guaranteedPrice"`
	To               common.Address  `json:"to"`
	Data             hexutil.Bytes   `json:"data"`
	Value            decimal.Decimal `json:"value"`
	Gas              decimal.Decimal `json:"gas"`
	EstimatedGas     decimal.Decimal `json:"estimatedGas"`
	GasPrice         decimal.Decimal `json:"gasPrice"`
	ProtocolFee      decimal.Decimal `json:"protocolFee"`
	BuyTokenAddress  common.Address  `json:"buyTokenAddress"`
	SellTokenAddress common.Address  `json:"sellTokenAddress"`
	BuyAmount        decimal.Decimal `json:"buyAmount"`
	SellAmount       decimal.Decimal `json:"sellAmount"`
	AllowanceTarget  common.Address  `json:"allowanceTarget"`
}

// SellAmountBase returns the quoted sell amount in base units.
func (q *Quote) SellAmountBase() *big.Int {
	return q.SellAmount.BigInt()
}

// BuyAmountBase returns the aggregator's estimated output in base units.
func (q *Quote) BuyAmountBase() *big.Int {
	return q.BuyAmount.BigInt()
}

func (q *Quote) ValueWei() *big.Int {
	return q.Value.BigInt()
}

// GasPriceWei returns nil when the quote carries no gas price, leaving the
// choice to the node.
func (q *Quote) GasPriceWei() *big.Int {
	if !q.GasPrice.IsPositive() {
		return nil
	}
	return q.GasPrice.BigInt()
}

// IsNative reports whether addr is the aggregator's native currency marker.
func IsNative(addr common.Address) bool {
	return addr == NativeTokenAddress
}
