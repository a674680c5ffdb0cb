// Package contracts holds the ABIs of the on-chain contracts the settlement
// client talks to.
package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Settlement contract method and event names.
const (
	MethodFillQuote        = "fillQuote"
	MethodFillQuoteSellETH = "fillQuoteSellETH"
	MethodFillQuoteBuyETH  = "fillQuoteBuyETH"
	MethodWithdrawFee      = "withdrawFee"
	MethodGetSwapTarget    = "getSwapTarget"
	MethodGetFee           = "getFee"
	MethodOwner            = "owner"

	EventBoughtTokens = "BoughtTokens"
	EventWithdrawFee  = "WithdrawFee"
)

// ERC20 method names.
const (
	MethodDecimals  = "decimals"
	MethodBalanceOf = "balanceOf"
	MethodAllowance = "allowance"
	MethodApprove   = "approve"
)

const settlementABIJSON = `[
  {"inputs":[{"name":"sellAmount","type":"uint256"},{"name":"sellToken","type":"address"},{"name":"buyToken","type":"address"},{"name":"spender","type":"address"},{"name":"swapCallData","type":"bytes"}],"name":"fillQuote","outputs":[],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"sellAmount","type":"uint256"},{"name":"buyToken","type":"address"},{"name":"spender","type":"address"},{"name":"swapCallData","type":"bytes"}],"name":"fillQuoteSellETH","outputs":[],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"sellAmount","type":"uint256"},{"name":"sellToken","type":"address"},{"name":"spender","type":"address"},{"name":"swapCallData","type":"bytes"}],"name":"fillQuoteBuyETH","outputs":[],"stateMutability":"payable","type":"function"},
  {"inputs":[{"name":"token","type":"address"},{"name":"recipient","type":"address"}],"name":"withdrawFee","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"getSwapTarget","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"getFee","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"boughtAmount","type":"uint256"}],"name":"BoughtTokens","type":"event"},
  {"anonymous":false,"inputs":[{"indexed":false,"name":"amount","type":"uint256"}],"name":"WithdrawFee","type":"event"}
]`

const erc20ABIJSON = `[
  {"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	// Settlement is the ABI of the ExchangeZRX settlement contract.
	Settlement = mustParse(settlementABIJSON)
	// ERC20 is the subset of the ERC20 ABI the client uses.
	ERC20 = mustParse(erc20ABIJSON)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("contracts: invalid ABI: " + err.Error())
	}
	return parsed
}
