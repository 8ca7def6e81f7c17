// Package contracts holds contract ABIs used by the wallet core.
package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// FHERC20MetaData contains the subset of the FHERC20 ABI the wallet calls.
// It covers the confidential entry points plus the ERC-20 surface shared by
// standard tokens, so one ABI can probe and drive both token types.
var FHERC20MetaData = &bind.MetaData{
	ABI: `[
	{"inputs":[],"name":"isConfidentialToken","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"confidentialBalanceOf","outputs":[{"internalType":"euint64","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"name","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"symbol","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"uint256","name":"value","type":"uint256"}],"name":"transfer","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"components":[{"internalType":"uint256","name":"ctHash","type":"uint256"},{"internalType":"uint8","name":"securityZone","type":"uint8"},{"internalType":"uint8","name":"utype","type":"uint8"},{"internalType":"bytes","name":"signature","type":"bytes"}],"internalType":"struct InEuint64","name":"inValue","type":"tuple"}],"name":"confidentialTransfer","outputs":[{"internalType":"euint64","name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"spender","type":"address"},{"components":[{"internalType":"uint256","name":"ctHash","type":"uint256"},{"internalType":"uint8","name":"securityZone","type":"uint8"},{"internalType":"uint8","name":"utype","type":"uint8"},{"internalType":"bytes","name":"signature","type":"bytes"}],"internalType":"struct InEuint64","name":"inValue","type":"tuple"}],"name":"confidentialApprove","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`,
}

// Method names on the FHERC20 ABI.
const (
	MethodIsConfidentialToken   = "isConfidentialToken"
	MethodConfidentialBalanceOf = "confidentialBalanceOf"
	MethodBalanceOf             = "balanceOf"
	MethodName                  = "name"
	MethodSymbol                = "symbol"
	MethodDecimals              = "decimals"
	MethodTransfer              = "transfer"
	MethodConfidentialTransfer  = "confidentialTransfer"
	MethodConfidentialApprove   = "confidentialApprove"
)
