package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// MultiSendCallOnlyABI is the ABI of the MultiSendCallOnly contract
const MultiSendCallOnlyABI = `[
	{
		"inputs": [
			{
				"internalType": "bytes",
				"name": "transactions",
				"type": "bytes"
			}
		],
		"name": "multiSend",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// MultiSendABI is the parsed MultiSendCallOnly ABI
var MultiSendABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(MultiSendCallOnlyABI))
	if err != nil {
		panic(fmt.Sprintf("invalid multisend abi: %v", err))
	}
	MultiSendABI = parsed
}
