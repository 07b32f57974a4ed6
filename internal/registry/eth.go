package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lvrguard/internal/chain"
)

const operatorRegistryABIJSON = `[
  {"inputs": [{"internalType": "bytes32", "name": "registryId", "type": "bytes32"}, {"internalType": "address", "name": "operator", "type": "address"}], "name": "isRegistered", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "registryId", "type": "bytes32"}, {"internalType": "address", "name": "operator", "type": "address"}], "name": "getStake", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	operatorRegistryABI    abi.ABI
	operatorRegistryOnce   sync.Once
	operatorRegistryABIErr error
)

func registryABI() (abi.ABI, error) {
	operatorRegistryOnce.Do(func() {
		operatorRegistryABI, operatorRegistryABIErr = abi.JSON(strings.NewReader(operatorRegistryABIJSON))
	})
	return operatorRegistryABI, operatorRegistryABIErr
}

// EthRegistry reads operator registration state from the on-chain
// registry contract.
type EthRegistry struct {
	client   *chain.Client
	contract common.Address
}

func NewEthRegistry(client *chain.Client, contract common.Address) (*EthRegistry, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if contract == (common.Address{}) {
		return nil, fmt.Errorf("registry contract address is required")
	}
	return &EthRegistry{client: client, contract: contract}, nil
}

func (r *EthRegistry) IsRegistered(ctx context.Context, registryID common.Hash, operator common.Address) (bool, error) {
	values, err := r.call(ctx, "isRegistered", registryID, operator)
	if err != nil {
		return false, err
	}
	registered, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("isRegistered: unexpected output type %T", values[0])
	}
	return registered, nil
}

func (r *EthRegistry) Stake(ctx context.Context, registryID common.Hash, operator common.Address) (*big.Int, error) {
	values, err := r.call(ctx, "getStake", registryID, operator)
	if err != nil {
		return nil, err
	}
	stake, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getStake: unexpected output type %T", values[0])
	}
	return stake, nil
}

func (r *EthRegistry) call(ctx context.Context, method string, registryID common.Hash, operator common.Address) ([]interface{}, error) {
	parsed, err := registryABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	input, err := parsed.Pack(method, registryID, operator)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: input})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	values, err := parsed.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: empty output", method)
	}
	return values, nil
}
