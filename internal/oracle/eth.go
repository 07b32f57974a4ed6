package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"lvrguard/internal/chain"
)

const priceOracleABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "assetA", "type": "address"}, {"internalType": "address", "name": "assetB", "type": "address"}], "name": "getPrice", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "assetA", "type": "address"}, {"internalType": "address", "name": "assetB", "type": "address"}], "name": "isStale", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "assetA", "type": "address"}, {"internalType": "address", "name": "assetB", "type": "address"}], "name": "lastUpdateTime", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

var (
	priceOracleABI    abi.ABI
	priceOracleOnce   sync.Once
	priceOracleABIErr error
)

func oracleABI() (abi.ABI, error) {
	priceOracleOnce.Do(func() {
		priceOracleABI, priceOracleABIErr = abi.JSON(strings.NewReader(priceOracleABIJSON))
	})
	return priceOracleABI, priceOracleABIErr
}

// EthSource reads reference prices from an on-chain price oracle contract.
type EthSource struct {
	client   *chain.Client
	contract common.Address
}

func NewEthSource(client *chain.Client, contract common.Address) (*EthSource, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if contract == (common.Address{}) {
		return nil, fmt.Errorf("oracle contract address is required")
	}
	return &EthSource{client: client, contract: contract}, nil
}

func (s *EthSource) Price(ctx context.Context, assetA, assetB common.Address) (*big.Int, error) {
	values, err := s.call(ctx, "getPrice", assetA, assetB)
	if err != nil {
		return nil, err
	}
	price, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getPrice: unexpected output type %T", values[0])
	}
	return price, nil
}

func (s *EthSource) IsStale(ctx context.Context, assetA, assetB common.Address) (bool, error) {
	values, err := s.call(ctx, "isStale", assetA, assetB)
	if err != nil {
		return false, err
	}
	stale, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("isStale: unexpected output type %T", values[0])
	}
	return stale, nil
}

func (s *EthSource) LastUpdate(ctx context.Context, assetA, assetB common.Address) (time.Time, error) {
	values, err := s.call(ctx, "lastUpdateTime", assetA, assetB)
	if err != nil {
		return time.Time{}, err
	}
	ts, ok := values[0].(*big.Int)
	if !ok {
		return time.Time{}, fmt.Errorf("lastUpdateTime: unexpected output type %T", values[0])
	}
	return time.Unix(ts.Int64(), 0), nil
}

func (s *EthSource) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := oracleABI()
	if err != nil {
		return nil, fmt.Errorf("parse oracle abi: %w", err)
	}
	input, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	output, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: input})
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
