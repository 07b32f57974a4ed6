package bank

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"lvrguard/internal/chain"
)

const transferGasLimit = 21000

// EthPayer sends native value transfers signed with the engine's
// treasury key.
type EthPayer struct {
	client *chain.Client
	key    *ecdsa.PrivateKey
	from   common.Address
	logger *zap.Logger
}

// NewEthPayer loads the treasury key from the keystore path and resolves
// the sending address.
func NewEthPayer(client *chain.Client, keyPath string, logger *zap.Logger) (*EthPayer, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	key, err := crypto.LoadECDSA(keyPath)
	if err != nil {
		return nil, fmt.Errorf("load treasury key: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EthPayer{
		client: client,
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
		logger: logger,
	}, nil
}

// From returns the treasury address transfers are sent from.
func (p *EthPayer) From() common.Address {
	return p.from
}

func (p *EthPayer) Pay(ctx context.Context, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid pay amount")
	}
	if amount.Sign() == 0 {
		return nil
	}

	chainID, err := p.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	nonce, err := p.client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return fmt.Errorf("sign transfer: %w", err)
	}
	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send transfer: %w", err)
	}

	p.logger.Info("native transfer sent",
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
		zap.String("tx", signed.Hash().Hex()),
	)
	return nil
}
