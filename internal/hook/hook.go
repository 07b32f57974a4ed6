package hook

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lvrguard/internal/bank"
	"lvrguard/internal/model"
	"lvrguard/internal/oracle"
	"lvrguard/internal/registry"
)

const (
	// MaxDeviationThresholdBps caps the trigger threshold at 10%.
	MaxDeviationThresholdBps = 1000
	// MaxProtocolFeeBps caps the protocol fee at 10% of the winning bid.
	MaxProtocolFeeBps = 1000

	bpsDenominator = 10000
)

// Well-known success markers returned from pool-manager callbacks so the
// upstream caller can verify the hook executed.
const (
	AckLiquidityAdded   = "onLiquidityAdded"
	AckLiquidityRemoved = "onLiquidityRemoved"
	AckSwap             = "onSwap"
)

// Config holds the engine's administrative parameters.
type Config struct {
	Owner                 common.Address
	PoolManager           common.Address
	FeeRecipient          common.Address
	DeviationThresholdBps uint64
	ProtocolFeeBps        uint64
	AuctionDuration       time.Duration
	VoidGrace             time.Duration
	RegistryID            common.Hash
	MinOperatorStake      *big.Int
}

func (c Config) validate() error {
	if c.Owner == (common.Address{}) {
		return fmt.Errorf("%w: owner is required", ErrInvalidConfiguration)
	}
	if c.PoolManager == (common.Address{}) {
		return fmt.Errorf("%w: pool manager is required", ErrInvalidConfiguration)
	}
	if c.DeviationThresholdBps == 0 || c.DeviationThresholdBps > MaxDeviationThresholdBps {
		return fmt.Errorf("%w: deviation threshold %d bps out of range", ErrInvalidConfiguration, c.DeviationThresholdBps)
	}
	if c.ProtocolFeeBps > MaxProtocolFeeBps {
		return fmt.Errorf("%w: protocol fee %d bps exceeds cap", ErrInvalidConfiguration, c.ProtocolFeeBps)
	}
	if c.ProtocolFeeBps > 0 && c.FeeRecipient == (common.Address{}) {
		return fmt.Errorf("%w: fee recipient is required when fee is set", ErrInvalidConfiguration)
	}
	if c.AuctionDuration <= 0 {
		return fmt.Errorf("%w: auction duration must be positive", ErrInvalidConfiguration)
	}
	if c.VoidGrace < 0 {
		return fmt.Errorf("%w: void grace must not be negative", ErrInvalidConfiguration)
	}
	return nil
}

// Deps are the injected collaborators. Payer is required; the rest are
// optional and default to inert implementations.
type Deps struct {
	Oracle   oracle.Source
	Registry registry.Registry
	Payer    bank.Payer
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

// poolLedger tracks one pool's liquidity shares.
type poolLedger struct {
	total     *big.Int
	providers map[common.Address]*big.Int
}

// Engine owns the liquidity, auction, and reward ledgers for all pools
// behind one pool manager. Every exported operation is a single atomic
// step guarded by the engine mutex; value transfers happen after state
// mutation and are rolled back if the transfer fails.
type Engine struct {
	mu sync.Mutex

	cfg    Config
	paused bool

	liquidity     map[common.Hash]*poolLedger
	auctions      map[common.Hash]*model.Auction
	activeAuction map[common.Hash]common.Hash
	auctionSeq    map[common.Hash]uint64
	rewardBalance map[common.Hash]*big.Int
	deposited     map[common.Hash]*big.Int
	claimed       map[common.Hash]map[common.Address]*big.Int
	settledCount  map[common.Hash]uint64
	operators     map[common.Address]bool

	oracle   oracle.Source
	registry registry.Registry
	payer    bank.Payer
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// New validates the configuration and builds an engine.
func New(cfg Config, deps Deps) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Payer == nil {
		return nil, fmt.Errorf("%w: payer is required", ErrInvalidConfiguration)
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Engine{
		cfg:           cfg,
		liquidity:     make(map[common.Hash]*poolLedger),
		auctions:      make(map[common.Hash]*model.Auction),
		activeAuction: make(map[common.Hash]common.Hash),
		auctionSeq:    make(map[common.Hash]uint64),
		rewardBalance: make(map[common.Hash]*big.Int),
		deposited:     make(map[common.Hash]*big.Int),
		claimed:       make(map[common.Hash]map[common.Address]*big.Int),
		settledCount:  make(map[common.Hash]uint64),
		operators:     make(map[common.Address]bool),
		oracle:        deps.Oracle,
		registry:      deps.Registry,
		payer:         deps.Payer,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		now:           deps.Now,
	}, nil
}

// Owner returns the current administrator address.
func (e *Engine) Owner() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Owner
}

// IsPaused reports the emergency-stop state.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Pause stops all gated entry points without touching ledger state.
func (e *Engine) Pause(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.paused = true
	e.logger.Warn("engine paused", zap.String("by", caller.Hex()))
	return nil
}

// Unpause re-enables gated entry points.
func (e *Engine) Unpause(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	e.paused = false
	e.logger.Info("engine unpaused", zap.String("by", caller.Hex()))
	return nil
}

// SetDeviationThreshold updates the trigger threshold in basis points.
func (e *Engine) SetDeviationThreshold(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if bps == 0 || bps > MaxDeviationThresholdBps {
		return fmt.Errorf("%w: deviation threshold %d bps out of range", ErrInvalidConfiguration, bps)
	}
	e.cfg.DeviationThresholdBps = bps
	e.logger.Info("deviation threshold updated", zap.Uint64("bps", bps))
	return nil
}

// SetProtocolFee updates the settlement fee in basis points.
func (e *Engine) SetProtocolFee(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if bps > MaxProtocolFeeBps {
		return fmt.Errorf("%w: protocol fee %d bps exceeds cap", ErrInvalidConfiguration, bps)
	}
	if bps > 0 && e.cfg.FeeRecipient == (common.Address{}) {
		return fmt.Errorf("%w: fee recipient must be set first", ErrInvalidConfiguration)
	}
	e.cfg.ProtocolFeeBps = bps
	e.logger.Info("protocol fee updated", zap.Uint64("bps", bps))
	return nil
}

// SetFeeRecipient updates where protocol fees are routed.
func (e *Engine) SetFeeRecipient(caller, recipient common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if recipient == (common.Address{}) {
		return fmt.Errorf("%w: fee recipient must not be zero", ErrInvalidConfiguration)
	}
	e.cfg.FeeRecipient = recipient
	e.logger.Info("fee recipient updated", zap.String("recipient", recipient.Hex()))
	return nil
}

// TransferOwnership hands administration to a new owner.
func (e *Engine) TransferOwnership(caller, newOwner common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: new owner must not be zero", ErrInvalidConfiguration)
	}
	e.cfg.Owner = newOwner
	e.logger.Info("ownership transferred", zap.String("owner", newOwner.Hex()))
	return nil
}

// Config returns a copy of the current configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

func (e *Engine) requireOwner(caller common.Address) error {
	if caller != e.cfg.Owner {
		return fmt.Errorf("%w: caller %s is not the owner", ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (e *Engine) requirePoolManager(caller common.Address) error {
	if caller != e.cfg.PoolManager {
		return fmt.Errorf("%w: caller %s is not the pool manager", ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (e *Engine) requireNotPaused() error {
	if e.paused {
		return ErrPaused
	}
	return nil
}

// nowUnix is the injected clock in unix seconds.
func (e *Engine) nowUnix() int64 {
	return e.now().Unix()
}
