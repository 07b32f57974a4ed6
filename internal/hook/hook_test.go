package hook

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"lvrguard/internal/bank"
	"lvrguard/internal/model"
)

var (
	testOwner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testManager  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	testOperator = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	testFeeAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	providerOne  = common.HexToAddress("0x0000000000000000000000000000000000000011")
	providerTwo  = common.HexToAddress("0x0000000000000000000000000000000000000022")
	testPool     = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	otherPool    = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

// fakeClock is a settable clock for driving auction windows.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	opened  []model.AuctionOpened
	ended   []model.AuctionEnded
	voided  []model.AuctionVoided
	claimed []model.RewardsClaimed
}

func (n *recordingNotifier) AuctionOpened(ev model.AuctionOpened) {
	n.mu.Lock()
	n.opened = append(n.opened, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) AuctionEnded(ev model.AuctionEnded) {
	n.mu.Lock()
	n.ended = append(n.ended, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) AuctionVoided(ev model.AuctionVoided) {
	n.mu.Lock()
	n.voided = append(n.voided, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) RewardsClaimed(ev model.RewardsClaimed) {
	n.mu.Lock()
	n.claimed = append(n.claimed, ev)
	n.mu.Unlock()
}

type testEnv struct {
	engine   *Engine
	clock    *fakeClock
	payer    *bank.Memory
	notifier *recordingNotifier
}

func newTestEnv(cfg Config) *testEnv {
	clock := newFakeClock()
	payer := bank.NewMemory()
	notifier := &recordingNotifier{}

	engine, err := New(cfg, Deps{
		Payer:    payer,
		Notifier: notifier,
		Now:      clock.Now,
	})
	if err != nil {
		panic(err)
	}
	return &testEnv{engine: engine, clock: clock, payer: payer, notifier: notifier}
}

func defaultConfig() Config {
	return Config{
		Owner:                 testOwner,
		PoolManager:           testManager,
		FeeRecipient:          testFeeAddr,
		DeviationThresholdBps: 50,
		ProtocolFeeBps:        0,
		AuctionDuration:       time.Minute,
		VoidGrace:             time.Hour,
	}
}

func mustAdd(env *testEnv, pool common.Hash, provider common.Address, amount int64) {
	if _, err := env.engine.OnLiquidityAdded(testManager, pool, provider, big.NewInt(amount)); err != nil {
		panic(err)
	}
}
