package hook

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"lvrguard/internal/bank"
	"lvrguard/internal/oracle"
)

func TestDeviationBps(t *testing.T) {
	cases := []struct {
		name      string
		current   *big.Int
		reference *big.Int
		want      uint64
	}{
		{"equal", big.NewInt(1000), big.NewInt(1000), 0},
		{"one percent up", big.NewInt(1010), big.NewInt(1000), 100},
		{"one percent down", big.NewInt(990), big.NewInt(1000), 100},
		{"half percent", big.NewInt(1005), big.NewInt(1000), 50},
		{"truncated below half percent", big.NewInt(1004), big.NewInt(1000), 40},
		{"nil current", nil, big.NewInt(1000), 0},
		{"nil reference", big.NewInt(1000), nil, 0},
		{"zero reference", big.NewInt(1000), big.NewInt(0), 0},
		{"negative reference", big.NewInt(1000), big.NewInt(-1), 0},
		{"negative current", big.NewInt(-1000), big.NewInt(1000), 0},
		{"zero current", big.NewInt(0), big.NewInt(1000), 10000},
	}
	for _, tc := range cases {
		if got := DeviationBps(tc.current, tc.reference); got != tc.want {
			t.Fatalf("%s: DeviationBps = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestDeviationBpsOverflowSaturates(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 200)
	if got := DeviationBps(huge, big.NewInt(1)); got != ^uint64(0) {
		t.Fatalf("DeviationBps = %d, want saturation", got)
	}
}

func TestCheckAndTrigger(t *testing.T) {
	env := newTestEnv(defaultConfig())
	mustAdd(env, testPool, providerOne, 1000)

	// Below the 50 bps threshold no auction opens regardless of size.
	if env.engine.CheckAndTrigger(testPool, big.NewInt(1004), big.NewInt(1000), false) {
		t.Fatalf("triggered below threshold")
	}
	if env.engine.ActiveAuctionCount() != 0 {
		t.Fatalf("auction opened below threshold")
	}

	// A stale reference never triggers, even far past the threshold.
	if env.engine.CheckAndTrigger(testPool, big.NewInt(2000), big.NewInt(1000), true) {
		t.Fatalf("triggered on stale reference")
	}

	if !env.engine.CheckAndTrigger(testPool, big.NewInt(1010), big.NewInt(1000), false) {
		t.Fatalf("did not trigger at 100 bps")
	}
	id, ok := env.engine.ActiveAuctionID(testPool)
	if !ok {
		t.Fatalf("no active auction after trigger")
	}
	if len(env.notifier.opened) != 1 {
		t.Fatalf("opened events = %d, want 1", len(env.notifier.opened))
	}
	if env.notifier.opened[0].AuctionID != id.Hex() {
		t.Fatalf("opened event auction %s != %s", env.notifier.opened[0].AuctionID, id.Hex())
	}

	// An active auction blocks a second trigger for the same pool.
	if env.engine.CheckAndTrigger(testPool, big.NewInt(5000), big.NewInt(1000), false) {
		t.Fatalf("opened a second auction for an already-auctioned pool")
	}
	if env.engine.ActiveAuctionCount() != 1 {
		t.Fatalf("active auctions = %d, want 1", env.engine.ActiveAuctionCount())
	}

	// A different pool is unaffected by the first pool's auction.
	if !env.engine.CheckAndTrigger(otherPool, big.NewInt(1010), big.NewInt(1000), false) {
		t.Fatalf("did not trigger for second pool")
	}
	if env.engine.ActiveAuctionCount() != 2 {
		t.Fatalf("active auctions = %d, want 2", env.engine.ActiveAuctionCount())
	}
}

func TestCheckAndTriggerExactThreshold(t *testing.T) {
	env := newTestEnv(defaultConfig())

	// Deviation equal to the threshold triggers.
	if !env.engine.CheckAndTrigger(testPool, big.NewInt(1005), big.NewInt(1000), false) {
		t.Fatalf("did not trigger at exactly 50 bps")
	}
}

func TestCheckAndTriggerPaused(t *testing.T) {
	env := newTestEnv(defaultConfig())
	if err := env.engine.Pause(testOwner); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if env.engine.CheckAndTrigger(testPool, big.NewInt(2000), big.NewInt(1000), false) {
		t.Fatalf("triggered while paused")
	}
}

func TestOnSwap(t *testing.T) {
	asset0 := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	asset1 := common.HexToAddress("0x00000000000000000000000000000000000000e2")

	clock := newFakeClock()
	source := oracle.NewStatic()
	notifier := &recordingNotifier{}
	engine, err := New(defaultConfig(), Deps{
		Oracle:   source,
		Payer:    bank.NewMemory(),
		Notifier: notifier,
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctx := context.Background()

	if _, err := engine.OnSwap(ctx, providerOne, testPool, asset0, asset1, big.NewInt(1010)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("swap by non-manager err = %v, want ErrUnauthorized", err)
	}

	// Unknown pair reads as stale, so nothing triggers.
	ack, err := engine.OnSwap(ctx, testManager, testPool, asset0, asset1, big.NewInt(1010))
	if err != nil || ack != AckSwap {
		t.Fatalf("swap = (%q, %v), want ack", ack, err)
	}
	if engine.ActiveAuctionCount() != 0 {
		t.Fatalf("auction opened on stale reference")
	}

	source.SetPrice(asset0, asset1, big.NewInt(1000))
	if _, err := engine.OnSwap(ctx, testManager, testPool, asset0, asset1, big.NewInt(1010)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if engine.ActiveAuctionCount() != 1 {
		t.Fatalf("deviated swap did not open an auction")
	}

	source.MarkStale(asset0, asset1, true)
	if _, err := engine.OnSwap(ctx, testManager, otherPool, asset0, asset1, big.NewInt(5000)); err != nil {
		t.Fatalf("swap: %v", err)
	}
	if engine.ActiveAuctionCount() != 1 {
		t.Fatalf("stale reference opened an auction")
	}
}

func TestOnSwapWithoutOracle(t *testing.T) {
	env := newTestEnv(defaultConfig())

	ack, err := env.engine.OnSwap(context.Background(), testManager, testPool, common.Address{}, common.Address{}, big.NewInt(5000))
	if err != nil || ack != AckSwap {
		t.Fatalf("swap = (%q, %v), want ack", ack, err)
	}
	if env.engine.ActiveAuctionCount() != 0 {
		t.Fatalf("auction opened without an oracle")
	}
}
