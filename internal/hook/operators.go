package hook

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lvrguard/internal/model"
)

// isAuthorizedLocked is the settlement gate: the local allowlist plus the
// owner bypass. The external registry is never consulted here; it only
// informs authorization decisions in AuthorizeOperator.
func (e *Engine) isAuthorizedLocked(addr common.Address) bool {
	if addr == e.cfg.Owner {
		return true
	}
	return e.operators[addr]
}

// IsAuthorizedOperator reports whether the address passes the operator
// gate.
func (e *Engine) IsAuthorizedOperator(addr common.Address) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isAuthorizedLocked(addr)
}

// AuthorizeOperator adds an address to the local allowlist. When a
// registry is injected, the operator must be registered and, if a minimum
// stake is configured, staked at least that much.
func (e *Engine) AuthorizeOperator(ctx context.Context, caller, operator common.Address) error {
	e.mu.Lock()
	if err := e.requireOwner(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if operator == (common.Address{}) {
		e.mu.Unlock()
		return fmt.Errorf("%w: operator must not be zero", ErrInvalidConfiguration)
	}
	registryID := e.cfg.RegistryID
	minStake := e.cfg.MinOperatorStake
	e.mu.Unlock()

	if e.registry != nil {
		registered, err := e.registry.IsRegistered(ctx, registryID, operator)
		if err != nil {
			return fmt.Errorf("query registry: %w", err)
		}
		if !registered {
			return fmt.Errorf("%w: operator %s is not registered", ErrInvalidConfiguration, operator.Hex())
		}
		if minStake != nil && minStake.Sign() > 0 {
			stake, err := e.registry.Stake(ctx, registryID, operator)
			if err != nil {
				return fmt.Errorf("query stake: %w", err)
			}
			if stake == nil || stake.Cmp(minStake) < 0 {
				return fmt.Errorf("%w: operator %s stake below minimum", ErrInvalidConfiguration, operator.Hex())
			}
		}
	}

	e.mu.Lock()
	e.operators[operator] = true
	e.mu.Unlock()

	e.logger.Info("operator authorized", zap.String("operator", operator.Hex()))
	return nil
}

// DeauthorizeOperator removes an address from the local allowlist. Local
// revocation is immediate and does not depend on registry latency.
func (e *Engine) DeauthorizeOperator(caller, operator common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	delete(e.operators, operator)
	e.logger.Info("operator deauthorized", zap.String("operator", operator.Hex()))
	return nil
}

// Operators returns the allowlisted addresses, sorted for stable output.
func (e *Engine) Operators() []common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]common.Address, 0, len(e.operators))
	for addr := range e.operators {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Hex() < out[j].Hex()
	})
	return out
}

// OperatorStats combines the local allowlist with registry stake data for
// the read API. Registry failures degrade to allowlist-only views.
func (e *Engine) OperatorStats(ctx context.Context) []model.OperatorStat {
	operators := e.Operators()
	registryID := e.Config().RegistryID

	stats := make([]model.OperatorStat, 0, len(operators))
	for _, addr := range operators {
		stat := model.OperatorStat{
			Address:    addr.Hex(),
			Authorized: true,
			Stake:      "0",
		}
		if e.registry != nil {
			registered, err := e.registry.IsRegistered(ctx, registryID, addr)
			if err == nil {
				stat.Registered = registered
			}
			stake, err := e.registry.Stake(ctx, registryID, addr)
			if err == nil && stake != nil {
				stat.Stake = stake.String()
			}
		}
		stats = append(stats, stat)
	}
	return stats
}
