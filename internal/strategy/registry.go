package strategy

import (
	"sync"

	"github.com/mzahran/scalpbot/internal/domain"
)

// instanceKey identifies one strategy instance: instances are never
// shared across symbols.
type instanceKey struct {
	kind   domain.StrategyKind
	symbol string
}

// Registry lazily creates and caches strategy instances per
// (kind, symbol) for the process lifetime. It is safe for concurrent
// use.
type Registry struct {
	mu        sync.Mutex
	instances map[instanceKey]Strategy
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		instances: make(map[instanceKey]Strategy),
	}
}

// Get returns the cached instance for (kind, symbol), creating it on
// first access. Unknown kinds return domain.ErrUnknownStrategy.
func (r *Registry) Get(kind domain.StrategyKind, symbol string) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := instanceKey{kind: kind, symbol: symbol}
	if s, ok := r.instances[key]; ok {
		return s, nil
	}

	var s Strategy
	switch kind {
	case domain.StrategyTrendCrossover:
		s = NewTrendCrossover(symbol)
	case domain.StrategyMeanReversion:
		s = NewMeanReversion(symbol)
	case domain.StrategySqueezeBreakout:
		s = NewSqueezeBreakout(symbol)
	case domain.StrategyVWAPScalper:
		s = NewVWAPScalper(symbol)
	default:
		return nil, domain.ErrUnknownStrategy
	}

	r.instances[key] = s
	return s, nil
}

// ForSymbol returns every strategy instance for one symbol in
// evaluation order, creating missing instances.
func (r *Registry) ForSymbol(symbol string) []Strategy {
	out := make([]Strategy, 0, len(domain.AllStrategyKinds))
	for _, kind := range domain.AllStrategyKinds {
		s, err := r.Get(kind, symbol)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
