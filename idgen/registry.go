package idgen

import (
	"fmt"
	"sort"
)

// Registry holds the named strategies.
type Registry struct {
	strategies map[Strategy]Generator[string]
	snowflake  Generator[int64]
}

// NewRegistry creates a Registry with the built-in strategies. The snowflake
// strategies are registered only when sf is non-nil.
func NewRegistry(sf *Snowflake) *Registry {
	r := &Registry{
		strategies: map[Strategy]Generator[string]{
			StrategyNull:   Null[string](),
			StrategyUUID:   UUID(),
			StrategyRandom: Random(),
			StrategyMD5:    MD5(),
		},
	}
	if sf != nil {
		r.snowflake = SnowflakeInt(sf)
		// string lookups of the integer strategy get the decimal form
		r.strategies[StrategySnowflake] = SnowflakeString(sf)
		r.strategies[StrategySnowflakeString] = SnowflakeString(sf)
		r.strategies[StrategySnowflakeHex] = SnowflakeHex(sf)
	}
	return r
}

// Register adds or replaces a string strategy.
func (r *Registry) Register(name Strategy, g Generator[string]) {
	r.strategies[name] = g
}

// String returns the string-valued generator registered under name.
func (r *Registry) String(name Strategy) (Generator[string], error) {
	g, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return g, nil
}

// Generate runs the strategy registered under name. The result is nil for
// the null strategy, an int64 for the snowflake strategy and a string otherwise.
func (r *Registry) Generate(name Strategy) (any, error) {
	switch {
	case name == StrategyNull:
		return nil, nil
	case name == StrategySnowflake && r.snowflake != nil:
		return r.snowflake.Generate()
	}
	g, err := r.String(name)
	if err != nil {
		return nil, err
	}
	return g.Generate()
}

// Names returns the registered strategy names in sorted order.
func (r *Registry) Names() []Strategy {
	names := make([]Strategy, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
