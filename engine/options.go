package engine

// ============================================================================
// ENGINE OPTIONS — Functional options for Aggregate()
// ============================================================================

// DefaultRankingLimit is how many groups a ranking question keeps.
const DefaultRankingLimit = 3

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	RankingLimit int // groups kept by ranking questions; <= 0 keeps all
}

// WithRankingLimit overrides how many groups a ranking question keeps.
// Cost-driver and trend breakdowns are never truncated.
func WithRankingLimit(n int) Option {
	return func(c *config) {
		c.RankingLimit = n
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		RankingLimit: DefaultRankingLimit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
