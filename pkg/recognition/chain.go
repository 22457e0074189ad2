package recognition

import (
	"context"
	"log/slog"
)

// Chain tries strategies in order until one succeeds. Every failure is
// logged once; the caller only sees the aggregated error.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewChain creates a strategy chain.
// At least one strategy is required; nil entries are skipped.
func NewChain(strategies ...Strategy) (*Chain, error) {
	var list []Strategy
	for _, s := range strategies {
		if s != nil {
			list = append(list, s)
		}
	}
	if len(list) == 0 {
		return nil, ErrNoStrategies
	}
	return &Chain{
		strategies: list,
		logger:     slog.Default().With("component", "recognition.chain"),
	}, nil
}

// NewChainWithLogger creates a strategy chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, strategies ...Strategy) (*Chain, error) {
	chain, err := NewChain(strategies...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "recognition.chain")
	return chain, nil
}

// New builds the standard chain: multipart upload first, then the configured
// fallback.
func New(opts ...Option) (*Chain, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	primary, err := NewMultipart(cfg)
	if err != nil {
		return nil, err
	}
	fallback, err := NewFallback(cfg.Fallback, cfg)
	if err != nil {
		return nil, err
	}
	return NewChainWithLogger(cfg.Logger, primary, fallback)
}

// Submit tries each strategy until one succeeds.
func (c *Chain) Submit(ctx context.Context, req *Request) (*Result, error) {
	var errors []error

	for i, s := range c.strategies {
		res, err := s.Submit(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback strategy succeeded",
					"strategy", s.Name(),
					"token", res.Token,
				)
			}
			return res, nil
		}

		errors = append(errors, err)
		if ctx.Err() != nil {
			c.logger.Warn("submit cancelled",
				"strategy", s.Name(),
				"error", err,
			)
			return nil, ctx.Err()
		}

		if i < len(c.strategies)-1 {
			c.logger.Warn("submit failed, trying fallback",
				"strategy", s.Name(),
				"next", c.strategies[i+1].Name(),
				"error", err,
			)
		} else {
			c.logger.Error("submit failed",
				"strategy", s.Name(),
				"attempts", len(errors),
				"error", err,
			)
		}
	}

	return nil, &ChainError{Errors: errors}
}

// Strategies returns the strategies in order.
func (c *Chain) Strategies() []Strategy {
	return c.strategies
}

// Names returns the strategy names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name()
	}
	return names
}

// Name returns "chain".
func (c *Chain) Name() string { return "chain" }

// Verify Chain implements Strategy at compile time.
var _ Strategy = (*Chain)(nil)
