package oracle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vouch/pkg/platform/circuit"
)

// Guarded fails fast with ErrCircuitOpen while the wrapped provider keeps
// failing with retryable errors. It never retries.
type Guarded struct {
	next    Oracle
	breaker *circuit.Breaker
	logger  *zap.Logger
	now     func() time.Time
}

func NewGuarded(next Oracle, breaker *circuit.Breaker, log *zap.Logger) *Guarded {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guarded{next: next, breaker: breaker, logger: log, now: time.Now}
}

func (g *Guarded) Verify(ctx context.Context, claim Claim) (*Result, error) {
	if !g.breaker.Allow(g.now()) {
		return nil, ErrCircuitOpen
	}
	res, err := g.next.Verify(ctx, claim)
	if err != nil || (res != nil && !res.Success && Classify(res.Error).Retryable()) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.Warn("nin oracle circuit opened", zap.String("breaker", g.breaker.Name()))
		}
		return res, err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.Info("nin oracle circuit closed", zap.String("breaker", g.breaker.Name()))
	}
	return res, nil
}
