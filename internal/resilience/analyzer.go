package resilience

import (
	"context"

	"github.com/korralabs/recbooth/pkg/analyzer"
)

// GuardedAnalyzer wraps an [analyzer.Analyzer] with a [CircuitBreaker].
// While the breaker is open, Analyze returns [ErrCircuitOpen] immediately;
// the session controller records such takes with the error verdict and the
// operator keeps working.
type GuardedAnalyzer struct {
	inner   analyzer.Analyzer
	breaker *CircuitBreaker
}

// GuardAnalyzer wraps a with a breaker built from cfg. An empty cfg.Name
// defaults to "analyzer".
func GuardAnalyzer(a analyzer.Analyzer, cfg CircuitBreakerConfig) *GuardedAnalyzer {
	if cfg.Name == "" {
		cfg.Name = "analyzer"
	}
	return &GuardedAnalyzer{
		inner:   a,
		breaker: NewCircuitBreaker(cfg),
	}
}

// Analyze implements [analyzer.Analyzer].
func (g *GuardedAnalyzer) Analyze(ctx context.Context, wav []byte) (analyzer.Report, error) {
	var rep analyzer.Report
	err := g.breaker.Execute(func() error {
		var err error
		rep, err = g.inner.Analyze(ctx, wav)
		return err
	})
	if err != nil {
		return analyzer.Report{}, err
	}
	return rep, nil
}

// State reports the breaker's current state, for readiness reporting.
func (g *GuardedAnalyzer) State() State {
	return g.breaker.State()
}
