// Package guidance orchestrates the parent-facing answer flow: input
// policy, provider fallback, tolerant parsing, and the safety
// post-processing every answer passes through.
package guidance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pairents/edge/engine/domain"
	"github.com/pairents/edge/pkg/metrics"
	"github.com/pairents/edge/pkg/resilience"
)

// Orchestrator runs guidance requests through the provider chain.
type Orchestrator struct {
	providers []boundProvider
	log       *slog.Logger

	calls    func(name string) *metrics.Counter
	failures func(name string) *metrics.Counter
}

type boundProvider struct {
	p       Provider
	breaker *resilience.Breaker
}

// NewOrchestrator wires providers in fallback order, each behind its own
// circuit breaker.
func NewOrchestrator(log *slog.Logger, reg *metrics.Registry, providers ...Provider) *Orchestrator {
	bound := make([]boundProvider, len(providers))
	for i, p := range providers {
		bound[i] = boundProvider{p: p, breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts)}
	}
	return &Orchestrator{
		providers: bound,
		log:       log,
		calls: func(name string) *metrics.Counter {
			return reg.Counter(metrics.WithLabels("guidance_provider_calls_total", "provider", name), "Guidance provider calls.")
		},
		failures: func(name string) *metrics.Counter {
			return reg.Counter(metrics.WithLabels("guidance_provider_failures_total", "provider", name), "Guidance provider failures.")
		},
	}
}

// Guide produces a finalized guidance envelope for in. The input policy
// runs before any provider call; providers are tried in order and the
// first completion wins. Exhausting the chain returns
// ErrUpstreamUnavailable carrying the last provider failure.
func (o *Orchestrator) Guide(ctx context.Context, in domain.GuidanceInput) (domain.GuidanceEnvelope, error) {
	if err := domain.CheckGuidanceInput(in.Text); err != nil {
		return domain.GuidanceEnvelope{}, err
	}

	prompt := buildPrompt(in)
	var lastErr error
	for _, bp := range o.providers {
		name := bp.p.Name()
		o.calls(name).Inc()

		var raw string
		err := bp.breaker.Call(ctx, func(ctx context.Context) error {
			var genErr error
			raw, genErr = bp.p.Generate(ctx, prompt)
			return genErr
		})
		if err != nil {
			o.failures(name).Inc()
			if !errors.Is(err, resilience.ErrCircuitOpen) {
				lastErr = err
			}
			o.log.Warn("guidance provider failed", "provider", name, "error", err)
			continue
		}

		env := finalize(parseCompletion(raw))
		env.Provider = name
		return env, nil
	}

	if lastErr == nil {
		lastErr = errors.New("all provider circuits open")
	}
	return domain.GuidanceEnvelope{}, fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, lastErr)
}
