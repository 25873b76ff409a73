package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// IsHealthy returns the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns detailed health information.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// RecordOutcome updates health from the outcome of one upstream exchange.
// A nil err records a success. Failures caused by the caller going away
// are not the upstream's fault and are ignored.
func (p *HTTPProvider) RecordOutcome(ctx context.Context, err error) {
	if err != nil && errors.Is(ctx.Err(), context.Canceled) {
		return
	}

	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	now := time.Now()
	p.health.LastCheck = now
	p.health.TotalRequests++

	if err == nil {
		if !p.health.IsHealthy {
			slog.Info("provider marked healthy",
				"provider", p.config.Name,
				"previous_failures", p.health.ConsecutiveFailures,
			)
		}
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = now
		return
	}

	p.health.FailedRequests++
	p.health.ConsecutiveFailures++
	p.health.LastError = err

	if p.health.IsHealthy && p.health.ConsecutiveFailures >= p.config.UnhealthyThreshold {
		p.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", p.config.Name,
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}
