// Package broadcast fans one credit intent out to every eligible bank and
// collects whatever offers come back.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"

	"credit-marketplace/internal/common/config"
	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/metrics"
	"credit-marketplace/internal/common/observability"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/pricing"
	"credit-marketplace/pkg/registry"
)

const DefaultBankTimeout = 30 * time.Second

type Coordinator struct {
	discovery      Discovery
	client         BankClient
	timeout        time.Duration
	maxConcurrency int
	logger         logger.Logger
	obs            *observability.Observability
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObservability traces broadcasts through obs instead of the global tracer.
func WithObservability(obs *observability.Observability) Option {
	return func(c *Coordinator) { c.obs = obs }
}

func NewCoordinator(discovery Discovery, client BankClient, cfg config.BroadcastConfig, log logger.Logger, opts ...Option) *Coordinator {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = DefaultBankTimeout
	}
	c := &Coordinator{
		discovery:      discovery,
		client:         client,
		timeout:        timeout,
		maxConcurrency: cfg.MaxConcurrency,
		logger:         log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Broadcast asks every eligible bank for an offer and waits for all of them
// to answer or time out. Per-bank failures are recorded in the result, never
// returned; only discovery failure is an error.
//
// Bank calls run on contexts detached from ctx and bounded by the per-bank
// timeout, so abandoning ctx does not cancel calls already in flight.
func (c *Coordinator) Broadcast(ctx context.Context, intent models.CreditIntent) (models.BroadcastResult, error) {
	ctx, span := c.obs.StartSpan(ctx, "broadcast",
		attribute.String("intent_id", intent.IntentID),
		attribute.Float64("amount", intent.Amount),
	)
	defer span.End()

	start := time.Now()
	result := models.BroadcastResult{
		IntentID: intent.IntentID,
		Offers:   []models.CreditOffer{},
		Failures: []models.BankFailure{},
	}

	banks, err := c.discovery.Discover(ctx, registry.RoleBank, intent.Amount)
	if err != nil {
		c.logger.Error("bank discovery failed", map[string]interface{}{
			"intentId": intent.IntentID,
			"error":    err.Error(),
		})
		return result, apperrors.NewDiscoveryFailedError(err)
	}
	result.BanksAsked = len(banks)

	var mu sync.Mutex
	p := pool.New()
	if c.maxConcurrency > 0 {
		p = p.WithMaxGoroutines(c.maxConcurrency)
	}

	detached := context.WithoutCancel(ctx)
	for _, bank := range banks {
		bank := bank
		p.Go(func() {
			o, failure := c.requestOne(detached, bank, intent)

			mu.Lock()
			defer mu.Unlock()
			if failure != nil {
				result.Failures = append(result.Failures, *failure)
				return
			}
			result.Offers = append(result.Offers, *o)
		})
	}
	p.Wait()

	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())
	metrics.BroadcastOffers.Observe(float64(len(result.Offers)))
	span.SetAttributes(
		attribute.Int("banks", len(banks)),
		attribute.Int("offers", len(result.Offers)),
	)

	c.logger.Info(fmt.Sprintf("Received %d offers from %d banks", len(result.Offers), len(banks)), map[string]interface{}{
		"intentId":   intent.IntentID,
		"failures":   len(result.Failures),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return result, nil
}

func (c *Coordinator) requestOne(parent context.Context, bank models.BankConfig, intent models.CreditIntent) (*models.CreditOffer, *models.BankFailure) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	ctx, span := c.obs.StartSpan(ctx, "broadcast.bank", attribute.String("bank_id", bank.BankID))
	defer span.End()

	o, err := c.client.RequestOffer(ctx, bank, intent)
	if err == nil {
		if problem := checkOffer(o, bank, intent); problem != "" {
			err = fmt.Errorf("%w: %s", ErrMalformedOffer, problem)
		}
	}
	if err != nil {
		failure := &models.BankFailure{
			BankID:  bank.BankID,
			Reason:  classify(ctx, err),
			Message: err.Error(),
		}
		metrics.OfferFailures.WithLabelValues(bank.BankID, string(failure.Reason)).Inc()
		span.SetAttributes(attribute.String("failure", string(failure.Reason)))
		c.logger.Warn("bank produced no offer", map[string]interface{}{
			"intentId": intent.IntentID,
			"bankId":   bank.BankID,
			"reason":   failure.Reason,
			"error":    err.Error(),
		})
		return nil, failure
	}
	return o, nil
}

// checkOffer returns a description of the first invariant o violates.
func checkOffer(o *models.CreditOffer, bank models.BankConfig, intent models.CreditIntent) string {
	switch {
	case o == nil:
		return "no offer returned"
	case !pricing.ValidRate(o.CarbonAdjustedRate):
		return fmt.Sprintf("carbon_adjusted_rate %v outside (0, %.0f]", o.CarbonAdjustedRate, pricing.MaxRate)
	case o.IntentID != "" && o.IntentID != intent.IntentID:
		return fmt.Sprintf("offer is for intent %s", o.IntentID)
	case o.BankID != "" && o.BankID != bank.BankID:
		return fmt.Sprintf("offer is from bank %s", o.BankID)
	case o.ApprovedAmount > intent.Amount:
		return fmt.Sprintf("approved amount %.2f exceeds requested %.2f", o.ApprovedAmount, intent.Amount)
	}
	return ""
}

func classify(ctx context.Context, err error) models.FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, ErrOfferDeclined):
		return models.FailureDeclined
	case errors.Is(err, ErrMalformedOffer):
		return models.FailureMalformed
	}
	return models.FailureUnavailable
}
