package evaluation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/metrics"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/narrative"
)

const noMatchingIntent = "No matching credit intent found"

// IntentState is the company-side record of active intents and the offers
// received for them. Both methods return nil without error when nothing is
// stored.
type IntentState interface {
	GetIntent(ctx context.Context, intentID string) (*models.CreditIntent, error)
	GetOffers(ctx context.Context, intentID string) ([]models.CreditOffer, error)
}

type Evaluator struct {
	engine   ScoringEngine
	degraded ScoringEngine
	narrator narrative.Narrator
	state    IntentState
	logger   logger.Logger
	now      func() time.Time
}

// NewEvaluator builds an evaluator around engine. narrator and state are
// optional: without a narrator reasoning is templated, without state
// EvaluateForIntent is unavailable.
func NewEvaluator(engine ScoringEngine, narrator narrative.Narrator, state IntentState, log logger.Logger) *Evaluator {
	if engine == nil {
		engine = IntentAwareEngine{}
	}
	return &Evaluator{
		engine:   engine,
		degraded: IntentAgnosticEngine{},
		narrator: narrator,
		state:    state,
		logger:   log,
		now:      time.Now,
	}
}

func (e *Evaluator) Mode() models.ScoringMode {
	return e.engine.Mode()
}

// Evaluate scores every offer and returns the evaluations ranked best first.
// Offers that cannot be matched to intent are rejected with a zero score.
func (e *Evaluator) Evaluate(ctx context.Context, offers []models.CreditOffer, intent *models.CreditIntent) []models.OfferEvaluation {
	return e.evaluateWith(ctx, e.engine, offers, intent)
}

// EvaluateForIntent loads the intent and its received offers from state. A
// missing intent is not an error: its offers are scored in degraded mode.
func (e *Evaluator) EvaluateForIntent(ctx context.Context, intentID string) ([]models.OfferEvaluation, error) {
	if e.state == nil {
		return nil, fmt.Errorf("no intent state configured")
	}
	offers, err := e.state.GetOffers(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("load offers for %s: %w", intentID, err)
	}
	intent, err := e.state.GetIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("load intent %s: %w", intentID, err)
	}
	if intent == nil {
		e.logger.Warn("intent not cached, scoring offers without it", map[string]interface{}{
			"intentId":   intentID,
			"offerCount": len(offers),
		})
		return e.evaluateWith(ctx, e.degraded, offers, nil), nil
	}
	return e.evaluateWith(ctx, e.engine, offers, intent), nil
}

func (e *Evaluator) evaluateWith(ctx context.Context, engine ScoringEngine, offers []models.CreditOffer, intent *models.CreditIntent) []models.OfferEvaluation {
	now := e.now()
	evaluations := make([]models.OfferEvaluation, 0, len(offers))

	for _, offer := range offers {
		ev := models.OfferEvaluation{
			OfferID:     offer.OfferID,
			BankID:      offer.BankID,
			BankName:    offer.BankName,
			IntentID:    offer.IntentID,
			ScoringMode: engine.Mode(),
		}

		scores, ok := engine.Score(offer, intent, now)
		if !ok {
			ev.Recommendation = models.RecommendReject
			ev.Reasoning = noMatchingIntent
			e.logger.Warn("offer has no matching intent", map[string]interface{}{
				"offerId":  offer.OfferID,
				"intentId": offer.IntentID,
			})
		} else {
			ev.FinancialScore = round2(scores.Financial)
			ev.ESGScore = round2(scores.ESG)
			ev.TermsScore = round2(scores.Terms)
			ev.TotalScore = scores.Total
			ev.Recommendation = Recommend(scores.Total)
			ev.Reasoning = e.reasoning(ctx, offer, ev)
		}

		metrics.Evaluations.WithLabelValues(string(ev.Recommendation), string(ev.ScoringMode)).Inc()
		evaluations = append(evaluations, ev)
	}

	sort.SliceStable(evaluations, func(i, j int) bool {
		return evaluations[i].TotalScore > evaluations[j].TotalScore
	})
	return evaluations
}

func (e *Evaluator) reasoning(ctx context.Context, offer models.CreditOffer, ev models.OfferEvaluation) string {
	if e.narrator != nil {
		text, err := e.narrator.Generate(ctx, narrative.Request{
			Stage:  "evaluation",
			Prompt: reasoningPrompt(offer, ev),
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		metrics.NarrativeFallbacks.WithLabelValues("evaluation").Inc()
		e.logger.Debug("evaluation narrative unavailable, using template", map[string]interface{}{
			"offerId": offer.OfferID,
		})
	}
	return templateReasoning(offer, ev)
}
