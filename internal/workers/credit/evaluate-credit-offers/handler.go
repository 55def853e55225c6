// internal/workers/credit/evaluate-credit-offers/handler.go
package evaluatecreditoffers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/metrics"
	"credit-marketplace/internal/common/observability"
	"credit-marketplace/internal/models"
	"credit-marketplace/internal/notify"
	"credit-marketplace/internal/store"
)

const (
	TaskType = "evaluate-credit-offers"
)

type OfferEvaluator interface {
	Mode() models.ScoringMode
	Evaluate(ctx context.Context, offers []models.CreditOffer, intent *models.CreditIntent) []models.OfferEvaluation
	EvaluateForIntent(ctx context.Context, intentID string) ([]models.OfferEvaluation, error)
}

type IntentStore interface {
	GetIntent(ctx context.Context, intentID string) (*models.CreditIntent, error)
	SetStatus(ctx context.Context, intentID, status string) error
}

type AuditStore interface {
	SaveEvaluations(ctx context.Context, intentID string, evaluations []models.OfferEvaluation) error
}

type Notifier interface {
	NotifyOffersReady(ctx context.Context, msg notify.OffersReady) (notify.Result, error)
}

type Handler struct {
	config    *Config
	evaluator OfferEvaluator
	intents   IntentStore
	audit     AuditStore
	notifier  Notifier
	errors    *apperrors.ErrorHandler
	logger    logger.Logger

	recorder observability.JobRecorder
}

// Dependencies groups the optional collaborators; any of them may be nil.
type Dependencies struct {
	Intents  IntentStore
	Audit    AuditStore
	Notifier Notifier
}

func NewHandler(config *Config, evaluator OfferEvaluator, deps Dependencies, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		evaluator: evaluator,
		intents:   deps.Intents,
		audit:     deps.Audit,
		notifier:  deps.Notifier,
		errors:    apperrors.NewErrorHandler(log),
		logger:    log,
	}
}

// WithRecorder reports job outcomes to r in addition to the Prometheus
// counters.
func (h *Handler) WithRecorder(r observability.JobRecorder) *Handler {
	h.recorder = r
	return h
}

func (h *Handler) record(ctx context.Context, status string, start time.Time) {
	if h.recorder == nil {
		return
	}
	h.recorder.RecordJobProcessed(ctx, TaskType, status)
	h.recorder.RecordJobDuration(ctx, TaskType, time.Since(start), status)
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	status := "failed"
	defer func() { h.record(ctx, status, start) }()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewInputParseError(err))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	status = "completed"
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.IntentID == "" && input.Intent != nil {
		input.IntentID = input.Intent.IntentID
	}
	if input.IntentID == "" {
		return nil, apperrors.NewIntentNotFoundError("")
	}

	intent := input.Intent
	cached := false
	if intent == nil && h.intents != nil {
		found, err := h.intents.GetIntent(ctx, input.IntentID)
		if err != nil {
			return nil, err
		}
		intent, cached = found, found != nil
	}

	var evaluations []models.OfferEvaluation
	if len(input.Offers) > 0 {
		evaluations = h.evaluator.Evaluate(ctx, input.Offers, intent)
	} else {
		var err error
		evaluations, err = h.evaluator.EvaluateForIntent(ctx, input.IntentID)
		if err != nil {
			return nil, err
		}
	}

	output := &Output{
		IntentID:    input.IntentID,
		Evaluations: evaluations,
		OfferCount:  len(evaluations),
		ScoringMode: h.evaluator.Mode(),
	}
	if len(evaluations) > 0 {
		best := evaluations[0]
		output.BestOfferID = best.OfferID
		output.BestBankID = best.BankID
		output.Recommendation = best.Recommendation
		output.ScoringMode = best.ScoringMode
	}

	h.logger.Info("offers evaluated", map[string]interface{}{
		"intentId":       input.IntentID,
		"offerCount":     output.OfferCount,
		"bestOfferId":    output.BestOfferID,
		"recommendation": output.Recommendation,
		"scoringMode":    output.ScoringMode,
	})

	if h.audit != nil && len(evaluations) > 0 {
		if err := h.audit.SaveEvaluations(ctx, input.IntentID, evaluations); err != nil {
			h.logger.Warn("failed to record evaluations", map[string]interface{}{
				"intentId": input.IntentID,
				"error":    err.Error(),
			})
		}
	}

	if cached {
		if err := h.intents.SetStatus(ctx, input.IntentID, store.IntentStatusEvaluated); err != nil {
			return nil, err
		}
	}

	output.Notified = h.notify(ctx, input, intent, evaluations)
	return output, nil
}

// notify reports whether any channel accepted the summary. Delivery
// failures never fail the job.
func (h *Handler) notify(ctx context.Context, input *Input, intent *models.CreditIntent, evaluations []models.OfferEvaluation) bool {
	if h.notifier == nil {
		return false
	}

	msg := notify.OffersReady{
		IntentID:     input.IntentID,
		ContactEmail: input.ContactEmail,
		OfferCount:   len(evaluations),
		BanksAsked:   input.BanksAsked,
		Ranked:       evaluations,
	}
	if intent != nil {
		msg.CompanyID = intent.CompanyID
		msg.CompanyName = intent.CompanyName
	}
	if len(evaluations) > 0 {
		msg.Best = &evaluations[0]
	}

	result, err := h.notifier.NotifyOffersReady(ctx, msg)
	if err != nil {
		h.logger.Warn("offers-ready notification failed", map[string]interface{}{
			"intentId": input.IntentID,
			"error":    err.Error(),
		})
		return false
	}
	return result.MessageID != "" || result.Emailed
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
