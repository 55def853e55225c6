// internal/workers/credit/broadcast-credit-intent/handler.go
package broadcastcreditintent

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
)

const (
	TaskType = "broadcast-credit-intent"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, intent models.CreditIntent) (models.BroadcastResult, error)
}

// IntentStore is the per-intent working set the evaluation step reads from.
type IntentStore interface {
	GetIntent(ctx context.Context, intentID string) (*models.CreditIntent, error)
	AppendOffers(ctx context.Context, intentID string, offers ...models.CreditOffer) error
}

type AuditStore interface {
	SaveBroadcast(ctx context.Context, result models.BroadcastResult) error
}

type Handler struct {
	config      *Config
	broadcaster Broadcaster
	intents     IntentStore
	audit       AuditStore
	errors      *apperrors.ErrorHandler
	logger      logger.Logger

	recorder observability.JobRecorder
}

// NewHandler builds the handler. audit may be nil.
func NewHandler(config *Config, broadcaster Broadcaster, intents IntentStore, audit AuditStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		broadcaster: broadcaster,
		intents:     intents,
		audit:       audit,
		errors:      apperrors.NewErrorHandler(log),
		logger:      log,
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
	intent, err := h.resolveIntent(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := h.broadcaster.Broadcast(ctx, *intent)
	if err != nil {
		return nil, err
	}

	if len(result.Offers) > 0 {
		if err := h.intents.AppendOffers(ctx, intent.IntentID, result.Offers...); err != nil {
			return nil, err
		}
	}

	// the audit trail is not on the critical path
	if h.audit != nil {
		if err := h.audit.SaveBroadcast(ctx, result); err != nil {
			h.logger.Warn("failed to record broadcast", map[string]interface{}{
				"intentId": intent.IntentID,
				"error":    err.Error(),
			})
		}
	}

	return &Output{
		IntentID:   intent.IntentID,
		OfferCount: len(result.Offers),
		BanksAsked: result.BanksAsked,
		Offers:     result.Offers,
		Failures:   result.Failures,
	}, nil
}

func (h *Handler) resolveIntent(ctx context.Context, input *Input) (*models.CreditIntent, error) {
	if input.Intent != nil {
		return input.Intent, nil
	}
	if input.IntentID == "" {
		return nil, apperrors.NewIntentNotFoundError("")
	}

	intent, err := h.intents.GetIntent(ctx, input.IntentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, apperrors.NewIntentNotFoundError(input.IntentID)
	}
	return intent, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
