// internal/workers/bank/generate-credit-offer/handler.go
package generatecreditoffer

import (
	"context"
	"encoding/json"
	"errors"
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
	TaskType = "generate-credit-offer"
)

type OfferGenerator interface {
	Bank() models.BankConfig
	Generate(ctx context.Context, intent models.CreditIntent) (*models.CreditOffer, error)
}

type OfferAppender interface {
	AppendOffers(ctx context.Context, intentID string, offers ...models.CreditOffer) error
}

type Handler struct {
	config     *Config
	generators map[string]OfferGenerator
	intents    OfferAppender
	errors     *apperrors.ErrorHandler
	logger     logger.Logger

	recorder observability.JobRecorder
}

// NewHandler serves every bank in generators. intents may be nil, in which
// case offers are only returned as job variables.
func NewHandler(config *Config, generators []OfferGenerator, intents OfferAppender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	byBank := make(map[string]OfferGenerator, len(generators))
	for _, g := range generators {
		byBank[g.Bank().BankID] = g
	}
	return &Handler{
		config:     config,
		generators: byBank,
		intents:    intents,
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
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
	g, ok := h.generators[input.BankID]
	if !ok {
		return nil, apperrors.NewBankConfigMissingError(input.BankID)
	}

	offer, err := g.Generate(ctx, input.Intent)
	if err != nil {
		// a failed identity check is this bank's answer, not a job failure
		var stdErr *apperrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == apperrors.ErrCodeIdentityVerificationFailed {
			return &Output{
				BankID:        input.BankID,
				OfferStatus:   models.AssessStatusDeclined,
				DeclineReason: stdErr.Details,
			}, nil
		}
		return nil, err
	}

	if h.intents != nil {
		if err := h.intents.AppendOffers(ctx, input.Intent.IntentID, *offer); err != nil {
			return nil, err
		}
	}

	return &Output{
		BankID:      input.BankID,
		OfferStatus: models.AssessStatusSuccess,
		Offer:       offer,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
