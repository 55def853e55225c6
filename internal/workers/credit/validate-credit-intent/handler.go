// internal/workers/credit/validate-credit-intent/handler.go
package validatecreditintent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	apperrors "credit-marketplace/internal/common/errors"
	"credit-marketplace/internal/common/logger"
	"credit-marketplace/internal/common/metrics"
	"credit-marketplace/internal/common/observability"
	"credit-marketplace/internal/intent"
	"credit-marketplace/internal/models"
)

const (
	TaskType = "validate-credit-intent"
)

// IntentWriter stores accepted intents for the evaluation step.
type IntentWriter interface {
	PutIntent(ctx context.Context, intent models.CreditIntent) error
}

type Handler struct {
	config  *Config
	intents IntentWriter
	errors  *apperrors.ErrorHandler
	logger  logger.Logger
	nowFunc func() time.Time

	recorder observability.JobRecorder
}

// NewHandler builds the handler. intents may be nil, in which case accepted
// intents are not cached.
func NewHandler(config *Config, intents IntentWriter, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		intents: intents,
		errors:  apperrors.NewErrorHandler(log),
		logger:  log,
		nowFunc: time.Now,
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
	in := input.Intent
	if in.IntentID == "" {
		in.IntentID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = h.nowFunc().UTC()
	}

	result := intent.Validate(in)
	h.logger.Info("validation completed", map[string]interface{}{
		"intentId":   in.IntentID,
		"valid":      result.Valid,
		"errorCount": len(result.Errors),
	})

	if !result.Valid {
		if input.FailOnInvalid {
			return nil, apperrors.NewIntentValidationError(result.Errors)
		}
		return &Output{
			Valid:            false,
			ValidationErrors: result.Errors,
		}, nil
	}

	if h.intents != nil {
		if err := h.intents.PutIntent(ctx, in); err != nil {
			return nil, err
		}
	}

	return &Output{
		Valid:            true,
		ValidationErrors: []string{},
		IntentID:         in.IntentID,
		Intent:           &in,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
