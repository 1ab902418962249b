package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/validator"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is used when no queue is configured.
	QueueDefault = "payroll"
	// TaskGeneratePayroll runs a payroll generation batch in the background.
	TaskGeneratePayroll = "payroll:generate"

	uniqueFor = 10 * time.Minute
)

// GeneratePayload carries the request and the actor who queued it. The
// worker re-checks the actor's permission when the task runs.
type GeneratePayload struct {
	ActorID   string                  `json:"actor_id"`
	ActorRole string                  `json:"actor_role"`
	Request   payroll.GenerateRequest `json:"request"`
}

// NewGenerateTask builds a generate task. Identical submissions within
// uniqueFor collapse into one queued task.
func NewGenerateTask(actor user.Actor, req payroll.GenerateRequest, queue string) (*asynq.Task, error) {
	body, err := json.Marshal(GeneratePayload{ActorID: actor.ID, ActorRole: string(actor.Role), Request: req})
	if err != nil {
		return nil, fmt.Errorf("failed to encode generate payload: %w", err)
	}
	if queue == "" {
		queue = QueueDefault
	}
	return asynq.NewTask(TaskGeneratePayroll, body,
		asynq.Queue(queue),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(uniqueFor),
	), nil
}

// GenerateJob executes queued generate tasks.
type GenerateJob struct {
	service payroll.PayrollService
	logger  *slog.Logger
}

func NewGenerateJob(service payroll.PayrollService, logger *slog.Logger) *GenerateJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerateJob{service: service, logger: logger}
}

// Handle runs the batch. Errors that a retry cannot fix skip the retry queue.
func (j *GenerateJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload GeneratePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		j.logger.ErrorContext(ctx, "invalid generate payload", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	actor := user.Actor{ID: payload.ActorID, Role: user.Role(payload.ActorRole)}
	ctx = user.WithActor(ctx, actor)

	summary, err := j.service.Generate(ctx, payload.Request)
	if err != nil {
		if permanent(err) {
			j.logger.WarnContext(ctx, "payroll generate task rejected",
				slog.String("month", payload.Request.Month),
				slog.String("actor", actor.ID),
				slog.Any("error", err),
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	j.logger.InfoContext(ctx, "payroll generate task finished",
		slog.String("month", payload.Request.Month),
		slog.String("actor", actor.ID),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
	)
	return nil
}

// permanent reports errors that would fail the same way on every retry. A
// busy scope is transient and is retried.
func permanent(err error) bool {
	var ve validator.ValidationErrors
	var pe *apperror.PermissionError
	switch {
	case errors.As(err, &ve), errors.As(err, &pe):
		return true
	case errors.Is(err, user.ErrActorMissing):
		return true
	case apperror.IsConflict(err, apperror.ConflictScopeBusy):
		return false
	case apperror.IsNotFound(err):
		return true
	}
	var ce *apperror.ConflictError
	return errors.As(err, &ce)
}
