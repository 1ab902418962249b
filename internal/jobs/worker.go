package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/apperror"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/authz"
	"github.com/hibiken/asynq"
)

// Worker wraps the asynq server that runs payroll tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Queue       string
	Concurrency int
	Logger      *slog.Logger
	Generate    *GenerateJob
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Generate == nil {
		return nil, errors.New("worker: generate job is required")
	}
	if cfg.Queue == "" {
		cfg.Queue = QueueDefault
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	logger := cfg.Logger
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{cfg.Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.ErrorContext(ctx, "task failed", slog.String("type", task.Type()), slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskGeneratePayroll, cfg.Generate.Handle)

	return &Worker{server: srv, mux: mux, logger: logger}, nil
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// Client submits payroll tasks to the queue.
type Client struct {
	client     *asynq.Client
	queue      string
	authorizer authz.Authorizer
}

func NewClient(redisOpts asynq.RedisClientOpt, queue string, authorizer authz.Authorizer) *Client {
	return &Client{client: asynq.NewClient(redisOpts), queue: queue, authorizer: authorizer}
}

// EnqueueGenerate queues a generate batch for the actor in ctx and returns the task id.
func (c *Client) EnqueueGenerate(ctx context.Context, req payroll.GenerateRequest) (string, error) {
	actor, err := user.ActorFromContext(ctx)
	if err != nil {
		return "", err
	}
	if err := c.authorizer.Authorize(actor, user.PermissionPayrollGenerate); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	task, err := NewGenerateTask(actor, req, c.queue)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", apperror.Conflict(apperror.ConflictScopeBusy, "an identical generate task is already queued")
	}
	if err != nil {
		return "", fmt.Errorf("failed to enqueue generate task: %w", err)
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
