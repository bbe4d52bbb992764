package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/flujoapp/flujo/internal/platform/httpx"
)

// Worker wraps the Asynq server and the nightly scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts  asynq.RedisClientOpt
	Logger     *slog.Logger
	Warmup     *BaselineWarmupJob
	WarmupCron string
}

// NewWorker constructs a Worker instance. When WarmupCron is set, the
// warmup task is also registered on a scheduler so the cache is refreshed
// overnight without an explicit enqueue.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	if cfg.Warmup != nil {
		mux.HandleFunc(TaskBaselineWarmup, cfg.Warmup.Handle)
	}

	var scheduler *asynq.Scheduler
	if cfg.WarmupCron != "" {
		task, err := NewBaselineWarmupTask(BaselineWarmupPayload{})
		if err != nil {
			return nil, err
		}
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		if _, err := scheduler.Register(cfg.WarmupCron, task, asynq.Queue(QueueDefault)); err != nil {
			return nil, err
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueBaselineWarmup enqueues a baseline warmup task.
func (c *Client) EnqueueBaselineWarmup(ctx context.Context, payload BaselineWarmupPayload) (*asynq.TaskInfo, error) {
	task, err := NewBaselineWarmupTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// WarmupEnqueuer submits warmup tasks to the queue. *Client implements it.
type WarmupEnqueuer interface {
	EnqueueBaselineWarmup(ctx context.Context, payload BaselineWarmupPayload) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability and manual triggers.
type Handler struct {
	inspector *asynq.Inspector
	enqueuer  WarmupEnqueuer
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, enqueuer WarmupEnqueuer, logger *slog.Logger) *Handler {
	return &Handler{inspector: inspector, enqueuer: enqueuer, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Post("/warmup", h.enqueueWarmup)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := queueHealth{Queue: QueueDefault}
	if h.inspector != nil {
		info, err := h.inspector.GetQueueInfo(QueueDefault)
		if err != nil {
			h.logger.Warn("jobs health", slog.Any("error", err))
			httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Unavailable", "queue inspection failed")
			return
		}
		if info != nil {
			resp.Queue = info.Queue
			resp.Pending = int(info.Pending)
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type warmupAccepted struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// enqueueWarmup triggers a baseline warmup out of schedule, for example after
// a bulk data correction. An empty body uses the default window.
func (h *Handler) enqueueWarmup(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Unavailable", "queue client not configured")
		return
	}
	var payload BaselineWarmupPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if payload.MonthsBack < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "months_back must not be negative")
		return
	}
	info, err := h.enqueuer.EnqueueBaselineWarmup(r.Context(), payload)
	if err != nil {
		h.logger.Error("enqueue warmup", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Jobs Unavailable", "could not enqueue warmup")
		return
	}
	httpx.JSON(w, http.StatusAccepted, warmupAccepted{TaskID: info.ID, Queue: info.Queue})
}
