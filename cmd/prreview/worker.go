package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/bkyoung/prreview/internal/config"
	"github.com/bkyoung/prreview/internal/domain"
	"github.com/bkyoung/prreview/internal/scheduler"
	"github.com/bkyoung/prreview/internal/store"
	"github.com/bkyoung/prreview/internal/usecase/orchestrate"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued reviews and post results to the forge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runWorker(cfg)
		},
	}
}

// runWorker starts one consumer goroutine per lane (C7's three
// independently-drained lanes), plus a single retry-promotion mover,
// and blocks until SIGINT/SIGTERM drains in-flight reviews.
func runWorker(cfg cfgpkg.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.store.Close()
	defer a.redisClient.Close()

	orchestrator, err := orchestrate.New(a.orchestratorDeps())
	if err != nil {
		return err
	}

	queue := scheduler.NewQueue(a.redisClient)
	visibilityTimeout := parseDurationOr(cfg.Queue.VisibilityTimeout, 10*time.Minute)
	tenantLock := scheduler.NewTenantLock(a.redisClient, visibilityTimeout)

	retryConf := scheduler.RetryConfig{
		MaxRetries:     cfg.Queue.MaxAttempts,
		InitialBackoff: parseDurationOr(cfg.Queue.BaseBackoff, time.Second),
		MaxBackoff:     parseDurationOr(cfg.Queue.MaxBackoff, 5*time.Minute),
	}
	if retryConf.MaxRetries <= 0 {
		retryConf = scheduler.DefaultRetryConfig()
	}

	costCeilingMicros := int64(cfg.Budget.HardCapUSD * 1_000_000)

	w := &worker{
		app:          a,
		orchestrator: orchestrator,
		queue:        queue,
		tenantLock:   tenantLock,
		retryConf:    retryConf,
		costCeiling:  costCeilingMicros,
	}

	var wg sync.WaitGroup
	lanes := []struct {
		lane        scheduler.Lane
		concurrency int
	}{
		{scheduler.LaneFast, orDefault(cfg.Queue.FastLaneConcurrency, 4)},
		{scheduler.LaneSlow, orDefault(cfg.Queue.SlowLaneConcurrency, 2)},
		{scheduler.LaneIndex, orDefault(cfg.Queue.IndexLaneConcurrency, 1)},
	}
	for _, l := range lanes {
		for i := 0; i < l.concurrency; i++ {
			wg.Add(1)
			go func(lane scheduler.Lane) {
				defer wg.Done()
				w.consumeLane(ctx, lane)
			}(l.lane)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.promoteRetries(ctx)
	}()

	a.logger.Info("worker started",
		slog.Int("fast_lane_concurrency", lanes[0].concurrency),
		slog.Int("slow_lane_concurrency", lanes[1].concurrency),
		slog.Int("index_lane_concurrency", lanes[2].concurrency),
	)

	<-ctx.Done()
	a.logger.Info("worker shutting down")
	wg.Wait()
	return nil
}

type worker struct {
	app          *app
	orchestrator *orchestrate.Orchestrator
	queue        *scheduler.Queue
	tenantLock   *scheduler.TenantLock
	retryConf    scheduler.RetryConfig
	costCeiling  int64
}

// consumeLane blocks on Dequeue until ctx is cancelled, processing one
// task at a time; spec.md §4.7's same-tenant serialization is enforced
// by tenantLock, not by this loop's own concurrency (several lane
// goroutines may attempt the same tenant key at once and lose the race
// harmlessly, re-queuing via Retry).
func (w *worker) consumeLane(ctx context.Context, lane scheduler.Lane) {
	const pollTimeout = 5 * time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.queue.Dequeue(ctx, lane, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.app.logger.Error("dequeue failed", slog.String("lane", string(lane)), slog.Any("error", err))
			continue
		}
		if task == nil {
			continue
		}

		w.process(ctx, *task)
	}
}

func (w *worker) process(ctx context.Context, task scheduler.Task) {
	log := w.app.logger.With(
		slog.String("tenant", task.TenantKey()),
		slog.Int64("repository_id", task.RepositoryID),
		slog.Int("pr_number", task.PRNumber),
	)

	token, acquired, err := w.tenantLock.TryAcquire(ctx, task.TenantKey())
	if err != nil {
		log.Error("tenant lock acquisition failed", slog.Any("error", err))
		w.requeue(ctx, task, "lock_error")
		return
	}
	if !acquired {
		// Another worker already holds this tenant's lock; put the task
		// back on its own lane rather than treating this as a failure.
		w.requeue(ctx, task, "tenant_busy")
		return
	}
	defer func() {
		if err := w.tenantLock.Release(context.Background(), task.TenantKey(), token); err != nil {
			log.Error("tenant lock release failed", slog.Any("error", err))
		}
	}()

	reviewID, err := w.ensureReview(ctx, task)
	if err != nil {
		log.Error("create review record failed", slog.Any("error", err))
		w.requeue(ctx, task, "store_error")
		return
	}

	target := orchestrate.ReviewTarget{
		ReviewID:       reviewID,
		InstallationID: task.InstallationID,
		RepositoryID:   task.RepositoryID,
		Owner:          task.Owner,
		Repo:           task.Repo,
		PRNumber:       task.PRNumber,
		BaseSHA:        task.BaseSHA,
		HeadSHA:        task.HeadSHA,
	}

	result, err := w.orchestrator.Run(ctx, target, w.costCeiling)
	if err != nil {
		log.Error("review failed", slog.Any("error", err))
		if scheduler.IsTransient(err) {
			w.requeue(ctx, task, "transient_failure")
		}
		if w.app.metrics != nil {
			w.app.metrics.JobsCompleted.WithLabelValues(string(task.Lane), "failed").Inc()
		}
		return
	}

	log.Info("review completed", slog.String("status", result.Status), slog.Int("findings", len(result.Findings)))
	if w.app.metrics != nil {
		w.app.metrics.JobsCompleted.WithLabelValues(string(task.Lane), "completed").Inc()
	}
}

// ensureReview returns the existing review for this exact head commit
// if one was already started (a retried delivery re-dequeuing the same
// task after a worker crash), or creates a fresh one.
func (w *worker) ensureReview(ctx context.Context, task scheduler.Task) (string, error) {
	existing, err := w.app.store.GetReviewByHead(ctx, task.RepositoryID, task.PRNumber, task.HeadSHA)
	if err == nil {
		return existing.ID, nil
	}

	now := time.Now()
	reviewID := store.NewReviewID(now, task.RepositoryID, task.PRNumber, task.HeadSHA)
	review := domain.Review{
		ID:           reviewID,
		RepositoryID: task.RepositoryID,
		PRNumber:     task.PRNumber,
		BaseSHA:      task.BaseSHA,
		HeadSHA:      task.HeadSHA,
		Status:       domain.ReviewStatusQueued,
		EnqueuedAt:   task.EnqueuedAt,
	}
	if err := w.app.store.CreateReview(ctx, review); err != nil {
		return "", err
	}
	return reviewID, nil
}

func (w *worker) requeue(ctx context.Context, task scheduler.Task, reason string) {
	if err := w.queue.Retry(ctx, task, w.retryConf, reason); err != nil {
		w.app.logger.Error("requeue failed", slog.String("reason", reason), slog.Any("error", err))
	}
	if w.app.metrics != nil {
		w.app.metrics.JobsRetried.WithLabelValues(string(task.Lane)).Inc()
	}
}

// promoteRetries periodically moves due retries back onto their origin
// lane; a single goroutine is sufficient since PromoteDueRetries already
// claims each member atomically via ZREM before re-enqueuing it.
func (w *worker) promoteRetries(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			moved, err := w.queue.PromoteDueRetries(ctx, now)
			if err != nil {
				w.app.logger.Error("promote due retries failed", slog.Any("error", err))
				continue
			}
			if moved > 0 {
				w.app.logger.Debug("promoted due retries", slog.Int("count", moved))
			}
		}
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
