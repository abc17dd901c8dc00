package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/hiresense/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(runID uuid.UUID)
}

type worker struct {
	runRepo      repositories.MatchRunRepository
	runService   MatchRunService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
	log          *zap.Logger
}

func NewWorker(
	runRepo repositories.MatchRunRepository,
	runService MatchRunService,
	concurrency int,
	pollInterval time.Duration,
	log *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		runRepo:      runRepo,
		runService:   runService,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		log:          log,
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("🚀 Starting worker", zap.Int("concurrency", w.concurrency))

	// A run still processing at startup lost its worker to a restart
	if n, err := w.runRepo.ResetProcessing(); err != nil {
		w.log.Warn("⚠️  Failed to re-queue interrupted runs", zap.Error(err))
	} else if n > 0 {
		w.log.Info("♻️  Re-queued interrupted runs", zap.Int64("count", n))
	}

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	// Runs queued before a restart are picked up by the poller
	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("✅ Worker stopped")
	})
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(runID uuid.UUID) {
	select {
	case w.jobQueue <- runID:
		w.log.Info("📥 Job enqueued", zap.Stringer("run_id", runID))
	case <-w.stopChan:
		w.log.Warn("⚠️  Worker stopped, cannot enqueue job", zap.Stringer("run_id", runID))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("👷 Worker stopped", zap.Int("worker", workerID))
			return
		case <-ctx.Done():
			return
		case runID := <-w.jobQueue:
			if err := w.runService.ProcessRun(ctx, runID); err != nil {
				w.log.Error("❌ Failed to process job",
					zap.Int("worker", workerID),
					zap.Stringer("run_id", runID),
					zap.Error(err),
				)
			}
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pendingJobs, err := w.runRepo.FindPendingJobs(10)
			if err != nil {
				w.log.Warn("⚠️  Failed to fetch pending jobs", zap.Error(err))
				continue
			}

			if len(pendingJobs) > 0 {
				w.log.Info("📋 Found pending jobs", zap.Int("count", len(pendingJobs)))
			}

			for _, job := range pendingJobs {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
