package delivery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type WorkerOptions struct {
	PollInterval      time.Duration
	BatchSize         int
	Lease             time.Duration
	MaxAttempts       int
	ObserveDepthEvery time.Duration
	Logger            *logrus.Logger
}

func (o *WorkerOptions) setDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.Lease <= 0 {
		o.Lease = 5 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.ObserveDepthEvery <= 0 {
		o.ObserveDepthEvery = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
}

// Worker polls the outbox on an interval, processing oldest-first batches.
// A full batch triggers an immediate re-poll so a backlog drains at send
// speed rather than poll speed.
type Worker struct {
	processor *Processor
	opts      WorkerOptions
}

func NewWorker(processor *Processor, opts WorkerOptions) *Worker {
	opts.setDefaults()
	return &Worker{processor: processor, opts: opts}
}

func (w *Worker) batchOptions() BatchOptions {
	return BatchOptions{
		MaxItems:    w.opts.BatchSize,
		Lease:       w.opts.Lease,
		MaxAttempts: w.opts.MaxAttempts,
		NewestFirst: false,
	}
}

// Run blocks until ctx is canceled. Cycle errors are logged and the loop
// waits for the next tick; a dead database should not crash the process.
func (w *Worker) Run(ctx context.Context) error {
	log := w.opts.Logger
	log.WithFields(logrus.Fields{
		"poll_interval": w.opts.PollInterval,
		"batch_size":    w.opts.BatchSize,
	}).Info("notification worker started")

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	depthTicker := time.NewTicker(w.opts.ObserveDepthEvery)
	defer depthTicker.Stop()

	for {
		processed, err := w.processor.ProcessBatch(ctx, w.batchOptions())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("notification cycle failed")
		} else if processed >= w.opts.BatchSize {
			// Backlog likely remains; skip the wait.
			continue
		}

		select {
		case <-ctx.Done():
			log.Info("notification worker stopped")
			return ctx.Err()
		case <-depthTicker.C:
			if err := w.processor.ObserveDepth(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Warn("failed to observe outbox depth")
			}
		case <-ticker.C:
		}
	}
}

// RunOnce drains everything currently eligible and returns the total
// processed. Intended for cron-style invocation.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		processed, err := w.processor.ProcessBatch(ctx, w.batchOptions())
		total += processed
		if err != nil {
			return total, err
		}
		if processed < w.opts.BatchSize {
			return total, nil
		}
	}
}
