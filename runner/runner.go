// Package runner executes claimed evaluations: it provisions a browser
// session per run, hands it to the traversal engine, and persists the
// outcome. A worker pool drains the pending queue on notification.
package runner

import (
	"context"
	"errors"
	"time"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/evaluation"
	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/traversal"
)

// DefaultRunTimeout bounds a single evaluation run end to end.
const DefaultRunTimeout = 10 * time.Minute

// Runner executes one evaluation at a time against a fresh browser session.
type Runner struct {
	factory browser.Factory
	store   evaluation.Store
	engine  *traversal.Engine
	logger  logger.Logger

	// DefaultTimeout bounds runs whose config carries no timeout of its
	// own. Zero falls back to DefaultRunTimeout.
	DefaultTimeout time.Duration
}

// NewRunner creates a runner.
func NewRunner(factory browser.Factory, store evaluation.Store, engine *traversal.Engine, log logger.Logger) *Runner {
	return &Runner{
		factory: factory,
		store:   store,
		engine:  engine,
		logger:  log,
	}
}

// Run executes an already-claimed evaluation and persists the result. The
// outcome, including initialization failures, always lands on the stored
// record; the returned error reports persistence problems only.
func (r *Runner) Run(ctx context.Context, e *evaluation.Evaluation) error {
	timeout := r.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	if e.Config.RunTimeoutSec > 0 {
		timeout = time.Duration(e.Config.RunTimeoutSec) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := r.factory.NewSession(runCtx, browser.ViewportByName(e.Config.Viewport))
	if err != nil {
		r.logger.Error(ctx, "browser session creation failed", map[string]interface{}{
			"evaluation_id": e.ID.String(),
			"error":         err.Error(),
		})
		if err := e.FailInitialization(err); err != nil {
			return err
		}
		return r.store.Save(ctx, e)
	}
	defer func() {
		if err := session.Close(context.Background()); err != nil {
			r.logger.Warn(ctx, "browser session close failed", map[string]interface{}{
				"evaluation_id": e.ID.String(),
				"error":         err.Error(),
			})
		}
	}()

	if err := r.engine.Run(runCtx, session, e); err != nil {
		return err
	}

	// Persist with the parent context: the run timeout must not be able to
	// discard a finished audit trail.
	return r.store.Save(ctx, e)
}

// WorkerPool manages a pool of goroutines that process evaluations from the
// store. Workers are notified via a channel when new evaluations are queued,
// and each worker atomically claims runs to prevent double-processing.
type WorkerPool struct {
	Work       chan struct{}
	maxWorkers int
	store      evaluation.Store
	runner     *Runner
	logger     logger.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(maxWorkers int, store evaluation.Store, runner *Runner, log logger.Logger) *WorkerPool {
	return &WorkerPool{
		Work:       make(chan struct{}, maxWorkers),
		maxWorkers: maxWorkers,
		store:      store,
		runner:     runner,
		logger:     log,
	}
}

// Start spawns worker goroutines that listen for queue notifications.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info(ctx, "starting worker pool", map[string]interface{}{
		"max_workers": p.maxWorkers,
	})
	for i := 0; i < p.maxWorkers; i++ {
		go p.worker(ctx, i)
	}
}

// Notify wakes a worker. Safe to call from request handlers; never blocks.
func (p *WorkerPool) Notify() {
	select {
	case p.Work <- struct{}{}:
	default:
	}
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	p.logger.Info(ctx, "worker started", map[string]interface{}{
		"worker_id": id,
	})
	for {
		select {
		case <-p.Work:
			// Drain all pending evaluations before going back to wait.
			for {
				e, err := p.store.ClaimNextPending(ctx)
				if err != nil {
					if !errors.Is(err, evaluation.ErrNoPendingRuns) {
						p.logger.Error(ctx, "worker failed to claim evaluation", map[string]interface{}{
							"worker_id": id,
							"error":     err.Error(),
						})
					}
					break
				}
				p.logger.Info(ctx, "worker processing evaluation", map[string]interface{}{
					"worker_id":     id,
					"evaluation_id": e.ID.String(),
				})
				if err := p.runner.Run(ctx, e); err != nil {
					p.logger.Error(ctx, "worker run failed", map[string]interface{}{
						"worker_id":     id,
						"evaluation_id": e.ID.String(),
						"error":         err.Error(),
					})
				}
			}
		case <-ctx.Done():
			p.logger.Info(ctx, "worker stopping", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}
