// Package worker provides background processing for track-related jobs.
package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

const jobTimeout = 20 * time.Second

// Job represents a background task for track processing.
type Job struct {
	TrackID    string
	PreviewURL string
}

// Pool analyzes track previews in the background and stores the result.
// Failures are logged and never surface to playback.
type Pool struct {
	repo   ports.TrackRepository
	logger *zap.Logger
	jobs   chan Job
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a worker pool with the given queue size.
func NewPool(repo ports.TrackRepository, queueSize int, logger *zap.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{repo: repo, logger: logger.Named("worker"), jobs: make(chan Job, queueSize)}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
	p.logger.Info("worker pool started", zap.Int("workers", workers), zap.Int("queue", cap(p.jobs)))
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. Jobs are dropped when the queue is
// full or the pool has stopped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("dropping job, queue full", zap.String("track", job.TrackID))
		return false
	}
}

// Enqueue submits a preview analysis for track.
func (p *Pool) Enqueue(track domain.Track) {
	p.Submit(Job{TrackID: track.ID, PreviewURL: track.PreviewURL})
}

func (p *Pool) processJob(job Job) {
	if job.PreviewURL == "" {
		p.logger.Debug("no preview url, skipping analysis", zap.String("track", job.TrackID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	energy, err := AnalyzePreviewFunc(ctx, job.PreviewURL)
	if err != nil {
		p.logger.Warn("preview analysis failed", zap.String("track", job.TrackID), zap.Error(err))
		return
	}
	if err := p.repo.UpdateTrackEnergy(ctx, job.TrackID, energy); err != nil {
		p.logger.Warn("failed to update track", zap.String("track", job.TrackID), zap.Error(err))
		return
	}
	p.logger.Info("track analyzed", zap.String("track", job.TrackID), zap.Float64("energy", energy))
}
