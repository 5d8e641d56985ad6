package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/ports"
)

// DefaultSampleInterval is the detection cadence.
const DefaultSampleInterval = 2 * time.Second

// CameraPermission mirrors the capture permission signal.
type CameraPermission string

const (
	PermissionUnknown CameraPermission = "unknown"
	PermissionGranted CameraPermission = "granted"
	PermissionDenied  CameraPermission = "denied"
)

// Sampler pulls one classification per tick from the detector.
// A single goroutine drives the ticker, so the detector is never called
// concurrently. Every Start/Stop bumps a generation counter; a sample is
// only delivered if its generation is still live.
type Sampler struct {
	frames   ports.FrameSource
	detector ports.Detector
	interval time.Duration
	sink     func(domain.Sample)
	logger   *zap.Logger
	now      func() time.Time

	mu         sync.Mutex
	gen        uint64
	running    bool
	starting   bool
	permission CameraPermission
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSampler constructs a stopped Sampler. sink receives every live sample.
func NewSampler(frames ports.FrameSource, detector ports.Detector, interval time.Duration, sink func(domain.Sample), logger *zap.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sampler{
		frames:     frames,
		detector:   detector,
		interval:   interval,
		sink:       sink,
		logger:     logger.Named("sampler"),
		now:        time.Now,
		permission: PermissionUnknown,
	}
}

// Start opens the frame source and begins sampling. Once permission has
// been denied, Start keeps failing for the rest of the process. A Start
// racing one that is still opening the source returns nil.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.permission == PermissionDenied {
		s.mu.Unlock()
		return domain.ErrPermissionDenied
	}
	if s.running || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	gen := s.gen
	s.mu.Unlock()

	err := s.frames.Open(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			s.permission = PermissionDenied
			s.logger.Warn("camera permission denied, automatic sampling disabled")
		}
		return fmt.Errorf("sampler: open frames: %w", err)
	}
	s.permission = PermissionGranted

	if s.gen != gen {
		// Stop arrived while the source was opening
		if cerr := s.frames.Close(); cerr != nil {
			s.logger.Warn("frame source close failed", zap.Error(cerr))
		}
		return nil
	}

	s.gen++
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(loopCtx, s.gen, s.done)

	s.logger.Info("detection started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the ticker and waits for the loop to exit. Any sample
// still in flight is dropped on arrival.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		if s.starting {
			s.gen++
		}
		s.mu.Unlock()
		return
	}
	s.running = false
	s.gen++
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("detection stopped")
}

// Detecting reports whether the loop is active.
func (s *Sampler) Detecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Permission returns the last known camera permission.
func (s *Sampler) Permission() CameraPermission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// Sample grabs one frame and classifies it.
func (s *Sampler) Sample(ctx context.Context) (domain.Sample, error) {
	frame, err := s.frames.Frame(ctx)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("sampler: frame: %w", err)
	}
	expressions, err := s.detector.Detect(ctx, frame)
	if err != nil {
		return domain.Sample{}, fmt.Errorf("sampler: detect: %w", err)
	}
	sample, ok := expressions.Dominant(s.now())
	if !ok {
		return domain.Sample{}, domain.ErrNoDetection
	}
	return sample, nil
}

func (s *Sampler) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := s.frames.Close(); err != nil {
			s.logger.Warn("frame source close failed", zap.Error(err))
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, gen)
		}
	}
}

func (s *Sampler) tick(ctx context.Context, gen uint64) {
	sample, err := s.Sample(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
		case errors.Is(err, domain.ErrNoDetection):
			s.logger.Debug("no face in frame")
		default:
			s.logger.Warn("sample failed", zap.Error(err))
		}
		return
	}
	s.deliver(gen, sample)
}

// deliver runs on the loop goroutine, so Stop (which waits for the loop)
// never returns while a delivery is in progress.
func (s *Sampler) deliver(gen uint64, sample domain.Sample) bool {
	s.mu.Lock()
	live := s.running && gen == s.gen
	s.mu.Unlock()
	if !live {
		s.logger.Debug("dropping stale sample", zap.String("label", sample.Label.String()))
		return false
	}
	if s.sink != nil {
		s.sink(sample)
	}
	return true
}
