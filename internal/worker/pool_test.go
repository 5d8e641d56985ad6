package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	energy  map[string]float64
	updated chan string
	err     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{energy: map[string]float64{}, updated: make(chan string, 8)}
}

func (r *fakeRepo) SaveTracks(ctx context.Context, tracks []domain.Track) error { return nil }

func (r *fakeRepo) GetTrack(ctx context.Context, id string) (domain.Track, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.energy[id]
	if !ok {
		return domain.Track{}, domain.ErrNotFound
	}
	return domain.Track{ID: id, Energy: e}, nil
}

func (r *fakeRepo) UpdateTrackEnergy(ctx context.Context, id string, energy float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.energy[id] = energy
	r.updated <- id
	return nil
}

func stubAnalyzer(t *testing.T, fn func(ctx context.Context, url string) (float64, error)) {
	t.Helper()
	orig := AnalyzePreviewFunc
	AnalyzePreviewFunc = fn
	t.Cleanup(func() { AnalyzePreviewFunc = orig })
}

func TestPool_ProcessesQueuedTracks(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	stubAnalyzer(t, func(ctx context.Context, url string) (float64, error) {
		mu.Lock()
		seen = append(seen, url)
		mu.Unlock()
		if url == "http://preview/bad.mp3" {
			return 0, errors.New("decode failed")
		}
		return 0.42, nil
	})

	repo := newFakeRepo()
	pool := NewPool(repo, 8, nil)
	pool.Start(2)

	pool.Enqueue(domain.Track{ID: "t1", PreviewURL: "http://preview/t1.mp3"})
	pool.Enqueue(domain.Track{ID: "t2", PreviewURL: "http://preview/bad.mp3"})
	pool.Enqueue(domain.Track{ID: "t3"})
	pool.Stop()

	if got, err := repo.GetTrack(context.Background(), "t1"); err != nil || got.Energy != 0.42 {
		t.Fatalf("t1: got %+v, %v", got, err)
	}
	if _, err := repo.GetTrack(context.Background(), "t2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("failed analysis must not store energy")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 {
		t.Fatalf("tracks without a preview must not be analyzed, analyzer saw %v", seen)
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(newFakeRepo(), 1, nil)
	pool.Start(1)
	pool.Stop()
	pool.Stop()

	if pool.Submit(Job{TrackID: "late", PreviewURL: "http://x"}) {
		t.Fatalf("submit after stop should be rejected")
	}
}

func TestPool_DropsWhenFull(t *testing.T) {
	pool := NewPool(newFakeRepo(), 1, nil)
	// not started: nothing drains the queue
	if !pool.Submit(Job{TrackID: "a"}) {
		t.Fatalf("first submit should fit")
	}
	if pool.Submit(Job{TrackID: "b"}) {
		t.Fatalf("second submit should be dropped")
	}
}
