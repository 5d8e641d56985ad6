package ports

import (
	"context"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// Frame is one encoded still from the video source.
type Frame struct {
	Data        []byte
	ContentType string
}

// FrameSource hands out frames on demand.
// Open returns domain.ErrPermissionDenied when capture is refused.
type FrameSource interface {
	Open(ctx context.Context) error
	Frame(ctx context.Context) (Frame, error)
	Close() error
}

// Detector classifies a frame. It returns domain.ErrNoDetection when no
// face is found.
type Detector interface {
	Detect(ctx context.Context, frame Frame) (domain.Expressions, error)
}
