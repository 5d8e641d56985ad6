package services

import "github.com/ewilliams-labs/emotune/internal/core/domain"

const (
	// NoiseFloor is the confidence a sample must exceed to count at all.
	NoiseFloor = 0.5
	// PlaybackThreshold is the confidence a transition must exceed to start music.
	PlaybackThreshold = 0.7
	// ManualConfidence is assigned to every manual selection.
	ManualConfidence = 0.8
)

// DecisionKind is the outcome of observing a sample.
type DecisionKind int

const (
	Ignored DecisionKind = iota
	Updated
)

func (k DecisionKind) String() string {
	if k == Updated {
		return "updated"
	}
	return "ignored"
}

// Decision tells the caller what the tracker did with a sample.
// Confident is true when the sample clears the playback threshold.
type Decision struct {
	Kind       DecisionKind
	Label      domain.Emotion
	Confidence float64
	Confident  bool
	Manual     bool
}

// EmotionState is a read-only view of the tracker.
type EmotionState struct {
	Current    domain.Emotion   `json:"current"`
	Previous   domain.Emotion   `json:"previous"`
	Confidence float64          `json:"confidence"`
	History    []domain.Emotion `json:"history"`
}

// Tracker holds the current and previous emotion plus a rolling history.
// It is not safe for concurrent use; the Engine serialises access.
type Tracker struct {
	current    domain.Emotion
	previous   domain.Emotion
	confidence float64
	history    *domain.History
}

// NewTracker starts in the neutral state with an empty history.
func NewTracker() *Tracker {
	return &Tracker{
		current:  domain.Neutral,
		previous: domain.Neutral,
		history:  domain.NewHistory(domain.HistoryCapacity),
	}
}

// Observe applies an automatic sample.
func (t *Tracker) Observe(s domain.Sample) Decision {
	label := s.Label
	if !label.Valid() {
		label = domain.Neutral
	}
	if s.Confidence <= NoiseFloor {
		return Decision{Kind: Ignored, Label: label, Confidence: s.Confidence}
	}

	t.history.Append(label)

	if label == t.current {
		return Decision{Kind: Ignored, Label: label, Confidence: s.Confidence}
	}

	t.previous = t.current
	t.current = label
	t.confidence = s.Confidence
	return Decision{
		Kind:       Updated,
		Label:      label,
		Confidence: s.Confidence,
		Confident:  s.Confidence > PlaybackThreshold,
	}
}

// Override applies a manual selection. It always updates, even when the
// label matches the current emotion.
func (t *Tracker) Override(label domain.Emotion) Decision {
	if !label.Valid() {
		label = domain.Neutral
	}
	t.history.Append(label)
	if label != t.current {
		t.previous = t.current
		t.current = label
	}
	t.confidence = ManualConfidence
	return Decision{
		Kind:       Updated,
		Label:      label,
		Confidence: ManualConfidence,
		Confident:  true,
		Manual:     true,
	}
}

// State returns a copy of the tracker's state.
func (t *Tracker) State() EmotionState {
	return EmotionState{
		Current:    t.current,
		Previous:   t.previous,
		Confidence: t.confidence,
		History:    t.history.Labels(),
	}
}
