package domain

import (
	"strings"
	"time"
)

// Emotion is one of the closed set of labels the tracker understands.
type Emotion string

const (
	Happy     Emotion = "happy"
	Sad       Emotion = "sad"
	Angry     Emotion = "angry"
	Surprised Emotion = "surprised"
	Neutral   Emotion = "neutral"
	Fearful   Emotion = "fearful"
	Disgusted Emotion = "disgusted"
	Relaxed   Emotion = "relaxed"
)

// Emotions lists every supported label in a stable order.
var Emotions = []Emotion{Happy, Sad, Angry, Surprised, Neutral, Fearful, Disgusted, Relaxed}

// ParseEmotion maps a raw detector or user label onto the closed set.
// Anything unrecognised becomes Neutral.
func ParseEmotion(raw string) Emotion {
	e := Emotion(strings.ToLower(strings.TrimSpace(raw)))
	if e.Valid() {
		return e
	}
	return Neutral
}

// Valid reports whether e belongs to the closed set.
func (e Emotion) Valid() bool {
	switch e {
	case Happy, Sad, Angry, Surprised, Neutral, Fearful, Disgusted, Relaxed:
		return true
	}
	return false
}

func (e Emotion) String() string {
	return string(e)
}

// Sample is a single observation of the user's emotion.
type Sample struct {
	Label      Emotion
	Confidence float64
	At         time.Time
}

// NewSample builds a Sample, normalising the label and clamping confidence to [0,1].
func NewSample(label string, confidence float64, at time.Time) Sample {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Sample{Label: ParseEmotion(label), Confidence: confidence, At: at}
}

// Expressions is the raw detector output: label to confidence.
type Expressions map[string]float64

// Dominant returns the highest-scoring expression as a Sample.
// ok is false when the map is empty.
func (x Expressions) Dominant(at time.Time) (Sample, bool) {
	if len(x) == 0 {
		return Sample{}, false
	}
	bestLabel := ""
	best := -1.0
	for label, score := range x {
		// ties resolve alphabetically so the result is deterministic
		if score > best || (score == best && label < bestLabel) {
			best = score
			bestLabel = label
		}
	}
	return NewSample(bestLabel, best, at), true
}
