package domain

// HistoryCapacity is the number of labels kept in an emotion history.
const HistoryCapacity = 10

// History is a bounded FIFO window of observed emotion labels.
type History struct {
	capacity int
	labels   []Emotion
}

// NewHistory creates an empty history holding at most capacity labels.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = HistoryCapacity
	}
	return &History{capacity: capacity, labels: make([]Emotion, 0, capacity)}
}

// Append adds a label, evicting the oldest entry when full.
func (h *History) Append(e Emotion) {
	if len(h.labels) == h.capacity {
		copy(h.labels, h.labels[1:])
		h.labels = h.labels[:h.capacity-1]
	}
	h.labels = append(h.labels, e)
}

// Len returns the number of stored labels.
func (h *History) Len() int {
	return len(h.labels)
}

// Labels returns a copy of the stored labels, oldest first.
func (h *History) Labels() []Emotion {
	out := make([]Emotion, len(h.labels))
	copy(out, h.labels)
	return out
}

// Reset drops every stored label.
func (h *History) Reset() {
	h.labels = h.labels[:0]
}
