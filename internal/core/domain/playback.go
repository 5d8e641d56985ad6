package domain

// PlaybackState is the current track list and cursor.
// CurrentIndex is always a valid index when Tracks is non-empty, else 0.
type PlaybackState struct {
	Tracks       []Track
	CurrentIndex int
	IsPlaying    bool
}

// Replace swaps in a new track list and rewinds the cursor.
func (p *PlaybackState) Replace(tracks []Track) {
	p.Tracks = append([]Track(nil), tracks...)
	p.CurrentIndex = 0
}

// Advance moves the cursor forward circularly and returns the new current track.
// ok is false when there are no tracks.
func (p *PlaybackState) Advance() (Track, bool) {
	if len(p.Tracks) == 0 {
		return Track{}, false
	}
	p.CurrentIndex = (p.CurrentIndex + 1) % len(p.Tracks)
	return p.Tracks[p.CurrentIndex], true
}

// Select points the cursor at index.
func (p *PlaybackState) Select(index int) (Track, error) {
	if index < 0 || index >= len(p.Tracks) {
		return Track{}, ErrInvalidTrackIndex
	}
	p.CurrentIndex = index
	return p.Tracks[index], nil
}

// URIs returns the URIs of every track, in order, skipping empty ones.
func (p *PlaybackState) URIs() []string {
	uris := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		if t.URI != "" {
			uris = append(uris, t.URI)
		}
	}
	return uris
}

// Clear resets to the empty state.
func (p *PlaybackState) Clear() {
	p.Tracks = nil
	p.CurrentIndex = 0
	p.IsPlaying = false
}

// Snapshot returns a copy safe to hand outside the owner.
func (p *PlaybackState) Snapshot() PlaybackState {
	return PlaybackState{
		Tracks:       append([]Track(nil), p.Tracks...),
		CurrentIndex: p.CurrentIndex,
		IsPlaying:    p.IsPlaying,
	}
}
