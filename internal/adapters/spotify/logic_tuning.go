package spotify

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
)

// tuning maps an emotion onto recommendation query attributes.
type tuning struct {
	attrs  map[string]float64
	genres []string
}

var emotionTuning = map[domain.Emotion]tuning{
	domain.Happy: {
		attrs:  map[string]float64{"min_valence": 0.6, "min_energy": 0.6, "target_danceability": 0.7},
		genres: []string{"happy", "pop", "dance", "summer"},
	},
	domain.Sad: {
		attrs:  map[string]float64{"max_valence": 0.4, "max_energy": 0.5, "target_acousticness": 0.7},
		genres: []string{"sad", "acoustic", "piano", "rain"},
	},
	domain.Angry: {
		attrs:  map[string]float64{"max_valence": 0.4, "min_energy": 0.7},
		genres: []string{"metal", "rock", "punk", "aggressive"},
	},
	domain.Relaxed: {
		attrs:  map[string]float64{"min_valence": 0.4, "max_energy": 0.4, "target_acousticness": 0.6},
		genres: []string{"chill", "ambient", "lofi", "meditation"},
	},
	domain.Surprised: {
		attrs:  map[string]float64{"min_energy": 0.6, "target_danceability": 0.6},
		genres: []string{"edm", "electronic", "party", "festival"},
	},
	domain.Fearful: {
		attrs:  map[string]float64{"max_valence": 0.3, "target_instrumentalness": 0.5},
		genres: []string{"ambient", "soundtracks", "atmospheric"},
	},
	domain.Disgusted: {
		attrs:  map[string]float64{"max_valence": 0.3, "min_energy": 0.5},
		genres: []string{"alternative", "grunge", "industrial"},
	},
	domain.Neutral: {
		attrs:  map[string]float64{"min_valence": 0.4, "max_valence": 0.6, "min_energy": 0.4, "max_energy": 0.6},
		genres: []string{"study", "chill", "work", "background"},
	},
}

// tuningFor returns the tuning for e, falling back to neutral.
func tuningFor(e domain.Emotion) tuning {
	if t, ok := emotionTuning[e]; ok {
		return t
	}
	return emotionTuning[domain.Neutral]
}

// recommendationQuery builds the /recommendations query. Genre seeds are
// only used when the user has no listening history to seed from.
func recommendationQuery(t tuning, s seeds, market string) url.Values {
	q := url.Values{}
	q.Set("limit", "20")
	q.Set("market", market)

	if len(s.tracks) > 0 {
		q.Set("seed_tracks", joinFirst(s.tracks, maxSeeds))
	}
	if len(s.artists) > 0 {
		q.Set("seed_artists", joinFirst(s.artists, maxSeeds))
	}
	if s.empty() {
		q.Set("seed_genres", joinFirst(t.genres, maxSeeds))
	}

	for k, v := range t.attrs {
		q.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return q
}

func joinFirst(list []string, n int) string {
	if len(list) > n {
		list = list[:n]
	}
	return strings.Join(list, ",")
}
