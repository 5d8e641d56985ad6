// Package mqtt publishes mood and now-playing changes to an MQTT broker so
// other systems (lights, dashboards) can follow along.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/emotune/internal/core/domain"
	"github.com/ewilliams-labs/emotune/internal/core/services"
)

const publishTimeout = 2 * time.Second

// Options configures the broker connection and topics.
type Options struct {
	Broker   string // host:port
	ClientID string
	Topic    string // base topic; events go to <Topic>/emotion and <Topic>/track
	QoS      byte
}

// client is the part of paho.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// EmotionEvent is published (retained) whenever the current emotion changes.
type EmotionEvent struct {
	SessionID  string         `json:"session_id"`
	Emotion    domain.Emotion `json:"emotion"`
	Previous   domain.Emotion `json:"previous"`
	Confidence float64        `json:"confidence"`
	At         time.Time      `json:"at"`
}

// TrackEvent is published (retained) whenever the current track changes.
type TrackEvent struct {
	SessionID string       `json:"session_id"`
	Track     domain.Track `json:"track"`
	Playing   bool         `json:"playing"`
	At        time.Time    `json:"at"`
}

// Publisher turns engine snapshots into broker messages.
type Publisher struct {
	client client
	topic  string
	qos    byte
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastMood  domain.Emotion
	lastTrack string
	inflight  sync.WaitGroup
}

// Connect dials the broker with auto-reconnect enabled.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("mqtt")

	co := paho.NewClientOptions()
	co.AddBroker("tcp://" + opts.Broker)
	co.SetClientID(opts.ClientID)
	co.SetAutoReconnect(true)
	co.SetConnectRetryInterval(2 * time.Second)
	co.SetMaxReconnectInterval(30 * time.Second)
	co.OnConnect = func(paho.Client) {
		log.Info("mqtt connection established", zap.String("broker", opts.Broker))
	}
	co.OnConnectionLost = func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost, will auto-reconnect", zap.Error(err))
	}

	c := paho.NewClient(co)
	token := c.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, fmt.Errorf("mqtt: connect: %w", ctx.Err())
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("mqtt: connect to %s: timeout", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", opts.Broker, err)
	}
	return NewPublisher(c, opts, logger), nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(c client, opts Options, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	topic := opts.Topic
	if topic == "" {
		topic = "emotune"
	}
	return &Publisher{
		client:   c,
		topic:    topic,
		qos:      opts.QoS,
		logger:   logger.Named("mqtt"),
		now:      time.Now,
		lastMood: domain.Neutral,
	}
}

// OnSnapshot is an engine subscriber. It never blocks on the broker.
func (p *Publisher) OnSnapshot(s services.Snapshot) {
	var track domain.Track
	hasTrack := s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Tracks)
	if hasTrack {
		track = s.Tracks[s.CurrentIndex]
	}

	p.mu.Lock()
	moodChanged := s.Emotion.Current != p.lastMood
	p.lastMood = s.Emotion.Current
	trackChanged := hasTrack && track.ID != p.lastTrack
	if hasTrack {
		p.lastTrack = track.ID
	} else {
		p.lastTrack = ""
	}
	p.mu.Unlock()

	at := p.now()
	if moodChanged {
		p.publish("emotion", EmotionEvent{
			SessionID:  s.SessionID,
			Emotion:    s.Emotion.Current,
			Previous:   s.Emotion.Previous,
			Confidence: s.Emotion.Confidence,
			At:         at,
		})
	}
	if trackChanged {
		p.publish("track", TrackEvent{SessionID: s.SessionID, Track: track, Playing: s.IsPlaying, At: at})
	}
}

func (p *Publisher) publish(suffix string, event any) {
	topic := p.topic + "/" + suffix
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("topic", topic), zap.Error(err))
		return
	}

	token := p.client.Publish(topic, p.qos, true, payload)
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if !token.WaitTimeout(publishTimeout) {
			p.logger.Warn("publish timeout", zap.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("publish failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		p.logger.Debug("event published", zap.String("topic", topic), zap.Int("size", len(payload)))
	}()
}

// Close waits for pending publishes and disconnects.
func (p *Publisher) Close() error {
	p.inflight.Wait()
	p.client.Disconnect(250)
	return nil
}
