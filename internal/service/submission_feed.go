package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/asset-review-api/internal/dto"
)

const (
	feedSendBufferSize = 32
	feedPingInterval   = 30 * time.Second
)

// SubmissionFeed fans submission events out to live admin subscribers and,
// when configured, to other API nodes over NATS.
type SubmissionFeed interface {
	Publish(ctx context.Context, event dto.SubmissionEvent) error
	Subscribe() (<-chan dto.SubmissionEvent, func())
	ServeConnection(conn *websocket.Conn, correlationID string)
	Start(ctx context.Context)
}

type submissionFeed struct {
	mu          sync.RWMutex
	subscribers map[chan dto.SubmissionEvent]struct{}
	nats        *nats.Conn
	natsSubject string
	nodeID      string
	logger      zerolog.Logger
}

type feedEnvelope struct {
	Source string              `json:"source"`
	Event  dto.SubmissionEvent `json:"event"`
	SentAt time.Time           `json:"sent_at"`
}

// NewSubmissionFeed builds a feed. natsConn may be nil; subjectPrefix is
// suffixed with ".submissions".
func NewSubmissionFeed(natsConn *nats.Conn, subjectPrefix string, logger zerolog.Logger) SubmissionFeed {
	subject := ""
	if prefix := strings.Trim(strings.TrimSpace(subjectPrefix), "."); prefix != "" {
		subject = prefix + ".submissions"
	}

	return &submissionFeed{
		subscribers: make(map[chan dto.SubmissionEvent]struct{}),
		nats:        natsConn,
		natsSubject: subject,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "submission_feed").Logger(),
	}
}

func (f *submissionFeed) Publish(ctx context.Context, event dto.SubmissionEvent) error {
	f.broadcast(event)

	if f.nats == nil || f.natsSubject == "" {
		return nil
	}

	payload, err := json.Marshal(feedEnvelope{Source: f.nodeID, Event: event, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode submission event: %w", err)
	}
	if err := f.nats.Publish(f.natsSubject, payload); err != nil {
		return fmt.Errorf("publish submission event: %w", err)
	}
	return nil
}

// Subscribe registers a buffered listener. Events are dropped for listeners
// whose buffer is full. The returned func unregisters the listener.
func (f *submissionFeed) Subscribe() (<-chan dto.SubmissionEvent, func()) {
	ch := make(chan dto.SubmissionEvent, feedSendBufferSize)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subscribers, ch)
			f.mu.Unlock()
		})
	}
}

func (f *submissionFeed) ServeConnection(conn *websocket.Conn, correlationID string) {
	events, unsubscribe := f.Subscribe()
	defer unsubscribe()

	logger := f.logger.With().Str("correlation_id", correlationID).Logger()
	closed := make(chan struct{})

	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.Debug().Err(err).Msg("feed read loop ended")
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				logger.Debug().Err(err).Msg("feed ping failed")
				return
			}
		case <-closed:
			return
		}
	}
}

// Start relays events published by other nodes to local subscribers.
func (f *submissionFeed) Start(ctx context.Context) {
	if f.nats == nil || f.natsSubject == "" {
		return
	}

	sub, err := f.nats.Subscribe(f.natsSubject, func(msg *nats.Msg) {
		f.handleRemote(msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to nats submission subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain submission subscription")
		}
	}()
}

func (f *submissionFeed) handleRemote(data []byte) {
	var envelope feedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		f.logger.Warn().Err(err).Msg("invalid submission event")
		return
	}
	if envelope.Source == f.nodeID {
		return
	}
	f.broadcast(envelope.Event)
}

func (f *submissionFeed) broadcast(event dto.SubmissionEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
			f.logger.Warn().Uint("submission_id", event.ID).Msg("dropping submission event for slow subscriber")
		}
	}
}
