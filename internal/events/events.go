package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	SubjectAttemptRecorded = "chesscoach.attempt.recorded"
	SubjectAll             = "chesscoach.>"
	sourceService          = "coach-server"
)

// Publisher fans domain events out to other services
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

// Envelope wraps every published payload
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
}

// AttemptRecorded is published after an attempt row is written
type AttemptRecorded struct {
	UserID     string    `json:"userId"`
	PuzzleID   string    `json:"puzzleId"`
	Category   string    `json:"category"`
	Solved     bool      `json:"solved"`
	SessionID  string    `json:"sessionId"`
	RecordedAt time.Time `json:"recordedAt"`
}

// NATSPublisher publishes envelopes on a core NATS connection
type NATSPublisher struct {
	nc *nats.Conn
}

// ConnectNATS dials the given servers with reconnect handling
func ConnectNATS(servers, name string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("servers", servers).Info("Connected to NATS")
	return &NATSPublisher{nc: nc}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := Encode(subject, payload)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject": subject,
		"size":    len(data),
	}).Debug("Published event")
	return nil
}

// Subscribe delivers decoded envelopes until the context ends
func (p *NATSPublisher) Subscribe(ctx context.Context, subject string, handler func(Envelope)) error {
	sub, err := p.nc.Subscribe(subject, func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			log.WithField("subject", msg.Subject).WithError(err).Warn("Dropping undecodable event")
			return
		}
		handler(env)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.nc.Close()
			return err
		}
	}
	return nil
}

// Encode builds the wire form of an event
func Encode(subject string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	env := Envelope{
		EventID:   uuid.New().String(),
		EventType: subject,
		Timestamp: time.Now().UTC(),
		Source:    sourceService,
		Payload:   body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return data, nil
}

// NoopPublisher discards events
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, subject string, payload any) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
