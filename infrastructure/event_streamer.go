package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sacco/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// StreamName is the JetStream stream holding every ledger event
	StreamName     = "sacco_events"
	subjectPrefix  = "sacco."
	sourceService  = "sacco"
	publishTimeout = 5 * time.Second
)

// MessagePublisher sends raw messages to a subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps an event on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// EventStreamer forwards committed events from the in-process bus to NATS
type EventStreamer struct {
	publisher MessagePublisher
	now       func() time.Time
}

func NewEventStreamer(publisher MessagePublisher) *EventStreamer {
	return &EventStreamer{publisher: publisher, now: time.Now}
}

// SubjectFor maps an event type to its NATS subject
func SubjectFor(eventType events.EventType) string {
	return subjectPrefix + string(eventType)
}

// Subjects lists every subject the streamer can publish to
func Subjects() []string {
	types := events.AllEventTypes()
	subjects := make([]string, 0, len(types))
	for _, t := range types {
		subjects = append(subjects, SubjectFor(t))
	}
	return subjects
}

// Register subscribes the streamer to every event type on the bus
func (s *EventStreamer) Register(bus *events.Bus) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := s.Publish(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to stream event to NATS")
		}
	})
}

// Publish wraps the event in an envelope and sends it
func (s *EventStreamer) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     s.now().UTC(),
		SourceService: sourceService,
		Payload:       payload,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	subject := SubjectFor(event.Type())
	if err := s.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Streamed event to NATS")
	return nil
}
