package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/jordan-public/circuit-breaker-token/internal/event"
)

// Publisher fans committed events out to NATS JetStream for downstream
// consumers (risk dashboards, liquidation bots). Publishing is best-effort:
// the event log in Postgres is the source of truth, so a failed publish is
// logged and skipped, never retried at the expense of the engine.
type Publisher struct {
	js        jetstream.JetStream
	prefix    string
	inputChan <-chan event.Envelope
}

// wireEvent is the outbound JSON wrapper around an envelope.
type wireEvent struct {
	Sequence  int64           `json:"sequence"`
	Tick      int64           `json:"tick"`
	EventType string          `json:"event_type"`
	Principal string          `json:"principal"`
	Payload   json.RawMessage `json:"payload"`
	StateHash []byte          `json:"state_hash"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewPublisher(js jetstream.JetStream, prefix string, inputChan <-chan event.Envelope) *Publisher {
	return &Publisher{
		js:        js,
		prefix:    prefix,
		inputChan: inputChan,
	}
}

// Run drains the publish channel until ctx is cancelled or the channel closes.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case env, ok := <-p.inputChan:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, env); err != nil {
				log.Printf("WARN: outbound publish failed seq=%d: %v", env.Sequence, err)
			}
		}
	}
}

// publish sends one event to {prefix}.events.{event_type}.
func (p *Publisher) publish(ctx context.Context, env event.Envelope) error {
	data, err := json.Marshal(wireEvent{
		Sequence:  env.Sequence,
		Tick:      env.Tick,
		EventType: env.Type.String(),
		Principal: env.Principal.String(),
		Payload:   env.Payload,
		StateHash: env.StateHash[:],
		Timestamp: env.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.events.%s", p.prefix, env.Type)
	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureEventStream creates the outbound events stream if it doesn't exist.
func EnsureEventStream(ctx context.Context, js jetstream.JetStream, prefix string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "CBT_EVENTS",
		Subjects:  []string{prefix + ".events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create events stream: %w", err)
	}
	log.Println("INFO: ensured outbound stream CBT_EVENTS")
	return nil
}

// Connect establishes a NATS connection and returns a JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
