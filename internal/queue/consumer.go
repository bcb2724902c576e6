package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/outfit/internal/models"
)

// RecommendationHandler processes one decoded recommendation event.
type RecommendationHandler func(ctx context.Context, evt models.RecommendationEvent) error

type Consumer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewConsumer(natsURL string) (*Consumer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Consumer{nc: nc, js: js}, nil
}

// ConsumeRecommendations starts consuming new recommendation events (for the
// API to broadcast via WebSocket). It returns once the consumer is created;
// messages are processed in the background until ctx is done.
func (c *Consumer) ConsumeRecommendations(ctx context.Context, consumerName string, handler RecommendationHandler) error {
	stream, err := c.js.Stream(ctx, RecommendationsStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", RecommendationsStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       10 * time.Second,
		MaxDeliver:    3,
		FilterSubject: RecommendationsSubjectBase + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("fetch recommendations error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				dispatch(ctx, msg, handler)
			}
		}
	}()

	slog.Info("recommendation consumer started", "consumer", consumerName)
	return nil
}

// dispatch decodes msg and acks or naks it. Undecodable payloads are
// terminated since redelivery cannot fix them.
func dispatch(ctx context.Context, msg jetstream.Msg, handler RecommendationHandler) {
	evt, err := DecodeEvent(msg.Data())
	if err != nil {
		slog.Error("decode recommendation event", "error", err, "subject", msg.Subject())
		_ = msg.Term()
		return
	}
	if err := handler(ctx, evt); err != nil {
		slog.Error("process recommendation event", "error", err, "id", evt.ID)
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

func DecodeEvent(data []byte) (models.RecommendationEvent, error) {
	var evt models.RecommendationEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("unmarshal recommendation event: %w", err)
	}
	return evt, nil
}

func (c *Consumer) Close() {
	c.nc.Close()
}
