package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/outfit/internal/models"
)

const (
	RecommendationsStreamName  = "RECOMMENDATIONS"
	RecommendationsSubjectBase = "recommendations"
)

// Subject returns the subject events for userID are published on.
func Subject(userID int) string {
	return RecommendationsSubjectBase + "." + strconv.Itoa(userID)
}

type Producer struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func connect(natsURL string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return nc, js, nil
}

func NewProducer(natsURL string) (*Producer, error) {
	nc, js, err := connect(natsURL)
	if err != nil {
		return nil, err
	}
	return &Producer{nc: nc, js: js}, nil
}

func streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        RecommendationsStreamName,
		Subjects:    []string{RecommendationsSubjectBase + ".>"},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      24 * time.Hour,
		MaxMsgs:     1000000,
		Storage:     jetstream.FileStorage,
		Duplicates:  time.Minute,
		Description: "Stored outfit recommendations",
	}
}

// EnsureStreams creates the recommendations stream if it doesn't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Producer) EnsureStreams(ctx context.Context) error {
	cfg := streamConfig()

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
		cancel()
		if err == nil {
			slog.Info("ensured NATS stream", "name", cfg.Name)
			return nil
		}
		if attempt == maxAttempts {
			return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
		}
		slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishRecommendation announces a stored recommendation. The recommendation
// id doubles as the JetStream message id so retried publishes are deduplicated.
func (p *Producer) PublishRecommendation(ctx context.Context, rec *models.Recommendation) error {
	payload, err := json.Marshal(models.NewRecommendationEvent(rec))
	if err != nil {
		return fmt.Errorf("marshal recommendation event: %w", err)
	}

	_, err = p.js.Publish(ctx, Subject(rec.UserID), payload, jetstream.WithMsgID(rec.ID.String()))
	if err != nil {
		return fmt.Errorf("publish recommendation: %w", err)
	}
	return nil
}

func (p *Producer) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Producer) Close() {
	p.nc.Close()
}
