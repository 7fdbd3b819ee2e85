package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hooksink/hooksink/internal/cache"
	"github.com/hooksink/hooksink/internal/models"
	"github.com/hooksink/hooksink/internal/repository"
	"github.com/hooksink/hooksink/internal/signature"
)

var (
	// ErrInvalidSignature is returned when a delivery fails authentication:
	// missing, malformed, or mismatched signature, or no configured secret.
	ErrInvalidSignature = errors.New("invalid signature")

	// Readiness failures. Wrapped driver detail goes to the log, never to
	// the client.
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrStoreUnreachable    = errors.New("store unreachable")
)

// IngestService owns the webhook ingestion path: authenticate the raw body,
// decode and validate the payload, then insert idempotently.
type IngestService struct {
	verifier   *signature.Verifier
	repo       repository.MessageRepository
	statsCache *cache.StatsCache
	now        func() time.Time
}

func NewIngestService(verifier *signature.Verifier, repo repository.MessageRepository) *IngestService {
	return &IngestService{
		verifier: verifier,
		repo:     repo,
		now:      time.Now,
	}
}

// SetStatsCache enables the optional Redis-backed stats cache.
func (s *IngestService) SetStatsCache(c *cache.StatsCache) {
	s.statsCache = c
}

// SecretConfigured reports whether signature verification can succeed at all.
// Readiness depends on it.
func (s *IngestService) SecretConfigured() bool {
	return s.verifier.Enabled()
}

// Ingest processes one webhook delivery. The signature is verified against
// the raw bytes before any parsing; a bad signature must not be
// distinguishable by payload shape.
func (s *IngestService) Ingest(ctx context.Context, rawBody []byte, sigToken string) (repository.InsertOutcome, *models.Message, error) {
	if !s.verifier.Verify(rawBody, sigToken) {
		return repository.OutcomeCreated, nil, ErrInvalidSignature
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return repository.OutcomeCreated, nil, &models.ValidationError{
			Field:  "body",
			Reason: "malformed JSON payload",
		}
	}
	if err := payload.Validate(); err != nil {
		return repository.OutcomeCreated, nil, err
	}

	ts, err := payload.ParseTS()
	if err != nil {
		return repository.OutcomeCreated, nil, &models.ValidationError{Field: "ts", Reason: err.Error()}
	}

	msg := &models.Message{
		MessageID: payload.MessageID,
		From:      payload.From,
		To:        payload.To,
		TS:        ts,
		Text:      payload.Text,
		CreatedAt: s.now().UTC(),
	}

	outcome, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return outcome, nil, fmt.Errorf("insert message: %w", err)
	}
	return outcome, msg, nil
}

// List returns the filtered, ordered page plus the total matching count.
func (s *IngestService) List(ctx context.Context, f repository.Filter, p repository.Page) ([]models.Message, int64, error) {
	messages, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	return messages, total, nil
}

// Stats returns the aggregate view, served from the cache when fresh.
func (s *IngestService) Stats(ctx context.Context) (*repository.Stats, error) {
	if s.statsCache != nil {
		if stats, ok := s.statsCache.Get(ctx); ok {
			return stats, nil
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate messages: %w", err)
	}

	if s.statsCache != nil {
		s.statsCache.Set(ctx, stats)
	}
	return stats, nil
}

// Ready checks the ingestion preconditions: a reachable store and a
// configured secret. The store check runs under a bounded timeout.
func (s *IngestService) Ready(ctx context.Context) error {
	if !s.SecretConfigured() {
		return ErrSecretNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}
	return nil
}
