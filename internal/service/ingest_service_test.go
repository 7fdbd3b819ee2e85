package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hooksink/hooksink/internal/cache"
	"github.com/hooksink/hooksink/internal/models"
	"github.com/hooksink/hooksink/internal/repository"
	"github.com/hooksink/hooksink/internal/signature"
)

const testSecret = "testsecret"

func newService(repo repository.MessageRepository) *IngestService {
	return NewIngestService(signature.NewVerifier(testSecret), repo)
}

func signedBody(t *testing.T, payload map[string]string) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body, signature.Compute(testSecret, body)
}

func validPayload() map[string]string {
	return map[string]string{
		"message_id": "m1",
		"from":       "+919876543210",
		"to":         "+14155550100",
		"ts":         "2025-01-15T10:00:00Z",
		"text":       "Hello",
	}
}

func TestIngest_Created(t *testing.T) {
	svc := newService(repository.NewInMemoryRepository())
	fixed := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	body, token := signedBody(t, validPayload())
	outcome, msg, err := svc.Ingest(context.Background(), body, token)

	require.NoError(t, err)
	assert.Equal(t, repository.OutcomeCreated, outcome)
	require.NotNil(t, msg)
	assert.Equal(t, "m1", msg.MessageID)
	assert.True(t, msg.TS.Equal(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)))
	assert.True(t, msg.CreatedAt.Equal(fixed), "created_at is assigned server-side")
}

func TestIngest_Duplicate(t *testing.T) {
	svc := newService(repository.NewInMemoryRepository())
	body, token := signedBody(t, validPayload())

	_, _, err := svc.Ingest(context.Background(), body, token)
	require.NoError(t, err)

	outcome, _, err := svc.Ingest(context.Background(), body, token)
	require.NoError(t, err, "a duplicate delivery is a success, not an error")
	assert.Equal(t, repository.OutcomeDuplicate, outcome)
}

func TestIngest_BadSignatureBeforeParsing(t *testing.T) {
	svc := newService(repository.NewInMemoryRepository())

	// Even unparseable garbage reports a signature failure when the
	// token is wrong; payload shape must not change the answer.
	_, _, err := svc.Ingest(context.Background(), []byte("not json"), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	body, _ := signedBody(t, validPayload())
	_, _, err = svc.Ingest(context.Background(), body, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestIngest_NoSecretRejectsAll(t *testing.T) {
	svc := NewIngestService(signature.NewVerifier(""), repository.NewInMemoryRepository())
	body, _ := signedBody(t, validPayload())

	_, _, err := svc.Ingest(context.Background(), body, signature.Compute("", body))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestIngest_ValidationError(t *testing.T) {
	svc := newService(repository.NewInMemoryRepository())

	payload := validPayload()
	payload["from"] = "not-a-number"
	body, token := signedBody(t, payload)

	_, _, err := svc.Ingest(context.Background(), body, token)

	var vErr *models.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "from", vErr.Field)
}

func TestStats_CacheHitSkipsStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := &countingRepo{MessageRepository: repository.NewInMemoryRepository()}
	svc := newService(repo)
	svc.SetStatsCache(cache.NewStatsCache(rdb, time.Minute))

	ctx := context.Background()
	_, err := svc.Stats(ctx)
	require.NoError(t, err)
	_, err = svc.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.statsCalls, "second read must be served from the cache")
}

func TestReady(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := newService(repository.NewInMemoryRepository())
		assert.NoError(t, svc.Ready(context.Background()))
	})

	t.Run("no secret", func(t *testing.T) {
		svc := NewIngestService(signature.NewVerifier(""), repository.NewInMemoryRepository())
		assert.ErrorIs(t, svc.Ready(context.Background()), ErrSecretNotConfigured)
	})

	t.Run("store down", func(t *testing.T) {
		svc := newService(&downRepo{})
		err := svc.Ready(context.Background())
		assert.ErrorIs(t, err, ErrStoreUnreachable)
	})
}

type countingRepo struct {
	repository.MessageRepository
	statsCalls int
}

func (r *countingRepo) Stats(ctx context.Context) (*repository.Stats, error) {
	r.statsCalls++
	return r.MessageRepository.Stats(ctx)
}

type downRepo struct {
	repository.MessageRepository
}

func (r *downRepo) Ping(ctx context.Context) error {
	return errors.New("dial tcp: connection refused")
}
