package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ctchen222/tictactoe-minimax/internal/session"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -destination=mocks/session_repository.go -package=mocks . SessionRepository

var tracer = otel.Tracer("repository.session")

// ErrSessionNotFound is returned when no snapshot is stored for a session.
var ErrSessionNotFound = errors.New("session not found")

// Hash fields of a stored session.
const (
	FieldSnapshot  = "snapshot"
	FieldStatus    = "status"
	FieldMode      = "mode"
	FieldUpdatedAt = "updated_at"
)

// DefaultSessionTTL is how long an idle session snapshot is kept.
const DefaultSessionTTL = 24 * time.Hour

// SessionRepository stores the latest snapshot of every live session.
type SessionRepository interface {
	Save(ctx context.Context, snap session.Snapshot) error
	FindByID(ctx context.Context, id string) (*session.Snapshot, error)
	Delete(ctx context.Context, id string) error
}

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionRepository creates a new Redis-based SessionRepository. A zero ttl
// selects DefaultSessionTTL.
func NewSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Save writes the snapshot and refreshes the TTL. A snapshot older than the
// stored one is dropped, so late writes never roll a session back.
func (r *redisSessionRepository) Save(ctx context.Context, snap session.Snapshot) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Save", trace.WithAttributes(
		attribute.String("session.id", snap.SessionID),
		attribute.String("session.status", string(snap.Status)),
	))
	defer span.End()

	data, err := json.Marshal(snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to marshal snapshot")
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := sessionKey(snap.SessionID)
	updatedAt := snap.UpdatedAt.UnixNano()

	txf := func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, FieldUpdatedAt).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil && stored > updatedAt {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				FieldSnapshot, data,
				FieldStatus, string(snap.Status),
				FieldMode, string(snap.Mode),
				FieldUpdatedAt, updatedAt,
			)
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		return err
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save snapshot")
		return fmt.Errorf("failed to save session %s: %w", snap.SessionID, err)
	}
	return nil
}

// FindByID loads the latest snapshot of a session.
func (r *redisSessionRepository) FindByID(ctx context.Context, id string) (*session.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.FindByID", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	data, err := r.rdb.HGet(ctx, sessionKey(id), FieldSnapshot).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get snapshot")
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to unmarshal snapshot")
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes a session.
func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
