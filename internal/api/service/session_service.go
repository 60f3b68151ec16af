package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ctchen222/tictactoe-minimax/internal/api/models"
	apirepository "ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/bot"
	"ctchen222/tictactoe-minimax/internal/repository"
	"ctchen222/tictactoe-minimax/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid session token")
	ErrInvalidRequest = errors.New("invalid session request")
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// SessionService defines the session-related business logic behind the API.
type SessionService interface {
	Create(ctx context.Context, req *models.CreateSessionRequest) (*models.CreateSessionResponse, error)
	Get(ctx context.Context, sessionID string) (*session.Snapshot, error)
	History(ctx context.Context, sessionID string, limit int) ([]models.GameRecord, error)
	ParseToken(token string) (string, error)
}

type sessionService struct {
	sessions repository.SessionRepository
	history  apirepository.HistoryRepository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewSessionService creates a new SessionService signing tokens with secret.
func NewSessionService(sessions repository.SessionRepository, history apirepository.HistoryRepository, secret []byte, tokenTTL time.Duration) SessionService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &sessionService{
		sessions: sessions,
		history:  history,
		secret:   secret,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Create starts a session, stores its first snapshot and returns a token
// bound to it.
func (s *sessionService) Create(ctx context.Context, req *models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	difficulty, err := bot.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	id := uuid.New().String()
	sess := session.New(id, session.WithMode(mode), session.WithDifficulty(difficulty), session.WithClock(s.now))
	if err := s.sessions.Save(ctx, sess.Snapshot()); err != nil {
		return nil, err
	}

	token, err := s.issueToken(id)
	if err != nil {
		return nil, err
	}
	return &models.CreateSessionResponse{SessionID: id, Token: token}, nil
}

// Get returns the latest snapshot of a session.
func (s *sessionService) Get(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	return s.sessions.FindByID(ctx, sessionID)
}

// History returns the finished games of a session, newest first.
func (s *sessionService) History(ctx context.Context, sessionID string, limit int) ([]models.GameRecord, error) {
	return s.history.ListBySession(ctx, sessionID, limit)
}

func (s *sessionService) issueToken(sessionID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ParseToken validates a token and returns the session id it is bound to.
func (s *sessionService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
