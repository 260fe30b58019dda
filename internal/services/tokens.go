package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/directory"
	"github.com/raftaar/raftaar-backend/internal/models"
)

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenIssuer signs access tokens and rotates opaque refresh tokens.
type TokenIssuer struct {
	store         directory.TokenStore
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewTokenIssuer(store directory.TokenStore, secret string, accessExpiry, refreshExpiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		store:         store,
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (t *TokenIssuer) Issue(ctx context.Context, actor *models.Actor, kind models.ActorKind) (*TokenPair, error) {
	access, err := t.accessToken(actor, kind)
	if err != nil {
		return nil, err
	}
	refresh, err := t.refreshToken(ctx, actor, kind)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Consume validates a refresh token and revokes it so it cannot be replayed.
func (t *TokenIssuer) Consume(ctx context.Context, raw string) (*models.RefreshToken, error) {
	hash := hashToken(raw)
	stored, err := t.store.FindActive(ctx, hash)
	if err != nil {
		return nil, err
	}
	if err := t.store.Revoke(ctx, hash); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !stored.Active(time.Now()) {
		return nil, directory.ErrTokenNotFound
	}
	return stored, nil
}

func (t *TokenIssuer) Revoke(ctx context.Context, raw string) error {
	return t.store.Revoke(ctx, hashToken(raw))
}

func (t *TokenIssuer) accessToken(actor *models.Actor, kind models.ActorKind) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   actor.ID.String(),
		"email": actor.Email,
		"kind":  string(kind),
		"iat":   now.Unix(),
		"exp":   now.Add(t.accessExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) refreshToken(ctx context.Context, actor *models.Actor, kind models.ActorKind) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:        uuid.New(),
		ActorID:   actor.ID,
		ActorKind: kind,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(t.refreshExpiry),
	}
	if err := t.store.Create(ctx, &record); err != nil {
		return "", err
	}
	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
