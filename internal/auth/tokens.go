package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"conelog/internal/store"
)

// Personal access tokens have the shape clt_<id>.<secret>. The id locates
// the row; only the bcrypt hash of the secret is stored, so a leaked
// database cannot be replayed against the API.
const accessTokenPrefix = "clt_"

// MintAccessToken creates a personal access token for ownerID and returns
// the stored record together with the plaintext, which is shown exactly
// once.
func (s *Service) MintAccessToken(ctx context.Context, ownerID, label string) (*store.AccessToken, string, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, "", fmt.Errorf("generate token secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash token secret: %w", err)
	}

	created, err := s.tokens.Create(ctx, store.AccessToken{
		OwnerID:    ownerID,
		Label:      label,
		SecretHash: string(hash),
	})
	if err != nil {
		return nil, "", fmt.Errorf("store access token: %w", err)
	}

	plaintext := accessTokenPrefix + created.ID + "." + secret
	s.logger.InfoContext(ctx, "access token minted",
		"component", "auth", "token_id", created.ID, "label", label)
	return created, plaintext, nil
}

// ListAccessTokens returns all of ownerID's tokens, revoked ones included.
func (s *Service) ListAccessTokens(ctx context.Context, ownerID string) ([]store.AccessToken, error) {
	return s.tokens.ListByOwner(ctx, ownerID)
}

// RevokeAccessToken marks one of ownerID's tokens revoked.
func (s *Service) RevokeAccessToken(ctx context.Context, ownerID, id string) error {
	if err := s.tokens.Revoke(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "access token revoked",
		"component", "auth", "token_id", id)
	return nil
}

func (s *Service) verifyAccessToken(ctx context.Context, raw string) (string, error) {
	id, secret, ok := splitAccessToken(raw)
	if !ok {
		return "", fmt.Errorf("malformed access token")
	}

	token, err := s.tokens.GetActiveByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("look up access token: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(token.SecretHash), []byte(secret)); err != nil {
		return "", fmt.Errorf("access token secret mismatch")
	}

	// Best effort; authentication already succeeded.
	if err := s.tokens.TouchLastUsed(ctx, token.ID); err != nil {
		s.logger.WarnContext(ctx, "touch access token failed",
			"component", "auth", "token_id", token.ID, "error", err)
	}
	return token.OwnerID, nil
}

func splitAccessToken(raw string) (id, secret string, ok bool) {
	rest := strings.TrimPrefix(raw, accessTokenPrefix)
	id, secret, found := strings.Cut(rest, ".")
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
