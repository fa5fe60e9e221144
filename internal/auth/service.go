// Package auth verifies bearer credentials. ID tokens are checked against
// the external OIDC provider's public keys; personal access tokens (the
// clt_ prefix) are checked against their stored bcrypt hashes. The login
// flow itself happens entirely at the provider.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	httperrors "conelog/internal/http/errors"
	"conelog/internal/store"
)

// IDTokenVerifier is the slice of oidc.IDTokenVerifier the service needs;
// tests substitute a fake.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// Service authenticates requests.
type Service struct {
	verifier IDTokenVerifier
	tokens   store.AccessTokenRepository
	endpoint oauth2.Endpoint
	issuer   string
	clientID string
	logger   *slog.Logger
}

// NewService discovers the OIDC provider and prepares a token verifier for
// the configured audience.
func NewService(ctx context.Context, issuerURL, clientID, audience string, tokens store.AccessTokenRepository, logger *slog.Logger) (*Service, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
		tokens:   tokens,
		endpoint: provider.Endpoint(),
		issuer:   issuerURL,
		clientID: clientID,
		logger:   logger,
	}, nil
}

// NewServiceWithVerifier wires an explicit verifier, used by tests.
func NewServiceWithVerifier(verifier IDTokenVerifier, tokens store.AccessTokenRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{verifier: verifier, tokens: tokens, logger: logger}
}

// ProviderInfo describes the identity provider for the public /config
// endpoint, so the SPA knows where to send users to log in.
type ProviderInfo struct {
	Issuer   string `json:"issuer"`
	ClientID string `json:"clientId"`
	AuthURL  string `json:"authUrl"`
	TokenURL string `json:"tokenUrl"`
}

func (s *Service) ProviderInfo() ProviderInfo {
	return ProviderInfo{
		Issuer:   s.issuer,
		ClientID: s.clientID,
		AuthURL:  s.endpoint.AuthURL,
		TokenURL: s.endpoint.TokenURL,
	}
}

// RequireAuth extracts and verifies the bearer credential, placing the
// owner subject in the request context. Missing or invalid credentials get
// a 401 with a machine-readable reason.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httperrors.Unauthenticated(w, r, "missing bearer token")
			return
		}

		ownerID, method, err := s.authenticate(r.Context(), raw)
		if err != nil {
			s.logger.DebugContext(r.Context(), "token rejected", "component", "auth", "error", err)
			httperrors.Unauthenticated(w, r, "invalid bearer token")
			return
		}

		ctx := WithMethod(WithOwner(r.Context(), ownerID), method)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireOIDC rejects requests authenticated with a personal access token.
// It guards the token-management endpoints so a leaked token cannot mint
// replacements for itself.
func RequireOIDC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if method, ok := MethodFromContext(r.Context()); !ok || method != MethodOIDC {
			httperrors.Unauthenticated(w, r, "token management requires an id token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) authenticate(ctx context.Context, raw string) (string, Method, error) {
	if strings.HasPrefix(raw, accessTokenPrefix) {
		ownerID, err := s.verifyAccessToken(ctx, raw)
		return ownerID, MethodAccessToken, err
	}

	idToken, err := s.verifier.Verify(ctx, raw)
	if err != nil {
		return "", MethodOIDC, fmt.Errorf("verify id token: %w", err)
	}
	if idToken.Subject == "" {
		return "", MethodOIDC, fmt.Errorf("id token has no subject")
	}
	return idToken.Subject, MethodOIDC, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
