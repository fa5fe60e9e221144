package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"conelog/internal/store"
)

type fakeVerifier struct {
	subjects map[string]string
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	subject, ok := f.subjects[raw]
	if !ok {
		return nil, errors.New("signature check failed")
	}
	return &oidc.IDToken{Subject: subject}, nil
}

type fakeTokenRepo struct {
	tokens map[string]store.AccessToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]store.AccessToken)}
}

func (f *fakeTokenRepo) Create(ctx context.Context, token store.AccessToken) (*store.AccessToken, error) {
	if token.ID == "" {
		token.ID = "tok-" + time.Now().Format("150405000000000")
	}
	token.CreatedAt = time.Now()
	f.tokens[token.ID] = token
	return &token, nil
}

func (f *fakeTokenRepo) ListByOwner(ctx context.Context, ownerID string) ([]store.AccessToken, error) {
	var out []store.AccessToken
	for _, t := range f.tokens {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTokenRepo) GetActiveByID(ctx context.Context, id string) (*store.AccessToken, error) {
	t, ok := f.tokens[id]
	if !ok || t.RevokedAt != nil {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTokenRepo) Revoke(ctx context.Context, ownerID, id string) error {
	t, ok := f.tokens[id]
	if !ok || t.OwnerID != ownerID || t.RevokedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	f.tokens[id] = t
	return nil
}

func (f *fakeTokenRepo) TouchLastUsed(ctx context.Context, id string) error {
	t, ok := f.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	t.LastUsedAt = &now
	f.tokens[id] = t
	return nil
}

func echoOwner() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := OwnerFromContext(r.Context())
		if !ok {
			http.Error(w, "no owner in context", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(owner))
	})
}

func TestRequireAuthMissingToken(t *testing.T) {
	svc := NewServiceWithVerifier(&fakeVerifier{}, newFakeTokenRepo(), nil)
	handler := svc.RequireAuth(echoOwner())

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireAuthValidIDToken(t *testing.T) {
	svc := NewServiceWithVerifier(&fakeVerifier{subjects: map[string]string{"good-token": "alice"}}, newFakeTokenRepo(), nil)
	handler := svc.RequireAuth(echoOwner())

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "alice" {
		t.Errorf("owner = %q, want alice", rec.Body.String())
	}
}

func TestRequireAuthRejectedIDToken(t *testing.T) {
	svc := NewServiceWithVerifier(&fakeVerifier{}, newFakeTokenRepo(), nil)
	handler := svc.RequireAuth(echoOwner())

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewServiceWithVerifier(&fakeVerifier{}, repo, nil)

	created, plaintext, err := svc.MintAccessToken(context.Background(), "alice", "cli")
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}
	if created.SecretHash == "" || created.SecretHash == plaintext {
		t.Fatal("secret must be stored hashed")
	}

	handler := svc.RequireAuth(echoOwner())
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer "+plaintext)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "alice" {
		t.Errorf("owner = %q, want alice", rec.Body.String())
	}

	stored, err := repo.GetActiveByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetActiveByID error: %v", err)
	}
	if stored.LastUsedAt == nil {
		t.Error("LastUsedAt not updated after use")
	}
}

func TestAccessTokenRevoked(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewServiceWithVerifier(&fakeVerifier{}, repo, nil)

	created, plaintext, err := svc.MintAccessToken(context.Background(), "alice", "cli")
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}
	if err := repo.Revoke(context.Background(), "alice", created.ID); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}

	handler := svc.RequireAuth(echoOwner())
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer "+plaintext)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 after revocation", rec.Code)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewServiceWithVerifier(&fakeVerifier{}, repo, nil)

	created, _, err := svc.MintAccessToken(context.Background(), "alice", "cli")
	if err != nil {
		t.Fatalf("MintAccessToken error: %v", err)
	}

	handler := svc.RequireAuth(echoOwner())
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer clt_"+created.ID+".deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for wrong secret", rec.Code)
	}
}

func TestSplitAccessToken(t *testing.T) {
	tests := []struct {
		raw        string
		wantID     string
		wantSecret string
		wantOK     bool
	}{
		{"clt_abc.123", "abc", "123", true},
		{"clt_abc", "", "", false},
		{"clt_.123", "", "", false},
		{"clt_abc.", "", "", false},
	}

	for _, tt := range tests {
		id, secret, ok := splitAccessToken(tt.raw)
		if id != tt.wantID || secret != tt.wantSecret || ok != tt.wantOK {
			t.Errorf("splitAccessToken(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.raw, id, secret, ok, tt.wantID, tt.wantSecret, tt.wantOK)
		}
	}
}
