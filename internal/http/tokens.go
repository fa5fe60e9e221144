package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httperrors "conelog/internal/http/errors"
	"conelog/internal/store"
)

type tokenJSON struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	CreatedAt  string  `json:"createdAt"`
	RevokedAt  *string `json:"revokedAt,omitempty"`
	LastUsedAt *string `json:"lastUsedAt,omitempty"`
}

func toTokenJSON(t store.AccessToken) tokenJSON {
	out := tokenJSON{
		ID:        t.ID,
		Label:     t.Label,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.RevokedAt != nil {
		s := t.RevokedAt.UTC().Format(time.RFC3339)
		out.RevokedAt = &s
	}
	if t.LastUsedAt != nil {
		s := t.LastUsedAt.UTC().Format(time.RFC3339)
		out.LastUsedAt = &s
	}
	return out
}

func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	tokens, err := h.authSvc.ListAccessTokens(r.Context(), ownerID)
	if err != nil {
		respondStoreError(w, r, err, "failed to list tokens")
		return
	}

	out := make([]tokenJSON, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, toTokenJSON(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var input struct {
		Label string `json:"label"`
	}
	if !decodeBody(w, r, &input) {
		return
	}
	input.Label = strings.TrimSpace(input.Label)
	if input.Label == "" {
		httperrors.InvalidInput(w, r, nil, "label is required")
		return
	}

	created, plaintext, err := h.authSvc.MintAccessToken(r.Context(), ownerID, input.Label)
	if err != nil {
		respondStoreError(w, r, err, "failed to create token")
		return
	}

	// The plaintext appears here and nowhere else.
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":        created.ID,
		"label":     created.Label,
		"createdAt": created.CreatedAt.UTC().Format(time.RFC3339),
		"token":     plaintext,
	})
}

func (h *Handler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	if err := h.authSvc.RevokeAccessToken(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, r, err, "failed to revoke token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "token revoked",
	})
}
