package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"conelog/internal/auth"
	httperrors "conelog/internal/http/errors"
	"conelog/internal/localtime"
	"conelog/internal/normalize"
	"conelog/internal/store"
)

// Handler serves the event-logging API. It is stateless; every request is
// scoped to the authenticated owner from the context.
type Handler struct {
	events     store.EventRepository
	authSvc    *auth.Service
	deriver    *localtime.Deriver
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

func NewHandler(events store.EventRepository, authSvc *auth.Service, deriver *localtime.Deriver, normalizer *normalize.Normalizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		events:     events,
		authSvc:    authSvc,
		deriver:    deriver,
		normalizer: normalizer,
		logger:     logger,
	}
}

// eventJSON is the wire representation of an event.
type eventJSON struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"ownerId"`
	Instant      string  `json:"instant"`
	LocalDate    string  `json:"localDate"`
	LocalTime    string  `json:"localTime"`
	LocalWeekday string  `json:"localWeekday"`
	Note         *string `json:"note,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

func toEventJSON(e store.Event) eventJSON {
	return eventJSON{
		ID:           e.ID,
		OwnerID:      e.OwnerID,
		Instant:      e.Instant.UTC().Format(time.RFC3339),
		LocalDate:    e.LocalDate,
		LocalTime:    e.LocalTime,
		LocalWeekday: e.LocalWeekday,
		Note:         e.Note,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toEventJSONList(events []store.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEventJSON(e))
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// owner pulls the authenticated subject; the auth middleware guarantees it
// is present on protected routes.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		httperrors.Unauthenticated(w, r, "no authenticated principal")
		return "", false
	}
	return ownerID, true
}

func respondStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		httperrors.NotFound(w, r)
		return
	}
	httperrors.Upstream(w, r, err, message)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		httperrors.InvalidInput(w, r, err, "malformed request body")
		return false
	}
	return true
}
