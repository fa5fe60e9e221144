package httpserver

import (
	"fmt"
	"net/http"
	"time"

	httperrors "conelog/internal/http/errors"
	"conelog/internal/localtime"
	"conelog/internal/metrics"
	"conelog/internal/store"
)

const exportVersion = "1"

// exportedEvent carries the portable subset of an event. IDs are not
// exported; imports always mint fresh ones.
type exportedEvent struct {
	Instant string  `json:"instant"`
	Note    *string `json:"note,omitempty"`
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	events, err := h.events.ListByOwner(r.Context(), ownerID)
	if err != nil {
		respondStoreError(w, r, err, "failed to export events")
		return
	}

	exported := make([]exportedEvent, 0, len(events))
	for _, e := range events {
		exported = append(exported, exportedEvent{
			Instant: e.Instant.UTC().Format(time.RFC3339),
			Note:    e.Note,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"events":     exported,
		"exportedAt": time.Now().UTC().Format(time.RFC3339),
		"version":    exportVersion,
	})
}

// importInput is the body of POST /import. Mode defaults to append;
// replace deletes the caller's existing events first, atomically with the
// inserts, and the client is expected to confirm that destructively.
type importInput struct {
	Events []exportedEvent `json:"events"`
	Mode   string          `json:"mode"`
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var input importInput
	if !decodeBody(w, r, &input) {
		return
	}
	if input.Events == nil {
		httperrors.InvalidInput(w, r, nil, "import payload must contain an events list")
		return
	}

	replaceOwner := ""
	switch input.Mode {
	case "", "append":
	case "replace":
		replaceOwner = ownerID
	default:
		httperrors.InvalidInput(w, r, nil, fmt.Sprintf("unknown import mode %q (use append or replace)", input.Mode))
		return
	}

	loc := h.deriver.Location()
	events := make([]store.Event, 0, len(input.Events))
	for i, in := range input.Events {
		instant, err := localtime.ParseInstant(in.Instant, loc)
		if err != nil {
			httperrors.InvalidInput(w, r, err, fmt.Sprintf("events[%d].instant is not a valid timestamp", i))
			return
		}
		fields := h.deriver.Derive(instant)
		events = append(events, store.Event{
			OwnerID:      ownerID,
			Instant:      instant,
			LocalDate:    fields.Date,
			LocalTime:    fields.Time,
			LocalWeekday: fields.Weekday,
			Note:         in.Note,
		})
	}

	imported, err := h.events.CreateBatch(r.Context(), events, replaceOwner)
	if err != nil {
		respondStoreError(w, r, err, "failed to import events")
		return
	}

	h.logger.InfoContext(r.Context(), "events imported",
		"component", "transfer", "count", imported, "mode", input.Mode)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       fmt.Sprintf("imported %d events", imported),
		"importedCount": imported,
	})
}

func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	updated, err := h.normalizer.Run(r.Context(), ownerID)
	if err != nil {
		respondStoreError(w, r, err, "normalization failed")
		return
	}

	metrics.AddNormalizedEvents(updated)
	respondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"updatedCount": updated,
	})
}
