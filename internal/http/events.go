package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httperrors "conelog/internal/http/errors"
	"conelog/internal/localtime"
	"conelog/internal/store"
)

// eventInput is the body of POST /events and PUT /events/{id}. Both fields
// are optional: a missing instant defaults to now on create and stays
// unchanged on update.
type eventInput struct {
	Instant *string `json:"instant"`
	Note    *string `json:"note"`
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	events, err := h.events.ListByOwner(r.Context(), ownerID)
	if err != nil {
		respondStoreError(w, r, err, "failed to list events")
		return
	}
	respondJSON(w, http.StatusOK, toEventJSONList(events))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	event, err := h.events.GetByID(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "failed to load event")
		return
	}
	respondJSON(w, http.StatusOK, toEventJSON(*event))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var input eventInput
	if !decodeBody(w, r, &input) {
		return
	}

	instant := time.Now().UTC()
	if input.Instant != nil {
		parsed, err := localtime.ParseInstant(*input.Instant, h.deriver.Location())
		if err != nil {
			httperrors.InvalidInput(w, r, err, "instant is not a valid timestamp")
			return
		}
		instant = parsed
	}

	fields := h.deriver.Derive(instant)
	created, err := h.events.Create(r.Context(), store.Event{
		OwnerID:      ownerID,
		Instant:      instant,
		LocalDate:    fields.Date,
		LocalTime:    fields.Time,
		LocalWeekday: fields.Weekday,
		Note:         input.Note,
	})
	if err != nil {
		respondStoreError(w, r, err, "failed to create event")
		return
	}

	h.logger.InfoContext(r.Context(), "event created",
		"component", "events", "event_id", created.ID)
	respondJSON(w, http.StatusCreated, toEventJSON(*created))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var input eventInput
	if !decodeBody(w, r, &input) {
		return
	}

	event, err := h.events.GetByID(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, r, err, "failed to load event")
		return
	}

	if input.Instant != nil {
		parsed, err := localtime.ParseInstant(*input.Instant, h.deriver.Location())
		if err != nil {
			httperrors.InvalidInput(w, r, err, "instant is not a valid timestamp")
			return
		}
		event.Instant = parsed
	}
	if input.Note != nil {
		event.Note = input.Note
	}

	// Local fields always follow the (possibly unchanged) instant.
	fields := h.deriver.Derive(event.Instant)
	event.LocalDate = fields.Date
	event.LocalTime = fields.Time
	event.LocalWeekday = fields.Weekday

	updated, err := h.events.Update(r.Context(), *event)
	if err != nil {
		respondStoreError(w, r, err, "failed to update event")
		return
	}
	respondJSON(w, http.StatusOK, toEventJSON(*updated))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.events.Delete(r.Context(), ownerID, id); err != nil {
		respondStoreError(w, r, err, "failed to delete event")
		return
	}

	h.logger.InfoContext(r.Context(), "event deleted",
		"component", "events", "event_id", id)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "event deleted",
	})
}

func (h *Handler) ListEventsByRange(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	start := chi.URLParam(r, "start")
	end := chi.URLParam(r, "end")
	loc := h.deriver.Location()
	if _, err := localtime.ParseDate(start, loc); err != nil {
		httperrors.InvalidInput(w, r, err, "start must be a YYYY-MM-DD date")
		return
	}
	if _, err := localtime.ParseDate(end, loc); err != nil {
		httperrors.InvalidInput(w, r, err, "end must be a YYYY-MM-DD date")
		return
	}

	events, err := h.events.ListByLocalDateRange(r.Context(), ownerID, start, end)
	if err != nil {
		respondStoreError(w, r, err, "failed to list events by range")
		return
	}
	respondJSON(w, http.StatusOK, toEventJSONList(events))
}
