package httpserver

import (
	"net/http"
	"time"

	"conelog/internal/stats"
)

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	events, err := h.events.ListByOwner(r.Context(), ownerID)
	if err != nil {
		respondStoreError(w, r, err, "failed to load events for stats")
		return
	}

	summary := stats.Compute(events, time.Now(), h.deriver.Location())
	respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	events, err := h.events.ListByOwner(r.Context(), ownerID)
	if err != nil {
		respondStoreError(w, r, err, "failed to load events for analysis")
		return
	}

	respondJSON(w, http.StatusOK, stats.Histograms(events, h.deriver.Location()))
}
