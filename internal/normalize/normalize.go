// Package normalize reconciles stored local calendar fields with the
// values derived from each event's instant. Events written by older
// clients that sliced the UTC timestamp carry a wrong local date for
// instants near midnight; this routine corrects them.
package normalize

import (
	"context"
	"fmt"
	"log/slog"

	"conelog/internal/localtime"
	"conelog/internal/store"
)

// EventSource is the slice of the store the normalizer needs.
type EventSource interface {
	ListByOwner(ctx context.Context, ownerID string) ([]store.Event, error)
	ListAll(ctx context.Context) ([]store.Event, error)
	UpdateLocalFields(ctx context.Context, updates []store.LocalFieldsUpdate) (int64, error)
}

// Normalizer recomputes local fields from instants and writes back only
// the rows whose stored values differ. Running it repeatedly with no
// intervening writes is a no-op after the first run.
type Normalizer struct {
	events  EventSource
	deriver *localtime.Deriver
	logger  *slog.Logger
}

func New(events EventSource, deriver *localtime.Deriver, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{events: events, deriver: deriver, logger: logger}
}

// Run normalizes all events owned by ownerID, or every event when ownerID
// is empty. Staged corrections are applied as one atomic batch; the count
// of corrected rows is returned.
func (n *Normalizer) Run(ctx context.Context, ownerID string) (int64, error) {
	var (
		events []store.Event
		err    error
	)
	if ownerID == "" {
		events, err = n.events.ListAll(ctx)
	} else {
		events, err = n.events.ListByOwner(ctx, ownerID)
	}
	if err != nil {
		return 0, fmt.Errorf("load events for normalization: %w", err)
	}

	var staged []store.LocalFieldsUpdate
	for _, e := range events {
		fields := n.deriver.Derive(e.Instant)
		if fields.Date == e.LocalDate && fields.Time == e.LocalTime && fields.Weekday == e.LocalWeekday {
			continue
		}
		staged = append(staged, store.LocalFieldsUpdate{
			EventID:      e.ID,
			LocalDate:    fields.Date,
			LocalTime:    fields.Time,
			LocalWeekday: fields.Weekday,
		})
	}

	if len(staged) == 0 {
		n.logger.DebugContext(ctx, "normalization found nothing to correct",
			"component", "normalize", "scanned", len(events))
		return 0, nil
	}

	updated, err := n.events.UpdateLocalFields(ctx, staged)
	if err != nil {
		return 0, fmt.Errorf("apply normalization updates: %w", err)
	}

	n.logger.InfoContext(ctx, "normalized local fields",
		"component", "normalize", "scanned", len(events), "updated", updated)
	return updated, nil
}
