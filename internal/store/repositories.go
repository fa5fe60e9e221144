package store

import "context"

// EventRepository handles event persistence. All owner-scoped lookups treat
// an ownership mismatch exactly like a missing row (ErrNotFound), so callers
// cannot distinguish another principal's events from nonexistent ones.
type EventRepository interface {
	Create(ctx context.Context, event Event) (*Event, error)
	GetByID(ctx context.Context, ownerID, id string) (*Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Event, error)
	ListByLocalDateRange(ctx context.Context, ownerID, start, end string) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	Update(ctx context.Context, event Event) (*Event, error)
	Delete(ctx context.Context, ownerID, id string) error
	DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error)
	CreateBatch(ctx context.Context, events []Event, replaceOwner string) (int64, error)
	UpdateLocalFields(ctx context.Context, updates []LocalFieldsUpdate) (int64, error)
}

// AccessTokenRepository handles personal API token storage.
type AccessTokenRepository interface {
	Create(ctx context.Context, token AccessToken) (*AccessToken, error)
	ListByOwner(ctx context.Context, ownerID string) ([]AccessToken, error)
	GetActiveByID(ctx context.Context, id string) (*AccessToken, error)
	Revoke(ctx context.Context, ownerID, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}
