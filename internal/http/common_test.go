package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"conelog/internal/auth"
	"conelog/internal/localtime"
	"conelog/internal/normalize"
	"conelog/internal/store"
)

// fakeEventRepo is an in-memory store.EventRepository.
type fakeEventRepo struct {
	events map[string]store.Event
	fail   bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]store.Event)}
}

var errFakeDown = errors.New("store unavailable")

func (f *fakeEventRepo) Create(ctx context.Context, event store.Event) (*store.Event, error) {
	if f.fail {
		return nil, errFakeDown
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	f.events[event.ID] = event
	return &event, nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, ownerID, id string) (*store.Event, error) {
	if f.fail {
		return nil, errFakeDown
	}
	e, ok := f.events[id]
	if !ok || e.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (f *fakeEventRepo) ListByOwner(ctx context.Context, ownerID string) ([]store.Event, error) {
	if f.fail {
		return nil, errFakeDown
	}
	var out []store.Event
	for _, e := range f.events {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeEventRepo) ListByLocalDateRange(ctx context.Context, ownerID, start, end string) ([]store.Event, error) {
	if f.fail {
		return nil, errFakeDown
	}
	var out []store.Event
	for _, e := range f.events {
		if e.OwnerID == ownerID && e.LocalDate >= start && e.LocalDate <= end {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeEventRepo) ListAll(ctx context.Context) ([]store.Event, error) {
	if f.fail {
		return nil, errFakeDown
	}
	var out []store.Event
	for _, e := range f.events {
		out = append(out, e)
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeEventRepo) Update(ctx context.Context, event store.Event) (*store.Event, error) {
	if f.fail {
		return nil, errFakeDown
	}
	existing, ok := f.events[event.ID]
	if !ok || existing.OwnerID != event.OwnerID {
		return nil, store.ErrNotFound
	}
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now().UTC()
	f.events[event.ID] = event
	return &event, nil
}

func (f *fakeEventRepo) Delete(ctx context.Context, ownerID, id string) error {
	if f.fail {
		return errFakeDown
	}
	e, ok := f.events[id]
	if !ok || e.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error) {
	if f.fail {
		return 0, errFakeDown
	}
	var n int64
	for id, e := range f.events {
		if e.OwnerID == ownerID {
			delete(f.events, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeEventRepo) CreateBatch(ctx context.Context, events []store.Event, replaceOwner string) (int64, error) {
	if f.fail {
		return 0, errFakeDown
	}
	if replaceOwner != "" {
		if _, err := f.DeleteAllByOwner(ctx, replaceOwner); err != nil {
			return 0, err
		}
	}
	for _, e := range events {
		if _, err := f.Create(ctx, e); err != nil {
			return 0, err
		}
	}
	return int64(len(events)), nil
}

func (f *fakeEventRepo) UpdateLocalFields(ctx context.Context, updates []store.LocalFieldsUpdate) (int64, error) {
	if f.fail {
		return 0, errFakeDown
	}
	var n int64
	for _, u := range updates {
		e, ok := f.events[u.EventID]
		if !ok {
			continue
		}
		e.LocalDate = u.LocalDate
		e.LocalTime = u.LocalTime
		e.LocalWeekday = u.LocalWeekday
		e.UpdatedAt = time.Now().UTC()
		f.events[u.EventID] = e
		n++
	}
	return n, nil
}

func sortNewestFirst(events []store.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Instant.After(events[j].Instant)
	})
}

// fakeTokenRepo is an in-memory store.AccessTokenRepository.
type fakeTokenRepo struct {
	tokens map[string]store.AccessToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]store.AccessToken)}
}

func (f *fakeTokenRepo) Create(ctx context.Context, token store.AccessToken) (*store.AccessToken, error) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt = time.Now().UTC()
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
	now := time.Now().UTC()
	t.RevokedAt = &now
	f.tokens[id] = t
	return nil
}

func (f *fakeTokenRepo) TouchLastUsed(ctx context.Context, id string) error {
	t, ok := f.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now().UTC()
	t.LastUsedAt = &now
	f.tokens[id] = t
	return nil
}

// staticVerifier maps raw bearer tokens to subjects.
type staticVerifier struct {
	subjects map[string]string
}

func (s *staticVerifier) Verify(ctx context.Context, raw string) (*oidc.IDToken, error) {
	subject, ok := s.subjects[raw]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &oidc.IDToken{Subject: subject}, nil
}

type testEnv struct {
	router  http.Handler
	events  *fakeEventRepo
	deriver *localtime.Deriver
}

// newTestEnv builds the API router over in-memory fakes, deriving local
// fields in Asia/Tokyo so UTC/local divergence is visible in tests.
// Bearer tokens "alice-token" and "bob-token" authenticate the two
// standing test principals.
func newTestEnv() *testEnv {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}

	events := newFakeEventRepo()
	deriver := localtime.NewDeriver(loc)
	verifier := &staticVerifier{subjects: map[string]string{
		"alice-token": "alice",
		"bob-token":   "bob",
	}}
	authSvc := auth.NewServiceWithVerifier(verifier, newFakeTokenRepo(), nil)
	normalizer := normalize.New(events, deriver, nil)
	handler := NewHandler(events, authSvc, deriver, normalizer, nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(authSvc.RequireAuth)
		registerAPIRoutes(r, handler)
	})

	return &testEnv{router: r, events: events, deriver: deriver}
}
