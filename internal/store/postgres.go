package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, owner_id, instant, local_date, local_time, local_weekday, note, created_at, updated_at`

// eventRepo implements EventRepository.
type eventRepo struct {
	pool *pgxpool.Pool
}

func (r *eventRepo) Create(ctx context.Context, event Event) (*Event, error) {
	defer observeDB(ctx, "db.events.create")()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	const q = `INSERT INTO events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + eventColumns

	row := r.pool.QueryRow(ctx, q,
		event.ID, event.OwnerID, event.Instant.UTC(),
		event.LocalDate, event.LocalTime, event.LocalWeekday,
		event.Note, event.CreatedAt, event.UpdatedAt)

	created, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return created, nil
}

func (r *eventRepo) GetByID(ctx context.Context, ownerID, id string) (*Event, error) {
	defer observeDB(ctx, "db.events.get")()

	const q = `SELECT ` + eventColumns + ` FROM events WHERE id=$1 AND owner_id=$2`

	event, err := scanEvent(r.pool.QueryRow(ctx, q, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *eventRepo) ListByOwner(ctx context.Context, ownerID string) ([]Event, error) {
	defer observeDB(ctx, "db.events.list")()

	const q = `SELECT ` + eventColumns + ` FROM events WHERE owner_id=$1 ORDER BY instant DESC`

	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

func (r *eventRepo) ListByLocalDateRange(ctx context.Context, ownerID, start, end string) ([]Event, error) {
	defer observeDB(ctx, "db.events.list_range")()

	// local_date is stored YYYY-MM-DD, so lexicographic comparison is
	// chronological comparison.
	const q = `SELECT ` + eventColumns + ` FROM events
WHERE owner_id=$1 AND local_date >= $2 AND local_date <= $3
ORDER BY instant DESC`

	rows, err := r.pool.Query(ctx, q, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events by range: %w", err)
	}
	return collectEvents(rows)
}

func (r *eventRepo) ListAll(ctx context.Context) ([]Event, error) {
	defer observeDB(ctx, "db.events.list_all")()

	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY instant DESC`

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	return collectEvents(rows)
}

func (r *eventRepo) Update(ctx context.Context, event Event) (*Event, error) {
	defer observeDB(ctx, "db.events.update")()

	const q = `UPDATE events
SET instant=$3, local_date=$4, local_time=$5, local_weekday=$6, note=$7, updated_at=$8
WHERE id=$1 AND owner_id=$2
RETURNING ` + eventColumns

	row := r.pool.QueryRow(ctx, q,
		event.ID, event.OwnerID, event.Instant.UTC(),
		event.LocalDate, event.LocalTime, event.LocalWeekday,
		event.Note, time.Now().UTC())

	updated, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (r *eventRepo) Delete(ctx context.Context, ownerID, id string) error {
	defer observeDB(ctx, "db.events.delete")()

	const q = `DELETE FROM events WHERE id=$1 AND owner_id=$2`

	tag, err := r.pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepo) DeleteAllByOwner(ctx context.Context, ownerID string) (int64, error) {
	defer observeDB(ctx, "db.events.delete_all")()

	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE owner_id=$1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete all events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateBatch inserts events in one transaction. When replaceOwner is
// non-empty, that owner's existing events are deleted first inside the same
// transaction, so a failed import never leaves the store half-replaced.
func (r *eventRepo) CreateBatch(ctx context.Context, events []Event, replaceOwner string) (int64, error) {
	defer observeDB(ctx, "db.events.create_batch")()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	if replaceOwner != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM events WHERE owner_id=$1`, replaceOwner); err != nil {
			return 0, fmt.Errorf("clear events before import: %w", err)
		}
	}

	const q = `INSERT INTO events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, event := range events {
		id := event.ID
		if id == "" {
			id = uuid.NewString()
		}
		batch.Queue(q,
			id, event.OwnerID, event.Instant.UTC(),
			event.LocalDate, event.LocalTime, event.LocalWeekday,
			event.Note, now, now)
	}

	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for range events {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("import event: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close import batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

// UpdateLocalFields applies staged normalization updates as one atomic
// batch. Either every staged row is written or none are.
func (r *eventRepo) UpdateLocalFields(ctx context.Context, updates []LocalFieldsUpdate) (int64, error) {
	defer observeDB(ctx, "db.events.normalize")()

	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin normalization: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE events
SET local_date=$2, local_time=$3, local_weekday=$4, updated_at=$5
WHERE id=$1`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(q, u.EventID, u.LocalDate, u.LocalTime, u.LocalWeekday, now)
	}

	results := tx.SendBatch(ctx, batch)
	var updated int64
	for range updates {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("normalize event: %w", err)
		}
		updated += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close normalization batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit normalization: %w", err)
	}
	return updated, nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.OwnerID, &e.Instant,
		&e.LocalDate, &e.LocalTime, &e.LocalWeekday,
		&e.Note, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Instant = e.Instant.UTC()
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

const tokenColumns = `id, owner_id, label, secret_hash, created_at, revoked_at, last_used_at`

// accessTokenRepo implements AccessTokenRepository.
type accessTokenRepo struct {
	pool *pgxpool.Pool
}

func (r *accessTokenRepo) Create(ctx context.Context, token AccessToken) (*AccessToken, error) {
	defer observeDB(ctx, "db.tokens.create")()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO access_tokens (id, owner_id, label, secret_hash, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + tokenColumns

	created, err := scanToken(r.pool.QueryRow(ctx, q,
		token.ID, token.OwnerID, token.Label, token.SecretHash, token.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	return created, nil
}

func (r *accessTokenRepo) ListByOwner(ctx context.Context, ownerID string) ([]AccessToken, error) {
	defer observeDB(ctx, "db.tokens.list")()

	const q = `SELECT ` + tokenColumns + ` FROM access_tokens
WHERE owner_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list access tokens: %w", err)
	}
	return collectTokens(rows)
}

func (r *accessTokenRepo) GetActiveByID(ctx context.Context, id string) (*AccessToken, error) {
	defer observeDB(ctx, "db.tokens.get_active")()

	const q = `SELECT ` + tokenColumns + ` FROM access_tokens
WHERE id=$1 AND revoked_at IS NULL`

	token, err := scanToken(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get active access token: %w", err)
	}
	return token, nil
}

func (r *accessTokenRepo) Revoke(ctx context.Context, ownerID, id string) error {
	defer observeDB(ctx, "db.tokens.revoke")()

	const q = `UPDATE access_tokens SET revoked_at=NOW()
WHERE id=$1 AND owner_id=$2 AND revoked_at IS NULL`

	tag, err := r.pool.Exec(ctx, q, id, ownerID)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accessTokenRepo) TouchLastUsed(ctx context.Context, id string) error {
	defer observeDB(ctx, "db.tokens.touch")()

	_, err := r.pool.Exec(ctx, `UPDATE access_tokens SET last_used_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("touch access token: %w", err)
	}
	return nil
}

func scanToken(row pgx.Row) (*AccessToken, error) {
	var t AccessToken
	err := row.Scan(&t.ID, &t.OwnerID, &t.Label, &t.SecretHash,
		&t.CreatedAt, &t.RevokedAt, &t.LastUsedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTokens(rows pgx.Rows) ([]AccessToken, error) {
	defer rows.Close()

	var tokens []AccessToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access tokens: %w", err)
	}
	return tokens, nil
}
