package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkrause92/askwave/internal/domain"
)

const uniqueViolationCode = "23505"

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Create(ctx context.Context, title, joinCode string, isActive bool) (*domain.Event, error) {
	var event domain.Event
	err := r.pool.QueryRow(ctx,
		`INSERT INTO events (title, join_code, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING id, title, join_code, is_active, created_at, updated_at`,
		title, joinCode, isActive,
	).Scan(&event.ID, &event.Title, &event.JoinCode, &event.IsActive, &event.CreatedAt, &event.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return nil, domain.ErrJoinCodeTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return &event, nil
}

func (r *EventRepo) GetByJoinCode(ctx context.Context, joinCode string) (*domain.Event, error) {
	var event domain.Event
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, join_code, is_active, created_at, updated_at
		 FROM events WHERE join_code = $1`,
		joinCode,
	).Scan(&event.ID, &event.Title, &event.JoinCode, &event.IsActive, &event.CreatedAt, &event.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by join code: %w", err)
	}
	return &event, nil
}

func (r *EventRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	var event domain.Event
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, join_code, is_active, created_at, updated_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&event.ID, &event.Title, &event.JoinCode, &event.IsActive, &event.CreatedAt, &event.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}
	return &event, nil
}
