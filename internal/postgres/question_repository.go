package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkrause92/askwave/internal/domain"
)

type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

func (r *QuestionRepo) Create(ctx context.Context, eventID uuid.UUID, text string) (*domain.Question, error) {
	var question domain.Question
	err := r.pool.QueryRow(ctx,
		`INSERT INTO questions (event_id, text)
		 VALUES ($1, $2)
		 RETURNING id, event_id, text, upvotes, created_at, updated_at`,
		eventID, text,
	).Scan(&question.ID, &question.EventID, &question.Text, &question.Upvotes, &question.CreatedAt, &question.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return &question, nil
}

func (r *QuestionRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_id, text, upvotes, created_at, updated_at
		 FROM questions
		 WHERE event_id = $1
		 ORDER BY upvotes DESC, created_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.EventID, &q.Text, &q.Upvotes, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}
	return questions, nil
}

// Upvote increments the counter in a single UPDATE. The store serializes
// concurrent increments, so this is the only cross-worker synchronization
// point for the counter.
func (r *QuestionRepo) Upvote(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	var question domain.Question
	err := r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET upvotes = upvotes + 1, updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, event_id, text, upvotes, created_at, updated_at`,
		id,
	).Scan(&question.ID, &question.EventID, &question.Text, &question.Upvotes, &question.CreatedAt, &question.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upvote question: %w", err)
	}
	return &question, nil
}
