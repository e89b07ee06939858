// Package domain holds the entities, validation rules and ports of the
// audience-interaction system. Adapters (postgres, redis, websocket, http)
// depend on this package, never the other way around.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is an audience session organizers open for questions. Attendees
// find it via its join code.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	JoinCode  string    `json:"joinCode"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Question is a single audience question bound to an event.
type Question struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"eventId"`
	Text      string    `json:"text"`
	Upvotes   int       `json:"upvotes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	titleMinLen    = 3
	titleMaxLen    = 150
	joinCodeMinLen = 4
	joinCodeMaxLen = 12
	questionMinLen = 3
	questionMaxLen = 1000
)

// NormalizeJoinCode trims and uppercases a join code. Every lookup and every
// stored value goes through this, so " abc123 " and "ABC123" resolve to the
// same event.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateTitle checks an event title, returning the trimmed value.
func ValidateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Reason: "title is required"}
	}
	if len(title) < titleMinLen {
		return "", &ValidationError{Field: "title", Reason: "title must be at least 3 characters"}
	}
	if len(title) > titleMaxLen {
		return "", &ValidationError{Field: "title", Reason: "title cannot exceed 150 characters"}
	}
	return title, nil
}

// ValidateJoinCode normalizes and checks a join code, returning the
// normalized value.
func ValidateJoinCode(code string) (string, error) {
	code = NormalizeJoinCode(code)
	if code == "" {
		return "", &ValidationError{Field: "joinCode", Reason: "join code is required"}
	}
	if len(code) < joinCodeMinLen {
		return "", &ValidationError{Field: "joinCode", Reason: "join code must be at least 4 characters"}
	}
	if len(code) > joinCodeMaxLen {
		return "", &ValidationError{Field: "joinCode", Reason: "join code cannot exceed 12 characters"}
	}
	return code, nil
}

// ValidateQuestionText checks question text, returning the trimmed value.
func ValidateQuestionText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Field: "text", Reason: "question text is required"}
	}
	if len(text) < questionMinLen {
		return "", &ValidationError{Field: "text", Reason: "question must be at least 3 characters"}
	}
	if len(text) > questionMaxLen {
		return "", &ValidationError{Field: "text", Reason: "question cannot exceed 1000 characters"}
	}
	return text, nil
}

// EventRepository is the store port for events. Join codes passed in are
// already normalized.
type EventRepository interface {
	Create(ctx context.Context, title, joinCode string, isActive bool) (*Event, error)
	GetByJoinCode(ctx context.Context, joinCode string) (*Event, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
}

// QuestionRepository is the store port for questions. Upvote must be atomic
// across concurrent callers on any worker process.
type QuestionRepository interface {
	Create(ctx context.Context, eventID uuid.UUID, text string) (*Question, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Question, error)
	Upvote(ctx context.Context, id uuid.UUID) (*Question, error)
}

// EventLookup resolves a raw join code to an event, typically through a
// cache. Implementations normalize the code themselves.
type EventLookup interface {
	GetByJoinCode(ctx context.Context, rawCode string) (*Event, error)
}
