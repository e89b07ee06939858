// Package app wires the domain operations: validation, store access, the
// cache-aside lookup and room-event publication.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tkrause92/askwave/internal/domain"
)

// Service implements the application operations behind the HTTP surface.
// The publisher is injected at construction; nothing publishes through
// ambient package state.
type Service struct {
	events    domain.EventRepository
	questions domain.QuestionRepository
	lookup    domain.EventLookup
	publisher domain.RoomPublisher
}

func NewService(events domain.EventRepository, questions domain.QuestionRepository, lookup domain.EventLookup, publisher domain.RoomPublisher) *Service {
	return &Service{
		events:    events,
		questions: questions,
		lookup:    lookup,
		publisher: publisher,
	}
}

// CreateEvent validates and persists a new event. The join code is stored
// normalized so later lookups match regardless of caller formatting.
func (s *Service) CreateEvent(ctx context.Context, title, joinCode string, isActive bool) (*domain.Event, error) {
	title, err := domain.ValidateTitle(title)
	if err != nil {
		return nil, err
	}
	code, err := domain.ValidateJoinCode(joinCode)
	if err != nil {
		return nil, err
	}
	return s.events.Create(ctx, title, code, isActive)
}

// GetEventByJoinCode resolves a raw join code through the cache-aside
// accessor.
func (s *Service) GetEventByJoinCode(ctx context.Context, rawCode string) (*domain.Event, error) {
	if domain.NormalizeJoinCode(rawCode) == "" {
		return nil, &domain.ValidationError{Field: "joinCode", Reason: "join code is required"}
	}
	return s.lookup.GetByJoinCode(ctx, rawCode)
}

// CreateQuestion persists a question against an active event and announces
// it to the event's room on every worker.
func (s *Service) CreateQuestion(ctx context.Context, eventID uuid.UUID, text string) (*domain.Question, error) {
	text, err := domain.ValidateQuestionText(text)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsActive {
		return nil, domain.ErrEventClosed
	}

	question, err := s.questions.Create(ctx, eventID, text)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.ID.String(), domain.EventQuestionCreated, question)
	return question, nil
}

// ListQuestions returns an event's questions, most upvoted first.
func (s *Service) ListQuestions(ctx context.Context, eventID uuid.UUID) ([]domain.Question, error) {
	return s.questions.ListByEvent(ctx, eventID)
}

// UpvoteResult is the payload returned and broadcast after an upvote.
type UpvoteResult struct {
	ID      uuid.UUID `json:"id"`
	Upvotes int       `json:"upvotes"`
}

// UpvoteQuestion atomically increments the counter and announces the new
// count to the question's room.
func (s *Service) UpvoteQuestion(ctx context.Context, questionID uuid.UUID) (*UpvoteResult, error) {
	question, err := s.questions.Upvote(ctx, questionID)
	if err != nil {
		return nil, err
	}

	result := &UpvoteResult{ID: question.ID, Upvotes: question.Upvotes}
	s.publish(ctx, question.EventID.String(), domain.EventQuestionUpvoted, result)
	return result, nil
}

// publish is best-effort: the mutation already committed, and bus delivery
// is non-durable by contract, so a failed publish is logged rather than
// failing the request.
func (s *Service) publish(ctx context.Context, roomID, eventType string, payload any) {
	if err := s.publisher.Publish(ctx, roomID, eventType, payload); err != nil {
		slog.Error("Failed to publish room event",
			"room_id", roomID,
			"event_type", eventType,
			"error", fmt.Errorf("publish: %w", err))
	}
}
