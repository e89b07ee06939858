package httpserver

import (
	"errors"

	"github.com/tkrause92/askwave/internal/domain"
	apperrors "github.com/tkrause92/askwave/internal/errors"
)

// mapDomainError translates domain errors into the structured errors the
// middleware renders. Unknown errors become opaque 500s.
func mapDomainError(err error) *apperrors.Error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return apperrors.ValidationError(validationErr.Reason).WithField("field", validationErr.Field)
	}

	switch {
	case errors.Is(err, domain.ErrJoinCodeTaken):
		return apperrors.ConflictError("join code already exists")
	case errors.Is(err, domain.ErrEventNotFound):
		return apperrors.NotFoundError("event not found")
	case errors.Is(err, domain.ErrQuestionNotFound):
		return apperrors.NotFoundError("question not found")
	case errors.Is(err, domain.ErrEventClosed):
		return apperrors.StateError("this event is closed")
	default:
		return apperrors.InternalError("internal server error", err)
	}
}
