package handler

import (
	"errors"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/forgo/muster/internal/i18n"
	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/internal/service"
)

// rosterErrorKeys pairs each roster rejection with its user-facing message
var rosterErrorKeys = i18n.ErrorKeys{
	{Err: service.ErrRosterNotFound, Key: i18n.KeyRosterNotFound},
	{Err: service.ErrNotOwner, Key: i18n.KeyNotOwner},
	{Err: service.ErrRosterClosed, Key: i18n.KeyRosterClosed},
	{Err: service.ErrAlreadyJoined, Key: i18n.KeyAlreadyJoined},
	{Err: service.ErrAlreadyWaitlisted, Key: i18n.KeyAlreadyWaitlisted},
	{Err: service.ErrNotParticipating, Key: i18n.KeyNotParticipating},
	{Err: service.ErrInvalidCapacity, Key: i18n.KeyInvalidCapacity},
}

// MapServiceError converts a service error to a ProblemDetails response.
// Roster rejections carry the message for the caller's language in detail.
func MapServiceError(err error, tag language.Tag) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	detail := err.Error()
	if key, ok := rosterErrorKeys.Lookup(err); ok {
		detail = i18n.Printer(tag).Sprintf(key)
	}

	var validationErr *service.ValidationError

	switch {
	// ===== Not Found Errors → 404 =====
	case errors.Is(err, service.ErrRosterNotFound):
		pd := model.NewNotFoundError("roster")
		pd.Detail = detail
		return pd

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrNotOwner):
		return model.NewForbiddenError(detail).WithCode(model.ErrCodeNotOwner)

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, service.ErrRosterClosed):
		return model.NewConflictError(detail).WithCode(model.ErrCodeRosterClosed)
	case errors.Is(err, service.ErrAlreadyJoined):
		return model.NewConflictError(detail).WithCode(model.ErrCodeAlreadyJoined)
	case errors.Is(err, service.ErrAlreadyWaitlisted):
		return model.NewConflictError(detail).WithCode(model.ErrCodeAlreadyWaitlisted)
	case errors.Is(err, service.ErrNotParticipating):
		return model.NewConflictError(detail).WithCode(model.ErrCodeNotParticipating)

	// ===== Validation Errors → 422 =====
	case errors.Is(err, service.ErrInvalidCapacity):
		pd := model.NewValidationError([]model.FieldError{{Field: "capacity", Message: detail}})
		pd.Detail = detail
		return pd.WithCode(model.ErrCodeInvalidCapacity)
	case errors.As(err, &validationErr):
		return model.NewValidationError(validationErr.Fields)

	// ===== Bad Request Errors → 400 =====
	case errors.Is(err, service.ErrUnknownAction):
		return model.NewBadRequestError(detail)

	default:
		slog.Error("unmapped service error", slog.Any("error", err))
		return model.NewInternalError("")
	}
}
