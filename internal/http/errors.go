package api

import (
	"database/sql"
	"errors"
	"net/http"

	"pollbooth/internal/domain/poll"
	"pollbooth/internal/domain/user"
	"pollbooth/internal/domain/vote"
	"pollbooth/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrInvalidInput):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, poll.ErrPollNotFound):
		return apperr.NotFound("poll_not_found", "poll not found", err)
	case errors.Is(err, poll.ErrNotCreator):
		return apperr.Forbidden("access_denied", "access denied", err)
	case errors.Is(err, poll.ErrPollExpired):
		return apperr.BadRequest("poll_expired", "poll has expired", err)
	case errors.Is(err, poll.ErrInvalidPoll):
		return apperr.BadRequest("invalid_poll", err.Error(), err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.BadRequest("already_voted", "you have already voted in this poll", err)
	case errors.Is(err, vote.ErrInvalidOption):
		return apperr.BadRequest("invalid_option", "invalid option selected", err)
	case errors.Is(err, vote.ErrNotAllowedRole):
		return apperr.Forbidden("not_allowed", "not allowed to vote", err)
	case errors.Is(err, vote.ErrResultsNotReady):
		return apperr.Forbidden("results_not_ready", "results not available until poll expires", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
