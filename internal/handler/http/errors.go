package http

import (
	"errors"
	"net/http"

	"mystery-night/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HandleServiceError 把业务错误统一映射为 HTTP 状态码。
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrRegistrationFailed):
		ErrorResponse(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrStoryNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrResultNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrNotHost),
		errors.Is(err, service.ErrNotMember):
		ErrorResponse(c, http.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrSessionFull),
		errors.Is(err, service.ErrSessionNotJoinable),
		errors.Is(err, service.ErrNoCharactersLeft),
		errors.Is(err, service.ErrHostCannotLeave),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrVotingClosed),
		errors.Is(err, service.ErrSessionNotCompleted),
		errors.Is(err, service.ErrAlreadyVoted):
		ErrorResponse(c, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrNotEnoughPlayers):
		ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())

	default:
		// Log the internal error for debugging
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
