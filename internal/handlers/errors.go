package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupnet-service/internal/engine"
	"groupnet-service/internal/observability"
)

// statusForEngineError maps the engine's validation failures onto HTTP
// statuses. Anything unrecognized is treated as an internal error.
func statusForEngineError(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotAuthorized),
		errors.Is(err, engine.ErrNotAMember):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrNoSuchRequest),
		errors.Is(err, engine.ErrGroupNotFound),
		errors.Is(err, engine.ErrChannelNotFound),
		errors.Is(err, engine.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyMember),
		errors.Is(err, engine.ErrAlreadyConnected):
		return http.StatusConflict
	case errors.Is(err, engine.ErrSelfConnection),
		errors.Is(err, engine.ErrMissingImage),
		errors.Is(err, engine.ErrEmptyText):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondEngineError(c *gin.Context, err error) {
	c.JSON(statusForEngineError(err), gin.H{"error": err.Error()})
}

// engineOutcome labels an operation result for the engine ops metric.
func engineOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, engine.ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, engine.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, engine.ErrNoSuchRequest):
		return "no_such_request"
	case errors.Is(err, engine.ErrSelfConnection):
		return "self_connection"
	case errors.Is(err, engine.ErrAlreadyConnected):
		return "already_connected"
	case errors.Is(err, engine.ErrNotAMember):
		return "not_a_member"
	case errors.Is(err, engine.ErrMissingImage):
		return "missing_image"
	case errors.Is(err, engine.ErrEmptyText):
		return "empty_text"
	case errors.Is(err, engine.ErrGroupNotFound),
		errors.Is(err, engine.ErrChannelNotFound),
		errors.Is(err, engine.ErrProfileNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func recordEngineOp(op string, err error) {
	observability.IncEngineOp(op, engineOutcome(err))
}
