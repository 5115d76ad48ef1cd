package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-ivr/internal/admission"
	"github.com/celerix-dev/celerix-ivr/internal/conversation"
	"github.com/celerix-dev/celerix-ivr/internal/results"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// Failure is the envelope for every non-business error.
type Failure struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

// StatusOf maps an error to the HTTP status of its failure envelope. Upstream
// statuses (AI engine, AWS) pass through; anything unknown is a 500.
func StatusOf(err error) int {
	var br badRequestError
	switch {
	case errors.As(err, &br),
		errors.Is(err, admission.ErrMissingInput),
		errors.Is(err, conversation.ErrEmptyUtterance),
		errors.Is(err, conversation.ErrMalformedToken):
		return http.StatusBadRequest
	case errors.Is(err, sdk.ErrNotFound),
		errors.Is(err, conversation.ErrUnknownJob),
		errors.Is(err, results.ErrNoRows),
		errors.Is(err, ErrNoRecordings):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrConversationEnded):
		return http.StatusConflict
	case errors.Is(err, ErrRecordingsDisabled):
		return http.StatusServiceUnavailable
	}

	var coder httpStatusCoder
	if errors.As(err, &coder) {
		if code := coder.HTTPStatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= 500 {
		h.logger().Error("request failed", "path", c.FullPath(), "request_id", c.GetString(RequestIDKey), "error", err)
	}
	c.JSON(status, Failure{StatusCode: status, Message: err.Error()})
}
