package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-ivr/internal/admission"
	"github.com/celerix-dev/celerix-ivr/internal/conversation"
	"github.com/celerix-dev/celerix-ivr/pkg/schema"
	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

var (
	// ErrNoRecordings is returned when a contact has no recordings to tag.
	ErrNoRecordings = errors.New("no recordings for contact")
	// ErrRecordingsDisabled is returned when no recordings bucket is configured.
	ErrRecordingsDisabled = errors.New("recordings bucket not configured")
)

// Recordings lists and tags stored call recordings.
type Recordings interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	PutTags(ctx context.Context, bucket, key string, tags map[string]string) error
}

// ResultWriter records the interview outcome in the relational database.
type ResultWriter interface {
	RecordInterview(ctx context.Context, opportunityResultID, status, recordingKey string) error
}

// Handler serves the endpoints the telephony platform calls.
type Handler struct {
	Gate         *admission.Gate
	Consumer     *admission.Consumer
	Orchestrator *conversation.Orchestrator

	Callers     sdk.ItemReader
	CallerTable string

	Recordings       Recordings
	RecordingsBucket string
	RecordingsPrefix string

	Results ResultWriter
	Logger  *slog.Logger
}

type validateRequest struct {
	Token       string `json:"token" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type consumeRequest struct {
	Token string `json:"token" binding:"required"`
}

type tagRequest struct {
	ContactID string `json:"contactId" binding:"required"`
	Token     string `json:"token" binding:"required"`
}

type resultRequest struct {
	OpportunityResultID string `json:"opportunityResultId" binding:"required"`
	Status              string `json:"status" binding:"required"`
	RecordingKey        string `json:"recordingKey"`
}

// Validate admits or rejects a caller. Every business outcome is a 200.
func (h *Handler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	res, err := h.Gate.Admit(c.Request.Context(), req.Token, req.PhoneNumber)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	if err := h.Consumer.Consume(c.Request.Context(), req.Token); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consumed": true})
}

// Turn runs one conversational exchange.
func (h *Handler) Turn(c *gin.Context) {
	var req conversation.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	resp, err := h.Orchestrator.Turn(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TagRecordings labels every recording of a contact with the caller's identifiers.
func (h *Handler) TagRecordings(c *gin.Context) {
	if h.Recordings == nil || h.RecordingsBucket == "" {
		h.fail(c, ErrRecordingsDisabled)
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	ctx := c.Request.Context()

	rec, err := sdk.Get[schema.CallerRecord](ctx, h.Callers, h.CallerTable, req.Token)
	if err != nil {
		h.fail(c, err)
		return
	}

	prefix := strings.TrimSuffix(h.RecordingsPrefix, "/") + "/" + req.ContactID
	keys, err := h.Recordings.List(ctx, h.RecordingsBucket, prefix)
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(keys) == 0 {
		h.fail(c, ErrNoRecordings)
		return
	}

	tags := map[string]string{
		"candidateToken":      rec.Token,
		"jobPostId":           rec.JobPostID,
		"opportunityResultId": rec.OpportunityResultID,
	}
	for _, key := range keys {
		if err := h.Recordings.PutTags(ctx, h.RecordingsBucket, key, tags); err != nil {
			h.fail(c, err)
			return
		}
	}
	h.logger().Info("recordings tagged", "contact_id", req.ContactID, "count", len(keys))
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RecordResult stores the interview outcome.
func (h *Handler) RecordResult(c *gin.Context) {
	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest(err))
		return
	}
	if err := h.Results.RecordInterview(c.Request.Context(), req.OpportunityResultID, req.Status, req.RecordingKey); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
