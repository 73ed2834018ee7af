package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/velorek/notiq/internal/domain"
	"github.com/velorek/notiq/internal/idempotency"
	"github.com/velorek/notiq/internal/repository"
	"github.com/velorek/notiq/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100

	idempotencyKeyHeader = "Idempotency-Key"
)

// EnqueueRunner is the guarded enqueue entrypoint. The real implementation
// is an idempotency.Guard wrapping the queue processor's transactional
// enqueue.
type EnqueueRunner interface {
	Run(ctx context.Context, key string, userID int64, input service.EnqueueInput) (*idempotency.Result, error)
}

type JobHandler struct {
	enqueue EnqueueRunner
	jobs    repository.JobRepository
}

func NewJobHandler(enqueue EnqueueRunner, jobs repository.JobRepository) (*JobHandler, error) {
	if enqueue == nil {
		return nil, fmt.Errorf("enqueue runner is required")
	}
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	return &JobHandler{enqueue: enqueue, jobs: jobs}, nil
}

func RegisterJobRoutes(router fiber.Router, enqueue EnqueueRunner, jobs repository.JobRepository) error {
	h, err := NewJobHandler(enqueue, jobs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/notifications", h.CreateNotification)
	v1.Get("/notifications", h.ListNotifications)
	v1.Get("/notifications/:id", h.GetNotification)

	return nil
}

type createNotificationRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Channel string `json:"channel"`
	UserID  *int64 `json:"userId"`
}

type jobResponse struct {
	ID           int64     `json:"id"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject"`
	Channel      string    `json:"channel"`
	AttemptCount int       `json:"attemptCount"`
	MaxAttempts  int       `json:"maxAttempts"`
	NextRunAt    time.Time `json:"nextRunAt"`
	LastError    *string   `json:"lastError,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type createNotificationResponse struct {
	JobID    int64        `json:"jobId"`
	Replayed bool         `json:"replayed"`
	Job      *jobResponse `json:"job,omitempty"`
}

type listJobsResponse struct {
	Data []jobResponse `json:"data"`
	Meta listMeta      `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *JobHandler) CreateNotification(c *fiber.Ctx) error {
	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	channel, err := domain.ParseChannelFromString(req.Channel)
	if err != nil {
		return toHTTPError(err)
	}

	var userID int64
	if req.UserID != nil {
		userID = *req.UserID
	}

	input := service.EnqueueInput{
		To:      req.To,
		Subject: req.Subject,
		HTML:    req.HTML,
		UserID:  req.UserID,
		Channel: channel,
	}

	key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
	result, err := h.enqueue.Run(c.Context(), key, userID, input)
	if err != nil {
		return toHTTPError(err)
	}

	response := createNotificationResponse{
		JobID:    result.EntityID,
		Replayed: result.Replay,
	}

	// A replayed job may already be delivered and gone; the recorded id is
	// still the answer.
	job, err := h.jobs.GetByID(c.Context(), result.EntityID)
	switch {
	case err == nil:
		jr := toJobResponse(job)
		response.Job = &jr
	case !errors.Is(err, domain.ErrNotFound):
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(response)
}

func (h *JobHandler) GetNotification(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
	if err != nil {
		return toHTTPError(fmt.Errorf("%w: id must be an integer", domain.ErrValidation))
	}

	job, err := h.jobs.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toJobResponse(job))
}

func (h *JobHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	jobs, total, err := h.jobs.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		data = append(data, toJobResponse(&jobs[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listJobsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if recipient := strings.TrimSpace(c.Query("recipient")); recipient != "" {
		params.Recipient = &recipient
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toJobResponse(j *domain.NotificationJob) jobResponse {
	if j == nil {
		return jobResponse{}
	}

	return jobResponse{
		ID:           j.ID,
		Recipient:    j.Recipient,
		Subject:      j.Subject,
		Channel:      j.Channel.String(),
		AttemptCount: j.AttemptCount,
		MaxAttempts:  j.MaxAttempts,
		NextRunAt:    j.NextRunAt,
		LastError:    j.LastError,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
