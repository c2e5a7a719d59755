package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"todo-api/internal/events"
	"todo-api/internal/models"
	"todo-api/internal/repository"
	"todo-api/pkg/logger"
)

// maxBodyBytes caps request bodies; titles are short.
const maxBodyBytes = 64 << 10

// Error kinds on the wire.
const (
	kindValidation  = "validation_error"
	kindNotFound    = "not_found"
	kindUnavailable = "storage_unavailable"
)

var errEmptyBody = fmt.Errorf("%w: request body is empty", repository.ErrValidation)

// Todos serves /api/todos. It keeps no state between requests: every call
// goes straight to the store.
type Todos struct {
	store  repository.Store
	events events.Publisher
}

// NewTodos wires handlers to a store. A nil publisher disables events.
func NewTodos(store repository.Store, pub events.Publisher) *Todos {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Todos{store: store, events: pub}
}

// List returns todos, optionally filtered by ?category=. Always 200.
func (h *Todos) List(c *gin.Context) {
	ctx := c.Request.Context()
	todos, err := h.store.List(ctx, models.Category(c.Query("category")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, todos)
}

type createRequest struct {
	Title    *string         `json:"title" binding:"required"`
	Category models.Category `json:"category"`
}

// Create adds a todo and returns it with 201.
func (h *Todos) Create(c *gin.Context) {
	ctx := c.Request.Context()
	var body createRequest
	if err := bindJSON(c, &body); err != nil {
		writeError(c, err)
		return
	}
	if strings.TrimSpace(*body.Title) == "" {
		writeError(c, fmt.Errorf("%w: title must not be empty", repository.ErrValidation))
		return
	}
	todo, err := h.store.Add(ctx, *body.Title, body.Category)
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(ctx, events.NewEvent(models.ActionCreated, todo.ID, &todo))
	c.JSON(http.StatusCreated, todo)
}

// Update renames or toggles a todo. See updateBody.request for how the body
// picks one of the two.
func (h *Todos) Update(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	req, err := bindUpdate(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var (
		todo   models.Todo
		action string
	)
	switch req.op {
	case opRename:
		todo, err = h.store.UpdateTitle(ctx, id, req.title)
		action = models.ActionRenamed
	default:
		todo, err = h.store.Toggle(ctx, id)
		action = models.ActionToggled
	}
	if err != nil {
		writeError(c, err)
		return
	}
	h.publish(ctx, events.NewEvent(action, todo.ID, &todo))
	c.JSON(http.StatusOK, todo)
}

// Delete removes a todo; 404 when it was already gone.
func (h *Todos) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := parseID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	deleted, err := h.store.Delete(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		writeError(c, repository.ErrNotFound)
		return
	}
	h.publish(ctx, events.NewEvent(models.ActionDeleted, id, nil))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Health returns 200 if the process is alive. Used by load balancers.
func (h *Todos) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 if the store answers a ping.
func (h *Todos) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logger.Warn(ctx, "Readiness ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "storage unavailable"})
		return
	}
	c.String(http.StatusOK, "OK")
}

// publish never fails the request: the write is already committed.
func (h *Todos) publish(ctx context.Context, ev models.TodoEvent) {
	if err := h.events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "Publish todo event failed", "error", err, "action", ev.Action, "id", ev.ID)
	}
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id must be an integer", repository.ErrValidation)
	}
	return id, nil
}

// bindJSON decodes the body into v with gin's binding and validates its
// binding tags. The body is capped at maxBodyBytes. Every failure is a
// validation error; an empty body is errEmptyBody.
func bindJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil {
		return errEmptyBody
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	err := c.ShouldBindJSON(v)
	if err == nil {
		return nil
	}
	var (
		tooLarge *http.MaxBytesError
		invalid  validator.ValidationErrors
	)
	switch {
	case errors.Is(err, io.EOF):
		return errEmptyBody
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: request body exceeds %d bytes", repository.ErrValidation, tooLarge.Limit)
	case errors.As(err, &invalid) && len(invalid) > 0:
		return fmt.Errorf("%w: %s", repository.ErrValidation, fieldMessage(invalid[0]))
	default:
		return fmt.Errorf("%w: malformed JSON body", repository.ErrValidation)
	}
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return name + " must be one of " + fe.Param()
	default:
		return name + " is invalid"
	}
}

type updateOp int

const (
	opToggle updateOp = iota
	opRename
)

// updateRequest is the decoded PUT body as an explicit variant.
type updateRequest struct {
	op    updateOp
	title string
}

type updateBody struct {
	Title  *string `json:"title"`
	Action string  `json:"action" binding:"omitempty,oneof=toggle rename"`
}

// bindUpdate reads the PUT body. An empty body is a toggle.
func bindUpdate(c *gin.Context) (updateRequest, error) {
	var body updateBody
	if err := bindJSON(c, &body); err != nil && !errors.Is(err, errEmptyBody) {
		return updateRequest{}, err
	}
	return body.request()
}

// request picks the variant. An explicit action of "toggle" or "rename"
// wins; without one a present title means rename and an absent title means
// toggle, matching what existing clients send.
func (b updateBody) request() (updateRequest, error) {
	switch b.Action {
	case "toggle":
		return updateRequest{op: opToggle}, nil
	case "rename":
		if b.Title == nil {
			return updateRequest{}, fmt.Errorf("%w: rename requires a title", repository.ErrValidation)
		}
		return updateRequest{op: opRename, title: *b.Title}, nil
	case "":
		if b.Title != nil {
			return updateRequest{op: opRename, title: *b.Title}, nil
		}
		return updateRequest{op: opToggle}, nil
	default:
		return updateRequest{}, fmt.Errorf("%w: unknown action %q", repository.ErrValidation, b.Action)
	}
}

// writeError maps the error kinds to fixed responses. Backend detail is
// logged, never sent.
func writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, repository.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": kindValidation, "message": validationMessage(err)})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": kindNotFound, "message": "todo not found"})
	case errors.Is(err, context.Canceled):
		// The client went away; nothing is wrong with storage.
		logger.Debug(ctx, "Request canceled", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": kindUnavailable, "message": "request canceled"})
	default:
		logger.Error(ctx, "Storage operation failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": kindUnavailable, "message": "storage unavailable"})
	}
}

// validationMessage strips the "repository: op:" prefix and keeps the part
// meant for users.
func validationMessage(err error) string {
	var repoErr *repository.Error
	if errors.As(err, &repoErr) {
		err = repoErr.Err
	}
	return err.Error()
}
