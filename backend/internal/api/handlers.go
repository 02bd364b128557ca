package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persinteret/backend/internal/state"
	apperrors "persinteret/backend/pkg/errors"
)

type handlers struct {
	svc PeopleService
	log *zap.Logger
}

// personRequest is the body of create and update calls.
// Photo travels base64-encoded, as encoding/json does for []byte.
type personRequest struct {
	Name        string   `json:"name" binding:"required"`
	CodeName    string   `json:"code_name"`
	Status      string   `json:"status" binding:"required"`
	DateOfBirth string   `json:"date_of_birth" binding:"required"`
	Connections []string `json:"connections"`
	Photo       []byte   `json:"photo"`
}

func (r personRequest) toPerson(id string) *state.Person {
	return &state.Person{
		ID:          id,
		Name:        r.Name,
		CodeName:    r.CodeName,
		Status:      state.Status(r.Status),
		DateOfBirth: r.DateOfBirth,
		Connections: r.Connections,
		Photo:       r.Photo,
	}
}

func (h *handlers) listPeople(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	people, err := h.svc.List(c.Request.Context(), c.Query("filter"), queryBool(c, "with_image"), limit)
	if err != nil {
		h.fail(c, "Failed to list people", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"people": people, "count": len(people)})
}

func (h *handlers) getPerson(c *gin.Context) {
	person, err := h.svc.Get(c.Request.Context(), c.Param("id"), queryBool(c, "with_image"))
	if err != nil {
		h.fail(c, "Failed to fetch person", err)
		return
	}
	c.JSON(http.StatusOK, person)
}

func (h *handlers) getPhoto(c *gin.Context) {
	data, err := h.svc.Photo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to fetch photo", err)
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Photo not found"})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

func (h *handlers) createPerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person := req.toPerson("")
	if err := h.svc.Save(c.Request.Context(), person); err != nil {
		h.fail(c, "Failed to create person", err)
		return
	}

	person.Photo = nil
	c.JSON(http.StatusCreated, person)
}

func (h *handlers) updatePerson(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person := req.toPerson(c.Param("id"))
	if err := h.svc.Save(c.Request.Context(), person); err != nil {
		h.fail(c, "Failed to update person", err)
		return
	}

	person.Photo = nil
	c.JSON(http.StatusOK, person)
}

func (h *handlers) deletePerson(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "Failed to delete person", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) deleteAll(c *gin.Context) {
	if !queryBool(c, "confirm") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pass confirm=true to delete everything"})
		return
	}
	if err := h.svc.DeleteAll(c.Request.Context()); err != nil {
		h.fail(c, "Failed to delete all people", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to compute statistics", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// fail maps service errors onto HTTP statuses
func (h *handlers) fail(c *gin.Context, msg string, err error) {
	var dup *apperrors.ErrDuplicateName
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		h.log.Warn(msg, zap.Error(err), zap.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": msg})
	default:
		h.log.Error(msg, zap.Error(err), zap.String("request_id", c.GetString("request_id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}
