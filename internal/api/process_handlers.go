package api

import (
	"io"
	"net/http"

	"github.com/aethra/qualis/internal/engine"
	"github.com/aethra/qualis/internal/errors"
	"github.com/gin-gonic/gin"
)

// ListProcesses returns the process catalog with record counts
func (h *Handler) ListProcesses(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	summaries, err := h.Schema.ListProcesses(includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processes": summaries})
}

// GetProcess returns one process with its ordered fields and steps
func (h *Handler) GetProcess(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	schema, err := h.Schema.GetProcessSchema(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// CreateProcess creates a process from a wizard-completion payload
func (h *Handler) CreateProcess(c *gin.Context) {
	var input engine.CreateProcessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	schema, err := h.Schema.CreateProcess(input, CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, schema)
}

// UpdateProcess mutates process configuration
func (h *Handler) UpdateProcess(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input engine.UpdateProcessInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	schema, err := h.Schema.UpdateProcess(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema)
}

// ProcessEvents streams process catalog changes as server-sent events
func (h *Handler) ProcessEvents(c *gin.Context) {
	events, cancel := h.Notifier.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("process_change", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// =============================================================================
// FIELD ADMIN
// =============================================================================

// AddField appends a field to a process
func (h *Handler) AddField(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input engine.FieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	field, err := h.Schema.AddField(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, field)
}

// UpdateField mutates a field definition
func (h *Handler) UpdateField(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input engine.UpdateFieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	field, err := h.Schema.UpdateField(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, field)
}

// DeleteField removes a field definition when no values reference it
func (h *Handler) DeleteField(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Schema.DeleteField(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// =============================================================================
// STEP ADMIN
// =============================================================================

// AddStep appends a workflow step to a process
func (h *Handler) AddStep(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input engine.StepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	step, err := h.Schema.AddStep(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, step)
}

// UpdateStep mutates a workflow step definition
func (h *Handler) UpdateStep(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input engine.UpdateStepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	step, err := h.Schema.UpdateStep(id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, step)
}

// DeleteStep removes a vacated workflow step
func (h *Handler) DeleteStep(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.Schema.DeleteStep(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
