package api

import (
	"net/http"

	"github.com/aethra/qualis/internal/engine"
	"github.com/aethra/qualis/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type startWizardRequest struct {
	ProcessID uuid.UUID                `json:"process_id" binding:"required"`
	Answers   *engine.DiscoveryAnswers `json:"answers"`
}

// StartWizard opens a guided creation session for a process
func (h *Handler) StartWizard(c *gin.Context) {
	var req startWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	session, err := h.Wizard.Start(req.ProcessID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// GetWizard returns a session's current state
func (h *Handler) GetWizard(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	session, err := h.Wizard.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type updateWizardRequest struct {
	Title           *string              `json:"title"`
	Values          map[uuid.UUID]string `json:"values"`
	LinkedProcessID *uuid.UUID           `json:"linked_process_id"`
}

// UpdateWizard merges user input into a session
func (h *Handler) UpdateWizard(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req updateWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	session, err := h.Wizard.Update(id, req.Title, req.Values, req.LinkedProcessID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// WizardNext advances a session one stage
func (h *Handler) WizardNext(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	session, err := h.Wizard.Next(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// WizardPrevious steps a session back one stage
func (h *Handler) WizardPrevious(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	session, err := h.Wizard.Previous(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CommitWizard turns a review-stage session into a persisted record
func (h *Handler) CommitWizard(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.Wizard.Commit(id, CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CancelWizard discards a session
func (h *Handler) CancelWizard(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	h.Wizard.Cancel(id)
	c.Status(http.StatusNoContent)
}
