package api

import (
	"net/http"

	"github.com/aethra/qualis/internal/engine"
	"github.com/aethra/qualis/internal/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListRecords returns a process's records, newest first
func (h *Handler) ListRecords(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	records, err := h.Records.List(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// GetRecord returns a record with its schema, values, and permitted
// actions.
func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	detail, err := h.Records.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	actions, err := h.Workflow.Actions(id)
	if err != nil {
		respondError(c, err)
		return
	}
	history, err := h.Workflow.History(id)
	if err != nil {
		respondError(c, err)
		return
	}
	outgoing, err := h.Links.ListOutgoing(id)
	if err != nil {
		respondError(c, err)
		return
	}
	incoming, err := h.Links.ListIncoming(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"record":  detail.Record,
		"schema":  detail.Schema,
		"values":  detail.Values,
		"actions": actions,
		"history": history,
		"links":   gin.H{"outgoing": outgoing, "incoming": incoming},
	})
}

type createRecordRequest struct {
	ProcessID        uuid.UUID `json:"process_id" binding:"required"`
	RecordTitle      string    `json:"record_title"`
	RecordIdentifier string    `json:"record_identifier"`
}

// CreateRecord inserts a record directly, bypassing the wizard.
// Mainly used to resolve pending links.
func (h *Handler) CreateRecord(c *gin.Context) {
	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	record, err := h.Records.Create(req.ProcessID, req.RecordTitle, req.RecordIdentifier, CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// SaveRecordValues validates and upserts a record's field values
func (h *Handler) SaveRecordValues(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Values map[uuid.UUID]string `json:"values"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	if err := h.Records.SaveValues(id, req.Values); err != nil {
		respondError(c, err)
		return
	}

	values, err := h.Records.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values.Values})
}

// =============================================================================
// WORKFLOW
// =============================================================================

type workflowActionRequest struct {
	Action   string `json:"action" binding:"required"`
	Comments string `json:"comments"`
}

// RecordAction applies a workflow transition to a record
func (h *Handler) RecordAction(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req workflowActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	var record interface{}
	var err error
	switch req.Action {
	case engine.ActionApprove:
		record, err = h.Workflow.Approve(id, req.Comments, CurrentUserID(c))
	case engine.ActionReject:
		record, err = h.Workflow.Reject(id, req.Comments, CurrentUserID(c))
	default:
		respondError(c, errors.NewBadRequestError("unknown action '"+req.Action+"'"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// RecordHistory returns a record's audit trail, oldest first
func (h *Handler) RecordHistory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	history, err := h.Workflow.History(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

// =============================================================================
// LINKS
// =============================================================================

// RecordLinks returns a record's outgoing and incoming links
func (h *Handler) RecordLinks(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	outgoing, err := h.Links.ListOutgoing(id)
	if err != nil {
		respondError(c, err)
		return
	}
	incoming, err := h.Links.ListIncoming(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"outgoing": outgoing, "incoming": incoming})
}

// CreateRecordLink records the intent to spawn a follow-on record
func (h *Handler) CreateRecordLink(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TargetProcessID uuid.UUID `json:"target_process_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	link, err := h.Links.CreatePending(id, req.TargetProcessID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// ResolveLink attaches the follow-on record to a pending link
func (h *Handler) ResolveLink(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TargetRecordID uuid.UUID `json:"target_record_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewBadRequestError("invalid request body"))
		return
	}

	link, err := h.Links.Resolve(id, req.TargetRecordID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// PendingLinks returns unresolved links targeting a process
func (h *Handler) PendingLinks(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	links, err := h.Links.PendingForProcess(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// =============================================================================
// DISPLAY-ONLY SUB-ENTITIES
// =============================================================================

// RecordTasks returns the record's placeholder task panel
func (h *Handler) RecordTasks(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Records.Get(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": engine.TasksForRecord(id)})
}

// RecordAudit returns the record's placeholder activity feed
func (h *Handler) RecordAudit(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Records.Get(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": engine.AuditForRecord(id)})
}
