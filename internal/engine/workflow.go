package engine

import (
	"log"
	"strings"
	"time"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workflow history actions
const (
	ActionCreate  = "create"
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// WorkflowEngine drives records through their process's approval
// sequence. Transitions are approve (advance or finish) and reject
// (terminal); everything else is a refusal.
type WorkflowEngine struct {
	db *gorm.DB
}

// NewWorkflowEngine creates a new workflow engine
func NewWorkflowEngine(db *gorm.DB) *WorkflowEngine {
	return &WorkflowEngine{db: db}
}

// RecordActions describes what the workflow currently permits on a
// record, for rendering action buttons.
type RecordActions struct {
	CanApprove  bool                  `json:"can_approve"`
	CanReject   bool                  `json:"can_reject"`
	CurrentStep *models.WorkflowStep  `json:"current_step,omitempty"`
	Status      models.WorkflowStatus `json:"status"`
}

// FirstStep returns the entry step of a process, or nil when the
// process defines no workflow.
func (e *WorkflowEngine) FirstStep(processID uuid.UUID) (*models.WorkflowStep, error) {
	steps, err := e.orderedSteps(processID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, nil
	}
	return &steps[0], nil
}

// orderedSteps loads a process's steps in traversal order. Equal
// step_order values fall back to creation order so the sequence is
// still deterministic.
func (e *WorkflowEngine) orderedSteps(processID uuid.UUID) ([]models.WorkflowStep, error) {
	var steps []models.WorkflowStep
	if err := e.db.Where("process_id = ?", processID).
		Order("step_order").Order("created_at").Order("id").
		Find(&steps).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return steps, nil
}

// nextStep returns the step with the smallest step_order strictly
// greater than current's, or nil when current is the last step.
func nextStep(steps []models.WorkflowStep, current *models.WorkflowStep) *models.WorkflowStep {
	for i := range steps {
		if steps[i].StepOrder > current.StepOrder {
			return &steps[i]
		}
	}
	return nil
}

func findStep(steps []models.WorkflowStep, id uuid.UUID) *models.WorkflowStep {
	for i := range steps {
		if steps[i].ID == id {
			return &steps[i]
		}
	}
	return nil
}

// Actions reports the permitted workflow actions for a record
func (e *WorkflowEngine) Actions(recordID uuid.UUID) (*RecordActions, error) {
	record, err := e.loadRecord(recordID)
	if err != nil {
		return nil, err
	}

	actions := &RecordActions{Status: record.CurrentStatus}
	if record.CurrentStatus.IsTerminal() || record.CurrentStepID == nil {
		return actions, nil
	}

	steps, err := e.orderedSteps(record.ProcessID)
	if err != nil {
		return nil, err
	}
	current := findStep(steps, *record.CurrentStepID)
	if current == nil {
		return actions, nil
	}

	actions.CurrentStep = current
	actions.CanApprove = current.CanApprove
	actions.CanReject = current.CanReject
	return actions, nil
}

// Approve advances a record to the next workflow step, or to the
// approved terminal state when the current step is the last one.
func (e *WorkflowEngine) Approve(recordID uuid.UUID, comments string, performedBy uuid.UUID) (*models.ProcessRecord, error) {
	record, current, steps, err := e.actionable(recordID)
	if err != nil {
		return nil, err
	}
	if !current.CanApprove {
		return nil, errors.NewBadRequestError("current step does not permit approval")
	}

	fromStepID := record.CurrentStepID
	next := nextStep(steps, current)
	if next != nil {
		record.CurrentStatus = models.StatusInProgress
		stepID := next.ID
		record.CurrentStepID = &stepID
	} else {
		record.CurrentStatus = models.StatusApproved
		record.CurrentStepID = nil
	}
	record.UpdatedAt = time.Now()

	if err := e.db.Save(record).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	e.appendHistory(models.WorkflowHistory{
		RecordID:    record.ID,
		FromStepID:  fromStepID,
		ToStepID:    record.CurrentStepID,
		Action:      ActionApprove,
		Comments:    comments,
		PerformedBy: performedBy,
	})
	return record, nil
}

// Reject moves a record to the rejected terminal state. A comment is
// mandatory; nobody should have to guess why a record was rejected.
func (e *WorkflowEngine) Reject(recordID uuid.UUID, comments string, performedBy uuid.UUID) (*models.ProcessRecord, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, errors.NewValidationError("comments", "a comment is required when rejecting")
	}

	record, current, _, err := e.actionable(recordID)
	if err != nil {
		return nil, err
	}
	if !current.CanReject {
		return nil, errors.NewBadRequestError("current step does not permit rejection")
	}

	fromStepID := record.CurrentStepID
	record.CurrentStatus = models.StatusRejected
	record.CurrentStepID = nil
	record.UpdatedAt = time.Now()

	if err := e.db.Save(record).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	e.appendHistory(models.WorkflowHistory{
		RecordID:    record.ID,
		FromStepID:  fromStepID,
		ToStepID:    nil,
		Action:      ActionReject,
		Comments:    comments,
		PerformedBy: performedBy,
	})
	return record, nil
}

// History returns a record's audit trail, oldest first, with step
// names resolved.
func (e *WorkflowEngine) History(recordID uuid.UUID) ([]models.WorkflowHistory, error) {
	var history []models.WorkflowHistory
	if err := e.db.Where("record_id = ?", recordID).
		Preload("FromStep").Preload("ToStep").
		Order("performed_at").Order("id").
		Find(&history).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return history, nil
}

// RecordCreated appends the guided-creation entry to a record's
// audit trail. Direct record inserts carry no create entry.
func (e *WorkflowEngine) RecordCreated(record *models.ProcessRecord, performedBy uuid.UUID) {
	e.appendHistory(models.WorkflowHistory{
		RecordID:    record.ID,
		FromStepID:  nil,
		ToStepID:    record.CurrentStepID,
		Action:      ActionCreate,
		PerformedBy: performedBy,
	})
}

// actionable loads a record and verifies it can accept a workflow
// action, returning its current step and the full step sequence.
func (e *WorkflowEngine) actionable(recordID uuid.UUID) (*models.ProcessRecord, *models.WorkflowStep, []models.WorkflowStep, error) {
	record, err := e.loadRecord(recordID)
	if err != nil {
		return nil, nil, nil, err
	}

	if record.CurrentStatus.IsTerminal() {
		return nil, nil, nil, errors.NewWorkflowCompleteError()
	}

	steps, err := e.orderedSteps(record.ProcessID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(steps) == 0 || record.CurrentStepID == nil {
		return nil, nil, nil, errors.NewNoActiveWorkflowError()
	}

	current := findStep(steps, *record.CurrentStepID)
	if current == nil {
		return nil, nil, nil, errors.NewNoActiveWorkflowError()
	}
	return record, current, steps, nil
}

func (e *WorkflowEngine) loadRecord(recordID uuid.UUID) (*models.ProcessRecord, error) {
	var record models.ProcessRecord
	if err := e.db.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("record")
		}
		return nil, errors.NewInternalError(err)
	}
	return &record, nil
}

// appendHistory writes an audit entry. History is best-effort: a
// failed insert is logged, never propagated, so the state change that
// preceded it stands.
func (e *WorkflowEngine) appendHistory(entry models.WorkflowHistory) {
	if err := e.db.Create(&entry).Error; err != nil {
		log.Printf("workflow history insert failed for record %s: %v", entry.RecordID, err)
	}
}
