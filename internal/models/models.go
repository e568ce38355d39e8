// Package models contains the core Qualis data structures.
// A Process is a reusable template of form fields plus an ordered
// approval workflow; records are instances of a process.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// FieldType enumerates the form field types a process can declare
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeEmail    FieldType = "email"
	FieldTypeURL      FieldType = "url"
)

// Valid reports whether ft is one of the known field types
func (ft FieldType) Valid() bool {
	switch ft {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeDate,
		FieldTypeSelect, FieldTypeCheckbox, FieldTypeEmail, FieldTypeURL:
		return true
	}
	return false
}

// WorkflowStatus is the lifecycle state of a process record
type WorkflowStatus string

const (
	StatusDraft      WorkflowStatus = "draft"
	StatusInProgress WorkflowStatus = "in_progress"
	StatusApproved   WorkflowStatus = "approved"
	StatusRejected   WorkflowStatus = "rejected"
	StatusCompleted  WorkflowStatus = "completed"
)

// IsTerminal reports whether no further workflow actions are accepted
func (s WorkflowStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

// UserRole gates workflow steps
type UserRole string

const (
	RoleAdmin           UserRole = "admin"
	RoleQualityManager  UserRole = "quality_manager"
	RoleQualityReviewer UserRole = "quality_reviewer"
	RoleInitiator       UserRole = "initiator"
	RoleQAFinalApprover UserRole = "qa_final_approver"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleQualityManager, RoleQualityReviewer, RoleInitiator, RoleQAFinalApprover:
		return true
	}
	return false
}

// =============================================================================
// PROCESS TEMPLATE MODELS
// =============================================================================

// Process is a named template: a set of form fields plus a linear
// approval workflow. Processes are never hard-deleted; they are
// deactivated via IsActive.
type Process struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string    `json:"name" gorm:"not null;size:100"`
	Description     string    `json:"description"`
	Tag             string    `json:"tag" gorm:"size:50"`
	RecordIDPrefix  string    `json:"record_id_prefix" gorm:"size:20"`
	AISuggestion    string    `json:"ai_suggestion"`
	SubEntityConfig JSONB     `json:"sub_entity_config" gorm:"type:jsonb"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedBy       uuid.UUID `json:"created_by" gorm:"type:uuid"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Relations
	Fields        []ProcessField `json:"fields,omitempty" gorm:"foreignKey:ProcessID"`
	WorkflowSteps []WorkflowStep `json:"workflow_steps,omitempty" gorm:"foreignKey:ProcessID"`
}

// BeforeCreate assigns the ID; uuids are generated in the application,
// not by the database, so the same models work on every driver.
func (p *Process) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProcessField is one form field of a process. FieldName is the
// machine key, unique within the process; DisplayOrder defines both
// render and validation order.
type ProcessField struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProcessID       uuid.UUID  `json:"process_id" gorm:"type:uuid;index;uniqueIndex:idx_process_field_name"`
	FieldName       string     `json:"field_name" gorm:"not null;size:50;uniqueIndex:idx_process_field_name"`
	FieldLabel      string     `json:"field_label" gorm:"not null;size:100"`
	FieldType       FieldType  `json:"field_type" gorm:"not null;size:20"`
	IsRequired      bool       `json:"is_required" gorm:"default:false"`
	FieldOptions    StringList `json:"field_options" gorm:"type:text"`
	ValidationRules JSONB      `json:"validation_rules" gorm:"type:jsonb"`
	DisplayOrder    int        `json:"display_order" gorm:"default:0"`
	CreatedAt       time.Time  `json:"created_at"`

	// Relations
	Process *Process `json:"process,omitempty" gorm:"foreignKey:ProcessID"`
}

func (f *ProcessField) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// WorkflowStep is one stage of a process's approval sequence.
// StepOrder defines the total order of the state machine; values need
// not be contiguous.
type WorkflowStep struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProcessID    uuid.UUID `json:"process_id" gorm:"type:uuid;index"`
	StepName     string    `json:"step_name" gorm:"not null;size:100"`
	StepOrder    int       `json:"step_order" gorm:"not null"`
	RequiredRole UserRole  `json:"required_role" gorm:"not null;size:30"`
	CanApprove   bool      `json:"can_approve" gorm:"default:true"`
	CanReject    bool      `json:"can_reject" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`

	// Relations
	Process *Process `json:"process,omitempty" gorm:"foreignKey:ProcessID"`
}

func (s *WorkflowStep) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// =============================================================================
// RECORD MODELS
// =============================================================================

// ProcessRecord is one instance of a process. CurrentStepID is only
// meaningful while the status is draft or in_progress; nil means the
// record has no active step.
type ProcessRecord struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ProcessID        uuid.UUID      `json:"process_id" gorm:"type:uuid;index"`
	RecordTitle      string         `json:"record_title" gorm:"not null"`
	RecordIdentifier string         `json:"record_identifier" gorm:"size:30"`
	CurrentStatus    WorkflowStatus `json:"current_status" gorm:"not null;size:20;default:draft"`
	CurrentStepID    *uuid.UUID     `json:"current_step_id" gorm:"type:uuid"`
	CreatedBy        uuid.UUID      `json:"created_by" gorm:"type:uuid"`
	AssignedTo       *uuid.UUID     `json:"assigned_to" gorm:"type:uuid"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`

	// Relations
	Process     *Process           `json:"process,omitempty" gorm:"foreignKey:ProcessID"`
	CurrentStep *WorkflowStep      `json:"current_step,omitempty" gorm:"foreignKey:CurrentStepID"`
	FieldValues []RecordFieldValue `json:"field_values,omitempty" gorm:"foreignKey:RecordID"`
}

func (r *ProcessRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RecordFieldValue holds the value of one process field for one
// record. At most one row exists per (record, field) pair; edits
// upsert in place. Values are stored as opaque strings regardless of
// the declared field type.
type RecordFieldValue struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	RecordID   uuid.UUID `json:"record_id" gorm:"type:uuid;index;uniqueIndex:idx_record_field"`
	FieldID    uuid.UUID `json:"field_id" gorm:"type:uuid;uniqueIndex:idx_record_field"`
	FieldValue string    `json:"field_value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Field *ProcessField `json:"field,omitempty" gorm:"foreignKey:FieldID"`
}

func (v *RecordFieldValue) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// WorkflowHistory is an append-only audit entry, one per workflow
// transition. Rows are never updated or deleted.
type WorkflowHistory struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	RecordID    uuid.UUID  `json:"record_id" gorm:"type:uuid;index"`
	FromStepID  *uuid.UUID `json:"from_step_id" gorm:"type:uuid"`
	ToStepID    *uuid.UUID `json:"to_step_id" gorm:"type:uuid"`
	Action      string     `json:"action" gorm:"not null;size:30"`
	Comments    string     `json:"comments"`
	PerformedBy uuid.UUID  `json:"performed_by" gorm:"type:uuid"`
	PerformedAt time.Time  `json:"performed_at"`

	// Relations
	FromStep *WorkflowStep `json:"from_step,omitempty" gorm:"foreignKey:FromStepID"`
	ToStep   *WorkflowStep `json:"to_step,omitempty" gorm:"foreignKey:ToStepID"`
}

func (h *WorkflowHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.PerformedAt.IsZero() {
		h.PerformedAt = time.Now()
	}
	return nil
}

// RecordLink is a directed edge: the source record, upon completion,
// should trigger a record in the target process. TargetRecordID stays
// nil ("pending") until the follow-on record is created, and is
// immutable once set.
type RecordLink struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	SourceRecordID  uuid.UUID  `json:"source_record_id" gorm:"type:uuid;index"`
	TargetProcessID uuid.UUID  `json:"target_process_id" gorm:"type:uuid;index"`
	TargetRecordID  *uuid.UUID `json:"target_record_id" gorm:"type:uuid;index"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (l *RecordLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// =============================================================================
// IDENTITY MODEL
// =============================================================================

// UserProfile identifies a user for created_by / performed_by fields.
// Role enforcement is out of scope; the profile feeds the audit trail
// and the workflow step role display.
type UserProfile struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FullName     string    `json:"full_name" gorm:"size:100"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	Role         UserRole  `json:"role" gorm:"size:30"`
	Department   string    `json:"department" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DemoUserID is the fixed placeholder identity used when a request
// carries no user context.
var DemoUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// AllModels lists every table for migration, dependencies first.
func AllModels() []interface{} {
	return []interface{}{
		&UserProfile{},
		&Process{},
		&ProcessField{},
		&WorkflowStep{},
		&ProcessRecord{},
		&RecordFieldValue{},
		&WorkflowHistory{},
		&RecordLink{},
	}
}
