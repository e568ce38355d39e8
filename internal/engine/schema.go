// Package engine contains the core Qualis services: process schema
// management, the dynamic field engine, the workflow state machine,
// record linking, and the guided creation wizard.
package engine

import (
	"fmt"
	"strings"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/aethra/qualis/internal/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SchemaService owns process templates: the process row and its
// field and workflow step children.
type SchemaService struct {
	db       *gorm.DB
	notifier *Notifier
}

// NewSchemaService creates a new schema service
func NewSchemaService(db *gorm.DB, notifier *Notifier) *SchemaService {
	return &SchemaService{db: db, notifier: notifier}
}

// ProcessSchema is a process with its children in canonical order:
// fields by display_order, steps by step_order.
type ProcessSchema struct {
	Process *models.Process       `json:"process"`
	Fields  []models.ProcessField `json:"fields"`
	Steps   []models.WorkflowStep `json:"workflow_steps"`
}

// ProcessSummary is a process plus its record count, for list views.
type ProcessSummary struct {
	models.Process
	RecordCount int64 `json:"record_count"`
}

// =============================================================================
// INPUTS
// =============================================================================

// FieldInput describes one field of a new or edited process.
type FieldInput struct {
	FieldName       string            `json:"field_name"`
	FieldLabel      string            `json:"field_label"`
	FieldType       models.FieldType  `json:"field_type"`
	IsRequired      bool              `json:"is_required"`
	FieldOptions    models.StringList `json:"field_options"`
	ValidationRules models.JSONB      `json:"validation_rules"`
	DisplayOrder    int               `json:"display_order"`
}

// StepInput describes one workflow step of a new or edited process.
type StepInput struct {
	StepName     string          `json:"step_name"`
	StepOrder    int             `json:"step_order"`
	RequiredRole models.UserRole `json:"required_role"`
	CanApprove   bool            `json:"can_approve"`
	CanReject    bool            `json:"can_reject"`
}

// CreateProcessInput is the wizard-completion payload: the process
// plus the (possibly AI-suggested, user-edited) fields and steps.
type CreateProcessInput struct {
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Tag             string       `json:"tag"`
	RecordIDPrefix  string       `json:"record_id_prefix"`
	AISuggestion    string       `json:"ai_suggestion"`
	SubEntityConfig models.JSONB `json:"sub_entity_config"`
	Fields          []FieldInput `json:"fields"`
	Steps           []StepInput  `json:"workflow_steps"`
}

// =============================================================================
// SCHEMA RETRIEVAL
// =============================================================================

// GetProcessSchema returns a process with its ordered fields and steps
func (s *SchemaService) GetProcessSchema(processID uuid.UUID) (*ProcessSchema, error) {
	var process models.Process
	if err := s.db.First(&process, "id = ?", processID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("process")
		}
		return nil, errors.NewInternalError(err)
	}

	var fields []models.ProcessField
	if err := s.db.Where("process_id = ?", processID).
		Order("display_order").Find(&fields).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	var steps []models.WorkflowStep
	if err := s.db.Where("process_id = ?", processID).
		Order("step_order").Find(&steps).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	return &ProcessSchema{Process: &process, Fields: fields, Steps: steps}, nil
}

// ListProcesses returns processes with their record counts. Inactive
// processes are included only when requested (configuration pages).
func (s *SchemaService) ListProcesses(includeInactive bool) ([]ProcessSummary, error) {
	query := s.db.Model(&models.Process{}).Order("name")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var processes []models.Process
	if err := query.Find(&processes).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	summaries := make([]ProcessSummary, 0, len(processes))
	for _, p := range processes {
		var count int64
		if err := s.db.Model(&models.ProcessRecord{}).
			Where("process_id = ?", p.ID).Count(&count).Error; err != nil {
			return nil, errors.NewInternalError(err)
		}
		summaries = append(summaries, ProcessSummary{Process: p, RecordCount: count})
	}
	return summaries, nil
}

// =============================================================================
// PROCESS MANAGEMENT
// =============================================================================

// CreateProcess persists a process with its fields and workflow steps
// from a wizard-completion payload.
func (s *SchemaService) CreateProcess(input CreateProcessInput, createdBy uuid.UUID) (*ProcessSchema, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.NewValidationError("name", "process name is required")
	}
	if err := validateFieldInputs(input.Fields); err != nil {
		return nil, err
	}
	if err := validateStepInputs(input.Steps); err != nil {
		return nil, err
	}

	process := models.Process{
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Tag:             input.Tag,
		RecordIDPrefix:  strings.ToUpper(strings.TrimSpace(input.RecordIDPrefix)),
		AISuggestion:    input.AISuggestion,
		SubEntityConfig: input.SubEntityConfig,
		IsActive:        true,
		CreatedBy:       createdBy,
	}
	if err := s.db.Create(&process).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	for i, in := range input.Fields {
		field := models.ProcessField{
			ProcessID:       process.ID,
			FieldName:       in.FieldName,
			FieldLabel:      in.FieldLabel,
			FieldType:       in.FieldType,
			IsRequired:      in.IsRequired,
			FieldOptions:    in.FieldOptions,
			ValidationRules: in.ValidationRules,
			DisplayOrder:    in.DisplayOrder,
		}
		if field.DisplayOrder == 0 {
			field.DisplayOrder = i + 1
		}
		if err := s.db.Create(&field).Error; err != nil {
			return nil, errors.NewInternalError(err)
		}
	}

	for i, in := range input.Steps {
		step := models.WorkflowStep{
			ProcessID:    process.ID,
			StepName:     in.StepName,
			StepOrder:    in.StepOrder,
			RequiredRole: in.RequiredRole,
			CanApprove:   in.CanApprove,
			CanReject:    in.CanReject,
		}
		if step.StepOrder == 0 {
			step.StepOrder = i + 1
		}
		if err := s.db.Create(&step).Error; err != nil {
			return nil, errors.NewInternalError(err)
		}
	}

	s.notifier.Publish(ProcessEvent{Type: ProcessCreated, ProcessID: process.ID, Name: process.Name})
	return s.GetProcessSchema(process.ID)
}

// UpdateProcessInput carries the mutable process attributes. Nil
// pointers leave the stored value untouched.
type UpdateProcessInput struct {
	Name            *string      `json:"name"`
	Description     *string      `json:"description"`
	Tag             *string      `json:"tag"`
	RecordIDPrefix  *string      `json:"record_id_prefix"`
	IsActive        *bool        `json:"is_active"`
	SubEntityConfig models.JSONB `json:"sub_entity_config"`
}

// UpdateProcess mutates process configuration. Processes are never
// hard-deleted; deactivation goes through IsActive.
func (s *SchemaService) UpdateProcess(processID uuid.UUID, input UpdateProcessInput) (*ProcessSchema, error) {
	var process models.Process
	if err := s.db.First(&process, "id = ?", processID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("process")
		}
		return nil, errors.NewInternalError(err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, errors.NewValidationError("name", "process name is required")
		}
		process.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		process.Description = *input.Description
	}
	if input.Tag != nil {
		process.Tag = *input.Tag
	}
	if input.RecordIDPrefix != nil {
		process.RecordIDPrefix = strings.ToUpper(strings.TrimSpace(*input.RecordIDPrefix))
	}
	if input.IsActive != nil {
		process.IsActive = *input.IsActive
	}
	if input.SubEntityConfig != nil {
		process.SubEntityConfig = input.SubEntityConfig
	}

	if err := s.db.Save(&process).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	s.notifier.Publish(ProcessEvent{Type: ProcessUpdated, ProcessID: process.ID, Name: process.Name})
	return s.GetProcessSchema(process.ID)
}

// =============================================================================
// FIELD MANAGEMENT
// =============================================================================

// AddField appends a field to a process
func (s *SchemaService) AddField(processID uuid.UUID, input FieldInput) (*models.ProcessField, error) {
	if err := validateFieldInput(input); err != nil {
		return nil, err
	}
	if _, err := s.GetProcessSchema(processID); err != nil {
		return nil, err
	}

	var dup int64
	s.db.Model(&models.ProcessField{}).
		Where("process_id = ? AND field_name = ?", processID, input.FieldName).Count(&dup)
	if dup > 0 {
		return nil, errors.NewConflictError("field", fmt.Sprintf("field '%s' already exists in this process", input.FieldName))
	}

	field := models.ProcessField{
		ProcessID:       processID,
		FieldName:       input.FieldName,
		FieldLabel:      input.FieldLabel,
		FieldType:       input.FieldType,
		IsRequired:      input.IsRequired,
		FieldOptions:    input.FieldOptions,
		ValidationRules: input.ValidationRules,
		DisplayOrder:    input.DisplayOrder,
	}
	if field.DisplayOrder == 0 {
		var max int64
		s.db.Model(&models.ProcessField{}).Where("process_id = ?", processID).Count(&max)
		field.DisplayOrder = int(max) + 1
	}
	if err := s.db.Create(&field).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &field, nil
}

// UpdateFieldInput carries the mutable field attributes. Nil pointers
// leave the stored value untouched; the machine key is fixed at creation.
type UpdateFieldInput struct {
	FieldLabel      *string           `json:"field_label"`
	FieldType       *models.FieldType `json:"field_type"`
	IsRequired      *bool             `json:"is_required"`
	FieldOptions    models.StringList `json:"field_options"`
	ValidationRules models.JSONB      `json:"validation_rules"`
	DisplayOrder    *int              `json:"display_order"`
}

// UpdateField mutates a field definition. Only the attributes present
// in the input move; absent ones keep their stored values.
func (s *SchemaService) UpdateField(fieldID uuid.UUID, input UpdateFieldInput) (*models.ProcessField, error) {
	var field models.ProcessField
	if err := s.db.First(&field, "id = ?", fieldID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("field")
		}
		return nil, errors.NewInternalError(err)
	}

	if input.FieldLabel != nil {
		if strings.TrimSpace(*input.FieldLabel) == "" {
			return nil, errors.NewValidationError("field_label", "field label is required")
		}
		field.FieldLabel = *input.FieldLabel
	}
	if input.FieldType != nil {
		if !input.FieldType.Valid() {
			return nil, errors.NewValidationError("field_type", fmt.Sprintf("unknown field type '%s'", *input.FieldType))
		}
		field.FieldType = *input.FieldType
	}
	if input.IsRequired != nil {
		field.IsRequired = *input.IsRequired
	}
	if input.FieldOptions != nil {
		field.FieldOptions = input.FieldOptions
	}
	if input.ValidationRules != nil {
		field.ValidationRules = input.ValidationRules
	}
	if input.DisplayOrder != nil {
		if *input.DisplayOrder <= 0 {
			return nil, errors.NewValidationError("display_order", "display order must be positive")
		}
		field.DisplayOrder = *input.DisplayOrder
	}

	if err := s.db.Save(&field).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &field, nil
}

// DeleteField removes a field definition. Deletion is refused while
// record values reference the field, so no value row is ever orphaned.
func (s *SchemaService) DeleteField(fieldID uuid.UUID) error {
	var field models.ProcessField
	if err := s.db.First(&field, "id = ?", fieldID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFoundError("field")
		}
		return errors.NewInternalError(err)
	}

	var refs int64
	s.db.Model(&models.RecordFieldValue{}).Where("field_id = ?", fieldID).Count(&refs)
	if refs > 0 {
		return errors.NewConflictError("field", fmt.Sprintf("field '%s' has %d record values and cannot be deleted", field.FieldName, refs))
	}

	if err := s.db.Delete(&field).Error; err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// =============================================================================
// STEP MANAGEMENT
// =============================================================================

// AddStep appends a workflow step to a process
func (s *SchemaService) AddStep(processID uuid.UUID, input StepInput) (*models.WorkflowStep, error) {
	if err := validateStepInput(input); err != nil {
		return nil, err
	}
	if _, err := s.GetProcessSchema(processID); err != nil {
		return nil, err
	}

	step := models.WorkflowStep{
		ProcessID:    processID,
		StepName:     input.StepName,
		StepOrder:    input.StepOrder,
		RequiredRole: input.RequiredRole,
		CanApprove:   input.CanApprove,
		CanReject:    input.CanReject,
	}
	if step.StepOrder == 0 {
		var max int
		s.db.Model(&models.WorkflowStep{}).Where("process_id = ?", processID).
			Select("COALESCE(MAX(step_order), 0)").Scan(&max)
		step.StepOrder = max + 1
	}
	if err := s.db.Create(&step).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &step, nil
}

// UpdateStepInput carries the mutable step attributes. Nil pointers
// leave the stored value untouched.
type UpdateStepInput struct {
	StepName     *string          `json:"step_name"`
	StepOrder    *int             `json:"step_order"`
	RequiredRole *models.UserRole `json:"required_role"`
	CanApprove   *bool            `json:"can_approve"`
	CanReject    *bool            `json:"can_reject"`
}

// UpdateStep mutates a workflow step definition
func (s *SchemaService) UpdateStep(stepID uuid.UUID, input UpdateStepInput) (*models.WorkflowStep, error) {
	var step models.WorkflowStep
	if err := s.db.First(&step, "id = ?", stepID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("workflow step")
		}
		return nil, errors.NewInternalError(err)
	}

	if input.StepName != nil {
		if strings.TrimSpace(*input.StepName) == "" {
			return nil, errors.NewValidationError("step_name", "step name is required")
		}
		step.StepName = *input.StepName
	}
	if input.StepOrder != nil {
		if *input.StepOrder <= 0 {
			return nil, errors.NewValidationError("step_order", "step order must be positive")
		}
		step.StepOrder = *input.StepOrder
	}
	if input.RequiredRole != nil {
		if !input.RequiredRole.Valid() {
			return nil, errors.NewValidationError("required_role", fmt.Sprintf("unknown role '%s'", *input.RequiredRole))
		}
		step.RequiredRole = *input.RequiredRole
	}
	if input.CanApprove != nil {
		step.CanApprove = *input.CanApprove
	}
	if input.CanReject != nil {
		step.CanReject = *input.CanReject
	}

	if err := s.db.Save(&step).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &step, nil
}

// DeleteStep removes a workflow step. Records currently sitting on
// the step are refused; the step must be vacated first.
func (s *SchemaService) DeleteStep(stepID uuid.UUID) error {
	var step models.WorkflowStep
	if err := s.db.First(&step, "id = ?", stepID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NewNotFoundError("workflow step")
		}
		return errors.NewInternalError(err)
	}

	var refs int64
	s.db.Model(&models.ProcessRecord{}).Where("current_step_id = ?", stepID).Count(&refs)
	if refs > 0 {
		return errors.NewConflictError("workflow step", fmt.Sprintf("%d records are currently on step '%s'", refs, step.StepName))
	}

	if err := s.db.Delete(&step).Error; err != nil {
		return errors.NewInternalError(err)
	}
	return nil
}

// =============================================================================
// VALIDATION HELPERS
// =============================================================================

func validateFieldInput(in FieldInput) error {
	if err := security.ValidateIdentifier(in.FieldName); err != nil {
		return errors.NewValidationError("field_name", err.Error())
	}
	if strings.TrimSpace(in.FieldLabel) == "" {
		return errors.NewValidationError("field_label", "field label is required")
	}
	if !in.FieldType.Valid() {
		return errors.NewValidationError("field_type", fmt.Sprintf("unknown field type '%s'", in.FieldType))
	}
	if in.FieldType == models.FieldTypeSelect && len(in.FieldOptions) == 0 {
		return errors.NewValidationError("field_options", fmt.Sprintf("select field '%s' needs at least one option", in.FieldName))
	}
	return nil
}

func validateFieldInputs(fields []FieldInput) error {
	seen := make(map[string]bool, len(fields))
	for _, in := range fields {
		if err := validateFieldInput(in); err != nil {
			return err
		}
		if seen[in.FieldName] {
			return errors.NewValidationError("field_name", fmt.Sprintf("duplicate field name '%s'", in.FieldName))
		}
		seen[in.FieldName] = true
	}
	return nil
}

func validateStepInput(in StepInput) error {
	if strings.TrimSpace(in.StepName) == "" {
		return errors.NewValidationError("step_name", "step name is required")
	}
	if in.StepOrder < 0 {
		return errors.NewValidationError("step_order", "step order cannot be negative")
	}
	if !in.RequiredRole.Valid() {
		return errors.NewValidationError("required_role", fmt.Sprintf("unknown role '%s'", in.RequiredRole))
	}
	return nil
}

func validateStepInputs(steps []StepInput) error {
	for _, in := range steps {
		if err := validateStepInput(in); err != nil {
			return err
		}
	}
	return nil
}
