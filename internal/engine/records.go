package engine

import (
	"strings"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordService creates and reads process records. Workflow
// transitions live in WorkflowEngine; field values in FieldEngine.
type RecordService struct {
	db       *gorm.DB
	workflow *WorkflowEngine
	fields   *FieldEngine
}

// NewRecordService creates a new record service
func NewRecordService(db *gorm.DB, workflow *WorkflowEngine, fields *FieldEngine) *RecordService {
	return &RecordService{db: db, workflow: workflow, fields: fields}
}

// RecordDetail is a record with everything its detail view needs: the
// process schema and the stored field values keyed by field ID.
type RecordDetail struct {
	Record *models.ProcessRecord `json:"record"`
	Schema *ProcessSchema        `json:"schema"`
	Values map[uuid.UUID]string  `json:"values"`
}

// Create inserts a record in its initial workflow position: draft,
// sitting on the process's first step when one exists. The creation
// is recorded in the audit trail.
func (s *RecordService) Create(processID uuid.UUID, title, identifier string, createdBy uuid.UUID) (*models.ProcessRecord, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.NewValidationError("record_title", "record title is required")
	}

	var process models.Process
	if err := s.db.First(&process, "id = ?", processID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("process")
		}
		return nil, errors.NewInternalError(err)
	}
	if !process.IsActive {
		return nil, errors.NewConflictError("process", "process is inactive")
	}

	first, err := s.workflow.FirstStep(processID)
	if err != nil {
		return nil, err
	}

	record := models.ProcessRecord{
		ProcessID:        processID,
		RecordTitle:      strings.TrimSpace(title),
		RecordIdentifier: identifier,
		CurrentStatus:    models.StatusDraft,
		CreatedBy:        createdBy,
	}
	if first != nil {
		stepID := first.ID
		record.CurrentStepID = &stepID
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &record, nil
}

// List returns a process's records, newest first, with their current
// step resolved for the list view.
func (s *RecordService) List(processID uuid.UUID) ([]models.ProcessRecord, error) {
	var records []models.ProcessRecord
	if err := s.db.Where("process_id = ?", processID).
		Preload("CurrentStep").
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return records, nil
}

// Get returns a record with its process schema and field values
func (s *RecordService) Get(recordID uuid.UUID) (*RecordDetail, error) {
	var record models.ProcessRecord
	if err := s.db.Preload("CurrentStep").
		First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("record")
		}
		return nil, errors.NewInternalError(err)
	}

	schemaSvc := &SchemaService{db: s.db}
	schema, err := schemaSvc.GetProcessSchema(record.ProcessID)
	if err != nil {
		return nil, err
	}

	values, err := s.fields.Values(recordID)
	if err != nil {
		return nil, err
	}

	return &RecordDetail{Record: &record, Schema: schema, Values: values}, nil
}

// SaveValues validates a value map against the record's schema and
// upserts it. Unknown field IDs are refused before anything is
// written.
func (s *RecordService) SaveValues(recordID uuid.UUID, values map[uuid.UUID]string) error {
	detail, err := s.Get(recordID)
	if err != nil {
		return err
	}

	known := make(map[uuid.UUID]models.ProcessField, len(detail.Schema.Fields))
	for _, f := range detail.Schema.Fields {
		known[f.ID] = f
	}
	for fieldID, value := range values {
		field, ok := known[fieldID]
		if !ok {
			return errors.NewValidationError("field_id", "value targets a field outside this record's process")
		}
		if err := ValidateValue(field, value); err != nil {
			return err
		}
	}

	return s.fields.SaveValues(recordID, values)
}
