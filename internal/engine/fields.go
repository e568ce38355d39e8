package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FieldEngine validates and persists dynamic field values. Values are
// stored as opaque strings; the declared field type only constrains
// what strings are accepted.
type FieldEngine struct {
	db *gorm.DB
}

// NewFieldEngine creates a new field engine
func NewFieldEngine(db *gorm.DB) *FieldEngine {
	return &FieldEngine{db: db}
}

// SortFields returns a copy of fields in display order
func SortFields(fields []models.ProcessField) []models.ProcessField {
	sorted := make([]models.ProcessField, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})
	return sorted
}

// IsSatisfied reports whether a value satisfies a field's required
// constraint. Whitespace-only input does not count as filled.
func IsSatisfied(field models.ProcessField, value string) bool {
	if !field.IsRequired {
		return true
	}
	return strings.TrimSpace(value) != ""
}

// ValidateValue checks a single non-empty value against its field's
// declared type. Empty values are the required check's concern, not
// the type check's.
func ValidateValue(field models.ProcessField, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	switch field.FieldType {
	case models.FieldTypeNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return errors.NewValidationError(field.FieldName,
				fmt.Sprintf("'%s' expects a number", field.FieldLabel))
		}
	case models.FieldTypeDate:
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(value)); err != nil {
			return errors.NewValidationError(field.FieldName,
				fmt.Sprintf("'%s' expects a date (YYYY-MM-DD)", field.FieldLabel))
		}
	case models.FieldTypeSelect:
		for _, opt := range field.FieldOptions {
			if value == opt {
				return nil
			}
		}
		return errors.NewValidationError(field.FieldName,
			fmt.Sprintf("'%s' is not an option of '%s'", value, field.FieldLabel))
	case models.FieldTypeCheckbox:
		if value != "true" && value != "false" {
			return errors.NewValidationError(field.FieldName,
				fmt.Sprintf("'%s' expects true or false", field.FieldLabel))
		}
	}
	// text, textarea, email, url carry whatever the form submitted
	return nil
}

// ValidateAll checks a value map against a field set in display
// order: required fields must be filled, filled fields must type-check.
func ValidateAll(fields []models.ProcessField, values map[uuid.UUID]string) error {
	for _, field := range SortFields(fields) {
		value := values[field.ID]
		if !IsSatisfied(field, value) {
			return errors.NewValidationError(field.FieldName,
				fmt.Sprintf("'%s' is required", field.FieldLabel))
		}
		if err := ValidateValue(field, value); err != nil {
			return err
		}
	}
	return nil
}

// SaveValues upserts field values for a record, keyed by field ID.
// Empty values are skipped, not stored as empty rows. The record's
// updated_at is bumped when anything was written.
func (e *FieldEngine) SaveValues(recordID uuid.UUID, values map[uuid.UUID]string) error {
	wrote := false
	for fieldID, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}

		row := models.RecordFieldValue{
			RecordID:   recordID,
			FieldID:    fieldID,
			FieldValue: value,
		}
		err := e.db.Where("record_id = ? AND field_id = ?", recordID, fieldID).
			Assign(map[string]interface{}{"field_value": value}).
			FirstOrCreate(&row).Error
		if err != nil {
			return errors.NewInternalError(err)
		}
		wrote = true
	}

	if wrote {
		if err := e.db.Model(&models.ProcessRecord{}).
			Where("id = ?", recordID).
			Update("updated_at", time.Now()).Error; err != nil {
			return errors.NewInternalError(err)
		}
	}
	return nil
}

// Values returns a record's stored field values keyed by field ID.
// Fields with no stored row are simply absent.
func (e *FieldEngine) Values(recordID uuid.UUID) (map[uuid.UUID]string, error) {
	var rows []models.RecordFieldValue
	if err := e.db.Where("record_id = ?", recordID).Find(&rows).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	values := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		values[row.FieldID] = row.FieldValue
	}
	return values, nil
}
