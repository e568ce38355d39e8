package engine

import (
	"testing"

	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// createCAPAProcess builds the canonical two-step corrective action
// process used across the engine tests.
func createCAPAProcess(t *testing.T, db *gorm.DB) *ProcessSchema {
	t.Helper()
	svc := NewSchemaService(db, NewNotifier())

	schema, err := svc.CreateProcess(CreateProcessInput{
		Name:           "Corrective Action (CAPA)",
		RecordIDPrefix: "CAPA",
		Fields: []FieldInput{
			{FieldName: "description", FieldLabel: "Description", FieldType: models.FieldTypeTextarea, IsRequired: true},
			{FieldName: "severity_level", FieldLabel: "Severity Level", FieldType: models.FieldTypeSelect, IsRequired: true,
				FieldOptions: models.StringList{"Low", "Medium", "High", "Critical"}},
			{FieldName: "target_completion_date", FieldLabel: "Target Completion Date", FieldType: models.FieldTypeDate},
		},
		Steps: []StepInput{
			{StepName: "Quality Review", StepOrder: 1, RequiredRole: models.RoleQualityManager, CanApprove: true, CanReject: true},
			{StepName: "Final Approval", StepOrder: 2, RequiredRole: models.RoleQAFinalApprover, CanApprove: true, CanReject: true},
		},
	}, models.DemoUserID)
	if err != nil {
		t.Fatalf("failed to create process: %v", err)
	}
	return schema
}

// createSteplessProcess builds a process with fields but no workflow
func createSteplessProcess(t *testing.T, db *gorm.DB) *ProcessSchema {
	t.Helper()
	svc := NewSchemaService(db, NewNotifier())

	schema, err := svc.CreateProcess(CreateProcessInput{
		Name: "Observation Log",
		Fields: []FieldInput{
			{FieldName: "observation", FieldLabel: "Observation", FieldType: models.FieldTypeTextarea},
		},
	}, models.DemoUserID)
	if err != nil {
		t.Fatalf("failed to create process: %v", err)
	}
	return schema
}

func createTestRecord(t *testing.T, db *gorm.DB, processID uuid.UUID, title string) *models.ProcessRecord {
	t.Helper()
	svc := NewRecordService(db, NewWorkflowEngine(db), NewFieldEngine(db))
	record, err := svc.Create(processID, title, "", models.DemoUserID)
	if err != nil {
		t.Fatalf("failed to create record: %v", err)
	}
	return record
}

func historyCount(t *testing.T, db *gorm.DB, recordID uuid.UUID) int64 {
	t.Helper()
	var count int64
	db.Model(&models.WorkflowHistory{}).Where("record_id = ?", recordID).Count(&count)
	return count
}
