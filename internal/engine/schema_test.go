package engine

import (
	"testing"

	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
)

func TestCreateProcessValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSchemaService(db, NewNotifier())

	cases := []struct {
		name  string
		input CreateProcessInput
	}{
		{"empty name", CreateProcessInput{Name: "  "}},
		{"bad field key", CreateProcessInput{Name: "P", Fields: []FieldInput{
			{FieldName: "Bad Name!", FieldLabel: "Bad", FieldType: models.FieldTypeText},
		}}},
		{"duplicate field key", CreateProcessInput{Name: "P", Fields: []FieldInput{
			{FieldName: "twice", FieldLabel: "One", FieldType: models.FieldTypeText},
			{FieldName: "twice", FieldLabel: "Two", FieldType: models.FieldTypeText},
		}}},
		{"select without options", CreateProcessInput{Name: "P", Fields: []FieldInput{
			{FieldName: "choice", FieldLabel: "Choice", FieldType: models.FieldTypeSelect},
		}}},
		{"unknown field type", CreateProcessInput{Name: "P", Fields: []FieldInput{
			{FieldName: "x", FieldLabel: "X", FieldType: "richtext"},
		}}},
		{"unknown role", CreateProcessInput{Name: "P", Steps: []StepInput{
			{StepName: "S", StepOrder: 1, RequiredRole: "superuser"},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateProcess(tc.input, models.DemoUserID); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}

	var count int64
	db.Model(&models.Process{}).Count(&count)
	if count != 0 {
		t.Fatalf("refused creations left %d processes behind", count)
	}
}

func TestProcessSchemaOrdering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewSchemaService(db, NewNotifier())

	schema, err := svc.CreateProcess(CreateProcessInput{
		Name: "Ordered",
		Fields: []FieldInput{
			{FieldName: "last", FieldLabel: "Last", FieldType: models.FieldTypeText, DisplayOrder: 30},
			{FieldName: "first", FieldLabel: "First", FieldType: models.FieldTypeText, DisplayOrder: 10},
			{FieldName: "middle", FieldLabel: "Middle", FieldType: models.FieldTypeText, DisplayOrder: 20},
		},
		Steps: []StepInput{
			{StepName: "B", StepOrder: 2, RequiredRole: models.RoleQualityReviewer},
			{StepName: "A", StepOrder: 1, RequiredRole: models.RoleQualityManager},
		},
	}, models.DemoUserID)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if schema.Fields[0].FieldName != "first" || schema.Fields[2].FieldName != "last" {
		t.Fatal("fields should come back in display order")
	}
	if schema.Steps[0].StepName != "A" {
		t.Fatal("steps should come back in step order")
	}
}

func TestAddFieldRejectsDuplicateKey(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	svc := NewSchemaService(db, NewNotifier())

	_, err := svc.AddField(schema.Process.ID, FieldInput{
		FieldName: "description", FieldLabel: "Another Description", FieldType: models.FieldTypeText,
	})
	if err == nil {
		t.Fatal("duplicate field name within a process should be refused")
	}
}

func TestDeleteFieldGuardedByValues(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	record := createTestRecord(t, db, schema.Process.ID, "Holds a value")
	svc := NewSchemaService(db, NewNotifier())
	fe := NewFieldEngine(db)

	descField := schema.Fields[0].ID
	if err := fe.SaveValues(record.ID, map[uuid.UUID]string{descField: "referenced"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := svc.DeleteField(descField); err == nil {
		t.Fatal("field with stored values should not be deletable")
	}

	// Unreferenced field deletes fine
	if err := svc.DeleteField(schema.Fields[2].ID); err != nil {
		t.Fatalf("unreferenced field should delete: %v", err)
	}
}

func TestDeleteStepGuardedByRecords(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	createTestRecord(t, db, schema.Process.ID, "On step one")
	svc := NewSchemaService(db, NewNotifier())

	if err := svc.DeleteStep(schema.Steps[0].ID); err == nil {
		t.Fatal("occupied step should not be deletable")
	}
	if err := svc.DeleteStep(schema.Steps[1].ID); err != nil {
		t.Fatalf("vacant step should delete: %v", err)
	}
}

func TestUpdateStepRenameKeepsPermissions(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	record := createTestRecord(t, db, schema.Process.ID, "Renamed step walk")
	svc := NewSchemaService(db, NewNotifier())

	name := "Renamed Review"
	step, err := svc.UpdateStep(schema.Steps[0].ID, UpdateStepInput{StepName: &name})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if step.StepName != name {
		t.Fatalf("expected renamed step, got %q", step.StepName)
	}
	if !step.CanApprove || !step.CanReject {
		t.Fatalf("rename-only update changed permissions: can_approve=%v can_reject=%v", step.CanApprove, step.CanReject)
	}

	// The record on the renamed step still approves
	if _, err := NewWorkflowEngine(db).Approve(record.ID, "", models.DemoUserID); err != nil {
		t.Fatalf("approve after rename failed: %v", err)
	}

	off := false
	step, err = svc.UpdateStep(schema.Steps[0].ID, UpdateStepInput{CanApprove: &off})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if step.CanApprove || !step.CanReject || step.StepName != name {
		t.Fatalf("explicit can_approve=false should touch nothing else: %+v", step)
	}
}

func TestUpdateFieldRelabelKeepsRequired(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	svc := NewSchemaService(db, NewNotifier())

	label := "Problem Description"
	field, err := svc.UpdateField(schema.Fields[0].ID, UpdateFieldInput{FieldLabel: &label})
	if err != nil {
		t.Fatalf("relabel failed: %v", err)
	}
	if field.FieldLabel != label {
		t.Fatalf("expected relabeled field, got %q", field.FieldLabel)
	}
	if !field.IsRequired {
		t.Fatal("relabel-only update cleared is_required")
	}

	optional := false
	field, err = svc.UpdateField(schema.Fields[0].ID, UpdateFieldInput{IsRequired: &optional})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if field.IsRequired || field.FieldLabel != label {
		t.Fatalf("explicit is_required=false should touch nothing else: %+v", field)
	}
}

func TestAddStepDefaultsOrderToEnd(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	svc := NewSchemaService(db, NewNotifier())

	step, err := svc.AddStep(schema.Process.ID, StepInput{
		StepName: "Effectiveness Check", RequiredRole: models.RoleQualityReviewer,
		CanApprove: true, CanReject: true,
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	last := schema.Steps[len(schema.Steps)-1].StepOrder
	if step.StepOrder != last+1 {
		t.Fatalf("omitted step order should land after %d, got %d", last, step.StepOrder)
	}

	if _, err := svc.AddStep(schema.Process.ID, StepInput{
		StepName: "Backwards", StepOrder: -1, RequiredRole: models.RoleQualityReviewer,
	}); err == nil {
		t.Fatal("negative step order should be refused")
	}
}

func TestListProcessesCountsAndFilters(t *testing.T) {
	db := setupTestDB(t)
	notifier := NewNotifier()
	svc := NewSchemaService(db, notifier)

	capa := createCAPAProcess(t, db)
	createTestRecord(t, db, capa.Process.ID, "one")
	createTestRecord(t, db, capa.Process.ID, "two")

	inactive := false
	if _, err := svc.UpdateProcess(capa.Process.ID, UpdateProcessInput{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	active, err := svc.ListProcesses(false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 0 {
		t.Fatal("inactive process should be hidden by default")
	}

	all, err := svc.ListProcesses(true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 1 || all[0].RecordCount != 2 {
		t.Fatalf("expected 1 process with 2 records, got %+v", all)
	}
}

func TestNotifierPublishesOnCreate(t *testing.T) {
	db := setupTestDB(t)
	notifier := NewNotifier()
	svc := NewSchemaService(db, notifier)

	events, cancel := notifier.Subscribe()
	defer cancel()

	schema, err := svc.CreateProcess(CreateProcessInput{Name: "Announced"}, models.DemoUserID)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	select {
	case event := <-events:
		if event.Type != ProcessCreated || event.ProcessID != schema.Process.ID {
			t.Fatalf("unexpected event: %+v", event)
		}
	default:
		t.Fatal("expected a process_created event")
	}
}

func TestCreateRecordOnInactiveProcess(t *testing.T) {
	db := setupTestDB(t)
	schema := createCAPAProcess(t, db)
	svc := NewSchemaService(db, NewNotifier())

	inactive := false
	if _, err := svc.UpdateProcess(schema.Process.ID, UpdateProcessInput{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}

	records := NewRecordService(db, NewWorkflowEngine(db), NewFieldEngine(db))
	if _, err := records.Create(schema.Process.ID, "Too late", "", models.DemoUserID); err == nil {
		t.Fatal("record creation on an inactive process should be refused")
	}
}
