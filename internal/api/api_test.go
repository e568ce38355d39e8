package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aethra/qualis/internal/auth"
	"github.com/aethra/qualis/internal/engine"
	"github.com/aethra/qualis/internal/models"
	"github.com/aethra/qualis/internal/suggest"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	notifier := engine.NewNotifier()
	schemaSvc := engine.NewSchemaService(db, notifier)
	workflow := engine.NewWorkflowEngine(db)
	fields := engine.NewFieldEngine(db)
	records := engine.NewRecordService(db, workflow, fields)
	links := engine.NewLinkService(db)

	handler := &Handler{
		Schema:    schemaSvc,
		Records:   records,
		Workflow:  workflow,
		Links:     links,
		Wizard:    engine.NewWizard(schemaSvc, records, links),
		Notifier:  notifier,
		Auth:      auth.NewService(db, "test-secret", time.Hour),
		Suggester: suggest.NewClient("", ""),
	}
	return NewRouter(handler, nil), db
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode failed: %v (body: %s)", err, w.Body.String())
	}
}

func createProcessViaAPI(t *testing.T, router *gin.Engine) *engine.ProcessSchema {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/processes", map[string]interface{}{
		"name":             "Corrective Action (CAPA)",
		"record_id_prefix": "CAPA",
		"fields": []map[string]interface{}{
			{"field_name": "description", "field_label": "Description", "field_type": "textarea", "is_required": true},
			{"field_name": "severity_level", "field_label": "Severity Level", "field_type": "select",
				"field_options": []string{"Low", "Medium", "High", "Critical"}},
		},
		"workflow_steps": []map[string]interface{}{
			{"step_name": "Quality Review", "step_order": 1, "required_role": "quality_manager", "can_approve": true, "can_reject": true},
			{"step_name": "Final Approval", "step_order": 2, "required_role": "qa_final_approver", "can_approve": true, "can_reject": true},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create process: %d %s", w.Code, w.Body.String())
	}

	var schema engine.ProcessSchema
	decode(t, w, &schema)
	return &schema
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupServer(t)
	w := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
}

func TestProcessLifecycleOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	schema := createProcessViaAPI(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/processes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var list struct {
		Processes []engine.ProcessSummary `json:"processes"`
	}
	decode(t, w, &list)
	if len(list.Processes) != 1 || list.Processes[0].RecordCount != 0 {
		t.Fatalf("unexpected list: %+v", list)
	}

	w = doJSON(t, router, http.MethodGet, "/api/processes/"+schema.Process.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/processes/not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid should 400, got %d", w.Code)
	}
}

func TestRecordWorkflowOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	schema := createProcessViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/records", map[string]interface{}{
		"process_id":   schema.Process.ID,
		"record_title": "Dented crate",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create record: %d %s", w.Code, w.Body.String())
	}
	var record models.ProcessRecord
	decode(t, w, &record)

	// Save values, then read them back through the detail view
	w = doJSON(t, router, http.MethodPut, "/api/records/"+record.ID.String()+"/values", map[string]interface{}{
		"values": map[string]string{
			schema.Fields[0].ID.String(): "Crate arrived dented",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save values: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/api/records/"+record.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get record: %d", w.Code)
	}
	var detail struct {
		Actions engine.RecordActions `json:"actions"`
	}
	decode(t, w, &detail)
	if !detail.Actions.CanApprove {
		t.Fatal("fresh record should permit approval")
	}

	// Walk both steps
	for i := 0; i < 2; i++ {
		w = doJSON(t, router, http.MethodPost, "/api/records/"+record.ID.String()+"/actions", map[string]string{
			"action": "approve",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("approve %d: %d %s", i, w.Code, w.Body.String())
		}
	}

	// Terminal record refuses with the workflow-complete code
	w = doJSON(t, router, http.MethodPost, "/api/records/"+record.ID.String()+"/actions", map[string]string{
		"action": "approve",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var errBody map[string]string
	decode(t, w, &errBody)
	if errBody["error"] != "WORKFLOW_COMPLETE" {
		t.Fatalf("expected WORKFLOW_COMPLETE, got %s", errBody["error"])
	}

	// History shows the two approvals
	w = doJSON(t, router, http.MethodGet, "/api/records/"+record.ID.String()+"/history", nil)
	var history struct {
		History []models.WorkflowHistory `json:"history"`
	}
	decode(t, w, &history)
	if len(history.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history.History))
	}
}

func TestRejectRequiresCommentOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	schema := createProcessViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/records", map[string]interface{}{
		"process_id":   schema.Process.ID,
		"record_title": "To be rejected",
	})
	var record models.ProcessRecord
	decode(t, w, &record)

	w = doJSON(t, router, http.MethodPost, "/api/records/"+record.ID.String()+"/actions", map[string]string{
		"action": "reject",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reject without comment should 400, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/records/"+record.ID.String()+"/actions", map[string]string{
		"action":   "reject",
		"comments": "duplicate of CAPA-XXXX",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reject with comment failed: %d %s", w.Code, w.Body.String())
	}
}

func TestWizardOverHTTP(t *testing.T) {
	router, _ := setupServer(t)
	schema := createProcessViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/wizard", map[string]interface{}{
		"process_id": schema.Process.ID,
		"answers": map[string]string{
			"situation_type":  "deviation",
			"impact_severity": "medium",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start wizard: %d %s", w.Code, w.Body.String())
	}
	var session engine.WizardSession
	decode(t, w, &session)
	if session.Title != "Deviation Report" {
		t.Fatalf("expected prefilled title, got %q", session.Title)
	}

	next := func() *httptest.ResponseRecorder {
		return doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/wizard/%s/next", session.ID), nil)
	}

	if w := next(); w.Code != http.StatusOK {
		t.Fatalf("advance to basic_info: %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPut, "/api/wizard/"+session.ID.String(), map[string]interface{}{
		"values": map[string]string{
			schema.Fields[0].ID.String(): "Deviation observed on line 3",
			schema.Fields[1].ID.String(): "Medium",
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update wizard: %d %s", w.Code, w.Body.String())
	}

	for i := 0; i < 3; i++ {
		if w := next(); w.Code != http.StatusOK {
			t.Fatalf("advance %d failed: %d %s", i, w.Code, w.Body.String())
		}
	}

	w = doJSON(t, router, http.MethodPost, "/api/wizard/"+session.ID.String()+"/commit", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("commit: %d %s", w.Code, w.Body.String())
	}
	var result engine.CommitResult
	decode(t, w, &result)
	if result.Record == nil || result.Record.RecordIdentifier == "" {
		t.Fatal("committed record should carry an identifier")
	}
}

func TestSuggestOverHTTP(t *testing.T) {
	router, _ := setupServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/suggest", map[string]string{
		"description": "Track internal audits with findings and closure",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("suggest: %d", w.Code)
	}
	var resp suggest.Response
	decode(t, w, &resp)
	if len(resp.Fields) == 0 || len(resp.Steps) == 0 {
		t.Fatal("suggestion should include fields and steps")
	}

	w = doJSON(t, router, http.MethodPost, "/api/suggest", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty description should 400, got %d", w.Code)
	}
}

func TestMeFallsBackToDemoUser(t *testing.T) {
	router, db := setupServer(t)

	// Seed the demo profile the way the migration does
	db.Create(&models.UserProfile{
		ID: models.DemoUserID, Email: "demo@qualis.local",
		FullName: "Demo User", Role: models.RoleQualityManager,
	})

	w := doJSON(t, router, http.MethodGet, "/api/auth/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var user models.UserProfile
	decode(t, w, &user)
	if user.ID != models.DemoUserID {
		t.Fatal("anonymous request should resolve to the demo user")
	}
}
