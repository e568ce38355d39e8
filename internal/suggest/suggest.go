// Package suggest produces draft process configurations from a free
// text description. A remote generation service is consulted when
// configured; otherwise a built-in quality-management template is
// returned so the process wizard always has something to offer.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aethra/qualis/internal/models"
)

// Request describes the process being drafted. Document optionally
// carries a base64-encoded source document (an SOP, a template) for
// the remote service to mine.
type Request struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	Document    string `json:"document,omitempty"`
}

// SuggestedField is one proposed form field
type SuggestedField struct {
	FieldName    string            `json:"field_name"`
	FieldLabel   string            `json:"field_label"`
	FieldType    models.FieldType  `json:"field_type"`
	IsRequired   bool              `json:"is_required"`
	FieldOptions models.StringList `json:"field_options,omitempty"`
	Reason       string            `json:"reason,omitempty"`
}

// SuggestedStep is one proposed workflow step
type SuggestedStep struct {
	StepName     string          `json:"step_name"`
	StepOrder    int             `json:"step_order"`
	RequiredRole models.UserRole `json:"required_role"`
	CanApprove   bool            `json:"can_approve"`
	CanReject    bool            `json:"can_reject"`
	Reason       string          `json:"reason,omitempty"`
}

// Response is a complete process draft. Everything in it is editable
// before the process is actually created.
type Response struct {
	ProcessName    string           `json:"process_name"`
	Description    string           `json:"description"`
	RecordIDPrefix string           `json:"record_id_prefix"`
	Fields         []SuggestedField `json:"fields"`
	Steps          []SuggestedStep  `json:"workflow_steps"`
	AIExplanation  string           `json:"ai_explanation,omitempty"`
	Source         string           `json:"source"`
}

// Suggester turns a process description into a draft
type Suggester interface {
	Suggest(ctx context.Context, req Request) (*Response, error)
}

// =============================================================================
// REMOTE CLIENT
// =============================================================================

// Client calls an external generation endpoint. Any failure falls
// back to the static template; suggestion is advisory, never a
// hard dependency.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	fallback Suggester
}

// NewClient creates a suggestion client. An empty endpoint yields a
// client that always answers from the fallback.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
		fallback: Static{},
	}
}

// Suggest asks the remote service for a draft, falling back to the
// static template when the service is absent or misbehaves.
func (c *Client) Suggest(ctx context.Context, req Request) (*Response, error) {
	if c.endpoint == "" {
		return c.fallback.Suggest(ctx, req)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return c.fallback.Suggest(ctx, req)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return c.fallback.Suggest(ctx, req)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return c.fallback.Suggest(ctx, req)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.fallback.Suggest(ctx, req)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return c.fallback.Suggest(ctx, req)
	}
	if out.ProcessName == "" || len(out.Fields) == 0 {
		return c.fallback.Suggest(ctx, req)
	}

	out.Source = "remote"
	sanitize(&out)
	return &out, nil
}

// sanitize drops suggested parts the schema layer would reject
func sanitize(r *Response) {
	fields := r.Fields[:0]
	for _, f := range r.Fields {
		if !f.FieldType.Valid() {
			f.FieldType = models.FieldTypeText
		}
		if f.FieldName == "" {
			continue
		}
		fields = append(fields, f)
	}
	r.Fields = fields

	steps := r.Steps[:0]
	for i, s := range r.Steps {
		if s.StepName == "" {
			continue
		}
		if !s.RequiredRole.Valid() {
			s.RequiredRole = models.RoleQualityManager
		}
		if s.StepOrder <= 0 {
			s.StepOrder = i + 1
		}
		// a step that can neither approve nor reject is a dead end
		if !s.CanApprove && !s.CanReject {
			s.CanApprove = true
			s.CanReject = true
		}
		steps = append(steps, s)
	}
	r.Steps = steps
}

// =============================================================================
// STATIC FALLBACK
// =============================================================================

// Static answers every request with a corrective-action template, the
// most common process new installations create first.
type Static struct{}

// Suggest returns the built-in template, with the process name taken
// from the request when one is given.
func (Static) Suggest(_ context.Context, req Request) (*Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Corrective Action (CAPA)"
		if trimmed := strings.TrimSpace(req.Description); trimmed != "" && len(trimmed) <= 60 {
			name = trimmed
		}
	}

	return &Response{
		ProcessName:    name,
		Description:    fmt.Sprintf("Tracks corrective and preventive actions. Based on: %s", strings.TrimSpace(req.Description)),
		RecordIDPrefix: "CAPA",
		Fields: []SuggestedField{
			{FieldName: "description", FieldLabel: "Description", FieldType: models.FieldTypeTextarea, IsRequired: true,
				Reason: "Every corrective action starts from a written account of the problem"},
			{FieldName: "severity_level", FieldLabel: "Severity Level", FieldType: models.FieldTypeSelect, IsRequired: true,
				FieldOptions: models.StringList{"Low", "Medium", "High", "Critical"},
				Reason:       "Severity drives prioritization and reporting"},
			{FieldName: "root_cause", FieldLabel: "Root Cause", FieldType: models.FieldTypeTextarea},
			{FieldName: "corrective_action", FieldLabel: "Corrective Action", FieldType: models.FieldTypeTextarea, IsRequired: true},
			{FieldName: "target_completion_date", FieldLabel: "Target Completion Date", FieldType: models.FieldTypeDate, IsRequired: true},
			{FieldName: "effectiveness_check", FieldLabel: "Effectiveness Check Done", FieldType: models.FieldTypeCheckbox},
		},
		Steps: []SuggestedStep{
			{StepName: "Quality Review", StepOrder: 1, RequiredRole: models.RoleQualityManager, CanApprove: true, CanReject: true},
			{StepName: "Final Approval", StepOrder: 2, RequiredRole: models.RoleQAFinalApprover, CanApprove: true, CanReject: true},
		},
		AIExplanation: "A two-stage review keeps one quality gate before final sign-off without slowing small findings down.",
		Source:        "static",
	}, nil
}
