package engine

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
)

// Wizard stages, in traversal order. The tasks stage only appears
// when the process enables sub-entities.
type WizardStage string

const (
	StageOverview     WizardStage = "overview"
	StageBasicInfo    WizardStage = "basic_info"
	StageDetailedForm WizardStage = "detailed_form"
	StageTasks        WizardStage = "tasks"
	StageReview       WizardStage = "review"
)

// identifierAlphabet excludes the lookalikes 0/O/1/I/L so printed
// record identifiers survive being read aloud.
const identifierAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const identifierSuffixLen = 4

// DiscoveryAnswers are the optional up-front questions whose answers
// prefill the new record.
type DiscoveryAnswers struct {
	SituationType  string `json:"situation_type"`
	ImpactSeverity string `json:"impact_severity"`
	Urgency        string `json:"urgency"`
}

// WizardSession is one in-flight guided record creation. Sessions are
// held in memory only; abandoning one writes nothing.
type WizardSession struct {
	ID              uuid.UUID            `json:"id"`
	ProcessID       uuid.UUID            `json:"process_id"`
	Stages          []WizardStage        `json:"stages"`
	StageIndex      int                  `json:"stage_index"`
	Title           string               `json:"title"`
	Identifier      string               `json:"identifier"`
	Values          map[uuid.UUID]string `json:"values"`
	LinkedProcessID *uuid.UUID           `json:"linked_process_id"`
	Answers         *DiscoveryAnswers    `json:"answers,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`

	fields []models.ProcessField
	prefix string
}

// CurrentStage returns the stage the session sits on
func (s *WizardSession) CurrentStage() WizardStage {
	return s.Stages[s.StageIndex]
}

// CommitResult is the outcome of finishing a wizard: the created
// record plus warnings for anything secondary that failed.
type CommitResult struct {
	Record   *models.ProcessRecord `json:"record"`
	Link     *models.RecordLink    `json:"link,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

// Wizard drives guided record creation: an ordered stage sequence
// with per-stage completion gates, committed in one shot at the end.
type Wizard struct {
	schema  *SchemaService
	records *RecordService
	links   *LinkService

	mu       sync.Mutex
	sessions map[uuid.UUID]*WizardSession
}

// NewWizard creates a new wizard service
func NewWizard(schema *SchemaService, records *RecordService, links *LinkService) *Wizard {
	return &Wizard{
		schema:   schema,
		records:  records,
		links:    links,
		sessions: make(map[uuid.UUID]*WizardSession),
	}
}

// Start opens a session for a process. Discovery answers, when given,
// prefill the title and any matching form fields.
func (w *Wizard) Start(processID uuid.UUID, answers *DiscoveryAnswers) (*WizardSession, error) {
	schema, err := w.schema.GetProcessSchema(processID)
	if err != nil {
		return nil, err
	}
	if !schema.Process.IsActive {
		return nil, errors.NewConflictError("process", "process is inactive")
	}

	stages := []WizardStage{StageOverview, StageBasicInfo, StageDetailedForm}
	if models.ParseSubEntityConfig(schema.Process.SubEntityConfig).TasksEnabled {
		stages = append(stages, StageTasks)
	}
	stages = append(stages, StageReview)

	session := &WizardSession{
		ID:        uuid.New(),
		ProcessID: processID,
		Stages:    stages,
		Values:    make(map[uuid.UUID]string),
		Answers:   answers,
		CreatedAt: time.Now(),
		fields:    SortFields(schema.Fields),
		prefix:    schema.Process.RecordIDPrefix,
	}
	if session.prefix == "" {
		session.prefix = "REC"
	}
	if answers != nil {
		applyDiscoveryPrefill(session, answers)
	}

	w.mu.Lock()
	w.sessions[session.ID] = session
	w.mu.Unlock()
	return session, nil
}

// Get returns a session by ID
func (w *Wizard) Get(sessionID uuid.UUID) (*WizardSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.locked(sessionID)
}

func (w *Wizard) locked(sessionID uuid.UUID) (*WizardSession, error) {
	session, ok := w.sessions[sessionID]
	if !ok {
		return nil, errors.NewNotFoundError("wizard session")
	}
	return session, nil
}

// Update merges user input into a session. The identifier is not
// among the inputs; once generated it never changes.
func (w *Wizard) Update(sessionID uuid.UUID, title *string, values map[uuid.UUID]string, linkedProcessID *uuid.UUID) (*WizardSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, err := w.locked(sessionID)
	if err != nil {
		return nil, err
	}

	if title != nil {
		session.Title = *title
	}
	for fieldID, value := range values {
		session.Values[fieldID] = value
	}
	if linkedProcessID != nil {
		if *linkedProcessID == uuid.Nil {
			session.LinkedProcessID = nil
		} else {
			session.LinkedProcessID = linkedProcessID
		}
	}
	return session, nil
}

// Next advances a session one stage. The current stage's completion
// gate must pass first.
func (w *Wizard) Next(sessionID uuid.UUID) (*WizardSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, err := w.locked(sessionID)
	if err != nil {
		return nil, err
	}
	if session.StageIndex >= len(session.Stages)-1 {
		return nil, errors.NewBadRequestError("session is already on the final stage")
	}
	if err := stageGate(session); err != nil {
		return nil, err
	}

	session.StageIndex++
	if session.CurrentStage() == StageBasicInfo && session.Identifier == "" {
		session.Identifier = generateIdentifier(session.prefix)
	}
	return session, nil
}

// Previous steps a session back one stage. Nothing is re-validated;
// entered data and the identifier are kept.
func (w *Wizard) Previous(sessionID uuid.UUID) (*WizardSession, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	session, err := w.locked(sessionID)
	if err != nil {
		return nil, err
	}
	if session.StageIndex == 0 {
		return nil, errors.NewBadRequestError("session is already on the first stage")
	}
	session.StageIndex--
	return session, nil
}

// Cancel discards a session
func (w *Wizard) Cancel(sessionID uuid.UUID) {
	w.mu.Lock()
	delete(w.sessions, sessionID)
	w.mu.Unlock()
}

// Commit turns a review-stage session into a persisted record. The
// record insert is the one all-or-nothing part; field values and the
// pending link degrade to warnings so a created record is never lost.
// The session is taken out of the store before any write, so a second
// commit of the same session finds nothing to commit.
func (w *Wizard) Commit(sessionID uuid.UUID, performedBy uuid.UUID) (*CommitResult, error) {
	w.mu.Lock()
	session, err := w.locked(sessionID)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if session.CurrentStage() != StageReview {
		w.mu.Unlock()
		return nil, errors.NewBadRequestError("session has not reached the review stage")
	}
	if err := ValidateAll(session.fields, session.Values); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	values := make(map[uuid.UUID]string, len(session.Values))
	for fieldID, value := range session.Values {
		values[fieldID] = value
	}
	var linkedProcessID *uuid.UUID
	if session.LinkedProcessID != nil {
		id := *session.LinkedProcessID
		linkedProcessID = &id
	}
	processID, title, identifier := session.ProcessID, session.Title, session.Identifier
	delete(w.sessions, sessionID)
	w.mu.Unlock()

	record, err := w.records.Create(processID, title, identifier, performedBy)
	if err != nil {
		// The record never happened; put the session back so the
		// caller can retry.
		w.mu.Lock()
		w.sessions[sessionID] = session
		w.mu.Unlock()
		return nil, err
	}
	w.records.workflow.RecordCreated(record, performedBy)

	result := &CommitResult{Record: record}
	if err := w.records.fields.SaveValues(record.ID, values); err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("record created but some field values were not saved: %v", err))
	}
	if linkedProcessID != nil {
		link, err := w.links.CreatePending(record.ID, *linkedProcessID)
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("record created but the follow-on link was not saved: %v", err))
		} else {
			result.Link = link
		}
	}

	return result, nil
}

// stageGate returns the validation error blocking advancement from
// the session's current stage, if any.
func stageGate(session *WizardSession) error {
	switch session.CurrentStage() {
	case StageBasicInfo:
		if strings.TrimSpace(session.Title) == "" {
			return errors.NewValidationError("title", "a title is required before continuing")
		}
	case StageDetailedForm:
		return ValidateAll(session.fields, session.Values)
	}
	// overview and tasks are informational
	return nil
}

// generateIdentifier builds "<PREFIX>-<4 chars>" from the restricted
// alphabet.
func generateIdentifier(prefix string) string {
	buf := make([]byte, identifierSuffixLen)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = identifierAlphabet[int(b)%len(identifierAlphabet)]
	}
	return prefix + "-" + string(buf)
}

// =============================================================================
// DISCOVERY PREFILL
// =============================================================================

var situationTitles = map[string]string{
	"deviation":          "Deviation Report",
	"customer_complaint": "Customer Complaint",
	"audit_finding":      "Audit Finding Follow-up",
	"improvement":        "Improvement Proposal",
}

var situationDescriptions = map[string]string{
	"deviation":          "A deviation from the documented procedure was observed and needs investigation.",
	"customer_complaint": "A customer reported a quality issue that needs to be assessed and answered.",
	"audit_finding":      "An audit finding requires a documented corrective follow-up.",
	"improvement":        "An opportunity to improve the current way of working was identified.",
}

var severityValues = map[string]string{
	"low":      "Low",
	"medium":   "Medium",
	"high":     "High",
	"critical": "Critical",
}

var urgencyDays = map[string]int{
	"high":   7,
	"medium": 30,
	"low":    90,
}

// applyDiscoveryPrefill seeds the session from the discovery answers.
// Field matching is by machine key; a prefill that does not fit the
// target field (unknown select option) is dropped silently.
func applyDiscoveryPrefill(session *WizardSession, answers *DiscoveryAnswers) {
	if title, ok := situationTitles[answers.SituationType]; ok {
		session.Title = title
	}

	for _, field := range session.fields {
		switch field.FieldName {
		case "description":
			if text, ok := situationDescriptions[answers.SituationType]; ok {
				session.Values[field.ID] = text
			}
		case "severity_level", "severity":
			value, ok := severityValues[answers.ImpactSeverity]
			if !ok {
				continue
			}
			if field.FieldType == models.FieldTypeSelect && !hasOption(field, value) {
				continue
			}
			session.Values[field.ID] = value
		case "target_completion_date", "due_date":
			if days, ok := urgencyDays[answers.Urgency]; ok && field.FieldType == models.FieldTypeDate {
				session.Values[field.ID] = time.Now().AddDate(0, 0, days).Format("2006-01-02")
			}
		}
	}
}

func hasOption(field models.ProcessField, value string) bool {
	for _, opt := range field.FieldOptions {
		if opt == value {
			return true
		}
	}
	return false
}
