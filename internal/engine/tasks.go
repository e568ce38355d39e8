package engine

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// The task and audit panels are display-only placeholders until task
// persistence ships. Content is derived deterministically from the
// record ID so a record always shows the same panel.

// RecordTask is a display-only sub-entity of a record
type RecordTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Assignee  string    `json:"assignee"`
	DueDate   string    `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry is a display-only activity line for a record
type AuditEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

var taskTitles = []string{
	"Collect supporting evidence",
	"Perform root cause analysis",
	"Draft corrective action plan",
	"Verify implementation",
	"Update affected documentation",
	"Notify stakeholders",
}

var taskStatuses = []string{"open", "in_progress", "done"}

var taskAssignees = []string{
	"Quality Team",
	"Process Owner",
	"Department Lead",
}

var auditActions = []struct {
	action string
	detail string
}{
	{"viewed", "Record opened from the process list"},
	{"field_updated", "A form field value was changed"},
	{"comment_added", "A note was attached to the record"},
	{"exported", "Record summary exported"},
}

func recordSeed(recordID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(recordID[:])
	return int64(h.Sum64())
}

// TasksForRecord returns the record's placeholder task list
func TasksForRecord(recordID uuid.UUID) []RecordTask {
	rng := rand.New(rand.NewSource(recordSeed(recordID)))
	count := 2 + rng.Intn(3)

	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	tasks := make([]RecordTask, 0, count)
	for i := 0; i < count; i++ {
		title := taskTitles[rng.Intn(len(taskTitles))]
		tasks = append(tasks, RecordTask{
			ID:        fmt.Sprintf("task-%s-%d", recordID.String()[:8], i+1),
			Title:     title,
			Status:    taskStatuses[rng.Intn(len(taskStatuses))],
			Assignee:  taskAssignees[rng.Intn(len(taskAssignees))],
			DueDate:   base.AddDate(0, 0, 7+rng.Intn(60)).Format("2006-01-02"),
			CreatedAt: base.AddDate(0, 0, rng.Intn(5)),
		})
	}
	return tasks
}

// AuditForRecord returns the record's placeholder activity feed,
// newest first.
func AuditForRecord(recordID uuid.UUID) []AuditEntry {
	rng := rand.New(rand.NewSource(recordSeed(recordID) ^ 0x5f5f))
	count := 3 + rng.Intn(3)

	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	entries := make([]AuditEntry, 0, count)
	for i := 0; i < count; i++ {
		tpl := auditActions[rng.Intn(len(auditActions))]
		entries = append(entries, AuditEntry{
			ID:        fmt.Sprintf("audit-%s-%d", recordID.String()[:8], i+1),
			Action:    tpl.action,
			Detail:    tpl.detail,
			Actor:     taskAssignees[rng.Intn(len(taskAssignees))],
			Timestamp: base.Add(time.Duration(count-i) * -13 * time.Hour),
		})
	}
	return entries
}
