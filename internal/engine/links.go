package engine

import (
	"github.com/aethra/qualis/internal/errors"
	"github.com/aethra/qualis/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LinkService manages directed record-to-record links. A link starts
// pending (target process chosen, no target record yet) and is
// resolved exactly once when the follow-on record is created.
type LinkService struct {
	db *gorm.DB
}

// NewLinkService creates a new link service
func NewLinkService(db *gorm.DB) *LinkService {
	return &LinkService{db: db}
}

// LinkView is a link enriched for display: process and record names
// resolved so clients render without extra lookups.
type LinkView struct {
	models.RecordLink
	TargetProcessName string                `json:"target_process_name"`
	TargetRecord      *models.ProcessRecord `json:"target_record,omitempty"`
	SourceRecord      *models.ProcessRecord `json:"source_record,omitempty"`
	SourceProcessName string                `json:"source_process_name,omitempty"`
}

// CreatePending records the intent to spawn a follow-on record in the
// target process. Pending links never expire.
func (s *LinkService) CreatePending(sourceRecordID, targetProcessID uuid.UUID) (*models.RecordLink, error) {
	var source models.ProcessRecord
	if err := s.db.First(&source, "id = ?", sourceRecordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("record")
		}
		return nil, errors.NewInternalError(err)
	}

	var target models.Process
	if err := s.db.First(&target, "id = ?", targetProcessID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("process")
		}
		return nil, errors.NewInternalError(err)
	}

	link := models.RecordLink{
		SourceRecordID:  sourceRecordID,
		TargetProcessID: targetProcessID,
	}
	if err := s.db.Create(&link).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &link, nil
}

// Resolve attaches the follow-on record to a pending link. A resolved
// link is immutable.
func (s *LinkService) Resolve(linkID, targetRecordID uuid.UUID) (*models.RecordLink, error) {
	var link models.RecordLink
	if err := s.db.First(&link, "id = ?", linkID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("link")
		}
		return nil, errors.NewInternalError(err)
	}
	if link.TargetRecordID != nil {
		return nil, errors.NewConflictError("link", "link is already resolved")
	}

	var target models.ProcessRecord
	if err := s.db.First(&target, "id = ?", targetRecordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("record")
		}
		return nil, errors.NewInternalError(err)
	}
	if target.ProcessID != link.TargetProcessID {
		return nil, errors.NewValidationError("target_record_id", "record does not belong to the link's target process")
	}

	link.TargetRecordID = &targetRecordID
	if err := s.db.Save(&link).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &link, nil
}

// ListOutgoing returns the links originating from a record
func (s *LinkService) ListOutgoing(recordID uuid.UUID) ([]LinkView, error) {
	var links []models.RecordLink
	if err := s.db.Where("source_record_id = ?", recordID).
		Order("created_at").Find(&links).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	views := make([]LinkView, 0, len(links))
	for _, link := range links {
		view := LinkView{RecordLink: link}

		var process models.Process
		if err := s.db.First(&process, "id = ?", link.TargetProcessID).Error; err == nil {
			view.TargetProcessName = process.Name
		}
		if link.TargetRecordID != nil {
			var target models.ProcessRecord
			if err := s.db.First(&target, "id = ?", *link.TargetRecordID).Error; err == nil {
				view.TargetRecord = &target
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// ListIncoming returns the links pointing at a record
func (s *LinkService) ListIncoming(recordID uuid.UUID) ([]LinkView, error) {
	var links []models.RecordLink
	if err := s.db.Where("target_record_id = ?", recordID).
		Order("created_at").Find(&links).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	views := make([]LinkView, 0, len(links))
	for _, link := range links {
		view := LinkView{RecordLink: link}

		var source models.ProcessRecord
		if err := s.db.First(&source, "id = ?", link.SourceRecordID).Error; err == nil {
			view.SourceRecord = &source
			var process models.Process
			if err := s.db.First(&process, "id = ?", source.ProcessID).Error; err == nil {
				view.SourceProcessName = process.Name
			}
		}
		views = append(views, view)
	}
	return views, nil
}

// PendingForProcess returns unresolved links targeting a process,
// surfaced when a new record of that process is being created.
func (s *LinkService) PendingForProcess(processID uuid.UUID) ([]LinkView, error) {
	var links []models.RecordLink
	if err := s.db.Where("target_process_id = ? AND target_record_id IS NULL", processID).
		Order("created_at").Find(&links).Error; err != nil {
		return nil, errors.NewInternalError(err)
	}

	views := make([]LinkView, 0, len(links))
	for _, link := range links {
		view := LinkView{RecordLink: link}
		var source models.ProcessRecord
		if err := s.db.First(&source, "id = ?", link.SourceRecordID).Error; err == nil {
			view.SourceRecord = &source
		}
		views = append(views, view)
	}
	return views, nil
}
