// internal/repository/notification_repository.go
package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unclebandit/teamcast-backend/internal/blobstore"
	"github.com/unclebandit/teamcast-backend/internal/keys"
	"github.com/unclebandit/teamcast-backend/internal/model"
)

// DefaultRecentSentLimit bounds ListRecentSent when the caller passes no
// limit of its own.
const DefaultRecentSentLimit = 25

type NotificationRepositoryInterface interface {
	// Reads
	ListDrafts() ([]*model.Notification, error)
	ListRecentSent(limit int) ([]*model.Notification, error)
	Get(partition model.Partition, id string) (*model.Notification, error)

	// Lifecycle
	Finalize(draft *model.Notification, sentBy string) (string, error)
	Duplicate(source *model.Notification, createdBy string) error
	UpdateStatus(id string, status model.Status) error
	RecordError(id, msg string) error
	RecordWarning(id, msg string) error

	// Row writes for authoring and pipeline write-back
	CreateDraft(n *model.Notification, createdBy string) (string, error)
	Save(n *model.Notification) error
	DeleteDraft(id string) error

	// Blob pass-throughs
	SaveImage(name, base64Content string) (string, error)
	GetImage(prefix, name string) (string, error)
	SaveCard(name, payload string) error
	GetCard(name string) (string, error)
}

// NotificationRepository is the lifecycle engine over the partitioned
// notification table. Every mutation is an independent fetch-modify-write:
// the store is atomic per row write only, so concurrent callers on the same
// id are last-writer-wins. That is the accepted model for the delivery
// pipeline's progress updates; see RecordError/RecordWarning.
type NotificationRepository struct {
	Store Store
	Blobs blobstore.ObjectStore
	Log   zerolog.Logger
}

func NewNotificationRepository(store Store, blobs blobstore.ObjectStore, log zerolog.Logger) *NotificationRepository {
	return &NotificationRepository{Store: store, Blobs: blobs, Log: log}
}

// ====================== Reads ======================

func (r *NotificationRepository) ListDrafts() ([]*model.Notification, error) {
	return r.Store.ListDrafts()
}

// ListRecentSent returns the most recently finalized notifications. Sent row
// keys are most-recent-first, so the store's prefix scan needs no sort.
func (r *NotificationRepository) ListRecentSent(limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = DefaultRecentSentLimit
	}
	return r.Store.ListRecentSent(limit)
}

func (r *NotificationRepository) Get(partition model.Partition, id string) (*model.Notification, error) {
	return r.Store.Get(partition, id)
}

// ====================== Lifecycle ======================

// Finalize moves a draft into the Sent partition under a fresh
// most-recent-first id, with counters zeroed and status Queued, then deletes
// the draft. The Sent write goes first: a crash between the two calls leaves
// a duplicate (draft plus sent), never a lost campaign. Returns the new id.
func (r *NotificationRepository) Finalize(draft *model.Notification, sentBy string) (string, error) {
	if draft == nil || draft.ID == "" {
		return "", fmt.Errorf("finalize: draft notification is nil or has no id")
	}

	now := time.Now().UTC()
	newID := keys.NewMostRecentFirst()

	sent := draft.CopyAuthoring()
	sent.ID = newID
	sent.Partition = model.PartitionSent
	sent.CreatedBy = draft.CreatedBy
	sent.CreatedDate = draft.CreatedDate
	sent.IsDraft = false
	sent.Status = model.StatusQueued
	sent.SentBy = sentBy
	sent.SentDate = nil
	sent.SendingStartedDate = &now

	if err := r.Store.Save(&sent); err != nil {
		r.Log.Error().Err(err).Str("draft_id", draft.ID).Msg("failed to write sent notification")
		return "", err
	}
	if err := r.Store.Delete(model.PartitionDraft, draft.ID); err != nil {
		r.Log.Error().Err(err).Str("draft_id", draft.ID).Str("sent_id", newID).
			Msg("sent notification written but draft delete failed")
		return "", err
	}
	return newID, nil
}

// Duplicate clones source into a fresh draft under an oldest-first id, so
// clones list among drafts in creation order. Referenced blobs are copied
// first and the record written last: a failed blob copy leaves at most a
// dangling blob, never a draft pointing at missing content. Residual
// sent-only fields of a Sent source (status, counters, dates) are not
// carried into the clone.
func (r *NotificationRepository) Duplicate(source *model.Notification, createdBy string) error {
	if source == nil || source.ID == "" {
		return fmt.Errorf("duplicate: source notification is nil or has no id")
	}

	newID := keys.NewOldestFirst()

	clone := source.CopyAuthoring()
	clone.ID = newID
	clone.Partition = model.PartitionDraft
	clone.IsDraft = true
	clone.CreatedBy = createdBy
	clone.CreatedDate = time.Now().UTC()

	if source.ImageBase64BlobName != "" {
		if err := r.Blobs.CopyImage(source.ImageBase64BlobName, newID); err != nil {
			r.Log.Error().Err(err).Str("source_id", source.ID).Msg("failed to copy image blob for duplicate")
			return err
		}
		clone.ImageBase64BlobName = newID
	}

	if source.MessageType == model.MessageTypeCustomCard {
		payload, err := r.Blobs.DownloadCard(source.ID)
		if err != nil {
			r.Log.Error().Err(err).Str("source_id", source.ID).Msg("failed to fetch card payload for duplicate")
			return err
		}
		if err := r.Blobs.UploadCard(newID, payload); err != nil {
			r.Log.Error().Err(err).Str("source_id", source.ID).Msg("failed to save card payload for duplicate")
			return err
		}
	}

	if err := r.Store.Save(&clone); err != nil {
		r.Log.Error().Err(err).Str("source_id", source.ID).Msg("failed to write duplicated draft")
		return err
	}
	return nil
}

// UpdateStatus sets the delivery status of a sent notification. A missing
// id is a silent no-op: the pipeline may report against a notification that
// was reconciled away, which is not an error.
func (r *NotificationRepository) UpdateStatus(id string, status model.Status) error {
	n, err := r.Store.Get(model.PartitionSent, id)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}
	n.Status = status
	return r.Store.Save(n)
}

// RecordError appends msg to the error log, marks the notification Failed
// and stamps sentDate. Appends past the log cap are dropped whole. Missing
// id no-ops.
func (r *NotificationRepository) RecordError(id, msg string) error {
	n, err := r.Store.Get(model.PartitionSent, id)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	if next, ok := model.AppendToLog(n.ErrorMessage, msg); ok {
		n.ErrorMessage = next
	}
	now := time.Now().UTC()
	n.Status = model.StatusFailed
	n.SentDate = &now
	return r.Store.Save(n)
}

// RecordWarning appends msg to the warning log, leaving status alone.
// Missing id no-ops.
func (r *NotificationRepository) RecordWarning(id, msg string) error {
	n, err := r.Store.Get(model.PartitionSent, id)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	if next, ok := model.AppendToLog(n.WarningMessage, msg); ok {
		n.WarningMessage = next
	}
	return r.Store.Save(n)
}

// ====================== Authoring / write-back ======================

// CreateDraft writes a new draft under an oldest-first id and returns it.
func (r *NotificationRepository) CreateDraft(n *model.Notification, createdBy string) (string, error) {
	if n == nil {
		return "", fmt.Errorf("create draft: notification is nil")
	}

	n.ID = keys.NewOldestFirst()
	n.Partition = model.PartitionDraft
	n.IsDraft = true
	n.CreatedBy = createdBy
	n.CreatedDate = time.Now().UTC()

	if err := r.Store.Save(n); err != nil {
		r.Log.Error().Err(err).Msg("failed to create draft")
		return "", err
	}
	return n.ID, nil
}

// Save writes the full row back. The delivery pipeline uses this for its
// counter updates after its own Get.
func (r *NotificationRepository) Save(n *model.Notification) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("save: notification is nil or has no id")
	}
	return r.Store.Save(n)
}

func (r *NotificationRepository) DeleteDraft(id string) error {
	return r.Store.Delete(model.PartitionDraft, id)
}

// ====================== Blobs ======================

func (r *NotificationRepository) SaveImage(name, base64Content string) (string, error) {
	return r.Blobs.UploadImage(name, base64Content)
}

// GetImage downloads the image stored under name and re-attaches the data
// URI prefix the authoring UI strips before upload.
func (r *NotificationRepository) GetImage(prefix, name string) (string, error) {
	content, err := r.Blobs.DownloadImage(name)
	if err != nil {
		return "", err
	}
	if prefix != "" && !strings.HasPrefix(content, prefix) {
		content = prefix + content
	}
	return content, nil
}

func (r *NotificationRepository) SaveCard(name, payload string) error {
	return r.Blobs.UploadCard(name, payload)
}

func (r *NotificationRepository) GetCard(name string) (string, error) {
	return r.Blobs.DownloadCard(name)
}

var _ NotificationRepositoryInterface = (*NotificationRepository)(nil)
