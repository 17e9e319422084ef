// internal/service/notification_service.go
package service

import (
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/teamcast-backend/internal/errors"
	"github.com/unclebandit/teamcast-backend/internal/model"
	"github.com/unclebandit/teamcast-backend/internal/queue"
	"github.com/unclebandit/teamcast-backend/internal/repository"
)

const recentSentCacheKey = "recent_sent"

// NotificationService orchestrates authoring operations for the HTTP API
// and fans a finalized notification out to the delivery queue.
type NotificationService struct {
	Repo      repository.NotificationRepositoryInterface
	Queue     queue.Queue
	Topic     string
	BatchSize int
	Log       zerolog.Logger

	cache *gocache.Cache
}

func NewNotificationService(repo repository.NotificationRepositoryInterface, q queue.Queue, topic string, batchSize int, cacheTTL time.Duration, log zerolog.Logger) *NotificationService {
	if batchSize < 1 {
		batchSize = 100
	}
	return &NotificationService{
		Repo:      repo,
		Queue:     q,
		Topic:     topic,
		BatchSize: batchSize,
		Log:       log,
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// SendResult reports what a send request queued.
type SendResult struct {
	NotificationID string `json:"notification_id"`
	BatchesQueued  int    `json:"batches_queued"`
	Recipients     int    `json:"recipients"`
}

func (s *NotificationService) CreateDraft(n *model.Notification, createdBy string) (*model.Notification, error) {
	if _, err := s.Repo.CreateDraft(n, createdBy); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateDraft replaces the authoring fields of an existing draft. The id and
// partition of the stored row win over whatever the payload carries.
func (s *NotificationService) UpdateDraft(id string, n *model.Notification) (*model.Notification, error) {
	existing, err := s.Repo.Get(model.PartitionDraft, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, appErrors.NewNotificationNotFound(string(model.PartitionDraft), id)
	}

	updated := n.CopyAuthoring()
	updated.ID = existing.ID
	updated.Partition = model.PartitionDraft
	updated.IsDraft = true
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedDate = existing.CreatedDate

	if err := s.Repo.Save(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *NotificationService) DeleteDraft(id string) error {
	return s.Repo.DeleteDraft(id)
}

func (s *NotificationService) ListDrafts() ([]*model.Notification, error) {
	return s.Repo.ListDrafts()
}

// ListRecentSent serves the sent listing through a short-TTL cache; the UI
// polls this endpoint while campaigns are in flight.
func (s *NotificationService) ListRecentSent(limit int) ([]*model.Notification, error) {
	key := fmt.Sprintf("%s:%d", recentSentCacheKey, limit)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]*model.Notification), nil
	}

	sent, err := s.Repo.ListRecentSent(limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, sent)
	return sent, nil
}

func (s *NotificationService) Get(partition model.Partition, id string) (*model.Notification, error) {
	return s.Repo.Get(partition, id)
}

// Send finalizes the draft into the Sent partition and queues its recipient
// batches for the delivery pipeline.
func (s *NotificationService) Send(draftID, actor string) (*SendResult, error) {
	draft, err := s.Repo.Get(model.PartitionDraft, draftID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, appErrors.NewNotificationNotFound(string(model.PartitionDraft), draftID)
	}

	newID, err := s.Repo.Finalize(draft, actor)
	if err != nil {
		return nil, err
	}
	s.cache.Flush()

	recipients := resolveRecipients(draft)
	batches := 0
	for start := 0; start < len(recipients) || (start == 0 && draft.AllUsers); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		job := DeliveryJob{
			NotificationID:  newID,
			Recipients:      recipients[start:end],
			AllUsers:        draft.AllUsers,
			TotalRecipients: len(recipients),
		}
		body, err := json.Marshal(job)
		if err != nil {
			return nil, err
		}
		if err := s.Queue.Publish(s.Topic, body); err != nil {
			s.Log.Error().Err(err).Str("notification_id", newID).Msg("failed to enqueue delivery batch")
			return nil, err
		}
		batches++
		if len(recipients) == 0 {
			break
		}
	}

	return &SendResult{NotificationID: newID, BatchesQueued: batches, Recipients: len(recipients)}, nil
}

// Duplicate clones a draft or sent notification into a fresh draft.
func (s *NotificationService) Duplicate(partition model.Partition, id, createdBy string) error {
	source, err := s.Repo.Get(partition, id)
	if err != nil {
		return err
	}
	if source == nil {
		return appErrors.NewNotificationNotFound(string(partition), id)
	}
	return s.Repo.Duplicate(source, createdBy)
}

func (s *NotificationService) SaveImage(name, base64Content string) (string, error) {
	return s.Repo.SaveImage(name, base64Content)
}

func (s *NotificationService) GetImage(prefix, name string) (string, error) {
	return s.Repo.GetImage(prefix, name)
}

func (s *NotificationService) SaveCard(name, payload string) error {
	return s.Repo.SaveCard(name, payload)
}

func (s *NotificationService) GetCard(name string) (string, error) {
	return s.Repo.GetCard(name)
}

// resolveRecipients flattens the explicit targeting scope into conversation
// ids. The all-users audience has no explicit list; the pipeline resolves it
// from its own roster, so here it only rides along as a flag.
func resolveRecipients(n *model.Notification) []string {
	recipients := make([]string, 0, len(n.Teams)+len(n.Rosters)+len(n.Groups))
	seen := map[string]bool{}
	for _, group := range [][]string{n.Teams, n.Rosters, n.Groups} {
		for _, id := range group {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			recipients = append(recipients, id)
		}
	}
	return recipients
}
