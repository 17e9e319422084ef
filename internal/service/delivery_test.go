package service_test

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/teamcast-backend/internal/blobstore"
	"github.com/unclebandit/teamcast-backend/internal/model"
	"github.com/unclebandit/teamcast-backend/internal/queue"
	"github.com/unclebandit/teamcast-backend/internal/repository"
	"github.com/unclebandit/teamcast-backend/internal/service"
)

func finalizeTestNotification(t *testing.T, repo *repository.NotificationRepository, teams ...string) string {
	t.Helper()
	draft := &model.Notification{Title: "Launch", Teams: teams}
	_, err := repo.CreateDraft(draft, "alice")
	require.NoError(t, err)
	id, err := repo.Finalize(draft, "alice")
	require.NoError(t, err)
	return id
}

func batchBody(t *testing.T, job service.DeliveryJob) []byte {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return body
}

func TestHandleBatchDeliversAndCompletes(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())
	id := finalizeTestNotification(t, repo, "t1", "t2", "t3")

	worker := service.NewDeliveryWorker(repo, func(recipient string, n *model.Notification) error {
		return nil
	}, nil, zerolog.Nop())

	err := worker.HandleBatch(batchBody(t, service.DeliveryJob{
		NotificationID:  id,
		Recipients:      []string{"t1", "t2", "t3"},
		TotalRecipients: 3,
	}))
	require.NoError(t, err)

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, sent.Status)
	assert.Equal(t, 3, sent.TotalMessageCount)
	assert.Equal(t, 3, sent.Succeeded)
	assert.NotNil(t, sent.SentDate)
}

func TestHandleBatchCountsFailuresAndThrottles(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())
	id := finalizeTestNotification(t, repo, "t1", "t2", "t3")

	worker := service.NewDeliveryWorker(repo, func(recipient string, n *model.Notification) error {
		switch recipient {
		case "t1":
			return nil
		case "t2":
			return service.ErrThrottled
		default:
			return errors.New("conversation not found")
		}
	}, nil, zerolog.Nop())

	err := worker.HandleBatch(batchBody(t, service.DeliveryJob{
		NotificationID:  id,
		Recipients:      []string{"t1", "t2", "t3"},
		TotalRecipients: 3,
	}))
	require.NoError(t, err)

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, 1, sent.Succeeded)
	assert.Equal(t, 1, sent.Throttled)
	assert.Equal(t, 1, sent.Failed)
	assert.True(t, strings.Contains(sent.WarningMessage, "t3"), "failed recipient lands in the warning log")
	assert.Equal(t, model.StatusSent, sent.Status, "fully accounted delivery is terminal even with failures")

	// counters never exceed the audience size
	assert.LessOrEqual(t, sent.Succeeded+sent.Failed+sent.Throttled, sent.TotalMessageCount)
}

func TestHandleBatchPartialProgressKeepsSending(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())
	id := finalizeTestNotification(t, repo, "t1", "t2", "t3", "t4")

	worker := service.NewDeliveryWorker(repo, func(recipient string, n *model.Notification) error {
		return nil
	}, nil, zerolog.Nop())

	err := worker.HandleBatch(batchBody(t, service.DeliveryJob{
		NotificationID:  id,
		Recipients:      []string{"t1", "t2"},
		TotalRecipients: 4,
	}))
	require.NoError(t, err)

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSending, sent.Status)
	assert.Equal(t, 2, sent.Succeeded)
	assert.Nil(t, sent.SentDate)

	// second batch completes the campaign
	err = worker.HandleBatch(batchBody(t, service.DeliveryJob{
		NotificationID:  id,
		Recipients:      []string{"t3", "t4"},
		TotalRecipients: 4,
	}))
	require.NoError(t, err)

	sent, err = repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, sent.Status)
	assert.Equal(t, 4, sent.Succeeded)
}

func TestHandleBatchAllUsersAudienceCompletes(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())

	draft := &model.Notification{Title: "Launch", AllUsers: true}
	_, err := repo.CreateDraft(draft, "alice")
	require.NoError(t, err)
	id, err := repo.Finalize(draft, "alice")
	require.NoError(t, err)

	worker := service.NewDeliveryWorker(repo, func(recipient string, n *model.Notification) error {
		t.Fatal("an empty batch has nobody to send to")
		return nil
	}, nil, zerolog.Nop())

	// the fan-out forwards an all-users audience as one empty batch; it
	// must still reach a terminal status
	err = worker.HandleBatch(batchBody(t, service.DeliveryJob{
		NotificationID:  id,
		AllUsers:        true,
		TotalRecipients: 0,
	}))
	require.NoError(t, err)

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, sent.Status)
	assert.NotNil(t, sent.SentDate)
	assert.Zero(t, sent.Succeeded)
}

func TestHandleBatchMissingNotificationNoOps(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())

	worker := service.NewDeliveryWorker(repo, func(recipient string, n *model.Notification) error {
		t.Fatal("send must not be called for a missing notification")
		return nil
	}, nil, zerolog.Nop())

	err := worker.HandleBatch(batchBody(t, service.DeliveryJob{
		NotificationID:  "nonexistent",
		Recipients:      []string{"t1"},
		TotalRecipients: 1,
	}))
	assert.NoError(t, err)
}

func TestHandleBatchDiscardsMalformedJob(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())
	worker := service.NewDeliveryWorker(repo, nil, nil, zerolog.Nop())

	assert.NoError(t, worker.HandleBatch([]byte("{not json")))
}

func TestEndToEndSendAndDeliver(t *testing.T) {
	repo := repository.NewNotificationRepository(
		repository.NewMemoryStore(), blobstore.NewMemoryStore(), zerolog.Nop())

	q := queue.NewInMemoryQueue(zerolog.Nop())
	svc := service.NewNotificationService(repo, q, "notification_batches", 2, time.Millisecond, zerolog.Nop())

	done := make(chan struct{}, 4)
	worker := service.NewDeliveryWorker(repo, func(recipient string, n *model.Notification) error {
		return nil
	}, nil, zerolog.Nop())

	// Serialize batch handling: concurrent commits are last-writer-wins by
	// design, and this test pins the lifecycle, not the race.
	var mu sync.Mutex
	require.NoError(t, q.Subscribe("notification_batches", func(body []byte) error {
		mu.Lock()
		err := worker.HandleBatch(body)
		mu.Unlock()
		done <- struct{}{}
		return err
	}))

	draft := &model.Notification{Title: "Launch", Teams: []string{"t1", "t2", "t3"}}
	_, err := repo.CreateDraft(draft, "alice")
	require.NoError(t, err)

	result, err := svc.Send(draft.ID, "alice")
	require.NoError(t, err)

	for i := 0; i < result.BatchesQueued; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for delivery batches")
		}
	}

	sent, err := repo.Get(model.PartitionSent, result.NotificationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, sent.Status)
	assert.Equal(t, 3, sent.Succeeded)
}
