package repository_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/teamcast-backend/internal/blobstore"
	"github.com/unclebandit/teamcast-backend/internal/model"
	"github.com/unclebandit/teamcast-backend/internal/repository"
)

func newRepo() (*repository.NotificationRepository, *blobstore.MemoryStore) {
	blobs := blobstore.NewMemoryStore()
	return repository.NewNotificationRepository(repository.NewMemoryStore(), blobs, zerolog.Nop()), blobs
}

func makeDraft(t *testing.T, repo *repository.NotificationRepository, title string) *model.Notification {
	t.Helper()
	draft := &model.Notification{
		Title:    title,
		Summary:  "hello",
		Author:   "Comms Team",
		Teams:    []string{"team-a", "team-b"},
		AllUsers: false,
	}
	_, err := repo.CreateDraft(draft, "alice")
	require.NoError(t, err)
	return draft
}

func TestCreateDraftAssignsKeyAndPartition(t *testing.T) {
	repo, _ := newRepo()

	draft := makeDraft(t, repo, "Launch")
	require.NotEmpty(t, draft.ID)
	assert.Equal(t, model.PartitionDraft, draft.Partition)
	assert.True(t, draft.IsDraft)
	assert.Equal(t, "alice", draft.CreatedBy)

	got, err := repo.Get(model.PartitionDraft, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Launch", got.Title)
}

func TestListDraftsIsCreationOrdered(t *testing.T) {
	repo, _ := newRepo()

	first := makeDraft(t, repo, "first")
	second := makeDraft(t, repo, "second")
	third := makeDraft(t, repo, "third")

	drafts, err := repo.ListDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID},
		[]string{drafts[0].ID, drafts[1].ID, drafts[2].ID})
}

func TestFinalizeProducesDisjointPartitions(t *testing.T) {
	repo, _ := newRepo()
	draft := makeDraft(t, repo, "Launch")

	newID, err := repo.Finalize(draft, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, newID)
	assert.NotEqual(t, draft.ID, newID)

	gone, err := repo.Get(model.PartitionDraft, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "the draft row must be deleted")

	sent, err := repo.Get(model.PartitionSent, newID)
	require.NoError(t, err)
	require.NotNil(t, sent)

	assert.False(t, sent.IsDraft)
	assert.Equal(t, model.StatusQueued, sent.Status)
	assert.Equal(t, "alice", sent.SentBy)
	assert.Nil(t, sent.SentDate)
	assert.NotNil(t, sent.SendingStartedDate)
	assert.Zero(t, sent.Succeeded)
	assert.Zero(t, sent.Failed)
	assert.Zero(t, sent.Throttled)

	// authoring fields copied verbatim
	assert.Equal(t, draft.Title, sent.Title)
	assert.Equal(t, draft.Summary, sent.Summary)
	assert.Equal(t, draft.Author, sent.Author)
	assert.Equal(t, []string(draft.Teams), []string(sent.Teams))
}

func TestFinalizeRejectsInvalidDraft(t *testing.T) {
	repo, _ := newRepo()

	_, err := repo.Finalize(nil, "alice")
	assert.Error(t, err)

	_, err = repo.Finalize(&model.Notification{}, "alice")
	assert.Error(t, err)
}

func TestFinalizedNotificationsListMostRecentFirst(t *testing.T) {
	repo, _ := newRepo()

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		id, err := repo.Finalize(makeDraft(t, repo, title), "alice")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	sent, err := repo.ListRecentSent(2)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, ids[2], sent[0].ID, "the newest sent notification lists first")
	assert.Equal(t, ids[1], sent[1].ID)
}

func TestDuplicatePreservesContentAndIsolatesBlobs(t *testing.T) {
	repo, blobs := newRepo()

	draft := makeDraft(t, repo, "Launch")
	stored, err := blobs.UploadImage(draft.ID, "aW1hZ2UtYnl0ZXM=")
	require.NoError(t, err)
	draft.ImageBase64BlobName = stored
	require.NoError(t, repo.Save(draft))

	require.NoError(t, repo.Duplicate(draft, "bob"))

	drafts, err := repo.ListDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	var clone *model.Notification
	for _, d := range drafts {
		if d.ID != draft.ID {
			clone = d
		}
	}
	require.NotNil(t, clone)

	assert.Equal(t, draft.Title, clone.Title)
	assert.Equal(t, "bob", clone.CreatedBy)
	assert.True(t, clone.IsDraft)

	assert.NotEqual(t, draft.ImageBase64BlobName, clone.ImageBase64BlobName)
	original, err := blobs.DownloadImage(draft.ImageBase64BlobName)
	require.NoError(t, err)
	copied, err := blobs.DownloadImage(clone.ImageBase64BlobName)
	require.NoError(t, err)
	assert.Equal(t, original, copied)
}

func TestDuplicateCopiesCardPayload(t *testing.T) {
	repo, blobs := newRepo()

	draft := makeDraft(t, repo, "Card")
	draft.MessageType = model.MessageTypeCustomCard
	require.NoError(t, repo.Save(draft))
	require.NoError(t, blobs.UploadCard(draft.ID, `{"type":"AdaptiveCard"}`))

	require.NoError(t, repo.Duplicate(draft, "bob"))

	drafts, err := repo.ListDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	for _, d := range drafts {
		if d.ID == draft.ID {
			continue
		}
		payload, err := blobs.DownloadCard(d.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"AdaptiveCard"}`, payload)
	}
}

func TestDuplicateFailedBlobCopyWritesNoDraft(t *testing.T) {
	repo, _ := newRepo()

	draft := makeDraft(t, repo, "Launch")
	draft.ImageBase64BlobName = "missing-blob"
	require.NoError(t, repo.Save(draft))

	err := repo.Duplicate(draft, "bob")
	require.Error(t, err)

	drafts, err := repo.ListDrafts()
	require.NoError(t, err)
	assert.Len(t, drafts, 1, "a failed blob copy must not leave an orphaned draft")
}

func TestDuplicateOfSentClearsLifecycleFields(t *testing.T) {
	repo, _ := newRepo()

	id, err := repo.Finalize(makeDraft(t, repo, "Launch"), "alice")
	require.NoError(t, err)

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	sent.Status = model.StatusSent
	sent.Succeeded = 40
	sent.Failed = 2
	sent.TotalMessageCount = 42
	require.NoError(t, repo.Save(sent))

	require.NoError(t, repo.Duplicate(sent, "bob"))

	drafts, err := repo.ListDrafts()
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	clone := drafts[0]
	assert.True(t, clone.IsDraft)
	assert.Empty(t, clone.Status)
	assert.Zero(t, clone.Succeeded)
	assert.Zero(t, clone.Failed)
	assert.Zero(t, clone.TotalMessageCount)
	assert.Nil(t, clone.SentDate)
	assert.Nil(t, clone.SendingStartedDate)
}

func TestUpdateStatus(t *testing.T) {
	repo, _ := newRepo()

	id, err := repo.Finalize(makeDraft(t, repo, "Launch"), "alice")
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(id, model.StatusSending))

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSending, sent.Status)
}

func TestMutatorsNoOpOnMissingID(t *testing.T) {
	repo, _ := newRepo()

	assert.NoError(t, repo.UpdateStatus("nonexistent", model.StatusSent))
	assert.NoError(t, repo.RecordError("nonexistent", "boom"))
	assert.NoError(t, repo.RecordWarning("nonexistent", "boom"))

	sent, err := repo.ListRecentSent(0)
	require.NoError(t, err)
	assert.Empty(t, sent, "a no-op mutator must not create rows")
}

func TestRecordErrorMarksFailed(t *testing.T) {
	repo, _ := newRepo()

	id, err := repo.Finalize(makeDraft(t, repo, "Launch"), "alice")
	require.NoError(t, err)

	require.NoError(t, repo.RecordError(id, "timeout on batch 3"))

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, sent.Status)
	assert.Equal(t, "timeout on batch 3", sent.ErrorMessage)
	require.NotNil(t, sent.SentDate)

	require.NoError(t, repo.RecordError(id, "fallback also failed"))
	sent, err = repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, "timeout on batch 3\nfallback also failed", sent.ErrorMessage)
}

func TestRecordWarningLeavesStatusAlone(t *testing.T) {
	repo, _ := newRepo()

	id, err := repo.Finalize(makeDraft(t, repo, "Launch"), "alice")
	require.NoError(t, err)

	require.NoError(t, repo.RecordWarning(id, "recipient 12 unreachable"))

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, sent.Status)
	assert.Equal(t, "recipient 12 unreachable", sent.WarningMessage)
}

func TestRecordWarningSaturatesAtCap(t *testing.T) {
	repo, _ := newRepo()

	id, err := repo.Finalize(makeDraft(t, repo, "Launch"), "alice")
	require.NoError(t, err)

	msg := strings.Repeat("x", 1000)
	for i := 0; i < 100; i++ {
		require.NoError(t, repo.RecordWarning(id, msg))
	}

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sent.WarningMessage), model.MaxLogLength)

	saturated := sent.WarningMessage
	require.NoError(t, repo.RecordWarning(id, msg))
	sent, err = repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, saturated, sent.WarningMessage, "appends past the cap leave the log unchanged")
}

// Concurrent appends are last-writer-wins; individual lines may be lost but
// the field never exceeds the cap and every surviving line is intact.
func TestConcurrentWarningsStayBounded(t *testing.T) {
	repo, _ := newRepo()

	id, err := repo.Finalize(makeDraft(t, repo, "Launch"), "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = repo.RecordWarning(id, strings.Repeat("w", 100))
			}
		}()
	}
	wg.Wait()

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sent.WarningMessage), model.MaxLogLength)
	for _, line := range strings.Split(sent.WarningMessage, "\n") {
		assert.Len(t, line, 100, "no line may be torn by a concurrent append")
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	repo, _ := newRepo()

	draft := makeDraft(t, repo, "Launch")
	require.True(t, draft.IsDraft)

	id, err := repo.Finalize(draft, "alice")
	require.NoError(t, err)

	sent, err := repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, sent.Status)
	assert.Zero(t, sent.Succeeded)

	require.NoError(t, repo.UpdateStatus(id, model.StatusSending))
	require.NoError(t, repo.RecordError(id, "timeout on batch 3"))

	sent, err = repo.Get(model.PartitionSent, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, sent.Status)
	assert.Equal(t, "timeout on batch 3", sent.ErrorMessage)
	assert.NotNil(t, sent.SentDate)
}

func TestImageRoundTripWithPrefix(t *testing.T) {
	repo, _ := newRepo()

	stored, err := repo.SaveImage("img1", "aW1hZ2U=")
	require.NoError(t, err)
	assert.Equal(t, "img1", stored)

	got, err := repo.GetImage("data:image/png;base64,", "img1")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aW1hZ2U=", got)

	// a prefix already present is not doubled
	_, err = repo.SaveImage("img2", "data:image/png;base64,aW1hZ2U=")
	require.NoError(t, err)
	got, err = repo.GetImage("data:image/png;base64,", "img2")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aW1hZ2U=", got)
}
