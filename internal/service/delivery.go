// internal/service/delivery.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/unclebandit/teamcast-backend/internal/model"
	"github.com/unclebandit/teamcast-backend/internal/repository"
)

// DeliveryJob is one queued batch of recipients for a sent notification.
type DeliveryJob struct {
	NotificationID  string   `json:"notification_id"`
	Recipients      []string `json:"recipients"`
	AllUsers        bool     `json:"all_users"`
	TotalRecipients int      `json:"total_recipients"`
}

// ErrThrottled is returned by a Sender when the transport rejected the send
// for rate reasons. Throttled sends count separately from failures.
var ErrThrottled = errors.New("send throttled by transport")

// Sender delivers one notification to one recipient.
type Sender func(recipient string, n *model.Notification) error

// DeliveryWorker consumes delivery batches and reports progress back into
// the repository. Many workers run against the same notification id
// concurrently; every progress write is an independent fetch-modify-write,
// so counter updates ride the store's last-writer-wins model the same way
// the diagnostic logs do.
type DeliveryWorker struct {
	Repo    repository.NotificationRepositoryInterface
	Send    Sender
	Limiter *rate.Limiter
	Log     zerolog.Logger
}

func NewDeliveryWorker(repo repository.NotificationRepositoryInterface, send Sender, limiter *rate.Limiter, log zerolog.Logger) *DeliveryWorker {
	return &DeliveryWorker{Repo: repo, Send: send, Limiter: limiter, Log: log}
}

// HandleBatch processes one queued batch. A missing notification is a
// no-op: the campaign may have been reconciled away after a crash during
// finalize, and redelivering the batch would not help.
func (w *DeliveryWorker) HandleBatch(body []byte) error {
	var job DeliveryJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Log.Warn().Err(err).Msg("discarding malformed delivery job")
		return nil
	}

	n, err := w.Repo.Get(model.PartitionSent, job.NotificationID)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	if n.Status == model.StatusQueued {
		n.Status = model.StatusSending
		n.TotalMessageCount = job.TotalRecipients
		if err := w.Repo.Save(n); err != nil {
			return err
		}
	}

	var succeeded, failed, throttled int
	for _, recipient := range job.Recipients {
		if w.Limiter != nil {
			if err := w.Limiter.Wait(context.Background()); err != nil {
				return err
			}
		}

		err := w.Send(recipient, n)
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrThrottled):
			throttled++
		default:
			failed++
			if werr := w.Repo.RecordWarning(job.NotificationID, fmt.Sprintf("delivery to %s failed: %v", recipient, err)); werr != nil {
				w.Log.Error().Err(werr).Str("notification_id", job.NotificationID).Msg("failed to record delivery warning")
			}
		}
	}

	return w.commitProgress(job.NotificationID, succeeded, failed, throttled)
}

// commitProgress folds this batch's tallies into the stored counters and
// flips the notification terminal once every recipient is accounted for.
func (w *DeliveryWorker) commitProgress(id string, succeeded, failed, throttled int) error {
	n, err := w.Repo.Get(model.PartitionSent, id)
	if err != nil {
		return err
	}
	if n == nil {
		return nil
	}

	n.Succeeded += succeeded
	n.Failed += failed
	n.Throttled += throttled

	// A zero audience is complete immediately: this stand-in transport has
	// no roster to resolve an all-users flag against, so an empty batch
	// must not leave the record in Sending forever.
	done := n.Succeeded+n.Failed+n.Throttled >= n.TotalMessageCount
	if done {
		now := time.Now().UTC()
		n.Status = model.StatusSent
		n.SentDate = &now
	}

	if err := w.Repo.Save(n); err != nil {
		return err
	}

	w.Log.Info().Str("notification_id", id).
		Int("succeeded", n.Succeeded).Int("failed", n.Failed).Int("throttled", n.Throttled).
		Bool("done", done).
		Msg("delivery progress committed")
	return nil
}
