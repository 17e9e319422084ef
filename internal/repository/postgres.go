// internal/repository/postgres.go
package repository

import (
	"database/sql"

	appErrors "github.com/unclebandit/teamcast-backend/internal/errors"
	"github.com/unclebandit/teamcast-backend/internal/model"
)

// PostgresStore keeps the notifications table in Postgres, one row per
// campaign keyed by (partition, row_key).
type PostgresStore struct {
	DB *sql.DB
}

const notificationColumns = `
    partition, row_key, title, image_link, image_base64_blob_name, summary,
    author, button_title, button_link, created_by, created_date, message_type,
    poll_options, poll_quiz_mode, poll_quiz_answers, poll_multiple_choice,
    teams, rosters, groups, all_users,
    inline_translation, full_width, notify_on_send, on_behalf_of, stage_view,
    ack_requested, is_draft, status, sent_date, sent_by, sending_started_date,
    total_message_count, succeeded, failed, throttled,
    error_message, warning_message`

func scanNotification(row interface{ Scan(...any) error }) (*model.Notification, error) {
	var n model.Notification
	var status sql.NullString
	err := row.Scan(
		&n.Partition, &n.ID, &n.Title, &n.ImageLink, &n.ImageBase64BlobName, &n.Summary,
		&n.Author, &n.ButtonTitle, &n.ButtonLink, &n.CreatedBy, &n.CreatedDate, &n.MessageType,
		&n.PollOptions, &n.PollQuizMode, &n.PollQuizAnswers, &n.PollMultipleChoice,
		&n.Teams, &n.Rosters, &n.Groups, &n.AllUsers,
		&n.InlineTranslation, &n.FullWidth, &n.NotifyOnSend, &n.OnBehalfOf, &n.StageView,
		&n.AcknowledgementRequested, &n.IsDraft, &status, &n.SentDate, &n.SentBy, &n.SendingStartedDate,
		&n.TotalMessageCount, &n.Succeeded, &n.Failed, &n.Throttled,
		&n.ErrorMessage, &n.WarningMessage,
	)
	if err != nil {
		return nil, err
	}
	n.Status = model.Status(status.String)
	return &n, nil
}

func (s *PostgresStore) Get(partition model.Partition, id string) (*model.Notification, error) {
	query := `SELECT` + notificationColumns + `
        FROM notifications WHERE partition=$1 AND row_key=$2`
	n, err := scanNotification(s.DB.QueryRow(query, partition, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, appErrors.NewStoreUnavailable("get", err)
	}
	return n, nil
}

// Save writes the full row. The upsert replaces every column, which is what
// gives the fetch-modify-write callers their last-writer-wins semantics.
func (s *PostgresStore) Save(n *model.Notification) error {
	query := `
        INSERT INTO notifications (` + notificationColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
                $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24,
                $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)
        ON CONFLICT (partition, row_key) DO UPDATE SET
            title=EXCLUDED.title, image_link=EXCLUDED.image_link,
            image_base64_blob_name=EXCLUDED.image_base64_blob_name,
            summary=EXCLUDED.summary, author=EXCLUDED.author,
            button_title=EXCLUDED.button_title, button_link=EXCLUDED.button_link,
            created_by=EXCLUDED.created_by, created_date=EXCLUDED.created_date,
            message_type=EXCLUDED.message_type,
            poll_options=EXCLUDED.poll_options, poll_quiz_mode=EXCLUDED.poll_quiz_mode,
            poll_quiz_answers=EXCLUDED.poll_quiz_answers,
            poll_multiple_choice=EXCLUDED.poll_multiple_choice,
            teams=EXCLUDED.teams, rosters=EXCLUDED.rosters, groups=EXCLUDED.groups,
            all_users=EXCLUDED.all_users,
            inline_translation=EXCLUDED.inline_translation, full_width=EXCLUDED.full_width,
            notify_on_send=EXCLUDED.notify_on_send, on_behalf_of=EXCLUDED.on_behalf_of,
            stage_view=EXCLUDED.stage_view, ack_requested=EXCLUDED.ack_requested,
            is_draft=EXCLUDED.is_draft, status=EXCLUDED.status,
            sent_date=EXCLUDED.sent_date, sent_by=EXCLUDED.sent_by,
            sending_started_date=EXCLUDED.sending_started_date,
            total_message_count=EXCLUDED.total_message_count,
            succeeded=EXCLUDED.succeeded, failed=EXCLUDED.failed,
            throttled=EXCLUDED.throttled,
            error_message=EXCLUDED.error_message, warning_message=EXCLUDED.warning_message
    `
	_, err := s.DB.Exec(query,
		n.Partition, n.ID, n.Title, n.ImageLink, n.ImageBase64BlobName, n.Summary,
		n.Author, n.ButtonTitle, n.ButtonLink, n.CreatedBy, n.CreatedDate, n.MessageType,
		n.PollOptions, n.PollQuizMode, n.PollQuizAnswers, n.PollMultipleChoice,
		n.Teams, n.Rosters, n.Groups, n.AllUsers,
		n.InlineTranslation, n.FullWidth, n.NotifyOnSend, n.OnBehalfOf, n.StageView,
		n.AcknowledgementRequested, n.IsDraft, string(n.Status), n.SentDate, n.SentBy, n.SendingStartedDate,
		n.TotalMessageCount, n.Succeeded, n.Failed, n.Throttled,
		n.ErrorMessage, n.WarningMessage,
	)
	if err != nil {
		return appErrors.NewStoreUnavailable("save", err)
	}
	return nil
}

func (s *PostgresStore) Delete(partition model.Partition, id string) error {
	_, err := s.DB.Exec(`DELETE FROM notifications WHERE partition=$1 AND row_key=$2`, partition, id)
	if err != nil {
		return appErrors.NewStoreUnavailable("delete", err)
	}
	return nil
}

func (s *PostgresStore) ListDrafts() ([]*model.Notification, error) {
	return s.list(model.PartitionDraft, 0)
}

func (s *PostgresStore) ListRecentSent(limit int) ([]*model.Notification, error) {
	return s.list(model.PartitionSent, limit)
}

func (s *PostgresStore) list(partition model.Partition, limit int) ([]*model.Notification, error) {
	query := `SELECT` + notificationColumns + `
        FROM notifications WHERE partition=$1 ORDER BY row_key`
	args := []any{partition}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, appErrors.NewStoreUnavailable("list", err)
	}
	defer rows.Close()

	notifications := []*model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, appErrors.NewStoreUnavailable("list", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStoreUnavailable("list", err)
	}
	return notifications, nil
}

var _ Store = (*PostgresStore)(nil)
