// internal/model/notification.go
package model

import (
	"time"

	"github.com/lib/pq"
)

// Partition is the table-store partition a notification row lives in. The
// partition doubles as the lifecycle state: a row is either an editable draft
// or a sent (in-flight or terminal) campaign, never both.
type Partition string

const (
	PartitionDraft Partition = "Draft"
	PartitionSent  Partition = "Sent"
)

// Status is the delivery state of a sent notification. The repository
// persists the string verbatim, so the delivery pipeline may introduce
// additional states without a schema change.
type Status string

const (
	StatusQueued            Status = "Queued"
	StatusSyncingRecipients Status = "SyncingRecipients"
	StatusInstallingApp     Status = "InstallingApp"
	StatusPreparing         Status = "Preparing"
	StatusSending           Status = "Sending"
	StatusCanceling         Status = "Canceling"
	StatusCanceled          Status = "Canceled"
	StatusSent              Status = "Sent"
	StatusFailed            Status = "Failed"
)

// MessageType tags how a notification renders on delivery.
const (
	MessageTypePlain      = "plain"
	MessageTypeCustomCard = "customCard"
	MessageTypePoll       = "poll"
)

// Notification is one authored broadcast. Rows are keyed by
// (Partition, ID); the ID is a generated sortable key, so listing a
// partition in key order is already chronological (see internal/keys).
type Notification struct {
	ID        string    `db:"row_key" json:"id"`
	Partition Partition `db:"partition" json:"partition"`

	// Authoring fields, copied verbatim across finalize/duplicate.
	Title               string         `db:"title" json:"title"`
	ImageLink           string         `db:"image_link" json:"image_link,omitempty"`
	ImageBase64BlobName string         `db:"image_base64_blob_name" json:"image_base64_blob_name,omitempty"`
	Summary             string         `db:"summary" json:"summary,omitempty"`
	Author              string         `db:"author" json:"author,omitempty"`
	ButtonTitle         string         `db:"button_title" json:"button_title,omitempty"`
	ButtonLink          string         `db:"button_link" json:"button_link,omitempty"`
	CreatedBy           string         `db:"created_by" json:"created_by"`
	CreatedDate         time.Time      `db:"created_date" json:"created_date"`
	MessageType         string         `db:"message_type" json:"message_type,omitempty"`
	PollOptions         pq.StringArray `db:"poll_options" json:"poll_options,omitempty"`
	PollQuizMode        bool           `db:"poll_quiz_mode" json:"poll_quiz_mode,omitempty"`
	PollQuizAnswers     pq.StringArray `db:"poll_quiz_answers" json:"poll_quiz_answers,omitempty"`
	PollMultipleChoice  bool           `db:"poll_multiple_choice" json:"poll_multiple_choice,omitempty"`

	// Targeting scope.
	Teams    pq.StringArray `db:"teams" json:"teams,omitempty"`
	Rosters  pq.StringArray `db:"rosters" json:"rosters,omitempty"`
	Groups   pq.StringArray `db:"groups" json:"groups,omitempty"`
	AllUsers bool           `db:"all_users" json:"all_users"`

	// Delivery options.
	InlineTranslation bool   `db:"inline_translation" json:"inline_translation,omitempty"`
	FullWidth         bool   `db:"full_width" json:"full_width,omitempty"`
	NotifyOnSend      bool   `db:"notify_on_send" json:"notify_on_send,omitempty"`
	OnBehalfOf        string `db:"on_behalf_of" json:"on_behalf_of,omitempty"`
	StageView         bool   `db:"stage_view" json:"stage_view,omitempty"`

	AcknowledgementRequested bool `db:"ack_requested" json:"ack_requested,omitempty"`

	// Lifecycle fields. Meaningful only in the Sent partition; a draft
	// carries zero values here.
	IsDraft            bool       `db:"is_draft" json:"is_draft"`
	Status             Status     `db:"status" json:"status,omitempty"`
	SentDate           *time.Time `db:"sent_date" json:"sent_date,omitempty"`
	SentBy             string     `db:"sent_by" json:"sent_by,omitempty"`
	SendingStartedDate *time.Time `db:"sending_started_date" json:"sending_started_date,omitempty"`
	TotalMessageCount  int        `db:"total_message_count" json:"total_message_count"`
	Succeeded          int        `db:"succeeded" json:"succeeded"`
	Failed             int        `db:"failed" json:"failed"`
	Throttled          int        `db:"throttled" json:"throttled"`
	ErrorMessage       string     `db:"error_message" json:"error_message,omitempty"`
	WarningMessage     string     `db:"warning_message" json:"warning_message,omitempty"`
}

// CopyAuthoring returns a new Notification carrying only the authoring,
// targeting and delivery-option fields of n. Lifecycle fields are left at
// their zero values so the caller decides which variant the copy becomes.
func (n *Notification) CopyAuthoring() Notification {
	return Notification{
		Title:               n.Title,
		ImageLink:           n.ImageLink,
		ImageBase64BlobName: n.ImageBase64BlobName,
		Summary:             n.Summary,
		Author:              n.Author,
		ButtonTitle:         n.ButtonTitle,
		ButtonLink:          n.ButtonLink,
		MessageType:         n.MessageType,
		PollOptions:         append(pq.StringArray(nil), n.PollOptions...),
		PollQuizMode:        n.PollQuizMode,
		PollQuizAnswers:     append(pq.StringArray(nil), n.PollQuizAnswers...),
		PollMultipleChoice:  n.PollMultipleChoice,
		Teams:               append(pq.StringArray(nil), n.Teams...),
		Rosters:             append(pq.StringArray(nil), n.Rosters...),
		Groups:              append(pq.StringArray(nil), n.Groups...),
		AllUsers:            n.AllUsers,
		InlineTranslation:   n.InlineTranslation,
		FullWidth:           n.FullWidth,
		NotifyOnSend:        n.NotifyOnSend,
		OnBehalfOf:          n.OnBehalfOf,
		StageView:           n.StageView,

		AcknowledgementRequested: n.AcknowledgementRequested,
	}
}
