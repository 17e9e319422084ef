// internal/repository/store.go
package repository

import (
	"github.com/unclebandit/teamcast-backend/internal/model"
)

// Store is the row-level contract over the partitioned notification table.
// The store guarantees atomicity per single Save of one row and nothing
// more: no cross-row transactions, no read-modify-write locking. Every
// mutation above this interface is a fetch, an in-memory change, and a full
// row write-back (last writer wins).
type Store interface {
	// Get returns the row at (partition, id), or nil when absent. Absence
	// is not an error.
	Get(partition model.Partition, id string) (*model.Notification, error)

	// Save writes the full row, inserting or replacing it.
	Save(n *model.Notification) error

	// Delete removes the row at (partition, id). Deleting an absent row is
	// not an error.
	Delete(partition model.Partition, id string) error

	// ListDrafts returns every row in the Draft partition in row-key order.
	ListDrafts() ([]*model.Notification, error)

	// ListRecentSent returns up to limit rows from the Sent partition in
	// row-key order. Sent keys are most-recent-first, so this is the N most
	// recently finalized notifications.
	ListRecentSent(limit int) ([]*model.Notification, error)
}
