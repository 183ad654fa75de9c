// Package repositories implements SQLite persistence for the client's local state.
//
// Key Implementations:
//   - [KVRepository] : fixed-key string storage backing the durable session store
//   - [PendingUploadRepository] : uploads whose blob landed but whose metadata commit failed
//
// Pending uploads are soft-deleted via deleted_at once they are committed, and carry a per-table
// sequence number from [NextSequence] so they can be addressed by a short number on the command line.
package repositories
