// Package tasks publishes videos: a file goes to object storage first, then its metadata is
// saved with the backend.
//
// # Phases
//
// Every publish moves through [RequestingCredential], [Transferring], [CommittingMetadata] and
// ends in [Done] or [Failed]. Phase changes are delivered on the progress channel in order;
// byte-level transfer updates are best effort and dropped when the reader is slow.
//
// # Failures
//
// Upload failures wrap upload.ErrCredential or upload.ErrTransfer. When the file is stored but
// the metadata commit fails, [Publisher.Publish] returns a [*CommitError] carrying the stored URL
// and the request, so [Publisher.Commit] can finish the job later without another upload.
//
// # Bulk publishing
//
// [Publisher.BulkPublish] publishes a directory one file at a time, paced by a rate limiter, and
// writes a JSON manifest of the outcome for every file.
package tasks
