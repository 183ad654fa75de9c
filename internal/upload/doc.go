// Package upload sends local files directly to object storage.
//
// The backend never sees file bytes. It issues a short-lived, write-scoped URL for one object
// name, and the [Uploader] stages the file against that URL in fixed-size blocks before
// committing the block list. Progress counts bytes the storage service has acknowledged.
//
// Failures come in two kinds: [ErrCredential] when no credential could be obtained (nothing was
// sent) and [ErrTransfer] when sending failed part way. There is no resume; a retry uploads the
// whole file again under a fresh credential.
package upload
