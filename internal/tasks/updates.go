package tasks

import (
	"fmt"

	"github.com/desertthunder/vcms/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current file number in a bulk run, 1 for single uploads
	Total   int    // Files in this run
	Loaded  int64  // Bytes acknowledged by storage
	Size    int64  // File size in bytes
	File    string // File being published
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Percent is the transfer completion in [0, 100].
func (u ProgressUpdate) Percent() float64 {
	if u.Size <= 0 {
		if u.Phase == Done {
			return 100
		}
		return 0
	}
	p := float64(u.Loaded) / float64(u.Size) * 100
	if p > 100 {
		return 100
	}
	return p
}

// Phase is the stage of one publish. Phases only move forward; Failed is terminal.
type Phase int

const (
	Idle Phase = iota
	RequestingCredential
	Transferring
	CommittingMetadata
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case RequestingCredential:
		return "requesting_credential"
	case Transferring:
		return "transferring"
	case CommittingMetadata:
		return "committing_metadata"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func credentialUpdate(step, total int, file string, size int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RequestingCredential,
		Step:    step,
		Total:   total,
		File:    file,
		Size:    size,
		Message: fmt.Sprintf("Requesting upload authorization for %s...", file),
	}
}

func transferUpdate(step, total int, file string, loaded, size int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Transferring,
		Step:    step,
		Total:   total,
		File:    file,
		Loaded:  loaded,
		Size:    size,
		Message: fmt.Sprintf("Uploading %s (%s / %s)", file, shared.FormatBytes(loaded), shared.FormatBytes(size)),
	}
}

func commitUpdate(step, total int, file string, size int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CommittingMetadata,
		Step:    step,
		Total:   total,
		File:    file,
		Loaded:  size,
		Size:    size,
		Message: "Saving video details...",
	}
}

func doneUpdate(step, total int, file string, res *PublishResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    step,
		Total:   total,
		File:    file,
		Loaded:  res.Bytes,
		Size:    res.Bytes,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, file),
		Data:    res,
	}
}

func failedUpdate(step, total int, file string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Step:    step,
		Total:   total,
		File:    file,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, file, err),
		Data:    err,
	}
}
