package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	FetchProfile Phase = iota
	FetchHistory
	Annotate
	WriteFiles
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchHistory:
		return "fetch_history"
	case Annotate:
		return "annotate"
	case WriteFiles:
		return "write_files"
	default:
		return ""
	}
}

func fetchProfileUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProfile,
		Step:    1,
		Total:   1,
		Message: "Fetching profile...",
	}
}

func fetchHistoryUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchHistory,
		Step:    1,
		Total:   1,
		Message: "Fetching play history...",
	}
}

func annotateUpdate(step, total int, trackName string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Annotate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, trackName),
	}
}

func writeFilesUpdate(format string) ProgressUpdate {
	if format == "" {
		format = "json"
	}
	return ProgressUpdate{
		Phase:   WriteFiles,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing %s export...", format),
	}
}
