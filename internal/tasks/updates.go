package tasks

import (
	"fmt"

	"github.com/desertthunder/amsctl/internal/formatter"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPage Phase = iota
	WriteExport
	ParseRows
	CreateRecords
	RecordRun
)

func (p Phase) String() string {
	switch p {
	case FetchPage:
		return "fetch_page"
	case WriteExport:
		return "write_export"
	case ParseRows:
		return "parse_rows"
	case CreateRecords:
		return "create_records"
	case RecordRun:
		return "record_run"
	default:
		return ""
	}
}

func fetchPageUpdate(kind formatter.Kind, page, total int) ProgressUpdate {
	msg := fmt.Sprintf("Fetching %s page %d...", kind, page)
	if total > 0 {
		msg = fmt.Sprintf("Fetching %s page %d of %d...", kind, page, total)
	}
	return ProgressUpdate{
		Phase:   FetchPage,
		Step:    page,
		Total:   total,
		Message: msg,
	}
}

func exportedUpdate(kind formatter.Kind, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Exported %d %s", count, kind),
	}
}

func parsedUpdate(kind formatter.Kind, rows, invalid int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ParseRows,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Read %d %s rows (%d invalid)", rows, kind, invalid),
	}
}

func createdUpdate(step, total, line int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ row %d", step, total, line),
	}
}

func createFailedUpdate(step, total int, rowErr RowError) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ row %d: %v", step, total, rowErr.Line, rowErr.Err),
		Data:    rowErr,
	}
}

func recordRunFailedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RecordRun,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Import finished but history was not saved: %v", err),
	}
}
