package domain

import "time"

type DocumentStatus string

// Persisted status values. Stored as-is, so they must stay stable across
// releases.
const (
	DocumentUploaded       DocumentStatus = "UPLOADED"
	DocumentProcessing     DocumentStatus = "PROCESSING"
	DocumentDone           DocumentStatus = "DONE"
	DocumentDoneWithErrors DocumentStatus = "DONE_WITH_ERRORS"
)

type Document struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Status       DocumentStatus `json:"status"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// DocumentProgress summarizes page outcomes for the read API.
type DocumentProgress struct {
	TotalPages  int `json:"total_pages"`
	DonePages   int `json:"done_pages"`
	FailedPages int `json:"failed_pages"`
}

func ProgressOf(pages []Page) DocumentProgress {
	progress := DocumentProgress{TotalPages: len(pages)}
	for _, p := range pages {
		switch p.Status {
		case PageDone:
			progress.DonePages++
		case PageFailed:
			progress.FailedPages++
		}
	}
	return progress
}
