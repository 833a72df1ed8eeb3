package models

import (
	"encoding/json"
	"math"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressProcessing ProgressStatus = "processing"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressError      ProgressStatus = "error"
)

// IngestionProgress is a snapshot of a batch ingestion run.
// Use the constructors below; Error is only set when Status is ProgressError.
type IngestionProgress struct {
	Status     ProgressStatus
	Processed  int
	Total      int
	Percentage float64
	Error      string
}

func NotStartedProgress() IngestionProgress {
	return IngestionProgress{Status: ProgressNotStarted}
}

func ProcessingProgress(processed, total int) IngestionProgress {
	return IngestionProgress{
		Status:     ProgressProcessing,
		Processed:  processed,
		Total:      total,
		Percentage: percentage(processed, total),
	}
}

func CompletedProgress(total int) IngestionProgress {
	return IngestionProgress{
		Status:     ProgressCompleted,
		Processed:  total,
		Total:      total,
		Percentage: 100.0,
	}
}

func ErrorProgress(err error) IngestionProgress {
	return IngestionProgress{Status: ProgressError, Error: err.Error()}
}

// IsTerminal is true for completed and error snapshots.
func (p IngestionProgress) IsTerminal() bool {
	return p.Status == ProgressCompleted || p.Status == ProgressError
}

func (p IngestionProgress) MarshalJSON() ([]byte, error) {
	if p.Status == ProgressError {
		return json.Marshal(struct {
			Status ProgressStatus `json:"status"`
			Error  string         `json:"error"`
		}{p.Status, p.Error})
	}
	return json.Marshal(struct {
		Status     ProgressStatus `json:"status"`
		Processed  int            `json:"processed"`
		Total      int            `json:"total"`
		Percentage float64        `json:"percentage"`
	}{p.Status, p.Processed, p.Total, p.Percentage})
}

// percentage is rounded to 2 decimals
func percentage(processed, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(processed) / float64(total) * 100
	return math.Round(pct*100) / 100
}
