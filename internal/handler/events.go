package handler

import (
	"fmt"

	"wanvideo/internal/pkg/errors"
)

// Job statuses in emission order.
const (
	StatusDownloading = "downloading"
	StatusLoading     = "loading"
	StatusGenerating  = "generating"
	StatusSaving      = "saving"
	StatusUploading   = "uploading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Progress percentages for each step. Fixed; the generator does not report
// finer-grained progress.
const (
	ProgressDownloading = 10
	ProgressLoading     = 20
	ProgressGenerating  = 30
	ProgressSaving      = 80
	ProgressUploading   = 90
)

// reportedDuration is returned in every success event. The clip length is
// not measured from the encoded output.
const reportedDuration = 5.0

// Event is one entry of a job's append-only, ordered event sequence:
// progress updates followed by exactly one terminal event. Timestamp is
// elapsed seconds since the job started.
type Event struct {
	Status    string  `json:"status"`
	Progress  int     `json:"progress,omitempty"`
	Message   string  `json:"message,omitempty"`
	Timestamp float64 `json:"timestamp"`

	// Terminal success fields.
	VideoURL   string   `json:"video_url,omitempty"`
	Duration   *float64 `json:"duration,omitempty"`
	Resolution string   `json:"resolution,omitempty"`
	Seed       *int64   `json:"seed,omitempty"`

	// Terminal fields (success and failure).
	ProcessingTime *float64 `json:"processing_time,omitempty"`

	// Terminal failure fields.
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Terminal reports whether this event ends the job.
func (e Event) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

// EmitFunc receives each event as it is produced. Implementations must not
// retain the call past return; the handler emits synchronously between
// blocking steps.
type EmitFunc func(Event)

func progressEvent(status string, progress int, message string, elapsed float64) Event {
	return Event{
		Status:    status,
		Progress:  progress,
		Message:   message,
		Timestamp: elapsed,
	}
}

func successEvent(videoURL, resolution string, seed int64, processingTime float64) Event {
	duration := reportedDuration
	return Event{
		Status:         StatusCompleted,
		Message:        fmt.Sprintf("Video generation completed in %.2fs", processingTime),
		Timestamp:      processingTime,
		VideoURL:       videoURL,
		Duration:       &duration,
		Resolution:     resolution,
		Seed:           &seed,
		ProcessingTime: &processingTime,
	}
}

func failureEvent(err error, processingTime float64) Event {
	return Event{
		Status:         StatusFailed,
		Timestamp:      processingTime,
		ProcessingTime: &processingTime,
		Error:          err.Error(),
		ErrorCode:      string(errors.CodeOf(err)),
	}
}
