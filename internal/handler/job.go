package handler

import (
	"encoding/json"
	"fmt"

	"wanvideo/internal/model"
	"wanvideo/internal/pkg/errors"
)

// Job is the envelope the platform dispatches: an id and the user input.
type Job struct {
	ID    string `json:"id"`
	Input Input  `json:"input"`
}

// Input holds the job's fields after defaulting. Seed keeps the caller's
// value verbatim; -1 stands for "unset, let the model randomize".
type Input struct {
	ImageURL   string
	Prompt     string
	Negative   string
	Seed       int64
	Resolution string
}

type inputWire struct {
	ImageURL   string `json:"image_url"`
	Prompt     string `json:"prompt"`
	Negative   string `json:"negative"`
	Seed       *int64 `json:"seed"`
	Resolution string `json:"resolution"`
}

// UnmarshalJSON applies the documented defaults: negative "", seed -1,
// resolution "720p".
func (in *Input) UnmarshalJSON(data []byte) error {
	var wire inputWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	in.ImageURL = wire.ImageURL
	in.Prompt = wire.Prompt
	in.Negative = wire.Negative
	in.Seed = -1
	if wire.Seed != nil {
		in.Seed = *wire.Seed
	}
	in.Resolution = wire.Resolution
	if in.Resolution == "" {
		in.Resolution = "720p"
	}
	return nil
}

// ParseJob decodes a dispatched job payload. A payload without an input
// object parses fine and fails validation later, exactly once.
func ParseJob(payload []byte) (Job, error) {
	job := Job{Input: Input{Seed: -1, Resolution: "720p"}}
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("invalid job payload: %w", err)
	}
	if job.ID == "" {
		job.ID = "unknown"
	}
	return job, nil
}

// validate runs the pre-flight checks. Only the two required fields and
// the resolution whitelist are checked; seed and URL shape are not.
func (in Input) validate() error {
	if in.ImageURL == "" || in.Prompt == "" {
		return errors.InvalidInput("Missing required parameters: image_url and prompt")
	}
	if _, ok := model.ParamsForResolution(in.Resolution); !ok {
		return errors.InvalidInputf("Unsupported resolution: %s. Use '720p' or '480p'", in.Resolution)
	}
	return nil
}
