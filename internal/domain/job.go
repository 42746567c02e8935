package domain

import (
	"encoding/json"
	"strings"
)

// JobHandle is the opaque identifier a provider returns when a job is created.
type JobHandle string

func (h JobHandle) String() string {
	return string(h)
}

// JobStatus enumerates the lifecycle states of a provider job.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusTimedOut   JobStatus = "timed_out"
)

// IsTerminal reports whether no further polling is meaningful.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut:
		return true
	default:
		return false
	}
}

// ParseJobStatus normalizes a provider status string. Unknown or empty values
// map to processing so the poller keeps waiting until its budget runs out.
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "starting", "queued", "pending":
		return JobStatusStarting
	case "succeeded", "success", "completed":
		return JobStatusSucceeded
	case "failed", "error", "canceled", "cancelled":
		return JobStatusFailed
	default:
		return JobStatusProcessing
	}
}

// GenerationRequest is the immutable, provider-agnostic description of one
// generation unit built by an adapter from caller input.
type GenerationRequest struct {
	Prompt         string
	NegativePrompt string
	Style          string
	AspectRatio    string
	Seed           int // 0 lets the provider pick
}

// JobResult carries provider output for a succeeded job.
type JobResult struct {
	Handle JobHandle       `json:"handle,omitempty"`
	Status JobStatus       `json:"status"`
	URLs   []string        `json:"urls,omitempty"`
	Text   string          `json:"text,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// FirstURL returns the first output URL, if any.
func (r JobResult) FirstURL() string {
	if len(r.URLs) == 0 {
		return ""
	}
	return r.URLs[0]
}

// DecodeOutput interprets a provider output field that may be a URL string, an
// array of URL strings, or generated text.
func DecodeOutput(raw json.RawMessage) (urls []string, text string) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, ""
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		var parts []string
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if looksLikeURL(s) {
				urls = append(urls, s)
			} else {
				parts = append(parts, s)
			}
		}
		return urls, strings.Join(parts, "")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if looksLikeURL(single) {
			return []string{single}, ""
		}
		return nil, single
	}
	return nil, trimmed
}

func looksLikeURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "data:")
}
