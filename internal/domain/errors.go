package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidPrompt = errors.New("invalid prompt")
	ErrNotConfigured = errors.New("provider not configured")

	ErrSubmission = errors.New("job submission failed")
	ErrJobFailed  = errors.New("job failed")
	ErrJobTimeout = errors.New("job timed out")
	ErrProvider   = errors.New("provider failure")
)

// SubmissionError reports a failed job-creation call.
type SubmissionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("submit job: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("submit job: %s", e.Message)
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }

func (e *SubmissionError) Unwrap() error { return e.Err }

// JobFailedError reports that the provider explicitly failed an accepted job.
type JobFailedError struct {
	Handle  JobHandle
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.Handle, e.Message)
}

func (e *JobFailedError) Is(target error) bool { return target == ErrJobFailed }

// JobTimeoutError reports that the poll budget ran out before a terminal state.
type JobTimeoutError struct {
	Handle   JobHandle
	Attempts int
}

func (e *JobTimeoutError) Error() string {
	if e.Handle == "" {
		return fmt.Sprintf("job timed out after %d status checks", e.Attempts)
	}
	return fmt.Sprintf("job %s timed out after %d status checks", e.Handle, e.Attempts)
}

func (e *JobTimeoutError) Is(target error) bool { return target == ErrJobTimeout }

// ProviderError reports a failed direct call to a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

func (e *ProviderError) Unwrap() error { return e.Err }

// Error kinds used in serialized failure descriptors.
const (
	ErrorKindSubmission = "submission_error"
	ErrorKindJobFailed  = "job_failed"
	ErrorKindTimeout    = "job_timeout"
	ErrorKindProvider   = "provider_error"
	ErrorKindCanceled   = "canceled"
	ErrorKindInvalid    = "invalid_request"
	ErrorKindNotConfig  = "not_configured"
	ErrorKindNotFound   = "not_found"
	ErrorKindInternal   = "internal"
)

// ErrorDescriptor is the JSON-friendly form of a job failure.
type ErrorDescriptor struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Describe classifies err into an ErrorDescriptor.
func Describe(err error) ErrorDescriptor {
	if err == nil {
		return ErrorDescriptor{}
	}
	var (
		subErr  *SubmissionError
		provErr *ProviderError
		failErr *JobFailedError
	)
	switch {
	case errors.As(err, &subErr):
		return ErrorDescriptor{Kind: ErrorKindSubmission, Message: subErr.Message, StatusCode: subErr.StatusCode}
	case errors.As(err, &failErr):
		return ErrorDescriptor{Kind: ErrorKindJobFailed, Message: failErr.Message}
	case errors.Is(err, ErrJobTimeout):
		return ErrorDescriptor{Kind: ErrorKindTimeout, Message: err.Error()}
	case errors.As(err, &provErr):
		return ErrorDescriptor{Kind: ErrorKindProvider, Message: provErr.Message, StatusCode: provErr.StatusCode}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorDescriptor{Kind: ErrorKindCanceled, Message: err.Error()}
	case errors.Is(err, ErrInvalidPrompt):
		return ErrorDescriptor{Kind: ErrorKindInvalid, Message: err.Error()}
	case errors.Is(err, ErrNotConfigured):
		return ErrorDescriptor{Kind: ErrorKindNotConfig, Message: err.Error()}
	case errors.Is(err, ErrNotFound):
		return ErrorDescriptor{Kind: ErrorKindNotFound, Message: err.Error()}
	default:
		return ErrorDescriptor{Kind: ErrorKindInternal, Message: err.Error()}
	}
}
