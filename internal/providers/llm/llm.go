package llm

import (
	"context"
	"fmt"
)

// Provider identifiers recognized by the router. Dispatch is always by this
// tag, never by inspecting the shape of a model name.
const (
	ProviderOpenAI      = "openai"
	ProviderGoogle      = "google"
	ProviderPlaceholder = "placeholder"
)

// Request is a normalized text-generation request.
type Request struct {
	Model  string
	Prompt string
	System string
}

// Response is the normalized provider output.
type Response struct {
	Text string
}

// Generator is the capability shared by every LLM backend.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ErrorClass buckets provider failures for retry and alerting decisions.
type ErrorClass string

const (
	ClassTransient   ErrorClass = "transient"
	ClassRejected    ErrorClass = "rejected"
	ClassUnavailable ErrorClass = "unavailable"
)

// ProviderError normalizes heterogeneous provider failures while preserving
// the original status and code for operator logs.
type ProviderError struct {
	Provider string
	Class    ErrorClass
	Status   int
	Code     string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s provider %s (status %d): %v", e.Provider, e.Class, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func classifyStatus(status int) ErrorClass {
	switch {
	case status == 503:
		return ClassUnavailable
	case status == 429 || status >= 500:
		return ClassTransient
	default:
		return ClassRejected
	}
}
