package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is the sentinel for missing referenced entities.
	ErrNotFound = errors.New("not found")
	// ErrValidation is the sentinel for malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrUpstreamGeneration is the sentinel for planner failures.
	ErrUpstreamGeneration = errors.New("plan generation failed")
)

// ValidationError carries the offending field so handlers can surface it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// RowFailure reports one task row that failed to persist during a batch write.
type RowFailure struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// PartialBatchReport collects per-row failures for one phase's task batch.
// It is a result, not an error: ingestion continues past it and the rollup
// covers only the rows that persisted.
type PartialBatchReport struct {
	PhaseID  uuid.UUID    `json:"phase_id"`
	Failures []RowFailure `json:"failures"`
}

func (r *PartialBatchReport) Empty() bool {
	return r == nil || len(r.Failures) == 0
}
