package services

// Service-level errors, mapped to HTTP statuses in the handlers package.

type ValidationError struct{ Message string }

func (e *ValidationError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// UpstreamError wraps a completion-provider failure; Message carries the
// provider's own description.
type UpstreamError struct{ Message string }

func (e *UpstreamError) Error() string { return e.Message }
