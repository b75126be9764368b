package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionInit is returned when a session cannot be created at all
	// (question fetch failed or returned nothing usable).
	ErrSessionInit = errors.New("session initialization failed")
	// ErrSessionNotFound is returned when a session ID is unknown to the registry.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrInvalidState rejects an operation that is not valid in the session's
	// current state; the session is left unchanged.
	ErrInvalidState = errors.New("operation not valid in current session state")
	// ErrDuplicateAnswer rejects a second answer to the current question.
	ErrDuplicateAnswer = errors.New("current question already answered")
	// ErrInvalidAnswer rejects an option index outside the question's range;
	// the question stays open for a retry.
	ErrInvalidAnswer = errors.New("selected option index out of range")
	// ErrGatewayUnavailable marks a transient gateway failure, retried once.
	ErrGatewayUnavailable = errors.New("persistence gateway unavailable")
	// ErrGatewayRejected marks a permanent gateway failure, never retried.
	ErrGatewayRejected = errors.New("persistence gateway rejected request")
	// ErrResultNotPersisted is a non-fatal warning: the session completed and
	// the computed result is still returned, but submission to the gateway failed.
	ErrResultNotPersisted = errors.New("quiz result not persisted")
)

// InsufficientQuestionsError reports that the gateway returned fewer questions
// than the session requested. The caller decides whether to retry allowing a
// short session or to abort; no session is created alongside this error.
type InsufficientQuestionsError struct {
	Requested int
	Available int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient questions: requested %d, got %d", e.Requested, e.Available)
}
