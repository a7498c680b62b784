package osm

import (
	"errors"
	"fmt"
)

// errors.go provides all error types for the osm package
//
// error type checking:
//   local precondition errors can be checked with errors.Is(err, ErrType)
//   remote errors can be checked with errors.As(err, &target); every remote
//   error unwraps to *ApiError so the generic kind always matches too

// local precondition errors, raised before any request goes on the wire
var (
	ErrCredentialsMissing   = errors.New("username/password missing")
	ErrChangesetAlreadyOpen = errors.New("changeset already opened")
	ErrChangesetNotOpen     = errors.New("no changeset currently opened")
	ErrElementExists        = errors.New("element already exists")
	ErrTestChangeset        = errors.New("refusing to create a test changeset on the production api")
)

// ApiError is the generic remote failure, carrying the raw response.
// More specific kinds embed it.
type ApiError struct {
	Status  int
	Reason  string
	Payload string
}

func (self *ApiError) Error() string {
	return fmt.Sprintf("request failed: %d - %s - %s", self.Status, self.Reason, self.Payload)
}

// NotFoundError is returned when the requested element was not found (404).
type NotFoundError struct {
	ApiError
}

func (self *NotFoundError) Unwrap() error {
	return &self.ApiError
}

// ElementDeletedError is returned when the requested element is deleted (410).
type ElementDeletedError struct {
	ApiError
}

func (self *ElementDeletedError) Unwrap() error {
	return &self.ApiError
}

// UnauthorizedError is returned on a 401, e.g. when an OAuth token expired.
type UnauthorizedError struct {
	ApiError
}

func (self *UnauthorizedError) Unwrap() error {
	return &self.ApiError
}

// ResponseEmptyError is returned when a response body was expected
// but the server sent none.
type ResponseEmptyError struct {
	ApiError
}

func (self *ResponseEmptyError) Unwrap() error {
	return &self.ApiError
}

// ChangesetClosedError is returned when the changeset in question
// has already been closed.
type ChangesetClosedError struct {
	ApiError
}

func (self *ChangesetClosedError) Unwrap() error {
	return &self.ApiError
}

// VersionConflictError is returned when the provided version does not match
// the database version of the element (409).
type VersionConflictError struct {
	ApiError
}

func (self *VersionConflictError) Unwrap() error {
	return &self.ApiError
}

// PreconditionFailedError is returned on a 412:
// - a way has nodes that do not exist or are not visible
// - a relation has elements that do not exist or are not visible
// - a node/way/relation is still used in a way/relation
type PreconditionFailedError struct {
	ApiError
}

func (self *PreconditionFailedError) Unwrap() error {
	return &self.ApiError
}

// AlreadySubscribedError is returned when subscribing to a changeset
// discussion the user is already subscribed to.
type AlreadySubscribedError struct {
	ApiError
}

func (self *AlreadySubscribedError) Unwrap() error {
	return &self.ApiError
}

// NotSubscribedError is returned when unsubscribing from a changeset
// discussion the user is not subscribed to.
type NotSubscribedError struct {
	ApiError
}

func (self *NotSubscribedError) Unwrap() error {
	return &self.ApiError
}

// NoteAlreadyClosedError is returned when the note in question
// has already been closed.
type NoteAlreadyClosedError struct {
	ApiError
}

func (self *NoteAlreadyClosedError) Unwrap() error {
	return &self.ApiError
}

// TimeoutError is returned when a single request attempt ran into
// the configured timeout. Transient, eligible for retry.
type TimeoutError struct {
	Err error
}

func (self *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out: %s", self.Err)
}

func (self *TimeoutError) Unwrap() error {
	return self.Err
}

// ConnectionError is returned on a transport-level failure below HTTP.
// Transient, eligible for retry.
type ConnectionError struct {
	Err error
}

func (self *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %s", self.Err)
}

func (self *ConnectionError) Unwrap() error {
	return self.Err
}

// MaxRetriesError is returned when the retry limit is exhausted.
// Unwrap exposes the final failure, so errors.As still matches
// the specific kind after retries.
type MaxRetriesError struct {
	Attempts int
	Err      error
}

func (self *MaxRetriesError) Error() string {
	return fmt.Sprintf("give up after %d attempts: %s", self.Attempts, self.Err)
}

func (self *MaxRetriesError) Unwrap() error {
	return self.Err
}

// InvalidXmlError is returned when a response cannot be parsed as the
// expected document. Indicates a protocol mismatch, never retried.
type InvalidXmlError struct {
	Detail string
	Err    error
}

func (self *InvalidXmlError) Error() string {
	if self.Err != nil {
		return fmt.Sprintf("invalid xml response: %s: %s", self.Detail, self.Err)
	}
	return fmt.Sprintf("invalid xml response: %s", self.Detail)
}

func (self *InvalidXmlError) Unwrap() error {
	return self.Err
}

// retryable reports whether a failed attempt may be tried again.
// Remote 5xx, timeouts and connection failures are transient;
// everything else is terminal.
func retryable(err error) bool {
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var connectionErr *ConnectionError
	if errors.As(err, &connectionErr) {
		return true
	}
	var invalidErr *InvalidXmlError
	if errors.As(err, &invalidErr) {
		return false
	}
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return 500 <= apiErr.Status
	}
	return false
}
