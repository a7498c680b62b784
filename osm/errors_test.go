package osm

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestRetryableClassification(t *testing.T) {
	assert.Equal(t, true, retryable(&TimeoutError{Err: errors.New("deadline")}))
	assert.Equal(t, true, retryable(&ConnectionError{Err: errors.New("refused")}))
	assert.Equal(t, true, retryable(&ApiError{Status: 500}))
	assert.Equal(t, true, retryable(&ApiError{Status: 503}))

	assert.Equal(t, false, retryable(&ApiError{Status: 400}))
	assert.Equal(t, false, retryable(&NotFoundError{ApiError{Status: 404}}))
	assert.Equal(t, false, retryable(&VersionConflictError{ApiError{Status: 409}}))
	assert.Equal(t, false, retryable(&InvalidXmlError{Detail: "broken"}))
	assert.Equal(t, false, retryable(ErrChangesetNotOpen))
}

func TestRemoteErrorsMatchGenericKind(t *testing.T) {
	var err error = &ChangesetClosedError{ApiError{
		Status:  409,
		Reason:  "Conflict",
		Payload: "The changeset 4444 was closed at 2013-09-07 04:04:05 UTC",
	}}

	var apiErr *ApiError
	assert.Equal(t, true, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.Status)

	var closedErr *ChangesetClosedError
	assert.Equal(t, true, errors.As(err, &closedErr))

	// sibling kinds do not match
	var conflictErr *VersionConflictError
	assert.Equal(t, false, errors.As(err, &conflictErr))
}

func TestMaxRetriesErrorExposesFinalFailure(t *testing.T) {
	err := &MaxRetriesError{
		Attempts: 5,
		Err:      &TimeoutError{Err: errors.New("deadline exceeded")},
	}
	assert.Equal(t, "give up after 5 attempts: request timed out: deadline exceeded", err.Error())

	var timeoutErr *TimeoutError
	assert.Equal(t, true, errors.As(err, &timeoutErr))
}

func TestApiErrorMessage(t *testing.T) {
	err := &ApiError{
		Status:  412,
		Reason:  "Precondition Failed",
		Payload: "Node 123 is still used",
	}
	assert.Equal(t, "request failed: 412 - Precondition Failed - Node 123 is still used", err.Error())
}
