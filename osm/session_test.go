package osm

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSessionRetriesTransientFailures(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{status: 500, body: "boom"},
			{err: timeoutError{}},
			{body: "ok"},
		},
	}
	client := newTestClient(transport, nil)

	data, err := client.session.get("/api/capabilities")
	assert.Equal(t, nil, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, 3, len(transport.calls))
}

func TestSessionGivesUpAfterMaxRetries(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{status: 502}, {status: 502}, {status: 502}, {status: 502}, {status: 502},
		},
	}
	client := newTestClient(transport, nil)

	_, err := client.session.get("/api/capabilities")
	assert.NotEqual(t, nil, err)
	assert.Equal(t, 5, len(transport.calls))

	var maxErr *MaxRetriesError
	assert.Equal(t, true, errors.As(err, &maxErr))
	assert.Equal(t, 5, maxErr.Attempts)

	// the final typed failure stays reachable through the wrapper
	var apiErr *ApiError
	assert.Equal(t, true, errors.As(err, &apiErr))
	assert.Equal(t, 502, apiErr.Status)
}

func TestSessionDoesNotRetryRemoteRejections(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{status: 404, body: "node not found"},
		},
	}
	client := newTestClient(transport, nil)

	_, err := client.session.get("/api/0.6/node/1")
	var notFoundErr *NotFoundError
	assert.Equal(t, true, errors.As(err, &notFoundErr))
	assert.Equal(t, "node not found", notFoundErr.Payload)
	assert.Equal(t, 1, len(transport.calls))
}

func TestSessionStatusMapping(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{status: 410},
			{status: 401},
			{status: 400, body: "  bad request  "},
		},
	}
	client := newTestClient(transport, nil)

	_, err := client.session.get("/api/0.6/node/1")
	var deletedErr *ElementDeletedError
	assert.Equal(t, true, errors.As(err, &deletedErr))

	_, err = client.session.get("/api/0.6/node/1")
	var unauthorizedErr *UnauthorizedError
	assert.Equal(t, true, errors.As(err, &unauthorizedErr))

	_, err = client.session.get("/api/0.6/node/1")
	var apiErr *ApiError
	assert.Equal(t, true, errors.As(err, &apiErr))
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "bad request", apiErr.Payload)
}

func TestSessionEmptyBody(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{body: ""},
		},
	}
	client := newTestClient(transport, nil)

	_, err := client.session.get("/api/0.6/node/1")
	var emptyErr *ResponseEmptyError
	assert.Equal(t, true, errors.As(err, &emptyErr))
}

func TestSessionCredentialsCheckedBeforeWire(t *testing.T) {
	transport := &stubTransport{}
	client := newTestClient(transport, func(settings *ClientSettings) {
		settings.Auth = nil
	})

	_, err := client.session.put("/api/0.6/changeset/create", []byte("x"), true)
	assert.Equal(t, true, errors.Is(err, ErrCredentialsMissing))
	assert.Equal(t, 0, len(transport.calls))
}

func TestSessionSendsAuthAndUserAgent(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{body: "1"},
		},
	}
	client := newTestClient(transport, nil)

	_, err := client.session.put("/api/0.6/changeset/create", []byte("x"), true)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(transport.calls))
	// basic auth header, base64("metaodi:geheim")
	assert.Equal(t, "Basic bWV0YW9kaTpnZWhlaW0=", transport.calls[0].auth)
}

func TestSessionConnectionErrorClassification(t *testing.T) {
	transport := &stubTransport{
		responses: []stubResponse{
			{err: errors.New("connection refused")},
		},
	}
	client := newTestClient(transport, func(settings *ClientSettings) {
		settings.MaxRetries = 1
	})

	_, err := client.session.get("/api/capabilities")
	var maxErr *MaxRetriesError
	assert.Equal(t, true, errors.As(err, &maxErr))
	var connectionErr *ConnectionError
	assert.Equal(t, true, errors.As(err, &connectionErr))
}
