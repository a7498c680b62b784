package osm

import (
	"errors"
	"io"
	"net/http"
	"strings"
)

// stubTransport plays back scripted responses in order and records every
// request that reaches the wire.
type stubTransport struct {
	responses []stubResponse
	calls     []stubCall
}

type stubResponse struct {
	// 0 means 200
	status int
	body   string
	// a transport-level failure instead of a response
	err error
}

type stubCall struct {
	method string
	// path including the query string
	path string
	body string
	auth string
}

func (self *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		body = string(data)
	}
	self.calls = append(self.calls, stubCall{
		method: req.Method,
		path:   req.URL.RequestURI(),
		body:   body,
		auth:   req.Header.Get("Authorization"),
	})

	if len(self.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	response := self.responses[0]
	self.responses = self.responses[1:]

	if response.err != nil {
		return nil, response.err
	}
	status := response.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(response.body)),
		Request:    req,
	}, nil
}

// timeoutError satisfies net.Error the way a dial timeout would.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func newTestClient(transport *stubTransport, mutate func(settings *ClientSettings)) *Client {
	settings := DefaultClientSettings()
	settings.BaseUrl = "https://api06.dev.openstreetmap.org"
	settings.Auth = &BasicAuth{
		Username: "metaodi",
		Password: "geheim",
	}
	settings.HttpClient = &http.Client{
		Transport: transport,
	}
	settings.RetryDelay = 0
	if mutate != nil {
		mutate(settings)
	}
	return NewClient(settings)
}
