package osm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
)

const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultHttpClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
	}
}

type authMode int

const (
	authNone authMode = iota
	// authenticate when credentials are configured (the notes api allows
	// certain posts by anonymous users)
	authOptional
	authRequired
)

// session owns the pooled http client and executes one logical request,
// retrying transient failures up to the configured ceiling. Remote 4xx
// outcomes are definitive and surface immediately.
type session struct {
	ctx        context.Context
	baseUrl    string
	userAgent  string
	auth       Auth
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

func newSession(
	ctx context.Context,
	baseUrl string,
	userAgent string,
	auth Auth,
	client *http.Client,
	timeout time.Duration,
	maxRetries int,
	retryDelay time.Duration,
) *session {
	if client == nil {
		client = defaultHttpClient()
	}
	return &session{
		ctx:        ctx,
		baseUrl:    strings.TrimRight(baseUrl, "/"),
		userAgent:  userAgent,
		auth:       auth,
		client:     client,
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func (self *session) get(path string) ([]byte, error) {
	return self.do("GET", path, authNone, nil, true)
}

func (self *session) put(path string, body []byte, wantBody bool) ([]byte, error) {
	return self.do("PUT", path, authRequired, body, wantBody)
}

func (self *session) post(path string, body []byte, mode authMode) ([]byte, error) {
	return self.do("POST", path, mode, body, true)
}

func (self *session) delete(path string, body []byte) ([]byte, error) {
	return self.do("DELETE", path, authRequired, body, true)
}

func (self *session) do(method string, path string, mode authMode, body []byte, wantBody bool) ([]byte, error) {
	// one correlation id per logical request, spanning its retries
	rid := ulid.Make()

	var lastErr error
	for attempt := 1; attempt <= self.maxRetries; attempt += 1 {
		if attempt != 1 {
			if 0 < self.retryDelay {
				time.Sleep(self.retryDelay)
			}
			// drop pooled connections so the retry dials fresh
			self.client.CloseIdleConnections()
		}
		data, err := self.request(rid, method, path, mode, body, wantBody)
		if err == nil {
			return data, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		glog.Infof("[session]%s attempt %d/%d failed = %s\n", rid, attempt, self.maxRetries, err)
	}
	return nil, &MaxRetriesError{
		Attempts: self.maxRetries,
		Err:      lastErr,
	}
}

// request executes a single attempt.
func (self *session) request(rid ulid.ULID, method string, path string, mode authMode, body []byte, wantBody bool) ([]byte, error) {
	if mode == authRequired && self.auth == nil {
		return nil, ErrCredentialsMissing
	}

	ctx := self.ctx
	if 0 < self.timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, self.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, self.baseUrl+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", self.userAgent)
	if mode == authRequired || (mode == authOptional && self.auth != nil) {
		self.auth.apply(req)
	}

	glog.V(2).Infof("[session]%s %s %s\n", rid, method, path)

	r, err := self.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Err: err}
		}
		return nil, &ConnectionError{Err: err}
	}
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Err: err}
		}
		return nil, &ConnectionError{Err: err}
	}

	if r.StatusCode != http.StatusOK {
		apiErr := ApiError{
			Status:  r.StatusCode,
			Reason:  http.StatusText(r.StatusCode),
			Payload: strings.TrimSpace(string(data)),
		}
		switch r.StatusCode {
		case http.StatusNotFound:
			return nil, &NotFoundError{apiErr}
		case http.StatusGone:
			return nil, &ElementDeletedError{apiErr}
		case http.StatusUnauthorized:
			return nil, &UnauthorizedError{apiErr}
		}
		return nil, &apiErr
	}

	if wantBody && len(data) == 0 {
		return nil, &ResponseEmptyError{ApiError{
			Status: r.StatusCode,
			Reason: http.StatusText(r.StatusCode),
		}}
	}

	glog.V(2).Infof("[session]%s %s %s ok (%d bytes)\n", rid, method, path, len(data))
	return data, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
