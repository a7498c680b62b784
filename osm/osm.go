package osm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const Version = "1.0.0"

// the default endpoint is the production api; use the dev instance
// https://api06.dev.openstreetmap.org for testing
const DefaultBaseUrl = "https://www.openstreetmap.org"

type ClientSettings struct {
	BaseUrl string
	// identifies the application in the created_by changeset tag and the
	// user agent; combined with CreatedBy as "appid (created_by)"
	AppId     string
	CreatedBy string

	// credentials for authenticated requests; nil for read-only use
	Auth Auth
	// optional pre-configured client (custom transports, proxies);
	// when nil a pooled client with sane dial timeouts is built
	HttpClient *http.Client

	// bounds each individual request attempt
	Timeout time.Duration
	// total attempts for a request that keeps failing transiently
	MaxRetries int
	// fixed delay between retry attempts
	RetryDelay time.Duration

	// when enabled, per-element edits queue up and are uploaded in
	// chunks inside automatically managed changesets
	ChangesetAuto bool
	// tags applied to automatically opened changesets
	ChangesetAutoTags Tags
	// edits per upload chunk
	ChangesetAutoSize int
	// uploads per changeset before it is closed and a new one opened
	ChangesetAutoMulti int
}

func DefaultClientSettings() *ClientSettings {
	return &ClientSettings{
		BaseUrl:            DefaultBaseUrl,
		CreatedBy:          fmt.Sprintf("osmgo/%s", Version),
		Timeout:            30 * time.Second,
		MaxRetries:         5,
		RetryDelay:         5 * time.Second,
		ChangesetAutoSize:  500,
		ChangesetAutoMulti: 1,
	}
}

// Client talks to one api endpoint. It is designed for sequential use: the
// changeset state is plain fields with no locking, and concurrent calls
// against one instance are undefined. Use one client per worker.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	settings  *ClientSettings
	createdBy string
	session   *session

	// the single currently open changeset, 0 when none
	currentChangesetId int64

	// pending edits and the per-changeset upload counter for auto mode
	autoData  []Change
	autoCount int
	// inside WithChangeset: queue edits, upload on exit
	scoped bool
}

func NewClient(settings *ClientSettings) *Client {
	return NewClientWithContext(context.Background(), settings)
}

func NewClientWithContext(ctx context.Context, settings *ClientSettings) *Client {
	cancelCtx, cancel := context.WithCancel(ctx)

	createdBy := settings.CreatedBy
	if createdBy == "" {
		createdBy = fmt.Sprintf("osmgo/%s", Version)
	}
	if settings.AppId != "" {
		createdBy = fmt.Sprintf("%s (%s)", settings.AppId, createdBy)
	}

	baseUrl := settings.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}

	return &Client{
		ctx:       cancelCtx,
		cancel:    cancel,
		settings:  settings,
		createdBy: createdBy,
		session: newSession(
			cancelCtx,
			baseUrl,
			createdBy,
			settings.Auth,
			settings.HttpClient,
			settings.Timeout,
			settings.MaxRetries,
			settings.RetryDelay,
		),
	}
}

// Close flushes pending auto-batched edits, closes an auto-managed
// changeset left open and releases the client. A changeset opened
// explicitly with ChangesetCreate stays open; closing it is the caller's
// call. A ResponseEmptyError during this best-effort teardown is
// swallowed; there is nothing left to report it to.
func (self *Client) Close() error {
	defer self.cancel()
	if 0 < len(self.autoData) {
		if err := self.flushAuto(true); err != nil && !isResponseEmpty(err) {
			return err
		}
	}
	if self.settings.ChangesetAuto && self.currentChangesetId != 0 {
		if err := self.ChangesetClose(); err != nil && !isResponseEmpty(err) {
			return err
		}
	}
	return nil
}

func isResponseEmpty(err error) bool {
	var emptyErr *ResponseEmptyError
	return errors.As(err, &emptyErr)
}

// Map downloads all elements in the bounding box.
func (self *Client) Map(bbox Bbox) ([]Element, error) {
	path := fmt.Sprintf(
		"/api/0.6/map?bbox=%f,%f,%f,%f",
		bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat,
	)
	data, err := self.session.get(path)
	if err != nil {
		return nil, err
	}
	return parseOsm(data)
}
