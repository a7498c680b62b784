package osm

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

// the api reports an edit against a closed changeset as a plain 409 with
// this message; a 409 without it is a version conflict
var changesetClosedPattern = regexp.MustCompile(`The changeset .* was closed at .*`)

// ChangesetCreate opens a changeset and makes it the client's current one.
// A created_by tag is added when the caller did not set one.
func (self *Client) ChangesetCreate(tags Tags) (int64, error) {
	if self.currentChangesetId != 0 {
		return 0, ErrChangesetAlreadyOpen
	}

	merged := Tags{}
	for k, v := range tags {
		merged[k] = v
	}
	if _, ok := merged["created_by"]; !ok {
		merged["created_by"] = self.createdBy
	}
	// a well-known tutorial snippet; keep it off the live database
	if self.session.baseUrl == DefaultBaseUrl && merged["comment"] == "My first test" {
		return 0, ErrTestChangeset
	}

	data, err := self.session.put("/api/0.6/changeset/create", encodeChangeset(merged, self.createdBy), true)
	if err != nil {
		return 0, err
	}
	id, err := parseNumericBody(data)
	if err != nil {
		return 0, err
	}

	glog.V(1).Infof("[changeset]opened %d\n", id)
	self.currentChangesetId = id
	return id, nil
}

// ChangesetUpdate replaces the tags of the current changeset.
func (self *Client) ChangesetUpdate(tags Tags) (int64, error) {
	if self.currentChangesetId == 0 {
		return 0, ErrChangesetNotOpen
	}

	merged := Tags{}
	for k, v := range tags {
		merged[k] = v
	}
	if _, ok := merged["created_by"]; !ok {
		merged["created_by"] = self.createdBy
	}

	path := fmt.Sprintf("/api/0.6/changeset/%d", self.currentChangesetId)
	_, err := self.session.put(path, encodeChangeset(merged, self.createdBy), true)
	if err != nil {
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.Status == 409 {
			return 0, &ChangesetClosedError{*apiErr}
		}
		return 0, err
	}
	return self.currentChangesetId, nil
}

// ChangesetClose closes the current changeset.
func (self *Client) ChangesetClose() error {
	if self.currentChangesetId == 0 {
		return ErrChangesetNotOpen
	}

	path := fmt.Sprintf("/api/0.6/changeset/%d/close", self.currentChangesetId)
	_, err := self.session.put(path, nil, false)
	if err != nil {
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.Status == 409 && changesetClosedPattern.MatchString(apiErr.Payload) {
			return &ChangesetClosedError{*apiErr}
		}
		return err
	}

	glog.V(1).Infof("[changeset]closed %d\n", self.currentChangesetId)
	self.currentChangesetId = 0
	return nil
}

// ChangesetGet fetches one changeset, optionally with its discussion.
func (self *Client) ChangesetGet(changesetId int64, includeDiscussion bool) (*Changeset, error) {
	path := fmt.Sprintf("/api/0.6/changeset/%d", changesetId)
	if includeDiscussion {
		path += "?include_discussion=true"
	}
	data, err := self.session.get(path)
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "changeset")
	if err != nil {
		return nil, err
	}
	return parseChangesetElem(elem, includeDiscussion), nil
}

// ChangesetsQueryArgs narrows a changeset search. Zero fields are omitted
// from the query.
type ChangesetsQueryArgs struct {
	Bbox     *Bbox
	UserId   int64
	UserName string
	// changesets closed after this instant
	ClosedAfter time.Time
	// with ClosedAfter: changesets created before this instant
	CreatedBefore time.Time
	OnlyOpen      bool
	OnlyClosed    bool
}

// ChangesetsQuery searches for changesets matching the given filters.
func (self *Client) ChangesetsQuery(args ChangesetsQueryArgs) ([]*Changeset, error) {
	params := url.Values{}
	if args.Bbox != nil {
		params.Set("bbox", fmt.Sprintf(
			"%f,%f,%f,%f",
			args.Bbox.MinLon, args.Bbox.MinLat, args.Bbox.MaxLon, args.Bbox.MaxLat,
		))
	}
	if args.UserId != 0 {
		params.Set("user", formatInt(args.UserId))
	}
	if args.UserName != "" {
		params.Set("display_name", args.UserName)
	}
	if !args.ClosedAfter.IsZero() {
		timeParam := args.ClosedAfter.UTC().Format(time.RFC3339)
		if !args.CreatedBefore.IsZero() {
			timeParam += "," + args.CreatedBefore.UTC().Format(time.RFC3339)
		}
		params.Set("time", timeParam)
	}
	if args.OnlyOpen {
		params.Set("open", "1")
	}
	if args.OnlyClosed {
		params.Set("closed", "1")
	}

	path := "/api/0.6/changesets"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}
	data, err := self.session.get(path)
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "changeset", true)
	if err != nil {
		return nil, err
	}
	changesets := []*Changeset{}
	for _, elem := range elems {
		changesets = append(changesets, parseChangesetElem(elem, false))
	}
	return changesets, nil
}

// ChangesetDownload fetches the full edit list of a changeset.
func (self *Client) ChangesetDownload(changesetId int64) ([]Change, error) {
	path := fmt.Sprintf("/api/0.6/changeset/%d/download", changesetId)
	data, err := self.session.get(path)
	if err != nil {
		return nil, err
	}
	return parseOsc(data)
}

// ChangesetComment adds a comment to a closed changeset's discussion.
func (self *Client) ChangesetComment(changesetId int64, comment string) (*Changeset, error) {
	path := fmt.Sprintf("/api/0.6/changeset/%d/comment", changesetId)
	body := []byte(url.Values{"text": {comment}}.Encode())
	data, err := self.session.post(path, body, authRequired)
	if err != nil {
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.Status == 409 {
			return nil, &ChangesetClosedError{*apiErr}
		}
		return nil, err
	}
	elem, err := osmResponseSingle(data, "changeset")
	if err != nil {
		return nil, err
	}
	return parseChangesetElem(elem, false), nil
}

// ChangesetSubscribe subscribes the user to a changeset discussion.
func (self *Client) ChangesetSubscribe(changesetId int64) (*Changeset, error) {
	path := fmt.Sprintf("/api/0.6/changeset/%d/subscribe", changesetId)
	data, err := self.session.post(path, nil, authRequired)
	if err != nil {
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.Status == 409 {
			return nil, &AlreadySubscribedError{*apiErr}
		}
		return nil, err
	}
	elem, err := osmResponseSingle(data, "changeset")
	if err != nil {
		return nil, err
	}
	return parseChangesetElem(elem, false), nil
}

// ChangesetUnsubscribe removes the user from a changeset discussion.
func (self *Client) ChangesetUnsubscribe(changesetId int64) (*Changeset, error) {
	path := fmt.Sprintf("/api/0.6/changeset/%d/unsubscribe", changesetId)
	data, err := self.session.post(path, nil, authRequired)
	if err != nil {
		var notFoundErr *NotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, &NotSubscribedError{notFoundErr.ApiError}
		}
		return nil, err
	}
	elem, err := osmResponseSingle(data, "changeset")
	if err != nil {
		return nil, err
	}
	return parseChangesetElem(elem, false), nil
}

// ChangesetUpload submits the edits as one diff against the current
// changeset. On success the elements are updated in place from the diff
// result: creates and modifies get their new id and version, deletes drop
// their version. Returns the same slice.
func (self *Client) ChangesetUpload(changes []Change) ([]Change, error) {
	if self.currentChangesetId == 0 {
		return nil, ErrChangesetNotOpen
	}

	path := fmt.Sprintf("/api/0.6/changeset/%d/upload", self.currentChangesetId)
	body := encodeOsmChange(changes, self.currentChangesetId, self.createdBy)
	data, err := self.session.post(path, body, authRequired)
	if err != nil {
		return nil, mapEditError(err)
	}

	entries, err := parseDiffResult(data)
	if err != nil {
		return nil, err
	}

	// walk the diff result alongside the request. Entries come back in
	// request order, but some servers omit the entry for a delete.
	i := 0
	for _, change := range changes {
		meta := change.Element.Meta()
		meta.Changeset = self.currentChangesetId
		if change.Action == ActionDelete {
			if i < len(entries) && !entries[i].hasNew &&
				entries[i].elemType == change.Element.Type() &&
				entries[i].oldId == meta.Id {
				i += 1
			}
			meta.Version = 0
			continue
		}
		if len(entries) <= i ||
			entries[i].elemType != change.Element.Type() ||
			entries[i].oldId != meta.Id {
			return nil, &InvalidXmlError{
				Detail: fmt.Sprintf(
					"diff result out of step at %s %d",
					change.Element.Type(),
					meta.Id,
				),
			}
		}
		meta.Id = entries[i].newId
		meta.Version = entries[i].newVersion
		// the server assigns the timestamp; the local one is stale now
		meta.Timestamp = DateTime{}
		i += 1
	}

	glog.V(1).Infof("[changeset]uploaded %d changes to %d\n", len(changes), self.currentChangesetId)
	return changes, nil
}

// WithChangeset opens a changeset, runs the callback with edits batched,
// uploads the batch in chunks and closes. Element edits made inside the
// callback are queued rather than sent, so arbitrarily many fit into the
// one changeset with a bounded number of uploads. If the callback or an
// upload fails, the changeset is closed best-effort and the first error
// is returned.
func (self *Client) WithChangeset(tags Tags, callback func() error) error {
	if _, err := self.ChangesetCreate(tags); err != nil {
		return err
	}

	wasScoped := self.scoped
	self.scoped = true
	err := callback()
	self.scoped = wasScoped

	if err == nil {
		size := self.autoSize()
		for 0 < len(self.autoData) {
			chunk := self.autoData
			if size < len(chunk) {
				chunk = chunk[:size]
			}
			if _, uploadErr := self.ChangesetUpload(chunk); uploadErr != nil {
				err = uploadErr
				break
			}
			self.autoData = self.autoData[len(chunk):]
		}
	}

	if err != nil {
		self.autoData = nil
		if closeErr := self.ChangesetClose(); closeErr != nil {
			glog.Infof("[changeset]close after failure = %s\n", closeErr)
		}
		return err
	}
	return self.ChangesetClose()
}

// Flush uploads all queued auto-batched edits now.
func (self *Client) Flush() error {
	return self.flushAuto(true)
}

func (self *Client) autoSize() int {
	if 0 < self.settings.ChangesetAutoSize {
		return self.settings.ChangesetAutoSize
	}
	return 500
}

func (self *Client) autoMulti() int {
	if 0 < self.settings.ChangesetAutoMulti {
		return self.settings.ChangesetAutoMulti
	}
	return 1
}

// flushAuto drains the edit queue in full-sized chunks, opening a changeset
// when none is open and closing it after the configured number of uploads.
// With force set, a final partial chunk is uploaded too.
func (self *Client) flushAuto(force bool) error {
	size := self.autoSize()
	for size <= len(self.autoData) || (force && 0 < len(self.autoData)) {
		if self.autoCount == 0 {
			if _, err := self.ChangesetCreate(self.settings.ChangesetAutoTags); err != nil {
				return err
			}
		}
		chunk := self.autoData
		if size < len(chunk) {
			chunk = chunk[:size]
		}
		if _, err := self.ChangesetUpload(chunk); err != nil {
			return err
		}
		self.autoData = self.autoData[len(chunk):]
		self.autoCount += 1
		if self.autoCount == self.autoMulti() {
			if err := self.ChangesetClose(); err != nil {
				return err
			}
			self.autoCount = 0
		}
	}
	// a forced flush never leaves a changeset open mid-cycle
	if force && 0 < self.autoCount {
		if err := self.ChangesetClose(); err != nil {
			return err
		}
		self.autoCount = 0
	}
	return nil
}

// do routes one element edit: queued when batching, sent immediately
// otherwise. A nil element result means the edit was queued.
func (self *Client) do(action Action, elem Element) (Element, error) {
	if self.settings.ChangesetAuto || self.scoped {
		self.autoData = append(self.autoData, Change{
			Action:  action,
			Element: elem,
		})
		if !self.scoped {
			if err := self.flushAuto(false); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return self.doManual(action, elem)
}

// doManual sends one element edit against the current changeset and updates
// the element in place with the server-assigned id and version.
func (self *Client) doManual(action Action, elem Element) (Element, error) {
	if self.currentChangesetId == 0 {
		return nil, ErrChangesetNotOpen
	}
	meta := elem.Meta()
	body := encodeElement(elem, self.currentChangesetId, self.createdBy)

	switch action {
	case ActionCreate:
		if meta.Id != 0 {
			return nil, ErrElementExists
		}
		path := fmt.Sprintf("/api/0.6/%s/create", elem.Type())
		data, err := self.session.put(path, body, true)
		if err != nil {
			return nil, mapEditError(err)
		}
		id, err := parseNumericBody(data)
		if err != nil {
			return nil, err
		}
		meta.Id = id
		meta.Version = 1
	case ActionModify:
		path := fmt.Sprintf("/api/0.6/%s/%d", elem.Type(), meta.Id)
		data, err := self.session.put(path, body, true)
		if err != nil {
			return nil, mapEditError(err)
		}
		version, err := parseNumericBody(data)
		if err != nil {
			return nil, err
		}
		meta.Version = version
	case ActionDelete:
		path := fmt.Sprintf("/api/0.6/%s/%d", elem.Type(), meta.Id)
		data, err := self.session.delete(path, body)
		if err != nil {
			return nil, mapEditError(err)
		}
		version, err := parseNumericBody(data)
		if err != nil {
			return nil, err
		}
		meta.Version = version
	}
	meta.Changeset = self.currentChangesetId
	return elem, nil
}

// mapEditError refines the remote failure of an edit. A 409 carrying the
// closed-changeset message means the changeset was closed under us; any
// other 409 is a version conflict; a 412 is a referential precondition.
func mapEditError(err error) error {
	var apiErr *ApiError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Status {
	case 409:
		if changesetClosedPattern.MatchString(apiErr.Payload) {
			return &ChangesetClosedError{*apiErr}
		}
		return &VersionConflictError{*apiErr}
	case 412:
		return &PreconditionFailedError{*apiErr}
	}
	return err
}

// parseNumericBody reads the bare integer bodies the edit endpoints return
// (new element id, new version, changeset id).
func parseNumericBody(data []byte) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, &InvalidXmlError{
			Detail: fmt.Sprintf("expected a numeric body, got %q", strings.TrimSpace(string(data))),
			Err:    err,
		}
	}
	return value, nil
}
