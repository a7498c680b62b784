package osm

import (
	"errors"
	"fmt"
	"net/url"
)

// Note is a map note with its comment thread. Unlike elements, notes carry
// their state in child elements rather than attributes.
type Note struct {
	Id          int64
	Lat         float64
	Lon         float64
	DateCreated DateTime
	DateClosed  DateTime
	// "open" or "closed"
	Status   string
	Comments []NoteComment
}

type NoteComment struct {
	Date DateTime
	Uid  int64
	User string
	// "opened", "commented", "closed" or "reopened"
	Action string
	Text   string
}

func parseNoteElem(n *xmlNode) *Note {
	attrs := decodeAttrs(n)
	note := &Note{
		Lat: popFloat(attrs, "lat"),
		Lon: popFloat(attrs, "lon"),
	}
	if v, ok := decodeInt(n.childValue("id")).(int64); ok {
		note.Id = v
	}
	note.Status = n.childValue("status")
	if v := n.childValue("date_created"); v != "" {
		note.DateCreated = parseDate(v)
	}
	if v := n.childValue("date_closed"); v != "" {
		note.DateClosed = parseDate(v)
	}
	if comments := n.find("comments"); comments != nil {
		for _, c := range comments.findAll("comment") {
			comment := NoteComment{
				User:   c.childValue("user"),
				Action: c.childValue("action"),
				Text:   c.childValue("text"),
			}
			if v := c.childValue("date"); v != "" {
				comment.Date = parseDate(v)
			}
			if v, ok := decodeInt(c.childValue("uid")).(int64); ok {
				comment.Uid = v
			}
			note.Comments = append(note.Comments, comment)
		}
	}
	return note
}

func parseNotes(data []byte, allowEmpty bool) ([]*Note, error) {
	elems, err := osmResponse(data, "note", allowEmpty)
	if err != nil {
		return nil, err
	}
	notes := []*Note{}
	for _, elem := range elems {
		notes = append(notes, parseNoteElem(elem))
	}
	return notes, nil
}

// NotesGet fetches the notes in a bounding box. Limit defaults to 100 and
// closedDays to 7 when 0; closedDays < 0 includes notes closed any time.
func (self *Client) NotesGet(bbox Bbox, limit int, closedDays int) ([]*Note, error) {
	if limit == 0 {
		limit = 100
	}
	if closedDays == 0 {
		closedDays = 7
	}
	path := fmt.Sprintf(
		"/api/0.6/notes?bbox=%f,%f,%f,%f&limit=%d&closed=%d",
		bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat,
		limit, closedDays,
	)
	data, err := self.session.get(path)
	if err != nil {
		return nil, err
	}
	return parseNotes(data, true)
}

// NoteGet fetches one note with its full comment thread.
func (self *Client) NoteGet(noteId int64) (*Note, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/notes/%d", noteId))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "note")
	if err != nil {
		return nil, err
	}
	return parseNoteElem(elem), nil
}

// NotesSearch finds notes whose text matches the query. Limit and
// closedDays default as in NotesGet.
func (self *Client) NotesSearch(query string, limit int, closedDays int) ([]*Note, error) {
	if limit == 0 {
		limit = 100
	}
	if closedDays == 0 {
		closedDays = 7
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("closed", fmt.Sprintf("%d", closedDays))
	data, err := self.session.get("/api/0.6/notes/search?" + params.Encode())
	if err != nil {
		return nil, err
	}
	return parseNotes(data, true)
}

// NoteCreate opens a new note. Works anonymously, but the note is
// attributed when credentials are configured.
func (self *Client) NoteCreate(lat float64, lon float64, text string) (*Note, error) {
	params := url.Values{}
	params.Set("lat", formatFloat(lat))
	params.Set("lon", formatFloat(lon))
	params.Set("text", text)
	return self.noteAction("/api/0.6/notes?"+params.Encode(), authOptional)
}

// NoteComment adds a comment to an open note. Works anonymously.
func (self *Client) NoteComment(noteId int64, text string) (*Note, error) {
	params := url.Values{}
	params.Set("text", text)
	path := fmt.Sprintf("/api/0.6/notes/%d/comment?%s", noteId, params.Encode())
	return self.noteAction(path, authOptional)
}

// NoteClose closes an open note with a comment.
func (self *Client) NoteClose(noteId int64, text string) (*Note, error) {
	params := url.Values{}
	params.Set("text", text)
	path := fmt.Sprintf("/api/0.6/notes/%d/close?%s", noteId, params.Encode())
	return self.noteAction(path, authRequired)
}

// NoteReopen reopens a closed note with a comment.
func (self *Client) NoteReopen(noteId int64, text string) (*Note, error) {
	params := url.Values{}
	params.Set("text", text)
	path := fmt.Sprintf("/api/0.6/notes/%d/reopen?%s", noteId, params.Encode())
	return self.noteAction(path, authRequired)
}

// noteAction posts a note state change. A 409 on any note action means the
// note is not in the state the action needs.
func (self *Client) noteAction(path string, mode authMode) (*Note, error) {
	data, err := self.session.post(path, nil, mode)
	if err != nil {
		var apiErr *ApiError
		if errors.As(err, &apiErr) && apiErr.Status == 409 {
			return nil, &NoteAlreadyClosedError{*apiErr}
		}
		return nil, err
	}
	elem, err := osmResponseSingle(data, "note")
	if err != nil {
		return nil, err
	}
	return parseNoteElem(elem), nil
}
