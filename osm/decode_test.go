package osm

import (
	"errors"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestDecodeNode(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="OpenStreetMap server">
  <node id="123" visible="true" version="1" changeset="15293"
        timestamp="2012-04-18T11:14:26Z" user="Mede" uid="331"
        lat="47.3866126" lon="8.4912757">
    <tag k="amenity" v="drinking_water"/>
    <tag k="amenity" v="fountain"/>
  </node>
</osm>`)

	elems, err := parseOsm(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(elems))

	node := elems[0].(*Node)
	assert.Equal(t, int64(123), node.Id)
	assert.Equal(t, int64(1), node.Version)
	assert.Equal(t, int64(15293), node.Changeset)
	assert.Equal(t, int64(331), node.Uid)
	assert.Equal(t, "Mede", node.User)
	assert.Equal(t, true, node.Visible)
	assert.Equal(t, 47.3866126, node.Lat)
	assert.Equal(t, 8.4912757, node.Lon)
	assert.Equal(t, true, node.Timestamp.Time.Equal(time.Date(2012, 4, 18, 11, 14, 26, 0, time.UTC)))
	// repeated keys collapse, last write wins
	assert.Equal(t, Tags{"amenity": "fountain"}, node.Tags)
}

func TestDecodeVisibleDefaultsTrue(t *testing.T) {
	data := []byte(`<osm><node id="5" lat="1" lon="2"/></osm>`)
	elems, err := parseOsm(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, true, elems[0].(*Node).Visible)

	data = []byte(`<osm><node id="5" lat="1" lon="2" visible="false"/></osm>`)
	elems, err = parseOsm(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, false, elems[0].(*Node).Visible)
}

func TestDecodeLegacyTimestampFormat(t *testing.T) {
	data := []byte(`<osm><node id="5" lat="1" lon="2" timestamp="2008-01-01 04:15:24 UTC"/></osm>`)
	elems, err := parseOsm(data)
	assert.Equal(t, nil, err)
	node := elems[0].(*Node)
	assert.Equal(t, true, node.Timestamp.Time.Equal(time.Date(2008, 1, 1, 4, 15, 24, 0, time.UTC)))
	assert.Equal(t, "", node.Timestamp.Raw)
}

func TestDecodeUnparseableValuesPassThrough(t *testing.T) {
	data := []byte(`<osm><node id="5" lat="1" lon="2" timestamp="yesterday" custom="x"/></osm>`)
	elems, err := parseOsm(data)
	assert.Equal(t, nil, err)
	node := elems[0].(*Node)
	// a timestamp matching no known format is preserved verbatim
	assert.Equal(t, true, node.Timestamp.Time.IsZero())
	assert.Equal(t, "yesterday", node.Timestamp.Raw)
	// unknown attributes survive unconverted
	assert.Equal(t, "x", node.Attrs["custom"])
}

func TestDecodeWayKeepsNdOrder(t *testing.T) {
	data := []byte(`<osm>
  <way id="8276" version="1">
    <nd ref="21"/>
    <nd ref="23"/>
    <nd ref="22"/>
  </way>
</osm>`)
	elems, err := parseOsm(data)
	assert.Equal(t, nil, err)
	way := elems[0].(*Way)
	assert.Equal(t, []int64{21, 23, 22}, way.Nds)
}

func TestDecodeRelationKeepsMemberOrder(t *testing.T) {
	data := []byte(`<osm>
  <relation id="76">
    <member type="way" ref="4" role="outer"/>
    <member type="node" ref="3" role=""/>
  </relation>
</osm>`)
	elems, err := parseOsm(data)
	assert.Equal(t, nil, err)
	relation := elems[0].(*Relation)
	assert.Equal(t, []Member{
		{Type: TypeWay, Ref: 4, Role: "outer"},
		{Type: TypeNode, Ref: 3, Role: ""},
	}, relation.Members)
}

func TestDecodeChangesetWithDiscussion(t *testing.T) {
	data := []byte(`<osm>
  <changeset id="4444" user="metaodi" uid="1234" created_at="2013-09-07T04:04:03Z"
             closed_at="2013-09-07T04:04:05Z" open="false" comments_count="1"
             min_lat="47.1" min_lon="8.4" max_lat="47.2" max_lon="8.5">
    <tag k="comment" v="fixing stuff"/>
    <discussion>
      <comment date="2015-08-31T08:55:57Z" uid="1841" user="me">
        <text>did you verify this?</text>
      </comment>
    </discussion>
  </changeset>
</osm>`)
	root, err := parseXml(data)
	assert.Equal(t, nil, err)
	changeset := parseChangesetElem(root.find("changeset"), true)

	assert.Equal(t, int64(4444), changeset.Id)
	assert.Equal(t, false, changeset.Open)
	assert.Equal(t, "metaodi", changeset.User)
	assert.Equal(t, int64(1), changeset.CommentsCount)
	assert.Equal(t, 47.1, changeset.MinLat)
	assert.Equal(t, 8.5, changeset.MaxLon)
	assert.Equal(t, "fixing stuff", changeset.Tags["comment"])
	assert.Equal(t, 1, len(changeset.Discussion))
	assert.Equal(t, "me", changeset.Discussion[0].User)
	assert.Equal(t, "did you verify this?", changeset.Discussion[0].Text)
}

func TestDecodeOsc(t *testing.T) {
	data := []byte(`<osmChange version="0.6">
  <create>
    <node id="50" lat="1" lon="2" version="1"/>
  </create>
  <modify>
    <way id="8" version="2"/>
  </modify>
  <delete>
    <node id="9" version="3" visible="false"/>
  </delete>
</osmChange>`)

	changes, err := parseOsc(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(changes))
	assert.Equal(t, ActionCreate, changes[0].Action)
	assert.Equal(t, int64(50), changes[0].Element.Meta().Id)
	assert.Equal(t, ActionModify, changes[1].Action)
	assert.Equal(t, TypeWay, changes[1].Element.Type())
	assert.Equal(t, ActionDelete, changes[2].Action)
	assert.Equal(t, false, changes[2].Element.Meta().Visible)
}

func TestDecodeDiffResult(t *testing.T) {
	data := []byte(`<diffResult version="0.6">
  <node old_id="-1" new_id="4295832900" new_version="1"/>
  <way old_id="8276" new_id="8276" new_version="13"/>
  <relation old_id="76"/>
</diffResult>`)

	entries, err := parseDiffResult(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(entries))
	assert.Equal(t, TypeNode, entries[0].elemType)
	assert.Equal(t, int64(-1), entries[0].oldId)
	assert.Equal(t, int64(4295832900), entries[0].newId)
	assert.Equal(t, int64(1), entries[0].newVersion)
	assert.Equal(t, true, entries[0].hasNew)
	assert.Equal(t, false, entries[2].hasNew)
}

func TestDecodeEmptyCollections(t *testing.T) {
	data := []byte(`<osm version="0.6"></osm>`)

	elems, err := osmResponse(data, "way", true)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(elems))

	_, err = osmResponse(data, "node", false)
	var invalidErr *InvalidXmlError
	assert.Equal(t, true, errors.As(err, &invalidErr))
}

func TestDecodeMalformedDocuments(t *testing.T) {
	var invalidErr *InvalidXmlError

	_, err := parseOsm([]byte("<osm><node></osm>"))
	assert.Equal(t, true, errors.As(err, &invalidErr))

	_, err = parseOsm([]byte("<html>not the api</html>"))
	assert.Equal(t, true, errors.As(err, &invalidErr))

	_, err = parseOsc([]byte("<osm/>"))
	assert.Equal(t, true, errors.As(err, &invalidErr))

	_, err = parseDiffResult([]byte("<osm/>"))
	assert.Equal(t, true, errors.As(err, &invalidErr))
}

func TestDecodeNotes(t *testing.T) {
	data := []byte(`<osm>
  <note lon="8.5163" lat="47.3862">
    <id>233</id>
    <date_created>2014-08-28 19:25:37 UTC</date_created>
    <status>open</status>
    <comments>
      <comment>
        <date>2014-08-28 19:25:37 UTC</date>
        <uid>1841</uid>
        <user>metaodi</user>
        <action>opened</action>
        <text>There is something strange here</text>
      </comment>
    </comments>
  </note>
</osm>`)

	notes, err := parseNotes(data, false)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(notes))

	note := notes[0]
	assert.Equal(t, int64(233), note.Id)
	assert.Equal(t, 47.3862, note.Lat)
	assert.Equal(t, 8.5163, note.Lon)
	assert.Equal(t, "open", note.Status)
	assert.Equal(t, 1, len(note.Comments))
	assert.Equal(t, "opened", note.Comments[0].Action)
	assert.Equal(t, int64(1841), note.Comments[0].Uid)
	assert.Equal(t, "There is something strange here", note.Comments[0].Text)
}
