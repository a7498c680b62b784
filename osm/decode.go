package osm

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

// xmlNode is a small generic document tree. The response dialect is tiny and
// attribute-driven, so a dom walk with a static coercion table maps onto it
// more directly than per-document unmarshal types would.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
	Text    string     `xml:",chardata"`
}

func parseXml(data []byte) (*xmlNode, error) {
	root := &xmlNode{}
	if err := xml.Unmarshal(data, root); err != nil {
		return nil, &InvalidXmlError{
			Detail: "the response from the api is not well-formed",
			Err:    err,
		}
	}
	return root, nil
}

// findAll returns all descendant elements with the given name, in document
// order.
func (self *xmlNode) findAll(name string) []*xmlNode {
	found := []*xmlNode{}
	for i := range self.Nodes {
		child := &self.Nodes[i]
		if child.XMLName.Local == name {
			found = append(found, child)
		}
		found = append(found, child.findAll(name)...)
	}
	return found
}

func (self *xmlNode) find(name string) *xmlNode {
	all := self.findAll(name)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// childValue returns the text content of the first descendant with the given
// name, or "".
func (self *xmlNode) childValue(name string) string {
	child := self.find(name)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text)
}

// osmResponse parses an api response and returns the elements with the given
// tag under the osm root. A missing root or tag is a protocol error unless
// the caller expects a possibly-empty collection.
func osmResponse(data []byte, tag string, allowEmpty bool) ([]*xmlNode, error) {
	root, err := parseXml(data)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != "osm" {
		return nil, &InvalidXmlError{
			Detail: "missing <osm> root element",
		}
	}
	elems := root.findAll(tag)
	if len(elems) == 0 && !allowEmpty {
		return nil, &InvalidXmlError{
			Detail: "missing <" + tag + "> element",
		}
	}
	return elems, nil
}

func osmResponseSingle(data []byte, tag string) (*xmlNode, error) {
	elems, err := osmResponse(data, tag, false)
	if err != nil {
		return nil, err
	}
	return elems[0], nil
}

// attribute coercion, keyed by attribute name. Built once; unknown names
// pass through as raw strings.

var dateFormats = []string{
	"2006-01-02 15:04:05 UTC",
	time.RFC3339,
}

// parseDate tries the two timestamp formats the api emits. A value matching
// neither is preserved verbatim, with a diagnostic per attempted format.
func parseDate(value string) DateTime {
	for _, format := range dateFormats {
		t, err := time.Parse(format, value)
		if err == nil {
			return DateTime{Time: t}
		}
		glog.V(1).Infof("[decode]%q does not match %q\n", value, format)
	}
	return DateTime{Raw: value}
}

func decodeInt(value string) any {
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		glog.V(1).Infof("[decode]%q is not an integer\n", value)
		return value
	}
	return i
}

func decodeFloat(value string) any {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		glog.V(1).Infof("[decode]%q is not a float\n", value)
		return value
	}
	return f
}

func decodeBool(value string) any {
	return value == "true"
}

func decodeDate(value string) any {
	return parseDate(value)
}

var attrDecoders = map[string]func(string) any{
	"uid":            decodeInt,
	"changeset":      decodeInt,
	"version":        decodeInt,
	"id":             decodeInt,
	"ref":            decodeInt,
	"comments_count": decodeInt,
	"lat":            decodeFloat,
	"lon":            decodeFloat,
	"min_lat":        decodeFloat,
	"min_lon":        decodeFloat,
	"max_lat":        decodeFloat,
	"max_lon":        decodeFloat,
	"open":           decodeBool,
	"visible":        decodeBool,
	"timestamp":      decodeDate,
	"created_at":     decodeDate,
	"closed_at":      decodeDate,
	"date":           decodeDate,
}

func decodeAttrs(n *xmlNode) map[string]any {
	result := map[string]any{}
	for _, attr := range n.Attrs {
		name := attr.Name.Local
		if decode, ok := attrDecoders[name]; ok {
			result[name] = decode(attr.Value)
		} else {
			result[name] = attr.Value
		}
	}
	return result
}

// pop helpers take a coerced attribute out of the map. A value whose
// coercion fell back to the raw string stays in the map and flows into the
// passthrough Attrs instead.

func popInt(attrs map[string]any, name string) int64 {
	if v, ok := attrs[name].(int64); ok {
		delete(attrs, name)
		return v
	}
	return 0
}

func popFloat(attrs map[string]any, name string) float64 {
	if v, ok := attrs[name].(float64); ok {
		delete(attrs, name)
		return v
	}
	return 0
}

func popBool(attrs map[string]any, name string, missing bool) bool {
	if v, ok := attrs[name].(bool); ok {
		delete(attrs, name)
		return v
	}
	return missing
}

func popString(attrs map[string]any, name string) string {
	if v, ok := attrs[name].(string); ok {
		delete(attrs, name)
		return v
	}
	return ""
}

func popDate(attrs map[string]any, name string) DateTime {
	if v, ok := attrs[name].(DateTime); ok {
		delete(attrs, name)
		return v
	}
	return DateTime{}
}

func remainingAttrs(attrs map[string]any) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	remaining := map[string]string{}
	for name, value := range attrs {
		switch v := value.(type) {
		case string:
			remaining[name] = v
		case DateTime:
			remaining[name] = v.String()
		}
	}
	return remaining
}

// parseTags collapses tag children into a map, last write wins.
func parseTags(n *xmlNode) Tags {
	tags := Tags{}
	for _, t := range n.findAll("tag") {
		k, _ := t.attr("k")
		v, _ := t.attr("v")
		tags[k] = v
	}
	return tags
}

func (self *xmlNode) attr(name string) (string, bool) {
	for _, attr := range self.Attrs {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

// parseElementMeta fills the shared server-managed fields and leaves
// anything unrecognized in attrs for the passthrough map.
func parseElementMeta(n *xmlNode, attrs map[string]any, meta *ElementMeta) {
	meta.Id = popInt(attrs, "id")
	meta.Version = popInt(attrs, "version")
	meta.Changeset = popInt(attrs, "changeset")
	meta.Uid = popInt(attrs, "uid")
	meta.User = popString(attrs, "user")
	// the wire default for visible is true
	meta.Visible = popBool(attrs, "visible", true)
	meta.Timestamp = popDate(attrs, "timestamp")
	meta.Tags = parseTags(n)
}

func parseNodeElem(n *xmlNode) *Node {
	node := &Node{}
	attrs := decodeAttrs(n)
	node.Lat = popFloat(attrs, "lat")
	node.Lon = popFloat(attrs, "lon")
	parseElementMeta(n, attrs, &node.ElementMeta)
	node.Attrs = remainingAttrs(attrs)
	return node
}

func parseWayElem(n *xmlNode) *Way {
	way := &Way{}
	attrs := decodeAttrs(n)
	parseElementMeta(n, attrs, &way.ElementMeta)
	way.Attrs = remainingAttrs(attrs)
	for _, nd := range n.findAll("nd") {
		ndAttrs := decodeAttrs(nd)
		way.Nds = append(way.Nds, popInt(ndAttrs, "ref"))
	}
	return way
}

func parseRelationElem(n *xmlNode) *Relation {
	relation := &Relation{}
	attrs := decodeAttrs(n)
	parseElementMeta(n, attrs, &relation.ElementMeta)
	relation.Attrs = remainingAttrs(attrs)
	for _, m := range n.findAll("member") {
		memberAttrs := decodeAttrs(m)
		relation.Members = append(relation.Members, Member{
			Type: OsmType(popString(memberAttrs, "type")),
			Ref:  popInt(memberAttrs, "ref"),
			Role: popString(memberAttrs, "role"),
		})
	}
	return relation
}

func parseElem(n *xmlNode) Element {
	switch n.XMLName.Local {
	case "node":
		return parseNodeElem(n)
	case "way":
		return parseWayElem(n)
	case "relation":
		return parseRelationElem(n)
	}
	return nil
}

func parseChangesetElem(n *xmlNode, includeDiscussion bool) *Changeset {
	changeset := &Changeset{}
	attrs := decodeAttrs(n)
	changeset.Id = popInt(attrs, "id")
	changeset.Open = popBool(attrs, "open", false)
	changeset.Uid = popInt(attrs, "uid")
	changeset.User = popString(attrs, "user")
	changeset.CreatedAt = popDate(attrs, "created_at")
	changeset.ClosedAt = popDate(attrs, "closed_at")
	changeset.CommentsCount = popInt(attrs, "comments_count")
	changeset.MinLat = popFloat(attrs, "min_lat")
	changeset.MinLon = popFloat(attrs, "min_lon")
	changeset.MaxLat = popFloat(attrs, "max_lat")
	changeset.MaxLon = popFloat(attrs, "max_lon")
	changeset.Tags = parseTags(n)
	changeset.Attrs = remainingAttrs(attrs)

	if includeDiscussion {
		changeset.Discussion = []ChangesetComment{}
		if discussion := n.find("discussion"); discussion != nil {
			for _, c := range discussion.findAll("comment") {
				commentAttrs := decodeAttrs(c)
				changeset.Discussion = append(changeset.Discussion, ChangesetComment{
					Date: popDate(commentAttrs, "date"),
					Uid:  popInt(commentAttrs, "uid"),
					User: popString(commentAttrs, "user"),
					Text: c.childValue("text"),
				})
			}
		}
	}
	return changeset
}

// parseOsm decodes a mixed element document (map, full queries).
func parseOsm(data []byte) ([]Element, error) {
	root, err := parseXml(data)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != "osm" {
		return nil, &InvalidXmlError{
			Detail: "missing <osm> root element",
		}
	}
	result := []Element{}
	for i := range root.Nodes {
		if elem := parseElem(&root.Nodes[i]); elem != nil {
			result = append(result, elem)
		}
	}
	return result, nil
}

// parseOsc decodes an osmChange document (changeset downloads).
func parseOsc(data []byte) ([]Change, error) {
	root, err := parseXml(data)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != "osmChange" {
		return nil, &InvalidXmlError{
			Detail: "missing <osmChange> root element",
		}
	}
	result := []Change{}
	for i := range root.Nodes {
		action := &root.Nodes[i]
		for j := range action.Nodes {
			if elem := parseElem(&action.Nodes[j]); elem != nil {
				result = append(result, Change{
					Action:  Action(action.XMLName.Local),
					Element: elem,
				})
			}
		}
	}
	return result, nil
}

// diffEntry is one per-element outcome of a diff upload, in request order.
type diffEntry struct {
	elemType   OsmType
	oldId      int64
	newId      int64
	newVersion int64
	// deletes carry no new id/version
	hasNew bool
}

func parseDiffResult(data []byte) ([]diffEntry, error) {
	root, err := parseXml(data)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != "diffResult" {
		return nil, &InvalidXmlError{
			Detail: "missing <diffResult> root element",
		}
	}
	result := []diffEntry{}
	for i := range root.Nodes {
		n := &root.Nodes[i]
		// old_id/new_id/new_version only occur here, so they are coerced
		// directly instead of through the shared attribute table
		entry := diffEntry{
			elemType: OsmType(n.XMLName.Local),
			oldId:    attrInt(n, "old_id"),
		}
		if _, ok := n.attr("new_id"); ok {
			entry.newId = attrInt(n, "new_id")
			entry.newVersion = attrInt(n, "new_version")
			entry.hasNew = true
		}
		result = append(result, entry)
	}
	return result, nil
}
