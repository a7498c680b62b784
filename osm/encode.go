package osm

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

// The server is the sole consumer of these payloads and the layout below is
// a wire contract: attribute order, the always-present visible flag, child
// ordering (tag, member, nd) and the escape set must not change.

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"\"", "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

func xmlEscape(text string) string {
	return xmlEscaper.Replace(text)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

// sortedKeys gives tags a deterministic canonical order.
func sortedKeys(tags Tags) []string {
	keys := maps.Keys(tags)
	sort.Strings(keys)
	return keys
}

func writeOsmHeader(out *strings.Builder, root string, generator string) {
	out.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	out.WriteString("<")
	out.WriteString(root)
	out.WriteString(" version=\"0.6\" generator=\"")
	out.WriteString(xmlEscape(generator))
	out.WriteString("\">\n")
}

func writeTags(out *strings.Builder, tags Tags) {
	for _, k := range sortedKeys(tags) {
		out.WriteString("    <tag k=\"")
		out.WriteString(xmlEscape(k))
		out.WriteString("\" v=\"")
		out.WriteString(xmlEscape(tags[k]))
		out.WriteString("\"/>\n")
	}
}

// writeElement emits one element without the osm envelope.
// changesetId is the owning changeset for this edit.
func writeElement(out *strings.Builder, elem Element, changesetId int64) {
	meta := elem.Meta()

	out.WriteString("  <")
	out.WriteString(string(elem.Type()))
	if meta.Id != 0 {
		out.WriteString(" id=\"")
		out.WriteString(formatInt(meta.Id))
		out.WriteString("\"")
	}
	if node, ok := elem.(*Node); ok {
		out.WriteString(" lat=\"")
		out.WriteString(formatFloat(node.Lat))
		out.WriteString("\" lon=\"")
		out.WriteString(formatFloat(node.Lon))
		out.WriteString("\"")
	}
	if meta.Version != 0 {
		out.WriteString(" version=\"")
		out.WriteString(formatInt(meta.Version))
		out.WriteString("\"")
	}
	out.WriteString(" visible=\"")
	out.WriteString(formatBool(meta.Visible))
	out.WriteString("\"")
	out.WriteString(" changeset=\"")
	out.WriteString(formatInt(changesetId))
	out.WriteString("\">\n")

	writeTags(out, meta.Tags)

	if relation, ok := elem.(*Relation); ok {
		for _, member := range relation.Members {
			out.WriteString("    <member type=\"")
			out.WriteString(string(member.Type))
			out.WriteString("\" ref=\"")
			out.WriteString(formatInt(member.Ref))
			out.WriteString("\" role=\"")
			out.WriteString(xmlEscape(member.Role))
			out.WriteString("\"/>\n")
		}
	}
	if way, ok := elem.(*Way); ok {
		for _, ref := range way.Nds {
			out.WriteString("    <nd ref=\"")
			out.WriteString(formatInt(ref))
			out.WriteString("\"/>\n")
		}
	}

	out.WriteString("  </")
	out.WriteString(string(elem.Type()))
	out.WriteString(">\n")
}

// encodeElement builds the request body for a single-element mutate.
func encodeElement(elem Element, changesetId int64, generator string) []byte {
	out := &strings.Builder{}
	writeOsmHeader(out, "osm", generator)
	writeElement(out, elem, changesetId)
	out.WriteString("</osm>\n")
	return []byte(out.String())
}

// encodeChangeset builds the body for changeset create/update.
func encodeChangeset(tags Tags, generator string) []byte {
	out := &strings.Builder{}
	writeOsmHeader(out, "osm", generator)
	out.WriteString("  <changeset visible=\"true\">\n")
	writeTags(out, tags)
	out.WriteString("  </changeset>\n")
	out.WriteString("</osm>\n")
	return []byte(out.String())
}

// encodeOsmChange builds the diff upload body: one action wrapper per edit,
// in caller order, inside the osmChange envelope.
func encodeOsmChange(changes []Change, changesetId int64, generator string) []byte {
	out := &strings.Builder{}
	writeOsmHeader(out, "osmChange", generator)
	for _, change := range changes {
		out.WriteString("<")
		out.WriteString(string(change.Action))
		out.WriteString(">\n")
		writeElement(out, change.Element, changesetId)
		out.WriteString("</")
		out.WriteString(string(change.Action))
		out.WriteString(">\n")
	}
	out.WriteString("</osmChange>")
	return []byte(out.String())
}
