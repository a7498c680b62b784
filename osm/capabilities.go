package osm

import (
	"strconv"
)

// Capabilities is the server's advertised limits and status from
// /api/capabilities.
type Capabilities struct {
	VersionMinimum string
	VersionMaximum string
	// maximum area of a map query, in square degrees
	AreaMaximum     float64
	NoteAreaMaximum float64
	// maximum number of points in a single gps trace page
	TracepointsPerPage int64
	// maximum number of nodes in a way
	WaynodesMaximum int64
	// maximum number of elements in a changeset
	ChangesetsMaximumElements int64
	// server-side request timeout
	TimeoutSeconds int64
	StatusDatabase string
	StatusApi      string
	StatusGpx      string
}

// CapabilitiesGet fetches the server limits. This endpoint predates api
// versioning and lives outside the 0.6 prefix.
func (self *Client) CapabilitiesGet() (*Capabilities, error) {
	data, err := self.session.get("/api/capabilities")
	if err != nil {
		return nil, err
	}

	root, err := parseXml(data)
	if err != nil {
		return nil, err
	}
	if root.XMLName.Local != "osm" {
		return nil, &InvalidXmlError{
			Detail: "missing <osm> root element",
		}
	}
	api := root.find("api")
	if api == nil {
		return nil, &InvalidXmlError{
			Detail: "missing <api> element",
		}
	}

	capabilities := &Capabilities{}
	if version := api.find("version"); version != nil {
		capabilities.VersionMinimum, _ = version.attr("minimum")
		capabilities.VersionMaximum, _ = version.attr("maximum")
	}
	if area := api.find("area"); area != nil {
		capabilities.AreaMaximum = attrFloat(area, "maximum")
	}
	if noteArea := api.find("note_area"); noteArea != nil {
		capabilities.NoteAreaMaximum = attrFloat(noteArea, "maximum")
	}
	if tracepoints := api.find("tracepoints"); tracepoints != nil {
		capabilities.TracepointsPerPage = attrInt(tracepoints, "per_page")
	}
	if waynodes := api.find("waynodes"); waynodes != nil {
		capabilities.WaynodesMaximum = attrInt(waynodes, "maximum")
	}
	if changesets := api.find("changesets"); changesets != nil {
		capabilities.ChangesetsMaximumElements = attrInt(changesets, "maximum_elements")
	}
	if timeout := api.find("timeout"); timeout != nil {
		capabilities.TimeoutSeconds = attrInt(timeout, "seconds")
	}
	if status := api.find("status"); status != nil {
		capabilities.StatusDatabase, _ = status.attr("database")
		capabilities.StatusApi, _ = status.attr("api")
		capabilities.StatusGpx, _ = status.attr("gpx")
	}
	return capabilities, nil
}

func attrFloat(n *xmlNode, name string) float64 {
	value, ok := n.attr(name)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func attrInt(n *xmlNode, name string) int64 {
	value, ok := n.attr(name)
	if !ok {
		return 0
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return i
}
