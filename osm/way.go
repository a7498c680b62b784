package osm

import (
	"fmt"
	"strings"
)

// WayGet fetches the current version of a way.
func (self *Client) WayGet(wayId int64) (*Way, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/way/%d", wayId))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "way")
	if err != nil {
		return nil, err
	}
	return parseWayElem(elem), nil
}

// WayGetVersion fetches a specific version of a way.
func (self *Client) WayGetVersion(wayId int64, version int64) (*Way, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/way/%d/%d", wayId, version))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "way")
	if err != nil {
		return nil, err
	}
	return parseWayElem(elem), nil
}

// WayHistory fetches all versions of a way, oldest first.
func (self *Client) WayHistory(wayId int64) ([]*Way, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/way/%d/history", wayId))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "way", false)
	if err != nil {
		return nil, err
	}
	ways := []*Way{}
	for _, elem := range elems {
		ways = append(ways, parseWayElem(elem))
	}
	return ways, nil
}

// WayRelations fetches the relations that have a way as a member. Empty
// when the way is not part of any relation.
func (self *Client) WayRelations(wayId int64) ([]*Relation, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/way/%d/relations", wayId))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "relation", true)
	if err != nil {
		return nil, err
	}
	relations := []*Relation{}
	for _, elem := range elems {
		relations = append(relations, parseRelationElem(elem))
	}
	return relations, nil
}

// WayFull fetches a way and all the nodes it references.
func (self *Client) WayFull(wayId int64) ([]Element, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/way/%d/full", wayId))
	if err != nil {
		return nil, err
	}
	return parseOsm(data)
}

// WaysGet fetches multiple ways in one request, keyed by id.
func (self *Client) WaysGet(wayIds []int64) (map[int64]*Way, error) {
	idList := []string{}
	for _, wayId := range wayIds {
		idList = append(idList, formatInt(wayId))
	}
	data, err := self.session.get("/api/0.6/ways?ways=" + strings.Join(idList, ","))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "way", true)
	if err != nil {
		return nil, err
	}
	ways := map[int64]*Way{}
	for _, elem := range elems {
		way := parseWayElem(elem)
		ways[way.Id] = way
	}
	return ways, nil
}

// WayCreate submits a new way to the current changeset. In batched mode the
// edit is queued and (nil, nil) is returned.
func (self *Client) WayCreate(way *Way) (*Way, error) {
	elem, err := self.do(ActionCreate, way)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Way), nil
}

// WayUpdate submits a changed way. Version must match the server's.
func (self *Client) WayUpdate(way *Way) (*Way, error) {
	elem, err := self.do(ActionModify, way)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Way), nil
}

// WayDelete deletes a way. Version must match the server's.
func (self *Client) WayDelete(way *Way) (*Way, error) {
	elem, err := self.do(ActionDelete, way)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Way), nil
}
