package osm

import (
	"fmt"
	"strings"
)

// RelationGet fetches the current version of a relation.
func (self *Client) RelationGet(relationId int64) (*Relation, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/relation/%d", relationId))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "relation")
	if err != nil {
		return nil, err
	}
	return parseRelationElem(elem), nil
}

// RelationGetVersion fetches a specific version of a relation.
func (self *Client) RelationGetVersion(relationId int64, version int64) (*Relation, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/relation/%d/%d", relationId, version))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "relation")
	if err != nil {
		return nil, err
	}
	return parseRelationElem(elem), nil
}

// RelationHistory fetches all versions of a relation, oldest first.
func (self *Client) RelationHistory(relationId int64) ([]*Relation, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/relation/%d/history", relationId))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "relation", false)
	if err != nil {
		return nil, err
	}
	relations := []*Relation{}
	for _, elem := range elems {
		relations = append(relations, parseRelationElem(elem))
	}
	return relations, nil
}

// RelationRelations fetches the relations that have a relation as a member.
// Empty when the relation is not part of any relation.
func (self *Client) RelationRelations(relationId int64) ([]*Relation, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/relation/%d/relations", relationId))
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

// RelationFull fetches a relation and all elements it directly references.
// Member relations come back as bare relation objects, not expanded.
func (self *Client) RelationFull(relationId int64) ([]Element, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/relation/%d/full", relationId))
	if err != nil {
		return nil, err
	}
	return parseOsm(data)
}

// RelationFullRecur fetches a relation and everything it references,
// following member relations recursively. Each element appears once, even
// when relations form a cycle.
func (self *Client) RelationFullRecur(relationId int64) ([]Element, error) {
	result := []Element{}
	seen := map[OsmType]map[int64]bool{
		TypeNode:     {},
		TypeWay:      {},
		TypeRelation: {},
	}
	// relations already expanded with their own full fetch; a relation can
	// show up as a bare member object long before it is expanded
	fetched := map[int64]bool{}
	todo := []int64{relationId}
	pending := map[int64]bool{relationId: true}

	for 0 < len(todo) {
		current := todo[0]
		todo = todo[1:]
		if fetched[current] {
			continue
		}
		fetched[current] = true

		elems, err := self.RelationFull(current)
		if err != nil {
			return nil, err
		}
		for _, elem := range elems {
			meta := elem.Meta()
			if seen[elem.Type()][meta.Id] {
				continue
			}
			seen[elem.Type()][meta.Id] = true
			result = append(result, elem)
			if relation, ok := elem.(*Relation); ok {
				for _, member := range relation.Members {
					if member.Type == TypeRelation && !fetched[member.Ref] && !pending[member.Ref] {
						todo = append(todo, member.Ref)
						pending[member.Ref] = true
					}
				}
			}
		}
	}
	return result, nil
}

// RelationsGet fetches multiple relations in one request, keyed by id.
func (self *Client) RelationsGet(relationIds []int64) (map[int64]*Relation, error) {
	idList := []string{}
	for _, relationId := range relationIds {
		idList = append(idList, formatInt(relationId))
	}
	data, err := self.session.get("/api/0.6/relations?relations=" + strings.Join(idList, ","))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "relation", true)
	if err != nil {
		return nil, err
	}
	relations := map[int64]*Relation{}
	for _, elem := range elems {
		relation := parseRelationElem(elem)
		relations[relation.Id] = relation
	}
	return relations, nil
}

// RelationCreate submits a new relation to the current changeset. In
// batched mode the edit is queued and (nil, nil) is returned.
func (self *Client) RelationCreate(relation *Relation) (*Relation, error) {
	elem, err := self.do(ActionCreate, relation)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Relation), nil
}

// RelationUpdate submits a changed relation. Version must match the
// server's.
func (self *Client) RelationUpdate(relation *Relation) (*Relation, error) {
	elem, err := self.do(ActionModify, relation)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Relation), nil
}

// RelationDelete deletes a relation. Version must match the server's.
func (self *Client) RelationDelete(relation *Relation) (*Relation, error) {
	elem, err := self.do(ActionDelete, relation)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Relation), nil
}
