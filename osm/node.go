package osm

import (
	"fmt"
	"strings"
)

// NodeGet fetches the current version of a node.
func (self *Client) NodeGet(nodeId int64) (*Node, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/node/%d", nodeId))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "node")
	if err != nil {
		return nil, err
	}
	return parseNodeElem(elem), nil
}

// NodeGetVersion fetches a specific version of a node.
func (self *Client) NodeGetVersion(nodeId int64, version int64) (*Node, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/node/%d/%d", nodeId, version))
	if err != nil {
		return nil, err
	}
	elem, err := osmResponseSingle(data, "node")
	if err != nil {
		return nil, err
	}
	return parseNodeElem(elem), nil
}

// NodeHistory fetches all versions of a node, oldest first.
func (self *Client) NodeHistory(nodeId int64) ([]*Node, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/node/%d/history", nodeId))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "node", false)
	if err != nil {
		return nil, err
	}
	nodes := []*Node{}
	for _, elem := range elems {
		nodes = append(nodes, parseNodeElem(elem))
	}
	return nodes, nil
}

// NodeWays fetches the ways that reference a node. Empty when the node is
// not part of any way.
func (self *Client) NodeWays(nodeId int64) ([]*Way, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/node/%d/ways", nodeId))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "way", true)
	if err != nil {
		return nil, err
	}
	ways := []*Way{}
	for _, elem := range elems {
		ways = append(ways, parseWayElem(elem))
	}
	return ways, nil
}

// NodeRelations fetches the relations that have a node as a member. Empty
// when the node is not part of any relation.
func (self *Client) NodeRelations(nodeId int64) ([]*Relation, error) {
	data, err := self.session.get(fmt.Sprintf("/api/0.6/node/%d/relations", nodeId))
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

// NodesGet fetches multiple nodes in one request, keyed by id.
func (self *Client) NodesGet(nodeIds []int64) (map[int64]*Node, error) {
	idList := []string{}
	for _, nodeId := range nodeIds {
		idList = append(idList, formatInt(nodeId))
	}
	data, err := self.session.get("/api/0.6/nodes?nodes=" + strings.Join(idList, ","))
	if err != nil {
		return nil, err
	}
	elems, err := osmResponse(data, "node", true)
	if err != nil {
		return nil, err
	}
	nodes := map[int64]*Node{}
	for _, elem := range elems {
		node := parseNodeElem(elem)
		nodes[node.Id] = node
	}
	return nodes, nil
}

// NodeCreate submits a new node to the current changeset. In batched mode
// the edit is queued and (nil, nil) is returned; otherwise the node comes
// back with its server-assigned id and version.
func (self *Client) NodeCreate(node *Node) (*Node, error) {
	elem, err := self.do(ActionCreate, node)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Node), nil
}

// NodeUpdate submits a changed node. Version must match the server's.
func (self *Client) NodeUpdate(node *Node) (*Node, error) {
	elem, err := self.do(ActionModify, node)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Node), nil
}

// NodeDelete deletes a node. Version must match the server's.
func (self *Client) NodeDelete(node *Node) (*Node, error) {
	elem, err := self.do(ActionDelete, node)
	if elem == nil || err != nil {
		return nil, err
	}
	return elem.(*Node), nil
}
