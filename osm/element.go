package osm

import (
	"time"
)

type OsmType string

const (
	TypeNode     OsmType = "node"
	TypeWay      OsmType = "way"
	TypeRelation OsmType = "relation"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
)

// Tags are the key/value annotations on an element or changeset.
type Tags map[string]string

// Member is one entry of a relation, in order.
type Member struct {
	Type OsmType
	Ref  int64
	Role string
}

// DateTime is a timestamp attribute from the server. The api emits two
// formats; values matching neither are preserved verbatim in Raw.
type DateTime struct {
	Time time.Time
	Raw  string
}

func (self DateTime) IsZero() bool {
	return self.Time.IsZero() && self.Raw == ""
}

func (self DateTime) String() string {
	if self.Raw != "" {
		return self.Raw
	}
	return self.Time.Format(time.RFC3339)
}

// ElementMeta is the server-managed state shared by all element types.
// Id and Version are 0 until the server assigns them: they are either
// both set (known to the server) or both 0 (new, unsubmitted).
type ElementMeta struct {
	Id        int64
	Version   int64
	Changeset int64
	Visible   bool
	Timestamp DateTime
	User      string
	Uid       int64
	Tags      Tags
	// attributes the decoder did not recognize, passed through unconverted
	Attrs map[string]string
}

func (self *ElementMeta) Meta() *ElementMeta {
	return self
}

// Element is the closed union over Node, Way and Relation.
type Element interface {
	Type() OsmType
	Meta() *ElementMeta
}

type Node struct {
	ElementMeta
	Lat float64
	Lon float64
}

func (self *Node) Type() OsmType {
	return TypeNode
}

type Way struct {
	ElementMeta
	// ordered node refs
	Nds []int64
}

func (self *Way) Type() OsmType {
	return TypeWay
}

type Relation struct {
	ElementMeta
	Members []Member
}

func (self *Relation) Type() OsmType {
	return TypeRelation
}

// The wire default for visible is true. The constructors set it so that a
// freshly built element encodes as visible without the caller having to
// remember the flag; elements decoded from the server carry whatever the
// server sent.

func NewNode(lat float64, lon float64, tags Tags) *Node {
	return &Node{
		ElementMeta: ElementMeta{
			Visible: true,
			Tags:    tags,
		},
		Lat: lat,
		Lon: lon,
	}
}

func NewWay(nds []int64, tags Tags) *Way {
	return &Way{
		ElementMeta: ElementMeta{
			Visible: true,
			Tags:    tags,
		},
		Nds: nds,
	}
}

func NewRelation(members []Member, tags Tags) *Relation {
	return &Relation{
		ElementMeta: ElementMeta{
			Visible: true,
			Tags:    tags,
		},
		Members: members,
	}
}

// Change is one pending or applied edit.
type Change struct {
	Action  Action
	Element Element
}

// Changeset is the decoded state of a server changeset.
type Changeset struct {
	Id            int64
	Open          bool
	User          string
	Uid           int64
	CreatedAt     DateTime
	ClosedAt      DateTime
	CommentsCount int64
	MinLat        float64
	MinLon        float64
	MaxLat        float64
	MaxLon        float64
	Tags          Tags
	Attrs         map[string]string
	// only populated when the discussion was requested
	Discussion []ChangesetComment
}

type ChangesetComment struct {
	Date DateTime
	Uid  int64
	User string
	Text string
}

// Bbox is a lon/lat bounding box (min corner, max corner).
type Bbox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}
