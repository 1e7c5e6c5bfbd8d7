package et

import "fmt"

// SchemaVersion is written into every GlobalMetadata record.
const SchemaVersion = "1.0.2-chakra.0.0.4"

// NodeType is the kind of operation a node represents.
type NodeType int

const (
	NodeComputation NodeType = iota
	NodeCollective
)

func (t NodeType) String() string {
	if t == NodeCollective {
		return "COMM_COLL_NODE"
	}
	return "COMP_NODE"
}

// Attribute names carried by collective nodes and metadata records.
const (
	AttrCommType    = "comm_type"
	AttrCommSize    = "comm_size"
	AttrInvolvedDim = "involved_dim"
	AttrSchema      = "schema"
	AttrInputFile   = "input_file"
)

// AttrValue is the typed value of an Attribute.
type AttrValue interface {
	attrValue()
}

type (
	// CommKindValue is a collective kind attribute.
	CommKindValue CommKind
	// Uint64Value is an unsigned 64-bit attribute.
	Uint64Value uint64
	// StringValue is a string attribute.
	StringValue string
	// BoolListValue is a boolean vector attribute.
	BoolListValue []bool
)

func (CommKindValue) attrValue() {}
func (Uint64Value) attrValue()   {}
func (StringValue) attrValue()   {}
func (BoolListValue) attrValue() {}

// Attribute is a named, typed key/value pair.
type Attribute struct {
	Name  string
	Value AttrValue
}

// Record is anything a Sink accepts: *Node or *GlobalMetadata.
type Record interface {
	record()
}

// Node is one operation in a device trace.
type Node struct {
	ID             uint64
	Name           string
	Type           NodeType
	DurationMicros uint64 // computation nodes only
	Attrs          []Attribute
	DataDeps       []uint64
}

func (*Node) record() {}

// Attr returns the attribute with the given name.
func (n *Node) Attr(name string) (AttrValue, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

func (n *Node) String() string {
	return fmt.Sprintf("%d:%s deps=%v", n.ID, n.Name, n.DataDeps)
}

// GlobalMetadata precedes the nodes of a device trace.
type GlobalMetadata struct {
	Attrs []Attribute
}

func (*GlobalMetadata) record() {}

// NewGlobalMetadata builds the metadata record for a schedule's raw text.
func NewGlobalMetadata(rawInput string) *GlobalMetadata {
	return &GlobalMetadata{Attrs: []Attribute{
		{Name: AttrSchema, Value: StringValue(SchemaVersion)},
		{Name: AttrInputFile, Value: StringValue(rawInput)},
	}}
}

// Sink receives the records of one device trace in emission order.
type Sink interface {
	Write(rec Record) error
	Close() error
}

// SinkOpener opens the sink for a device.
type SinkOpener func(device int) (Sink, error)
