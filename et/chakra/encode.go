// Package chakra encodes trace records as Chakra execution-trace protobuf
// messages and writes them as varint length-delimited records.
//
// Messages are assembled field by field with protowire using the et_def
// field numbers, so no generated code is needed.
package chakra

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/inference-sim/etgen/et"
)

// Node.type values.
const (
	NodeTypeComp     = 4
	NodeTypeCommColl = 7
)

// CollectiveCommType values.
const (
	CollAllReduce     = 0
	CollAllGather     = 2
	CollAllToAll      = 6
	CollReduceScatter = 7
)

// et_def field numbers.
const (
	nodeID       protowire.Number = 1
	nodeName     protowire.Number = 2
	nodeType     protowire.Number = 3
	nodeDataDeps protowire.Number = 5
	nodeDuration protowire.Number = 7
	nodeAttr     protowire.Number = 10

	attrName     protowire.Number = 1
	attrInt64    protowire.Number = 9
	attrUint64   protowire.Number = 13
	attrBoolList protowire.Number = 28
	attrString   protowire.Number = 29

	boolListValues protowire.Number = 1

	metadataAttr protowire.Number = 2
)

// CommType maps a communication kind to its CollectiveCommType value.
// Kinds without a collective keep the legacy value 0.
func CommType(k et.CommKind) int64 {
	switch k {
	case et.CommAllGather:
		return CollAllGather
	case et.CommAllToAll:
		return CollAllToAll
	case et.CommReduceScatter:
		return CollReduceScatter
	default:
		return CollAllReduce
	}
}

// Marshal encodes a *et.Node or *et.GlobalMetadata without the length prefix.
func Marshal(rec et.Record) ([]byte, error) {
	switch r := rec.(type) {
	case *et.Node:
		return appendNode(nil, r)
	case *et.GlobalMetadata:
		return appendMetadata(nil, r)
	default:
		return nil, fmt.Errorf("chakra: unsupported record type %T", rec)
	}
}

func appendNode(b []byte, n *et.Node) ([]byte, error) {
	// proto3 omits zero scalars
	if n.ID != 0 {
		b = protowire.AppendTag(b, nodeID, protowire.VarintType)
		b = protowire.AppendVarint(b, n.ID)
	}
	if n.Name != "" {
		b = protowire.AppendTag(b, nodeName, protowire.BytesType)
		b = protowire.AppendString(b, n.Name)
	}
	b = protowire.AppendTag(b, nodeType, protowire.VarintType)
	switch n.Type {
	case et.NodeCollective:
		b = protowire.AppendVarint(b, NodeTypeCommColl)
	default:
		b = protowire.AppendVarint(b, NodeTypeComp)
	}
	if len(n.DataDeps) > 0 {
		var packed []byte
		for _, dep := range n.DataDeps {
			packed = protowire.AppendVarint(packed, dep)
		}
		b = protowire.AppendTag(b, nodeDataDeps, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if n.DurationMicros != 0 {
		b = protowire.AppendTag(b, nodeDuration, protowire.VarintType)
		b = protowire.AppendVarint(b, n.DurationMicros)
	}
	for _, a := range n.Attrs {
		attr, err := appendAttr(nil, a)
		if err != nil {
			return nil, fmt.Errorf("chakra: node %d: %w", n.ID, err)
		}
		b = protowire.AppendTag(b, nodeAttr, protowire.BytesType)
		b = protowire.AppendBytes(b, attr)
	}
	return b, nil
}

func appendMetadata(b []byte, m *et.GlobalMetadata) ([]byte, error) {
	for _, a := range m.Attrs {
		attr, err := appendAttr(nil, a)
		if err != nil {
			return nil, fmt.Errorf("chakra: global metadata: %w", err)
		}
		b = protowire.AppendTag(b, metadataAttr, protowire.BytesType)
		b = protowire.AppendBytes(b, attr)
	}
	return b, nil
}

// appendAttr encodes an AttributeProto. Values sit in a oneof, so they are
// written even when zero.
func appendAttr(b []byte, a et.Attribute) ([]byte, error) {
	b = protowire.AppendTag(b, attrName, protowire.BytesType)
	b = protowire.AppendString(b, a.Name)
	switch v := a.Value.(type) {
	case et.CommKindValue:
		b = protowire.AppendTag(b, attrInt64, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(CommType(et.CommKind(v))))
	case et.Uint64Value:
		b = protowire.AppendTag(b, attrUint64, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v))
	case et.StringValue:
		b = protowire.AppendTag(b, attrString, protowire.BytesType)
		b = protowire.AppendString(b, string(v))
	case et.BoolListValue:
		var list []byte
		if len(v) > 0 {
			var packed []byte
			for _, flag := range v {
				packed = protowire.AppendVarint(packed, protowire.EncodeBool(flag))
			}
			list = protowire.AppendTag(list, boolListValues, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
		b = protowire.AppendTag(b, attrBoolList, protowire.BytesType)
		b = protowire.AppendBytes(b, list)
	default:
		return nil, fmt.Errorf("attribute %q: unsupported value type %T", a.Name, a.Value)
	}
	return b, nil
}
