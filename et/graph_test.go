package et

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	recs []Record
}

func (s *memSink) Write(r Record) error {
	s.recs = append(s.recs, r)
	return nil
}

func (s *memSink) Close() error { return nil }

func testGraph(strategy Strategy, numDims int, layers ...Layer) (*graph, *memSink) {
	sink := &memSink{}
	return &graph{
		strategy: strategy,
		layers:   layers,
		numDims:  numDims,
		slots:    newSlotTable(len(layers)),
		alloc:    NewIDAllocator(),
		sink:     sink,
	}, sink
}

func TestInvolvedDims(t *testing.T) {
	tests := []struct {
		name    string
		numDims int
		mask    dimMask
		want    []bool
	}{
		{"all over one axis", 1, maskAll, []bool{true}},
		{"all over four axes", 4, maskAll, []bool{true, true, true, true}},
		{"first of three", 3, maskFirst, []bool{true, false, false}},
		{"rest of three", 3, maskRest, []bool{false, true, true}},
		{"rest of one is empty", 1, maskRest, []bool{false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, involvedDims(tt.numDims, tt.mask))
		})
	}
}

func TestIDAllocator_Sequential(t *testing.T) {
	a := NewIDAllocator()
	assert.Equal(t, uint64(0), a.Peek())
	for want := uint64(0); want < 5; want++ {
		assert.Equal(t, want, a.Next())
	}
	assert.Equal(t, uint64(5), a.Peek())
}

func TestSlot_PutAndClear(t *testing.T) {
	var s slot
	assert.False(t, s.set)

	s.put(&Node{ID: 0})
	assert.True(t, s.set, "id 0 is a valid populated slot")
	assert.Equal(t, uint64(0), s.id)

	s.put(&Node{ID: 9})
	assert.Equal(t, uint64(9), s.id, "slots keep the most recent node")

	s.clear()
	assert.Equal(t, slot{}, s)
}

func TestGraph_RequireUnsetSlot(t *testing.T) {
	// GIVEN a graph whose layer 1 has no forward node yet
	g, _ := testGraph(StrategyModel, 1, Layer{Name: "a"}, Layer{Name: "b"})
	g.device, g.pass = 2, 3
	n := g.compNode(1, PhaseForward)

	// WHEN a builder requires the missing node
	err := g.require(n, g.slots[0].fwdComm, 1, "previous layer forward collective")

	// THEN the error names where generation broke
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingDependency))
	var mde *MissingDependencyError
	require.True(t, errors.As(err, &mde))
	assert.Equal(t, MissingDependencyError{Strategy: StrategyModel, Device: 2, Pass: 3, Layer: 1, Slot: "previous layer forward collective"}, *mde)
	assert.Equal(t, "MODEL: device 2 pass 3 layer 1: previous layer forward collective node is missing", err.Error())
	assert.Empty(t, n.DataDeps)
}

func TestGraph_EmitRejectsForwardReference(t *testing.T) {
	g, sink := testGraph(StrategyCustom, 1, Layer{Name: "a"})
	n := g.compNode(0, PhaseForward)
	n.DataDeps = []uint64{n.ID}

	err := g.emit(n)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not emitted yet")
	assert.Empty(t, sink.recs)
	assert.Zero(t, g.stats.Nodes)
}

func TestGraph_CommNodeAttributes(t *testing.T) {
	g, _ := testGraph(StrategyData, 2)
	n := g.commNode("L", PhaseProfile{CommKind: CommNone, CommToken: "NONE", CommSize: 42}, maskFirst)

	assert.Equal(t, "COMM_COLL_NODE_L_NONE", n.Name)
	assert.Equal(t, NodeCollective, n.Type)
	assert.Zero(t, n.DurationMicros)
	kind, ok := n.Attr(AttrCommType)
	require.True(t, ok)
	assert.Equal(t, CommKindValue(CommUnknown), kind, "NONE is not a collective")
	size, _ := n.Attr(AttrCommSize)
	assert.Equal(t, Uint64Value(42), size)
	dims, _ := n.Attr(AttrInvolvedDim)
	assert.Equal(t, BoolListValue{true, false}, dims)
	_, ok = n.Attr("missing")
	assert.False(t, ok)
}

func TestBuilderFor_UnknownStrategy(t *testing.T) {
	_, err := builderFor(Strategy(99))
	assert.True(t, errors.Is(err, ErrUnsupportedStrategy))
}

func TestCommKind_Tokens(t *testing.T) {
	for token, kind := range commTokens {
		assert.Equal(t, token, kind.String())
		assert.Equal(t, kind != CommNone, kind.IsCollective(), token)
	}
	assert.Equal(t, "UNKNOWN", CommUnknown.String())
	assert.False(t, CommUnknown.IsCollective())
}
