package et

import "fmt"

// graph is the state of one device's generation. It is owned by a single
// goroutine for the duration of ConvertDevice.
type graph struct {
	strategy Strategy
	layers   []Layer
	kinds    []LayerKind // CUSTOM only
	boundary int         // HYBRID_DLRM only
	numDims  int

	slots []layerSlots
	alloc *IDAllocator
	sink  Sink

	device int
	pass   int
	stats  DeviceStats
}

// compNode builds the compute node of layer idx for the given phase.
func (g *graph) compNode(idx int, p Phase) *Node {
	l := &g.layers[idx]
	return &Node{
		ID:             g.alloc.Next(),
		Name:           "COMP_NODE_" + l.Name + "_" + p.Tag(),
		Type:           NodeComputation,
		DurationMicros: l.Profile(p).CompTime,
	}
}

// commNode builds a collective node. label is usually the layer name.
func (g *graph) commNode(label string, prof PhaseProfile, m dimMask) *Node {
	kind := prof.CommKind
	if !kind.IsCollective() {
		kind = CommUnknown
	}
	return &Node{
		ID:   g.alloc.Next(),
		Name: "COMM_COLL_NODE_" + label + "_" + prof.CommToken,
		Type: NodeCollective,
		Attrs: []Attribute{
			{Name: AttrCommType, Value: CommKindValue(kind)},
			{Name: AttrCommSize, Value: Uint64Value(prof.CommSize)},
			{Name: AttrInvolvedDim, Value: BoolListValue(involvedDims(g.numDims, m))},
		},
	}
}

// dependOn adds parent as a dependency of n.
func dependOn(n, parent *Node) {
	n.DataDeps = append(n.DataDeps, parent.ID)
}

// link adds the slot's node as a dependency of n when the slot is populated.
func link(n *Node, s slot) {
	if s.set {
		n.DataDeps = append(n.DataDeps, s.id)
	}
}

// require is link for slots that must be populated.
func (g *graph) require(n *Node, s slot, layer int, what string) error {
	if !s.set {
		return &MissingDependencyError{
			Strategy: g.strategy,
			Device:   g.device,
			Pass:     g.pass,
			Layer:    layer,
			Slot:     what,
		}
	}
	n.DataDeps = append(n.DataDeps, s.id)
	return nil
}

// emit writes n to the sink. Every dependency must name a node emitted
// earlier, which keeps the stream in topological order.
func (g *graph) emit(n *Node) error {
	for _, dep := range n.DataDeps {
		if dep >= n.ID {
			return fmt.Errorf("node %d (%s) depends on %d, which is not emitted yet", n.ID, n.Name, dep)
		}
	}
	if err := g.sink.Write(n); err != nil {
		return fmt.Errorf("writing node %d (%s): %w", n.ID, n.Name, err)
	}
	g.stats.Nodes++
	if n.Type == NodeCollective {
		g.stats.Collectives++
	}
	return nil
}
