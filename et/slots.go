package et

// slot remembers the most recent node of one role for one layer.
type slot struct {
	id  uint64
	set bool
}

func (s *slot) put(n *Node) {
	s.id = n.ID
	s.set = true
}

func (s *slot) clear() {
	*s = slot{}
}

// layerSlots is the per-device, per-layer builder state. A fresh table is
// built for every device so no node reference leaks between traces; within a
// device it carries across passes, which is how a pass's forward sweep chains
// off the previous pass's backward nodes.
type layerSlots struct {
	fwdComp slot
	fwdComm slot
	igComp  slot
	igComm  slot
	wgComp  slot
	wgComm  slot
}

func newSlotTable(numLayers int) []layerSlots {
	return make([]layerSlots, numLayers)
}
