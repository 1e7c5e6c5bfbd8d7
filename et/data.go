package et

// buildDataPass builds one data-parallel pass. Each layer's weight gradient is
// all-reduced over the whole mesh right after it is computed, and the next
// pass's forward compute of that layer waits for the collective.
func buildDataPass(g *graph) error {
	var lastFwd slot
	for i := range g.layers {
		s := &g.slots[i]
		fwd := g.compNode(i, PhaseForward)
		if i > 0 {
			if err := g.require(fwd, g.slots[i-1].fwdComp, i, "previous layer forward compute"); err != nil {
				return err
			}
		}
		link(fwd, s.wgComm)
		s.fwdComp.put(fwd)
		lastFwd.put(fwd)
		if err := g.emit(fwd); err != nil {
			return err
		}
	}

	last := len(g.layers) - 1
	for i := last; i >= 0; i-- {
		l := &g.layers[i]
		s := &g.slots[i]

		wg := g.compNode(i, PhaseWeightGrad)
		if i == last {
			if err := g.require(wg, lastFwd, i, "last forward compute"); err != nil {
				return err
			}
		} else if err := g.require(wg, g.slots[i+1].igComp, i, "next layer input-gradient compute"); err != nil {
			return err
		}
		s.wgComp.put(wg)
		if err := g.emit(wg); err != nil {
			return err
		}

		comm := g.commNode(l.Name, l.WeightGrad, maskAll)
		dependOn(comm, wg)
		s.wgComm.put(comm)
		if err := g.emit(comm); err != nil {
			return err
		}

		// The first layer has no input gradient to propagate.
		if i == 0 {
			continue
		}
		ig := g.compNode(i, PhaseInputGrad)
		dependOn(ig, wg)
		s.igComp.put(ig)
		if err := g.emit(ig); err != nil {
			return err
		}
	}
	return nil
}
