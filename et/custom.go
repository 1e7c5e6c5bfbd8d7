package et

import "github.com/sirupsen/logrus"

// LayerKind is the backward work a layer needs under the CUSTOM strategy.
type LayerKind int

const (
	// KindFP: frozen layer with nothing trainable beneath it.
	KindFP LayerKind = iota
	// KindFPIG: frozen layer with a trainable layer beneath it.
	KindFPIG
	// KindFPWG: trainable layer with nothing trainable beneath it.
	KindFPWG
	// KindFPIGWG: trainable layer with a trainable layer beneath it.
	KindFPIGWG
)

func (k LayerKind) String() string {
	switch k {
	case KindFPIG:
		return "FP+IG"
	case KindFPWG:
		return "FP+WG"
	case KindFPIGWG:
		return "FP+IG+WG"
	default:
		return "FP"
	}
}

// ClassifyLayers assigns a kind to each layer. A layer needs an input
// gradient when any earlier layer is trainable, and a weight gradient when it
// is trainable itself.
func ClassifyLayers(layers []Layer) []LayerKind {
	kinds := make([]LayerKind, len(layers))
	trainableBelow := false
	for i := range layers {
		switch {
		case layers[i].Trainable && trainableBelow:
			kinds[i] = KindFPIGWG
		case layers[i].Trainable:
			kinds[i] = KindFPWG
		case trainableBelow:
			kinds[i] = KindFPIG
		default:
			kinds[i] = KindFP
		}
		trainableBelow = trainableBelow || layers[i].Trainable
		logrus.Debugf("layer %d (%s): %s", i, layers[i].Name, kinds[i])
	}
	return kinds
}

// buildCustomPass builds a compute-only pass driven by trainability. The
// backward sweep chains every emitted node on the previous backward node, or
// on the last forward node before any backward node exists.
func buildCustomPass(g *graph) error {
	var prev slot
	for i := range g.layers {
		comp := g.compNode(i, PhaseForward)
		if i > 0 {
			if err := g.require(comp, g.slots[i-1].fwdComp, i, "previous layer forward compute"); err != nil {
				return err
			}
		}
		g.slots[i].fwdComp.put(comp)
		prev.put(comp)
		if err := g.emit(comp); err != nil {
			return err
		}
	}

	for i := len(g.layers) - 1; i >= 0; i-- {
		s := &g.slots[i]
		s.igComp.clear()
		s.wgComp.clear()

		switch g.kinds[i] {
		case KindFP:
			continue
		case KindFPIG:
			ig := g.compNode(i, PhaseInputGrad)
			if err := g.require(ig, prev, i, "previous backward node"); err != nil {
				return err
			}
			s.igComp.put(ig)
			prev.put(ig)
			if err := g.emit(ig); err != nil {
				return err
			}
		case KindFPWG:
			wg := g.compNode(i, PhaseWeightGrad)
			if err := g.require(wg, prev, i, "previous backward node"); err != nil {
				return err
			}
			s.wgComp.put(wg)
			prev.put(wg)
			if err := g.emit(wg); err != nil {
				return err
			}
		case KindFPIGWG:
			// The weight gradient is built first so the input gradient that
			// depends on it gets the larger id.
			wg := g.compNode(i, PhaseWeightGrad)
			if err := g.require(wg, prev, i, "previous backward node"); err != nil {
				return err
			}
			s.wgComp.put(wg)
			if err := g.emit(wg); err != nil {
				return err
			}
			ig := g.compNode(i, PhaseInputGrad)
			dependOn(ig, wg)
			s.igComp.put(ig)
			prev.put(ig)
			if err := g.emit(ig); err != nil {
				return err
			}
		}
	}
	return nil
}
