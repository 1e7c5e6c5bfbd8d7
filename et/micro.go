package et

// buildMicroPass emits one free-standing weight-gradient collective per layer.
// Nothing depends on compute, so the trace benchmarks communication alone.
func buildMicroPass(g *graph) error {
	for i := range g.layers {
		l := &g.layers[i]
		if err := g.emit(g.commNode(l.Name, l.WeightGrad, maskAll)); err != nil {
			return err
		}
	}
	return nil
}
