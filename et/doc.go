// Package et converts a per-layer training schedule into execution-trace graphs.
//
// # Reading Guide
//
// Start with these files to understand the conversion:
//   - layer.go: Layer records and communication kinds parsed from the schedule
//   - node.go: Node, Attribute and GlobalMetadata records written to a Sink
//   - converter.go: the per-device loop that opens sinks and runs passes
//   - strategy.go: mode tags and the builder each one dispatches to
//
// # Graph builders
//
// Each parallelization strategy lives in its own file (micro.go, data.go,
// model.go, hybrid.go, dlrm.go, custom.go). A builder runs one pass: a forward
// sweep over layers in index order followed by a backward sweep in reverse
// order. Builders remember the last node of each role per layer in a
// per-device slot table (slots.go) so that the next pass can chain off the
// previous pass's backward nodes.
//
// Nodes are written to the sink as soon as they are built. Every data
// dependency points at a node that was already written, so the emission
// order is a topological order of the graph.
//
// Wire encoding lives in et/chakra; this package has no dependency on it.
package et
