package flowgraph

import (
	"errors"
	"fmt"
)

// ErrCycle reports a feedback loop in the material flow. Cost propagation is
// undefined on cyclic graphs; this is a structural error for the year, not a
// retry case.
var ErrCycle = errors.New("flowgraph: cycle detected in material flow")

// Propagate pushes unit costs through the graph in topological layers,
// breadth-first from the roots (nodes with no incoming edges). A node's unit
// costs are finalized before any of its outgoing edges are priced, so each
// edge sees a settled upstream cost.
func (g *Graph) Propagate() error {
	remaining := make([]int, len(g.Nodes))
	queue := make([]int, 0, len(g.Nodes))

	for i := range g.Nodes {
		remaining[i] = len(g.incoming[i])
		if remaining[i] == 0 {
			queue = append(queue, i)
		}
	}

	processed := 0
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		processed++

		g.finalizeNode(idx)

		for _, edgeIdx := range g.outgoing[idx] {
			edge := &g.Edges[edgeIdx]

			// Delivered cost at the destination: upstream unit cost for the
			// commodity plus processing energy at the destination plus
			// transport, scaled by shipped volume.
			unitCost := g.Nodes[idx].UnitCost[edge.Commodity]
			edgeCost := (unitCost + edge.ProcessingEnergyCost + edge.TransportCost) * edge.Volume

			to := &g.Nodes[edge.To]
			to.totalCost[edge.Commodity] += edgeCost
			to.totalVolume[edge.Commodity] += edge.Volume

			remaining[edge.To]--
			if remaining[edge.To] == 0 {
				queue = append(queue, edge.To)
			}
		}
	}

	if processed != len(g.Nodes) {
		unprocessed := len(g.Nodes) - processed
		g.log.Error().
			Int("unprocessed_nodes", unprocessed).
			Msg("Material flow contains a feedback loop")
		return fmt.Errorf("%w: %d nodes unreachable from roots", ErrCycle, unprocessed)
	}

	return nil
}

// finalizeNode normalizes accumulated incoming costs into unit costs. Root
// nodes keep their base source costs.
func (g *Graph) finalizeNode(idx int) {
	node := &g.Nodes[idx]

	productCost := 0.0
	for commodity, totalCost := range node.totalCost {
		if volume := node.totalVolume[commodity]; volume > 0 {
			node.UnitCost[commodity] = totalCost / volume
		}
		productCost += totalCost
	}

	// The primary output's unit cost is the accumulated product cost per
	// tonne of outgoing volume, so downstream edges price this node's
	// product from its full input cost.
	if node.Facility != nil {
		if outgoing := g.OutgoingVolume(idx); outgoing > 0 {
			node.UnitCost[node.Facility.PrimaryOutput] = productCost / outgoing
		}
	}
}
