// Package flowgraph builds a directed cost-propagation graph from a yearly
// trade-allocation result and propagates unit costs from raw-material sources
// to finished products. The output is per-facility utilization, an
// input-cost-weighted bill of materials, and emissions.
//
// The graph uses an explicit arena representation: node and edge records
// addressed by integer index with adjacency lists, no general-purpose graph
// dependency. Material flow must be acyclic; a cycle is a structural error.
package flowgraph

import (
	"github.com/rs/zerolog"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// Facility describes one production process center from the graph's point of
// view: what it makes, at what yield, and what processing energy costs.
type Facility struct {
	ID       string
	Capacity float64 // t/year of primary output

	Process           string  // process identifier (technology name)
	ProcessEfficiency float64 // output per unit input; 0.95 means 5% yield loss

	PrimaryOutput domain.Commodity

	// EnergyDemandPerTonne is GJ of each carrier per tonne of output.
	EnergyDemandPerTonne map[domain.EnergyCarrier]float64
	// EnergyCostPerTonne is USD of each carrier per tonne of output.
	EnergyCostPerTonne map[domain.EnergyCarrier]float64
}

// ProcessingEnergyCost returns the total energy cost per tonne of output.
func (f *Facility) ProcessingEnergyCost() float64 {
	total := 0.0
	for _, cost := range f.EnergyCostPerTonne {
		total += cost
	}
	return total
}

// Node is one process center in the graph: a furnace group, a raw-material
// source, or a demand sink.
type Node struct {
	ID       string
	Facility *Facility // nil for raw-material sources and pure demand sinks

	// UnitCost per commodity, finalized once propagation reaches this node.
	// For incoming commodities it is the volume-weighted delivered cost; for
	// the facility's primary output it is the accumulated product cost per
	// tonne of outgoing volume.
	UnitCost map[domain.Commodity]float64

	// Accumulators filled during propagation.
	totalCost   map[domain.Commodity]float64
	totalVolume map[domain.Commodity]float64
}

// Edge is one material flow between two nodes for one commodity.
type Edge struct {
	From, To  int
	Commodity domain.Commodity

	Volume float64 // t shipped (output-side)

	// InputAllocation is the input-side demand at the destination:
	// Volume / process efficiency, grossing up for yield loss.
	InputAllocation float64

	TransportCost        float64 // USD/t
	ProcessingEnergyCost float64 // USD/t at the destination process

	Process           string
	ProcessEfficiency float64
	PrimaryOutput     domain.Commodity
}

// Graph is the arena: nodes and edges addressed by index.
type Graph struct {
	Nodes []Node
	Edges []Edge

	index    map[string]int
	outgoing [][]int // node index -> edge indices
	incoming [][]int

	log zerolog.Logger
}

// Config carries what Build needs besides the allocations themselves.
type Config struct {
	// Facilities maps process center IDs to their production parameters.
	// IDs appearing in allocations but not here are treated as raw-material
	// sources or demand sinks.
	Facilities map[string]*Facility

	// SourceCosts gives the base unit cost per commodity at raw-material
	// source nodes (e.g. mining cost at an ore source).
	SourceCosts map[string]map[domain.Commodity]float64

	// VolumeTolerance drops flows below this volume; they are treated as
	// absent, not as zero-volume edges.
	VolumeTolerance float64

	Log zerolog.Logger
}

// Build constructs the graph from a trade-allocation result: one node per
// distinct process center, one edge per allocation at or above the volume
// tolerance.
func Build(cfg Config, allocations []domain.Allocation) *Graph {
	g := &Graph{
		index: make(map[string]int),
		log:   cfg.Log.With().Str("component", "flowgraph").Logger(),
	}

	for _, alloc := range allocations {
		if alloc.Volume < cfg.VolumeTolerance {
			continue
		}

		from := g.ensureNode(alloc.Source, cfg)
		to := g.ensureNode(alloc.Destination, cfg)

		edge := Edge{
			From:              from,
			To:                to,
			Commodity:         alloc.Commodity,
			Volume:            alloc.Volume,
			InputAllocation:   alloc.Volume,
			TransportCost:     alloc.TransportCost,
			ProcessEfficiency: 1,
		}

		// Annotate with the destination's process parameters.
		if dest := g.Nodes[to].Facility; dest != nil {
			edge.Process = dest.Process
			edge.PrimaryOutput = dest.PrimaryOutput
			edge.ProcessingEnergyCost = dest.ProcessingEnergyCost()
			if dest.ProcessEfficiency > 0 {
				edge.ProcessEfficiency = dest.ProcessEfficiency
				edge.InputAllocation = alloc.Volume / dest.ProcessEfficiency
			}
		}

		edgeIdx := len(g.Edges)
		g.Edges = append(g.Edges, edge)
		g.outgoing[from] = append(g.outgoing[from], edgeIdx)
		g.incoming[to] = append(g.incoming[to], edgeIdx)
	}

	return g
}

func (g *Graph) ensureNode(id string, cfg Config) int {
	if idx, ok := g.index[id]; ok {
		return idx
	}

	node := Node{
		ID:          id,
		Facility:    cfg.Facilities[id],
		UnitCost:    make(map[domain.Commodity]float64),
		totalCost:   make(map[domain.Commodity]float64),
		totalVolume: make(map[domain.Commodity]float64),
	}

	// Raw-material sources start with their base commodity costs.
	for commodity, cost := range cfg.SourceCosts[id] {
		node.UnitCost[commodity] = cost
	}

	idx := len(g.Nodes)
	g.Nodes = append(g.Nodes, node)
	g.index[id] = idx
	g.outgoing = append(g.outgoing, nil)
	g.incoming = append(g.incoming, nil)
	return idx
}

// NodeByID returns the node for a process center ID, or nil if the center
// does not appear in any allocation.
func (g *Graph) NodeByID(id string) *Node {
	if idx, ok := g.index[id]; ok {
		return &g.Nodes[idx]
	}
	return nil
}

// OutgoingVolume sums the shipped volume leaving a node.
func (g *Graph) OutgoingVolume(idx int) float64 {
	total := 0.0
	for _, e := range g.outgoing[idx] {
		total += g.Edges[e].Volume
	}
	return total
}
