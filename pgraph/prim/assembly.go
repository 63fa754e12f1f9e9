package prim

import "fmt"

// Topology describes how an ordered stream of vertex indices groups into
// geometric primitives. The values cover the full set of primitive types
// the NV2A accepts, most of which have no native equivalent in Vulkan.
type Topology uint32

const (
	TopologyPoints Topology = iota
	TopologyLines
	TopologyLineStrip
	TopologyLineLoop
	TopologyTriangles
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyQuads
	TopologyQuadStrip
	TopologyPolygon
)

var topologyMapping = map[Topology]string{
	TopologyPoints:        "TopologyPoints",
	TopologyLines:         "TopologyLines",
	TopologyLineStrip:     "TopologyLineStrip",
	TopologyLineLoop:      "TopologyLineLoop",
	TopologyTriangles:     "TopologyTriangles",
	TopologyTriangleStrip: "TopologyTriangleStrip",
	TopologyTriangleFan:   "TopologyTriangleFan",
	TopologyQuads:         "TopologyQuads",
	TopologyQuadStrip:     "TopologyQuadStrip",
	TopologyPolygon:       "TopologyPolygon",
}

func (t Topology) String() string {
	str, ok := topologyMapping[t]
	if !ok {
		return "unknown Topology"
	}

	return str
}

// FillMode governs how the polygon-like topologies (TopologyQuads,
// TopologyQuadStrip, TopologyPolygon) degrade when not filled.
type FillMode uint32

const (
	FillModePoint FillMode = iota
	FillModeLine
	FillModeFill
)

var fillModeMapping = map[FillMode]string{
	FillModePoint: "FillModePoint",
	FillModeLine:  "FillModeLine",
	FillModeFill:  "FillModeFill",
}

func (m FillMode) String() string {
	str, ok := fillModeMapping[m]
	if !ok {
		return "unknown FillMode"
	}

	return str
}

// AssemblyState fully determines rewrite behavior for one draw. It is a
// plain value and must not change for the duration of a rewrite call.
//
// LastProvoking indicates the hardware takes flat-shaded attributes from
// the last vertex of each primitive rather than the first. FlatShading
// indicates flat shading is active, making provoking vertex placement
// observable.
type AssemblyState struct {
	Topology      Topology
	FillMode      FillMode
	LastProvoking bool
	FlatShading   bool
}

// OutputTopology maps an input topology and fill mode to the primitive
// type the rewritten index stream must be drawn with. The result is one
// of TopologyPoints, TopologyLines or TopologyTriangles and never depends
// on the input count. Passing a topology outside the defined set panics.
func OutputTopology(topology Topology, fillMode FillMode) Topology {
	switch topology {
	case TopologyPoints:
		return TopologyPoints
	case TopologyLines, TopologyLineStrip, TopologyLineLoop:
		return TopologyLines
	case TopologyTriangles, TopologyTriangleStrip, TopologyTriangleFan:
		return TopologyTriangles
	case TopologyQuads, TopologyQuadStrip, TopologyPolygon:
		if fillMode == FillModeLine {
			return TopologyLines
		}
		return TopologyTriangles
	}

	panic(fmt.Sprintf("unexpected primitive topology: %s", topology.String()))
}

// NeedsRewrite reports whether a draw with the provided state requires
// index rewriting. Points pass through untouched. Lines and Triangles are
// natively accepted and only need their vertices reordered when the
// hardware provoking vertex convention (last) disagrees with the fixed
// first-vertex convention of the output API under flat shading. Every
// other topology must always be decomposed.
func NeedsRewrite(state AssemblyState) bool {
	switch state.Topology {
	case TopologyPoints:
		return false
	case TopologyLines, TopologyTriangles:
		return state.LastProvoking && state.FlatShading
	default:
		return true
	}
}

// MaxOutputIndices returns an upper bound on the number of indices a
// rewrite of inputCount input indices can emit. The scratch buffer is
// sized from this bound before any index is written so the emitters never
// reallocate mid-decomposition.
func MaxOutputIndices(topology Topology, fillMode FillMode, inputCount int) int {
	switch topology {
	case TopologyLines:
		return inputCount
	case TopologyLineStrip:
		if inputCount < 2 {
			return 0
		}
		return (inputCount - 1) * 2
	case TopologyLineLoop:
		if inputCount < 2 {
			return 0
		}
		return inputCount * 2
	case TopologyTriangles:
		return inputCount
	case TopologyTriangleStrip, TopologyTriangleFan:
		if inputCount < 3 {
			return 0
		}
		return (inputCount - 2) * 3
	case TopologyPolygon:
		if fillMode == FillModeLine {
			if inputCount < 2 {
				return 0
			}
			return inputCount * 2
		}
		if inputCount < 3 {
			return 0
		}
		return (inputCount - 2) * 3
	case TopologyQuads:
		if fillMode == FillModeLine {
			return (inputCount / 4) * 8
		}
		return (inputCount / 4) * 6
	case TopologyQuadStrip:
		if inputCount < 4 {
			return 0
		}
		if fillMode == FillModeLine {
			return ((inputCount - 2) / 2) * 8
		}
		return ((inputCount - 2) / 2) * 6
	}

	return 0
}
