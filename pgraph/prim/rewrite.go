package prim

import "fmt"

// Range describes a run of implicit sequential indices
// Start..Start+Count-1. A zero Count is a valid empty range and is
// skipped during rewriting.
type Range struct {
	Start int32
	Count int32
}

// indexSource reads input vertex indices either from an explicit index
// array or as a sequential run beginning at base.
type indexSource struct {
	indices []uint32
	base    uint32
}

func (s indexSource) at(i int) uint32 {
	if s.indices != nil {
		return s.indices[i]
	}
	return s.base + uint32(i)
}

type rewriter struct {
	out []uint32
}

func (r *rewriter) emitVertex(v uint32) {
	r.out = append(r.out, v)
}

func (r *rewriter) emitLine(a, b uint32) {
	r.emitVertex(a)
	r.emitVertex(b)
}

// emitLinePV places provoking vertex p at index 0.
func (r *rewriter) emitLinePV(a, b, p uint32) {
	if p == a {
		r.emitLine(a, b)
	} else {
		r.emitLine(b, a)
	}
}

func (r *rewriter) emitTri(a, b, c uint32) {
	r.emitVertex(a)
	r.emitVertex(b)
	r.emitVertex(c)
}

// emitTriPV rotates provoking vertex p to index 0, preserving the
// winding of (a, b, c).
func (r *rewriter) emitTriPV(a, b, c, p uint32) {
	if p == a {
		r.emitTri(a, b, c)
	} else if p == b {
		r.emitTri(b, c, a)
	} else {
		r.emitTri(c, a, b)
	}
}

func (r *rewriter) lines(src indexSource, count int, lastProvoking bool) {
	for i := 0; i+1 < count; i += 2 {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		pv := v0
		if lastProvoking {
			pv = v1
		}

		r.emitLinePV(v0, v1, pv)
	}
}

func (r *rewriter) lineStrip(src indexSource, count int, lastProvoking bool) {
	for i := 0; i+1 < count; i++ {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		pv := v0
		if lastProvoking {
			pv = v1
		}

		r.emitLinePV(v0, v1, pv)
	}
}

func (r *rewriter) lineLoop(src indexSource, count int, lastProvoking bool) {
	if count < 2 {
		return
	}

	r.lineStrip(src, count, lastProvoking)

	vLast := src.at(count - 1)
	vFirst := src.at(0)
	pv := vLast
	if lastProvoking {
		pv = vFirst
	}

	r.emitLinePV(vLast, vFirst, pv)
}

func (r *rewriter) triangles(src indexSource, count int, lastProvoking bool) {
	for i := 0; i+2 < count; i += 3 {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		pv := v0
		if lastProvoking {
			pv = v2
		}

		r.emitTriPV(v0, v1, v2, pv)
	}
}

func (r *rewriter) triangleStrip(src indexSource, count int, lastProvoking bool) {
	for i := 0; i+2 < count; i++ {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		pv := v0
		if lastProvoking {
			pv = v2
		}

		// Odd triangles swap the leading pair to keep the strip's
		// alternating winding before the provoking rotation.
		if i&1 != 0 {
			r.emitTriPV(v1, v0, v2, pv)
		} else {
			r.emitTriPV(v0, v1, v2, pv)
		}
	}
}

func (r *rewriter) triangleFan(src indexSource, count int, lastProvoking bool) {
	if count < 3 {
		return
	}

	hub := src.at(0)

	for i := 0; i+2 < count; i++ {
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		pv := v1
		if lastProvoking {
			pv = v2
		}

		r.emitTriPV(hub, v1, v2, pv)
	}
}

func (r *rewriter) quads(src indexSource, count int, flatShading bool) {
	for i := 0; i+3 < count; i += 4 {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		v3 := src.at(i + 3)

		if flatShading {
			// Use v1-v3 diagonal so provoking vertex v3 is in both
			// triangles. This gives correct flat shading color but
			// slightly different depth slope vs hardware.
			r.emitTri(v3, v0, v1)
			r.emitTri(v3, v1, v2)
		} else {
			// v0-v2 diagonal: matches hardware quad tessellation
			r.emitTri(v0, v1, v2)
			r.emitTri(v0, v2, v3)
		}
	}
}

func (r *rewriter) quadsLine(src indexSource, count int) {
	for i := 0; i+3 < count; i += 4 {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		v3 := src.at(i + 3)

		r.emitLine(v0, v1)
		r.emitLine(v1, v2)
		r.emitLine(v2, v3)
		r.emitLine(v3, v0)
	}
}

func (r *rewriter) quadStrip(src indexSource, count int, flatShading bool) {
	if count < 4 {
		return
	}

	for i := 0; i+3 < count; i += 2 {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		v3 := src.at(i + 3)

		if flatShading {
			// Use v0-v3 diagonal so provoking vertex v3 is in both
			// triangles. This gives correct flat shading color but
			// slightly different depth slope vs hardware.
			r.emitTri(v3, v2, v0)
			r.emitTri(v3, v0, v1)
		} else {
			// v1-v2 diagonal: matches hardware quad strip tessellation
			r.emitTri(v0, v1, v2)
			r.emitTri(v2, v1, v3)
		}
	}
}

func (r *rewriter) quadStripLine(src indexSource, count int) {
	if count < 4 {
		return
	}

	for i := 0; i+3 < count; i += 2 {
		v0 := src.at(i)
		v1 := src.at(i + 1)
		v2 := src.at(i + 2)
		v3 := src.at(i + 3)

		r.emitLine(v0, v1)
		r.emitLine(v1, v3)
		r.emitLine(v3, v2)
		r.emitLine(v2, v0)
	}
}

// polygon fan-triangulates from vertex 0. Unlike triangleFan it applies
// no provoking vertex rotation; the hub always comes first, matching the
// hardware reference behavior for this topology.
func (r *rewriter) polygon(src indexSource, count int) {
	if count < 3 {
		return
	}

	hub := src.at(0)

	for i := 0; i+2 < count; i++ {
		r.emitTri(hub, src.at(i+1), src.at(i+2))
	}
}

func (r *rewriter) polygonLine(src indexSource, count int) {
	if count < 2 {
		return
	}

	for i := 0; i+1 < count; i++ {
		r.emitLine(src.at(i), src.at(i+1))
	}

	// Close the loop
	r.emitLine(src.at(count-1), src.at(0))
}

func (r *rewriter) rewrite(state AssemblyState, src indexSource, count int) {
	switch state.Topology {
	case TopologyLines:
		r.lines(src, count, state.LastProvoking)
	case TopologyLineStrip:
		r.lineStrip(src, count, state.LastProvoking)
	case TopologyLineLoop:
		r.lineLoop(src, count, state.LastProvoking)
	case TopologyTriangles:
		r.triangles(src, count, state.LastProvoking)
	case TopologyTriangleStrip:
		r.triangleStrip(src, count, state.LastProvoking)
	case TopologyTriangleFan:
		r.triangleFan(src, count, state.LastProvoking)
	case TopologyQuads:
		if state.FillMode == FillModeLine {
			r.quadsLine(src, count)
		} else {
			r.quads(src, count, state.FlatShading)
		}
	case TopologyQuadStrip:
		if state.FillMode == FillModeLine {
			r.quadStripLine(src, count)
		} else {
			r.quadStrip(src, count, state.FlatShading)
		}
	case TopologyPolygon:
		if state.FillMode == FillModeLine {
			r.polygonLine(src, count)
		} else {
			r.polygon(src, count)
		}
	default:
		panic(fmt.Sprintf("unexpected primitive topology: %s", state.Topology.String()))
	}
}

// assertSupported rejects the one state combination the command decoder
// can never produce. Reaching it indicates a decoder bug, not a runtime
// condition.
func assertSupported(state AssemblyState) {
	if state.FillMode == FillModePoint && state.Topology == TopologyPolygon {
		panic("point fill mode is not supported for polygon topology")
	}
}

// RewriteIndexed rewrites an explicit index array into a flat index list
// of the topology reported by OutputTopology, emitting into the Buffer's
// scratch storage. It returns an empty Result when no rewrite is needed
// or the input is below the minimum vertex count for its topology.
//
// The returned Result borrows the Buffer and is invalidated by the next
// rewrite call on it.
func (b *Buffer) RewriteIndexed(state AssemblyState, indices []uint32) Result {
	assertSupported(state)

	if !NeedsRewrite(state) {
		return Result{}
	}

	maxOutput := MaxOutputIndices(state.Topology, state.FillMode, len(indices))
	if maxOutput == 0 {
		return Result{}
	}

	b.ensure(maxOutput)

	r := rewriter{out: b.data}
	r.rewrite(state, indexSource{indices: indices}, len(indices))
	b.data = r.out

	return Result{Indices: b.data}
}

// RewriteRanges rewrites an ordered set of sequential index ranges,
// decomposing each range independently: strips, fans and loops restart
// at every range boundary. Empty ranges are skipped. Otherwise it
// behaves exactly like RewriteIndexed; a single range (0, n) produces
// the same output as an explicit index array 0..n-1.
func (b *Buffer) RewriteRanges(state AssemblyState, ranges []Range) Result {
	assertSupported(state)

	if !NeedsRewrite(state) {
		return Result{}
	}

	totalMaxOutput := 0
	for _, rg := range ranges {
		totalMaxOutput += MaxOutputIndices(state.Topology, state.FillMode, int(rg.Count))
	}

	if totalMaxOutput == 0 {
		return Result{}
	}

	b.ensure(totalMaxOutput)

	r := rewriter{out: b.data}
	for _, rg := range ranges {
		if rg.Count == 0 {
			continue
		}

		r.rewrite(state, indexSource{base: uint32(rg.Start)}, int(rg.Count))
	}
	b.data = r.out

	return Result{Indices: b.data}
}
