package scene

import (
	"sort"

	"github.com/LuniumLuk/Tira/log"
	"github.com/LuniumLuk/Tira/types"
)

var bvhLogger = log.New("bvh")

// SplitMethod selects the partitioning strategy subdivide uses at each BVH
// node (spec section 4.1, "BVH build"), grounded on
// original_source/Tira/bvh.h's BVHAccel::SplitMethod.
type SplitMethod int

const (
	SplitMidpoint SplitMethod = iota
	SplitSAH
)

// TraverseMode selects how BVH.Intersect walks the tree: all three modes
// must agree on every hit, differing only in how the call stack is
// realized (spec section 4.1, "BVH traversal").
type TraverseMode int

const (
	TraverseRecursive TraverseMode = iota
	TraverseStack
	TraverseThreaded
)

// sahMaxSearch caps the number of candidate split positions scanned per
// axis when the leaf is larger than this, matching SAH_MAX_SEARCH.
const sahMaxSearch = 32

// BVHNode is a node of the flattened BVH tree. Leaf nodes have PrimCount >
// 0 and index Objects[FirstPrim:FirstPrim+PrimCount]; interior nodes have
// Left/Right child indices. HitIdx/MissIdx thread the tree for the
// stackless traversal mode: HitIdx is the node to visit next on a box hit
// of an interior node (always its left child; -1 on leaves), MissIdx is the
// node to visit on a box miss or after a leaf (the next sibling, or the
// nearest ancestor's sibling; -1 ends the walk).
type BVHNode struct {
	Bound                Bound3
	Left, Right          int
	FirstPrim, PrimCount int
	Height               int
	HitIdx, MissIdx      int
}

func (n *BVHNode) isLeaf() bool { return n.PrimCount > 0 }

// BVH is a binary bounding volume hierarchy accelerator over a flat object
// list, grounded on original_source/Tira/bvh.cpp's BVHAccel.
type BVH struct {
	Nodes   []BVHNode
	Objects []Object

	MaxObjs     int
	SplitMethod SplitMethod
	Mode        TraverseMode

	bound Bound3
}

// NewBVH builds a BVH over objects. maxObjs bounds the primitive count of a
// leaf node; method selects the split heuristic; mode selects the
// traversal realization used by Intersect.
func NewBVH(objects []Object, maxObjs int, method SplitMethod, mode TraverseMode) *BVH {
	b := &BVH{
		Objects:     append([]Object(nil), objects...),
		MaxObjs:     maxObjs,
		SplitMethod: method,
		Mode:        mode,
	}
	if len(b.Objects) == 0 {
		bvhLogger.Debug("NewBVH: empty object list, skipping build")
		return b
	}

	b.Nodes = make([]BVHNode, 0, len(b.Objects)*2-1)
	b.Nodes = append(b.Nodes, BVHNode{
		FirstPrim: 0, PrimCount: len(b.Objects),
		HitIdx: -1, MissIdx: -1,
	})
	b.updateNodeBound(0)
	b.subdivide(0)
	b.bound = b.Nodes[0].Bound
	bvhLogger.Infof("NewBVH: built %d nodes over %d objects (maxObjs=%d, split=%v)", len(b.Nodes), len(b.Objects), maxObjs, method)
	return b
}

// Bound implements Accelerator.
func (b *BVH) Bound() Bound3 { return b.bound }

func (b *BVH) updateNodeBound(idx int) {
	node := &b.Nodes[idx]
	bnd := EmptyBound3()
	for i := 0; i < node.PrimCount; i++ {
		bnd = bnd.Union(b.Objects[node.FirstPrim+i].Bound())
	}
	node.Bound = bnd
}

// sortedAxes returns the node extent's axes ordered from widest to
// narrowest, matching getSortedAxis.
func sortedAxes(extent types.Vec3) [3]int {
	ext := [3]float32{extent[0], extent[1], extent[2]}
	res := [3]int{0, 1, 2}
	if ext[2] > ext[1] {
		ext[2], ext[1] = ext[1], ext[2]
		res[2], res[1] = res[1], res[2]
	}
	if ext[1] > ext[0] {
		ext[1], ext[0] = ext[0], ext[1]
		res[1], res[0] = res[0], res[1]
	}
	if ext[2] > ext[1] {
		ext[2], ext[1] = ext[1], ext[2]
		res[2], res[1] = res[1], res[2]
	}
	return res
}

func (b *BVH) subdivide(idx int) {
	node := &b.Nodes[idx]
	if node.PrimCount <= b.MaxObjs {
		return
	}

	extent := node.Bound.Extent()
	axes := sortedAxes(extent)

	switch b.SplitMethod {
	case SplitSAH:
		b.subdivideSAH(idx, axes)
	default:
		b.subdivideMidpoint(idx, axes)
	}
}

func (b *BVH) subdivideMidpoint(idx int, axes [3]int) {
	node := b.Nodes[idx]
	extent := node.Bound.Extent()

	for _, axis := range axes {
		pivot := node.Bound.Min[axis] + extent[axis]*0.5

		i := node.FirstPrim
		j := i + node.PrimCount - 1
		for i <= j {
			if b.Objects[i].Center()[axis] < pivot {
				i++
			} else {
				b.Objects[i], b.Objects[j] = b.Objects[j], b.Objects[i]
				j--
			}
		}

		leftCount := i - node.FirstPrim
		if leftCount == 0 || leftCount == node.PrimCount {
			continue
		}

		b.makeChildren(idx, leftCount)
		return
	}
	// Every axis degenerated to an all-left or all-right split (e.g. every
	// centroid coincident): leave this node as an oversized leaf rather
	// than loop forever.
}

func (b *BVH) subdivideSAH(idx int, axes [3]int) {
	node := b.Nodes[idx]

	step := 1
	if node.PrimCount > sahMaxSearch {
		step = (node.PrimCount + sahMaxSearch - 1) / sahMaxSearch
	}

	bestAxis := axes[0]
	bestSAH := float32(3.4e38)
	bestLeftCount := step

	for _, axis := range axes {
		b.sortRange(node.FirstPrim, node.PrimCount, axis)

		for leftCount := step; leftCount < node.PrimCount; leftCount += step {
			leftBound := EmptyBound3()
			rightBound := EmptyBound3()
			for i := 0; i < node.PrimCount; i++ {
				obj := b.Objects[node.FirstPrim+i]
				if i < leftCount {
					leftBound = leftBound.Union(obj.Bound())
				} else {
					rightBound = rightBound.Union(obj.Bound())
				}
			}
			sah := leftBound.SurfaceArea()*float32(leftCount) + rightBound.SurfaceArea()*float32(node.PrimCount-leftCount)
			if sah < bestSAH {
				bestSAH = sah
				bestLeftCount = leftCount
				bestAxis = axis
			}
		}
	}

	b.sortRange(node.FirstPrim, node.PrimCount, bestAxis)
	b.makeChildren(idx, bestLeftCount)
}

func (b *BVH) sortRange(first, count, axis int) {
	slice := b.Objects[first : first+count]
	sort.Slice(slice, func(i, j int) bool {
		return slice[i].Center()[axis] < slice[j].Center()[axis]
	})
}

// makeChildren splits node idx's primitive range into [0,leftCount) /
// [leftCount,PrimCount), appends the two child nodes, wires the
// hit/miss-index threading, and recurses.
func (b *BVH) makeChildren(idx, leftCount int) {
	node := b.Nodes[idx]

	left := BVHNode{
		FirstPrim: node.FirstPrim, PrimCount: leftCount,
		Height: node.Height + 1, HitIdx: -1, MissIdx: -1,
	}
	right := BVHNode{
		FirstPrim: node.FirstPrim + leftCount, PrimCount: node.PrimCount - leftCount,
		Height: node.Height + 1, HitIdx: -1, MissIdx: -1,
	}

	leftIdx := len(b.Nodes)
	b.Nodes = append(b.Nodes, left)
	rightIdx := len(b.Nodes)
	b.Nodes = append(b.Nodes, right)

	b.Nodes[idx].Left = leftIdx
	b.Nodes[idx].Right = rightIdx
	b.Nodes[idx].PrimCount = 0
	b.Nodes[idx].HitIdx = leftIdx
	b.Nodes[leftIdx].MissIdx = rightIdx
	if b.Nodes[idx].MissIdx >= 0 {
		b.Nodes[rightIdx].MissIdx = b.Nodes[idx].MissIdx
	}

	b.updateNodeBound(leftIdx)
	b.updateNodeBound(rightIdx)

	b.subdivide(leftIdx)
	b.subdivide(rightIdx)
}

// Intersect implements Accelerator, dispatching to the traversal mode the
// BVH was built with. All three modes must agree on every returned hit;
// only the stack mode orders children by box entry distance, the recursive
// and threaded modes always visit the left child first.
func (b *BVH) Intersect(ray types.Ray, isect *Intersection) bool {
	if len(b.Nodes) == 0 {
		return false
	}
	if _, ok := b.Bound().Intersect(ray, ray.TMax); !ok {
		return false
	}

	switch b.Mode {
	case TraverseStack:
		return b.intersectStack(ray, isect)
	case TraverseThreaded:
		return b.intersectThreaded(ray, isect)
	default:
		return b.intersectRecursive(ray, isect, 0)
	}
}

func (b *BVH) intersectRecursive(ray types.Ray, isect *Intersection, idx int) bool {
	node := &b.Nodes[idx]
	if _, ok := node.Bound.Intersect(ray, isect.Distance); !ok {
		return false
	}

	if node.isLeaf() {
		hit := false
		for i := 0; i < node.PrimCount; i++ {
			if b.Objects[node.FirstPrim+i].Intersect(ray, isect) {
				hit = true
				if ray.Shadow {
					return true
				}
			}
		}
		return hit
	}

	hitLeft := b.intersectRecursive(ray, isect, node.Left)
	if hitLeft && ray.Shadow {
		return true
	}
	hitRight := b.intersectRecursive(ray, isect, node.Right)
	return hitLeft || hitRight
}

// intersectStack walks the tree with an explicit node stack, visiting the
// nearer child first (original_source/Tira/bvh.cpp's
// TRAVERSE_ITERATIVE_STACK branch).
func (b *BVH) intersectStack(ray types.Ray, isect *Intersection) bool {
	var stack [64]int
	ptr := 0
	stack[ptr] = 0
	ptr++

	hitAny := false
	for ptr > 0 {
		ptr--
		idx := stack[ptr]
		node := &b.Nodes[idx]

		if node.isLeaf() {
			for i := 0; i < node.PrimCount; i++ {
				if b.Objects[node.FirstPrim+i].Intersect(ray, isect) {
					hitAny = true
					if ray.Shadow {
						return true
					}
				}
			}
			continue
		}

		c0, c1 := node.Left, node.Right
		dist0, ok0 := b.Nodes[c0].Bound.Intersect(ray, isect.Distance)
		dist1, ok1 := b.Nodes[c1].Bound.Intersect(ray, isect.Distance)
		if !ok0 {
			dist0 = 3.4e38
		}
		if !ok1 {
			dist1 = 3.4e38
		}
		if dist0 > dist1 {
			c0, c1 = c1, c0
			ok0, ok1 = ok1, ok0
		}
		// Push the farther child first so the nearer one is popped next.
		if ok1 {
			stack[ptr] = c1
			ptr++
		}
		if ok0 {
			stack[ptr] = c0
			ptr++
		}
	}
	return hitAny
}

// intersectThreaded walks the tree using only HitIdx/MissIdx, the mode a
// GPU kernel would use since it needs no call stack or node stack
// (original_source/Tira/bvh.cpp's non-stack TRAVERSE_ITERATIVE branch).
func (b *BVH) intersectThreaded(ray types.Ray, isect *Intersection) bool {
	hitAny := false
	idx := 0
	for idx >= 0 {
		node := &b.Nodes[idx]
		if _, ok := node.Bound.Intersect(ray, isect.Distance); !ok {
			idx = node.MissIdx
			continue
		}

		if node.isLeaf() {
			for i := 0; i < node.PrimCount; i++ {
				if b.Objects[node.FirstPrim+i].Intersect(ray, isect) {
					hitAny = true
					if ray.Shadow {
						return true
					}
				}
			}
			idx = node.MissIdx
		} else {
			idx = node.HitIdx
		}
	}
	return hitAny
}
