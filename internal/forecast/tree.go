package forecast

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Node is one node of a flattened regression tree. Leaves carry Value only.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// Tree is a regression tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []Node
}

func (t Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeGrower struct {
	x           [][]float64
	y           []float64
	maxDepth    int
	minLeaf     int
	maxFeatures int
	rng         *rand.Rand
	nodes       []Node
}

func (g *treeGrower) grow(idx []int) Tree {
	g.nodes = g.nodes[:0]
	g.build(idx, 0)
	nodes := make([]Node, len(g.nodes))
	copy(nodes, g.nodes)
	return Tree{Nodes: nodes}
}

func (g *treeGrower) build(idx []int, depth int) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, Node{})

	ys := make([]float64, len(idx))
	for k, i := range idx {
		ys[k] = g.y[i]
	}
	mean := stat.Mean(ys, nil)

	if (g.maxDepth > 0 && depth >= g.maxDepth) || len(idx) < 2*g.minLeaf || constant(ys) {
		g.nodes[id] = Node{Leaf: true, Value: mean}
		return id
	}

	feature, threshold, ok := g.bestSplit(idx)
	if !ok {
		g.nodes[id] = Node{Leaf: true, Value: mean}
		return id
	}

	var left, right []int
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: mean}
	return id
}

// bestSplit finds the threshold with the largest reduction in squared error.
func (g *treeGrower) bestSplit(idx []int) (int, float64, bool) {
	n := float64(len(idx))
	var sum, sumSq float64
	for _, i := range idx {
		sum += g.y[i]
		sumSq += g.y[i] * g.y[i]
	}
	parent := sumSq - sum*sum/n

	bestFeature, bestThreshold, bestGain := -1, 0.0, 1e-12
	sorted := make([]int, len(idx))
	for _, f := range g.candidateFeatures() {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool { return g.x[sorted[a]][f] < g.x[sorted[b]][f] })

		var ls, lss float64
		for k := 0; k < len(sorted)-1; k++ {
			yi := g.y[sorted[k]]
			ls += yi
			lss += yi * yi
			nl := k + 1
			nr := len(sorted) - nl
			if nl < g.minLeaf || nr < g.minLeaf {
				continue
			}
			v, next := g.x[sorted[k]][f], g.x[sorted[k+1]][f]
			if v == next {
				continue
			}
			rs := sum - ls
			sse := (lss - ls*ls/float64(nl)) + ((sumSq - lss) - rs*rs/float64(nr))
			if gain := parent - sse; gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, (v+next)/2, gain
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (g *treeGrower) candidateFeatures() []int {
	width := len(g.x[0])
	if g.maxFeatures <= 0 || g.maxFeatures >= width {
		all := make([]int, width)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := g.rng.Perm(width)[:g.maxFeatures]
	sort.Ints(picked)
	return picked
}

func constant(ys []float64) bool {
	for _, v := range ys[1:] {
		if v != ys[0] {
			return false
		}
	}
	return true
}
