package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrees = 100
	DefaultSeed  = 42
)

// RandomForest fits a bagged ensemble of regression trees.
// Each tree draws its bootstrap sample from its own source seeded with Seed+i,
// so the result does not depend on scheduling.
type RandomForest struct {
	Trees          int
	MaxDepth       int // 0 grows until leaves are pure or too small
	MinSamplesLeaf int
	MaxFeatures    int // 0 considers every column at each split
	Seed           int64
	Workers        int
	Progress       ProgressFunc
}

// Forest is a fitted RandomForest.
type Forest struct {
	Trees    []Tree
	Features int
}

// Fit implements Fitter.
func (rf RandomForest) Fit(ctx context.Context, x [][]float64, y []float64) (Regressor, error) {
	if len(x) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("design matrix has %d rows but %d labels", len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), width)
		}
	}

	trees := rf.Trees
	if trees <= 0 {
		trees = DefaultTrees
	}
	minLeaf := rf.MinSamplesLeaf
	if minLeaf <= 0 {
		minLeaf = 1
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	forest := &Forest{Trees: make([]Tree, trees), Features: width}

	var (
		mu   sync.Mutex
		done int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < trees; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(rf.Seed + int64(i)))
			sample := make([]int, len(x))
			for k := range sample {
				sample[k] = rng.Intn(len(x))
			}
			grower := &treeGrower{
				x:           x,
				y:           y,
				maxDepth:    rf.MaxDepth,
				minLeaf:     minLeaf,
				maxFeatures: rf.MaxFeatures,
				rng:         rng,
			}
			forest.Trees[i] = grower.grow(sample)

			if rf.Progress != nil {
				mu.Lock()
				done++
				rf.Progress("fit", done, trees)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fit forest: %w", err)
	}
	return forest, nil
}

// Width implements Regressor.
func (f *Forest) Width() int {
	return f.Features
}

// Validate checks the structure of a decoded forest: every tree is non-empty,
// split features are in range and children come after their parent, so
// prediction always terminates inside the node slice.
func (f *Forest) Validate() error {
	if f.Features <= 0 {
		return fmt.Errorf("forest has %d input features", f.Features)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
					return fmt.Errorf("tree %d node %d has non-finite value", ti, ni)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= f.Features {
				return fmt.Errorf("tree %d node %d splits on feature %d of %d", ti, ni, n.Feature, f.Features)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("tree %d node %d has invalid child %d", ti, ni, child)
				}
			}
		}
	}
	return nil
}

// Predict averages the trees' predictions for each row.
func (f *Forest) Predict(x [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != f.Features {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), f.Features)
		}
		var sum float64
		for _, t := range f.Trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}
