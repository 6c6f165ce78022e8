package forecast

import (
	"fmt"
	"math"
	"math/rand"
)

// Split holds row indices of the train and test partitions.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles n row indices with a seeded source and holds out
// ceil(testRatio*n) of them. The same n, ratio and seed always give the same split.
func TrainTestSplit(n int, testRatio float64, seed int64) (Split, error) {
	if testRatio <= 0 || testRatio >= 1 {
		return Split{}, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	if n == 0 {
		return Split{}, ErrEmptyTrainingSet
	}
	nTest := int(math.Ceil(testRatio * float64(n)))
	if nTest >= n {
		return Split{}, fmt.Errorf("%w: %d rows leave nothing to train on", ErrEmptyTrainingSet, n)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return Split{Test: perm[:nTest], Train: perm[nTest:]}, nil
}
