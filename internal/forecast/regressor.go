package forecast

import "context"

// Regressor maps feature vectors to predicted quantities.
// Implementations are immutable after fitting and safe for concurrent use.
type Regressor interface {
	Predict(x [][]float64) ([]float64, error)
	Width() int
}

// Fitter trains a Regressor on a design matrix and its labels.
type Fitter interface {
	Fit(ctx context.Context, x [][]float64, y []float64) (Regressor, error)
}

// ProgressFunc receives coarse progress; done counts completed units of total.
type ProgressFunc func(stage string, done, total int)
