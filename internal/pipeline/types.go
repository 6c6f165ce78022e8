package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the current state of a training run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// TrainingRun tracks a single load, build, train and publish execution
type TrainingRun struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Status       RunStatus  `db:"status" json:"status"`
	WindowMode   string     `db:"window_mode" json:"window_mode"`
	Fingerprint  string     `db:"fingerprint" json:"fingerprint"`
	Transactions int        `db:"transactions" json:"transactions"`
	FeatureRows  int        `db:"feature_rows" json:"feature_rows"`
	Uncovered    int        `db:"uncovered" json:"uncovered"`
	TrainRows    int        `db:"train_rows" json:"train_rows"`
	TestRows     int        `db:"test_rows" json:"test_rows"`
	MAE          *float64   `db:"mae" json:"mae,omitempty"`
	ModelVersion string     `db:"model_version" json:"model_version"`
	ArtifactPath string     `db:"artifact_path" json:"artifact_path"`
	ErrorMessage string     `db:"error_message" json:"error_message,omitempty"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r *TrainingRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunRecorder persists training run bookkeeping.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *TrainingRun) error
	UpdateRun(ctx context.Context, run *TrainingRun) error
}

// Config holds where a run writes its outputs
type Config struct {
	ArtifactPath string // local model artifact path
	RemoteKey    string // object key for publishing; empty disables publishing
}
