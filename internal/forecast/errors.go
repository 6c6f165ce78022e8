package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactUnavailable is matched by every ArtifactError.
	ErrArtifactUnavailable = errors.New("model artifact unavailable")
	// ErrEmptyTrainingSet is returned when there is nothing to fit or evaluate on.
	ErrEmptyTrainingSet = errors.New("empty training set")
)

// ArtifactError reports a model artifact that is missing, unreadable or corrupt.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("model artifact %q unavailable: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

func (e *ArtifactError) Is(target error) bool {
	return target == ErrArtifactUnavailable
}
