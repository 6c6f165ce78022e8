package forecast

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

const (
	artifactMagic = "INVFCAST"
	// FormatVersion is bumped whenever the envelope layout changes.
	FormatVersion uint16 = 1
)

func init() {
	gob.Register(&Forest{})
}

type envelope struct {
	Schema      features.Descriptor
	Fingerprint string
	Version     string
	TrainedAt   time.Time
	Evaluation  Evaluation
	Regressor   Regressor
}

// WriteArtifact encodes m to w.
func WriteArtifact(w io.Writer, m *Model) error {
	if m == nil || m.Regressor == nil {
		return fmt.Errorf("cannot write artifact for an untrained model")
	}
	if _, err := io.WriteString(w, artifactMagic); err != nil {
		return fmt.Errorf("failed to write artifact header: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, FormatVersion); err != nil {
		return fmt.Errorf("failed to write artifact header: %w", err)
	}
	env := envelope{
		Schema:      m.Schema.Descriptor(),
		Fingerprint: m.Schema.Fingerprint(),
		Version:     m.Version,
		TrainedAt:   m.TrainedAt,
		Evaluation:  m.Evaluation,
		Regressor:   m.Regressor,
	}
	if err := gob.NewEncoder(w).Encode(&env); err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	return nil
}

// SaveArtifact writes m to path atomically, creating parent directories.
func SaveArtifact(path string, m *Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".artifact-*")
	if err != nil {
		return fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := WriteArtifact(bw, m); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// ReadArtifact decodes a model from r and checks it against the expected schema.
// Decoding failures are ArtifactErrors naming source; a schema difference is a
// SchemaMismatchError.
func ReadArtifact(r io.Reader, source string, expected features.Schema) (*Model, error) {
	header := make([]byte, len(artifactMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("read header: %w", err)}
	}
	if !bytes.Equal(header, []byte(artifactMagic)) {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("not a model artifact")}
	}
	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("read format version: %w", err)}
	}
	if version != FormatVersion {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("unsupported format version %d", version)}
	}

	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("decode: %w", err)}
	}
	if env.Regressor == nil {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("artifact holds no regressor")}
	}
	schema, err := features.FromDescriptor(env.Schema)
	if err != nil {
		return nil, &ArtifactError{Path: source, Err: err}
	}
	if schema.Fingerprint() != env.Fingerprint {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("schema fingerprint does not match its columns")}
	}
	if v, ok := env.Regressor.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, &ArtifactError{Path: source, Err: fmt.Errorf("corrupt regressor: %w", err)}
		}
	}
	if env.Regressor.Width() != schema.Width() {
		return nil, &ArtifactError{Path: source, Err: fmt.Errorf("regressor expects %d inputs, schema has %d", env.Regressor.Width(), schema.Width())}
	}
	if err := expected.Check(schema); err != nil {
		return nil, err
	}

	return &Model{
		Version:    env.Version,
		TrainedAt:  env.TrainedAt,
		Schema:     schema,
		Regressor:  env.Regressor,
		Evaluation: env.Evaluation,
	}, nil
}

// LoadArtifact reads the model stored at path.
func LoadArtifact(path string, expected features.Schema) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	defer f.Close()
	return ReadArtifact(bufio.NewReader(f), path, expected)
}
