// Package checkpoints persists weight snapshots together with training state
// and metadata.
package checkpoints

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/wyhwong/tao-classifier/tensor"
	"github.com/wyhwong/tao-classifier/training"
)

// Checkpoint represents a persisted model state: weights plus the training
// context they were taken in.
type Checkpoint struct {
	Weights       []WeightTensor     `json:"weights"`
	TrainingState TrainingState      `json:"training_state"`
	Metadata      CheckpointMetadata `json:"metadata"`
}

// WeightTensor represents one named parameter tensor.
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// TrainingState captures the run the checkpoint came from.
type TrainingState struct {
	Epochs       int     `json:"epochs"`
	Standard     string  `json:"standard"`
	BestRecord   float64 `json:"best_record,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
}

// CheckpointMetadata contains checkpoint metadata.
type CheckpointMetadata struct {
	RunID       string    `json:"run_id"`
	Version     string    `json:"version"`
	Framework   string    `json:"framework"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description,omitempty"`
}

// NewMetadata builds checkpoint metadata with a fresh run ID.
func NewMetadata(description string) CheckpointMetadata {
	return CheckpointMetadata{
		RunID:       uuid.NewString(),
		Version:     "1.0.0",
		Framework:   "tao-classifier",
		CreatedAt:   time.Now().UTC(),
		Description: description,
	}
}

// FromSnapshot converts a weight snapshot into a checkpoint.
func FromSnapshot(snapshot *training.Snapshot, state TrainingState, meta CheckpointMetadata) (*Checkpoint, error) {
	var weights []WeightTensor
	for _, name := range snapshot.Names() {
		t := snapshot.Get(name)
		data, err := t.GetFloat32Data()
		if err != nil {
			return nil, errors.Wrapf(err, "weight %s", name)
		}
		weights = append(weights, WeightTensor{
			Name:  name,
			Shape: t.Shape,
			Data:  data,
		})
	}

	return &Checkpoint{
		Weights:       weights,
		TrainingState: state,
		Metadata:      meta,
	}, nil
}

// Save writes the checkpoint to path as indented JSON.
func (c *Checkpoint) Save(path string) error {
	if c.Metadata.Framework == "" {
		c.Metadata = NewMetadata("")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create checkpoint file")
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	return nil
}

// Load reads a checkpoint from path.
func Load(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint file")
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, errors.Wrap(err, "decode checkpoint")
	}
	return &checkpoint, nil
}

// WeightTensors rebuilds the checkpoint's weights as tensors keyed by name.
func (c *Checkpoint) WeightTensors(device tensor.Device) (map[string]*tensor.Tensor, error) {
	weights := make(map[string]*tensor.Tensor, len(c.Weights))
	for _, w := range c.Weights {
		data := make([]float32, len(w.Data))
		copy(data, w.Data)
		t, err := tensor.NewTensor(w.Shape, tensor.Float32, device, data)
		if err != nil {
			return nil, errors.Wrapf(err, "weight %s", w.Name)
		}
		weights[w.Name] = t
	}
	return weights, nil
}
