package model

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/wyhwong/tao-classifier/tensor"
)

// ErrUnknownBackbone is returned when a backbone name outside the supported
// set is requested.
var ErrUnknownBackbone = errors.New("unknown backbone")

// Backbone enumerates the supported classifier architectures.
type Backbone int

const (
	// LinearBackbone is a single fully connected layer over flattened input.
	LinearBackbone Backbone = iota
	// MLPBackbone is a two-layer perceptron with a ReLU hidden layer.
	MLPBackbone
	// DeepMLPBackbone stacks three hidden layers with ReLU activations.
	DeepMLPBackbone
)

func (b Backbone) String() string {
	switch b {
	case LinearBackbone:
		return "linear"
	case MLPBackbone:
		return "mlp"
	case DeepMLPBackbone:
		return "mlp-deep"
	default:
		return "unknown"
	}
}

// ParseBackbone maps a case-insensitive backbone name to its enum value.
func ParseBackbone(name string) (Backbone, error) {
	switch strings.ToLower(name) {
	case "linear":
		return LinearBackbone, nil
	case "mlp":
		return MLPBackbone, nil
	case "mlp-deep":
		return DeepMLPBackbone, nil
	default:
		return 0, errors.Wrapf(ErrUnknownBackbone, "%q", name)
	}
}

// hidden layer widths per backbone
var mlpHidden = []int{256}
var deepMLPHidden = []int{512, 256, 128}

// NewClassifier assembles a classifier for the given backbone, input feature
// count and class count. Inputs with more than one feature dimension are
// flattened first.
func NewClassifier(backbone Backbone, inputSize, numClasses int, seed int64, device tensor.Device) (Module, error) {
	if inputSize <= 0 {
		return nil, errors.Errorf("input size must be positive, got %d", inputSize)
	}
	if numClasses <= 0 {
		return nil, errors.Errorf("class count must be positive, got %d", numClasses)
	}

	rng := rand.New(rand.NewSource(seed))

	var hidden []int
	switch backbone {
	case LinearBackbone:
		hidden = nil
	case MLPBackbone:
		hidden = mlpHidden
	case DeepMLPBackbone:
		hidden = deepMLPHidden
	default:
		return nil, errors.Wrapf(ErrUnknownBackbone, "%d", backbone)
	}

	layers := []Module{NewFlatten()}
	in := inputSize
	for _, width := range hidden {
		linear, err := NewLinear(in, width, true, rng, device)
		if err != nil {
			return nil, err
		}
		layers = append(layers, linear, NewReLU())
		in = width
	}

	head, err := NewLinear(in, numClasses, true, rng, device)
	if err != nil {
		return nil, err
	}
	layers = append(layers, head)

	return NewSequential(layers...), nil
}
