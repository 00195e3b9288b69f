// Package optimizer provides gradient-based parameter update strategies and
// a factory keyed by a closed algorithm enumeration.
package optimizer

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/wyhwong/tao-classifier/tensor"
)

// ErrUnsupportedAlgorithm is returned when an optimizer name outside the
// supported set is requested. It fails at construction time, before any
// optimizer object exists.
var ErrUnsupportedAlgorithm = errors.New("unsupported optimizer algorithm")

// Optimizer defines the methods that all optimizers must implement.
type Optimizer interface {
	Step() error      // Updates model parameters based on gradients
	ZeroGrad()        // Resets gradients to zero for all parameters
	GetLR() float64   // Gets current learning rate
	SetLR(lr float64) // Sets learning rate
}

// Algorithm enumerates the supported update strategies.
type Algorithm int

const (
	SGD Algorithm = iota
	RMSProp
	Adam
	AdamW
)

func (a Algorithm) String() string {
	switch a {
	case SGD:
		return "sgd"
	case RMSProp:
		return "rmsprop"
	case Adam:
		return "adam"
	case AdamW:
		return "adamw"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a case-insensitive algorithm name to its enum value.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "sgd":
		return SGD, nil
	case "rmsprop":
		return RMSProp, nil
	case "adam":
		return Adam, nil
	case "adamw":
		return AdamW, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedAlgorithm, "%q", name)
	}
}

// Config holds the hyperparameters recognized across algorithms. Each
// algorithm consumes its own subset: sgd uses LR/Momentum/WeightDecay,
// rmsprop adds Alpha, adam and adamw use LR/Betas/WeightDecay. Unused fields
// are ignored, not validated.
type Config struct {
	LR          float64
	Momentum    float64
	WeightDecay float64
	Alpha       float64
	Betas       [2]float64
}

// DefaultConfig mirrors the usual classifier-training defaults.
func DefaultConfig() Config {
	return Config{
		LR:       1e-3,
		Momentum: 0.9,
		Alpha:    0.99,
		Betas:    [2]float64{0.9, 0.999},
	}
}

// New builds a live optimizer bound to the given trainable parameters.
func New(params []*tensor.Tensor, algo Algorithm, cfg Config) (Optimizer, error) {
	switch algo {
	case SGD:
		return NewSGD(params, cfg.LR, cfg.Momentum, cfg.WeightDecay), nil
	case RMSProp:
		return NewRMSProp(params, cfg.LR, cfg.Momentum, cfg.WeightDecay, cfg.Alpha), nil
	case Adam:
		return NewAdam(params, cfg.LR, cfg.Betas[0], cfg.Betas[1], cfg.WeightDecay), nil
	case AdamW:
		return NewAdamW(params, cfg.LR, cfg.Betas[0], cfg.Betas[1], cfg.WeightDecay), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "%d", algo)
	}
}

// gradSlices returns the parameter and gradient data for params that have an
// accumulated gradient; parameters without gradients are skipped.
func gradSlices(param *tensor.Tensor) (p, g []float32, ok bool) {
	if !param.RequiresGrad() || param.Grad() == nil {
		return nil, nil, false
	}
	pd, err := param.GetFloat32Data()
	if err != nil {
		return nil, nil, false
	}
	gd, err := param.Grad().GetFloat32Data()
	if err != nil {
		return nil, nil, false
	}
	return pd, gd, true
}
