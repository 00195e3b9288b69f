package training

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedPolicy is returned when a scheduler policy outside the
// supported set is requested. It fails at construction time.
var ErrUnsupportedPolicy = errors.New("unsupported scheduler policy")

// LRScheduler defines the interface for learning rate scheduling strategies.
// Schedulers are pure functions of the completed epoch count; the training
// loop advances them by applying the returned rate to the optimizer exactly
// once per training phase per epoch.
type LRScheduler interface {
	// LR returns the learning rate after `epoch` completed training epochs.
	LR(epoch int, baseLR float64) float64

	// Name returns the scheduler name for logging.
	Name() string
}

// Policy enumerates the supported scheduling policies.
type Policy int

const (
	StepPolicy Policy = iota
	CosinePolicy
)

func (p Policy) String() string {
	switch p {
	case StepPolicy:
		return "step"
	case CosinePolicy:
		return "cosine"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a case-insensitive policy name to its enum value.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "step":
		return StepPolicy, nil
	case "cosine":
		return CosinePolicy, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedPolicy, "%q", name)
	}
}

// NewScheduler builds a scheduler for the given policy. step decays the rate
// by gamma every stepSize epochs; cosine anneals from the optimizer's base
// rate down to lrMin over numEpochs epochs.
func NewScheduler(policy Policy, numEpochs, stepSize int, gamma, lrMin float64) (LRScheduler, error) {
	switch policy {
	case StepPolicy:
		return NewStepLR(stepSize, gamma), nil
	case CosinePolicy:
		return NewCosineAnnealingLR(numEpochs, lrMin), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedPolicy, "%d", policy)
	}
}

// StepLR reduces the learning rate by a factor every StepSize epochs.
type StepLR struct {
	StepSize int     // Epochs between reductions
	Gamma    float64 // Multiplicative decay factor
}

// NewStepLR creates a step learning rate scheduler.
func NewStepLR(stepSize int, gamma float64) *StepLR {
	if stepSize <= 0 {
		stepSize = 30
	}
	if gamma <= 0 || gamma >= 1 {
		gamma = 0.1
	}
	return &StepLR{
		StepSize: stepSize,
		Gamma:    gamma,
	}
}

func (s *StepLR) LR(epoch int, baseLR float64) float64 {
	times := epoch / s.StepSize
	return baseLR * math.Pow(s.Gamma, float64(times))
}

func (s *StepLR) Name() string {
	return "StepLR"
}

// CosineAnnealingLR follows a cosine curve from the base rate to EtaMin over
// TMax epochs.
type CosineAnnealingLR struct {
	TMax   int     // Total number of epochs
	EtaMin float64 // Minimum learning rate
}

// NewCosineAnnealingLR creates a cosine annealing scheduler.
func NewCosineAnnealingLR(tMax int, etaMin float64) *CosineAnnealingLR {
	if tMax <= 0 {
		tMax = 100
	}
	if etaMin < 0 {
		etaMin = 0
	}
	return &CosineAnnealingLR{
		TMax:   tMax,
		EtaMin: etaMin,
	}
}

func (s *CosineAnnealingLR) LR(epoch int, baseLR float64) float64 {
	if epoch >= s.TMax {
		return s.EtaMin
	}
	return s.EtaMin + (baseLR-s.EtaMin)*(1+math.Cos(math.Pi*float64(epoch)/float64(s.TMax)))/2
}

func (s *CosineAnnealingLR) Name() string {
	return "CosineAnnealingLR"
}
