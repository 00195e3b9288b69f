package training

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidStandard is returned when a selection standard outside the
// supported set is requested. It fails before any epoch runs.
var ErrInvalidStandard = errors.New("invalid selection standard")

// Phase identifies the two halves of an epoch. Train enables gradient
// computation and parameter updates; Validation disables both.
type Phase int

const (
	Train Phase = iota
	Validation
)

func (p Phase) String() string {
	switch p {
	case Train:
		return "train"
	case Validation:
		return "val"
	default:
		return "unknown"
	}
}

// phaseOrder is the fixed order phases run within an epoch.
var phaseOrder = []Phase{Train, Validation}

// Standard is the metric used to decide which epoch's weights are best.
// ByLoss improves when strictly lower; ByAccuracy when strictly higher.
type Standard int

const (
	ByLoss Standard = iota
	ByAccuracy
)

func (s Standard) String() string {
	switch s {
	case ByLoss:
		return "loss"
	case ByAccuracy:
		return "acc"
	default:
		return "unknown"
	}
}

// ParseStandard maps a case-insensitive standard name to its enum value.
func ParseStandard(name string) (Standard, error) {
	switch strings.ToLower(name) {
	case "loss":
		return ByLoss, nil
	case "acc":
		return ByAccuracy, nil
	default:
		return 0, errors.Wrapf(ErrInvalidStandard, "%q", name)
	}
}

// improves reports whether candidate strictly beats best under the standard.
// Ties never improve.
func (s Standard) improves(candidate, best float64) bool {
	if s == ByLoss {
		return candidate < best
	}
	return candidate > best
}
