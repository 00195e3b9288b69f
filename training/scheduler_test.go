package training

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]Policy{
		"step":   StepPolicy,
		"Step":   StepPolicy,
		"cosine": CosinePolicy,
		"COSINE": CosinePolicy,
	} {
		got, err := ParsePolicy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParsePolicyRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "exponential", "plateau"} {
		_, err := ParsePolicy(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrUnsupportedPolicy), name)
	}
}

func TestNewSchedulerRejectsUnknownPolicy(t *testing.T) {
	_, err := NewScheduler(Policy(42), 10, 30, 0.1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPolicy))
}

func TestStepLRDecaysPiecewise(t *testing.T) {
	s := NewStepLR(10, 0.5)
	base := 0.1

	tests := []struct {
		epoch int
		want  float64
	}{
		{0, 0.1},
		{9, 0.1},
		{10, 0.05},
		{19, 0.05},
		{20, 0.025},
		{30, 0.0125},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, s.LR(tt.epoch, base), 1e-12, "epoch %d", tt.epoch)
	}
}

func TestStepLRDefaults(t *testing.T) {
	s := NewStepLR(0, 0)
	assert.Equal(t, 30, s.StepSize)
	assert.InDelta(t, 0.1, s.Gamma, 1e-12)
}

func TestCosineAnnealingEndpoints(t *testing.T) {
	s := NewCosineAnnealingLR(100, 0.001)
	base := 0.1

	assert.InDelta(t, base, s.LR(0, base), 1e-12)
	assert.InDelta(t, s.EtaMin, s.LR(100, base), 1e-12)
	// Past TMax the rate pins at the floor.
	assert.InDelta(t, s.EtaMin, s.LR(150, base), 1e-12)

	mid := s.LR(50, base)
	assert.InDelta(t, (base+s.EtaMin)/2, mid, 1e-9)
}

func TestCosineAnnealingMonotonicallyDecreases(t *testing.T) {
	s := NewCosineAnnealingLR(50, 0)
	base := 0.1

	prev := math.Inf(1)
	for epoch := 0; epoch <= 50; epoch++ {
		lr := s.LR(epoch, base)
		assert.LessOrEqual(t, lr, prev, "epoch %d", epoch)
		prev = lr
	}
}
