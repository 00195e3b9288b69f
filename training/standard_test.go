package training

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStandard(t *testing.T) {
	for name, want := range map[string]Standard{
		"loss": ByLoss,
		"LOSS": ByLoss,
		"acc":  ByAccuracy,
		"Acc":  ByAccuracy,
	} {
		got, err := ParseStandard(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParseStandardRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "accuracy", "f1"} {
		_, err := ParseStandard(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrInvalidStandard), name)
	}
}

func TestStandardImproves(t *testing.T) {
	assert.True(t, ByLoss.improves(0.4, 0.5))
	assert.False(t, ByLoss.improves(0.5, 0.5))
	assert.False(t, ByLoss.improves(0.6, 0.5))

	assert.True(t, ByAccuracy.improves(0.9, 0.8))
	assert.False(t, ByAccuracy.improves(0.8, 0.8))
	assert.False(t, ByAccuracy.improves(0.7, 0.8))
}
