package model

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyhwong/tao-classifier/tensor"
)

func randomInput(t *testing.T, shape []int) *tensor.Tensor {
	t.Helper()
	in, err := tensor.Random(shape, rand.New(rand.NewSource(3)), tensor.CPU)
	require.NoError(t, err)
	return in
}

func TestParseBackbone(t *testing.T) {
	for name, want := range map[string]Backbone{
		"linear":   LinearBackbone,
		"Linear":   LinearBackbone,
		"mlp":      MLPBackbone,
		"mlp-deep": DeepMLPBackbone,
		"MLP-Deep": DeepMLPBackbone,
	} {
		got, err := ParseBackbone(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParseBackboneRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "resnet", "cnn"} {
		_, err := ParseBackbone(name)
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrUnknownBackbone), name)
	}
}

func TestLinearForwardShape(t *testing.T) {
	l, err := NewLinear(4, 3, true, rand.New(rand.NewSource(1)), tensor.CPU)
	require.NoError(t, err)

	out, err := l.Forward(randomInput(t, []int{5, 4}))
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3}, out.Shape)
}

func TestLinearWithoutBiasHasOneParameter(t *testing.T) {
	l, err := NewLinear(4, 3, false, rand.New(rand.NewSource(1)), tensor.CPU)
	require.NoError(t, err)

	assert.Len(t, l.Parameters(), 1)
	assert.Equal(t, "weight", l.NamedParameters()[0].Name)
}

func TestFlattenCollapsesTrailingDims(t *testing.T) {
	f := NewFlatten()

	out, err := f.Forward(randomInput(t, []int{2, 3, 4, 4}))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 48}, out.Shape)
}

func TestNewClassifierShapes(t *testing.T) {
	for _, backbone := range []Backbone{LinearBackbone, MLPBackbone, DeepMLPBackbone} {
		m, err := NewClassifier(backbone, 3*8*8, 5, 42, tensor.CPU)
		require.NoError(t, err, backbone.String())

		out, err := m.Forward(randomInput(t, []int{2, 3, 8, 8}))
		require.NoError(t, err, backbone.String())
		assert.Equal(t, []int{2, 5}, out.Shape, backbone.String())
	}
}

func TestNewClassifierDeterministicForSeed(t *testing.T) {
	build := func() []float32 {
		m, err := NewClassifier(MLPBackbone, 16, 3, 7, tensor.CPU)
		require.NoError(t, err)
		data, err := m.Parameters()[0].GetFloat32Data()
		require.NoError(t, err)
		return append([]float32(nil), data...)
	}
	assert.Equal(t, build(), build())
}

func TestNewClassifierRejectsBadArguments(t *testing.T) {
	_, err := NewClassifier(MLPBackbone, 0, 3, 0, tensor.CPU)
	assert.Error(t, err)

	_, err = NewClassifier(MLPBackbone, 16, 0, 0, tensor.CPU)
	assert.Error(t, err)

	_, err = NewClassifier(Backbone(12), 16, 3, 0, tensor.CPU)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBackbone))
}

func TestSequentialNamedParameters(t *testing.T) {
	m, err := NewClassifier(MLPBackbone, 16, 3, 0, tensor.CPU)
	require.NoError(t, err)

	var names []string
	for _, np := range m.NamedParameters() {
		names = append(names, np.Name)
	}
	assert.Equal(t, []string{"1.weight", "1.bias", "3.weight", "3.bias"}, names)
}

func TestTrainEvalToggle(t *testing.T) {
	m, err := NewClassifier(LinearBackbone, 4, 2, 0, tensor.CPU)
	require.NoError(t, err)

	m.Train()
	assert.True(t, m.IsTraining())
	m.Eval()
	assert.False(t, m.IsTraining())
}
