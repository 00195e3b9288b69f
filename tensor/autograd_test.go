package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackwardRequiresScalar(t *testing.T) {
	a := mustTensor(t, []int{2}, []float32{1, 2})
	a.SetRequiresGrad(true)

	err := a.Backward()
	assert.Error(t, err)
}

func TestAddBackward(t *testing.T) {
	a := mustTensor(t, []int{1}, []float32{2})
	b := mustTensor(t, []int{1}, []float32{3})
	a.SetRequiresGrad(true)
	b.SetRequiresGrad(true)

	out := AddAutograd(a, b)
	require.NoError(t, out.Backward())

	require.NotNil(t, a.Grad())
	require.NotNil(t, b.Grad())
	assert.Equal(t, []float32{1}, a.Grad().Data.([]float32))
	assert.Equal(t, []float32{1}, b.Grad().Data.([]float32))
}

func TestAddBackwardReducesBiasGradient(t *testing.T) {
	// [2,1] + [1] broadcast: the bias gradient is the sum over the batch.
	x := mustTensor(t, []int{2, 1}, []float32{1, 2})
	bias := mustTensor(t, []int{1}, []float32{0})
	bias.SetRequiresGrad(true)

	sum := AddAutograd(x, bias)
	ones := mustTensor(t, []int{1, 2}, []float32{1, 1})
	total := MatMulAutograd(ones, sum)

	require.NoError(t, total.Backward())
	require.NotNil(t, bias.Grad())
	assert.Equal(t, []float32{2}, bias.Grad().Data.([]float32))
}

func TestMatMulBackward(t *testing.T) {
	a := mustTensor(t, []int{1, 2}, []float32{3, 4})
	b := mustTensor(t, []int{2, 1}, []float32{5, 6})
	a.SetRequiresGrad(true)
	b.SetRequiresGrad(true)

	out := MatMulAutograd(a, b)
	require.NoError(t, out.Backward())

	// d(ab)/da = b^T, d(ab)/db = a^T
	assert.Equal(t, []float32{5, 6}, a.Grad().Data.([]float32))
	assert.Equal(t, []float32{3, 4}, b.Grad().Data.([]float32))
}

func TestReLUBackwardMasksNegatives(t *testing.T) {
	x := mustTensor(t, []int{1, 2}, []float32{-1, 2})
	x.SetRequiresGrad(true)

	h := ReLUAutograd(x)
	ones := mustTensor(t, []int{2, 1}, []float32{1, 1})
	total := MatMulAutograd(h, ones)

	require.NoError(t, total.Backward())
	assert.Equal(t, []float32{0, 1}, x.Grad().Data.([]float32))
}

func TestSoftmaxCrossEntropyForward(t *testing.T) {
	// Uniform logits over 4 classes give loss ln(4) regardless of target.
	logits := mustTensor(t, []int{2, 4}, make([]float32, 8))
	targets, err := NewTensor([]int{2}, Int32, CPU, []int32{0, 3})
	require.NoError(t, err)

	loss := SoftmaxCrossEntropyAutograd(logits, targets)
	val, err := loss.Item()
	require.NoError(t, err)
	assert.InDelta(t, math.Log(4), val, 1e-5)
}

func TestSoftmaxCrossEntropyBackward(t *testing.T) {
	logits := mustTensor(t, []int{1, 2}, []float32{0, 0})
	logits.SetRequiresGrad(true)
	targets, err := NewTensor([]int{1}, Int32, CPU, []int32{1})
	require.NoError(t, err)

	loss := SoftmaxCrossEntropyAutograd(logits, targets)
	require.NoError(t, loss.Backward())

	// softmax([0,0]) = [0.5,0.5]; grad = probs - onehot = [0.5, -0.5]
	grad := logits.Grad().Data.([]float32)
	assert.InDelta(t, 0.5, grad[0], 1e-6)
	assert.InDelta(t, -0.5, grad[1], 1e-6)
}

func TestSoftmaxCrossEntropyNumericalGradient(t *testing.T) {
	base := []float32{0.3, -1.2, 0.8}
	targets, err := NewTensor([]int{1}, Int32, CPU, []int32{2})
	require.NoError(t, err)

	logits := mustTensor(t, []int{1, 3}, append([]float32(nil), base...))
	logits.SetRequiresGrad(true)
	loss := SoftmaxCrossEntropyAutograd(logits, targets)
	require.NoError(t, loss.Backward())
	analytic := logits.Grad().Data.([]float32)

	const eps = 1e-3
	for i := range base {
		perturbed := append([]float32(nil), base...)
		perturbed[i] += eps
		plus := SoftmaxCrossEntropyAutograd(mustTensor(t, []int{1, 3}, perturbed), targets)
		plusVal, err := plus.Item()
		require.NoError(t, err)

		perturbed[i] -= 2 * eps
		minus := SoftmaxCrossEntropyAutograd(mustTensor(t, []int{1, 3}, perturbed), targets)
		minusVal, err := minus.Item()
		require.NoError(t, err)

		numeric := (plusVal - minusVal) / (2 * eps)
		assert.InDelta(t, numeric, float64(analytic[i]), 1e-3, "gradient component %d", i)
	}
}

func TestZeroGrad(t *testing.T) {
	a := mustTensor(t, []int{1}, []float32{1})
	b := mustTensor(t, []int{1}, []float32{2})
	a.SetRequiresGrad(true)
	b.SetRequiresGrad(true)

	out := AddAutograd(a, b)
	require.NoError(t, out.Backward())
	require.NotNil(t, a.Grad())

	ZeroGrad([]*Tensor{a, b})
	assert.Nil(t, a.Grad())
	assert.Nil(t, b.Grad())
}

func TestGradientAccumulatesAcrossBackwardCalls(t *testing.T) {
	a := mustTensor(t, []int{1}, []float32{1})
	a.SetRequiresGrad(true)

	for i := 0; i < 2; i++ {
		out := AddAutograd(a, mustTensor(t, []int{1}, []float32{0}))
		require.NoError(t, out.Backward())
	}
	assert.Equal(t, []float32{2}, a.Grad().Data.([]float32))
}
