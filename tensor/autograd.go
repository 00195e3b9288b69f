package tensor

import (
	"fmt"
	"math"
)

// reduceGradientToShape sums a gradient down to the shape of a broadcast
// operand. Covers the supported broadcast forms: identical shapes, a
// trailing-dimension operand (bias), and scalar operands.
func reduceGradientToShape(grad *Tensor, targetShape []int) (*Tensor, error) {
	targetN := calculateNumElements(targetShape)
	if targetN == grad.NumElems {
		return grad.Clone()
	}

	gradData := grad.Data.([]float32)
	out := make([]float32, targetN)
	for i, v := range gradData {
		out[i%targetN] += v
	}
	return NewTensor(targetShape, Float32, grad.Device, out)
}

// AddOp implements the Operation interface for tensor addition.
type AddOp struct {
	inputs []*Tensor
}

func (op *AddOp) Forward(inputs ...*Tensor) *Tensor {
	if len(inputs) != 2 {
		panic("AddOp requires exactly 2 inputs")
	}

	a, b := inputs[0], inputs[1]
	op.inputs = inputs

	result, err := Add(a, b)
	if err != nil {
		panic(fmt.Sprintf("Forward pass failed: %v", err))
	}

	result.creator = op
	result.requiresGrad = a.requiresGrad || b.requiresGrad
	return result
}

func (op *AddOp) Backward(gradOut *Tensor) []*Tensor {
	// Gradient flows unchanged to both inputs, reduced to the original
	// shapes where broadcasting occurred.
	gradA, err := reduceGradientToShape(gradOut, op.inputs[0].Shape)
	if err != nil {
		panic(fmt.Sprintf("Failed to reduce gradient for input A: %v", err))
	}

	gradB, err := reduceGradientToShape(gradOut, op.inputs[1].Shape)
	if err != nil {
		panic(fmt.Sprintf("Failed to reduce gradient for input B: %v", err))
	}

	return []*Tensor{gradA, gradB}
}

func (op *AddOp) Inputs() []*Tensor { return op.inputs }

// MatMulOp implements the Operation interface for matrix multiplication.
type MatMulOp struct {
	inputs []*Tensor
}

func (op *MatMulOp) Forward(inputs ...*Tensor) *Tensor {
	if len(inputs) != 2 {
		panic("MatMulOp requires exactly 2 inputs")
	}

	a, b := inputs[0], inputs[1]
	op.inputs = inputs

	result, err := MatMul(a, b)
	if err != nil {
		panic(fmt.Sprintf("Forward pass failed: %v", err))
	}

	result.creator = op
	result.requiresGrad = a.requiresGrad || b.requiresGrad
	return result
}

func (op *MatMulOp) Backward(gradOut *Tensor) []*Tensor {
	a, b := op.inputs[0], op.inputs[1]

	// d(A @ B)/dA = gradOut @ B^T, d(A @ B)/dB = A^T @ gradOut
	bT, err := Transpose(b)
	if err != nil {
		panic(fmt.Sprintf("Failed to transpose B: %v", err))
	}
	gradA, err := MatMul(gradOut, bT)
	if err != nil {
		panic(fmt.Sprintf("Backward pass failed for gradA: %v", err))
	}

	aT, err := Transpose(a)
	if err != nil {
		panic(fmt.Sprintf("Failed to transpose A: %v", err))
	}
	gradB, err := MatMul(aT, gradOut)
	if err != nil {
		panic(fmt.Sprintf("Backward pass failed for gradB: %v", err))
	}

	return []*Tensor{gradA, gradB}
}

func (op *MatMulOp) Inputs() []*Tensor { return op.inputs }

// ReLUOp implements the Operation interface for ReLU activation.
type ReLUOp struct {
	inputs []*Tensor
}

func (op *ReLUOp) Forward(inputs ...*Tensor) *Tensor {
	if len(inputs) != 1 {
		panic("ReLUOp requires exactly 1 input")
	}

	a := inputs[0]
	op.inputs = inputs

	result, err := ReLU(a)
	if err != nil {
		panic(fmt.Sprintf("Forward pass failed: %v", err))
	}

	result.creator = op
	result.requiresGrad = a.requiresGrad
	return result
}

func (op *ReLUOp) Backward(gradOut *Tensor) []*Tensor {
	input := op.inputs[0]
	inputData := input.Data.([]float32)
	gradData := gradOut.Data.([]float32)

	out := make([]float32, len(gradData))
	for i, v := range inputData {
		if v > 0 {
			out[i] = gradData[i]
		}
	}

	grad, err := NewTensor(input.Shape, Float32, input.Device, out)
	if err != nil {
		panic(fmt.Sprintf("Backward pass failed: %v", err))
	}
	return []*Tensor{grad}
}

func (op *ReLUOp) Inputs() []*Tensor { return op.inputs }

// SoftmaxCrossEntropyOp fuses softmax and negative log likelihood into a
// single graph node producing a scalar mean loss. Inputs are Float32 logits
// [batch, classes] and Int32 class indices [batch].
type SoftmaxCrossEntropyOp struct {
	inputs []*Tensor
	probs  []float32
}

func (op *SoftmaxCrossEntropyOp) Forward(inputs ...*Tensor) *Tensor {
	if len(inputs) != 2 {
		panic("SoftmaxCrossEntropyOp requires exactly 2 inputs")
	}

	logits, target := inputs[0], inputs[1]
	op.inputs = inputs

	batchSize := logits.Shape[0]
	numClasses := logits.Shape[1]
	data := logits.Data.([]float32)
	targetData := target.Data.([]int32)

	op.probs = make([]float32, len(data))
	var totalLoss float64

	for i := 0; i < batchSize; i++ {
		offset := i * numClasses

		// Max-shifted softmax for numerical stability.
		maxVal := data[offset]
		for j := 1; j < numClasses; j++ {
			if data[offset+j] > maxVal {
				maxVal = data[offset+j]
			}
		}

		var sum float64
		for j := 0; j < numClasses; j++ {
			e := math.Exp(float64(data[offset+j] - maxVal))
			op.probs[offset+j] = float32(e)
			sum += e
		}
		for j := 0; j < numClasses; j++ {
			op.probs[offset+j] /= float32(sum)
		}

		p := float64(op.probs[offset+int(targetData[i])])
		if p < 1e-10 {
			p = 1e-10
		}
		totalLoss += -math.Log(p)
	}

	result, err := NewTensor([]int{1}, Float32, logits.Device, []float32{float32(totalLoss / float64(batchSize))})
	if err != nil {
		panic(fmt.Sprintf("Forward pass failed: %v", err))
	}
	result.creator = op
	result.requiresGrad = logits.requiresGrad
	return result
}

func (op *SoftmaxCrossEntropyOp) Backward(gradOut *Tensor) []*Tensor {
	logits, target := op.inputs[0], op.inputs[1]
	batchSize := logits.Shape[0]
	numClasses := logits.Shape[1]
	targetData := target.Data.([]int32)
	scale := gradOut.Data.([]float32)[0] / float32(batchSize)

	grad := make([]float32, len(op.probs))
	copy(grad, op.probs)
	for i := 0; i < batchSize; i++ {
		grad[i*numClasses+int(targetData[i])] -= 1.0
	}
	for i := range grad {
		grad[i] *= scale
	}

	gradLogits, err := NewTensor(logits.Shape, Float32, logits.Device, grad)
	if err != nil {
		panic(fmt.Sprintf("Backward pass failed: %v", err))
	}
	// Integer targets carry no gradient.
	return []*Tensor{gradLogits, nil}
}

func (op *SoftmaxCrossEntropyOp) Inputs() []*Tensor { return op.inputs }

// AddAutograd performs gradient-tracked addition.
func AddAutograd(a, b *Tensor) *Tensor {
	op := &AddOp{}
	return op.Forward(a, b)
}

// MatMulAutograd performs gradient-tracked matrix multiplication.
func MatMulAutograd(a, b *Tensor) *Tensor {
	op := &MatMulOp{}
	return op.Forward(a, b)
}

// ReLUAutograd performs gradient-tracked ReLU.
func ReLUAutograd(a *Tensor) *Tensor {
	op := &ReLUOp{}
	return op.Forward(a)
}

// SoftmaxCrossEntropyAutograd computes the gradient-tracked mean cross
// entropy between logits and integer class targets.
func SoftmaxCrossEntropyAutograd(logits, target *Tensor) *Tensor {
	op := &SoftmaxCrossEntropyOp{}
	return op.Forward(logits, target)
}

// Backward runs reverse-mode differentiation from t, accumulating gradients
// into every reachable tensor with requiresGrad set. t must be a scalar.
func (t *Tensor) Backward() error {
	if t.DType != Float32 {
		return fmt.Errorf("Backward requires a Float32 tensor, got %s", t.DType)
	}
	if t.NumElems != 1 {
		return fmt.Errorf("Backward requires a scalar tensor, got shape %v", t.Shape)
	}

	seed, err := Ones(t.Shape, Float32, t.Device)
	if err != nil {
		return err
	}
	t.backward(seed)
	return nil
}

func (t *Tensor) backward(grad *Tensor) {
	if t.requiresGrad {
		t.accumulateGrad(grad)
	}
	if t.creator == nil {
		return
	}

	grads := t.creator.Backward(grad)
	inputs := t.creator.Inputs()
	for i, input := range inputs {
		if grads[i] == nil {
			continue
		}
		if input.requiresGrad || input.creator != nil {
			input.backward(grads[i])
		}
	}
}

func (t *Tensor) accumulateGrad(grad *Tensor) {
	if t.grad == nil {
		g, err := grad.Clone()
		if err != nil {
			panic(fmt.Sprintf("gradient accumulation failed: %v", err))
		}
		t.grad = g
		return
	}

	existing := t.grad.Data.([]float32)
	incoming := grad.Data.([]float32)
	for i := range existing {
		existing[i] += incoming[i]
	}
}

// ZeroGrad clears the gradients of the given tensors.
func ZeroGrad(tensors []*Tensor) {
	for _, t := range tensors {
		t.grad = nil
	}
}
