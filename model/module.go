// Package model provides neural network modules and the backbone factory
// used to assemble classifiers.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/wyhwong/tao-classifier/tensor"
)

// Module defines the methods that all neural network layers must implement.
type Module interface {
	Forward(input *tensor.Tensor) (*tensor.Tensor, error)
	Parameters() []*tensor.Tensor     // Trainable parameters, stable order
	NamedParameters() []NamedParam    // Parameters with their dotted-path names
	Train()                           // Sets module to training mode
	Eval()                            // Sets module to evaluation mode
	IsTraining() bool                 // True if in training mode
}

// NamedParam couples a trainable tensor with its stable name ("0.weight").
type NamedParam struct {
	Name  string
	Param *tensor.Tensor
}

// Linear implements a fully connected layer: y = xW + b.
type Linear struct {
	weight   *tensor.Tensor
	bias     *tensor.Tensor
	training bool
}

// NewLinear creates a Linear layer with Xavier-uniform initialized weights.
func NewLinear(inputSize, outputSize int, bias bool, rng *rand.Rand, device tensor.Device) (*Linear, error) {
	bound := math.Sqrt(6.0 / float64(inputSize+outputSize))

	weightData := make([]float32, inputSize*outputSize)
	for i := range weightData {
		weightData[i] = float32((rng.Float64()*2.0 - 1.0) * bound)
	}

	weight, err := tensor.NewTensor([]int{inputSize, outputSize}, tensor.Float32, device, weightData)
	if err != nil {
		return nil, fmt.Errorf("failed to create weight tensor: %v", err)
	}
	weight.SetRequiresGrad(true)

	linear := &Linear{
		weight:   weight,
		training: true,
	}

	if bias {
		biasT, err := tensor.Zeros([]int{outputSize}, tensor.Float32, device)
		if err != nil {
			return nil, fmt.Errorf("failed to create bias tensor: %v", err)
		}
		biasT.SetRequiresGrad(true)
		linear.bias = biasT
	}

	return linear, nil
}

// Forward performs the forward pass: y = xW + b.
func (l *Linear) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) != 2 {
		return nil, fmt.Errorf("Linear layer expects 2D input [batch_size, input_size], got shape %v", input.Shape)
	}
	if input.Shape[1] != l.weight.Shape[0] {
		return nil, fmt.Errorf("input size mismatch: expected %d, got %d", l.weight.Shape[0], input.Shape[1])
	}

	output := tensor.MatMulAutograd(input, l.weight)
	if l.bias != nil {
		output = tensor.AddAutograd(output, l.bias)
	}
	return output, nil
}

func (l *Linear) Parameters() []*tensor.Tensor {
	params := []*tensor.Tensor{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	return params
}

func (l *Linear) NamedParameters() []NamedParam {
	named := []NamedParam{{Name: "weight", Param: l.weight}}
	if l.bias != nil {
		named = append(named, NamedParam{Name: "bias", Param: l.bias})
	}
	return named
}

func (l *Linear) Train()           { l.training = true }
func (l *Linear) Eval()            { l.training = false }
func (l *Linear) IsTraining() bool { return l.training }

// ReLU is a parameterless activation layer.
type ReLU struct {
	training bool
}

func NewReLU() *ReLU {
	return &ReLU{training: true}
}

func (r *ReLU) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	return tensor.ReLUAutograd(input), nil
}

func (r *ReLU) Parameters() []*tensor.Tensor  { return nil }
func (r *ReLU) NamedParameters() []NamedParam { return nil }
func (r *ReLU) Train()                        { r.training = true }
func (r *ReLU) Eval()                         { r.training = false }
func (r *ReLU) IsTraining() bool              { return r.training }

// Flatten reshapes [batch, d1, d2, ...] input to [batch, d1*d2*...].
type Flatten struct {
	training bool
}

func NewFlatten() *Flatten {
	return &Flatten{training: true}
}

func (f *Flatten) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	if len(input.Shape) < 2 {
		return nil, fmt.Errorf("Flatten expects at least 2D input, got shape %v", input.Shape)
	}
	if len(input.Shape) == 2 {
		return input, nil
	}
	batch := input.Shape[0]
	return input.Reshape([]int{batch, input.NumElems / batch})
}

func (f *Flatten) Parameters() []*tensor.Tensor  { return nil }
func (f *Flatten) NamedParameters() []NamedParam { return nil }
func (f *Flatten) Train()                        { f.training = true }
func (f *Flatten) Eval()                         { f.training = false }
func (f *Flatten) IsTraining() bool              { return f.training }

// Sequential chains modules in order.
type Sequential struct {
	layers   []Module
	training bool
}

func NewSequential(layers ...Module) *Sequential {
	return &Sequential{
		layers:   layers,
		training: true,
	}
}

func (s *Sequential) Forward(input *tensor.Tensor) (*tensor.Tensor, error) {
	out := input
	var err error
	for i, layer := range s.layers {
		out, err = layer.Forward(out)
		if err != nil {
			return nil, fmt.Errorf("layer %d forward failed: %v", i, err)
		}
	}
	return out, nil
}

func (s *Sequential) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, layer := range s.layers {
		params = append(params, layer.Parameters()...)
	}
	return params
}

func (s *Sequential) NamedParameters() []NamedParam {
	var named []NamedParam
	for i, layer := range s.layers {
		for _, np := range layer.NamedParameters() {
			named = append(named, NamedParam{
				Name:  fmt.Sprintf("%d.%s", i, np.Name),
				Param: np.Param,
			})
		}
	}
	return named
}

func (s *Sequential) Train() {
	s.training = true
	for _, layer := range s.layers {
		layer.Train()
	}
}

func (s *Sequential) Eval() {
	s.training = false
	for _, layer := range s.layers {
		layer.Eval()
	}
}

func (s *Sequential) IsTraining() bool { return s.training }
