package tensor

import (
	"fmt"
	"math/rand"
)

// NewTensor creates a tensor from existing data. The data slice is used
// directly, not copied.
func NewTensor(shape []int, dtype DType, device Device, data interface{}) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	t := &Tensor{
		Shape:    append([]int(nil), shape...),
		Strides:  calculateStrides(shape),
		DType:    dtype,
		Device:   device,
		NumElems: calculateNumElements(shape),
	}

	if err := t.setData(data); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Tensor) setData(data interface{}) error {
	switch t.DType {
	case Float32:
		d, ok := data.([]float32)
		if !ok {
			return fmt.Errorf("expected []float32 for Float32 tensor, got %T", data)
		}
		if len(d) != t.NumElems {
			return fmt.Errorf("data length %d does not match shape %v (expected %d)", len(d), t.Shape, t.NumElems)
		}
		t.Data = d
	case Int32:
		d, ok := data.([]int32)
		if !ok {
			return fmt.Errorf("expected []int32 for Int32 tensor, got %T", data)
		}
		if len(d) != t.NumElems {
			return fmt.Errorf("data length %d does not match shape %v (expected %d)", len(d), t.Shape, t.NumElems)
		}
		t.Data = d
	default:
		return fmt.Errorf("unsupported dtype: %s", t.DType)
	}
	return nil
}

// SetData replaces the tensor's data in place. Length and type must match.
func (t *Tensor) SetData(data interface{}) error {
	return t.setData(data)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape []int, dtype DType, device Device) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	n := calculateNumElements(shape)
	switch dtype {
	case Float32:
		return NewTensor(shape, dtype, device, make([]float32, n))
	case Int32:
		return NewTensor(shape, dtype, device, make([]int32, n))
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}
}

// Ones creates a one-filled tensor.
func Ones(shape []int, dtype DType, device Device) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	n := calculateNumElements(shape)
	switch dtype {
	case Float32:
		data := make([]float32, n)
		for i := range data {
			data[i] = 1
		}
		return NewTensor(shape, dtype, device, data)
	case Int32:
		data := make([]int32, n)
		for i := range data {
			data[i] = 1
		}
		return NewTensor(shape, dtype, device, data)
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", dtype)
	}
}

// Random creates a Float32 tensor with values uniformly drawn from [-1, 1).
func Random(shape []int, rng *rand.Rand, device Device) (*Tensor, error) {
	if err := validateShape(shape); err != nil {
		return nil, err
	}

	n := calculateNumElements(shape)
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()*2.0 - 1.0
	}
	return NewTensor(shape, Float32, device, data)
}

// FromScalar creates a single-element Float32 tensor.
func FromScalar(value float64, device Device) *Tensor {
	t, _ := NewTensor([]int{1}, Float32, device, []float32{float32(value)})
	return t
}
