package tensor

import (
	"fmt"
)

// Reshape returns a view-copy of the tensor with a new shape. The element
// count must be unchanged.
func (t *Tensor) Reshape(newShape []int) (*Tensor, error) {
	if err := validateShape(newShape); err != nil {
		return nil, err
	}
	if calculateNumElements(newShape) != t.NumElems {
		return nil, fmt.Errorf("cannot reshape %v (%d elements) to %v", t.Shape, t.NumElems, newShape)
	}

	out := &Tensor{
		Shape:        append([]int(nil), newShape...),
		Strides:      calculateStrides(newShape),
		DType:        t.DType,
		Device:       t.Device,
		Data:         t.Data,
		NumElems:     t.NumElems,
		requiresGrad: t.requiresGrad,
	}
	return out, nil
}

// Clone returns a deep copy of the tensor. The autograd graph and gradient
// are not copied; clones are plain values.
func (t *Tensor) Clone() (*Tensor, error) {
	var data interface{}
	switch t.DType {
	case Float32:
		src := t.Data.([]float32)
		dst := make([]float32, len(src))
		copy(dst, src)
		data = dst
	case Int32:
		src := t.Data.([]int32)
		dst := make([]int32, len(src))
		copy(dst, src)
		data = dst
	default:
		return nil, fmt.Errorf("unsupported dtype: %s", t.DType)
	}

	return NewTensor(t.Shape, t.DType, t.Device, data)
}

// GetFloat32Data returns the underlying float32 slice.
func (t *Tensor) GetFloat32Data() ([]float32, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("tensor is %s, not Float32", t.DType)
	}
	return t.Data.([]float32), nil
}

// GetInt32Data returns the underlying int32 slice.
func (t *Tensor) GetInt32Data() ([]int32, error) {
	if t.DType != Int32 {
		return nil, fmt.Errorf("tensor is %s, not Int32", t.DType)
	}
	return t.Data.([]int32), nil
}

// Item returns the value of a single-element tensor as float64.
func (t *Tensor) Item() (float64, error) {
	if t.NumElems != 1 {
		return 0, fmt.Errorf("Item requires a single-element tensor, got shape %v", t.Shape)
	}
	switch t.DType {
	case Float32:
		return float64(t.Data.([]float32)[0]), nil
	case Int32:
		return float64(t.Data.([]int32)[0]), nil
	default:
		return 0, fmt.Errorf("unsupported dtype: %s", t.DType)
	}
}

// Equal reports whether two tensors have identical shape, dtype and data.
func (t *Tensor) Equal(other *Tensor) bool {
	if t.DType != other.DType || len(t.Shape) != len(other.Shape) {
		return false
	}
	for i, dim := range t.Shape {
		if other.Shape[i] != dim {
			return false
		}
	}
	switch t.DType {
	case Float32:
		a := t.Data.([]float32)
		b := other.Data.([]float32)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	case Int32:
		a := t.Data.([]int32)
		b := other.Data.([]int32)
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
	default:
		return false
	}
	return true
}

// ToDevice returns the tensor on the requested device. CPU is the only
// supported device; a same-device request returns the receiver unchanged.
func (t *Tensor) ToDevice(device Device) (*Tensor, error) {
	if device == t.Device {
		return t, nil
	}
	return nil, fmt.Errorf("unsupported device: %s", device)
}

// Detach strips autograd bookkeeping from the tensor in place.
func (t *Tensor) Detach() {
	t.creator = nil
	t.grad = nil
}
