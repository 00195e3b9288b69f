package tensor

import (
	"fmt"
	"math"
)

func checkCompatibility(t1, t2 *Tensor) error {
	if t1.DType != t2.DType {
		return fmt.Errorf("dtype mismatch: %s vs %s", t1.DType, t2.DType)
	}
	if t1.Device != t2.Device {
		return fmt.Errorf("device mismatch: %s vs %s", t1.Device, t2.Device)
	}
	return nil
}

// broadcastShapes returns the result shape for an elementwise op or an error
// if the shapes are incompatible. Only trailing-dimension broadcasting is
// supported, which covers bias addition ([N,M] + [M]) and scalar operands.
func broadcastShapes(shape1, shape2 []int) ([]int, error) {
	if len(shape1) < len(shape2) {
		shape1, shape2 = shape2, shape1
	}
	// shape2 is now the shorter (or equal) shape
	if isScalarShape(shape2) {
		return shape1, nil
	}
	offset := len(shape1) - len(shape2)
	for i, dim := range shape2 {
		if shape1[offset+i] != dim {
			return nil, fmt.Errorf("shapes %v and %v are not broadcastable", shape1, shape2)
		}
	}
	return shape1, nil
}

func isScalarShape(shape []int) bool {
	return calculateNumElements(shape) == 1
}

type binaryFn func(a, b float32) float32

func elementwise(t1, t2 *Tensor, fn binaryFn) (*Tensor, error) {
	if err := checkCompatibility(t1, t2); err != nil {
		return nil, err
	}
	if t1.DType != Float32 {
		return nil, fmt.Errorf("elementwise ops only support Float32 tensors, got %s", t1.DType)
	}

	outShape, err := broadcastShapes(t1.Shape, t2.Shape)
	if err != nil {
		return nil, err
	}

	a := t1.Data.([]float32)
	b := t2.Data.([]float32)
	n := calculateNumElements(outShape)
	out := make([]float32, n)

	// Index the smaller operand modulo its length; valid for the supported
	// trailing-dimension and scalar broadcasts.
	switch {
	case len(a) == n && len(b) == n:
		for i := range out {
			out[i] = fn(a[i], b[i])
		}
	case len(a) == n:
		for i := range out {
			out[i] = fn(a[i], b[i%len(b)])
		}
	default:
		for i := range out {
			out[i] = fn(a[i%len(a)], b[i])
		}
	}

	return NewTensor(outShape, Float32, t1.Device, out)
}

// Add computes t1 + t2 elementwise with trailing-dimension broadcasting.
func Add(t1, t2 *Tensor) (*Tensor, error) {
	return elementwise(t1, t2, func(a, b float32) float32 { return a + b })
}

// Sub computes t1 - t2 elementwise.
func Sub(t1, t2 *Tensor) (*Tensor, error) {
	return elementwise(t1, t2, func(a, b float32) float32 { return a - b })
}

// Mul computes t1 * t2 elementwise.
func Mul(t1, t2 *Tensor) (*Tensor, error) {
	return elementwise(t1, t2, func(a, b float32) float32 { return a * b })
}

// Div computes t1 / t2 elementwise.
func Div(t1, t2 *Tensor) (*Tensor, error) {
	return elementwise(t1, t2, func(a, b float32) float32 { return a / b })
}

// Sqrt computes the elementwise square root.
func Sqrt(t *Tensor) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("Sqrt only supports Float32 tensors, got %s", t.DType)
	}
	data := t.Data.([]float32)
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(math.Sqrt(float64(v)))
	}
	return NewTensor(t.Shape, Float32, t.Device, out)
}

// ReLU computes max(0, x) elementwise.
func ReLU(t *Tensor) (*Tensor, error) {
	if t.DType != Float32 {
		return nil, fmt.Errorf("ReLU only supports Float32 tensors, got %s", t.DType)
	}
	data := t.Data.([]float32)
	out := make([]float32, len(data))
	for i, v := range data {
		if v > 0 {
			out[i] = v
		}
	}
	return NewTensor(t.Shape, Float32, t.Device, out)
}

// MatMul computes the matrix product of two 2D Float32 tensors.
func MatMul(t1, t2 *Tensor) (*Tensor, error) {
	if err := checkCompatibility(t1, t2); err != nil {
		return nil, err
	}
	if t1.DType != Float32 {
		return nil, fmt.Errorf("MatMul only supports Float32 tensors, got %s", t1.DType)
	}
	if len(t1.Shape) != 2 || len(t2.Shape) != 2 {
		return nil, fmt.Errorf("MatMul requires 2D tensors, got shapes %v and %v", t1.Shape, t2.Shape)
	}
	if t1.Shape[1] != t2.Shape[0] {
		return nil, fmt.Errorf("inner dimension mismatch: %v x %v", t1.Shape, t2.Shape)
	}

	m, k, n := t1.Shape[0], t1.Shape[1], t2.Shape[1]
	a := t1.Data.([]float32)
	b := t2.Data.([]float32)
	out := make([]float32, m*n)

	for i := 0; i < m; i++ {
		for kk := 0; kk < k; kk++ {
			av := a[i*k+kk]
			if av == 0 {
				continue
			}
			row := b[kk*n : (kk+1)*n]
			outRow := out[i*n : (i+1)*n]
			for j, bv := range row {
				outRow[j] += av * bv
			}
		}
	}

	return NewTensor([]int{m, n}, Float32, t1.Device, out)
}

// Transpose swaps the two dimensions of a 2D tensor.
func Transpose(t *Tensor) (*Tensor, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("Transpose requires a 2D tensor, got shape %v", t.Shape)
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("Transpose only supports Float32 tensors, got %s", t.DType)
	}

	rows, cols := t.Shape[0], t.Shape[1]
	data := t.Data.([]float32)
	out := make([]float32, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[j*rows+i] = data[i*cols+j]
		}
	}
	return NewTensor([]int{cols, rows}, Float32, t.Device, out)
}

// ArgMaxRows returns, for a 2D [rows, cols] tensor, the column index of the
// maximum value in each row.
func ArgMaxRows(t *Tensor) ([]int32, error) {
	if len(t.Shape) != 2 {
		return nil, fmt.Errorf("ArgMaxRows requires a 2D tensor, got shape %v", t.Shape)
	}
	if t.DType != Float32 {
		return nil, fmt.Errorf("ArgMaxRows only supports Float32 tensors, got %s", t.DType)
	}

	rows, cols := t.Shape[0], t.Shape[1]
	data := t.Data.([]float32)
	out := make([]int32, rows)
	for i := 0; i < rows; i++ {
		maxIdx := 0
		maxVal := data[i*cols]
		for j := 1; j < cols; j++ {
			if data[i*cols+j] > maxVal {
				maxVal = data[i*cols+j]
				maxIdx = j
			}
		}
		out[i] = int32(maxIdx)
	}
	return out, nil
}
