package training

import (
	"fmt"

	"github.com/wyhwong/tao-classifier/tensor"
)

// Loss defines the interface for loss functions. Forward returns a scalar
// tensor wired into the autograd graph, so calling Backward on it propagates
// gradients into the model parameters.
type Loss interface {
	Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error)
}

// CrossEntropyLoss computes mean softmax cross entropy for classification.
type CrossEntropyLoss struct{}

// NewCrossEntropyLoss creates a new cross entropy loss function.
func NewCrossEntropyLoss() *CrossEntropyLoss {
	return &CrossEntropyLoss{}
}

// Forward computes the loss.
// predicted: [batch_size, num_classes] Float32 logits
// target: [batch_size] Int32 class indices
func (ce *CrossEntropyLoss) Forward(predicted, target *tensor.Tensor) (*tensor.Tensor, error) {
	if predicted.DType != tensor.Float32 || target.DType != tensor.Int32 {
		return nil, fmt.Errorf("predicted must be Float32 and target must be Int32")
	}
	if len(predicted.Shape) != 2 {
		return nil, fmt.Errorf("predicted must be 2D tensor [batch_size, num_classes], got shape %v", predicted.Shape)
	}
	if len(target.Shape) != 1 {
		return nil, fmt.Errorf("target must be 1D tensor [batch_size], got shape %v", target.Shape)
	}

	batchSize := predicted.Shape[0]
	numClasses := predicted.Shape[1]
	if target.Shape[0] != batchSize {
		return nil, fmt.Errorf("batch size mismatch: predicted %d, target %d", batchSize, target.Shape[0])
	}

	targetData, err := target.GetInt32Data()
	if err != nil {
		return nil, err
	}
	for i, class := range targetData {
		if class < 0 || int(class) >= numClasses {
			return nil, fmt.Errorf("target class %d at index %d out of range [0, %d)", class, i, numClasses)
		}
	}

	return tensor.SoftmaxCrossEntropyAutograd(predicted, target), nil
}
