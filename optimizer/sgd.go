package optimizer

import (
	"sync"

	"github.com/wyhwong/tao-classifier/tensor"
)

// SGDOptimizer implements stochastic gradient descent with optional momentum
// and L2 weight decay.
type SGDOptimizer struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	velocities   map[*tensor.Tensor][]float32
	mutex        sync.RWMutex
}

// NewSGD creates a new SGD optimizer.
func NewSGD(parameters []*tensor.Tensor, lr, momentum, weightDecay float64) *SGDOptimizer {
	return &SGDOptimizer{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
		velocities:   make(map[*tensor.Tensor][]float32),
	}
}

// Step performs a single optimization step.
func (sgd *SGDOptimizer) Step() error {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()

	for _, param := range sgd.parameters {
		p, g, ok := gradSlices(param)
		if !ok {
			continue
		}

		var velocity []float32
		if sgd.momentum > 0 {
			velocity = sgd.velocities[param]
			if velocity == nil {
				velocity = make([]float32, len(p))
				sgd.velocities[param] = velocity
			}
		}

		for i := range p {
			grad := float64(g[i])
			if sgd.weightDecay > 0 {
				grad += sgd.weightDecay * float64(p[i])
			}
			if sgd.momentum > 0 {
				v := sgd.momentum*float64(velocity[i]) + grad
				velocity[i] = float32(v)
				grad = v
			}
			p[i] -= float32(sgd.learningRate * grad)
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters.
func (sgd *SGDOptimizer) ZeroGrad() {
	tensor.ZeroGrad(sgd.parameters)
}

// GetLR returns the current learning rate.
func (sgd *SGDOptimizer) GetLR() float64 {
	sgd.mutex.RLock()
	defer sgd.mutex.RUnlock()
	return sgd.learningRate
}

// SetLR sets the learning rate.
func (sgd *SGDOptimizer) SetLR(lr float64) {
	sgd.mutex.Lock()
	defer sgd.mutex.Unlock()
	sgd.learningRate = lr
}
