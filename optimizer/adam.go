package optimizer

import (
	"math"
	"sync"

	"github.com/wyhwong/tao-classifier/tensor"
)

const adamEps = 1e-8

// AdamOptimizer implements Adam with classic (coupled) L2 weight decay.
type AdamOptimizer struct {
	parameters  []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	weightDecay float64
	step        int64
	m           map[*tensor.Tensor][]float32 // First moment estimates
	v           map[*tensor.Tensor][]float32 // Second moment estimates
	mutex       sync.RWMutex
}

// NewAdam creates a new Adam optimizer.
func NewAdam(parameters []*tensor.Tensor, lr, beta1, beta2, weightDecay float64) *AdamOptimizer {
	return &AdamOptimizer{
		parameters:  parameters,
		lr:          lr,
		beta1:       beta1,
		beta2:       beta2,
		weightDecay: weightDecay,
		m:           make(map[*tensor.Tensor][]float32),
		v:           make(map[*tensor.Tensor][]float32),
	}
}

// Step performs a single optimization step.
func (adam *AdamOptimizer) Step() error {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()

	adam.step++
	bias1 := 1.0 - math.Pow(adam.beta1, float64(adam.step))
	bias2 := 1.0 - math.Pow(adam.beta2, float64(adam.step))

	for _, param := range adam.parameters {
		p, g, ok := gradSlices(param)
		if !ok {
			continue
		}

		m := adam.m[param]
		v := adam.v[param]
		if m == nil {
			m = make([]float32, len(p))
			v = make([]float32, len(p))
			adam.m[param] = m
			adam.v[param] = v
		}

		for i := range p {
			grad := float64(g[i])
			if adam.weightDecay > 0 {
				grad += adam.weightDecay * float64(p[i])
			}

			mi := adam.beta1*float64(m[i]) + (1-adam.beta1)*grad
			vi := adam.beta2*float64(v[i]) + (1-adam.beta2)*grad*grad
			m[i] = float32(mi)
			v[i] = float32(vi)

			mHat := mi / bias1
			vHat := vi / bias2
			p[i] -= float32(adam.lr * mHat / (math.Sqrt(vHat) + adamEps))
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters.
func (adam *AdamOptimizer) ZeroGrad() {
	tensor.ZeroGrad(adam.parameters)
}

// GetLR returns the current learning rate.
func (adam *AdamOptimizer) GetLR() float64 {
	adam.mutex.RLock()
	defer adam.mutex.RUnlock()
	return adam.lr
}

// SetLR sets the learning rate.
func (adam *AdamOptimizer) SetLR(lr float64) {
	adam.mutex.Lock()
	defer adam.mutex.Unlock()
	adam.lr = lr
}
