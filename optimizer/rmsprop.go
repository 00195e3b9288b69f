package optimizer

import (
	"math"
	"sync"

	"github.com/wyhwong/tao-classifier/tensor"
)

const rmspropEps = 1e-8

// RMSPropOptimizer implements RMSProp with optional momentum and L2 weight
// decay. Alpha is the smoothing constant of the squared-gradient average.
type RMSPropOptimizer struct {
	parameters   []*tensor.Tensor
	learningRate float64
	momentum     float64
	weightDecay  float64
	alpha        float64
	squareAvgs   map[*tensor.Tensor][]float32
	velocities   map[*tensor.Tensor][]float32
	mutex        sync.RWMutex
}

// NewRMSProp creates a new RMSProp optimizer.
func NewRMSProp(parameters []*tensor.Tensor, lr, momentum, weightDecay, alpha float64) *RMSPropOptimizer {
	return &RMSPropOptimizer{
		parameters:   parameters,
		learningRate: lr,
		momentum:     momentum,
		weightDecay:  weightDecay,
		alpha:        alpha,
		squareAvgs:   make(map[*tensor.Tensor][]float32),
		velocities:   make(map[*tensor.Tensor][]float32),
	}
}

// Step performs a single optimization step.
func (r *RMSPropOptimizer) Step() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, param := range r.parameters {
		p, g, ok := gradSlices(param)
		if !ok {
			continue
		}

		squareAvg := r.squareAvgs[param]
		if squareAvg == nil {
			squareAvg = make([]float32, len(p))
			r.squareAvgs[param] = squareAvg
		}

		var velocity []float32
		if r.momentum > 0 {
			velocity = r.velocities[param]
			if velocity == nil {
				velocity = make([]float32, len(p))
				r.velocities[param] = velocity
			}
		}

		for i := range p {
			grad := float64(g[i])
			if r.weightDecay > 0 {
				grad += r.weightDecay * float64(p[i])
			}

			sq := r.alpha*float64(squareAvg[i]) + (1-r.alpha)*grad*grad
			squareAvg[i] = float32(sq)

			update := grad / (math.Sqrt(sq) + rmspropEps)
			if r.momentum > 0 {
				v := r.momentum*float64(velocity[i]) + update
				velocity[i] = float32(v)
				update = v
			}
			p[i] -= float32(r.learningRate * update)
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters.
func (r *RMSPropOptimizer) ZeroGrad() {
	tensor.ZeroGrad(r.parameters)
}

// GetLR returns the current learning rate.
func (r *RMSPropOptimizer) GetLR() float64 {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.learningRate
}

// SetLR sets the learning rate.
func (r *RMSPropOptimizer) SetLR(lr float64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.learningRate = lr
}
