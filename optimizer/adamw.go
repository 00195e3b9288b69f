package optimizer

import (
	"math"
	"sync"

	"github.com/wyhwong/tao-classifier/tensor"
)

// AdamWOptimizer implements Adam with decoupled weight decay: the decay is
// applied to the parameters directly, not folded into the gradient.
type AdamWOptimizer struct {
	parameters  []*tensor.Tensor
	lr          float64
	beta1       float64
	beta2       float64
	weightDecay float64
	step        int64
	m           map[*tensor.Tensor][]float32
	v           map[*tensor.Tensor][]float32
	mutex       sync.RWMutex
}

// NewAdamW creates a new AdamW optimizer.
func NewAdamW(parameters []*tensor.Tensor, lr, beta1, beta2, weightDecay float64) *AdamWOptimizer {
	return &AdamWOptimizer{
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
func (aw *AdamWOptimizer) Step() error {
	aw.mutex.Lock()
	defer aw.mutex.Unlock()

	aw.step++
	bias1 := 1.0 - math.Pow(aw.beta1, float64(aw.step))
	bias2 := 1.0 - math.Pow(aw.beta2, float64(aw.step))

	for _, param := range aw.parameters {
		p, g, ok := gradSlices(param)
		if !ok {
			continue
		}

		m := aw.m[param]
		v := aw.v[param]
		if m == nil {
			m = make([]float32, len(p))
			v = make([]float32, len(p))
			aw.m[param] = m
			aw.v[param] = v
		}

		for i := range p {
			grad := float64(g[i])

			mi := aw.beta1*float64(m[i]) + (1-aw.beta1)*grad
			vi := aw.beta2*float64(v[i]) + (1-aw.beta2)*grad*grad
			m[i] = float32(mi)
			v[i] = float32(vi)

			mHat := mi / bias1
			vHat := vi / bias2

			// Decoupled decay shrinks the weight before the Adam update.
			pv := float64(p[i])
			if aw.weightDecay > 0 {
				pv -= aw.lr * aw.weightDecay * pv
			}
			p[i] = float32(pv - aw.lr*mHat/(math.Sqrt(vHat)+adamEps))
		}
	}

	return nil
}

// ZeroGrad resets gradients to zero for all parameters.
func (aw *AdamWOptimizer) ZeroGrad() {
	tensor.ZeroGrad(aw.parameters)
}

// GetLR returns the current learning rate.
func (aw *AdamWOptimizer) GetLR() float64 {
	aw.mutex.RLock()
	defer aw.mutex.RUnlock()
	return aw.lr
}

// SetLR sets the learning rate.
func (aw *AdamWOptimizer) SetLR(lr float64) {
	aw.mutex.Lock()
	defer aw.mutex.Unlock()
	aw.lr = lr
}
