package nn

import "math"

// Adam implements the Adam optimizer with the usual defaults
// (beta1=0.9, beta2=0.999, eps=1e-8).
type Adam struct {
	lr           float64
	beta1, beta2 float64
	eps          float64
	step         int
	params       []*Param
	m, v         [][]float32
}

// NewAdam creates an optimizer over the given parameters. Moment buffers
// start at zero; a fresh optimizer is created for every training branch.
func NewAdam(params []*Param, lr float64) *Adam {
	o := &Adam{
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
		params: params,
		m:      make([][]float32, len(params)),
		v:      make([][]float32, len(params)),
	}
	for i, p := range params {
		o.m[i] = make([]float32, len(p.W.Data))
		o.v[i] = make([]float32, len(p.W.Data))
	}
	return o
}

// Step applies one update from the accumulated gradients. Gradients are not
// cleared; callers zero them before the next backward pass.
func (o *Adam) Step() {
	o.step++
	bc1 := 1 - math.Pow(o.beta1, float64(o.step))
	bc2 := 1 - math.Pow(o.beta2, float64(o.step))
	for i, p := range o.params {
		m, v := o.m[i], o.v[i]
		for j, g := range p.Grad.Data {
			m[j] = float32(o.beta1)*m[j] + float32(1-o.beta1)*g
			v[j] = float32(o.beta2)*v[j] + float32(1-o.beta2)*g*g
			mHat := float64(m[j]) / bc1
			vHat := float64(v[j]) / bc2
			p.W.Data[j] -= float32(o.lr * mHat / (math.Sqrt(vHat) + o.eps))
		}
	}
}
