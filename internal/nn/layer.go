// Package nn implements the small feed-forward classifiers used by the
// adaptation experiments: dense layers with hand-written gradients, an Adam
// optimizer and a supervised training loop for the source domain.
package nn

import (
	"math"
	"math/rand"

	"github.com/driftlab/gradapt/internal/tensor"
)

// Param is one trainable tensor together with its accumulated gradient.
type Param struct {
	W    tensor.Mat
	Grad tensor.Mat
}

func newParam(r, c int) *Param {
	return &Param{W: tensor.NewMat(r, c), Grad: tensor.NewMat(r, c)}
}

func (p *Param) clone() *Param {
	return &Param{W: p.W.Clone(), Grad: tensor.NewMat(p.W.R, p.W.C)}
}

// Layer is one differentiable stage of a model. Forward may cache
// activations needed by Backward; Backward accumulates parameter gradients
// and returns the gradient with respect to its input.
type Layer interface {
	Forward(x *tensor.Mat, train bool) tensor.Mat
	Backward(grad *tensor.Mat) tensor.Mat
	Params() []*Param
	Clone() Layer
}

// Linear is a fully connected layer. Weights are stored [out x in] so the
// forward pass is a GemmTB against the batch.
type Linear struct {
	In, Out int
	Weight  *Param
	Bias    *Param

	x tensor.Mat // cached input for the backward pass
}

// NewLinear creates a dense layer with uniform(-1/sqrt(in), 1/sqrt(in))
// initialisation.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		In:     in,
		Out:    out,
		Weight: newParam(out, in),
		Bias:   newParam(1, out),
	}
	scale := float32(1 / math.Sqrt(float64(in)))
	tensor.FillUniform(&l.Weight.W, rng, scale)
	tensor.FillUniform(&l.Bias.W, rng, scale)
	return l
}

func (l *Linear) Forward(x *tensor.Mat, train bool) tensor.Mat {
	if train {
		l.x = x.Clone()
	}
	y := tensor.NewMat(x.R, l.Out)
	tensor.GemmTB(&y, x, &l.Weight.W, 1, 0)
	bias := l.Bias.W.Row(0)
	for i := 0; i < y.R; i++ {
		tensor.Add(y.Row(i), bias)
	}
	return y
}

func (l *Linear) Backward(grad *tensor.Mat) tensor.Mat {
	// dW += grad^T * x, db += column sums of grad.
	tensor.GemmTA(&l.Weight.Grad, grad, &l.x, 1, 1)
	db := l.Bias.Grad.Row(0)
	for i := 0; i < grad.R; i++ {
		tensor.Add(db, grad.Row(i))
	}
	dx := tensor.NewMat(grad.R, l.In)
	tensor.Gemm(&dx, grad, &l.Weight.W, 1, 0)
	return dx
}

func (l *Linear) Params() []*Param { return []*Param{l.Weight, l.Bias} }

func (l *Linear) Clone() Layer {
	return &Linear{In: l.In, Out: l.Out, Weight: l.Weight.clone(), Bias: l.Bias.clone()}
}

// ReLU zeroes negative activations.
type ReLU struct {
	mask []bool
}

func NewReLU() *ReLU { return &ReLU{} }

func (r *ReLU) Forward(x *tensor.Mat, train bool) tensor.Mat {
	y := x.Clone()
	if train {
		if len(r.mask) < len(y.Data) {
			r.mask = make([]bool, len(y.Data))
		}
	}
	for i, v := range y.Data {
		keep := v > 0
		if !keep {
			y.Data[i] = 0
		}
		if train {
			r.mask[i] = keep
		}
	}
	return y
}

func (r *ReLU) Backward(grad *tensor.Mat) tensor.Mat {
	dx := grad.Clone()
	for i := range dx.Data {
		if !r.mask[i] {
			dx.Data[i] = 0
		}
	}
	return dx
}

func (r *ReLU) Params() []*Param { return nil }

func (r *ReLU) Clone() Layer { return &ReLU{} }

// Dropout randomly zeroes activations during training with probability P and
// rescales the survivors by 1/(1-P). Inference passes through unchanged.
type Dropout struct {
	P    float64
	rng  *rand.Rand
	keep []float32
}

func NewDropout(p float64, seed int64) *Dropout {
	return &Dropout{P: p, rng: rand.New(rand.NewSource(seed))}
}

func (d *Dropout) Forward(x *tensor.Mat, train bool) tensor.Mat {
	if !train || d.P <= 0 {
		return x.Clone()
	}
	y := x.Clone()
	if len(d.keep) < len(y.Data) {
		d.keep = make([]float32, len(y.Data))
	}
	scale := float32(1 / (1 - d.P))
	for i := range y.Data {
		if d.rng.Float64() < d.P {
			d.keep[i] = 0
			y.Data[i] = 0
		} else {
			d.keep[i] = scale
			y.Data[i] *= scale
		}
	}
	return y
}

func (d *Dropout) Backward(grad *tensor.Mat) tensor.Mat {
	dx := grad.Clone()
	for i := range dx.Data {
		dx.Data[i] *= d.keep[i]
	}
	return dx
}

func (d *Dropout) Params() []*Param { return nil }

func (d *Dropout) Clone() Layer {
	// The clone gets an independent stream so branched candidates do not
	// share mask sequences.
	return &Dropout{P: d.P, rng: rand.New(rand.NewSource(d.rng.Int63()))}
}
