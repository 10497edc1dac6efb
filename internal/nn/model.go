package nn

import (
	"math/rand"

	"github.com/driftlab/gradapt/internal/tensor"
)

// Stack is an ordered list of layers applied in sequence.
type Stack struct {
	Layers []Layer
}

func NewStack(layers ...Layer) *Stack { return &Stack{Layers: layers} }

func (s *Stack) Forward(x *tensor.Mat, train bool) tensor.Mat {
	out := *x
	for _, l := range s.Layers {
		out = l.Forward(&out, train)
	}
	return out
}

func (s *Stack) Backward(grad *tensor.Mat) tensor.Mat {
	g := *grad
	for i := len(s.Layers) - 1; i >= 0; i-- {
		g = s.Layers[i].Backward(&g)
	}
	return g
}

func (s *Stack) Params() []*Param {
	var out []*Param
	for _, l := range s.Layers {
		out = append(out, l.Params()...)
	}
	return out
}

func (s *Stack) Clone() *Stack {
	layers := make([]Layer, len(s.Layers))
	for i, l := range s.Layers {
		layers[i] = l.Clone()
	}
	return &Stack{Layers: layers}
}

// Model is an encoder/head classifier. The split mirrors how checkpoints
// store the two halves separately so heads can be swapped out.
type Model struct {
	Encoder *Stack
	Head    *Stack
}

// Forward runs the full model and returns per-class logits.
func (m *Model) Forward(x *tensor.Mat, train bool) tensor.Mat {
	h := m.Encoder.Forward(x, train)
	return m.Head.Forward(&h, train)
}

// Backward propagates a logits gradient through head and encoder,
// accumulating parameter gradients.
func (m *Model) Backward(grad *tensor.Mat) {
	g := m.Head.Backward(grad)
	m.Encoder.Backward(&g)
}

func (m *Model) Params() []*Param {
	return append(m.Encoder.Params(), m.Head.Params()...)
}

// ZeroGrad clears all accumulated gradients.
func (m *Model) ZeroGrad() {
	for _, p := range m.Params() {
		p.Grad.Zero()
	}
}

// Clone returns a deep copy: weights duplicated, gradients fresh. Branched
// sweep candidates each train their own clone and only the winner survives.
func (m *Model) Clone() *Model {
	return &Model{Encoder: m.Encoder.Clone(), Head: m.Head.Clone()}
}

// Predict returns the argmax class for every row of x.
func (m *Model) Predict(x *tensor.Mat) []int {
	logits := m.Forward(x, false)
	out := make([]int, logits.R)
	for i := range out {
		out[i] = tensor.Argmax(logits.Row(i))
	}
	return out
}

// NewMLPClassifier builds the tabular-data model shape: a one-layer MLP
// encoder (Linear+ReLU+Dropout) and a linear head.
func NewMLPClassifier(in, hidden, classes int, dropout float64, seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	enc := NewStack(
		NewLinear(in, hidden, rng),
		NewReLU(),
	)
	if dropout > 0 {
		enc.Layers = append(enc.Layers, NewDropout(dropout, rng.Int63()))
	}
	head := NewStack(NewLinear(hidden, classes, rng))
	return &Model{Encoder: enc, Head: head}
}

// NewDeepMLPClassifier builds the image-data model shape: a two-layer MLP
// encoder and a two-layer MLP head with a bottleneck of hidden/2.
func NewDeepMLPClassifier(in, hidden, classes int, seed int64) *Model {
	rng := rand.New(rand.NewSource(seed))
	enc := NewStack(
		NewLinear(in, hidden, rng),
		NewReLU(),
		NewLinear(hidden, hidden, rng),
		NewReLU(),
	)
	head := NewStack(
		NewLinear(hidden, hidden/2, rng),
		NewReLU(),
		NewLinear(hidden/2, classes, rng),
	)
	return &Model{Encoder: enc, Head: head}
}
