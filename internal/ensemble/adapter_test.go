package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/gradapt/internal/data"
	"github.com/driftlab/gradapt/internal/nn"
	"github.com/driftlab/gradapt/internal/tensor"
)

// scripted returns a fixed score per Score call, repeating the last one.
// The adapter calls the validator once per candidate epoch, so with one
// epoch the call order matches the candidate order.
type scripted struct {
	scores []float64
	calls  int
}

func (s *scripted) Score(*tensor.Mat) float64 {
	i := s.calls
	if i >= len(s.scores) {
		i = len(s.scores) - 1
	}
	s.calls++
	return s.scores[i]
}

func testDomains(t *testing.T) []*data.Domain {
	t.Helper()
	domains, err := data.RotatingMoons(data.MoonsConfig{
		Domains:       3,
		PerDomain:     16,
		Noise:         0.05,
		TotalRotation: 30,
		Seed:          7,
	})
	require.NoError(t, err)
	return domains
}

func testAdapter(t *testing.T, v Validator) *Adapter {
	t.Helper()
	a, err := New(Config{
		Model:     nn.NewMLPClassifier(2, 8, 2, 0, 1),
		Domains:   testDomains(t),
		Classes:   2,
		Schedule:  Constant(0.2),
		Validator: v,
		Epochs:    1,
		LR:        1e-3,
		BatchSize: 16, // whole domain per batch keeps the mask non-empty for any q
		Seed:      1,
	})
	require.NoError(t, err)
	return a
}

func TestAdapterSelectsBestScoringQuantile(t *testing.T) {
	a := testAdapter(t, &scripted{scores: []float64{0.7, 0.9}})

	sel, err := a.Adapt(1, []float64{0, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, sel.Q)
	assert.InDelta(t, 0.9, sel.Score, 1e-12)
}

func TestAdapterTiesKeepFirstCandidate(t *testing.T) {
	a := testAdapter(t, &scripted{scores: []float64{0.5, 0.5}})

	sel, err := a.Adapt(1, []float64{0, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sel.Q, "equal scores must keep the first candidate")
}

func TestAdapterWalksSequenceAndRecordsDiagnostics(t *testing.T) {
	a := testAdapter(t, &scripted{scores: []float64{0.1}})

	for d := 1; d <= 2; d++ {
		_, err := a.Adapt(d, []float64{0})
		require.NoError(t, err)
	}
	assert.Len(t, a.PLAcc, 2)
	assert.Len(t, a.MomentumRecord, 2)
	for _, m := range a.MomentumRecord {
		assert.Equal(t, 0.2, m)
	}
	assert.Equal(t, 0.2, a.Momentum())
}

func TestAdapterRejectsBadDomainIndex(t *testing.T) {
	a := testAdapter(t, &scripted{scores: []float64{0}})

	_, err := a.Adapt(0, []float64{0})
	assert.Error(t, err, "domain 0 is the source")
	_, err = a.Adapt(3, []float64{0})
	assert.Error(t, err)
	_, err = a.Adapt(1, nil)
	assert.Error(t, err, "empty sweep")
}

func TestNewValidatesConfig(t *testing.T) {
	domains := testDomains(t)
	model := nn.NewMLPClassifier(2, 8, 2, 0, 1)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"no model", Config{Domains: domains, Classes: 2, Schedule: Constant(0), Epochs: 1, LR: 1e-3}},
		{"one domain", Config{Model: model, Domains: domains[:1], Classes: 2, Schedule: Constant(0), Epochs: 1, LR: 1e-3}},
		{"no classes", Config{Model: model, Domains: domains, Schedule: Constant(0), Epochs: 1, LR: 1e-3}},
		{"no schedule", Config{Model: model, Domains: domains, Classes: 2, Epochs: 1, LR: 1e-3}},
		{"bad epochs", Config{Model: model, Domains: domains, Classes: 2, Schedule: Constant(0), LR: 1e-3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestTargetValidateUsesConfiguredValidator(t *testing.T) {
	v := &scripted{scores: []float64{0.42}}
	a := testAdapter(t, v)

	score := a.TargetValidate(testDomains(t)[2])
	assert.Equal(t, 0.42, score)
	assert.Equal(t, 1, v.calls)
}
