package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/gradapt/internal/nn"
)

func testSelfTrainer(t *testing.T, v Validator) *SelfTrainer {
	t.Helper()
	st, err := NewSelfTrainer(SelfTrainConfig{
		Model:     nn.NewMLPClassifier(2, 8, 2, 0, 1),
		Classes:   2,
		Validator: v,
		Epochs:    1,
		LR:        1e-3,
		BatchSize: 16,
		Seed:      1,
	})
	require.NoError(t, err)
	return st
}

func TestSelfTrainerSelectsBestScoringQuantile(t *testing.T) {
	st := testSelfTrainer(t, &scripted{scores: []float64{0.2, 0.8}})
	dom := testDomains(t)[1]

	sel, err := st.Adapt(1, dom, []float64{0, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, sel.Q)
	assert.InDelta(t, 0.8, sel.Score, 1e-12)
	assert.Len(t, st.PLAcc, 1)
}

func TestSelfTrainerPromotesWinner(t *testing.T) {
	st := testSelfTrainer(t, &scripted{scores: []float64{0.1}})
	before := st.Model()

	_, err := st.Adapt(1, testDomains(t)[1], []float64{0})
	require.NoError(t, err)
	assert.NotSame(t, before, st.Model(), "winner must replace the live model")
}

func TestNewSelfTrainerValidatesConfig(t *testing.T) {
	_, err := NewSelfTrainer(SelfTrainConfig{Classes: 2, Epochs: 1, LR: 1e-3})
	assert.Error(t, err, "no model")

	_, err = NewSelfTrainer(SelfTrainConfig{Model: nn.NewMLPClassifier(2, 8, 2, 0, 1), Epochs: 1, LR: 1e-3})
	assert.Error(t, err, "no classes")

	_, err = NewSelfTrainer(SelfTrainConfig{Model: nn.NewMLPClassifier(2, 8, 2, 0, 1), Classes: 2})
	assert.Error(t, err, "bad training settings")
}
