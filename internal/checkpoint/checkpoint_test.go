package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlab/gradapt/internal/nn"
)

func TestRoundTrip(t *testing.T) {
	src := nn.NewMLPClassifier(2, 8, 3, 0, 1)
	path := Path(t.TempDir(), "moons", "dagde", 42)

	ckpt := FromModel(src, "moons", "dagde", 42)
	require.NoError(t, Save(path, ckpt))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "moons", loaded.Dataset)
	assert.Equal(t, "dagde", loaded.Method)
	assert.Equal(t, int64(42), loaded.Seed)

	// Restoring into a differently-seeded model of the same architecture
	// must reproduce the source weights exactly.
	dst := nn.NewMLPClassifier(2, 8, 3, 0, 99)
	require.NoError(t, loaded.ApplyTo(dst))

	sp, dp := src.Params(), dst.Params()
	require.Len(t, dp, len(sp))
	for i := range sp {
		assert.Equal(t, sp[i].W.Data, dp[i].W.Data, "param %d", i)
	}
}

func TestApplyToShapeMismatch(t *testing.T) {
	ckpt := FromModel(nn.NewMLPClassifier(2, 8, 3, 0, 1), "moons", "dagde", 1)

	wrongWidth := nn.NewMLPClassifier(2, 4, 3, 0, 1)
	assert.Error(t, ckpt.ApplyTo(wrongWidth))

	wrongDepth := nn.NewDeepMLPClassifier(2, 8, 3, 1)
	assert.Error(t, ckpt.ApplyTo(wrongDepth))
}

func TestPathLayout(t *testing.T) {
	got := Path("ckpts", "covertype", "gde", 7)
	assert.Equal(t, filepath.Join("ckpts", "covertype", "gde_7.json"), got)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
