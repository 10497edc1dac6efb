package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethodRoundTrip(t *testing.T) {
	for _, m := range []Method{MethodNone, MethodDirect, MethodSelfTrain, MethodGDE, MethodDAGDE} {
		parsed, err := ParseMethod(m.String())
		require.NoError(t, err, m.String())
		assert.Equal(t, m, parsed)
	}
}

func TestParseMethodUnknown(t *testing.T) {
	_, err := ParseMethod("finetune")
	assert.ErrorContains(t, err, "unknown method")
}

func TestMethodStringUnknownValue(t *testing.T) {
	assert.Equal(t, "method(99)", Method(99).String())
}
