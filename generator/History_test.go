package generator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLossHistory(t *testing.T) {
	h := NewLossHistory()
	_, ok := h.Last()
	assert.False(t, ok)

	h.Append(1.5)
	h.Append(-0.25)
	assert.Equal(t, 2, h.Len())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, -0.25, last)

	values := h.Values()
	values[0] = 100
	assert.Equal(t, []float64{1.5, -0.25}, h.Values())

	filename := filepath.Join(t.TempDir(), "losses.bin")
	require.NoError(t, h.Save(filename))
	loaded, err := LoadLossHistory(filename)
	require.NoError(t, err)
	assert.Equal(t, h.Values(), loaded.Values())
}
