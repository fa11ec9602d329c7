package initwfn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestUnmarshalJSON(t *testing.T) {
	tests := []struct {
		data string
		typ  Type
	}{
		{`{"Type": "GlorotU", "Config": {"Gain": 1}}`, GlorotU},
		{`{"Type": "HeN", "Config": {"Gain": 2}}`, HeN},
		{`{"Type": "Uniform", "Config": {"Low": -1, "High": 1}}`, Uniform},
		{`{"Type": "Zeroes"}`, Zeroes},
	}

	for _, test := range tests {
		t.Run(string(test.typ), func(t *testing.T) {
			var w InitWFn
			require.NoError(t, json.Unmarshal([]byte(test.data), &w))
			assert.Equal(t, test.typ, w.Type)

			values := w.InitWFn()(tensor.Float64, 3, 4).([]float64)
			assert.Len(t, values, 12)
		})
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	bad := []string{
		`{"Type": "Orthogonal"}`,
		`{"Type": "GlorotU", "Config": {"Gain": -1}}`,
		`{"Type": "Uniform", "Config": {"Low": 1, "High": -1}}`,
		`{"Type": "Gaussian", "Config": {"Mean": 0, "StdDev": 0}}`,
	}
	for _, data := range bad {
		var w InitWFn
		assert.Error(t, json.Unmarshal([]byte(data), &w), data)
	}
}

func TestZeroes(t *testing.T) {
	w, err := NewZeroes()
	require.NoError(t, err)

	values := w.InitWFn()(tensor.Float64, 2, 2).([]float64)
	assert.Equal(t, []float64{0, 0, 0, 0}, values)
	assert.Equal(t, "Zeroes", w.String())
}
