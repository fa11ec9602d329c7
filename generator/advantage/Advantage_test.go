package advantage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const tol = 1e-9

func TestDiffTelescopes(t *testing.T) {
	q := []float64{0.2, 0.5, 0.1, 0.9, 0.7, 123, -4}
	n := 5

	adv := Diff(q, n)
	require.Len(t, adv, n)

	sum := 0.0
	for i, a := range adv {
		sum += a
		assert.InDelta(t, q[i], sum, tol, "prefix %v", i)
	}
	assert.InDelta(t, q[n-1], floats.Sum(adv), tol)
}

func TestShapeRawCopies(t *testing.T) {
	q := []float64{1, 2, 3, 4}
	adv := Shape(q, 3, Raw)
	assert.Equal(t, []float64{1, 2, 3}, adv)

	adv[0] = 100
	assert.Equal(t, 1.0, q[0])
}

func TestStandardize(t *testing.T) {
	adv := Standardize([]float64{3, -1, 4, 1, 5, 9, 2, 6})

	assert.InDelta(t, 0, stat.Mean(adv, nil), tol)
	assert.InDelta(t, 1, stat.MomentAbout(2, adv, 0, nil), tol)

	again := append([]float64(nil), adv...)
	Standardize(again)
	for i := range adv {
		assert.InDelta(t, adv[i], again[i], tol)
	}
}

func TestStandardizeZeroVariance(t *testing.T) {
	adv := Standardize([]float64{0.5, 0.5, 0.5})
	assert.Equal(t, []float64{0, 0, 0}, adv)

	assert.Empty(t, Standardize(nil))
}

func TestDiscountBoundaries(t *testing.T) {
	adv := []float64{1, -2, 0.5, 3}

	t.Run("Undiscounted", func(t *testing.T) {
		d := Discount(adv, 1)
		for i := range adv {
			assert.InDelta(t, floats.Sum(adv[i:]), d[i], tol)
		}
	})

	t.Run("Myopic", func(t *testing.T) {
		assert.Equal(t, adv, Discount(adv, 0))
	})

	t.Run("Geometric", func(t *testing.T) {
		d := Discount(adv, 0.9)
		for i := range adv {
			want, factor := 0.0, 1.0
			for k := i; k < len(adv); k++ {
				want += factor * adv[k]
				factor *= 0.9
			}
			assert.InDelta(t, want, d[i], tol)
		}
	})
}

func TestCompute(t *testing.T) {
	q := [][]float64{
		{0.1, 0.4, 0.3, 0.8, 0.6},
		{0.5, 0.5, 0.2, 1e6, 1e6},
	}
	lengths := []int{5, 3}

	d, err := Compute(q, lengths, 0.9, Difference)
	require.NoError(t, err)
	require.Len(t, d[0], 5)
	require.Len(t, d[1], 3)

	// Values past the length of a sequence are never read
	q[1][3], q[1][4] = -7, 42
	again, err := Compute(q, lengths, 0.9, Difference)
	require.NoError(t, err)
	assert.Equal(t, d, again)

	want := Discount(Standardize(Diff(q[0], 5)), 0.9)
	assert.Equal(t, want, d[0])
}

func TestComputeErrors(t *testing.T) {
	q := [][]float64{{1, 2}}

	_, err := Compute(q, []int{1, 2}, 0.9, Difference)
	assert.Error(t, err)

	_, err = Compute(q, []int{3}, 0.9, Difference)
	assert.Error(t, err)

	_, err = Compute(q, []int{2}, 0.9, Mode("bogus"))
	assert.Error(t, err)
}
