package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestGELUReferenceValues(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1, 0.8411919906082768},
		{-1, -0.15880800939172324},
		{3, 2.996362607918227},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, GELU(tt.in), 1e-7, "gelu(%v)", tt.in)
	}
}

func TestGELUMatchesFormula(t *testing.T) {
	for _, v := range []float64{-2.5, -0.3, 0.01, 0.7, 4} {
		want := 0.5 * v * (1 + math.Tanh(math.Sqrt(2/math.Pi)*(v+0.044715*v*v*v)))
		assert.InDelta(t, want, GELU(v), 1e-12)
	}
}

func TestNewShapesAndDeterminism(t *testing.T) {
	m := New(1, 4, 1, 42)
	require.NoError(t, m.Validate())

	assert.Equal(t, 1, m.InputDim())
	assert.Equal(t, 4, m.HiddenDim())
	assert.Equal(t, 1, m.OutputDim())
	assert.Equal(t, 0.0, mat.Sum(m.B1))
	assert.Equal(t, 0.0, mat.Sum(m.B2))

	again := New(1, 4, 1, 42)
	assert.True(t, m.Equal(again), "same seed must give same parameters")

	other := New(1, 4, 1, 7)
	assert.False(t, m.Equal(other))
}

func TestForwardByHand(t *testing.T) {
	m := &Model{
		W1: mat.NewDense(1, 2, []float64{1, -1}),
		B1: mat.NewVecDense(2, []float64{0, 0.5}),
		W2: mat.NewDense(2, 1, []float64{2, 3}),
		B2: mat.NewVecDense(1, []float64{-1}),
	}
	require.NoError(t, m.Validate())

	x := mat.NewDense(2, 1, []float64{0.5, -2})
	y := m.Forward(x)

	rows, cols := y.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 1, cols)

	for i, xv := range []float64{0.5, -2} {
		want := 2*GELU(xv) + 3*GELU(-xv+0.5) - 1
		assert.InDelta(t, want, y.At(i, 0), 1e-12)
	}
}

func TestForwardIsPure(t *testing.T) {
	m := New(1, 3, 1, 1)
	before := m.Clone()
	x := mat.NewDense(3, 1, []float64{0.1, 0.2, 0.3})

	first := m.Forward(x)
	second := m.Forward(x)

	assert.True(t, mat.Equal(first, second))
	assert.True(t, m.Equal(before))
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, x.RawMatrix().Data)
}

func TestLoss(t *testing.T) {
	m := New(1, 4, 1, 3)
	x := mat.NewDense(4, 1, []float64{0, 0.25, 0.5, 0.75})

	exact := m.Forward(x)
	assert.Equal(t, 0.0, m.Loss(x, exact))

	shifted := mat.DenseCopyOf(exact)
	shifted.Apply(func(_, _ int, v float64) float64 { return v + 2 }, shifted)
	assert.InDelta(t, 4.0, m.Loss(x, shifted), 1e-12)
}

func TestValidateRejectsMismatchedTensors(t *testing.T) {
	m := New(1, 4, 1, 42)
	m.B1 = mat.NewVecDense(3, nil)
	assert.ErrorIs(t, m.Validate(), ErrShape)

	m = New(1, 4, 1, 42)
	m.W2 = mat.NewDense(8, 1, nil)
	assert.ErrorIs(t, m.Validate(), ErrShape)

	m = New(1, 4, 1, 42)
	m.B2 = nil
	assert.ErrorIs(t, m.Validate(), ErrShape)
}
