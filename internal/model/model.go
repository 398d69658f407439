package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ParamNames lists the parameter tensors in serialization order.
var ParamNames = []string{"w1", "b1", "w2", "b2"}

// InitStdDev is the standard deviation of the Gaussian used for W1 and W2.
const InitStdDev = 0.5

// ErrShape is returned when the four parameter tensors disagree on a shared dimension.
var ErrShape = errors.New("model: inconsistent parameter shapes")

var geluScale = math.Sqrt(2 / math.Pi)

// GELU is the tanh approximation of the Gaussian error linear unit:
// 0.5·v·(1 + tanh(√(2/π)·(v + 0.044715·v³))).
func GELU(v float64) float64 {
	return 0.5 * v * (1 + math.Tanh(geluScale*(v+0.044715*math.Pow(v, 3))))
}

// Model is a feed-forward network with a single GELU hidden layer.
//
//	hidden = gelu(x·W1 + B1)
//	out    = hidden·W2 + B2
type Model struct {
	W1 *mat.Dense    // input × hidden
	B1 *mat.VecDense // hidden
	W2 *mat.Dense    // hidden × output
	B2 *mat.VecDense // output
}

// NewSource returns the deterministic random source used for a seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed)
}

// New initializes a model with W1 and W2 drawn from N(0, InitStdDev²) and
// zero biases. The same seed always produces the same parameters.
func New(inputDim, hidden, outputDim int, seed uint64) *Model {
	normal := distuv.Normal{Mu: 0, Sigma: InitStdDev, Src: NewSource(seed)}

	w1 := mat.NewDense(inputDim, hidden, nil)
	fill(w1, normal.Rand)
	w2 := mat.NewDense(hidden, outputDim, nil)
	fill(w2, normal.Rand)

	return &Model{
		W1: w1,
		B1: mat.NewVecDense(hidden, nil),
		W2: w2,
		B2: mat.NewVecDense(outputDim, nil),
	}
}

func fill(d *mat.Dense, draw func() float64) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, draw())
		}
	}
}

// InputDim returns the number of input features.
func (m *Model) InputDim() int {
	r, _ := m.W1.Dims()
	return r
}

// HiddenDim returns the hidden layer width.
func (m *Model) HiddenDim() int {
	_, c := m.W1.Dims()
	return c
}

// OutputDim returns the number of outputs.
func (m *Model) OutputDim() int {
	_, c := m.W2.Dims()
	return c
}

// Validate checks that all four tensors agree on the hidden width and the
// output width.
func (m *Model) Validate() error {
	if m.W1 == nil || m.B1 == nil || m.W2 == nil || m.B2 == nil {
		return fmt.Errorf("%w: missing tensor", ErrShape)
	}
	_, hidden := m.W1.Dims()
	w2r, out := m.W2.Dims()
	switch {
	case m.B1.Len() != hidden:
		return fmt.Errorf("%w: b1 has %d entries, w1 has %d columns", ErrShape, m.B1.Len(), hidden)
	case w2r != hidden:
		return fmt.Errorf("%w: w2 has %d rows, w1 has %d columns", ErrShape, w2r, hidden)
	case m.B2.Len() != out:
		return fmt.Errorf("%w: b2 has %d entries, w2 has %d columns", ErrShape, m.B2.Len(), out)
	}
	return nil
}

// Hidden returns gelu(x·W1 + B1) for a batch x of shape (batch × input).
func (m *Model) Hidden(x mat.Matrix) *mat.Dense {
	var h mat.Dense
	h.Mul(x, m.W1)
	addRow(&h, m.B1)
	h.Apply(func(_, _ int, v float64) float64 { return GELU(v) }, &h)
	return &h
}

// Output applies the second layer to hidden activations.
func (m *Model) Output(h mat.Matrix) *mat.Dense {
	var y mat.Dense
	y.Mul(h, m.W2)
	addRow(&y, m.B2)
	return &y
}

// Forward evaluates the network on x (batch × input) and returns a
// (batch × output) matrix. Like gonum, it panics with mat.ErrShape when x has
// the wrong number of columns.
func (m *Model) Forward(x mat.Matrix) *mat.Dense {
	return m.Output(m.Hidden(x))
}

// Loss returns the mean squared error between Forward(x) and y.
func (m *Model) Loss(x, y mat.Matrix) float64 {
	return MSE(m.Forward(x), y)
}

// MSE returns the mean of the squared elementwise differences of a and b.
func MSE(a, b mat.Matrix) float64 {
	var diff mat.Dense
	diff.Sub(a, b)
	r, c := diff.Dims()

	residuals := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		residuals = append(residuals, diff.RawRowView(i)...)
	}
	floats.Mul(residuals, residuals)
	return stat.Mean(residuals, nil)
}

// Clone returns a deep copy of the parameters.
func (m *Model) Clone() *Model {
	return &Model{
		W1: mat.DenseCopyOf(m.W1),
		B1: mat.VecDenseCopyOf(m.B1),
		W2: mat.DenseCopyOf(m.W2),
		B2: mat.VecDenseCopyOf(m.B2),
	}
}

// Equal reports whether both models hold exactly the same parameters.
func (m *Model) Equal(other *Model) bool {
	return mat.Equal(m.W1, other.W1) &&
		mat.Equal(m.B1, other.B1) &&
		mat.Equal(m.W2, other.W2) &&
		mat.Equal(m.B2, other.B2)
}

// addRow adds the vector b to every row of d.
func addRow(d *mat.Dense, b mat.Vector) {
	r, c := d.Dims()
	for i := 0; i < r; i++ {
		row := d.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] += b.AtVec(j)
		}
	}
}
