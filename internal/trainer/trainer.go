package trainer

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/GriffinCanCode/ai4/internal/artifact"
	"github.com/GriffinCanCode/ai4/internal/model"
	"github.com/GriffinCanCode/ai4/internal/shared/id"
)

const (
	// FiniteDiffEpsilon is the step of the central difference used for the
	// activation derivative.
	FiniteDiffEpsilon = 1e-3

	// TrainTask describes the synthetic regression problem in manifests.
	TrainTask = "y = sin(2*pi*x) on [0,1]"

	// DefaultEvalSamples and DefaultEvalSeed configure Evaluate.
	DefaultEvalSamples = 64
	DefaultEvalSeed    = 0
)

// ErrNonFinite is returned when FailOnNaN is set and training diverged.
var ErrNonFinite = errors.New("trainer: loss is not finite")

// Trainer runs full-batch gradient descent on the synthetic task and saves
// the result as an artifact.
type Trainer struct {
	logger    *zap.Logger
	ids       *id.Generator
	logEvery  int
	failOnNaN bool
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger used for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithLogEvery logs the loss every n epochs. Zero disables per-epoch logging.
func WithLogEvery(n int) Option {
	return func(t *Trainer) { t.logEvery = n }
}

// WithFailOnNaN rejects runs whose final loss is NaN or infinite instead of
// saving them.
func WithFailOnNaN(enabled bool) Option {
	return func(t *Trainer) { t.failOnNaN = enabled }
}

// WithIDGenerator overrides the run ID source.
func WithIDGenerator(g *id.Generator) Option {
	return func(t *Trainer) { t.ids = g }
}

// New creates a trainer.
func New(opts ...Option) *Trainer {
	t := &Trainer{
		logger: zap.NewNop(),
		ids:    id.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Result describes a finished training run.
type Result struct {
	RunID id.RunID
	Dir   string
	// Hash is the value recorded in the manifest, computed before the
	// manifest was rewritten to include it.
	Hash  string
	Loss  float64
	Model *model.Model
}

// Dataset draws n samples x ~ U(0,1) and targets y = sin(2πx), both n×1.
func Dataset(n int, seed uint64) (x, y *mat.Dense) {
	uniform := distuv.Uniform{Min: 0, Max: 1, Src: model.NewSource(seed)}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = uniform.Rand()
	}
	ys := make([]float64, n)
	for i, v := range xs {
		ys[i] = math.Sin(2 * math.Pi * v)
	}
	return mat.NewDense(n, 1, xs), mat.NewDense(n, 1, ys)
}

// Step performs one full-batch gradient descent update in place and returns
// the loss of the forward pass it was computed from.
//
// The activation derivative is a central finite difference evaluated at the
// hidden activations themselves, not at the pre-activations.
func Step(m *model.Model, x, y *mat.Dense, lr float64) float64 {
	n, _ := x.Dims()

	h := m.Hidden(x)
	pred := m.Output(h)
	loss := model.MSE(pred, y)

	var gradY mat.Dense
	gradY.Sub(pred, y)
	gradY.Scale(2/float64(n), &gradY)

	var gradW2 mat.Dense
	gradW2.Mul(h.T(), &gradY)
	gradB2 := sumRows(&gradY)

	var dh mat.Dense
	dh.Mul(&gradY, m.W2.T())

	var dgelu mat.Dense
	dgelu.Apply(func(_, _ int, v float64) float64 {
		return (model.GELU(v+FiniteDiffEpsilon) - model.GELU(v-FiniteDiffEpsilon)) / (2 * FiniteDiffEpsilon)
	}, h)

	var dx1 mat.Dense
	dx1.MulElem(&dh, &dgelu)

	var gradW1 mat.Dense
	gradW1.Mul(x.T(), &dx1)
	gradB1 := sumRows(&dx1)

	gradW2.Scale(lr, &gradW2)
	m.W2.Sub(m.W2, &gradW2)
	m.B2.AddScaledVec(m.B2, -lr, gradB2)
	gradW1.Scale(lr, &gradW1)
	m.W1.Sub(m.W1, &gradW1)
	m.B1.AddScaledVec(m.B1, -lr, gradB1)

	return loss
}

// sumRows returns the column sums of d.
func sumRows(d *mat.Dense) *mat.VecDense {
	_, c := d.Dims()
	out := mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		out.SetVec(j, floats.Sum(mat.Col(nil, j, d)))
	}
	return out
}

// Fit runs epochs gradient steps and returns the loss after the last update.
func (t *Trainer) Fit(m *model.Model, x, y *mat.Dense, epochs int, lr float64) float64 {
	for epoch := 0; epoch < epochs; epoch++ {
		loss := Step(m, x, y, lr)
		if t.logEvery > 0 && epoch%t.logEvery == 0 {
			t.logger.Debug("training step",
				zap.Int("epoch", epoch),
				zap.Float64("loss", loss))
		}
	}
	return m.Loss(x, y)
}

// Train fits a fresh model on the synthetic task and saves it to outDir with
// the full training manifest and its content hash.
func (t *Trainer) Train(hp Hyperparameters, outDir string) (*Result, error) {
	if err := hp.Validate(); err != nil {
		return nil, err
	}

	runID := t.ids.NewRunID()
	logger := t.logger.With(zap.String("run_id", runID.String()))
	logger.Info("training started",
		zap.Int("epochs", hp.Epochs),
		zap.Int("hidden", hp.Hidden),
		zap.Float64("learning_rate", hp.LearningRate),
		zap.Uint64("seed", hp.Seed),
		zap.String("out", outDir))

	x, y := Dataset(hp.Samples, hp.Seed)
	m := model.New(1, hp.Hidden, 1, hp.Seed)
	loss := t.Fit(m, x, y, hp.Epochs, hp.LearningRate)

	if t.failOnNaN && (math.IsNaN(loss) || math.IsInf(loss, 0)) {
		logger.Error("training diverged", zap.Float64("loss", loss))
		return nil, fmt.Errorf("%w: %v after %d epochs", ErrNonFinite, loss, hp.Epochs)
	}

	dir, hash, err := artifact.SaveHashed(m, outDir, artifact.Fields{
		{Key: artifact.KeyInputDim, Value: 1},
		{Key: artifact.KeyOutputDim, Value: 1},
		{Key: artifact.KeyHidden, Value: hp.Hidden},
		{Key: artifact.KeyTrainTask, Value: TrainTask},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}

	logger.Info("training finished",
		zap.Float64("loss", loss),
		zap.String("artifact", dir),
		zap.String("hash", hash))

	return &Result{
		RunID: runID,
		Dir:   dir,
		Hash:  hash,
		Loss:  loss,
		Model: m,
	}, nil
}

// Evaluate reloads the artifact in dir and returns its mean squared error on
// n fresh samples of the training task drawn with seed.
func Evaluate(dir string, n int, seed uint64) (float64, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: evaluation needs at least one sample", ErrInvalidHyperparameters)
	}
	m, err := artifact.Load(dir)
	if err != nil {
		return 0, err
	}
	if m.InputDim() != 1 || m.OutputDim() != 1 {
		return 0, fmt.Errorf("%w: expected a 1→1 model, got %d→%d",
			artifact.ErrMalformedArtifact, m.InputDim(), m.OutputDim())
	}
	x, y := Dataset(n, seed)
	return m.Loss(x, y), nil
}
