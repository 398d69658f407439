package trainer

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/GriffinCanCode/ai4/internal/artifact"
	"github.com/GriffinCanCode/ai4/internal/model"
)

// referenceStep is a scalar transcription of the update rule for 1→h→1
// networks, used to cross-check the matrix implementation.
func referenceStep(m *model.Model, xs, ys []float64, lr float64) {
	hidden := m.HiddenDim()
	n := float64(len(xs))

	gw1 := make([]float64, hidden)
	gb1 := make([]float64, hidden)
	gw2 := make([]float64, hidden)
	var gb2 float64

	for i, x := range xs {
		h := make([]float64, hidden)
		pred := m.B2.AtVec(0)
		for j := 0; j < hidden; j++ {
			h[j] = model.GELU(x*m.W1.At(0, j) + m.B1.AtVec(j))
			pred += h[j] * m.W2.At(j, 0)
		}
		gy := 2 / n * (pred - ys[i])
		gb2 += gy
		for j := 0; j < hidden; j++ {
			gw2[j] += h[j] * gy
			dgelu := (model.GELU(h[j]+FiniteDiffEpsilon) - model.GELU(h[j]-FiniteDiffEpsilon)) / (2 * FiniteDiffEpsilon)
			dx := gy * m.W2.At(j, 0) * dgelu
			gw1[j] += x * dx
			gb1[j] += dx
		}
	}

	for j := 0; j < hidden; j++ {
		m.W2.Set(j, 0, m.W2.At(j, 0)-lr*gw2[j])
		m.W1.Set(0, j, m.W1.At(0, j)-lr*gw1[j])
		m.B1.SetVec(j, m.B1.AtVec(j)-lr*gb1[j])
	}
	m.B2.SetVec(0, m.B2.AtVec(0)-lr*gb2)
}

func TestDatasetIsDeterministic(t *testing.T) {
	x1, y1 := Dataset(256, 42)
	x2, y2 := Dataset(256, 42)
	assert.True(t, mat.Equal(x1, x2))
	assert.True(t, mat.Equal(y1, y2))

	r, c := x1.Dims()
	assert.Equal(t, 256, r)
	assert.Equal(t, 1, c)

	for i := 0; i < r; i++ {
		x := x1.At(i, 0)
		assert.True(t, x >= 0 && x < 1, "x out of range: %v", x)
		assert.InDelta(t, math.Sin(2*math.Pi*x), y1.At(i, 0), 1e-15)
	}

	x3, _ := Dataset(256, 43)
	assert.False(t, mat.Equal(x1, x3))
}

func TestStepMatchesScalarReference(t *testing.T) {
	x, y := Dataset(32, 7)
	fast := model.New(1, 5, 1, 7)
	slow := fast.Clone()

	xs := mat.Col(nil, 0, x)
	ys := mat.Col(nil, 0, y)

	for i := 0; i < 5; i++ {
		Step(fast, x, y, 0.05)
		referenceStep(slow, xs, ys, 0.05)
	}

	assert.InDeltaSlice(t, slow.W1.RawMatrix().Data, fast.W1.RawMatrix().Data, 1e-12)
	assert.InDeltaSlice(t, slow.B1.RawVector().Data, fast.B1.RawVector().Data, 1e-12)
	assert.InDeltaSlice(t, slow.W2.RawMatrix().Data, fast.W2.RawMatrix().Data, 1e-12)
	assert.InDeltaSlice(t, slow.B2.RawVector().Data, fast.B2.RawVector().Data, 1e-12)
}

func TestStepReturnsPreUpdateLoss(t *testing.T) {
	x, y := Dataset(16, 1)
	m := model.New(1, 3, 1, 1)
	before := m.Loss(x, y)

	assert.Equal(t, before, Step(m, x, y, 0.05))
}

func TestFitReducesLoss(t *testing.T) {
	hp := DefaultHyperparameters()
	x, y := Dataset(hp.Samples, hp.Seed)
	m := model.New(1, hp.Hidden, 1, hp.Seed)
	initial := m.Loss(x, y)

	final := New().Fit(m, x, y, hp.Epochs, hp.LearningRate)
	assert.Less(t, final, initial)
}

func TestTrainWritesCompleteArtifact(t *testing.T) {
	for _, tc := range []struct {
		epochs, hidden int
	}{
		{0, 1},
		{3, 4},
		{25, 8},
	} {
		dir := filepath.Join(t.TempDir(), "model")
		hp := DefaultHyperparameters()
		hp.Epochs = tc.epochs
		hp.Hidden = tc.hidden

		res, err := New().Train(hp, dir)
		require.NoError(t, err)
		assert.Equal(t, dir, res.Dir)
		assert.True(t, artifact.Complete(dir))

		mse, err := Evaluate(dir, DefaultEvalSamples, DefaultEvalSeed)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(mse) || math.IsInf(mse, 0))
		assert.GreaterOrEqual(t, mse, 0.0)
	}
}

func TestTrainManifestSchema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema")
	hp := DefaultHyperparameters()
	hp.Epochs = 2
	hp.Hidden = 6

	res, err := New().Train(hp, dir)
	require.NoError(t, err)

	manifest, err := artifact.ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"name", "version", "created", "input_dim", "output_dim", "hidden", "train_task", "hash",
	}, manifest.Keys())
	assert.Equal(t, "schema", manifest.Name())
	assert.Equal(t, "0.1.0", manifest.StringField(artifact.KeyVersion))
	assert.Equal(t, TrainTask, manifest.StringField(artifact.KeyTrainTask))
	assert.Equal(t, res.Hash, manifest.Hash())
	assert.Len(t, manifest.Hash(), artifact.HashLength)

	hidden, ok := manifest.Int(artifact.KeyHidden)
	require.True(t, ok)
	assert.Equal(t, int64(6), hidden)

	loaded, err := artifact.Load(dir)
	require.NoError(t, err)
	assert.True(t, loaded.Equal(res.Model))
}

func TestTrainIsReproducible(t *testing.T) {
	hp := DefaultHyperparameters()
	hp.Epochs = 10

	a, err := New().Train(hp, filepath.Join(t.TempDir(), "a"))
	require.NoError(t, err)
	b, err := New().Train(hp, filepath.Join(t.TempDir(), "b"))
	require.NoError(t, err)

	assert.True(t, a.Model.Equal(b.Model))
	assert.Equal(t, a.Loss, b.Loss)
}

func TestTrainRejectsInvalidHyperparameters(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")

	hp := DefaultHyperparameters()
	hp.Hidden = 0
	_, err := New().Train(hp, dir)
	assert.ErrorIs(t, err, ErrInvalidHyperparameters)

	hp = DefaultHyperparameters()
	hp.Epochs = -1
	_, err = New().Train(hp, dir)
	assert.ErrorIs(t, err, ErrInvalidHyperparameters)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDivergenceIsSavedByDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diverged")
	hp := DefaultHyperparameters()
	hp.Epochs = 50
	hp.LearningRate = 1e6

	res, err := New().Train(hp, dir)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(res.Loss) || math.IsInf(res.Loss, 0))
	assert.True(t, artifact.Complete(dir))
}

func TestFailOnNaNRejectsDivergence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diverged")
	hp := DefaultHyperparameters()
	hp.Epochs = 50
	hp.LearningRate = 1e6

	_, err := New(WithFailOnNaN(true)).Train(hp, dir)
	assert.ErrorIs(t, err, ErrNonFinite)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "nothing is written for a rejected run")
}

func TestTrainLogsProgress(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tr := New(WithLogger(zap.New(core)), WithLogEvery(5))

	hp := DefaultHyperparameters()
	hp.Epochs = 10
	_, err := tr.Train(hp, filepath.Join(t.TempDir(), "logged"))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("training started").Len())
	assert.Equal(t, 2, logs.FilterMessage("training step").Len())

	finished := logs.FilterMessage("training finished").All()
	require.Len(t, finished, 1)
	assert.Contains(t, finished[0].ContextMap(), "run_id")
}

func TestEvaluateMissingArtifact(t *testing.T) {
	_, err := Evaluate(filepath.Join(t.TempDir(), "missing"), DefaultEvalSamples, DefaultEvalSeed)
	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "eval")
	hp := DefaultHyperparameters()
	hp.Epochs = 5
	_, err := New().Train(hp, dir)
	require.NoError(t, err)

	a, err := Evaluate(dir, 64, 0)
	require.NoError(t, err)
	b, err := Evaluate(dir, 64, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
