package trainer

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidHyperparameters is returned when a hyperparameter is out of range.
var ErrInvalidHyperparameters = errors.New("trainer: invalid hyperparameters")

// Hyperparameters configures a training run.
type Hyperparameters struct {
	Epochs       int     `toml:"epochs"`
	Hidden       int     `toml:"hidden"`
	LearningRate float64 `toml:"learning_rate"`
	Seed         uint64  `toml:"seed"`
	Samples      int     `toml:"samples"`
}

// DefaultHyperparameters returns the reference training setup.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		Epochs:       200,
		Hidden:       4,
		LearningRate: 0.05,
		Seed:         42,
		Samples:      256,
	}
}

// Validate checks the ranges training relies on. Learning rates that make
// training diverge are accepted.
func (hp Hyperparameters) Validate() error {
	switch {
	case hp.Epochs < 0:
		return fmt.Errorf("%w: epochs must be >= 0, got %d", ErrInvalidHyperparameters, hp.Epochs)
	case hp.Hidden < 1:
		return fmt.Errorf("%w: hidden must be >= 1, got %d", ErrInvalidHyperparameters, hp.Hidden)
	case hp.Samples < 1:
		return fmt.Errorf("%w: samples must be >= 1, got %d", ErrInvalidHyperparameters, hp.Samples)
	}
	return nil
}

// LoadHyperparameters reads a TOML file over the defaults. Keys missing from
// the file keep their default value.
//
//	epochs = 500
//	hidden = 8
//	learning_rate = 0.02
func LoadHyperparameters(path string) (Hyperparameters, error) {
	hp := DefaultHyperparameters()

	data, err := os.ReadFile(path)
	if err != nil {
		return hp, fmt.Errorf("failed to read hyperparameters: %w", err)
	}
	if err := toml.Unmarshal(data, &hp); err != nil {
		return hp, fmt.Errorf("failed to parse hyperparameters %s: %w", path, err)
	}
	return hp, hp.Validate()
}
