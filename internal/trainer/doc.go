// Package trainer fits the tiny regression model on y = sin(2πx) with
// full-batch gradient descent and saves the result as a hashed artifact.
//
// Training is deterministic for a given seed. There is no early stopping, no
// momentum and no learning-rate schedule; diverging runs are saved as-is
// unless WithFailOnNaN is set.
package trainer
