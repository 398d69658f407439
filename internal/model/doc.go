// Package model implements the tiny regression network trained and served by ai4.
//
// The network has one hidden layer of configurable width and a GELU
// activation. Parameters are plain gonum matrices so the trainer can update
// them in place and the artifact store can serialize them losslessly.
//
// Example Usage:
//
//	m := model.New(1, 4, 1, 42)
//	y := m.Forward(mat.NewDense(1, 1, []float64{0.25}))
//	fmt.Println(y.At(0, 0))
package model
