package simulation

import "math/rand/v2"

// Rand is the uniform source behind the probability gates. It is injected so
// tests can script exact draws; math/rand/v2's top-level functions are safe
// for concurrent use across a batch.
type Rand interface {
	Float64() float64
}

type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

func NewRand() Rand { return systemRand{} }
