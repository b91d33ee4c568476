// Package robot holds developed robots: a body plus the open-loop brain
// driving its hinges.
package robot

import "morphofit/internal/body"

// Oscillator drives one active hinge with
// Amplitude * sin(2*pi*Frequency*t + Phase).
type Oscillator struct {
	Amplitude float64
	Phase     float64
	Frequency float64
}

// Brain holds one oscillator per active hinge, in depth-first hinge order.
type Brain struct {
	Oscillators []Oscillator
}

type Robot struct {
	ID    string
	Body  *body.Body
	Brain Brain
}
