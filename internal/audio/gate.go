// SPDX-License-Identifier: MIT
package audio

import "math"

// EnableGate turns the amplitude gate on: buffers whose peak amplitude
// stays at or below the threshold are not analyzed.
func (e *Engine) EnableGate() {
	e.gateEnabled.Store(true)
}

// DisableGate turns the amplitude gate off; every buffer is analyzed.
func (e *Engine) DisableGate() {
	e.gateEnabled.Store(false)
}

// SetGateThreshold adjusts the gate threshold. The value is clamped to
// [0, 1] where 0 means the gate is always open and 1 always closed.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	e.gateThreshold.Store(math.Float64bits(threshold))
}

// GateThreshold returns the current gate threshold in [0, 1].
func (e *Engine) GateThreshold() float64 {
	return math.Float64frombits(e.gateThreshold.Load())
}
