// Package liveness runs the backward per-component dataflow of spec.md
// §4.8 over both back-ends: GP IR's register loads/stores and PP LIR's
// scheduler-ready instruction list. internal/regalloc builds its
// interference graph directly from the results this package produces.
//
// The recurrence is the same on both sides — live_before(n) = (live_after(n)
// - def(n)) | use(n), block-in joined with phi contributions from
// successors — but the two IRs disagree enough on shape (gpir's registers
// are read through an expression DAG with phis at block heads; pplir's are
// read through a flat, phi-free instruction list with registers already
// explicit) that each gets its own file rather than a single generic walk.
package liveness

// Mask is a per-component liveness bit-vector: bit c set means component c
// of the register it's keyed against is live. GP registers carry at most 4
// components, so a single byte suffices there; PP LIR liveness instead uses
// internal/bitset.Set directly, since its registers are already flattened
// into a dense bit-index space before the walk begins.
type Mask = uint8
