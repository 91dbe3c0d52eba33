// Package compute implements the deterministic device pipeline:
// Generate → Normalize → Score.
//
// generate.go draws synthetic per-device metrics from an injected *rand.Rand
// so callers (and tests) control reproducibility. normalize.go rescales each
// metric column into [0, 1] with min-max scaling; a column whose values are
// all equal maps to 0.0. score.go combines the inverted normalized values
// with caller-supplied weights and stable-sorts devices by score, highest
// first.
//
// Seeds feed math/rand's NewSource. Three devices drawn with seed 42 are:
//
//	Device_1  bandwidth 43.57  latency  7.97  packet loss 3.02
//	Device_2  bandwidth 28.79  latency  6.97  packet loss 1.92
//	Device_3  bandwidth 83.16  latency 22.30  packet loss 1.92
//
// projection.go is a separate, fixed-percentage what-if: it reduces each raw
// metric by a constant share and reports original and projected values side
// by side. It has nothing to do with the scorer.
//
// Every function returns a new slice. Inputs are never mutated.
package compute
