// Package simulator produces the agent's periodic device batches.
//
// A Simulator owns one random source and the current settings (device
// count, seed, weights). Each Run call draws a fresh batch, normalizes and
// scores it, and stamps it with a random batch ID. With a fixed seed the
// sequence of batches is reproducible across restarts.
//
// Reconfigure applies hot-reloaded settings. The random source is only
// replaced when the seed changes, so an unrelated change (say, new weights)
// does not restart a seeded sequence.
package simulator
