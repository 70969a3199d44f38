// Package limiters provides the fixed-window counters that bound how many
// reset requests an email address may issue per window. Two implementations
// share one contract: a process-local map (the default) and a Redis counter
// (INCR with an expiry on the window's first hit) for multi-instance
// deployments.
package limiters
