// Package stores provides the reset token stores behind the Engine: a
// process-local in-memory map (the default, state lost on restart) and a
// Redis-backed variant for multi-instance deployments.
//
// Both implement the same contract: Save is keyed by the token string,
// Consume is an atomic check-and-mark-used (exactly one caller wins a race),
// and Sweep deletes every used or expired record in one pass.
package stores
