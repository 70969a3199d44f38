// Package authgate implements the password-reset token lifecycle for a
// customer portal: single-use, time-bounded reset tokens, a fixed-window
// per-email rate limiter, and fire-and-forget delivery of reset links.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// and the collaborator interfaces ([Mailer], [PasswordBackend]). Flow
// orchestration, token stores, and limiters live under internal/ and are never
// exported. Request interception lives in the gate sub-package and does not
// call into the Engine; the two components share nothing but this module.
//
// # What this package must NOT do
//
//   - Hash or store passwords (the backend owns credentials; the Engine only
//     forwards the accepted new password).
//   - Reveal whether an email address has an account. RequestReset reports the
//     same success regardless; only the rate limiter leaks timing, and that is
//     a deliberate trade-off.
//   - Block a request on mail delivery. Sending happens on the dispatcher
//     goroutine after the store critical section; failures are logged and
//     swallowed.
package authgate
