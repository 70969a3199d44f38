// Package flows contains the orchestration for the reset token lifecycle as
// plain functions over a dependency struct. The Engine supplies closures for
// every side effect (limiter, store, mail queue, backend) plus a clock, which
// keeps the sequencing testable in isolation and the public package free of
// business logic interleaved with wiring.
package flows
