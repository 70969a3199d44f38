// Package gate is the request-interception layer in front of the portal: it
// classifies every inbound request (bypass, auth page, protected dashboard,
// protected API), derives the authentication state from the signed session
// token, and decides allow, redirect, or reject before any handler runs.
//
// # Architecture boundaries
//
// The gate translates HTTP semantics into allow/deny decisions. It does NOT
// implement the reset token lifecycle (that is the root package's Engine) and
// the two never call each other.
//
// # What this package must NOT do
//
//   - Issue session tokens (it only verifies; issuance belongs to the login
//     flow against the backend).
//   - Turn its own remote-validation failures into user-visible errors. The
//     gate is an availability-preserving layer: with
//     FailOpenOnIntrospectionError set (the default) an unreachable
//     introspection endpoint admits the request.
package gate
