// Package token signs and verifies the portal's session tokens: compact
// HS256 JWTs carrying the account subject and email, verified with the shared
// server secret. Absence or failure of verification means unauthenticated —
// the gate never treats a broken token as an error condition.
package token
