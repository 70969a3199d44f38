// Package httpapi exposes the password reset engine over the portal's JSON
// wire contract: three POST endpoints under /api/auth with stable error codes
// and the anti-enumeration success message.
//
// The handlers translate between HTTP and the engine's sentinel errors; they
// hold no reset logic of their own.
package httpapi
