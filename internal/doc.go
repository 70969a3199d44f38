// Package internal holds helpers shared by the authgate sub-packages that
// must not leak into the public API, currently token generation.
package internal
