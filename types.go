package authgate

import "context"

// Mailer delivers reset instructions to a recipient. Implementations may fail;
// the Engine logs and swallows delivery errors so that the reset request
// reports the same outcome whether or not the address exists.
//
// Calls are made from the dispatcher goroutine, never from the request path,
// and never while any store lock is held.
type Mailer interface {
	SendResetLink(ctx context.Context, recipient, link string) error
}

// PasswordBackend applies an accepted password change. The portal itself does
// not hash or store credentials; the backend API owns them.
type PasswordBackend interface {
	UpdatePassword(ctx context.Context, email, newPassword string) error
}

// nopMailer stands in when no Mailer is configured. Resets still complete;
// delivery is simply skipped.
type nopMailer struct{}

func (nopMailer) SendResetLink(context.Context, string, string) error { return nil }
