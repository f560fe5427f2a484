// Package notify provides outbound e-mail senders.
//
// ResendSender delivers through the Resend API; NoopSender only logs and is
// used when e-mail is disabled. Both satisfy Sender.
package notify
