// Package conversation is the view model behind one open chat.
//
// A View moves through Uninitialized, KeyPending, Ready and Closed. While it
// runs it polls the relay on a fixed interval: mark the peer's messages read,
// fetch the batch, open each message, and publish a fresh snapshot. Each
// message read by the recipient carries an expiry time, and Remaining/Label
// turn it into a countdown for display.
//
// At most one poll is in flight per view; a tick that fires while the
// previous poll is still running is skipped. Results that complete after
// Close are dropped. A 401 or 403 from the relay clears the stored token and
// closes the view.
package conversation
