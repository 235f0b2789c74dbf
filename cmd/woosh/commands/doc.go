// Package commands defines the woosh CLI.
//
// Commands
//
//   - login          Save the relay bearer token
//   - logout         Remove the saved token
//   - start          Agree on a key with a peer and store it
//   - list           List chats on the relay
//   - show           Fetch and decrypt a chat once
//   - send           Encrypt and send a message
//   - read           Mark the peer's messages read
//   - watch          Live conversation with polling and expiry countdowns
//   - forget         Delete a stored chat key
//   - fingerprint    Print a chat key fingerprint for out-of-band comparison
//
// # Implementation
//
// The root command loads configuration (.env files, WOOSH_* variables, then
// flags) and builds the dependency graph before any subcommand runs, so
// handlers share one app context. The store is closed after the command.
package commands
