// Package app wires application dependencies for the CLI.
//
// It loads Config from .env files and the environment, builds the logger,
// the session store backend, the relay client and the services, and exposes
// them via App and Wire for commands to use.
package app
