// Package auth keeps the relay bearer token between runs.
//
// The token is issued by the account service out of band and handed to
// `woosh login`. It is cleared on logout and whenever the relay answers 401 or
// 403.
package auth
