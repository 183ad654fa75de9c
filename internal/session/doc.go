// Package session owns authentication state: the persisted token and user ([Store]), the
// [Facade] that logs in, registers and logs out, and the route guards built on it.
//
// The facade is the only writer of the store. The request gateway reads the token from the
// store on every backend request and reports rejected tokens back through
// [Facade.HandleUnauthorized].
package session
