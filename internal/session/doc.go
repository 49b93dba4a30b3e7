// Package session reads sessions written by the web application that shares
// its session store with the relay. Sessions are keyed by the token carried in
// the session cookie and stored in the scs payload format.
package session
