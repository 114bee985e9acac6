// Package auth performs the login exchange with the execution server.
// One login may be pending at a time; the authenticated flag is tied to
// the connection and clears when it goes away.
package auth
