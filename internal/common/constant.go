// Package common contains shared constants and sentinel errors used across
// the lost-and-found server components.
package common

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "session"
