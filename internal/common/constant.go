// Package common contains shared constants and sentinel errors used across
// gophtodo components.
package common

import "time"

// SessionCookieName is the name of the cookie carrying the session token.
const SessionCookieName = "auth-token"

// DefaultSessionLifetime is the lifetime of a session token and of the
// cookie that carries it.
const DefaultSessionLifetime = 7 * 24 * time.Hour
