// Package session defines the client-side authentication state: the signed-in
// user, the bearer token and the lifecycle flags the UI gates navigation on.
package session

import "time"

// Status is the coarse authentication state derived from a Session.
type Status int

const (
	// StatusUnknown is the state before startup hydration completes.
	StatusUnknown Status = iota
	// StatusUnauthenticated means no usable session exists.
	StatusUnauthenticated
	// StatusAuthenticating means a login is in flight.
	StatusAuthenticating
	// StatusAuthenticated means a user and token are present.
	StatusAuthenticated
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticating:
		return "authenticating"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is a point-in-time copy of the authentication state.
type Session struct {
	User            *User
	Token           string
	IsAuthenticated bool
	IsInitialized   bool
	IsLoading       bool
	LastError       string

	// TokenExpiresAt is the token's exp claim when the token is a JWT,
	// zero otherwise.
	TokenExpiresAt time.Time
}

// Status derives the coarse state.
func (s Session) Status() Status {
	switch {
	case !s.IsInitialized:
		return StatusUnknown
	case s.IsAuthenticated:
		return StatusAuthenticated
	case s.IsLoading:
		return StatusAuthenticating
	default:
		return StatusUnauthenticated
	}
}

// TokenExpired reports whether the token carries an exp claim in the past.
func (s Session) TokenExpired(now time.Time) bool {
	return !s.TokenExpiresAt.IsZero() && !now.Before(s.TokenExpiresAt)
}

// Projection is the persisted shadow of a Session, stored under
// storage.KeyAuthSession for restoration across launches.
type Projection struct {
	State   ProjectedState `json:"state"`
	Version int            `json:"version"`
}

// ProjectedState holds the persisted fields.
type ProjectedState struct {
	User            *User   `json:"user"`
	Token           *string `json:"token"`
	IsAuthenticated bool    `json:"isAuthenticated"`
}
