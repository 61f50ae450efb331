package models

import "time"

// SessionState tracks how far a session has progressed through the
// login -> OTP -> cart flow.
type SessionState string

const (
	StateUnauthenticated SessionState = "UNAUTHENTICATED"
	StateOTPPending      SessionState = "OTP_PENDING"
	StateAuthenticated   SessionState = "AUTHENTICATED"
	StateCartBuilding    SessionState = "CART_BUILDING"
	StateCartReady       SessionState = "CART_READY"
	StateFailed          SessionState = "FAILED"
)

// Terminal reports whether no further operations are allowed on the session.
func (s SessionState) Terminal() bool {
	return s == StateFailed
}

// Cookie is an opaque browser cookie captured from a live session.
// Expires is seconds since the Unix epoch; zero means a session cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// SessionData is the durable record of one user's progress on one platform.
// The live browser context is not part of this record; only the logical
// session survives a process restart.
type SessionData struct {
	ID              string       `json:"id"`
	PhoneNumber     string       `json:"phoneNumber"`
	Platform        string       `json:"platform"`
	State           SessionState `json:"state"`
	Cookies         []Cookie     `json:"cookies"`
	CurrentURL      string       `json:"currentUrl"`
	DOMSnapshot     string       `json:"domSnapshot,omitempty"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	FailureReason   string       `json:"failureReason,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// Redacted returns a copy safe to hand back to API callers: the DOM snapshot
// can be multiple megabytes and is only kept for recovery and debugging.
func (s *SessionData) Redacted() *SessionData {
	c := *s
	c.DOMSnapshot = ""
	return &c
}
