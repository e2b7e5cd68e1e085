package domain

import "time"

// TokenKind distinguishes the purpose a signed token was issued for.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
	TokenConfirm TokenKind = "confirm"
	TokenReset   TokenKind = "reset"
)

// Claims is the decoded content of a verified token.
type Claims struct {
	UserID    string
	Role      Role
	Kind      TokenKind
	SessionID string
	ExpiresAt time.Time
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Principal is the authenticated caller attached to a request by the guard.
type Principal struct {
	UserID    string
	Role      Role
	SessionID string
	Token     string
}
