package model

import "time"

// AdAccount holds the OAuth2 credentials used to call the reporting API.
type AdAccount struct {
	ID             string
	ClientID       string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	IsActive       bool
	UpdatedAt      time.Time
}
