package model

// Profile is an advertising profile connected by an organization.
// ProfileID is the upstream scope identifier sent with every report request.
type Profile struct {
	ID             string `json:"id"`
	ProfileID      string `json:"profile_id"`
	OrganizationID string `json:"organization_id"`
	IsConnected    bool   `json:"is_connected"`
	Status         string `json:"status"`
}

const ProfileStatusActive = "ACTIVE"
