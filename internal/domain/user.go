package domain

import "time"

type UserRole string

const (
	RoleArtist      UserRole = "artist"
	RoleStudioOwner UserRole = "studio_owner"
)

// User is the requester-side identity, owned by the external user directory.
// GatewayCustomerID is the one field this service writes back: when the
// payment gateway reports a stored customer as gone, the replacement id is
// persisted here.
type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug,omitempty"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	Role              UserRole  `json:"role"`
	GatewayCustomerID string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Studio struct {
	ID                int64     `json:"id"`
	OwnerID           int64     `json:"owner_id"`
	Name              string    `json:"name"`
	Slug              string    `json:"slug,omitempty"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	City              string    `json:"city,omitempty"`
	GatewayCustomerID string    `json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Room struct {
	ID         int64     `json:"id"`
	StudioID   int64     `json:"studio_id"`
	Name       string    `json:"name"`
	HourlyRate int64     `json:"hourly_rate"` // minor units per hour
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
