package models

import "time"

type Role string

const (
	RoleParticipant Role = "PARTICIPANT"
	RoleReferee     Role = "REFEREE"
	RoleAdmin       Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleParticipant, RoleReferee, RoleAdmin:
		return true
	}
	return false
}

// BaselineRating is the rating every account starts with and full resets return to.
const BaselineRating = 1200

// User is the slice of the profile record this service owns: identity, role and rating.
// Rating is a projection of the rating ledger and is only changed through ledger entries.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Role      Role      `json:"role" db:"role"`
	Active    bool      `json:"active" db:"active"`
	Rating    int       `json:"rating" db:"rating"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Studio is a venue; only the owner may approve or reject battles hosted there.
type Studio struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	OwnerID string `json:"ownerId" db:"owner_id"`
}
