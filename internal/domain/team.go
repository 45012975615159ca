package domain

import (
	"strings"
	"time"
)

// Team groups users and tasks under one owner
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTeam creates a team owned by ownerID
func NewTeam(name, description string, ownerID int64) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidTeamName
	}
	now := time.Now().UTC()
	return &Team{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TeamMember links a user to a team. Membership rows carry their own id so
// joins and leaves are audited like any other entity.
type TeamMember struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"teamId"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
