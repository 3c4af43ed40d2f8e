package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner represents a referral partner (gestoría, driving school, etc.)
// whose code can be attached to incoming cases.
type Partner struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
