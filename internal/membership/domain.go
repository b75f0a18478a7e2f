// internal/membership/domain.go
package membership

import (
	"time"
)

const StatusActive = "active"

// Member is the part of a membership record that decides borrowing rights.
type Member struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Status      string    `json:"status" db:"status"`
	FineBalance float64   `json:"fine_balance" db:"fine_balance"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
}

// Eligible reports whether the member may borrow at now:
// active, no outstanding fines and not expired. A zero ExpiresAt never expires.
func (m Member) Eligible(now time.Time) bool {
	if m.Status != StatusActive || m.FineBalance > 0 {
		return false
	}
	return m.ExpiresAt.IsZero() || now.Before(m.ExpiresAt)
}
