package domain

import "time"

// ChatRoom is the per-ticket conversation channel. Participants are fully
// re-synced on every IN_PROGRESS transition; membership is never additive.
type ChatRoom struct {
	ID           int64
	TicketID     int64
	Active       bool
	Participants []int64
	CreatedAt    time.Time
}
