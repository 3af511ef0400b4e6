package domain

import "time"

// Slot marks a room as taken on the check-in calendar day of a reservation.
type Slot struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	Day           time.Time `json:"day"`
	ReservationID *int64    `json:"reservation_id,omitempty"`
	CreatedOn     time.Time `json:"created_on"`
}
