package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RoomStatus string

const (
	RoomStatusAvailable    RoomStatus = "AVAILABLE"
	RoomStatusOccupied     RoomStatus = "OCCUPIED"
	RoomStatusOutOfService RoomStatus = "OUT_OF_SERVICE"
)

type RoomType string

const (
	RoomTypeRoom RoomType = "ROOM"
	RoomTypeHall RoomType = "HALL"
)

// Room is a bookable unit. Status is informational except for
// OUT_OF_SERVICE, which is an administrative block.
type Room struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Type      RoomType        `json:"type"`
	Status    RoomStatus      `json:"status"`
	BasePrice decimal.Decimal `json:"base_price"`
	Capacity  int32           `json:"capacity"`
	CreatedOn time.Time       `json:"created_on"`
	UpdatedOn time.Time       `json:"updated_on"`
}

func (r *Room) OutOfService() bool {
	return r.Status == RoomStatusOutOfService
}
