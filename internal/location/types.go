package location

import "time"

// Room represents a physical space in the simulated home. Devices
// belong to exactly one room.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
