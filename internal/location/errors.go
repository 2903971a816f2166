package location

import "errors"

var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomExists is returned when creating a room with a duplicate ID.
	ErrRoomExists = errors.New("room already exists")

	// ErrInvalidRoom is returned when a room fails validation.
	ErrInvalidRoom = errors.New("invalid room")
)
