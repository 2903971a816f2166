package device

import "errors"

var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceExists is returned when creating a device with a duplicate ID.
	ErrDeviceExists = errors.New("device already exists")

	// ErrInvalidDevice is returned when a device fails validation.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrCategoryImmutable is returned when an update attempts to change
	// a device's category.
	ErrCategoryImmutable = errors.New("device category is immutable")
)
