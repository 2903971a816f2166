package device

import "fmt"

// ValidateDevice checks structural validity before persistence.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrInvalidDevice)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDevice)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDevice)
	}
	if d.RoomID == "" {
		return fmt.Errorf("%w: missing room_id", ErrInvalidDevice)
	}
	if d.Type == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidDevice)
	}
	if !validCategory(d.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidDevice, d.Category)
	}

	switch d.Category {
	case CategorySensor:
		if d.Config == nil {
			return fmt.Errorf("%w: sensor requires config", ErrInvalidDevice)
		}
		if d.Config.UpdateInterval < 1 {
			return fmt.Errorf("%w: update_interval must be >= 1 ms", ErrInvalidDevice)
		}
		if !validMode(d.Config.Mode) {
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidDevice, d.Config.Mode)
		}
	case CategoryActuator:
		if d.State.Powered == nil {
			return fmt.Errorf("%w: actuator requires powered state", ErrInvalidDevice)
		}
	}

	return nil
}

func validCategory(c Category) bool {
	for _, valid := range AllCategories() {
		if c == valid {
			return true
		}
	}
	return false
}

func validMode(m Mode) bool {
	for _, valid := range AllModes() {
		if m == valid {
			return true
		}
	}
	return false
}
