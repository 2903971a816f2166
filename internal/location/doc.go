// Package location manages the rooms of the simulated home. Rooms are
// the only spatial grouping; every device references exactly one room.
package location
