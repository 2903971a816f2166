package seed

import (
	"github.com/hearthhome/hearth-core/internal/automation"
	"github.com/hearthhome/hearth-core/internal/device"
	"github.com/hearthhome/hearth-core/internal/location"
)

// DefaultRooms returns the demo rooms.
func DefaultRooms() []location.Room {
	return []location.Room{
		{ID: "room_1", Name: "Kitchen"},
		{ID: "room_2", Name: "Bedroom"},
		{ID: "room_3", Name: "Hallway"},
	}
}

// DefaultDevices returns the demo devices: four sensors and five
// actuators spread over the demo rooms.
func DefaultDevices() []device.Device {
	return []device.Device{
		{
			ID:       "dev_1",
			Name:     "Temperature Sensor",
			RoomID:   "room_2",
			Category: device.CategorySensor,
			Type:     device.TypeTemperature,
			State:    device.NewSensorState(22.0),
			Config:   &device.SensorConfig{UpdateInterval: 2000, Mode: device.ModeSmooth},
		},
		{
			ID:       "dev_2",
			Name:     "Humidity Sensor",
			RoomID:   "room_2",
			Category: device.CategorySensor,
			Type:     device.TypeHumidity,
			State:    device.NewSensorState(50.0),
			Config:   &device.SensorConfig{UpdateInterval: 2000, Mode: device.ModeSmooth},
		},
		{
			ID:       "dev_3",
			Name:     "Motion Sensor",
			RoomID:   "room_3",
			Category: device.CategorySensor,
			Type:     device.TypeMotion,
			State:    device.NewSensorState(false),
			Config:   &device.SensorConfig{UpdateInterval: 1000, Mode: device.ModeRandom},
		},
		{
			ID:       "dev_4",
			Name:     "Light Sensor",
			RoomID:   "room_1",
			Category: device.CategorySensor,
			Type:     device.TypeLight,
			State:    device.NewSensorState(500.0),
			Config:   &device.SensorConfig{UpdateInterval: 2000, Mode: device.ModeSmooth},
		},
		{
			ID:       "dev_5",
			Name:     "Hallway Light",
			RoomID:   "room_3",
			Category: device.CategoryActuator,
			Type:     device.TypeLight,
			State:    device.NewActuatorState(),
		},
		{
			ID:       "dev_6",
			Name:     "Kitchen Light",
			RoomID:   "room_1",
			Category: device.CategoryActuator,
			Type:     device.TypeLight,
			State:    device.NewActuatorState(),
		},
		{
			ID:       "dev_7",
			Name:     "Kettle",
			RoomID:   "room_1",
			Category: device.CategoryActuator,
			Type:     device.TypeKettle,
			State:    device.NewActuatorState(),
		},
		{
			ID:       "dev_8",
			Name:     "Fan",
			RoomID:   "room_2",
			Category: device.CategoryActuator,
			Type:     device.TypeFan,
			State:    device.NewActuatorState(),
		},
		{
			ID:       "dev_9",
			Name:     "Heater",
			RoomID:   "room_2",
			Category: device.CategoryActuator,
			Type:     device.TypeHeater,
			State:    device.NewActuatorState(),
		},
	}
}

// DefaultRules returns the demo automations: fan on high temperature,
// hallway light on overnight motion.
func DefaultRules() []automation.Rule {
	high := 26.0
	return []automation.Rule{
		{
			ID:           "rule_1",
			Name:         "Turn on fan when temperature is high",
			Enabled:      true,
			IfSensorID:   "dev_1",
			Condition:    automation.ConditionGreater,
			Value:        &high,
			ThenDeviceID: "dev_8",
			Action:       "on",
		},
		{
			ID:           "rule_2",
			Name:         "Turn on light on motion at night",
			Enabled:      true,
			IfSensorID:   "dev_3",
			Condition:    automation.ConditionTriggered,
			TimeWindow:   &automation.TimeWindow{Start: "22:00", End: "06:00"},
			ThenDeviceID: "dev_5",
			Action:       "on",
		},
	}
}
