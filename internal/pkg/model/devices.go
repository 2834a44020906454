package model

import (
	"github.com/gosimple/slug"
	"github.com/samber/lo"
)

type Room string

const (
	RoomBedroom   Room = "bedroom"
	RoomLiving    Room = "living"
	RoomOutdoor   Room = "outdoor"
	RoomEmergency Room = "emergency"
)

// DeviceConfig describes a controllable device: where its state arrives, where
// commands go, and which wire name disambiguates it on shared topics.
type DeviceConfig struct {
	ID           DeviceID `json:"id"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Room         Room     `json:"room"`
	Emergency    bool     `json:"emergency"`
	ColorCapable bool     `json:"colorCapable,omitempty"`
	Wire         string   `json:"wire,omitempty"`
	StateTopic   Topic    `json:"stateTopic"`
	ControlTopic Topic    `json:"controlTopic"`
}

var devices = buildRegistry([]DeviceConfig{
	{
		ID:           DeviceAlarm,
		Name:         "Alarm Siren",
		Room:         RoomEmergency,
		Emergency:    true,
		StateTopic:   TopicAlertState,
		ControlTopic: TopicAlertControl,
	},
	{
		ID:           DeviceWarningLight,
		Name:         "Warning Light",
		Room:         RoomEmergency,
		Emergency:    true,
		StateTopic:   TopicAlertState,
		ControlTopic: TopicAlertControl,
	},
	{
		ID:           DeviceFan,
		Name:         "Fan",
		Room:         RoomEmergency,
		Emergency:    true,
		StateTopic:   TopicFanState,
		ControlTopic: TopicFanControl,
	},
	{
		ID:           DevicePump,
		Name:         "Pump",
		Room:         RoomEmergency,
		Emergency:    true,
		StateTopic:   TopicPumpState,
		ControlTopic: TopicPumpControl,
	},
	{
		ID:           DeviceNeoBedroom,
		Name:         "NeoPixel LED",
		Room:         RoomBedroom,
		ColorCapable: true,
		Wire:         "neopixel",
		StateTopic:   TopicLightState,
		ControlTopic: TopicLightControl,
	},
	{
		ID:           DeviceLightLiving,
		Name:         "Living Room Light",
		Room:         RoomLiving,
		Wire:         "living",
		StateTopic:   TopicLightState,
		ControlTopic: TopicLightControl,
	},
	{
		ID:           DeviceLightOutdoor,
		Name:         "Outdoor Light",
		Room:         RoomOutdoor,
		Wire:         "outside",
		StateTopic:   TopicLightState,
		ControlTopic: TopicLightControl,
	},
	{
		ID:           DeviceDryerRack,
		Name:         "Dryer Rack",
		Room:         RoomOutdoor,
		Wire:         "dryer",
		StateTopic:   TopicDryerState,
		ControlTopic: TopicDryerControl,
	},
})

func buildRegistry(configs []DeviceConfig) []DeviceConfig {
	return lo.Map(configs, func(cfg DeviceConfig, _ int) DeviceConfig {
		cfg.Slug = slug.Make(cfg.Name)
		return cfg
	})
}

func Devices() []DeviceConfig {
	return devices
}

func DeviceByID(id DeviceID) (DeviceConfig, bool) {
	return lo.Find(devices, func(cfg DeviceConfig) bool {
		return cfg.ID == id
	})
}

func DevicesByRoom(room Room) []DeviceConfig {
	return lo.Filter(devices, func(cfg DeviceConfig, _ int) bool {
		return cfg.Room == room && !cfg.Emergency
	})
}

func EmergencyDevices() []DeviceConfig {
	return lo.Filter(devices, func(cfg DeviceConfig, _ int) bool {
		return cfg.Emergency
	})
}

func DeviceIDs() []DeviceID {
	return lo.Map(devices, func(cfg DeviceConfig, _ int) DeviceID {
		return cfg.ID
	})
}
