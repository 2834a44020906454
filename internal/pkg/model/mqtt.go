package model

// Wire payloads for the state topics. Firmware omits the online flag on most
// messages, so it is a pointer with an assumed-true default.

type StatePayload struct {
	Status DeviceStatus `json:"status"`
	Online *bool        `json:"online"`
}

type AlertStatePayload struct {
	Active bool  `json:"active"`
	Online *bool `json:"online"`
}

// LightStatePayload carries three logical devices in one message. The bedroom
// neopixel reports either an explicit on/off plus hex color, or a legacy
// nonzero color index meaning "on with palette color".
type LightStatePayload struct {
	Living        string `json:"living"`
	Outside       string `json:"outside"`
	Neopixel      string `json:"neopixel"`
	NeopixelColor string `json:"neopixelColor"`
	BedroomColor  int    `json:"bedroomColor"`
	Online        *bool  `json:"online"`
}

type DryerStatePayload struct {
	Out    bool  `json:"out"`
	Online *bool `json:"online"`
}

type DoorStatePayload struct {
	Abnormal bool `json:"abnormal"`
}

type GasSensorPayload struct {
	Level     float64 `json:"level"`
	Threshold float64 `json:"threshold"`
}

type FireSensorPayload struct {
	Detected bool    `json:"detected"`
	Value    float64 `json:"value"`
	Location string  `json:"location"`
}

type LightSensorPayload struct {
	Bright bool `json:"bright"`
}

type RainSensorPayload struct {
	Raining bool `json:"raining"`
}

type AlertEventPayload struct {
	Type    string     `json:"type"`
	Level   AlertLevel `json:"level"`
	Message string     `json:"message"`
}

type HeartbeatPayload struct {
	Device DeviceID `json:"device"`
}

func OnlineOrDefault(online *bool) bool {
	if online == nil {
		return true
	}
	return *online
}
