package model

import "time"

type DeviceID string

func (id DeviceID) String() string {
	return string(id)
}

const (
	DeviceFan          DeviceID = "fan"
	DevicePump         DeviceID = "pump"
	DeviceAlarm        DeviceID = "alarm"
	DeviceWarningLight DeviceID = "warning_light"
	DeviceLightLiving  DeviceID = "light_living"
	DeviceLightOutdoor DeviceID = "light_outdoor"
	DeviceNeoBedroom   DeviceID = "neo_bedroom"
	DeviceDryerRack    DeviceID = "dryer_rack"
)

type DeviceStatus string

func (ds DeviceStatus) String() string {
	return string(ds)
}

const (
	StatusOn      DeviceStatus = "on"
	StatusOff     DeviceStatus = "off"
	StatusOpen    DeviceStatus = "open"
	StatusClosed  DeviceStatus = "closed"
	StatusUnknown DeviceStatus = "unknown"
)

// DeviceState is the canonical per-device record held by the store.
// LastUpdated doubles as the fencing token for optimistic commands, so it is
// kept at nanosecond resolution.
type DeviceState struct {
	Status      DeviceStatus `json:"status"`
	Online      bool         `json:"online"`
	LastUpdated int64        `json:"lastUpdated,omitempty"`
	Color       string       `json:"color,omitempty"`
	Mode        string       `json:"mode,omitempty"`
}

// Sensor readings are pointers: a nil reading means nothing received yet,
// which is distinct from a zero/false reading.
type SensorData struct {
	Gas   *GasReading   `json:"gas,omitempty"`
	Fire  *FireReading  `json:"fire,omitempty"`
	Light *LightReading `json:"light,omitempty"`
	Rain  *RainReading  `json:"rain,omitempty"`
	Dryer *DryerReading `json:"dryer,omitempty"`
}

type GasReading struct {
	Level     float64 `json:"level"`
	Threshold float64 `json:"threshold"`
}

type FireReading struct {
	Detected bool    `json:"detected"`
	Value    float64 `json:"value"`
}

type LightReading struct {
	Bright bool `json:"bright"`
}

type RainReading struct {
	Raining bool `json:"raining"`
}

type DryerReading struct {
	Out bool `json:"out"`
}

type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "INFO"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

type Alert struct {
	ID             int64      `json:"id"`
	Type           string     `json:"type"`
	Level          AlertLevel `json:"level"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"createdAt"`
	AcknowledgedBy *UserRef   `json:"acknowledgedBy,omitempty"`
}

type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type RfidLostEvent struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	CardUID  string `json:"cardUid"`
}

type EnrollmentResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Username string `json:"username,omitempty"`
}

func NowNano() int64 {
	return time.Now().UnixNano()
}
