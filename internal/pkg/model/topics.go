package model

type Topic string

func (t Topic) String() string {
	return string(t)
}

const (
	TopicFanState      Topic = "home/fan/state"
	TopicPumpState     Topic = "home/pump/state"
	TopicDoorState     Topic = "home/door/state"
	TopicLightState    Topic = "home/light/state"
	TopicAlertState    Topic = "home/alert/state"
	TopicDryerState    Topic = "home/dryer/state"
	TopicSensorGas     Topic = "home/sensor/gas"
	TopicSensorFire    Topic = "home/sensor/fire"
	TopicSensorLight   Topic = "home/sensor/light"
	TopicSensorRain    Topic = "home/sensor/rain"
	TopicHeartbeat     Topic = "home/device/heartbeat"
	TopicAlertEvent    Topic = "home/alert"
	TopicAlertNew      Topic = "home/alert/new"
	TopicRfidLost      Topic = "home/rfid/lost"
	TopicEnrollment    Topic = "door/enrollment/result"
	TopicFanControl    Topic = "home/fan/control"
	TopicPumpControl   Topic = "home/pump/control"
	TopicAlertControl  Topic = "home/alert/control"
	TopicLightControl  Topic = "home/light/control"
	TopicDryerControl  Topic = "home/dryer/control"
)

// SubscribedTopics is the fixed set the connection manager subscribes to on
// every (re)connect.
var SubscribedTopics = []Topic{
	TopicFanState,
	TopicPumpState,
	TopicDoorState,
	TopicLightState,
	TopicAlertState,
	TopicDryerState,
	TopicSensorGas,
	TopicSensorFire,
	TopicSensorLight,
	TopicSensorRain,
	TopicHeartbeat,
	TopicAlertEvent,
	TopicAlertNew,
	TopicRfidLost,
	TopicEnrollment,
}
