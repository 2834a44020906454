package decoder

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vittapcode/homeboard/internal/pkg/heartbeat"
	"github.com/vittapcode/homeboard/internal/pkg/model"
	"github.com/vittapcode/homeboard/internal/pkg/notify"
	"github.com/vittapcode/homeboard/internal/pkg/store"
)

// Decoder turns raw topic/payload pairs into typed mutations of the shared
// store plus fan-out side effects. A malformed payload is logged and dropped;
// it never panics and never leaves a partial mutation behind. Every accepted
// message ends in exactly one store notification.
type Decoder struct {
	store   *store.Store
	hub     *notify.Hub
	tracker *heartbeat.Tracker
	logger  *zap.Logger
}

func New(st *store.Store, hub *notify.Hub, tracker *heartbeat.Tracker) *Decoder {
	return &Decoder{
		store:   st,
		hub:     hub,
		tracker: tracker,
		logger:  zap.L(),
	}
}

func (d *Decoder) Handle(topic string, payload []byte) {
	d.logger.Debug("received message", zap.String("topic", topic), zap.ByteString("payload", payload))

	switch model.Topic(topic) {
	case model.TopicFanState:
		d.handleDeviceState(model.TopicFanState, model.DeviceFan, payload)
	case model.TopicPumpState:
		d.handleDeviceState(model.TopicPumpState, model.DevicePump, payload)
	case model.TopicAlertState:
		d.handleAlertState(payload)
	case model.TopicLightState:
		d.handleLightState(payload)
	case model.TopicDryerState:
		d.handleDryerState(payload)
	case model.TopicDoorState:
		d.handleDoorState(payload)
	case model.TopicSensorGas:
		d.handleGasSensor(payload)
	case model.TopicSensorFire:
		d.handleFireSensor(payload)
	case model.TopicSensorLight:
		d.handleLightSensor(payload)
	case model.TopicSensorRain:
		d.handleRainSensor(payload)
	case model.TopicHeartbeat:
		d.handleHeartbeat(payload)
	case model.TopicAlertEvent:
		d.handleAlertEvent(payload)
	case model.TopicAlertNew:
		d.handleAlertNew(payload)
	case model.TopicRfidLost:
		d.handleRfidLost(payload)
	case model.TopicEnrollment:
		d.handleEnrollment(payload)
	default:
		d.logger.Debug("ignoring message on unhandled topic", zap.String("topic", topic))
	}
}

// unmarshal reports a decode failure and tells the caller to drop the message.
func (d *Decoder) unmarshal(topic string, payload []byte, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		d.logger.Error("dropping malformed payload", zap.String("topic", topic), zap.Error(err))
		return false
	}
	return true
}

func (d *Decoder) handleDeviceState(topic model.Topic, id model.DeviceID, payload []byte) {
	var msg model.StatePayload
	if !d.unmarshal(topic.String(), payload, &msg) {
		return
	}
	d.tracker.Touch(id)
	d.store.Update(func(tx *store.Txn) {
		tx.SetDevice(id, model.DeviceState{
			Status:      msg.Status,
			Online:      model.OnlineOrDefault(msg.Online),
			LastUpdated: model.NowNano(),
		})
	})
}

// One active flag drives both the siren and the warning light; they change in
// the same transaction so subscribers never see them split.
func (d *Decoder) handleAlertState(payload []byte) {
	var msg model.AlertStatePayload
	if !d.unmarshal(model.TopicAlertState.String(), payload, &msg) {
		return
	}
	status := model.StatusOff
	if msg.Active {
		status = model.StatusOn
	}
	state := model.DeviceState{
		Status:      status,
		Online:      model.OnlineOrDefault(msg.Online),
		LastUpdated: model.NowNano(),
	}
	d.tracker.Touch(model.DeviceAlarm)
	d.tracker.Touch(model.DeviceWarningLight)
	d.store.Update(func(tx *store.Txn) {
		tx.SetDevice(model.DeviceAlarm, state)
		tx.SetDevice(model.DeviceWarningLight, state)
	})
}

func (d *Decoder) handleLightState(payload []byte) {
	var msg model.LightStatePayload
	if !d.unmarshal(model.TopicLightState.String(), payload, &msg) {
		return
	}
	online := model.OnlineOrDefault(msg.Online)
	now := model.NowNano()

	living := model.DeviceState{Status: model.StatusOff, Online: online, LastUpdated: now}
	if msg.Living == "on" {
		living.Status = model.StatusOn
	}

	// The outdoor light's auto mode is displayed as on regardless of its
	// actual illumination; the reported mode is kept for the UI.
	outdoor := model.DeviceState{Status: model.StatusOff, Online: online, LastUpdated: now, Mode: msg.Outside}
	if msg.Outside == "auto" {
		outdoor.Status = model.StatusOn
	}

	neoOn := msg.Neopixel == "on" || msg.BedroomColor > 0
	neo := model.DeviceState{Status: model.StatusOff, Online: online, LastUpdated: now}
	if neoOn {
		neo.Status = model.StatusOn
	}

	d.tracker.Touch(model.DeviceLightLiving)
	d.tracker.Touch(model.DeviceLightOutdoor)
	d.tracker.Touch(model.DeviceNeoBedroom)
	d.store.Update(func(tx *store.Txn) {
		// The last user-chosen color survives messages that do not carry one,
		// including off, so a later bare "on" lights up in the same color.
		neo.Color = tx.Device(model.DeviceNeoBedroom).Color
		if msg.NeopixelColor != "" {
			neo.Color = msg.NeopixelColor
		} else if msg.BedroomColor > 0 {
			neo.Color = model.ColorFromIndex(msg.BedroomColor)
		}
		tx.SetDevice(model.DeviceLightLiving, living)
		tx.SetDevice(model.DeviceLightOutdoor, outdoor)
		tx.SetDevice(model.DeviceNeoBedroom, neo)
	})
}

// The extended flag lands twice: as the rack's open/closed status and as a
// sensor reading. Both happen in one transaction.
func (d *Decoder) handleDryerState(payload []byte) {
	var msg model.DryerStatePayload
	if !d.unmarshal(model.TopicDryerState.String(), payload, &msg) {
		return
	}
	status := model.StatusClosed
	if msg.Out {
		status = model.StatusOpen
	}
	d.tracker.Touch(model.DeviceDryerRack)
	d.store.Update(func(tx *store.Txn) {
		tx.SetDevice(model.DeviceDryerRack, model.DeviceState{
			Status:      status,
			Online:      model.OnlineOrDefault(msg.Online),
			LastUpdated: model.NowNano(),
		})
		tx.Sensors().Dryer = &model.DryerReading{Out: msg.Out}
	})
}

// The abnormal flag raises a warning but mutates no state.
func (d *Decoder) handleDoorState(payload []byte) {
	var msg model.DoorStatePayload
	if !d.unmarshal(model.TopicDoorState.String(), payload, &msg) {
		return
	}
	if msg.Abnormal {
		d.hub.Messages.Warning("Door warning", "Abnormal access detected")
	}
	d.store.Notify()
}

func (d *Decoder) handleGasSensor(payload []byte) {
	var msg model.GasSensorPayload
	if !d.unmarshal(model.TopicSensorGas.String(), payload, &msg) {
		return
	}
	d.store.Update(func(tx *store.Txn) {
		tx.Sensors().Gas = &model.GasReading{Level: msg.Level, Threshold: msg.Threshold}
	})
	// Strictly above: a reading at the threshold does not alert.
	if msg.Level > msg.Threshold {
		d.hub.Messages.Error("Gas leak", fmt.Sprintf("Concentration: %g ppm", msg.Level))
	}
}

func (d *Decoder) handleFireSensor(payload []byte) {
	var msg model.FireSensorPayload
	if !d.unmarshal(model.TopicSensorFire.String(), payload, &msg) {
		return
	}
	d.store.Update(func(tx *store.Txn) {
		tx.Sensors().Fire = &model.FireReading{Detected: msg.Detected, Value: msg.Value}
	})
	if msg.Detected {
		location := msg.Location
		if location == "" {
			location = "unknown location"
		}
		d.hub.Messages.Error("Fire detected", location)
	}
}

func (d *Decoder) handleLightSensor(payload []byte) {
	var msg model.LightSensorPayload
	if !d.unmarshal(model.TopicSensorLight.String(), payload, &msg) {
		return
	}
	d.store.Update(func(tx *store.Txn) {
		tx.Sensors().Light = &model.LightReading{Bright: msg.Bright}
	})
}

func (d *Decoder) handleRainSensor(payload []byte) {
	var msg model.RainSensorPayload
	if !d.unmarshal(model.TopicSensorRain.String(), payload, &msg) {
		return
	}
	d.store.Update(func(tx *store.Txn) {
		tx.Sensors().Rain = &model.RainReading{Raining: msg.Raining}
	})
}

// A heartbeat refreshes liveness only. The fencing timestamp is deliberately
// untouched so an in-flight command deadline still resolves correctly.
func (d *Decoder) handleHeartbeat(payload []byte) {
	var msg model.HeartbeatPayload
	if !d.unmarshal(model.TopicHeartbeat.String(), payload, &msg) {
		return
	}
	if _, known := model.DeviceByID(msg.Device); !known {
		d.logger.Debug("heartbeat for unknown device", zap.String("device", msg.Device.String()))
		return
	}
	d.tracker.Touch(msg.Device)
	d.store.Update(func(tx *store.Txn) {
		tx.SetOnline(msg.Device, true)
	})
}

func (d *Decoder) handleAlertEvent(payload []byte) {
	var msg model.AlertEventPayload
	if !d.unmarshal(model.TopicAlertEvent.String(), payload, &msg) {
		return
	}
	d.raiseAlertMessage(msg.Type, msg.Level, msg.Message)
	d.store.Notify()
}

// Real-time alerts from the backend bump the unread counter and fan out to
// alert listeners before the toast is shown.
func (d *Decoder) handleAlertNew(payload []byte) {
	var alert model.Alert
	if !d.unmarshal(model.TopicAlertNew.String(), payload, &alert) {
		return
	}
	d.hub.Unread.Increment()
	d.hub.Alerts.Emit(alert)
	d.raiseAlertMessage(alert.Type, alert.Level, alert.Message)
	d.store.Notify()
}

func (d *Decoder) raiseAlertMessage(alertType string, level model.AlertLevel, message string) {
	if level == model.AlertLevelCritical {
		d.hub.Messages.Error(alertType, message)
		return
	}
	d.hub.Messages.Warning(alertType, message)
}

func (d *Decoder) handleRfidLost(payload []byte) {
	var event model.RfidLostEvent
	if !d.unmarshal(model.TopicRfidLost.String(), payload, &event) {
		return
	}
	d.hub.RfidLost.Emit(event)
	d.hub.Messages.Warning("RFID card lost", fmt.Sprintf("%s reported their card lost", event.Username))
	d.store.Notify()
}

func (d *Decoder) handleEnrollment(payload []byte) {
	var result model.EnrollmentResult
	if !d.unmarshal(model.TopicEnrollment.String(), payload, &result) {
		return
	}
	d.hub.Enrollment.Emit(result)
	if result.Success {
		message := result.Message
		if message == "" {
			message = fmt.Sprintf("Card enrolled for %s", result.Username)
		}
		d.hub.Messages.Info("Card enrollment", message)
	}
	d.store.Notify()
}
