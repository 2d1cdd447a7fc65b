package settings

import (
	"github.com/google/uuid"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// wireCameraActuators is the JSON-serializable mirror of
// actuators.CameraActuators; kept separate from the domain type so the
// actuators package never needs to know about the on-disk encoding.
type wireCameraActuators struct {
	Parameters     wireParameters            `json:"parameters"`
	ClosestPoints  []actuators.FocusZoomPoint `json:"closest_points"`
	FurthestPoints []actuators.FocusZoomPoint `json:"furthest_points"`
	State          actuators.ActuatorsState   `json:"state"`
}

type wireParameters struct {
	CameraID int `json:"camera_id"`

	FocusChannel                  actuators.ServoChannel  `json:"focus_channel"`
	FocusChannelMin               uint16                  `json:"focus_channel_min"`
	FocusChannelTrim              uint16                  `json:"focus_channel_trim"`
	FocusChannelMax               uint16                  `json:"focus_channel_max"`
	FocusMarginGain               float32                 `json:"focus_margin_gain"`
	ScriptChannel                 actuators.ServoChannel  `json:"script_channel"`
	ScriptFunction                actuators.ScriptFunction `json:"script_function"`
	ScriptChannelMin              uint16                  `json:"script_channel_min"`
	ScriptChannelTrim             uint16                  `json:"script_channel_trim"`
	ScriptChannelMax              uint16                  `json:"script_channel_max"`
	EnableFocusAndZoomCorrelation bool                    `json:"enable_focus_and_zoom_correlation"`

	ZoomChannel     actuators.ServoChannel `json:"zoom_channel"`
	ZoomChannelMin  uint16                 `json:"zoom_channel_min"`
	ZoomChannelTrim uint16                 `json:"zoom_channel_trim"`
	ZoomChannelMax  uint16                 `json:"zoom_channel_max"`

	TiltChannel         actuators.ServoChannel `json:"tilt_channel"`
	TiltChannelMin      uint16                 `json:"tilt_channel_min"`
	TiltChannelTrim     uint16                 `json:"tilt_channel_trim"`
	TiltChannelMax      uint16                 `json:"tilt_channel_max"`
	TiltChannelReversed bool                   `json:"tilt_channel_reversed"`

	TiltMountType     actuators.MountType `json:"tilt_mnt_type"`
	TiltMountPitchMin int32               `json:"tilt_mnt_pitch_min"`
	TiltMountPitchMax int32               `json:"tilt_mnt_pitch_max"`
}

func toWireParameters(p actuators.ActuatorsParameters) wireParameters {
	return wireParameters{
		CameraID:                      p.CameraID,
		FocusChannel:                  p.FocusChannel,
		FocusChannelMin:               p.FocusChannelMin,
		FocusChannelTrim:              p.FocusChannelTrim,
		FocusChannelMax:               p.FocusChannelMax,
		FocusMarginGain:               p.FocusMarginGain,
		ScriptChannel:                 p.ScriptChannel,
		ScriptFunction:                p.ScriptFunction,
		ScriptChannelMin:              p.ScriptChannelMin,
		ScriptChannelTrim:             p.ScriptChannelTrim,
		ScriptChannelMax:              p.ScriptChannelMax,
		EnableFocusAndZoomCorrelation: p.EnableFocusAndZoomCorrelation,
		ZoomChannel:                   p.ZoomChannel,
		ZoomChannelMin:                p.ZoomChannelMin,
		ZoomChannelTrim:               p.ZoomChannelTrim,
		ZoomChannelMax:                p.ZoomChannelMax,
		TiltChannel:                   p.TiltChannel,
		TiltChannelMin:                p.TiltChannelMin,
		TiltChannelTrim:               p.TiltChannelTrim,
		TiltChannelMax:                p.TiltChannelMax,
		TiltChannelReversed:           p.TiltChannelReversed,
		TiltMountType:                 p.TiltMountType,
		TiltMountPitchMin:             p.TiltMountPitchMin,
		TiltMountPitchMax:             p.TiltMountPitchMax,
	}
}

func fromWireParameters(w wireParameters) actuators.ActuatorsParameters {
	return actuators.ActuatorsParameters{
		CameraID:                      w.CameraID,
		FocusChannel:                  w.FocusChannel,
		FocusChannelMin:               w.FocusChannelMin,
		FocusChannelTrim:              w.FocusChannelTrim,
		FocusChannelMax:               w.FocusChannelMax,
		FocusMarginGain:               w.FocusMarginGain,
		ScriptChannel:                 w.ScriptChannel,
		ScriptFunction:                w.ScriptFunction,
		ScriptChannelMin:              w.ScriptChannelMin,
		ScriptChannelTrim:             w.ScriptChannelTrim,
		ScriptChannelMax:              w.ScriptChannelMax,
		EnableFocusAndZoomCorrelation: w.EnableFocusAndZoomCorrelation,
		ZoomChannel:                   w.ZoomChannel,
		ZoomChannelMin:                w.ZoomChannelMin,
		ZoomChannelTrim:               w.ZoomChannelTrim,
		ZoomChannelMax:                w.ZoomChannelMax,
		TiltChannel:                   w.TiltChannel,
		TiltChannelMin:                w.TiltChannelMin,
		TiltChannelTrim:               w.TiltChannelTrim,
		TiltChannelMax:                w.TiltChannelMax,
		TiltChannelReversed:           w.TiltChannelReversed,
		TiltMountType:                 w.TiltMountType,
		TiltMountPitchMin:             w.TiltMountPitchMin,
		TiltMountPitchMax:             w.TiltMountPitchMax,
	}
}

func toRaw(d *Data) rawData {
	payload := rawPayload{Actuators: make(map[uuid.UUID]wireCameraActuators, len(d.Actuators))}
	for id, ca := range d.Actuators {
		payload.Actuators[id] = wireCameraActuators{
			Parameters:     toWireParameters(ca.Parameters),
			ClosestPoints:  []actuators.FocusZoomPoint(ca.ClosestPoints),
			FurthestPoints: []actuators.FocusZoomPoint(ca.FurthestPoints),
			State:          ca.State,
		}
	}
	return rawData{Version: V1, Data: payload}
}

func fromRaw(raw rawData) *Data {
	d := NewData()
	if raw.Version == V0 {
		return d
	}
	for id, wire := range raw.Data.Actuators {
		d.Actuators[id] = actuators.CameraActuators{
			CameraUUID:     id,
			Parameters:     fromWireParameters(wire.Parameters),
			ClosestPoints:  actuators.FocusZoomPoints(wire.ClosestPoints),
			FurthestPoints: actuators.FocusZoomPoints(wire.FurthestPoints),
			State:          wire.State,
		}
	}
	return d
}
