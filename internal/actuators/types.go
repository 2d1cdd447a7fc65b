// Package actuators implements the camera-actuator configuration manager:
// the focus/zoom/tilt/script servo parameter groups, calibration tables and
// the camera state machine that drives MAV_CMD_SET_CAMERA_FOCUS/ZOOM.
package actuators

import "github.com/google/uuid"

// ServoChannel is an ArduPilot SERVOx output channel number.
type ServoChannel uint8

// ScriptFunction is an ArduPilot SERVOx_FUNCTION value in the SCRIPTn
// range (94-109), used for the Lua-controlled focus/zoom correlation
// channel.
type ScriptFunction uint8

const (
	Script1 ScriptFunction = iota + 94
	Script2
	Script3
	Script4
	Script5
	Script6
	Script7
	Script8
	Script9
	Script10
	Script11
	Script12
	Script13
	Script14
	Script15
	Script16
)

// ChannelFunction is an ArduPilot SRV_Channel::Aux_servo_function_t value,
// the wire code written to SERVOx_FUNCTION.
type ChannelFunction int16

const (
	ChannelFunctionDisabled   ChannelFunction = 0
	ChannelFunctionCameraFocus ChannelFunction = 92
	ChannelFunctionCameraZoom  ChannelFunction = 180
)

// TiltChannelFunction is the MNTx_TYPE-adjacent mount pitch function code.
type TiltChannelFunction uint8

const (
	Mount1Pitch TiltChannelFunction = 7
	Mount2Pitch TiltChannelFunction = 13
)

// MountType is MNTx_TYPE.
type MountType uint8

const (
	MountTypeServo        MountType = 1
	MountTypeBrushlessPWM MountType = 7
)

// FocusChannelFunction and ZoomChannelFunction are the fixed wire codes
// for the user-controlled focus/zoom channels (not script-driven).
const (
	FocusChannelFunction = ChannelFunctionCameraFocus
	ZoomChannelFunction  = ChannelFunctionCameraZoom
)

// TiltChannelFunctionDefault is the mount pitch function this manager
// targets; a second mount (MNT2) is not modelled.
const TiltChannelFunctionDefault = Mount1Pitch

// ActuatorsParameters is the concrete, fully-resolved parameter set for one
// camera's focus/zoom/tilt/script/mount channels.
type ActuatorsParameters struct {
	CameraID int

	FocusChannel                   ServoChannel
	FocusChannelMin                uint16
	FocusChannelTrim               uint16
	FocusChannelMax                uint16
	FocusMarginGain                float32
	ScriptChannel                  ServoChannel
	ScriptFunction                 ScriptFunction
	ScriptChannelMin               uint16
	ScriptChannelTrim              uint16
	ScriptChannelMax               uint16
	EnableFocusAndZoomCorrelation  bool

	ZoomChannel    ServoChannel
	ZoomChannelMin uint16
	ZoomChannelTrim uint16
	ZoomChannelMax uint16

	TiltChannel         ServoChannel
	TiltChannelMin      uint16
	TiltChannelTrim     uint16
	TiltChannelMax      uint16
	TiltChannelReversed bool

	TiltMountType      MountType
	TiltMountPitchMin  int32
	TiltMountPitchMax  int32
}

// ActuatorsParametersConfig is the patch/partial-update wire shape: every
// field is optional, and an unset field leaves the corresponding current
// value untouched (or, with force_apply, is re-sent unchanged).
type ActuatorsParametersConfig struct {
	FocusChannel                  *ServoChannel
	FocusChannelMin               *uint16
	FocusChannelTrim              *uint16
	FocusChannelMax               *uint16
	FocusMarginGain               *float32
	ScriptChannel                 *ServoChannel
	ScriptFunction                *ScriptFunction
	ScriptChannelMin              *uint16
	ScriptChannelTrim             *uint16
	ScriptChannelMax              *uint16
	EnableFocusAndZoomCorrelation *bool

	ZoomChannel     *ServoChannel
	ZoomChannelMin  *uint16
	ZoomChannelTrim *uint16
	ZoomChannelMax  *uint16

	TiltChannel         *ServoChannel
	TiltChannelMin      *uint16
	TiltChannelTrim     *uint16
	TiltChannelMax      *uint16
	TiltChannelReversed *bool

	TiltMountType     *MountType
	TiltMountPitchMin *int32
	TiltMountPitchMax *int32
}

// FocusZoomPoint is one sample of a focus/zoom correlation curve.
type FocusZoomPoint struct {
	Zoom  uint16
	Focus uint16
}

// FocusZoomPoints is an ordered list of calibration samples.
type FocusZoomPoints []FocusZoomPoint

// ActuatorsState is the live, read-back camera state.
type ActuatorsState struct {
	Focus *float32
	Zoom  *float32
	Tilt  *float32
}

// ActuatorsConfig is the wire shape for a configuration update: any of the
// three sections may be omitted, and the manager fills in defaults when
// all three are absent (see Manager.UpdateConfig).
type ActuatorsConfig struct {
	Parameters      *ActuatorsParametersConfig
	ClosestPoints   *FocusZoomPoints
	FurthestPoints  *FocusZoomPoints
}

// CameraActuators is one camera's persisted configuration and last-known
// state, keyed by its UUID in the settings store.
type CameraActuators struct {
	CameraUUID      uuid.UUID
	Parameters      ActuatorsParameters
	ClosestPoints   FocusZoomPoints
	FurthestPoints  FocusZoomPoints
	State           ActuatorsState
}

// ActuatorsControl is the wire request to change a camera's live state.
type ActuatorsControl struct {
	CameraUUID uuid.UUID
	Action     Action
}

// Action is the tagged union of control-plane operations C7 accepts.
type Action struct {
	SetState       *ActuatorsState
	SetConfig      *ActuatorsConfig
	Reset          bool
	ExportLuaScript *ExportLuaScriptAction
}

// ExportLuaScriptAction forces a Lua script (re)write, bypassing the
// no-op-if-unchanged shortcut when Overwrite is set.
type ExportLuaScriptAction struct {
	Overwrite bool
}
