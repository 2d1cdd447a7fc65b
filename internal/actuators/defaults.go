package actuators

// DefaultParameters returns the factory configuration for a freshly
// discovered camera: SERVO10 for focus, SERVO11 for zoom, SERVO16 for
// tilt, SCRIPT1 driving the focus/zoom correlation script, and a
// brushless-PWM mount limited to +/-90 degrees of pitch.
func DefaultParameters() ActuatorsParameters {
	return ActuatorsParameters{
		CameraID:                      1,
		FocusChannel:                  10,
		FocusChannelMin:               870,
		FocusChannelTrim:              1500,
		FocusChannelMax:               2130,
		FocusMarginGain:               1.0,
		ScriptFunction:                Script1,
		EnableFocusAndZoomCorrelation: true,

		ZoomChannel:    11,
		ZoomChannelMin: 935,
		ZoomChannelTrim: 1500,
		ZoomChannelMax: 1850,

		TiltChannel:         16,
		TiltChannelMin:      2250,
		TiltChannelTrim:     1500,
		TiltChannelMax:      750,
		TiltChannelReversed: false,

		TiltMountType:     MountTypeBrushlessPWM,
		TiltMountPitchMin: -90,
		TiltMountPitchMax: 90,
	}
}

// DefaultClosestPoints and DefaultFurthestPoints are the factory
// focus/zoom correlation curves: two bracketing samples per zoom
// position (near/far focus distance), preserved verbatim from the
// original calibration tables.
func DefaultClosestPoints() FocusZoomPoints {
	return FocusZoomPoints{
		{Zoom: 900, Focus: 882},
		{Zoom: 1100, Focus: 1253},
		{Zoom: 1300, Focus: 1498},
		{Zoom: 1500, Focus: 1669},
		{Zoom: 1700, Focus: 1759},
		{Zoom: 1900, Focus: 1862},
		{Zoom: 2100, Focus: 1883},
	}
}

func DefaultFurthestPoints() FocusZoomPoints {
	return FocusZoomPoints{
		{Zoom: 900, Focus: 935},
		{Zoom: 1100, Focus: 1305},
		{Zoom: 1300, Focus: 1520},
		{Zoom: 1500, Focus: 1696},
		{Zoom: 1700, Focus: 1811},
		{Zoom: 1900, Focus: 1911},
		{Zoom: 2100, Focus: 1930},
	}
}

// DefaultCameraActuators builds a fresh CameraActuators with every field
// at its factory default.
func DefaultCameraActuators() CameraActuators {
	return CameraActuators{
		Parameters:     DefaultParameters(),
		ClosestPoints:  DefaultClosestPoints(),
		FurthestPoints: DefaultFurthestPoints(),
	}
}

// Merge applies cfg on top of current, leaving any unset field at its
// current value; this is the Go equivalent of the Rust
// From<ActuatorsParametersConfig> for ActuatorsParameters patch-merge.
func Merge(current ActuatorsParameters, cfg ActuatorsParametersConfig) ActuatorsParameters {
	out := current

	if cfg.FocusChannel != nil {
		out.FocusChannel = *cfg.FocusChannel
	}
	if cfg.FocusChannelMin != nil {
		out.FocusChannelMin = *cfg.FocusChannelMin
	}
	if cfg.FocusChannelTrim != nil {
		out.FocusChannelTrim = *cfg.FocusChannelTrim
	}
	if cfg.FocusChannelMax != nil {
		out.FocusChannelMax = *cfg.FocusChannelMax
	}
	if cfg.FocusMarginGain != nil {
		out.FocusMarginGain = *cfg.FocusMarginGain
	}
	if cfg.ScriptFunction != nil {
		out.ScriptFunction = *cfg.ScriptFunction
	}
	if cfg.ScriptChannel != nil {
		out.ScriptChannel = *cfg.ScriptChannel
	}
	if cfg.ScriptChannelMin != nil {
		out.ScriptChannelMin = *cfg.ScriptChannelMin
	}
	if cfg.ScriptChannelTrim != nil {
		out.ScriptChannelTrim = *cfg.ScriptChannelTrim
	}
	if cfg.ScriptChannelMax != nil {
		out.ScriptChannelMax = *cfg.ScriptChannelMax
	}
	if cfg.EnableFocusAndZoomCorrelation != nil {
		out.EnableFocusAndZoomCorrelation = *cfg.EnableFocusAndZoomCorrelation
	}
	if cfg.ZoomChannel != nil {
		out.ZoomChannel = *cfg.ZoomChannel
	}
	if cfg.ZoomChannelMin != nil {
		out.ZoomChannelMin = *cfg.ZoomChannelMin
	}
	if cfg.ZoomChannelTrim != nil {
		out.ZoomChannelTrim = *cfg.ZoomChannelTrim
	}
	if cfg.ZoomChannelMax != nil {
		out.ZoomChannelMax = *cfg.ZoomChannelMax
	}
	if cfg.TiltChannel != nil {
		out.TiltChannel = *cfg.TiltChannel
	}
	if cfg.TiltChannelMin != nil {
		out.TiltChannelMin = *cfg.TiltChannelMin
	}
	if cfg.TiltChannelTrim != nil {
		out.TiltChannelTrim = *cfg.TiltChannelTrim
	}
	if cfg.TiltChannelMax != nil {
		out.TiltChannelMax = *cfg.TiltChannelMax
	}
	if cfg.TiltChannelReversed != nil {
		out.TiltChannelReversed = *cfg.TiltChannelReversed
	}
	if cfg.TiltMountType != nil {
		out.TiltMountType = *cfg.TiltMountType
	}
	if cfg.TiltMountPitchMin != nil {
		out.TiltMountPitchMin = *cfg.TiltMountPitchMin
	}
	if cfg.TiltMountPitchMax != nil {
		out.TiltMountPitchMax = *cfg.TiltMountPitchMax
	}

	return out
}
