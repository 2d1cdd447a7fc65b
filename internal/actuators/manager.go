package actuators

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/mavlink"
	"github.com/bluerobotics/radcam-manager/internal/metrics"
)

// cameraFocusZoomRangeSubtype is CAMERA_ZOOM_TYPE/CAMERA_FOCUS_TYPE's
// RANGE member: both MAV_CMD_SET_CAMERA_FOCUS and _ZOOM take it as param1
// so param2 is interpreted as a 0..100 range rather than a step or rate.
const cameraFocusZoomRangeSubtype = 2

// scriptingCmdStopAndRestart is the MAV_CMD_SCRIPTING sub-command that
// reloads the autopilot's Lua scripts without a full reboot.
const scriptingCmdStopAndRestart = 3

// EngineClient is the subset of *mavlink.Engine the manager drives. It
// exists so tests can substitute a fake autopilot without a live
// connection.
type EngineClient interface {
	GetParam(ctx context.Context, name string, skipCache bool) (mavlink.Parameter, error)
	SetParam(ctx context.Context, parameter mavlink.Parameter) (mavlink.Parameter, error)
	SendCommand(ctx context.Context, cmd ardupilotmega.MAV_CMD, params [7]float32) error
	RequestCameraSettings(ctx context.Context) (*ardupilotmega.MessageCameraSettings, error)
	EnableLuaScript(ctx context.Context, overwrite bool) (bool, error)
	ReloadLuaScripts(ctx context.Context) error
	RebootAutopilot(ctx context.Context, rebooter mavlink.AutopilotRebooter) error
}

// SettingsStore is the persistence surface the manager needs; *settings.Store
// satisfies it without this package importing settings (which already
// imports actuators for CameraActuators).
type SettingsStore interface {
	Get(id uuid.UUID) (CameraActuators, bool)
	Set(id uuid.UUID, ca CameraActuators)
	All() map[uuid.UUID]CameraActuators
	Save() error
}

// ScriptExporter renders, validates and atomically writes the Lua control
// script for a camera's current configuration. *script.Generator satisfies
// it without this package importing internal/script (which imports
// actuators for the config types it renders).
type ScriptExporter interface {
	Export(ca CameraActuators, overwrite bool) (changed bool, err error)
}

// Manager owns the in-memory map of per-camera actuator configuration and
// drives the five operations the control-plane API exposes: reading and
// writing live camera state, applying configuration changes transactionally
// across the focus/zoom/tilt/script parameter groups, resetting to
// defaults, and exporting the Lua correlation script on demand.
type Manager struct {
	mu sync.RWMutex

	engine   EngineClient
	store    SettingsStore
	scripts  ScriptExporter
	rebooter mavlink.AutopilotRebooter
	log      *logrus.Entry
}

// NewManager wires a Manager from its collaborators. scripts and rebooter
// may be nil: a nil ScriptExporter skips Lua regeneration entirely (useful
// in tests focused on the parameter sweep), and a nil rebooter falls back
// to the engine's own MAV_CMD_PREFLIGHT_REBOOT_SHUTDOWN.
func NewManager(engine EngineClient, store SettingsStore, scripts ScriptExporter, rebooter mavlink.AutopilotRebooter, log *logrus.Entry) *Manager {
	return &Manager{engine: engine, store: store, scripts: scripts, rebooter: rebooter, log: log}
}

// List returns every persisted camera's current record.
func (m *Manager) List() []CameraActuators {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.store.All()
	out := make([]CameraActuators, 0, len(all))
	for _, ca := range all {
		out = append(out, ca)
	}
	return out
}

// GetConfig returns camera id's persisted configuration without touching
// the autopilot.
func (m *Manager) GetConfig(id uuid.UUID) (CameraActuators, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ca, ok := m.store.Get(id)
	if !ok {
		return CameraActuators{}, fmt.Errorf("get_config(%s): %w", id, ErrCameraNotFound)
	}
	return ca, nil
}

// GetState requests CAMERA_SETTINGS from the autopilot, updates and
// persists the camera's last-known focus/zoom reading, and returns it.
// Tilt is never reported: the autopilot has no corresponding telemetry
// field for it.
func (m *Manager) GetState(ctx context.Context, id uuid.UUID) (ActuatorsState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ca, ok := m.store.Get(id)
	if !ok {
		return ActuatorsState{}, fmt.Errorf("get_state(%s): %w", id, ErrCameraNotFound)
	}

	settings, err := m.engine.RequestCameraSettings(ctx)
	if err != nil {
		return ActuatorsState{}, fmt.Errorf("get_state(%s): %w", id, err)
	}

	ca.State = ActuatorsState{
		Focus: noneIfNaN(settings.FocusLevel),
		Zoom:  noneIfNaN(settings.ZoomLevel),
	}

	m.store.Set(id, ca)
	if err := m.store.Save(); err != nil {
		return ActuatorsState{}, fmt.Errorf("get_state(%s): %w", id, err)
	}
	return ca.State, nil
}

// UpdateState pushes any of {focus, zoom} present in newState to the
// autopilot via MAV_CMD_SET_CAMERA_{FOCUS,ZOOM} in RANGE mode, then
// re-requests CAMERA_SETTINGS and persists the refreshed reading. Tilt is
// reserved: this manager has no servo-level tilt command path yet, so a
// tilt request is logged and otherwise ignored.
func (m *Manager) UpdateState(ctx context.Context, id uuid.UUID, newState ActuatorsState) (ActuatorsState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store.Get(id); !ok {
		return ActuatorsState{}, fmt.Errorf("update_state(%s): %w", id, ErrCameraNotFound)
	}

	if newState.Focus != nil {
		if err := m.engine.SendCommand(ctx, ardupilotmega.MAV_CMD_SET_CAMERA_FOCUS, [7]float32{cameraFocusZoomRangeSubtype, *newState.Focus}); err != nil {
			return ActuatorsState{}, fmt.Errorf("update_state(%s): set focus: %w", id, err)
		}
	}
	if newState.Zoom != nil {
		if err := m.engine.SendCommand(ctx, ardupilotmega.MAV_CMD_SET_CAMERA_ZOOM, [7]float32{cameraFocusZoomRangeSubtype, *newState.Zoom}); err != nil {
			return ActuatorsState{}, fmt.Errorf("update_state(%s): set zoom: %w", id, err)
		}
	}
	if newState.Tilt != nil {
		m.log.Warnf("update_state(%s): tilt control is reserved and not implemented, ignoring", id)
	}

	settings, err := m.engine.RequestCameraSettings(ctx)
	if err != nil {
		return ActuatorsState{}, fmt.Errorf("update_state(%s): %w", id, err)
	}

	ca, _ := m.store.Get(id)
	ca.State = ActuatorsState{
		Focus: noneIfNaN(settings.FocusLevel),
		Zoom:  noneIfNaN(settings.ZoomLevel),
	}

	m.store.Set(id, ca)
	if err := m.store.Save(); err != nil {
		return ActuatorsState{}, fmt.Errorf("update_state(%s): %w", id, err)
	}
	return ca.State, nil
}

// UpdateConfig applies patch transactionally across the focus, script,
// zoom and tilt parameter groups, always following the read-compare-write
// idempotent-convergence discipline: a parameter is only written if its
// cached value differs from the desired one, unless overwrite forces it,
// or the group's channel itself just changed (which always force-applies
// the new channel's function code and trims). A camera unseen by the
// store is seeded from defaults rather than rejected, since a
// configuration update is how a freshly discovered camera first gets one.
//
// If patch has no Parameters, ClosestPoints or FurthestPoints at all, the
// whole record resets to factory defaults — this is also how reset_config
// is implemented.
func (m *Manager) UpdateConfig(ctx context.Context, id uuid.UUID, patch ActuatorsConfig, overwrite bool) (CameraActuators, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ca, ok := m.store.Get(id)
	if !ok {
		ca = DefaultCameraActuators()
		ca.CameraUUID = id
	}

	useDefaults := patch.Parameters == nil && patch.ClosestPoints == nil && patch.FurthestPoints == nil

	newParams := ca.Parameters
	if useDefaults {
		newParams = DefaultParameters()
		newParams.CameraID = ca.Parameters.CameraID
	} else if patch.Parameters != nil {
		newParams = Merge(ca.Parameters, *patch.Parameters)
	}

	newClosest := ca.ClosestPoints
	newFurthest := ca.FurthestPoints
	switch {
	case useDefaults:
		newClosest = DefaultClosestPoints()
		newFurthest = DefaultFurthestPoints()
	default:
		if patch.ClosestPoints != nil {
			newClosest = *patch.ClosestPoints
		}
		if patch.FurthestPoints != nil {
			newFurthest = *patch.FurthestPoints
		}
	}

	rebootRequired := overwrite

	if m.applyChannelGroup(ctx, ca.Parameters.FocusChannel, newParams.FocusChannel, FocusChannelFunction,
		newParams.FocusChannelMin, newParams.FocusChannelTrim, newParams.FocusChannelMax, overwrite, "focus") {
		rebootRequired = true
	}

	scriptChannelChanged := ca.Parameters.ScriptChannel != newParams.ScriptChannel
	if m.applyChannelGroup(ctx, ca.Parameters.ScriptChannel, newParams.ScriptChannel, ChannelFunctionCameraFocus,
		newParams.ScriptChannelMin, newParams.ScriptChannelTrim, newParams.ScriptChannelMax, overwrite, "script") {
		rebootRequired = true
	}
	m.applyScriptExtras(ctx, newParams.CameraID, newParams.EnableFocusAndZoomCorrelation, newParams.FocusMarginGain,
		overwrite || scriptChannelChanged)

	if m.applyChannelGroup(ctx, ca.Parameters.ZoomChannel, newParams.ZoomChannel, ZoomChannelFunction,
		newParams.ZoomChannelMin, newParams.ZoomChannelTrim, newParams.ZoomChannelMax, overwrite, "zoom") {
		rebootRequired = true
	}

	tiltChannelChanged := ca.Parameters.TiltChannel != newParams.TiltChannel
	if m.applyChannelGroup(ctx, ca.Parameters.TiltChannel, newParams.TiltChannel, ChannelFunction(TiltChannelFunctionDefault),
		newParams.TiltChannelMin, newParams.TiltChannelTrim, newParams.TiltChannelMax, overwrite, "tilt") {
		rebootRequired = true
	}
	m.applyMountParams(ctx, newParams.TiltMountPitchMin, newParams.TiltMountPitchMax, newParams.TiltMountType,
		overwrite || tiltChannelChanged)

	ca.Parameters = newParams
	ca.ClosestPoints = newClosest
	ca.FurthestPoints = newFurthest

	reloadRequired := false
	if m.scripts != nil {
		changed, err := m.scripts.Export(ca, overwrite)
		if err != nil {
			metrics.RecordLuaScriptExport("error")
			metrics.RecordConfigUpdate("error")
			return CameraActuators{}, fmt.Errorf("update_config(%s): export lua script: %w", id, err)
		}
		metrics.RecordLuaScriptExport("success")
		reloadRequired = changed
	}

	if reloadRequired {
		if err := m.engine.ReloadLuaScripts(ctx); err != nil {
			m.log.Warnf("update_config(%s): failed reloading lua scripts: %v", id, err)
		}
	}

	if rebootRequired {
		metrics.RecordAutopilotReboot()
		if err := m.engine.RebootAutopilot(ctx, m.rebooter); err != nil {
			m.log.Warnf("update_config(%s): failed rebooting autopilot: %v", id, err)
		}
	}

	m.store.Set(id, ca)
	if err := m.store.Save(); err != nil {
		metrics.RecordConfigUpdate("error")
		return CameraActuators{}, fmt.Errorf("update_config(%s): persist: %w", id, err)
	}

	metrics.RecordConfigUpdate("success")
	return ca, nil
}

// ResetConfig replaces camera id's record with factory defaults and
// reasserts every parameter on the wire, equivalent to UpdateConfig with
// an empty patch and overwrite forced on.
func (m *Manager) ResetConfig(ctx context.Context, id uuid.UUID) (CameraActuators, error) {
	return m.UpdateConfig(ctx, id, ActuatorsConfig{}, true)
}

// ExportLuaScript re-renders and, if changed (or overwrite is set),
// rewrites the Lua script for camera id's current persisted
// configuration, without touching any autopilot parameter.
func (m *Manager) ExportLuaScript(ctx context.Context, id uuid.UUID, overwrite bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ca, ok := m.store.Get(id)
	if !ok {
		return false, fmt.Errorf("export_script(%s): %w", id, ErrCameraNotFound)
	}
	if m.scripts == nil {
		return false, fmt.Errorf("export_script(%s): no script generator configured", id)
	}
	changed, err := m.scripts.Export(ca, overwrite)
	if err != nil {
		metrics.RecordLuaScriptExport("error")
		return false, err
	}
	metrics.RecordLuaScriptExport("success")
	return changed, nil
}

// applyChannelGroup brings one SERVOn channel group in line with the
// desired configuration. If the channel itself changed, the previous
// channel's function is disabled and the new channel's function/trims are
// force-applied regardless of their cached values; otherwise each
// parameter is only written if it differs from the cached value. It
// reports whether a reboot is now required, i.e. whether the channel or
// its function code actually changed.
func (m *Manager) applyChannelGroup(ctx context.Context, oldChannel, newChannel ServoChannel, function ChannelFunction,
	min, trim, max uint16, overwrite bool, group string) bool {

	channelChanged := oldChannel != newChannel
	forceApply := overwrite || channelChanged

	if channelChanged {
		m.writeFunctionParam(ctx, oldChannel, ChannelFunctionDisabled, true, group)
	}

	functionChanged := m.writeFunctionParam(ctx, newChannel, function, forceApply, group)

	m.writeChannelTrim(ctx, newChannel, "MIN", min, forceApply, group)
	m.writeChannelTrim(ctx, newChannel, "TRIM", trim, forceApply, group)
	m.writeChannelTrim(ctx, newChannel, "MAX", max, forceApply, group)

	return channelChanged || functionChanged
}

func (m *Manager) writeFunctionParam(ctx context.Context, channel ServoChannel, function ChannelFunction, forceApply bool, group string) bool {
	name := fmt.Sprintf("SERVO%d_FUNCTION", channel)
	return m.writeParamIfNeeded(ctx, name, mavlink.NewInt16(int16(function)), forceApply, group)
}

func (m *Manager) writeChannelTrim(ctx context.Context, channel ServoChannel, suffix string, value uint16, forceApply bool, group string) {
	name := fmt.Sprintf("SERVO%d_%s", channel, suffix)
	m.writeParamIfNeeded(ctx, name, mavlink.NewUint16(value), forceApply, group)
}

// applyMountParams writes the MNT1_* parameters backing the tilt group's
// mount (a second mount, MNT2, is not modelled).
func (m *Manager) applyMountParams(ctx context.Context, pitchMin, pitchMax int32, mountType MountType, forceApply bool) {
	m.writeParamIfNeeded(ctx, "MNT1_TYPE", mavlink.NewUint8(uint8(mountType)), forceApply, "tilt")
	m.writeParamIfNeeded(ctx, "MNT1_PITCH_MIN", mavlink.NewInt32(pitchMin), forceApply, "tilt")
	m.writeParamIfNeeded(ctx, "MNT1_PITCH_MAX", mavlink.NewInt32(pitchMax), forceApply, "tilt")
}

// applyScriptExtras writes the two RCAMn_* parameters of the script group:
// RCAMn_ENABLE, whether the correlation is enabled at all, and RCAMn_GAIN,
// the margin gain. The generated Lua script registers and reads
// RCAMn_ENABLE and RCAMn_MARGIN_GAIN; it does not read RCAMn_GAIN.
func (m *Manager) applyScriptExtras(ctx context.Context, cameraID int, enable bool, gain float32, forceApply bool) {
	prefix := fmt.Sprintf("RCAM%d_", cameraID)
	m.writeParamIfNeeded(ctx, prefix+"ENABLE", mavlink.NewUint8(boolToUint8(enable)), forceApply, "script")
	m.writeParamIfNeeded(ctx, prefix+"GAIN", mavlink.NewReal32(gain), forceApply, "script")
}

// writeParamIfNeeded reads name's current cached value and, if it differs
// from desired (or forceApply is set), writes desired. Every failure is
// logged and swallowed: a single bad parameter never aborts the sweep.
// The returned bool reports whether the wire value actually changed.
func (m *Manager) writeParamIfNeeded(ctx context.Context, name string, desired mavlink.ParamValue, forceApply bool, group string) bool {
	current, err := m.engine.GetParam(ctx, name, false)
	if err != nil {
		m.log.Warnf("failed reading %q, skipping write: %v", name, err)
		return false
	}

	changed := !current.Value.Equal(desired)
	if !changed && !forceApply {
		return false
	}

	current.Value = desired
	if _, err := m.engine.SetParam(ctx, current); err != nil {
		m.log.Warnf("failed writing %q: %v", name, err)
		return false
	}
	metrics.RecordParamWrite(group)
	return changed
}

func boolToUint8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}

func noneIfNaN(v float32) *float32 {
	if math.IsNaN(float64(v)) {
		return nil
	}
	return &v
}
