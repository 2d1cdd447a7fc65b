package actuators

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/mavlink"
)

type fakeEngine struct {
	params      map[string]mavlink.Parameter
	settings    *ardupilotmega.MessageCameraSettings
	commands    []ardupilotmega.MAV_CMD
	rebootCalls int
	reloadCalls int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{params: make(map[string]mavlink.Parameter)}
}

func (f *fakeEngine) seed(name string, v mavlink.ParamValue) {
	f.params[name] = mavlink.Parameter{Name: name, Value: v}
}

func (f *fakeEngine) GetParam(ctx context.Context, name string, skipCache bool) (mavlink.Parameter, error) {
	p, ok := f.params[name]
	if !ok {
		return mavlink.Parameter{}, fmt.Errorf("unknown parameter %q", name)
	}
	return p, nil
}

func (f *fakeEngine) SetParam(ctx context.Context, parameter mavlink.Parameter) (mavlink.Parameter, error) {
	f.params[parameter.Name] = parameter
	return parameter, nil
}

func (f *fakeEngine) SendCommand(ctx context.Context, cmd ardupilotmega.MAV_CMD, params [7]float32) error {
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeEngine) RequestCameraSettings(ctx context.Context) (*ardupilotmega.MessageCameraSettings, error) {
	return f.settings, nil
}

func (f *fakeEngine) EnableLuaScript(ctx context.Context, overwrite bool) (bool, error) {
	return false, nil
}

func (f *fakeEngine) ReloadLuaScripts(ctx context.Context) error {
	f.reloadCalls++
	return nil
}

func (f *fakeEngine) RebootAutopilot(ctx context.Context, rebooter mavlink.AutopilotRebooter) error {
	f.rebootCalls++
	return nil
}

// seedDefaultsFor seeds every parameter applyChannelGroup/applyMountParams/
// applyScriptExtras will touch for a camera already sitting at p's values,
// so a no-op sweep over p makes no writes.
func (f *fakeEngine) seedDefaultsFor(p ActuatorsParameters) {
	f.seed(fmt.Sprintf("SERVO%d_FUNCTION", p.FocusChannel), mavlink.NewInt16(int16(FocusChannelFunction)))
	f.seed(fmt.Sprintf("SERVO%d_MIN", p.FocusChannel), mavlink.NewUint16(p.FocusChannelMin))
	f.seed(fmt.Sprintf("SERVO%d_TRIM", p.FocusChannel), mavlink.NewUint16(p.FocusChannelTrim))
	f.seed(fmt.Sprintf("SERVO%d_MAX", p.FocusChannel), mavlink.NewUint16(p.FocusChannelMax))

	f.seed(fmt.Sprintf("SERVO%d_FUNCTION", p.ScriptChannel), mavlink.NewInt16(int16(ChannelFunctionCameraFocus)))
	f.seed(fmt.Sprintf("SERVO%d_MIN", p.ScriptChannel), mavlink.NewUint16(p.ScriptChannelMin))
	f.seed(fmt.Sprintf("SERVO%d_TRIM", p.ScriptChannel), mavlink.NewUint16(p.ScriptChannelTrim))
	f.seed(fmt.Sprintf("SERVO%d_MAX", p.ScriptChannel), mavlink.NewUint16(p.ScriptChannelMax))
	f.seed(fmt.Sprintf("RCAM%d_ENABLE", p.CameraID), mavlink.NewUint8(boolToUint8(p.EnableFocusAndZoomCorrelation)))
	f.seed(fmt.Sprintf("RCAM%d_GAIN", p.CameraID), mavlink.NewReal32(p.FocusMarginGain))

	f.seed(fmt.Sprintf("SERVO%d_FUNCTION", p.ZoomChannel), mavlink.NewInt16(int16(ZoomChannelFunction)))
	f.seed(fmt.Sprintf("SERVO%d_MIN", p.ZoomChannel), mavlink.NewUint16(p.ZoomChannelMin))
	f.seed(fmt.Sprintf("SERVO%d_TRIM", p.ZoomChannel), mavlink.NewUint16(p.ZoomChannelTrim))
	f.seed(fmt.Sprintf("SERVO%d_MAX", p.ZoomChannel), mavlink.NewUint16(p.ZoomChannelMax))

	f.seed(fmt.Sprintf("SERVO%d_FUNCTION", p.TiltChannel), mavlink.NewInt16(int16(TiltChannelFunctionDefault)))
	f.seed(fmt.Sprintf("SERVO%d_MIN", p.TiltChannel), mavlink.NewUint16(p.TiltChannelMin))
	f.seed(fmt.Sprintf("SERVO%d_TRIM", p.TiltChannel), mavlink.NewUint16(p.TiltChannelTrim))
	f.seed(fmt.Sprintf("SERVO%d_MAX", p.TiltChannel), mavlink.NewUint16(p.TiltChannelMax))
	f.seed("MNT1_TYPE", mavlink.NewUint8(uint8(p.TiltMountType)))
	f.seed("MNT1_PITCH_MIN", mavlink.NewInt32(p.TiltMountPitchMin))
	f.seed("MNT1_PITCH_MAX", mavlink.NewInt32(p.TiltMountPitchMax))
}

type fakeStore struct {
	byID      map[uuid.UUID]CameraActuators
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: make(map[uuid.UUID]CameraActuators)}
}

func (s *fakeStore) Get(id uuid.UUID) (CameraActuators, bool) {
	ca, ok := s.byID[id]
	return ca, ok
}

func (s *fakeStore) Set(id uuid.UUID, ca CameraActuators) {
	s.byID[id] = ca
}

func (s *fakeStore) All() map[uuid.UUID]CameraActuators {
	out := make(map[uuid.UUID]CameraActuators, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}

func (s *fakeStore) Save() error {
	s.saveCalls++
	return nil
}

type fakeScripts struct {
	changed bool
	err     error
	calls   int
}

func (f *fakeScripts) Export(ca CameraActuators, overwrite bool) (bool, error) {
	f.calls++
	return f.changed, f.err
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestUpdateConfigNewCameraConvergesAndReboots(t *testing.T) {
	engine := newFakeEngine()
	engine.seedDefaultsFor(DefaultParameters())
	// Drift: the autopilot's focus function disagrees with the default.
	engine.seed("SERVO10_FUNCTION", mavlink.NewInt16(int16(ChannelFunctionDisabled)))

	store := newFakeStore()
	scripts := &fakeScripts{changed: true}
	m := NewManager(engine, store, scripts, nil, testLog())

	id := uuid.New()
	ca, err := m.UpdateConfig(context.Background(), id, ActuatorsConfig{}, false)
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if ca.Parameters.FocusChannel != DefaultParameters().FocusChannel {
		t.Fatalf("expected default focus channel, got %d", ca.Parameters.FocusChannel)
	}

	got := engine.params["SERVO10_FUNCTION"].Value
	want := mavlink.NewInt16(int16(ChannelFunctionCameraFocus))
	if !got.Equal(want) {
		t.Fatalf("expected SERVO10_FUNCTION to converge to CameraFocus, got %v", got)
	}
	if engine.rebootCalls != 1 {
		t.Fatalf("expected exactly one reboot due to the drifted function code, got %d", engine.rebootCalls)
	}
	if store.saveCalls != 1 {
		t.Fatalf("expected exactly one save, got %d", store.saveCalls)
	}
}

func TestUpdateConfigChannelReassignmentDisablesOldChannel(t *testing.T) {
	engine := newFakeEngine()
	defaults := DefaultParameters()
	engine.seedDefaultsFor(defaults)
	newFocusChannel := ServoChannel(12)
	engine.seed(fmt.Sprintf("SERVO%d_FUNCTION", newFocusChannel), mavlink.NewInt16(int16(ChannelFunctionDisabled)))
	engine.seed(fmt.Sprintf("SERVO%d_MIN", newFocusChannel), mavlink.NewUint16(0))
	engine.seed(fmt.Sprintf("SERVO%d_TRIM", newFocusChannel), mavlink.NewUint16(0))
	engine.seed(fmt.Sprintf("SERVO%d_MAX", newFocusChannel), mavlink.NewUint16(0))

	store := newFakeStore()
	id := uuid.New()
	store.Set(id, DefaultCameraActuators())

	m := NewManager(engine, store, nil, nil, testLog())

	_, err := m.UpdateConfig(context.Background(), id, ActuatorsConfig{
		Parameters: &ActuatorsParametersConfig{FocusChannel: &newFocusChannel},
	}, false)
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	oldFunction := engine.params["SERVO10_FUNCTION"].Value
	if !oldFunction.Equal(mavlink.NewInt16(int16(ChannelFunctionDisabled))) {
		t.Fatalf("expected old focus channel disabled, got %v", oldFunction)
	}
	newFunction := engine.params[fmt.Sprintf("SERVO%d_FUNCTION", newFocusChannel)].Value
	if !newFunction.Equal(mavlink.NewInt16(int16(ChannelFunctionCameraFocus))) {
		t.Fatalf("expected new focus channel to carry CameraFocus, got %v", newFunction)
	}
	if engine.rebootCalls != 1 {
		t.Fatalf("expected a reboot after a channel reassignment, got %d", engine.rebootCalls)
	}
}

func TestUpdateConfigSkipsMatchingParameters(t *testing.T) {
	engine := newFakeEngine()
	defaults := DefaultParameters()
	engine.seedDefaultsFor(defaults)

	store := newFakeStore()
	id := uuid.New()
	ca := DefaultCameraActuators()
	ca.CameraUUID = id
	store.Set(id, ca)

	m := NewManager(engine, store, nil, nil, testLog())

	if _, err := m.UpdateConfig(context.Background(), id, ActuatorsConfig{}, false); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if engine.rebootCalls != 0 {
		t.Fatalf("expected no reboot when nothing drifted, got %d", engine.rebootCalls)
	}
}

func TestResetConfigForcesFullReassertion(t *testing.T) {
	engine := newFakeEngine()
	defaults := DefaultParameters()
	engine.seedDefaultsFor(defaults)

	store := newFakeStore()
	id := uuid.New()
	ca := DefaultCameraActuators()
	ca.CameraUUID = id
	store.Set(id, ca)

	m := NewManager(engine, store, nil, nil, testLog())

	if _, err := m.ResetConfig(context.Background(), id); err != nil {
		t.Fatalf("ResetConfig failed: %v", err)
	}
	// overwrite=true forces every write regardless of whether the cached
	// value already matched, and always reboots.
	if engine.rebootCalls != 1 {
		t.Fatalf("expected exactly one reboot from reset_config, got %d", engine.rebootCalls)
	}
}

func TestGetStateSanitizesNaN(t *testing.T) {
	engine := newFakeEngine()
	engine.settings = &ardupilotmega.MessageCameraSettings{
		FocusLevel: float32(math.NaN()),
		ZoomLevel:  42,
	}

	store := newFakeStore()
	id := uuid.New()
	store.Set(id, DefaultCameraActuators())

	m := NewManager(engine, store, nil, nil, testLog())

	state, err := m.GetState(context.Background(), id)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if state.Focus != nil {
		t.Fatalf("expected NaN focus to sanitize to nil, got %v", *state.Focus)
	}
	if state.Zoom == nil || *state.Zoom != 42 {
		t.Fatalf("expected zoom reading to survive, got %v", state.Zoom)
	}
}

func TestGetStateUnknownCamera(t *testing.T) {
	m := NewManager(newFakeEngine(), newFakeStore(), nil, nil, testLog())
	if _, err := m.GetState(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected ErrCameraNotFound for an unseeded camera")
	}
}

func TestExportLuaScriptRequiresGenerator(t *testing.T) {
	store := newFakeStore()
	id := uuid.New()
	store.Set(id, DefaultCameraActuators())

	m := NewManager(newFakeEngine(), store, nil, nil, testLog())
	if _, err := m.ExportLuaScript(context.Background(), id, false); err == nil {
		t.Fatal("expected an error when no script generator is configured")
	}
}
