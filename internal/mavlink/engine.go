package mavlink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
	"github.com/sirupsen/logrus"
)

const autopilotComponentID = uint8(ardupilotmega.MAV_COMP_ID_AUTOPILOT1)

// Engine is the protocol-level bootstrap, parameter cache and command
// dispatcher sitting on top of a reconnecting Connection. It owns the
// target system/component IDs, the negotiated parameter encoding and the
// parameter cache, and runs the heartbeat and parameter-sync background
// loops for the lifetime of the process.
type Engine struct {
	conn         *Connection
	systemID     uint8
	componentID  uint8
	targetSystem uint8
	log          *logrus.Entry

	mu       sync.RWMutex
	encoding EncodingType
	cache    *paramCache

	cancel context.CancelFunc
}

// NewEngine dials the autopilot, negotiates parameter encoding, performs a
// full parameter dump and starts the heartbeat and sync background loops.
func NewEngine(ctx context.Context, address string, systemID, componentID uint8, log *logrus.Entry) (*Engine, error) {
	conn, err := NewConnection(ctx, address, systemID, componentID, log)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		conn:         conn,
		systemID:     systemID,
		componentID:  componentID,
		targetSystem: 1,
		log:          log,
		cache:        newParamCache(2048),
		cancel:       cancel,
	}

	go e.heartbeatLoop(runCtx)

	e.configureParameterEncoding(ctx)
	e.updateAllParams(ctx)

	go e.paramsSyncLoop(runCtx)

	return e, nil
}

func (e *Engine) Close() error {
	e.cancel()
	return e.conn.Close()
}

func (e *Engine) Encoding() EncodingType {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.encoding
}

// heartbeatLoop advertises this process as a camera component once a
// second, the same cadence the upstream bridge uses.
func (e *Engine) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	msg := &ardupilotmega.MessageHeartbeat{
		Type:           uint8(ardupilotmega.MAV_TYPE_CAMERA),
		Autopilot:      uint8(ardupilotmega.MAV_AUTOPILOT_INVALID),
		BaseMode:       0,
		CustomMode:     0,
		SystemStatus:   uint8(ardupilotmega.MAV_STATE_STANDBY),
		MavlinkVersion: 3,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.conn.Send(ctx, msg); err != nil {
				e.log.Warnf("failed sending heartbeat: %v", err)
			}
		}
	}
}

// paramsSyncLoop keeps the parameter cache current with every PARAM_VALUE
// that arrives outside of an explicit get/set round-trip (e.g. the
// autopilot's own periodic re-announce of a changed parameter).
func (e *Engine) paramsSyncLoop(ctx context.Context) {
	sub := e.conn.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame := sub.Recv()
		data, ok := frame.Message.(*ardupilotmega.MessageParamValue)
		if !ok {
			continue
		}

		param, err := e.decodeParamValue(data)
		if err != nil {
			e.log.Warnf("failed creating parameter from PARAM_VALUE: %v", err)
			continue
		}

		e.mu.Lock()
		if existing, ok := e.cache.get(param.Name); ok && !existing.Value.Equal(param.Value) && param.Name != "STAT_RUNTIME" {
			e.log.Debugf("parameter %q updated from %v to %v", param.Name, existing.Value, param.Value)
		}
		e.cache.set(param)
		e.mu.Unlock()
	}
}

func (e *Engine) decodeParamValue(data *ardupilotmega.MessageParamValue) (Parameter, error) {
	name := ParamIDToName(data.ParamId)
	value, err := DecodeParam(MavParamType(data.ParamType), data.ParamValue, e.Encoding())
	if err != nil {
		return Parameter{}, err
	}
	return Parameter{Name: name, Value: value}, nil
}

// configureParameterEncoding requests AUTOPILOT_VERSION and chooses the
// encoding scheme from its capability bitmask: both bits set prefers
// ByteWise with a warning (unexpected but safe default), a single bit
// picks that scheme, and neither bit set falls back to Unsupported and is
// logged as an error since every subsequent parameter read/write will fail.
func (e *Engine) configureParameterEncoding(ctx context.Context) {
	sub := e.conn.Subscribe()
	defer sub.Close()

	req := &ardupilotmega.MessageAutopilotVersionRequest{
		TargetSystem:    e.targetSystem,
		TargetComponent: autopilotComponentID,
	}

	e.log.Debugf("getting parameter encoding from target %d:%d...", e.targetSystem, autopilotComponentID)

	for {
		e.log.Debug("requesting autopilot version...")
		if err := e.conn.Send(ctx, req); err != nil {
			e.log.Warnf("failed requesting autopilot version: %v", err)
			time.Sleep(time.Second)
			continue
		}

		data, ok := e.waitAutopilotVersion(sub, 10*time.Second)
		if !ok {
			continue
		}

		caps := ardupilotmega.MAV_PROTOCOL_CAPABILITY(data.Capabilities)
		ccast := caps&ardupilotmega.MAV_PROTOCOL_CAPABILITY_PARAM_FLOAT != 0 ||
			caps&ardupilotmega.MAV_PROTOCOL_CAPABILITY_PARAM_ENCODE_C_CAST != 0
		bytewise := caps&ardupilotmega.MAV_PROTOCOL_CAPABILITY_PARAM_ENCODE_BYTEWISE != 0

		var encoding EncodingType
		switch {
		case ccast && bytewise:
			e.log.Warn("both C_CAST and BYTEWISE encoding capabilities set; choosing ByteWise")
			encoding = EncodingByteWise
		case ccast:
			encoding = EncodingCCast
		case bytewise:
			encoding = EncodingByteWise
		default:
			e.log.Error("neither C_CAST nor BYTEWISE encoding capability set; parameter access will be unsupported")
			encoding = EncodingUnsupported
		}

		e.log.Debugf("using parameter encoding %s", encoding)
		e.mu.Lock()
		e.encoding = encoding
		e.mu.Unlock()
		return
	}
}

func (e *Engine) waitAutopilotVersion(sub *Subscription, timeout time.Duration) (*ardupilotmega.MessageAutopilotVersion, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case item := <-sub.RecvChan():
			if item.lagged > 0 {
				continue
			}
			if data, ok := item.frame.Message.(*ardupilotmega.MessageAutopilotVersion); ok {
				return data, true
			}
		case <-deadline:
			return nil, false
		}
	}
}

// updateAllParams performs the full PARAM_REQUEST_LIST dump, retrying the
// whole request whenever the autopilot's param_index sequence shows gaps,
// and only returning once every advertised parameter has actually arrived.
func (e *Engine) updateAllParams(ctx context.Context) {
	sub := e.conn.Subscribe()
	defer sub.Close()

	req := &ardupilotmega.MessageParamRequestList{
		TargetSystem:    e.targetSystem,
		TargetComponent: autopilotComponentID,
	}

	e.log.Debugf("getting parameter list from target %d:%d...", e.targetSystem, autopilotComponentID)

sendLoop:
	for {
		if err := e.conn.Send(ctx, req); err != nil {
			e.log.Warnf("failed requesting parameter list: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var currentParam uint16
		var missed []uint16
		received := make([]Parameter, 0, 2048)

		for {
			frame := sub.Recv()
			data, ok := frame.Message.(*ardupilotmega.MessageParamValue)
			if !ok {
				continue
			}
			if data.ParamIndex == 0xFFFF {
				continue
			}

			currentParam++
			if data.ParamIndex+1 != currentParam {
				missed = append(missed, data.ParamIndex)
			}

			param, err := e.decodeParamValue(data)
			if err != nil {
				e.log.Warnf("failed creating parameter from PARAM_VALUE: %v", err)
				continue
			}
			received = append(received, param)

			if data.ParamIndex+1 == data.ParamCount {
				if uint16(len(received)) == data.ParamCount {
					e.log.Debugf("received all %d parameters", len(received))
					e.mu.Lock()
					e.cache.replace(received)
					e.mu.Unlock()
					break sendLoop
				}

				e.log.Debugf("received %d parameters but missed %d (%v), retrying", len(received), len(missed), missed)
				continue sendLoop
			}
		}
	}
}

// GetParam returns the named parameter, serving from cache unless
// skipCache is set, otherwise issuing PARAM_REQUEST_READ with up to five
// attempts of a five-second wait each.
func (e *Engine) GetParam(ctx context.Context, name string, skipCache bool) (Parameter, error) {
	if !skipCache {
		e.mu.RLock()
		if p, ok := e.cache.get(name); ok {
			e.mu.RUnlock()
			return p, nil
		}
		e.mu.RUnlock()
	}

	sub := e.conn.Subscribe()
	defer sub.Close()

	req := &ardupilotmega.MessageParamRequestRead{
		ParamIndex:      -1,
		TargetSystem:    e.targetSystem,
		TargetComponent: autopilotComponentID,
		ParamId:         ParamNameToID(name),
	}

	for attempt := 0; attempt < 5; attempt++ {
		if err := e.conn.Send(ctx, req); err != nil {
			e.log.Warnf("failed requesting parameter %q: %v", name, err)
			time.Sleep(time.Second)
			continue
		}

		param, err := e.waitForParam(ctx, sub, name, 5*time.Second)
		if err == nil {
			return param, nil
		}
		e.log.Warnf("retrying get_param(%q) after error: %v", name, err)
	}

	return Parameter{}, fmt.Errorf("get_param(%q): %w", name, ErrTooManyRetries)
}

func (e *Engine) waitForParam(ctx context.Context, sub *Subscription, name string, timeout time.Duration) (Parameter, error) {
	deadline := time.After(timeout)
	for {
		select {
		case item := <-sub.RecvChan():
			if item.lagged > 0 {
				e.log.Warnf("receiver lagged by %d messages", item.lagged)
				continue
			}
			data, ok := item.frame.Message.(*ardupilotmega.MessageParamValue)
			if !ok {
				continue
			}
			param, err := e.decodeParamValue(data)
			if err != nil {
				continue
			}
			if param.Name != name {
				continue
			}
			return param, nil
		case <-deadline:
			return Parameter{}, ErrTimeout
		case <-ctx.Done():
			return Parameter{}, ctx.Err()
		}
	}
}

// SetParam writes parameter, verifying the autopilot echoed back the
// wire-encoded value that was sent; a mismatch is reported as rejected.
func (e *Engine) SetParam(ctx context.Context, parameter Parameter) (Parameter, error) {
	encoding := e.Encoding()

	wireValue, err := parameter.ParamValueFloat(encoding)
	if err != nil {
		return Parameter{}, err
	}

	req := &ardupilotmega.MessageParamSet{
		TargetSystem:    e.targetSystem,
		TargetComponent: autopilotComponentID,
		ParamId:         ParamNameToID(parameter.Name),
		ParamValue:      wireValue,
		ParamType:       uint8(parameter.Value.Kind.MavType()),
	}

	for {
		if err := e.conn.Send(ctx, req); err != nil {
			e.log.Warnf("failed sending PARAM_SET: %v", err)
			time.Sleep(time.Second)
			continue
		}

		sub := e.conn.Subscribe()
		received, err := e.waitForParam(ctx, sub, parameter.Name, 5*time.Second)
		sub.Close()
		if err != nil {
			e.log.Warnf("failed getting parameter after PARAM_SET: %v", err)
			continue
		}

		sentValue, errSent := parameter.ParamValueFloat(encoding)
		recvValue, errRecv := received.ParamValueFloat(encoding)
		if errSent != nil || errRecv != nil {
			e.log.Warn("failed checking parameter round-trip")
			continue
		}

		if recvValue != sentValue {
			return Parameter{}, fmt.Errorf("set_param(%q): sent %v, got %v: %w", parameter.Name, sentValue, recvValue, ErrParamRejected)
		}

		e.mu.Lock()
		e.cache.set(received)
		e.mu.Unlock()

		return received, nil
	}
}

// SendCommand issues a COMMAND_LONG, retrying up to five times with a
// five-second ack wait each, incrementing the confirmation field on every
// attempt as MAVLink requires for retransmissions.
func (e *Engine) SendCommand(ctx context.Context, cmd ardupilotmega.MAV_CMD, params [7]float32) error {
	sub := e.conn.Subscribe()
	defer sub.Close()

	msg := &ardupilotmega.MessageCommandLong{
		TargetSystem:    e.targetSystem,
		TargetComponent: autopilotComponentID,
		Command:         cmd,
		Confirmation:    0,
		Param1:          params[0],
		Param2:          params[1],
		Param3:          params[2],
		Param4:          params[3],
		Param5:          params[4],
		Param6:          params[5],
		Param7:          params[6],
	}

	for confirmation := uint8(0); confirmation < 5; confirmation++ {
		msg.Confirmation = confirmation
		e.log.Debugf("sending command %v (attempt %d)", cmd, confirmation+1)
		if err := e.conn.Send(ctx, msg); err != nil {
			return err
		}

		result, err := e.waitCommandAck(sub, cmd, 5*time.Second)
		if err == nil {
			if result == ardupilotmega.MAV_RESULT_ACCEPTED {
				return nil
			}
			return fmt.Errorf("command %v rejected: %v: %w", cmd, result, ErrCommandRejected)
		}

		e.log.Warnf("timeout waiting for command %v ack, retrying", cmd)
		time.Sleep(time.Second)
	}

	return fmt.Errorf("command %v: %w", cmd, ErrTimeout)
}

func (e *Engine) waitCommandAck(sub *Subscription, cmd ardupilotmega.MAV_CMD, timeout time.Duration) (ardupilotmega.MAV_RESULT, error) {
	deadline := time.After(timeout)
	for {
		select {
		case item := <-sub.RecvChan():
			if item.lagged > 0 {
				continue
			}
			ack, ok := item.frame.Message.(*ardupilotmega.MessageCommandAck)
			if !ok || ack.Command != cmd {
				continue
			}
			return ack.Result, nil
		case <-deadline:
			return 0, ErrTimeout
		}
	}
}

// cameraSettingsMessageID is CAMERA_SETTINGS' MAVLink message ID, passed as
// param1 of MAV_CMD_REQUEST_MESSAGE to ask the autopilot to emit one.
const cameraSettingsMessageID = 260

// RequestCameraSettings subscribes before sending MAV_CMD_REQUEST_MESSAGE
// so the CAMERA_SETTINGS response can never arrive and be missed before
// the wait begins. A deadline with no response means no camera answered
// on the bus at all, so it surfaces as ErrCameraNotFound rather than
// ErrTimeout.
func (e *Engine) RequestCameraSettings(ctx context.Context) (*ardupilotmega.MessageCameraSettings, error) {
	sub := e.conn.Subscribe()
	defer sub.Close()

	done := make(chan struct{})
	var settings *ardupilotmega.MessageCameraSettings
	var waitErr error

	go func() {
		settings, waitErr = e.waitCameraSettings(sub, 5*time.Second)
		close(done)
	}()

	err := e.SendCommand(ctx, ardupilotmega.MAV_CMD_REQUEST_MESSAGE, [7]float32{cameraSettingsMessageID})
	if err != nil {
		return nil, err
	}

	<-done
	return settings, waitErr
}

func (e *Engine) waitCameraSettings(sub *Subscription, timeout time.Duration) (*ardupilotmega.MessageCameraSettings, error) {
	deadline := time.After(timeout)
	for {
		select {
		case item := <-sub.RecvChan():
			if item.lagged > 0 {
				continue
			}
			if data, ok := item.frame.Message.(*ardupilotmega.MessageCameraSettings); ok {
				return data, nil
			}
		case <-deadline:
			return nil, ErrCameraNotFound
		}
	}
}

// EnableLuaScript ensures SCR_ENABLE is set, returning whether a reboot is
// now required (either because overwrite was requested or the parameter's
// value actually changed).
func (e *Engine) EnableLuaScript(ctx context.Context, overwrite bool) (bool, error) {
	rebootRequired := overwrite

	param, err := e.GetParam(ctx, "SCR_ENABLE", false)
	if err != nil {
		return false, err
	}
	oldValue := param.Value
	if err := param.Value.SetValue(NewReal32(1.0), e.Encoding()); err != nil {
		return false, err
	}

	if overwrite || !oldValue.Equal(param.Value) {
		if _, err := e.SetParam(ctx, param); err != nil {
			return false, err
		}
		rebootRequired = true
	}

	return rebootRequired, nil
}

// ReloadLuaScripts issues the ArduPilot scripting stop-and-restart
// sub-command so a freshly written script is picked up without a full
// reboot.
func (e *Engine) ReloadLuaScripts(ctx context.Context) error {
	const scriptingCmdStopAndRestart = 3
	return e.SendCommand(ctx, ardupilotmega.MAV_CMD_SCRIPTING, [7]float32{scriptingCmdStopAndRestart})
}

// AutopilotRebooter reboots the autopilot through whatever out-of-band
// mechanism the deployment provides (e.g. a companion-computer HTTP
// registrar); when supplied it is used instead of MAV_CMD_PREFLIGHT_REBOOT_SHUTDOWN.
type AutopilotRebooter interface {
	RebootAutopilot(ctx context.Context) error
}

// RebootAutopilot issues MAV_CMD_PREFLIGHT_REBOOT_SHUTDOWN directly. If a
// rebooter is supplied (a companion-computer side-channel), it is called
// instead and its result returned as-is; the command is not sent then.
func (e *Engine) RebootAutopilot(ctx context.Context, rebooter AutopilotRebooter) error {
	if rebooter != nil {
		return rebooter.RebootAutopilot(ctx)
	}

	return e.SendCommand(ctx, ardupilotmega.MAV_CMD_PREFLIGHT_REBOOT_SHUTDOWN, [7]float32{1})
}
