package mavlink

import "errors"

var (
	ErrNotConnected    = errors.New("mavlink: not connected")
	ErrTimeout         = errors.New("mavlink: timed out waiting for a response")
	ErrCommandRejected = errors.New("mavlink: command rejected by autopilot")
	ErrParamRejected   = errors.New("mavlink: autopilot did not accept the parameter value")
	ErrReceiverClosed  = errors.New("mavlink: receiver channel closed")
	ErrCameraNotFound  = errors.New("mavlink: camera not configured")
	ErrTooManyRetries  = errors.New("mavlink: failed after too many tries")
)
