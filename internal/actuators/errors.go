package actuators

import "errors"

var ErrCameraNotFound = errors.New("actuators: camera not configured")
