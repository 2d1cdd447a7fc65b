// Package settings implements the versioned, on-disk persistence of each
// camera's actuator configuration: a small JSON document with automatic
// backup rotation on every change and a tagged-union schema version so
// older files keep loading after the schema grows.
package settings

import (
	"github.com/google/uuid"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// SchemaVersion tags the on-disk representation.
type SchemaVersion int

const (
	// V0 predates per-camera actuator settings; it carries no data and
	// exists only so an old file still parses during migration.
	V0 SchemaVersion = iota
	V1
)

// Data is the in-memory, version-resolved settings document: the store
// always upgrades whatever it loads to this shape before handing it back.
type Data struct {
	Actuators map[uuid.UUID]actuators.CameraActuators
}

// NewData returns an empty V1 document.
func NewData() *Data {
	return &Data{Actuators: make(map[uuid.UUID]actuators.CameraActuators)}
}

// rawData is the tagged-union on-disk envelope: {"version": N, "data": ...}.
// V0's data is an untyped placeholder since the original schema carried no
// actuator state at all.
type rawData struct {
	Version SchemaVersion `json:"version"`
	Data    rawPayload    `json:"data"`
}

type rawPayload struct {
	Actuators map[uuid.UUID]wireCameraActuators `json:"actuators,omitempty"`
}
