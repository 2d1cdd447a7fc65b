// Package api implements the small HTTP-facing request/response surface
// C5 (the actuator manager) is driven through: a single control endpoint
// accepting a tagged-union action, a camera inventory listing backed by an
// external discovery collaborator, and the static registration documents
// the host platform polls for extension metadata.
package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// ActionType tags which operation a ControlRequest carries.
type ActionType string

const (
	ActionGetState    ActionType = "get_state"
	ActionSetState    ActionType = "set_state"
	ActionGetConfig   ActionType = "get_config"
	ActionSetConfig   ActionType = "set_config"
	ActionResetConfig ActionType = "reset_config"
	ActionExportLua   ActionType = "export_lua_script"
)

// ControlRequest is the wire body of POST /control.
type ControlRequest struct {
	CameraUUID uuid.UUID    `json:"camera_uuid"`
	Action     ActionBody   `json:"action"`
}

// ActionBody carries exactly the fields its Type needs; the rest are
// ignored. SetConfig's Config is structurally merged onto the camera's
// current record by the manager, so absent fields are preserved.
type ActionBody struct {
	Type      ActionType                       `json:"type"`
	State     *actuators.ActuatorsState        `json:"state,omitempty"`
	Config    *actuators.ActuatorsConfig       `json:"config,omitempty"`
	Overwrite bool                             `json:"overwrite,omitempty"`
}

// CameraSummary is one entry of the discovery collaborator's inventory.
type CameraSummary struct {
	UUID uuid.UUID `json:"uuid"`
	Name string    `json:"name"`
}

// CameraLister is the discovery client's surface, injected rather than
// implemented here: camera discovery is an external collaborator.
type CameraLister interface {
	ListCameras(ctx context.Context) ([]CameraSummary, error)
}

// ServerMetadata is the static extension-registration document served at
// GET /server_metadata.
type ServerMetadata struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	DefaultAPIVersion uint8 `json:"default_api_version"`
}

// CockpitExtras is the static widget-registration document the Cockpit
// frontend polls for at GET /cockpit_extras.
type CockpitExtras struct {
	TargetSystem string `json:"target-system"`
	IframeURL    string `json:"iframe-url"`
}
