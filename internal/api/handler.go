package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// Handler adapts HTTP requests onto the actuator manager and the
// externally-provided camera lister.
type Handler struct {
	manager        *actuators.Manager
	lister         CameraLister
	defaultAPIVersion uint8
	log            *logrus.Entry
}

// NewHandler wires a Handler. lister may be nil, in which case /list
// reports an empty inventory rather than failing.
func NewHandler(manager *actuators.Manager, lister CameraLister, defaultAPIVersion uint8, log *logrus.Entry) *Handler {
	return &Handler{manager: manager, lister: lister, defaultAPIVersion: defaultAPIVersion, log: log}
}

// Control handles POST /control.
func (h *Handler) Control(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx := r.Context()

	switch req.Action.Type {
	case ActionGetState:
		state, err := h.manager.GetState(ctx, req.CameraUUID)
		h.respond(w, state, err)

	case ActionSetState:
		if req.Action.State == nil {
			jsonError(w, http.StatusBadRequest, "set_state requires a state body")
			return
		}
		state, err := h.manager.UpdateState(ctx, req.CameraUUID, *req.Action.State)
		h.respond(w, state, err)

	case ActionGetConfig:
		ca, err := h.manager.GetConfig(req.CameraUUID)
		h.respond(w, ca, err)

	case ActionSetConfig:
		cfg := actuators.ActuatorsConfig{}
		if req.Action.Config != nil {
			cfg = *req.Action.Config
		}
		if cfg.Parameters == nil && cfg.ClosestPoints == nil && cfg.FurthestPoints == nil {
			// The manager treats a fully empty patch as a reset; an empty
			// set_config keeps every current value instead.
			cfg.Parameters = &actuators.ActuatorsParametersConfig{}
		}
		ca, err := h.manager.UpdateConfig(ctx, req.CameraUUID, cfg, req.Action.Overwrite)
		h.respond(w, ca, err)

	case ActionResetConfig:
		ca, err := h.manager.ResetConfig(ctx, req.CameraUUID)
		h.respond(w, ca, err)

	case ActionExportLua:
		changed, err := h.manager.ExportLuaScript(ctx, req.CameraUUID, req.Action.Overwrite)
		h.respond(w, map[string]bool{"changed": changed}, err)

	default:
		jsonError(w, http.StatusBadRequest, "unknown action type")
	}
}

// respond maps a manager error to HTTP 500 with the error chain as body,
// or a camera-not-found error to 404; any other success path writes 200
// with the JSON-encoded result.
func (h *Handler) respond(w http.ResponseWriter, result interface{}, err error) {
	if err != nil {
		if errors.Is(err, actuators.ErrCameraNotFound) {
			jsonError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Warnf("request failed: %v", err)
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// List handles GET /list.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.lister == nil {
		jsonResponse(w, http.StatusOK, []CameraSummary{})
		return
	}
	cameras, err := h.lister.ListCameras(r.Context())
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, cameras)
}

// ServerMetadata handles GET /server_metadata.
func (h *Handler) ServerMetadata(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, ServerMetadata{
		Name:              "radcam-manager",
		Description:       "camera actuator manager for focus/zoom correlation",
		DefaultAPIVersion: h.defaultAPIVersion,
	})
}

// CockpitExtras handles GET /cockpit_extras.
func (h *Handler) CockpitExtras(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, CockpitExtras{
		TargetSystem: "radcam-manager",
		IframeURL:    "/",
	})
}

func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}
