package actuators

import (
	"context"

	"github.com/google/uuid"
)

// UpdateClosestPoints and UpdateFurthestPoints replace one calibration
// curve and leave the configured servo and mount parameter values as they
// are; UpdateConfig's read-compare-write sweep still runs and rewrites any
// of those parameters that has drifted on the autopilot. Calibration points
// are Lua-only: they are embedded in the generated script but never pushed
// to the autopilot as RCAM* parameters.
func (m *Manager) UpdateClosestPoints(ctx context.Context, id uuid.UUID, points FocusZoomPoints) (CameraActuators, error) {
	return m.UpdateConfig(ctx, id, ActuatorsConfig{ClosestPoints: &points}, false)
}

func (m *Manager) UpdateFurthestPoints(ctx context.Context, id uuid.UUID, points FocusZoomPoints) (CameraActuators, error) {
	return m.UpdateConfig(ctx, id, ActuatorsConfig{FurthestPoints: &points}, false)
}
