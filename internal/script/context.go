// Package script renders, validates and atomically writes the Lua control
// script each camera's autopilot runs to correlate focus with zoom: a
// deterministic text/template rendering, a syntax-only check under
// gopher-lua, and a compare-then-write on disk.
package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// paramTableKeyBase is added to a camera's id to give it its own Lua
// PARAM_TABLE key, so multiple camera scripts never collide.
const paramTableKeyBase = 73

// renderContext is the fully-resolved set of values substituted into the
// template; building it is the only place camera-specific data crosses
// into text.
type renderContext struct {
	ParamTableKey int
	ParamPrefix   string
	MarginGain    string
	KFocus        int
	KZoom         int
	KScript       int
	Enable        int
	ClosestPoints string
	FurthestPoints string
}

func newRenderContext(ca actuators.CameraActuators) renderContext {
	enable := 0
	if ca.Parameters.EnableFocusAndZoomCorrelation {
		enable = 1
	}

	return renderContext{
		ParamTableKey:  paramTableKeyBase + ca.Parameters.CameraID,
		ParamPrefix:    fmt.Sprintf("RCAM%d_", ca.Parameters.CameraID),
		MarginGain:     formatFloat(ca.Parameters.FocusMarginGain),
		KFocus:         int(actuators.FocusChannelFunction),
		KZoom:          int(actuators.ZoomChannelFunction),
		KScript:        int(ca.Parameters.ScriptFunction),
		Enable:         enable,
		ClosestPoints:  renderPoints(ca.ClosestPoints),
		FurthestPoints: renderPoints(ca.FurthestPoints),
	}
}

// renderPoints formats a calibration curve as a Lua array-of-tables
// literal, e.g. {{zoom=900, focus=882}, {zoom=1100, focus=1253}}.
func renderPoints(points actuators.FocusZoomPoints) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range points {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "{zoom=%d, focus=%d}", p.Zoom, p.Focus)
	}
	b.WriteByte('}')
	return b.String()
}

// formatFloat renders a float32 the same way regardless of platform,
// which render determinism (byte-for-byte equal output for structurally
// equal configurations) depends on.
func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
