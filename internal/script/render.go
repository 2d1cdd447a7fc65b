package script

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

var (
	parseOnce sync.Once
	parsed    *template.Template
	parseErr  error
)

func compiledTemplate() (*template.Template, error) {
	parseOnce.Do(func() {
		parsed, parseErr = template.New("radcam.lua").Parse(luaTemplate)
	})
	return parsed, parseErr
}

// Render deterministically produces the Lua source for ca's current
// configuration: structurally equal configurations always render
// byte-for-byte identical text.
func Render(ca actuators.CameraActuators) (string, error) {
	tmpl, err := compiledTemplate()
	if err != nil {
		return "", fmt.Errorf("script template is invalid: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newRenderContext(ca)); err != nil {
		return "", fmt.Errorf("failed rendering lua script: %w", err)
	}
	return buf.String(), nil
}
