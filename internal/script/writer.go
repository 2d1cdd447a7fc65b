package script

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// Generator renders, validates and writes the Lua control script to a
// single configured path. It implements actuators.ScriptExporter.
type Generator struct {
	Path string
	log  *logrus.Entry
}

// NewGenerator returns a Generator writing to path.
func NewGenerator(path string, log *logrus.Entry) *Generator {
	return &Generator{Path: path, log: log}
}

// Export renders ca's configuration, validates the result, and writes it
// to g.Path if the contents differ from what's already there (or
// overwrite forces a write regardless). It reports whether it wrote the
// file: true when the contents differed, and always true when overwrite is
// set, even if the rewritten contents are identical. A validation failure
// leaves the existing
// file untouched and no reload is ever warranted for it.
func (g *Generator) Export(ca actuators.CameraActuators, overwrite bool) (bool, error) {
	rendered, err := Render(ca)
	if err != nil {
		return false, err
	}

	if err := Validate(rendered); err != nil {
		return false, fmt.Errorf("export_script(%s): %w", ca.CameraUUID, err)
	}

	if !overwrite {
		if existing, err := os.ReadFile(g.Path); err == nil && string(existing) == rendered {
			return false, nil
		} else if err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("failed reading existing script %q: %w", g.Path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(g.Path), 0o755); err != nil {
		return false, fmt.Errorf("failed creating script directory: %w", err)
	}

	tmp := g.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(rendered), 0o644); err != nil {
		return false, fmt.Errorf("failed writing temporary script %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, g.Path); err != nil {
		return false, fmt.Errorf("failed renaming script into place at %q: %w", g.Path, err)
	}

	if g.log != nil {
		g.log.Debugf("wrote lua script to %q for camera %s", g.Path, ca.CameraUUID)
	}
	return true, nil
}
