package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

func testCameraActuators() actuators.CameraActuators {
	ca := actuators.DefaultCameraActuators()
	ca.CameraUUID = uuid.New()
	return ca
}

func TestRenderIsDeterministic(t *testing.T) {
	a := testCameraActuators()
	b := a
	b.CameraUUID = a.CameraUUID

	renderedA, err := Render(a)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	renderedB, err := Render(b)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if renderedA != renderedB {
		t.Fatal("expected structurally equal configurations to render byte-for-byte identically")
	}
}

func TestRenderEmbedsCalibrationPoints(t *testing.T) {
	ca := testCameraActuators()
	rendered, err := Render(ca)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !containsAll(rendered, "{zoom=900, focus=882}", "{zoom=2100, focus=1930}", "PARAM_TABLE_KEY = 74") {
		t.Fatalf("rendered script missing expected calibration/table content:\n%s", rendered)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !contains(s, sub) {
			return false
		}
	}
	return true
}

func contains(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func TestValidateRejectsBrokenLua(t *testing.T) {
	if err := Validate("local x = (1 +"); err == nil {
		t.Fatal("expected a syntax error for unbalanced parentheses")
	}
}

func TestValidateAcceptsRenderedScript(t *testing.T) {
	rendered, err := Render(testCameraActuators())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if err := Validate(rendered); err != nil {
		t.Fatalf("expected the rendered script to validate, got: %v", err)
	}
}

func TestGeneratorExportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radcam.lua")
	g := NewGenerator(path, nil)
	ca := testCameraActuators()

	changed, err := g.Export(ca, false)
	if err != nil {
		t.Fatalf("first Export failed: %v", err)
	}
	if !changed {
		t.Fatal("expected the first export to report a change")
	}

	changed, err = g.Export(ca, false)
	if err != nil {
		t.Fatalf("second Export failed: %v", err)
	}
	if changed {
		t.Fatal("expected an unchanged export to be a no-op")
	}
}

func TestGeneratorExportOverwriteForcesWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "radcam.lua")
	g := NewGenerator(path, nil)
	ca := testCameraActuators()

	if _, err := g.Export(ca, false); err != nil {
		t.Fatalf("first Export failed: %v", err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed reading script: %v", err)
	}

	changed, err := g.Export(ca, true)
	if err != nil {
		t.Fatalf("overwrite Export failed: %v", err)
	}
	if !changed {
		t.Fatal("expected overwrite=true to report a change even when the content is identical")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed reading script: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("expected overwrite to reproduce identical content")
	}
}
