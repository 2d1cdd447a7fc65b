package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestMigrateV0InsertAndPersistActuators(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	v0 := []byte(`{"version":0,"data":{}}`)
	if err := os.WriteFile(path, v0, 0o644); err != nil {
		t.Fatalf("failed writing v0 fixture: %v", err)
	}

	store, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(store.Data().Actuators) != 0 {
		t.Fatalf("expected empty actuator map from V0 migration")
	}

	id := uuid.New()
	ca := actuators.DefaultCameraActuators()
	ca.CameraUUID = id
	ca.State.Focus = float32Ptr(1.0)
	ca.State.Zoom = float32Ptr(2.0)
	ca.State.Tilt = float32Ptr(3.0)
	store.Data().Actuators[id] = ca

	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, ok := reloaded.Data().Actuators[id]
	if !ok {
		t.Fatalf("expected actuator %s to survive reload", id)
	}
	if *got.State.Focus != 1.0 || *got.State.Zoom != 2.0 || *got.State.Tilt != 3.0 {
		t.Fatalf("state did not round-trip: %+v", got.State)
	}
}

func TestSaveIsNoOpWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	store, err := Open(path, testLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file (no backup from a no-op save), got %d", len(entries))
	}
}

func float32Ptr(v float32) *float32 { return &v }
