package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
)

// Store is a single JSON settings file with versioned auto-migration on
// load and byte-compare-then-rotate-backup semantics on save: a save that
// would produce identical bytes is a no-op, and any save that does change
// the file first copies the previous contents to a timestamped ".bak"
// sibling.
type Store struct {
	mu   sync.Mutex
	path string
	data *Data
	log  *logrus.Entry
}

// Open loads path, or the newest ".bak" sibling if path doesn't exist yet,
// migrating a V0 document to an empty V1 one. A brand-new install (no
// primary file and no backups) starts from an empty document and its
// first Save creates path.
func Open(path string, log *logrus.Entry) (*Store, error) {
	s := &Store{path: path, log: log}

	if _, err := os.Stat(path); err == nil {
		data, err := readAndMigrate(path, log)
		if err != nil {
			return nil, err
		}
		s.data = data
		return s, s.Save()
	}

	backup, err := newestBackup(path)
	if err != nil {
		return nil, err
	}
	if backup == "" {
		s.data = NewData()
		return s, s.Save()
	}

	data, err := readAndMigrate(backup, log)
	if err != nil {
		return nil, err
	}
	s.data = data
	s.path = path
	return s, s.Save()
}

func readAndMigrate(path string, log *logrus.Entry) (*Data, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %q: %w", path, err)
	}

	var raw rawData
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from %q: %w", path, err)
	}

	if raw.Version == V0 {
		log.Warnf("migrating settings V0 to V1 from %q", path)
	}

	return fromRaw(raw), nil
}

// newestBackup finds the most recently modified "settings.json.<ts>.bak"
// sibling of path, or "" if none exist.
func newestBackup(path string) (string, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	base := filepath.Base(path)
	var newest string
	var newestMod time.Time

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, base+".") || !strings.HasSuffix(name, ".bak") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, name)
			newestMod = info.ModTime()
		}
	}

	return newest, nil
}

// Save serializes the current document, skipping the write entirely if it
// would produce byte-identical contents to what's already on disk, and
// otherwise first rotating the existing file to a timestamped backup.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := toRaw(s.data)
	newContents, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize settings to JSON: %w", err)
	}

	if existing, err := os.ReadFile(s.path); err == nil {
		if string(existing) == string(newContents) {
			s.log.Trace("settings unchanged, not writing or backing up")
			return nil
		}

		backupPath := fmt.Sprintf("%s.%d.bak", s.path, stamp())
		if err := copyFile(s.path, backupPath); err != nil {
			return fmt.Errorf("failed to back up file to %q: %w", backupPath, err)
		}
		s.log.Debugf("created backup: %q", backupPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing settings file %q: %w", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, newContents, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file to %q: %w", s.path, err)
	}

	s.log.Debugf("wrote new settings to %q", s.path)
	return nil
}

func copyFile(src, dst string) error {
	contents, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, contents, 0o644)
}

// stamp returns the current unix timestamp; isolated behind a var so tests
// can pin it deterministically.
var stamp = func() int64 { return time.Now().Unix() }

// Data returns the live document. Callers mutate it in place and call
// Save to persist.
func (s *Store) Data() *Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Get returns camera id's persisted actuators record, if any. It
// implements actuators.SettingsStore.
func (s *Store) Get(id uuid.UUID) (actuators.CameraActuators, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ca, ok := s.data.Actuators[id]
	return ca, ok
}

// Set replaces (or inserts) camera id's persisted actuators record. The
// caller must still call Save to make the change durable.
func (s *Store) Set(id uuid.UUID, ca actuators.CameraActuators) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Actuators[id] = ca
}

// All returns a snapshot of every persisted actuators record.
func (s *Store) All() map[uuid.UUID]actuators.CameraActuators {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]actuators.CameraActuators, len(s.data.Actuators))
	for id, ca := range s.data.Actuators {
		out[id] = ca
	}
	return out
}
