package install

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// ManifestFileName is the lock manifest kept next to installed skills.
const ManifestFileName = "skills.lock.json"

const manifestVersion = 1

// Manifest records where each installed skill came from.
type Manifest struct {
	Version int              `json:"version"`
	Skills  map[string]Entry `json:"skills"`
}

// Entry is the provenance of one installed skill.
type Entry struct {
	Source      string    `json:"source"`
	Ref         string    `json:"ref,omitempty"`
	Path        string    `json:"path,omitempty"`
	InstalledAt time.Time `json:"installed_at"`
}

func newManifest() *Manifest {
	return &Manifest{Version: manifestVersion, Skills: map[string]Entry{}}
}

// ReadManifest reads the manifest at path. A missing file is an empty manifest.
func ReadManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return newManifest(), nil
	}

	data, err := lockedfile.Read(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read lock manifest")
	}
	return decodeManifest(data)
}

func decodeManifest(data []byte) (*Manifest, error) {
	m := newManifest()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, "failed to parse lock manifest")
	}
	if m.Skills == nil {
		m.Skills = map[string]Entry{}
	}
	return m, nil
}

// UpdateManifest applies fn to the manifest at path while holding its file
// lock, creating the file when needed.
func UpdateManifest(path string, fn func(*Manifest) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create manifest directory")
	}

	err := lockedfile.Transform(path, func(data []byte) ([]byte, error) {
		m, err := decodeManifest(data)
		if err != nil {
			return nil, err
		}
		if err := fn(m); err != nil {
			return nil, err
		}
		m.Version = manifestVersion

		out, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal lock manifest")
		}
		return append(out, '\n'), nil
	})
	return errors.Wrap(err, "failed to update lock manifest")
}
