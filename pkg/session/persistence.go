package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var sessionIDSafeRe = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// FilePersistence stores one JSON snapshot per session under a directory.
// Intended for local development where a conversation may outlive the
// process; not safe for concurrent writers across processes.
type FilePersistence struct {
	dir string
}

// NewFilePersistence creates the directory if needed.
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &FilePersistence{dir: dir}, nil
}

// Save writes the snapshot atomically via a temp-file rename.
func (f *FilePersistence) Save(sessionID string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling context snapshot: %w", err)
	}

	path := f.path(sessionID)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing context snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing context snapshot: %w", err)
	}

	return nil
}

// Load reads a previously saved snapshot. The second return is false when no
// snapshot exists for the session.
func (f *FilePersistence) Load(sessionID string) (Snapshot, bool, error) {
	data, err := os.ReadFile(f.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}

	if err != nil {
		return Snapshot{}, false, fmt.Errorf("reading context snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decoding context snapshot: %w", err)
	}

	return snap, true, nil
}

func (f *FilePersistence) path(sessionID string) string {
	safe := sessionIDSafeRe.ReplaceAllString(sessionID, "_")

	return filepath.Join(f.dir, safe+".json")
}
