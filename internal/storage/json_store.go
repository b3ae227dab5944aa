package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wappgate/wappgate/internal/domain"
)

// JSONFileStore keeps one JSON file per account under baseDir/sessions.
type JSONFileStore struct {
	baseDir string
	mu      sync.RWMutex
}

func NewJSONFileStore(baseDir string) (*JSONFileStore, error) {
	sessionsDir := filepath.Join(baseDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	// Tighten permissions if the directory already existed.
	if info, err := os.Stat(sessionsDir); err == nil {
		if info.Mode().Perm()&0o077 != 0 {
			_ = os.Chmod(sessionsDir, 0o700)
		}
	}

	return &JSONFileStore{baseDir: baseDir}, nil
}

func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wappgate"
	}
	return filepath.Join(home, ".wappgate")
}

func (s *JSONFileStore) recordPath(accountID string) string {
	return filepath.Join(s.baseDir, "sessions", accountID+".json")
}

func (s *JSONFileStore) UpdateSessionState(accountID string, snap domain.SessionSnapshot) error {
	if err := validateAccountID(accountID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.MarshalIndent(toRecordData(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	path := s.recordPath(accountID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write session record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to persist session record: %w", err)
	}
	return nil
}

func (s *JSONFileStore) Load(accountID string) (domain.SessionSnapshot, error) {
	if err := validateAccountID(accountID); err != nil {
		return domain.SessionSnapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, err := os.ReadFile(s.recordPath(accountID))
	if os.IsNotExist(err) {
		return domain.SessionSnapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to read session record: %w", err)
	}

	var data recordData
	if err := json.Unmarshal(payload, &data); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to decode session record: %w", err)
	}
	return fromRecordData(data), nil
}

func (s *JSONFileStore) List() ([]domain.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.baseDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}

	snaps := make([]domain.SessionSnapshot, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		payload, err := os.ReadFile(filepath.Join(s.baseDir, "sessions", name))
		if err != nil {
			continue
		}
		var data recordData
		if err := json.Unmarshal(payload, &data); err != nil {
			continue
		}
		snaps = append(snaps, fromRecordData(data))
	}
	return snaps, nil
}

func (s *JSONFileStore) Delete(accountID string) error {
	if err := validateAccountID(accountID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.recordPath(accountID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *JSONFileStore) Close() error {
	return nil
}
