// Package keystore persists account identities (user id plus private
// keys) in a JSON file on the client machine. Losing this file means
// losing access to every encrypted file, so writes are atomic.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avolkov-dev/filevault/internal/client/vault"
)

var ErrNotFound = errors.New("keystore: identity not found")

// FileStore keeps identities keyed by username in a single JSON file,
// created with 0600 permissions.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]*vault.Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*vault.Identity{}, nil
		}
		return nil, fmt.Errorf("read keystore: %w", err)
	}

	out := map[string]*vault.Identity{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	return out, nil
}

func (s *FileStore) write(ids map[string]*vault.Identity) error {
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace keystore: %w", err)
	}
	return nil
}

// Save stores or replaces the identity for its username.
func (s *FileStore) Save(id *vault.Identity) error {
	ids, err := s.load()
	if err != nil {
		return err
	}
	ids[id.Username] = id
	return s.write(ids)
}

// Load returns the identity saved for username, or ErrNotFound.
func (s *FileStore) Load(username string) (*vault.Identity, error) {
	ids, err := s.load()
	if err != nil {
		return nil, err
	}
	id, ok := ids[username]
	if !ok {
		return nil, ErrNotFound
	}
	return id, nil
}

// Delete removes the identity for username. Deleting an absent entry is
// not an error.
func (s *FileStore) Delete(username string) error {
	ids, err := s.load()
	if err != nil {
		return err
	}
	delete(ids, username)
	return s.write(ids)
}

// List returns the usernames with a stored identity.
func (s *FileStore) List() ([]string, error) {
	ids, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for username := range ids {
		out = append(out, username)
	}
	return out, nil
}
