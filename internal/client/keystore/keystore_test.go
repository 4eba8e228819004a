package keystore

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/avolkov-dev/filevault/internal/client/vault"
)

func testStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "keys.json"))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := testStore(t)

	id := &vault.Identity{
		UserID:            "u1",
		Username:          "alice",
		PrivateKey:        "enc-priv",
		SigningPrivateKey: "sig-priv",
	}
	if err := s.Save(id); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := s.Load("alice")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if *got != *id {
		t.Fatalf("got %+v, want %+v", got, id)
	}
}

func TestLoad_Unknown(t *testing.T) {
	s := testStore(t)
	if _, err := s.Load("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_KeepsOtherIdentities(t *testing.T) {
	s := testStore(t)

	if err := s.Save(&vault.Identity{Username: "alice", UserID: "u1"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Save(&vault.Identity{Username: "bob", UserID: "u2"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names: %v", names)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)

	if err := s.Save(&vault.Identity{Username: "alice"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := s.Delete("alice"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.Load("alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// deleting again is a no-op
	if err := s.Delete("alice"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}

func TestFilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permissions only")
	}

	s := testStore(t)
	if err := s.Save(&vault.Identity{Username: "alice"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("permissions: %o", perm)
	}
}
