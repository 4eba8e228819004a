package httpapi

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/dbx"
	"github.com/avolkov-dev/filevault/internal/logging"
	"github.com/avolkov-dev/filevault/internal/server/config"
	"github.com/avolkov-dev/filevault/internal/server/models"
	filesrepo "github.com/avolkov-dev/filevault/internal/server/repositories/files"
	grantsrepo "github.com/avolkov-dev/filevault/internal/server/repositories/grants"
	logsrepo "github.com/avolkov-dev/filevault/internal/server/repositories/logs"
	refreshrepo "github.com/avolkov-dev/filevault/internal/server/repositories/refreshtokens"
	usersrepo "github.com/avolkov-dev/filevault/internal/server/repositories/users"
	"github.com/avolkov-dev/filevault/internal/server/services"
)

// In-memory repositories driving the full service stack in handler tests.

type memUsers struct {
	users  map[string]*models.User
	admins map[string]bool
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, e := range m.users {
		if e.Username == u.Username || e.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return u, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) AdvanceCounter(ctx context.Context, userID string) (int64, error) {
	u, ok := m.users[userID]
	if !ok {
		return 0, common.ErrNotFound
	}
	u.Counter++
	return u.Counter, nil
}

func (m *memUsers) List(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memUsers) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return m.admins[userID], nil
}

type memFiles struct {
	files map[string]*models.File
}

func (m *memFiles) Create(ctx context.Context, f *models.File) (*models.File, error) {
	cp := *f
	m.files[f.ID] = &cp
	return f, nil
}

func (m *memFiles) GetByID(ctx context.Context, id string) (*models.File, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memFiles) ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error) {
	var out []*models.File
	for _, f := range m.files {
		if f.OwnerID == ownerID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memFiles) ListSharedWith(ctx context.Context, userID string) ([]*models.File, error) {
	return nil, nil
}

func (m *memFiles) Update(ctx context.Context, f *models.File) error {
	if _, ok := m.files[f.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *f
	m.files[f.ID] = &cp
	return nil
}

func (m *memFiles) Delete(ctx context.Context, id string) error {
	if _, ok := m.files[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.files, id)
	return nil
}

type memGrants struct {
	grants map[string]*models.AccessGrant
}

func (m *memGrants) Create(ctx context.Context, g *models.AccessGrant) (*models.AccessGrant, error) {
	key := g.FileID + "/" + g.SharedWith
	if _, ok := m.grants[key]; ok {
		return nil, common.ErrAlreadyShared
	}
	cp := *g
	m.grants[key] = &cp
	return g, nil
}

func (m *memGrants) Get(ctx context.Context, fileID, sharedWith string) (*models.AccessGrant, error) {
	g, ok := m.grants[fileID+"/"+sharedWith]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *memGrants) ListByFile(ctx context.Context, fileID string) ([]*models.AccessGrant, error) {
	var out []*models.AccessGrant
	for _, g := range m.grants {
		if g.FileID == fileID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memGrants) Delete(ctx context.Context, fileID, sharedWith string) error {
	key := fileID + "/" + sharedWith
	if _, ok := m.grants[key]; !ok {
		return common.ErrNotShared
	}
	delete(m.grants, key)
	return nil
}

func (m *memGrants) DeleteByFile(ctx context.Context, fileID string) error {
	for k, g := range m.grants {
		if g.FileID == fileID {
			delete(m.grants, k)
		}
	}
	return nil
}

type memRefresh struct {
	tokens map[string]*models.RefreshToken
}

func (m *memRefresh) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	m.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (m *memRefresh) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := m.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memRefresh) Delete(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func (m *memRefresh) DeleteByUser(ctx context.Context, userID string) error {
	for k, t := range m.tokens {
		if t.UserID == userID {
			delete(m.tokens, k)
		}
	}
	return nil
}

type memLogs struct {
	entries []*models.LogEntry
}

func (m *memLogs) Append(ctx context.Context, e *models.LogEntry) error {
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLogs) List(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

type memRepoManager struct {
	u  *memUsers
	f  *memFiles
	g  *memGrants
	r  *memRefresh
	lg *memLogs
}

func newMemRepoManager() *memRepoManager {
	return &memRepoManager{
		u:  &memUsers{users: map[string]*models.User{}, admins: map[string]bool{}},
		f:  &memFiles{files: map[string]*models.File{}},
		g:  &memGrants{grants: map[string]*models.AccessGrant{}},
		r:  &memRefresh{tokens: map[string]*models.RefreshToken{}},
		lg: &memLogs{},
	}
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository           { return m.u }
func (m *memRepoManager) Files(db dbx.DBTX) filesrepo.Repository           { return m.f }
func (m *memRepoManager) Grants(db dbx.DBTX) grantsrepo.Repository         { return m.g }
func (m *memRepoManager) RefreshTokens(db dbx.DBTX) refreshrepo.Repository { return m.r }
func (m *memRepoManager) Logs(db dbx.DBTX) logsrepo.Repository             { return m.lg }

type memBlobs struct {
	blobs map[string][]byte
}

func (m *memBlobs) Put(ctx context.Context, key string, data []byte) error {
	m.blobs[key] = data
	return nil
}

func (m *memBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return data, nil
}

func (m *memBlobs) Delete(ctx context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

// newTestHandler wires the real services onto in-memory repositories. The
// sqlmock connection backs the transactional paths (delete, refresh).
func newTestHandler(t *testing.T) (*Handler, *memRepoManager, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rm := newMemRepoManager()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 24 * time.Hour,
	}

	blobs := &memBlobs{blobs: map[string][]byte{}}
	audit := services.NewAuditService(db, rm, logger)
	users := services.NewUserService(db, rm, cfg)
	files := services.NewFileService(db, rm, blobs, audit, logger)
	shares := services.NewShareService(db, rm, audit, logger)

	return NewHandler(users, files, shares, audit, logger), rm, mock
}
