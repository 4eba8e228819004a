package services

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
	"github.com/avolkov-dev/filevault/internal/server/models"
	filesrepo "github.com/avolkov-dev/filevault/internal/server/repositories/files"
	grantsrepo "github.com/avolkov-dev/filevault/internal/server/repositories/grants"
	logsrepo "github.com/avolkov-dev/filevault/internal/server/repositories/logs"
	refreshrepo "github.com/avolkov-dev/filevault/internal/server/repositories/refreshtokens"
	"github.com/avolkov-dev/filevault/internal/server/repositories/repomanager"
	usersrepo "github.com/avolkov-dev/filevault/internal/server/repositories/users"
)

// --- in-memory fakes ---

type fakeUsersRepo struct {
	users  map[string]*models.User // by ID
	admins map[string]bool
	err    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}, admins: map[string]bool{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) AdvanceCounter(ctx context.Context, userID string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return 0, common.ErrNotFound
	}
	u.Counter++
	return u.Counter, nil
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUsersRepo) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.admins[userID], nil
}

type fakeFilesRepo struct {
	files map[string]*models.File
	err   error
}

func newFakeFilesRepo() *fakeFilesRepo {
	return &fakeFilesRepo{files: map[string]*models.File{}}
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *file
	f.files[file.ID] = &cp
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	file, ok := f.files[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFilesRepo) ListByOwner(ctx context.Context, ownerID string) ([]*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.File
	for _, file := range f.files {
		if file.OwnerID == ownerID {
			cp := *file
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) ListSharedWith(ctx context.Context, userID string) ([]*models.File, error) {
	return nil, nil
}

func (f *fakeFilesRepo) Update(ctx context.Context, file *models.File) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.files[file.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *file
	f.files[file.ID] = &cp
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.files[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.files, id)
	return nil
}

type fakeGrantsRepo struct {
	grants map[string]*models.AccessGrant // by fileID+"/"+sharedWith
	err    error
}

func newFakeGrantsRepo() *fakeGrantsRepo {
	return &fakeGrantsRepo{grants: map[string]*models.AccessGrant{}}
}

func (f *fakeGrantsRepo) Create(ctx context.Context, g *models.AccessGrant) (*models.AccessGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := g.FileID + "/" + g.SharedWith
	if _, ok := f.grants[key]; ok {
		return nil, common.ErrAlreadyShared
	}
	cp := *g
	f.grants[key] = &cp
	return g, nil
}

func (f *fakeGrantsRepo) Get(ctx context.Context, fileID, sharedWith string) (*models.AccessGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	g, ok := f.grants[fileID+"/"+sharedWith]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGrantsRepo) ListByFile(ctx context.Context, fileID string) ([]*models.AccessGrant, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.AccessGrant
	for _, g := range f.grants {
		if g.FileID == fileID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeGrantsRepo) Delete(ctx context.Context, fileID, sharedWith string) error {
	if f.err != nil {
		return f.err
	}
	key := fileID + "/" + sharedWith
	if _, ok := f.grants[key]; !ok {
		return common.ErrNotShared
	}
	delete(f.grants, key)
	return nil
}

func (f *fakeGrantsRepo) DeleteByFile(ctx context.Context, fileID string) error {
	if f.err != nil {
		return f.err
	}
	for key, g := range f.grants {
		if g.FileID == fileID {
			delete(f.grants, key)
		}
	}
	return nil
}

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken
	err    error
}

func newFakeRefreshRepo() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteByUser(ctx context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
		}
	}
	return nil
}

type fakeLogsRepo struct {
	entries []*models.LogEntry
	err     error
}

func (f *fakeLogsRepo) Append(ctx context.Context, e *models.LogEntry) error {
	if f.err != nil {
		return f.err
	}
	cp := *e
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeLogsRepo) List(ctx context.Context, limit int) ([]*models.LogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return f.entries[:limit], nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	f  *fakeFilesRepo
	g  *fakeGrantsRepo
	r  *fakeRefreshRepo
	lg *fakeLogsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u:  newFakeUsersRepo(),
		f:  newFakeFilesRepo(),
		g:  newFakeGrantsRepo(),
		r:  newFakeRefreshRepo(),
		lg: &fakeLogsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository           { return m.u }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository           { return m.f }
func (m *fakeRepoManager) Grants(db dbx.DBTX) grantsrepo.Repository         { return m.g }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshrepo.Repository { return m.r }
func (m *fakeRepoManager) Logs(db dbx.DBTX) logsrepo.Repository             { return m.lg }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

type fakeBlobStore struct {
	blobs  map[string][]byte
	putErr error
	getErr error
	delErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.blobs[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	return data, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.blobs, key)
	return nil
}

// --- helpers ---

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}
