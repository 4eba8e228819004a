package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/avolkov-dev/filevault/internal/actionsign"
	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/dbx"
	"github.com/avolkov-dev/filevault/internal/logging"
	"github.com/avolkov-dev/filevault/internal/server/blobstore"
	"github.com/avolkov-dev/filevault/internal/server/models"
	"github.com/avolkov-dev/filevault/internal/server/repositories/repomanager"
)

// Action names carried in signed action tokens. Destructive operations are
// refused without a valid token naming the matching action.
const (
	ActionEditFile    = "edit-file"
	ActionDeleteFile  = "delete-file"
	ActionUnshareFile = "unshare-file"
	ActionLogout      = "logout"
)

// UploadRequest carries the client-encrypted payload of a new file. The
// server never sees the plaintext or the unwrapped key.
type UploadRequest struct {
	Ciphertext      []byte
	IV              string
	WrappedOwnerKey string
	OriginalName    string
	OriginalType    string
	Size            int64
}

// EditRequest replaces a file's ciphertext. The symmetric key must stay the
// one chosen at upload so outstanding grants keep working; only the IV and
// ciphertext change.
type EditRequest struct {
	FileID          string
	Ciphertext      []byte
	IV              string
	WrappedOwnerKey string
	OriginalName    string
	OriginalType    string
	Size            int64
	ActionToken     string
}

// DownloadResult is the ciphertext plus what the caller needs to decrypt
// it: the IV and the wrapped key addressed to that caller.
type DownloadResult struct {
	Ciphertext        []byte
	IV                string
	WrappedKeyForUser string
	OriginalName      string
	OriginalType      string
}

type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	audit       *AuditService
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, audit *AuditService, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		audit:       audit,
		logger:      logger,
	}
}

// sanitizeFileName strips path separators and control characters so stored
// names are safe to echo back in headers and listings.
func sanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (s *FileService) Upload(ctx context.Context, ownerID string, req *UploadRequest) (*models.File, error) {

	if len(req.Ciphertext) == 0 || req.IV == "" || req.WrappedOwnerKey == "" {
		return nil, common.ErrValidation
	}

	file := &models.File{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		IV:              req.IV,
		WrappedOwnerKey: req.WrappedOwnerKey,
		OriginalName:    sanitizeFileName(req.OriginalName),
		OriginalType:    req.OriginalType,
		Size:            req.Size,
		StorageKey:      blobstore.NewStorageKey(),
	}

	if err := s.blobs.Put(ctx, file.StorageKey, req.Ciphertext); err != nil {
		return nil, fmt.Errorf("error storing blob: %w", err)
	}

	file, err := s.repomanager.Files(s.db).Create(ctx, file)
	if err != nil {
		// metadata insert failed; drop the orphaned blob
		if delErr := s.blobs.Delete(ctx, file.StorageKey); delErr != nil {
			s.logger.Error(ctx, "orphaned blob cleanup failed", "storage_key", file.StorageKey, "error", delErr)
		}
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	s.audit.Append(ctx, ownerID, "file uploaded", "", fmt.Sprintf(`{"fileId":%q}`, file.ID))

	return file, nil
}

func (s *FileService) Edit(ctx context.Context, ownerID string, req *EditRequest) (*models.File, error) {

	if len(req.Ciphertext) == 0 || req.IV == "" {
		return nil, common.ErrValidation
	}

	file, err := s.getOwnedFile(ctx, ownerID, req.FileID)
	if err != nil {
		return nil, err
	}

	if err := s.verifyAction(ctx, ownerID, req.ActionToken, ActionEditFile); err != nil {
		return nil, err
	}

	file.IV = req.IV
	if req.WrappedOwnerKey != "" {
		file.WrappedOwnerKey = req.WrappedOwnerKey
	}
	if req.OriginalName != "" {
		file.OriginalName = sanitizeFileName(req.OriginalName)
	}
	if req.OriginalType != "" {
		file.OriginalType = req.OriginalType
	}
	file.Size = req.Size

	if err := s.blobs.Put(ctx, file.StorageKey, req.Ciphertext); err != nil {
		return nil, fmt.Errorf("error storing blob: %w", err)
	}

	if err := s.repomanager.Files(s.db).Update(ctx, file); err != nil {
		return nil, fmt.Errorf("error updating file: %w", err)
	}

	s.audit.Append(ctx, ownerID, "file edited", req.ActionToken, fmt.Sprintf(`{"fileId":%q}`, file.ID))

	return file, nil
}

// Delete removes the metadata row and every grant in one transaction, then
// drops the blob. A recipient's later download fails with not-found.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID, actionToken string) error {

	file, err := s.getOwnedFile(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.verifyAction(ctx, ownerID, actionToken, ActionDeleteFile); err != nil {
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Grants(tx).DeleteByFile(ctx, fileID); err != nil {
			return fmt.Errorf("error deleting grants: %w", err)
		}
		if err := s.repomanager.Files(tx).Delete(ctx, fileID); err != nil {
			return fmt.Errorf("error deleting file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
		s.logger.Error(ctx, "blob delete failed", "storage_key", file.StorageKey, "error", err)
	}

	s.audit.Append(ctx, ownerID, "file deleted", actionToken, fmt.Sprintf(`{"fileId":%q}`, fileID))

	return nil
}

// Download returns the ciphertext with the wrapped key addressed to the
// caller: the owner gets the owner copy, a grant holder gets their grant's
// copy, anyone else is refused without confirming the file exists.
func (s *FileService) Download(ctx context.Context, userID, fileID string) (*DownloadResult, error) {

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	wrappedKey := file.WrappedOwnerKey
	if file.OwnerID != userID {
		grant, err := s.repomanager.Grants(s.db).Get(ctx, fileID, userID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return nil, common.ErrForbidden
			}
			return nil, common.ErrInternal
		}
		wrappedKey = grant.WrappedKey
	}

	ciphertext, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	return &DownloadResult{
		Ciphertext:        ciphertext,
		IV:                file.IV,
		WrappedKeyForUser: wrappedKey,
		OriginalName:      file.OriginalName,
		OriginalType:      file.OriginalType,
	}, nil
}

// WrappedKeyFor returns the wrapped file key addressed to the caller
// without transferring the ciphertext.
func (s *FileService) WrappedKeyFor(ctx context.Context, userID, fileID string) (string, error) {

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNotFound
		}
		return "", common.ErrInternal
	}

	if file.OwnerID == userID {
		return file.WrappedOwnerKey, nil
	}

	grant, err := s.repomanager.Grants(s.db).Get(ctx, fileID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrForbidden
		}
		return "", common.ErrInternal
	}

	return grant.WrappedKey, nil
}

func (s *FileService) ListOwn(ctx context.Context, userID string) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.db).ListByOwner(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return files, nil
}

func (s *FileService) ListSharedWithMe(ctx context.Context, userID string) ([]*models.File, error) {
	files, err := s.repomanager.Files(s.db).ListSharedWith(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return files, nil
}

func (s *FileService) getOwnedFile(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	if file.OwnerID != ownerID {
		return nil, common.ErrForbidden
	}
	return file, nil
}

// verifyAction checks a signed action token against the account's signing
// public key and the expected action name. Failures surface as a generic
// cryptographic error; the cause is logged server-side only.
func (s *FileService) verifyAction(ctx context.Context, userID, token, want string) error {
	return verifyAction(ctx, s.repomanager, s.db, s.logger, userID, token, want)
}

func verifyAction(ctx context.Context, m repomanager.RepositoryManager, db dbx.DBTX, logger logging.Logger, userID, token, want string) error {
	user, err := m.Users(db).GetByID(ctx, userID)
	if err != nil {
		return common.ErrInternal
	}

	action, err := actionsign.Verify(token, user.SigningPublicKey)
	if err != nil {
		logger.Info(ctx, "action token rejected", "user_id", userID, "error", err)
		return common.ErrCrypto
	}
	if action != want {
		logger.Info(ctx, "action token mismatch", "user_id", userID, "action", action, "want", want)
		return common.ErrCrypto
	}

	return nil
}
