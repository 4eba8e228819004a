package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/logging"
	"github.com/avolkov-dev/filevault/internal/server/models"
	"github.com/avolkov-dev/filevault/internal/server/repositories/repomanager"
)

// ShareService manages access grants. The wrapped key in a grant is
// produced client-side by the owner, who unwraps their own copy and
// re-wraps the same symmetric key for the recipient; the server only
// stores the result.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       *AuditService
	logger      logging.Logger
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, audit *AuditService, logger logging.Logger) *ShareService {
	return &ShareService{db: db, repomanager: m, audit: audit, logger: logger}
}

// Share grants recipientID access to the owner's file. Exactly one grant
// may exist per (file, recipient) pair; a duplicate attempt fails with
// ErrAlreadyShared, backstopped by the unique constraint against races.
func (s *ShareService) Share(ctx context.Context, ownerID, fileID, recipientID, wrappedKey string) (*models.AccessGrant, error) {

	if wrappedKey == "" || recipientID == "" {
		return nil, common.ErrValidation
	}
	if recipientID == ownerID {
		return nil, common.ErrValidation
	}

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

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, recipientID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}

	grant := &models.AccessGrant{
		ID:         uuid.NewString(),
		FileID:     fileID,
		SharedWith: recipientID,
		OwnerID:    ownerID,
		WrappedKey: wrappedKey,
	}

	grant, err = s.repomanager.Grants(s.db).Create(ctx, grant)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyShared) {
			return nil, common.ErrAlreadyShared
		}
		return nil, fmt.Errorf("error creating grant: %w", err)
	}

	s.audit.Append(ctx, ownerID, "file shared", "", fmt.Sprintf(`{"fileId":%q,"recipientId":%q}`, fileID, recipientID))

	return grant, nil
}

// Unshare revokes one recipient's grant. Either the owner or the recipient
// themselves may revoke; other recipients' grants are untouched.
func (s *ShareService) Unshare(ctx context.Context, requesterID, fileID, recipientID, actionToken string) error {

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return common.ErrInternal
	}

	if requesterID != file.OwnerID && requesterID != recipientID {
		return common.ErrForbidden
	}

	if err := verifyAction(ctx, s.repomanager, s.db, s.logger, requesterID, actionToken, ActionUnshareFile); err != nil {
		return err
	}

	if err := s.repomanager.Grants(s.db).Delete(ctx, fileID, recipientID); err != nil {
		if errors.Is(err, common.ErrNotShared) {
			return common.ErrNotShared
		}
		return fmt.Errorf("error deleting grant: %w", err)
	}

	s.audit.Append(ctx, requesterID, "file unshared", actionToken, fmt.Sprintf(`{"fileId":%q,"recipientId":%q}`, fileID, recipientID))

	return nil
}

// ListSharedWith returns the accounts holding grants on a file. Owner only.
func (s *ShareService) ListSharedWith(ctx context.Context, requesterID, fileID string) ([]*models.AccessGrant, error) {

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	if file.OwnerID != requesterID {
		return nil, common.ErrForbidden
	}

	grants, err := s.repomanager.Grants(s.db).ListByFile(ctx, fileID)
	if err != nil {
		return nil, common.ErrInternal
	}

	return grants, nil
}

// ListShareable returns candidate recipients for a file: every account
// except the owner and the existing grant holders.
func (s *ShareService) ListShareable(ctx context.Context, requesterID, fileID string) ([]*models.User, error) {

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	if file.OwnerID != requesterID {
		return nil, common.ErrForbidden
	}

	grants, err := s.repomanager.Grants(s.db).ListByFile(ctx, fileID)
	if err != nil {
		return nil, common.ErrInternal
	}

	granted := make(map[string]struct{}, len(grants))
	for _, g := range grants {
		granted[g.SharedWith] = struct{}{}
	}

	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.ErrInternal
	}

	var candidates []*models.User
	for _, u := range users {
		if u.ID == file.OwnerID {
			continue
		}
		if _, ok := granted[u.ID]; ok {
			continue
		}
		candidates = append(candidates, u)
	}

	return candidates, nil
}
