package services

import (
	"context"
	"database/sql"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/logging"
	"github.com/avolkov-dev/filevault/internal/server/models"
	"github.com/avolkov-dev/filevault/internal/server/repositories/repomanager"
)

const defaultAuditListLimit = 200

// AuditService maintains the append-only audit trail. Signed action tokens
// accompanying destructive operations are stored verbatim so an entry can
// later be re-verified against the account's signing public key.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *AuditService {
	return &AuditService{db: db, repomanager: m, logger: logger}
}

// Append records one audit entry. Audit failures never fail the operation
// being audited; they are logged and dropped.
func (s *AuditService) Append(ctx context.Context, userID, message, signature, metadata string) {
	entry := &models.LogEntry{
		Message:   message,
		UserID:    userID,
		Signature: signature,
		Metadata:  metadata,
		Level:     "info",
	}

	if err := s.repomanager.Logs(s.db).Append(ctx, entry); err != nil {
		s.logger.Error(ctx, "audit append failed", "user_id", userID, "message", message, "error", err)
	}
}

// List returns recent audit entries, newest first. Admin only; membership
// in the admins table is the single source of truth.
func (s *AuditService) List(ctx context.Context, requesterID string, limit int) ([]*models.LogEntry, error) {

	isAdmin, err := s.repomanager.Users(s.db).IsAdmin(ctx, requesterID)
	if err != nil {
		return nil, common.ErrInternal
	}
	if !isAdmin {
		return nil, common.ErrForbidden
	}

	if limit <= 0 || limit > defaultAuditListLimit {
		limit = defaultAuditListLimit
	}

	entries, err := s.repomanager.Logs(s.db).List(ctx, limit)
	if err != nil {
		return nil, common.ErrInternal
	}

	return entries, nil
}
