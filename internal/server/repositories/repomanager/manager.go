// Package repomanager groups the per-entity repositories behind one factory
// so services can bind them to either the pool or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkov-dev/filevault/internal/dbx"
	"github.com/avolkov-dev/filevault/internal/server/repositories/files"
	"github.com/avolkov-dev/filevault/internal/server/repositories/grants"
	"github.com/avolkov-dev/filevault/internal/server/repositories/logs"
	"github.com/avolkov-dev/filevault/internal/server/repositories/refreshtokens"
	"github.com/avolkov-dev/filevault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	Grants(db dbx.DBTX) grants.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Logs(db dbx.DBTX) logs.Repository
}
