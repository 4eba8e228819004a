// Package services implements the server-side business logic on top of the
// repositories: accounts and two-step login, encrypted file lifecycle,
// sharing grants and the audit trail.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"database/sql"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/dbx"
	"github.com/avolkov-dev/filevault/internal/otp"
	"github.com/avolkov-dev/filevault/internal/server/auth"
	"github.com/avolkov-dev/filevault/internal/server/config"
	"github.com/avolkov-dev/filevault/internal/server/models"
	"github.com/avolkov-dev/filevault/internal/server/repositories/repomanager"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// PendingAuth is the result of a successful password check: the account ID
// and the freshly advanced counter the client must hash to finish login.
type PendingAuth struct {
	UserID  string
	Counter int64
}

// pendingLogin tracks a password-verified login waiting for its one-time
// code. Single use: consumed on the first verify attempt, pass or fail, so
// a failed code sends the caller back to the password step.
type pendingLogin struct {
	counter int64
	expires time.Time
}

const pendingLoginTTL = 5 * time.Minute

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	mu      sync.Mutex
	pending map[string]pendingLogin
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		pending:                      make(map[string]pendingLogin),
	}
}

func (s *UserService) Register(ctx context.Context, username, email, password, publicKey, signingPublicKey string) (*models.User, error) {

	if username == "" || email == "" || password == "" {
		return nil, common.ErrValidation
	}
	if publicKey == "" || signingPublicKey == "" {
		return nil, common.ErrValidation
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrInternal
	}

	user := &models.User{
		ID:               uuid.NewString(),
		Username:         username,
		Email:            email,
		PasswordHash:     string(hash),
		PublicKey:        publicKey,
		SigningPublicKey: signingPublicKey,
	}

	repo := s.repomanager.Users(s.db)

	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

// Login is the first transition of the login state machine. On a password
// match it atomically advances the account's counter and returns the new
// value as the challenge; the client derives the one-time code from exactly
// this value. A failed password leaves no trace.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*PendingAuth, error) {

	user, err := s.findByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.ErrInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.ErrUnauthorized
	}

	counter, err := s.repomanager.Users(s.db).AdvanceCounter(ctx, user.ID)
	if err != nil {
		return nil, common.ErrInternal
	}

	s.mu.Lock()
	s.pending[user.ID] = pendingLogin{counter: counter, expires: time.Now().Add(pendingLoginTTL)}
	s.mu.Unlock()

	return &PendingAuth{UserID: user.ID, Counter: counter}, nil
}

// VerifyCode is the second transition. The expected code is derived from
// the counter the server itself issued in Login; a value echoed by the
// client is never trusted. The pending record is consumed either way, so a
// wrong code forces a fresh password login.
func (s *UserService) VerifyCode(ctx context.Context, userID, code string) (*TokenPair, error) {

	s.mu.Lock()
	p, ok := s.pending[userID]
	delete(s.pending, userID)
	s.mu.Unlock()

	if !ok || time.Now().After(p.expires) {
		return nil, common.ErrUnauthorized
	}

	if !otp.VerifyCode(uint64(p.counter), code) {
		return nil, common.ErrUnauthorized
	}

	return s.generateTokenPair(ctx, userID)
}

// GetCounter atomically advances and returns the caller's counter. The
// returned value is the one both sides hash.
func (s *UserService) GetCounter(ctx context.Context, userID string) (int64, error) {
	counter, err := s.repomanager.Users(s.db).AdvanceCounter(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return 0, common.ErrNotFound
		}
		return 0, common.ErrInternal
	}
	return counter, nil
}

func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {

	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		tokenPair, err = s.generateTokenPairTx(ctx, tx, token.UserID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout revokes the account's refresh tokens. The signed action token is
// recorded in the audit trail by the caller.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.RefreshTokens(s.db).DeleteByUser(ctx, userID); err != nil {
		return common.ErrInternal
	}
	return nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	return user, nil
}

// GetPublicKey returns the wrapping public key of any account. This is the
// only way a client obtains a recipient's key.
func (s *UserService) GetPublicKey(ctx context.Context, userID string) (string, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.PublicKey, nil
}

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.ErrInternal
	}
	return users, nil
}

func (s *UserService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	isAdmin, err := s.repomanager.Users(s.db).IsAdmin(ctx, userID)
	if err != nil {
		return false, common.ErrInternal
	}
	return isAdmin, nil
}

func (s *UserService) VerifyToken(tokenString string) (string, error) {
	return auth.GetUserIDFromToken(tokenString, s.jwtSecret)
}

func (s *UserService) findByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, usernameOrEmail)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return repo.GetByEmail(ctx, usernameOrEmail)
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	return s.generateTokenPairTx(ctx, s.db, userID)
}

func (s *UserService) generateTokenPairTx(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrInternal
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrInternal
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
