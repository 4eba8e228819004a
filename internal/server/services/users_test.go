package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov-dev/filevault/internal/common"
	"github.com/avolkov-dev/filevault/internal/otp"
	"github.com/avolkov-dev/filevault/internal/server/config"
	"github.com/avolkov-dev/filevault/internal/server/models"
)

func newUserService(t *testing.T, rm *fakeRepoManager) *UserService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(db, rm, cfg)
}

func seedUser(t *testing.T, rm *fakeRepoManager, id, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	u := &models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		PublicKey:    "pub-" + id,
	}
	rm.u.users[id] = u
	return u
}

func TestRegister_Success(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	user, err := s.Register(context.Background(), "alice", "alice@example.com", "pw", "pub", "spub")
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated ID")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw")) != nil {
		t.Fatal("password hash does not verify")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	_, err := s.Register(context.Background(), "alice", "other@example.com", "pw", "pub", "spub")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	_, err := s.Register(context.Background(), "alice", "alice@example.com", "pw", "", "spub")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}

func TestLogin_AdvancesCounterAndReturnsChallenge(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	u := seedUser(t, rm, "u-1", "alice", "pw")
	rm.u.users[u.ID].Counter = 5

	pending, err := s.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pending.Counter != 6 {
		t.Fatalf("counter: got %d want 6", pending.Counter)
	}
	if rm.u.users[u.ID].Counter != 6 {
		t.Fatalf("persisted counter: got %d want 6", rm.u.users[u.ID].Counter)
	}
}

func TestLogin_ByEmail(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	pending, err := s.Login(context.Background(), "alice@example.com", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pending.UserID != "u-1" {
		t.Fatalf("unexpected user: %+v", pending)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	_, err := s.Login(context.Background(), "alice", "wrong")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized, got %v", err)
	}
}

func TestLogin_UnknownUser_SameError(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	_, err := s.Login(context.Background(), "ghost", "pw")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized, got %v", err)
	}
}

func TestVerifyCode_Success(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	pending, err := s.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	code := otp.DeriveCode(uint64(pending.Counter))
	pair, err := s.VerifyCode(context.Background(), pending.UserID, code)
	if err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("empty tokens: %+v", pair)
	}
}

// A wrong code never yields a credential, and the failed attempt consumes
// the pending login: retrying with the right code afterwards still fails
// until the password step is repeated.
func TestVerifyCode_WrongCode_ResetsStateMachine(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	pending, err := s.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}

	_, err = s.VerifyCode(context.Background(), pending.UserID, "000000")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized, got %v", err)
	}

	// correct code for the issued counter no longer works
	code := otp.DeriveCode(uint64(pending.Counter))
	_, err = s.VerifyCode(context.Background(), pending.UserID, code)
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized after reset, got %v", err)
	}

	// a fresh password login issues a new counter and succeeds
	pending2, err := s.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("second Login error: %v", err)
	}
	if pending2.Counter == pending.Counter {
		t.Fatalf("counter not advanced: %d", pending2.Counter)
	}
	if _, err := s.VerifyCode(context.Background(), pending2.UserID, otp.DeriveCode(uint64(pending2.Counter))); err != nil {
		t.Fatalf("VerifyCode after fresh login: %v", err)
	}
}

// A code derived from the previous counter value must not verify against
// the freshly issued one.
func TestVerifyCode_StaleCounterCodeFails(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	u := seedUser(t, rm, "u-1", "alice", "pw")
	rm.u.users[u.ID].Counter = 5

	pending, err := s.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pending.Counter != 6 {
		t.Fatalf("counter: got %d want 6", pending.Counter)
	}

	stale := otp.DeriveCode(5)
	if _, err := s.VerifyCode(context.Background(), pending.UserID, stale); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("stale code accepted: %v", err)
	}
}

func TestVerifyCode_WithoutLogin(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	_, err := s.VerifyCode(context.Background(), "u-1", otp.DeriveCode(1))
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized, got %v", err)
	}
}

func TestGetCounter_AdvancesByOne(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	u := seedUser(t, rm, "u-1", "alice", "pw")
	rm.u.users[u.ID].Counter = 5

	got, err := s.GetCounter(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetCounter error: %v", err)
	}
	if got != 6 {
		t.Fatalf("counter: got %d want 6", got)
	}
	if rm.u.users[u.ID].Counter != 6 {
		t.Fatalf("persisted counter: got %d want 6", rm.u.users[u.ID].Counter)
	}
}

func TestRefreshToken_RotatesToken(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	rm.r.tokens["old"] = &models.RefreshToken{UserID: "u-1", Token: "old", Expires: time.Now().Add(time.Hour)}

	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()
	s.db = db

	pair, err := s.RefreshToken(context.Background(), "old")
	if err != nil {
		t.Fatalf("RefreshToken error: %v", err)
	}
	if pair.RefreshToken == "old" || pair.RefreshToken == "" {
		t.Fatalf("token not rotated: %+v", pair)
	}
	if _, ok := rm.r.tokens["old"]; ok {
		t.Fatal("old token not revoked")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRefreshToken_Expired(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	rm.r.tokens["old"] = &models.RefreshToken{UserID: "u-1", Token: "old", Expires: time.Now().Add(-time.Minute)}

	_, err := s.RefreshToken(context.Background(), "old")
	if !errors.Is(err, common.ErrRefreshTokenExpired) {
		t.Fatalf("want common.ErrRefreshTokenExpired, got %v", err)
	}
}

func TestRefreshToken_Unknown(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)

	_, err := s.RefreshToken(context.Background(), "ghost")
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized, got %v", err)
	}
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	rm.r.tokens["t1"] = &models.RefreshToken{UserID: "u-1", Token: "t1", Expires: time.Now().Add(time.Hour)}
	rm.r.tokens["t2"] = &models.RefreshToken{UserID: "u-1", Token: "t2", Expires: time.Now().Add(time.Hour)}
	rm.r.tokens["t3"] = &models.RefreshToken{UserID: "u-2", Token: "t3", Expires: time.Now().Add(time.Hour)}

	if err := s.Logout(context.Background(), "u-1"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if len(rm.r.tokens) != 1 {
		t.Fatalf("unexpected tokens left: %+v", rm.r.tokens)
	}
}

func TestVerifyToken_RoundTrip(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	pending, err := s.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	pair, err := s.VerifyCode(context.Background(), pending.UserID, otp.DeriveCode(uint64(pending.Counter)))
	if err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}

	userID, err := s.VerifyToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyToken error: %v", err)
	}
	if userID != "u-1" {
		t.Fatalf("userID: got %q want %q", userID, "u-1")
	}
}

func TestGetPublicKey(t *testing.T) {
	rm := newFakeRepoManager()
	s := newUserService(t, rm)
	seedUser(t, rm, "u-1", "alice", "pw")

	pub, err := s.GetPublicKey(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetPublicKey error: %v", err)
	}
	if pub != "pub-u-1" {
		t.Fatalf("unexpected key: %q", pub)
	}

	if _, err := s.GetPublicKey(context.Background(), "ghost"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}
