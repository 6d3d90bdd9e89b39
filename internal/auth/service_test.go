package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/starwars-api/internal/apperr"
	"github.com/iliyamo/starwars-api/internal/model"
	"github.com/iliyamo/starwars-api/internal/repository"
	"github.com/iliyamo/starwars-api/internal/token"
)

type fakeMailer struct{ sent chan string }

func newFakeMailer() *fakeMailer { return &fakeMailer{sent: make(chan string, 8)} }

func (f *fakeMailer) SendConfirmation(_ context.Context, to, _, _, _ string) error {
	f.sent <- "confirmation:" + to
	return nil
}
func (f *fakeMailer) SendResendConfirmation(_ context.Context, to, _ string) error {
	f.sent <- "resend:" + to
	return nil
}
func (f *fakeMailer) SendPasswordReset(_ context.Context, to, _ string) error {
	f.sent <- "reset:" + to
	return nil
}

func (f *fakeMailer) waitFor(t *testing.T, want string) {
	t.Helper()
	select {
	case got := <-f.sent:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("no mail published, wanted %q", want)
	}
}

type testEnv struct {
	svc    *Service
	mock   sqlmock.Sqlmock
	mailer *fakeMailer
	codec  *token.Codec
	store  *token.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	codec := token.NewCodec("access-secret", "refresh-secret", 24, 90)
	store := token.NewStore(rdb, 365)
	mailer := newFakeMailer()

	svc := NewService(
		repository.NewUserRepo(db),
		repository.NewResetTokenRepo(db),
		codec, store, mailer, bcrypt.MinCost)

	return &testEnv{svc: svc, mock: mock, mailer: mailer, codec: codec, store: store}
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func userRows(id uint64, email, hash string, activated bool, activationToken interface{}, deactivatedAt interface{}, deleted bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "first_name", "last_name", "email", "password_hash", "role",
		"is_activated", "activation_token", "deactivated_at", "is_deleted", "created_at", "updated_at",
	}).AddRow(id, "Luke", "Skywalker", email, hash, "user", activated, activationToken, deactivatedAt, deleted, now, now)
}

func expectEmailLookup(mock sqlmock.Sqlmock, email string, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").WithArgs(email).WillReturnRows(rows)
}

func statusOf(t *testing.T, err error) (int, string) {
	t.Helper()
	ae, ok := apperr.From(err)
	require.True(t, ok, "expected a taxonomy error, got %v", err)
	return ae.StatusCode, ae.Message
}

// Login with an unknown email and login with a wrong password must be
// indistinguishable to the caller.
func TestLoginFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("ghost@rebellion.example").
		WillReturnError(sql.ErrNoRows)
	_, errUnknown := env.svc.Login(ctx, "ghost@rebellion.example", "whatever")

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", mustHash(t, "right-password"), true, nil, nil, false))
	_, errWrongPw := env.svc.Login(ctx, "luke@rebellion.example", "wrong-password")

	codeA, msgA := statusOf(t, errUnknown)
	codeB, msgB := statusOf(t, errWrongPw)
	assert.Equal(t, http.StatusUnauthorized, codeA)
	assert.Equal(t, codeA, codeB)
	assert.Equal(t, msgA, msgB)
}

func TestLoginRejectsDisabledAccounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hash := mustHash(t, "Secret123")

	expectEmailLookup(env.mock, "gone@rebellion.example",
		userRows(2, "gone@rebellion.example", hash, true, nil, time.Now().UTC(), false))
	_, errDeactivated := env.svc.Login(ctx, "gone@rebellion.example", "Secret123")

	expectEmailLookup(env.mock, "deleted@rebellion.example",
		userRows(3, "deleted@rebellion.example", hash, true, nil, nil, true))
	_, errDeleted := env.svc.Login(ctx, "deleted@rebellion.example", "Secret123")

	for _, err := range []error{errDeactivated, errDeleted} {
		code, msg := statusOf(t, err)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid email or password", msg)
	}
}

func TestLoginIssuesVerifiableSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", mustHash(t, "Secret123"), true, nil, nil, false))

	sess, err := env.svc.Login(ctx, "luke@rebellion.example", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), sess.ID)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)

	claims, err := env.codec.VerifyAccess(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "luke@rebellion.example", claims.Email)

	// The refresh token is live in the store.
	stored, err := env.store.Get(ctx, 1, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sess.RefreshToken, stored)
}

// Rotation is single-use: a rotated token must be rejected if
// presented again, even though its signature is still valid.
func TestRefreshRotationConsumesOldToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hash := mustHash(t, "Secret123")

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	sess, err := env.svc.Login(ctx, "luke@rebellion.example", "Secret123")
	require.NoError(t, err)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	renewed, err := env.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, renewed.RefreshToken)

	// The old token was consumed; replaying it fails at the store.
	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	_, err = env.svc.Refresh(ctx, sess.RefreshToken)
	code, msg := statusOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", msg)

	// The new token still works against the store.
	_, err = env.store.Get(ctx, 1, renewed.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	env := newTestEnv(t)

	forged, err := token.NewCodec("other", "other", 24, 90).SignRefresh(model.User{ID: 1})
	require.NoError(t, err)

	_, err = env.svc.Refresh(context.Background(), forged)
	code, _ := statusOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, code)
}

// A signed-but-never-stored (or already revoked) token is rejected by
// the store lookup.
func TestRefreshRejectsUnstoredToken(t *testing.T) {
	env := newTestEnv(t)

	unstored, err := env.codec.SignRefresh(model.User{ID: 1, Email: "luke@rebellion.example"})
	require.NoError(t, err)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", "hash", true, nil, nil, false))
	_, err = env.svc.Refresh(context.Background(), unstored)
	code, msg := statusOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid refresh token", msg)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hash := mustHash(t, "Secret123")

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	sess, err := env.svc.Login(ctx, "luke@rebellion.example", "Secret123")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, sess.RefreshToken))

	// The revoked token can no longer be rotated.
	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	_, err = env.svc.Refresh(ctx, sess.RefreshToken)
	code, _ := statusOf(t, err)
	assert.Equal(t, http.StatusUnauthorized, code)
}

// Two sessions opened in the same second stay independent: each
// refresh token is distinct, holds its own store entry, and logging
// one session out leaves the other alive.
func TestConcurrentSessionsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	hash := mustHash(t, "Secret123")

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	first, err := env.svc.Login(ctx, "luke@rebellion.example", "Secret123")
	require.NoError(t, err)

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", hash, true, nil, nil, false))
	second, err := env.svc.Login(ctx, "luke@rebellion.example", "Secret123")
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	require.NoError(t, env.svc.Logout(ctx, first.RefreshToken))

	_, err = env.store.Get(ctx, 1, second.RefreshToken)
	assert.NoError(t, err)
}

// A storage outage during refresh answers 500 and must not destroy
// the presented token: the session survives the blip.
func TestRefreshStorageOutageKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", mustHash(t, "Secret123"), true, nil, nil, false))
	sess, err := env.svc.Login(ctx, "luke@rebellion.example", "Secret123")
	require.NoError(t, err)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnError(errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"))
	_, err = env.svc.Refresh(ctx, sess.RefreshToken)
	code, _ := statusOf(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)

	// The token is still live and rotates once the database is back.
	stored, err := env.store.Get(ctx, 1, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sess.RefreshToken, stored)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", "hash", true, nil, nil, false))
	renewed, err := env.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, renewed.RefreshToken)
}

func TestLogoutValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, _ := statusOf(t, env.svc.Logout(ctx, ""))
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = statusOf(t, env.svc.Logout(ctx, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRegisterSendsConfirmation(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	profile, err := env.svc.Register(context.Background(), "Luke", "Skywalker", "luke@rebellion.example", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "luke@rebellion.example", profile.Email)
	env.mailer.waitFor(t, "confirmation:luke@rebellion.example")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectExec("INSERT INTO users").
		WillReturnError(sqlErr1062())

	_, err := env.svc.Register(context.Background(), "Luke", "Skywalker", "luke@rebellion.example", "Secret123")
	code, msg := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "This email is already taken", msg)
}

// A verification token works exactly once: activation clears it, so
// the second call cannot find it.
func TestVerifyEmailSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE activation_token=").
		WithArgs("act-tok").
		WillReturnRows(userRows(1, "luke@rebellion.example", "hash", false, "act-tok", nil, false))
	env.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET activation_token=NULL, is_activated=1 WHERE id=?")).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sess, err := env.svc.VerifyEmail(ctx, "act-tok")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)

	// Verification doubles as first login: the refresh token is stored.
	_, err = env.store.Get(ctx, 1, sess.RefreshToken)
	assert.NoError(t, err)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE activation_token=").
		WithArgs("act-tok").
		WillReturnError(sql.ErrNoRows)
	_, err = env.svc.VerifyEmail(ctx, "act-tok")
	code, _ := statusOf(t, err)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Already activated accounts cannot request another mail.
	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", "hash", true, nil, nil, false))
	code, msg := statusOf(t, env.svc.ResendVerification(ctx, "luke@rebellion.example"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "This account has already been activated", msg)

	// Unverified accounts get a fresh token and a mail.
	expectEmailLookup(env.mock, "leia@rebellion.example",
		userRows(2, "leia@rebellion.example", "hash", false, "old-tok", nil, false))
	env.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET activation_token=? WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, env.svc.ResendVerification(ctx, "leia@rebellion.example"))
	env.mailer.waitFor(t, "resend:leia@rebellion.example")
}

func TestInitiatePasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("ghost@rebellion.example").
		WillReturnError(sql.ErrNoRows)
	code, _ := statusOf(t, env.svc.InitiatePasswordReset(ctx, "ghost@rebellion.example"))
	assert.Equal(t, http.StatusNotFound, code)

	expectEmailLookup(env.mock, "luke@rebellion.example",
		userRows(1, "luke@rebellion.example", "hash", true, nil, nil, false))
	env.mock.ExpectExec("INSERT INTO tokens .+ ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, env.svc.InitiatePasswordReset(ctx, "luke@rebellion.example"))
	env.mailer.waitFor(t, "reset:luke@rebellion.example")
}

func TestResetPasswordValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, msg := statusOf(t, env.svc.ResetPassword(ctx, "tok", "a", "b"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Passwords do not match", msg)

	env.mock.ExpectQuery("SELECT .+ FROM tokens WHERE value=").
		WithArgs("ghost-tok", model.ResetTokenType).
		WillReturnError(sql.ErrNoRows)
	code, msg = statusOf(t, env.svc.ResetPassword(ctx, "ghost-tok", "NewSecret1", "NewSecret1"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token", msg)
}

func TestResetPasswordExpiredLink(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "value", "type", "owner_id", "expires_at", "created_at", "updated_at"}).
		AddRow(1, "old-tok", model.ResetTokenType, 5, now.Add(-time.Hour), now.Add(-25*time.Hour), now.Add(-25*time.Hour))
	env.mock.ExpectQuery("SELECT .+ FROM tokens WHERE value=").
		WithArgs("old-tok", model.ResetTokenType).
		WillReturnRows(rows)

	err := env.svc.ResetPassword(context.Background(), "old-tok", "NewSecret1", "NewSecret1")
	code, msg := statusOf(t, err)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Expired reset link. Please request a new reset link", msg)
}

// A successful reset updates the password and removes the token row
// so the link cannot be replayed.
func TestResetPasswordConsumesToken(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "value", "type", "owner_id", "expires_at", "created_at", "updated_at"}).
		AddRow(1, "tok", model.ResetTokenType, 5, now.Add(time.Hour), now, now)
	env.mock.ExpectQuery("SELECT .+ FROM tokens WHERE value=").
		WithArgs("tok", model.ResetTokenType).
		WillReturnRows(rows)
	env.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tokens WHERE owner_id=? AND type=?")).
		WithArgs(uint64(5), model.ResetTokenType).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, env.svc.ResetPassword(context.Background(), "tok", "NewSecret1", "NewSecret1"))
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, _ := statusOf(t, env.svc.ChangePassword(ctx, 1, "cur", "new", "different"))
	assert.Equal(t, http.StatusBadRequest, code)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", mustHash(t, "current-pw"), true, nil, nil, false))
	code, msg := statusOf(t, env.svc.ChangePassword(ctx, 1, "wrong-pw", "NewSecret1", "NewSecret1"))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Current password is incorrect", msg)

	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(1)).
		WillReturnRows(userRows(1, "luke@rebellion.example", mustHash(t, "current-pw"), true, nil, nil, false))
	env.mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, env.svc.ChangePassword(ctx, 1, "current-pw", "NewSecret1", "NewSecret1"))
}

func sqlErr1062() error {
	return errDuplicate{}
}

type errDuplicate struct{}

func (errDuplicate) Error() string {
	return "Error 1062 (23000): Duplicate entry 'luke@rebellion.example' for key 'users.email'"
}
