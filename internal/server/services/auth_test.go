package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/auth"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
)

var alice = models.IdentityClaim{Email: "alice@example.com", Name: "Alice", Picture: "https://img/alice"}

type authFixture struct {
	svc  *AuthService
	mock sqlmock.Sqlmock
	logs *bytes.Buffer
}

func newAuthService(t *testing.T, v *fakeVerifier, users *fakeUsersRepo, dl auth.Denylist) *authFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var logs bytes.Buffer
	rm := &fakeRepoManager{users: users, items: newMemItemsRepo()}
	sessions := auth.NewSessionManager([]byte("test-secret"), time.Hour, false)
	svc := NewAuthService(db, rm, v, sessions, dl, logging.NewJSON(&logs, "debug"), nil)
	return &authFixture{svc: svc, mock: mock, logs: &logs}
}

// expectUserTx registers the transaction a login opens for the users directory.
func (f *authFixture) expectUserTx(commit bool) {
	f.mock.ExpectBegin()
	if commit {
		f.mock.ExpectCommit()
	} else {
		f.mock.ExpectRollback()
	}
}

func TestAuthService_LoginThenAuthenticate(t *testing.T) {
	users := &fakeUsersRepo{}
	f := newAuthService(t, &fakeVerifier{claim: alice}, users, newMemDenylist())
	f.expectUserTx(true)

	claim, cookie, err := f.svc.Login(context.Background(), "google-credential")
	require.NoError(t, err)
	assert.Equal(t, alice, claim)
	assert.Equal(t, common.SessionCookieName, cookie.Name)
	assert.Equal(t, []models.IdentityClaim{alice}, users.upserted)
	require.NoError(t, f.mock.ExpectationsWereMet())

	session, err := f.svc.Authenticate(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, session.Claim.Email)
	assert.Equal(t, alice.Name, session.Claim.Name)
}

func TestAuthService_LoginReportsFirstLogin(t *testing.T) {
	users := &fakeUsersRepo{}
	f := newAuthService(t, &fakeVerifier{claim: alice}, users, nil)
	f.expectUserTx(true)
	f.expectUserTx(true)

	_, _, err := f.svc.Login(context.Background(), "google-credential")
	require.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), "google-credential")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(f.logs.String()), "\n")
	var signIns []string
	for _, l := range lines {
		if strings.Contains(l, "user signed in") {
			signIns = append(signIns, l)
		}
	}
	require.Len(t, signIns, 2)
	assert.Contains(t, signIns[0], `"first_login":true`)
	assert.Contains(t, signIns[1], `"first_login":false`)
	assert.Len(t, users.upserted, 2)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestAuthService_LoginVerifierFailure(t *testing.T) {
	users := &fakeUsersRepo{}
	f := newAuthService(t, &fakeVerifier{err: auth.ErrAudienceMismatch}, users, nil)

	_, cookie, err := f.svc.Login(context.Background(), "bad")
	assert.Nil(t, cookie)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Empty(t, users.upserted, "no partial trust")
	require.NoError(t, f.mock.ExpectationsWereMet(), "no transaction without a verified identity")
}

func TestAuthService_LoginSurvivesDirectoryFailure(t *testing.T) {
	tests := []struct {
		name  string
		users *fakeUsersRepo
	}{
		{"upsert fails", &fakeUsersRepo{upsertErr: errors.New("db down")}},
		{"lookup fails", &fakeUsersRepo{getErr: errors.New("db down")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthService(t, &fakeVerifier{claim: alice}, tt.users, nil)
			f.expectUserTx(false)

			_, cookie, err := f.svc.Login(context.Background(), "google-credential")
			require.NoError(t, err)
			assert.NotEmpty(t, cookie.Value)
			assert.Empty(t, tt.users.upserted)
			assert.Contains(t, f.logs.String(), "failed to record user")
			require.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestAuthService_LoginSurvivesBeginFailure(t *testing.T) {
	users := &fakeUsersRepo{}
	f := newAuthService(t, &fakeVerifier{claim: alice}, users, nil)
	f.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, cookie, err := f.svc.Login(context.Background(), "google-credential")
	require.NoError(t, err)
	assert.NotEmpty(t, cookie.Value)
	assert.Empty(t, users.upserted)
}

func TestAuthService_AuthenticateErrors(t *testing.T) {
	f := newAuthService(t, &fakeVerifier{claim: alice}, &fakeUsersRepo{}, nil)

	_, err := f.svc.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrNotAuthenticated)

	_, err = f.svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidSession)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	dl := newMemDenylist()
	f := newAuthService(t, &fakeVerifier{claim: alice}, &fakeUsersRepo{}, dl)
	f.expectUserTx(true)

	_, cookie, err := f.svc.Login(context.Background(), "google-credential")
	require.NoError(t, err)

	cleared := f.svc.Logout(context.Background(), cookie.Value)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
	require.Len(t, dl.revoked, 1)
	for _, ttl := range dl.revoked {
		assert.Greater(t, ttl, 59*time.Minute)
	}

	_, err = f.svc.Authenticate(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, common.ErrInvalidSession)
}

func TestAuthService_LogoutWithoutSession(t *testing.T) {
	dl := newMemDenylist()
	f := newAuthService(t, &fakeVerifier{claim: alice}, &fakeUsersRepo{}, dl)

	cleared := f.svc.Logout(context.Background(), "")
	assert.Empty(t, cleared.Value)
	assert.Empty(t, dl.revoked)
}

func TestAuthService_DenylistUnavailable(t *testing.T) {
	dl := newMemDenylist()
	f := newAuthService(t, &fakeVerifier{claim: alice}, &fakeUsersRepo{}, dl)
	f.expectUserTx(true)

	_, cookie, err := f.svc.Login(context.Background(), "google-credential")
	require.NoError(t, err)

	dl.err = errors.New("redis down")
	_, err = f.svc.Authenticate(context.Background(), cookie.Value)
	require.Error(t, err)
	assert.False(t, auth.IsSessionError(err), "a backend failure is not a bad session")

	assert.NotNil(t, f.svc.Logout(context.Background(), cookie.Value), "logout still clears the cookie")
}
