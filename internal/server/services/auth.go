// Package services contains server-side business logic. AuthService turns a
// Google credential into a session and resolves sessions on later requests;
// ItemService runs the submission pipeline and the filtered listing.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/lostfound/internal/common"
	"github.com/dmitrijs2005/lostfound/internal/dbx"
	"github.com/dmitrijs2005/lostfound/internal/logging"
	"github.com/dmitrijs2005/lostfound/internal/server/auth"
	"github.com/dmitrijs2005/lostfound/internal/server/metrics"
	"github.com/dmitrijs2005/lostfound/internal/server/models"
	"github.com/dmitrijs2005/lostfound/internal/server/repositories/repomanager"
)

// IdentityVerifier validates an identity assertion from the provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (models.IdentityClaim, error)
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    IdentityVerifier
	sessions    *auth.SessionManager
	denylist    auth.Denylist
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, verifier IdentityVerifier,
	sessions *auth.SessionManager, denylist auth.Denylist, logger logging.Logger, mtr *metrics.Metrics) *AuthService {
	if denylist == nil {
		denylist = auth.NopDenylist{}
	}
	return &AuthService{
		db:          db,
		repomanager: m,
		verifier:    verifier,
		sessions:    sessions,
		denylist:    denylist,
		logger:      logger,
		metrics:     mtr,
	}
}

// Login verifies credential and issues a session cookie for the identity it
// carries. The signed-in user is recorded in the users directory inside one
// transaction; failing to do so does not fail the login.
func (s *AuthService) Login(ctx context.Context, credential string) (models.IdentityClaim, *http.Cookie, error) {
	claim, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		s.metrics.IncLogin(metrics.LoginFailure)
		return models.IdentityClaim{}, nil, fmt.Errorf("verify credential: %w", err)
	}

	firstLogin, err := s.recordUser(ctx, claim)
	if err != nil {
		s.logger.Warn(ctx, "failed to record user", "email", claim.Email, "error", err)
	}

	cookie, err := s.sessions.Issue(claim)
	if err != nil {
		s.metrics.IncLogin(metrics.LoginFailure)
		return models.IdentityClaim{}, nil, fmt.Errorf("issue session: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	s.logger.Info(ctx, "user signed in", "email", claim.Email, "first_login", firstLogin)
	return claim, cookie, nil
}

// recordUser upserts claim into the users directory and reports whether the
// email had never signed in before.
func (s *AuthService) recordUser(ctx context.Context, claim models.IdentityClaim) (bool, error) {
	var firstLogin bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		_, err := users.GetByEmail(ctx, claim.Email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			firstLogin = true
		case err != nil:
			return err
		}

		_, err = users.Upsert(ctx, claim)
		return err
	})
	return firstLogin, err
}

// Authenticate resolves a session cookie value. Revoked sessions are reported
// as common.ErrInvalidSession.
func (s *AuthService) Authenticate(ctx context.Context, cookieValue string) (*auth.Session, error) {
	session, err := s.sessions.Resolve(cookieValue)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: session revoked", common.ErrInvalidSession)
	}

	return session, nil
}

// Logout revokes the presented session, if any, and returns the cookie that
// clears it from the browser.
func (s *AuthService) Logout(ctx context.Context, cookieValue string) *http.Cookie {
	if session, err := s.sessions.Resolve(cookieValue); err == nil {
		if err := s.denylist.Revoke(ctx, session.ID, s.sessions.Remaining(session)); err != nil {
			s.logger.Warn(ctx, "failed to revoke session", "email", session.Claim.Email, "error", err)
		}
	}
	return s.sessions.Clear()
}

// ClearCookie returns the cookie that removes a session from the browser.
func (s *AuthService) ClearCookie() *http.Cookie {
	return s.sessions.Clear()
}
